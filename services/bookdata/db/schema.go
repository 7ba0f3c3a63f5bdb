package db

import (
	"database/sql"
	"os"

	_ "embed"

	_ "modernc.org/sqlite"
)

//go:embed schema.sql
var Schema string

// Open opens (creating if needed) the pipeline database and applies the
// schema. The connection pool is capped at one connection; every batch is
// a single sequential writer.
func Open(path string) (*sql.DB, error) {
	if path != ":memory:" {
		_, err := os.Stat(path)
		if os.IsNotExist(err) {
			f, err := os.Create(path)
			if err != nil {
				return nil, err
			}
			f.Close()
		}
	}

	database, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	database.SetMaxOpenConns(1)
	if _, err := database.Exec("PRAGMA journal_mode=WAL"); err != nil {
		database.Close()
		return nil, err
	}
	if _, err := database.Exec(Schema); err != nil {
		database.Close()
		return nil, err
	}
	return database, nil
}
