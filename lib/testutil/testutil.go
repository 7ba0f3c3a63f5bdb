package testutil

import (
	"database/sql"
	"fmt"
	"testing"

	"github.com/nkessler2000/sentiment-analysis/lib/telemetry"

	_ "modernc.org/sqlite"
)

type ServiceParams struct {
	Name string
	// schema executed against a fresh in-memory database
	DbSchema string
}

type ServiceResult struct {
	DB *sql.DB
}

// SetupService opens an in-memory sqlite database with the given schema
// and installs test telemetry. The returned cleanup closes both.
func SetupService(t testing.TB, params ServiceParams) (ServiceResult, func()) {
	telemetryCleanup := telemetry.SetupForTesting(t, fmt.Sprintf("test:%s", params.Name))

	db, err := sql.Open("sqlite", ":memory:")
	if err != nil {
		t.Fatal(err)
	}
	// in-memory databases vanish if the pool opens a second connection
	db.SetMaxOpenConns(1)
	if params.DbSchema != "" {
		if _, err := db.Exec(params.DbSchema); err != nil {
			t.Fatal(err)
		}
	}

	return ServiceResult{DB: db}, func() {
		db.Close()
		telemetryCleanup()
	}
}
