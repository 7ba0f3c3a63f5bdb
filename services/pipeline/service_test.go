package pipeline

import (
	"context"
	"database/sql"
	"os"
	"path/filepath"
	"testing"

	"github.com/nkessler2000/sentiment-analysis/lib/fetch"
	"github.com/nkessler2000/sentiment-analysis/lib/testutil"
	"github.com/nkessler2000/sentiment-analysis/services/bookdata/db"
	"github.com/nkessler2000/sentiment-analysis/services/catalog"
	"github.com/nkessler2000/sentiment-analysis/services/features"
	"github.com/nkessler2000/sentiment-analysis/services/reviews"

	"github.com/stretchr/testify/require"
)

func setup(t *testing.T) (Pipeline, *sql.DB) {
	res, cleanup := testutil.SetupService(t, testutil.ServiceParams{
		Name:     "pipeline",
		DbSchema: db.Schema,
	})
	t.Cleanup(cleanup)

	// no test in this package touches the network
	fetcher := fetch.NewClient(fetch.Options{})
	cat := catalog.NewService(res.DB, fetcher, catalog.Options{BaseURL: "http://invalid.example"})
	rev := reviews.NewService(res.DB, fetcher, reviews.Options{BaseURL: "http://invalid.example"})
	feat := features.NewService(res.DB, features.Options{MinTokens: 3})

	return New(res.DB, cat, rev, feat, Options{}), res.DB
}

func rawBook(id int64, title string, reviewCount, engagement int64) db.BookInfo {
	return db.BookInfo{
		ID:          id,
		Title:       title,
		Author:      "Someone",
		ReviewCount: sql.NullInt64{Int64: reviewCount, Valid: true},
		ToRead:      sql.NullInt64{Int64: engagement, Valid: true},
	}
}

func TestCleanBookInfo(t *testing.T) {
	p, database := setup(t)
	ctx := context.Background()
	qry := db.New(database)

	require.NoError(t, qry.InsertBookInfo(ctx, rawBook(1, "Dune", 45, 10)))
	require.NoError(t, qry.InsertBookInfo(ctx, rawBook(2, "Dune", 50, 30)))
	require.NoError(t, qry.InsertBookInfo(ctx, rawBook(3, "Obscure", 10, 99)))

	require.NoError(t, p.CleanBookInfo(ctx))

	clean, err := qry.ListCleanBooks(ctx)
	require.NoError(t, err)
	require.Len(t, clean, 1, "below-threshold and lower-engagement rows stay out")
	require.EqualValues(t, 2, clean[0].ID)

	// a later crawl of the same title with more shelf engagement
	// replaces the stored row
	require.NoError(t, qry.InsertBookInfo(ctx, rawBook(4, "Dune", 60, 80)))
	require.NoError(t, p.CleanBookInfo(ctx))

	clean, err = qry.ListCleanBooks(ctx)
	require.NoError(t, err)
	require.Len(t, clean, 1)
	require.EqualValues(t, 4, clean[0].ID)

	// rerunning with nothing new changes nothing
	require.NoError(t, p.CleanBookInfo(ctx))
	again, err := qry.ListCleanBooks(ctx)
	require.NoError(t, err)
	require.Equal(t, clean, again)
}

func writeFile(t *testing.T, dir, name, content string) string {
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoadLexicons(t *testing.T) {
	p, database := setup(t)
	ctx := context.Background()
	dir := t.TempDir()

	files := LexiconFiles{
		Afinn:        writeFile(t, dir, "afinn.txt", "abandon\t-2\nsuperb\t5\n"),
		BingPositive: writeFile(t, dir, "positive-words.txt", ";; header\n\ngood\ngreat\n"),
		BingNegative: writeFile(t, dir, "negative-words.txt", ";; header\n\nbad\n"),
		Mpqa: writeFile(t, dir, "mpqa.tff",
			"type=weaksubj len=1 word1=good pos1=adj stemmed1=n priorpolarity=positive\n"+
				"type=strongsubj len=1 word1=bad pos1=adj stemmed1=n priorpolarity=negative\n"),
		Inquirer: writeFile(t, dir, "inquirer.csv",
			"Entry,Source,Positiv,Negativ\nGOOD#1,H4,Positiv,\nBAD,H4,,Negativ\nTHE,H4,,\n"),
	}

	require.NoError(t, p.LoadLexicons(ctx, files))
	require.NoError(t, p.LoadLexicons(ctx, files), "reload must replace, not append")

	counts := map[string]int64{}
	for _, table := range []string{"afinn_lexicon", "bing_lexicon", "mpqa_lexicon", "inquirer_lexicon"} {
		var n int64
		require.NoError(t, database.QueryRow("SELECT COUNT(*) FROM "+table).Scan(&n))
		counts[table] = n
	}
	require.EqualValues(t, 2, counts["afinn_lexicon"])
	require.EqualValues(t, 3, counts["bing_lexicon"])
	require.EqualValues(t, 2, counts["mpqa_lexicon"])
	require.EqualValues(t, 2, counts["inquirer_lexicon"], "neutral entries are dropped")

	var score int64
	require.NoError(t, database.QueryRow(
		`SELECT score FROM afinn_lexicon WHERE word = 'superb'`).Scan(&score))
	require.EqualValues(t, 5, score)
}

func TestFeaturesStageRunsInOrder(t *testing.T) {
	p, database := setup(t)
	ctx := context.Background()
	qry := db.New(database)

	require.NoError(t, qry.ReplaceAfinnLexicon(ctx, []db.LexiconEntry{{Word: "good", Score: 3}}))
	require.NoError(t, qry.ReplaceBingLexicon(ctx, nil))
	require.NoError(t, qry.ReplaceMpqaLexicon(ctx, nil))
	require.NoError(t, qry.ReplaceInquirerLexicon(ctx, nil))
	require.NoError(t, qry.InsertReview(ctx, db.Review{
		ReviewID: 7, BookID: 1, Rating: 4,
		ReviewText: sql.NullString{String: "good story overall here", Valid: true},
	}))

	require.NoError(t, p.Features(ctx))

	var rows int64
	require.NoError(t, database.QueryRow(`SELECT COUNT(*) FROM review_stats`).Scan(&rows))
	require.EqualValues(t, 1, rows)
	var caps sql.NullInt64
	require.NoError(t, database.QueryRow(
		`SELECT cap_words_count FROM review_stats WHERE review_id = 7`).Scan(&caps))
	require.True(t, caps.Valid, "structural features computed before aggregation")
}
