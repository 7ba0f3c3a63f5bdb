// Package pipeline chains the crawl, clean and feature stages into
// re-runnable batch passes.
package pipeline

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/nkessler2000/sentiment-analysis/lib/lexicon"
	"github.com/nkessler2000/sentiment-analysis/services/bookdata/db"
	"github.com/nkessler2000/sentiment-analysis/services/catalog"
	"github.com/nkessler2000/sentiment-analysis/services/features"
	"github.com/nkessler2000/sentiment-analysis/services/reviews"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/codes"
)

var tracer = otel.Tracer("services/pipeline")

type Options struct {
	// CleanMinReviews is the review_count floor for the cleaning pass.
	// Zero means 40.
	CleanMinReviews int64
}

type Pipeline struct {
	database   *sql.DB
	qry        *db.Queries
	catalog    catalog.Service
	reviews    reviews.Service
	features   features.Service
	minReviews int64
}

func New(database *sql.DB, cat catalog.Service, rev reviews.Service, feat features.Service, opts Options) Pipeline {
	if opts.CleanMinReviews == 0 {
		opts.CleanMinReviews = 40
	}
	return Pipeline{
		database:   database,
		qry:        db.New(database),
		catalog:    cat,
		reviews:    rev,
		features:   feat,
		minReviews: opts.CleanMinReviews,
	}
}

// CleanBookInfo promotes eligible raw metadata rows into book_info_clean,
// keeping one row per distinct title: the one with the largest shelf
// engagement, whether it comes from this batch or is already stored.
func (p Pipeline) CleanBookInfo(ctx context.Context) error {
	ctx, span := tracer.Start(ctx, "CleanBookInfo")
	defer span.End()

	eligible, err := p.qry.EligibleBookInfo(ctx, p.minReviews)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return err
	}

	// dedupe the batch itself first; book_info is append-only and may
	// hold several crawl attempts for the same id or title
	best := map[string]db.BookInfo{}
	for _, b := range eligible {
		if cur, ok := best[b.Title]; ok && cur.ShelfEngagement() >= b.ShelfEngagement() {
			continue
		}
		best[b.Title] = b
	}

	promoted := 0
	for _, b := range best {
		stored, err := p.qry.GetCleanBookByTitle(ctx, b.Title)
		switch {
		case errors.Is(err, sql.ErrNoRows):
			if err := p.qry.InsertCleanBook(ctx, toCleanBook(b)); err != nil {
				return err
			}
			promoted++
		case err != nil:
			return err
		case b.ShelfEngagement() > stored.ShelfEngagement():
			if err := p.replaceCleanBook(ctx, stored.ID, toCleanBook(b)); err != nil {
				return err
			}
			promoted++
		}
	}

	slog.InfoContext(ctx, "cleaned book metadata",
		"eligible", len(eligible), "distinct_titles", len(best), "promoted", promoted)
	return nil
}

// replaceCleanBook swaps a stored clean row for a higher-engagement
// duplicate atomically so a distinct title never has zero or two rows.
func (p Pipeline) replaceCleanBook(ctx context.Context, oldID int64, b db.CleanBook) error {
	tx, err := p.database.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	txq := p.qry.WithTx(tx)
	if err := txq.DeleteCleanBook(ctx, oldID); err != nil {
		return err
	}
	if err := txq.InsertCleanBook(ctx, b); err != nil {
		return err
	}
	return tx.Commit()
}

func toCleanBook(b db.BookInfo) db.CleanBook {
	return db.CleanBook{
		ID:               b.ID,
		Title:            b.Title,
		Author:           b.Author,
		Published:        b.Published,
		Language:         b.Language,
		AvgRating:        b.AvgRating,
		RatingsCount:     b.RatingsCount,
		ReviewCount:      b.ReviewCount,
		Genre1:           b.Genre1,
		Genre2:           b.Genre2,
		Genre3:           b.Genre3,
		ToRead:           b.ToRead,
		CurrentlyReading: b.CurrentlyReading,
		Favorites:        b.Favorites,
	}
}

// LexiconFiles names the source files for the four lexicon tables. The
// Bing opinion lexicon ships as separate positive and negative word
// lists.
type LexiconFiles struct {
	Afinn        string
	BingPositive string
	BingNegative string
	Mpqa         string
	Inquirer     string
}

// LoadLexicons parses the lexicon files and reloads all four tables.
func (p Pipeline) LoadLexicons(ctx context.Context, files LexiconFiles) error {
	ctx, span := tracer.Start(ctx, "LoadLexicons")
	defer span.End()

	afinn, err := parseFile(files.Afinn, lexicon.ParseAFINN)
	if err != nil {
		return err
	}
	pos, err := parseFile(files.BingPositive, func(r io.Reader) ([]lexicon.Entry, error) {
		return lexicon.ParseOpinion(r, 1)
	})
	if err != nil {
		return err
	}
	neg, err := parseFile(files.BingNegative, func(r io.Reader) ([]lexicon.Entry, error) {
		return lexicon.ParseOpinion(r, 0)
	})
	if err != nil {
		return err
	}
	mpqa, err := parseFile(files.Mpqa, lexicon.ParseMPQA)
	if err != nil {
		return err
	}
	inquirer, err := parseFile(files.Inquirer, lexicon.ParseInquirer)
	if err != nil {
		return err
	}

	if err := p.qry.ReplaceAfinnLexicon(ctx, toDBEntries(afinn)); err != nil {
		return err
	}
	if err := p.qry.ReplaceBingLexicon(ctx, toDBEntries(append(pos, neg...))); err != nil {
		return err
	}
	if err := p.qry.ReplaceMpqaLexicon(ctx, toDBEntries(mpqa)); err != nil {
		return err
	}
	if err := p.qry.ReplaceInquirerLexicon(ctx, toDBEntries(inquirer)); err != nil {
		return err
	}

	slog.InfoContext(ctx, "loaded lexicons",
		"afinn", len(afinn), "bing", len(pos)+len(neg),
		"mpqa", len(mpqa), "inquirer", len(inquirer))
	return nil
}

func parseFile(path string, parse func(io.Reader) ([]lexicon.Entry, error)) ([]lexicon.Entry, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open lexicon: %w", err)
	}
	defer f.Close()
	return parse(f)
}

func toDBEntries(entries []lexicon.Entry) []db.LexiconEntry {
	out := make([]db.LexiconEntry, len(entries))
	for i, e := range entries {
		out[i] = db.LexiconEntry{Word: e.Word, Score: e.Score}
	}
	return out
}

// Features runs the three derivation stages in dependency order.
func (p Pipeline) Features(ctx context.Context) error {
	ctx, span := tracer.Start(ctx, "Features")
	defer span.End()

	if err := p.features.TokenizePending(ctx); err != nil {
		return err
	}
	if err := p.features.StructuralPending(ctx); err != nil {
		return err
	}
	return p.features.Aggregate(ctx)
}

// Run executes one whole pass: crawl n random books, clean, crawl their
// reviews, derive features. Every stage picks up exactly where the last
// run stopped.
func (p Pipeline) Run(ctx context.Context, crawlCount int) error {
	ctx, span := tracer.Start(ctx, "Run")
	defer span.End()

	if crawlCount > 0 {
		if _, err := p.catalog.CrawlRandom(ctx, crawlCount); err != nil {
			return err
		}
	}
	if err := p.CleanBookInfo(ctx); err != nil {
		return err
	}
	if err := p.reviews.CrawlEligible(ctx); err != nil {
		return err
	}
	return p.Features(ctx)
}
