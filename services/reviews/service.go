// Package reviews paginates book review listings into the reviews table.
package reviews

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"

	"github.com/nkessler2000/sentiment-analysis/lib/fetch"
	"github.com/nkessler2000/sentiment-analysis/services/bookdata/db"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

var tracer = otel.Tracer("services/reviews")

// ErrPageMismatch marks a review page whose extracted columns cannot be
// joined into rows. The book is logged for manual re-drive and the batch
// moves on.
var ErrPageMismatch = errors.New("reviews: extracted column lengths disagree")

// the review listing serves a fixed 30 reviews per page
const pageSize = 30

type Options struct {
	// BaseURL of the catalog site, without a trailing slash.
	BaseURL string
	// MaxPerBook caps how many reviews are requested per book. Zero
	// means 300.
	MaxPerBook int64
	// FailureLog is the path of the append-only list of permanently
	// failed book ids. Empty disables the log.
	FailureLog string
}

type Service struct {
	database   *sql.DB
	qry        *db.Queries
	fetch      *fetch.Client
	baseURL    string
	maxPerBook int64
	failureLog string
}

func NewService(database *sql.DB, fetcher *fetch.Client, opts Options) Service {
	if opts.BaseURL == "" {
		opts.BaseURL = "https://www.goodreads.com"
	}
	if opts.MaxPerBook == 0 {
		opts.MaxPerBook = 300
	}
	return Service{
		database:   database,
		qry:        db.New(database),
		fetch:      fetcher,
		baseURL:    opts.BaseURL,
		maxPerBook: opts.MaxPerBook,
		failureLog: opts.FailureLog,
	}
}

// FetchReviews pulls ceil(target/30) pages of bookID's review listing and
// returns the concatenated rows in canonical column order.
func (s Service) FetchReviews(ctx context.Context, bookID, target int64) ([]db.Review, error) {
	ctx, span := tracer.Start(ctx, "FetchReviews", trace.WithAttributes(
		attribute.Int64("book_id", bookID),
		attribute.Int64("target", target),
	))
	defer span.End()

	pages := (target + pageSize - 1) / pageSize
	var out []db.Review
	for pageNum := int64(1); pageNum <= pages; pageNum++ {
		pageURL := fmt.Sprintf("%s/book/reviews/%d?page=%d&sort=default&text_only=true",
			s.baseURL, bookID, pageNum)

		doc, err := s.fetch.Get(ctx, pageURL)
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
			return nil, err
		}

		rows, err := parsePage(reviewListPage{doc: doc}, bookID)
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
			return nil, fmt.Errorf("%w: book %d page %d", err, bookID, pageNum)
		}
		out = append(out, rows...)
	}
	return out, nil
}

func parsePage(page reviewListPage, bookID int64) ([]db.Review, error) {
	ids := page.IDs()
	dates := page.Dates()
	ratings := page.Ratings()
	texts := page.Texts()

	if len(dates) != len(ids) || len(ratings) != len(ids) || len(texts) != len(ids) {
		return nil, ErrPageMismatch
	}

	rows := make([]db.Review, 0, len(ids))
	for i, id := range ids {
		row := db.Review{
			ReviewID: id,
			BookID:   bookID,
			Rating:   ratings[i],
		}
		if !dates[i].IsZero() {
			row.ReviewDate = sql.NullString{String: dates[i].Format("2006-01-02"), Valid: true}
		}
		if texts[i] != "" {
			row.ReviewText = sql.NullString{String: texts[i], Valid: true}
		}
		rows = append(rows, row)
	}
	return rows, nil
}

// CrawlEligible ingests reviews for every cleaned book that has none yet.
// A book that fails permanently is appended to the failure log and the
// batch continues.
func (s Service) CrawlEligible(ctx context.Context) error {
	ctx, span := tracer.Start(ctx, "CrawlEligible")
	defer span.End()

	candidates, err := s.qry.EligibleForReviewCrawl(ctx)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return err
	}
	slog.InfoContext(ctx, "crawling reviews", "eligible_books", len(candidates))

	for _, candidate := range candidates {
		if ctx.Err() != nil {
			return ctx.Err()
		}

		target := candidate.ReviewCount
		if target > s.maxPerBook {
			target = s.maxPerBook
		}

		rows, err := s.FetchReviews(ctx, candidate.ID, target)
		if err != nil {
			slog.WarnContext(ctx, "review ingestion failed",
				"book_id", candidate.ID, "err", err)
			s.logFailure(ctx, candidate.ID)
			continue
		}
		if err := s.saveReviews(ctx, rows); err != nil {
			slog.WarnContext(ctx, "failed to save reviews",
				"book_id", candidate.ID, "err", err)
			s.logFailure(ctx, candidate.ID)
			continue
		}
		slog.InfoContext(ctx, "ingested reviews",
			"book_id", candidate.ID, "count", len(rows))
	}
	return nil
}

func (s Service) saveReviews(ctx context.Context, rows []db.Review) error {
	tx, err := s.database.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	txqry := s.qry.WithTx(tx)
	for _, row := range rows {
		if err := txqry.InsertReview(ctx, row); err != nil {
			return err
		}
	}
	return tx.Commit()
}

func (s Service) logFailure(ctx context.Context, bookID int64) {
	if s.failureLog == "" {
		return
	}
	f, err := os.OpenFile(s.failureLog, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		slog.ErrorContext(ctx, "failed to open failure log",
			"path", s.failureLog, "err", err)
		return
	}
	defer f.Close()
	fmt.Fprintf(f, "%d\n", bookID)
}
