// Package catalog crawls book metadata pages into the book_info table.
package catalog

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"strconv"

	"github.com/nkessler2000/sentiment-analysis/services/bookdata/db"

	"github.com/nkessler2000/sentiment-analysis/lib/fetch"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

var tracer = otel.Tracer("services/catalog")

// ErrInvalidSelector marks a selector that is neither numeric nor the
// random sentinel. It is never retried.
var ErrInvalidSelector = errors.New("catalog: invalid selector")

// RandomSelector requests an arbitrary catalog page instead of a
// specific id.
const RandomSelector = "random"

type Options struct {
	// BaseURL of the catalog site, without a trailing slash.
	BaseURL string
	// ShelfThreshold gates the extra genre/shelf fetches: they run only
	// when a book's ratings_count exceeds it. Zero means 200.
	ShelfThreshold int64
}

type Service struct {
	qry            *db.Queries
	fetch          *fetch.Client
	baseURL        string
	shelfThreshold int64
}

func NewService(database *sql.DB, fetcher *fetch.Client, opts Options) Service {
	if opts.BaseURL == "" {
		opts.BaseURL = "https://www.goodreads.com"
	}
	if opts.ShelfThreshold == 0 {
		opts.ShelfThreshold = 200
	}
	return Service{
		qry:            db.New(database),
		fetch:          fetcher,
		baseURL:        opts.BaseURL,
		shelfThreshold: opts.ShelfThreshold,
	}
}

func (s Service) buildURL(selector string) (string, error) {
	if selector == RandomSelector {
		return s.baseURL + "/book/random", nil
	}
	if _, err := strconv.ParseInt(selector, 10, 64); err == nil {
		return s.baseURL + "/book/show/" + selector, nil
	}
	return "", fmt.Errorf("%w: %q", ErrInvalidSelector, selector)
}

// FetchBook crawls one book page. The selector is a numeric catalog id or
// RandomSelector. Genre and shelf enrichment runs only past the
// ratings-count gate; the shelf page's pagination is followed at most
// once, and a count found on the first page is never overwritten.
func (s Service) FetchBook(ctx context.Context, selector string) (db.BookInfo, error) {
	ctx, span := tracer.Start(ctx, "FetchBook", trace.WithAttributes(
		attribute.String("selector", selector),
	))
	defer span.End()

	pageURL, err := s.buildURL(selector)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return db.BookInfo{}, err
	}

	doc, err := s.fetch.Get(ctx, pageURL)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return db.BookInfo{}, err
	}
	page := bookPage{doc: doc}

	id, ok := page.ID()
	if !ok {
		// the page meta tag is the only source of the id for random
		// selectors
		if parsed, err := strconv.ParseInt(selector, 10, 64); err == nil {
			id = parsed
		} else {
			err := fmt.Errorf("catalog: no book id on page %s", pageURL)
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
			return db.BookInfo{}, err
		}
	}

	book := db.BookInfo{
		ID:        id,
		Title:     page.Title(),
		OrigTitle: page.OriginalTitle(),
		Author:    page.Author(),
		Language:  page.Language(),
	}
	if published := page.PublishedDate(); published != "" {
		book.Published = sql.NullString{String: published, Valid: true}
	}
	if rating, ok := page.AvgRating(); ok {
		book.AvgRating = sql.NullFloat64{Float64: rating, Valid: true}
	}
	if count, ok := page.RatingsCount(); ok {
		book.RatingsCount = sql.NullInt64{Int64: count, Valid: true}
	}
	if count, ok := page.ReviewCount(); ok {
		book.ReviewCount = sql.NullInt64{Int64: count, Valid: true}
	}

	if book.RatingsCount.Valid && book.RatingsCount.Int64 > s.shelfThreshold {
		genres := page.TopGenres()
		if genres[0] != "" {
			book.Genre1 = sql.NullString{String: genres[0], Valid: true}
		}
		if genres[1] != "" {
			book.Genre2 = sql.NullString{String: genres[1], Valid: true}
		}
		if genres[2] != "" {
			book.Genre3 = sql.NullString{String: genres[2], Valid: true}
		}

		toRead, reading, favorites, err := s.fetchShelves(ctx, id)
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
			return db.BookInfo{}, err
		}
		book.ToRead = toRead
		book.CurrentlyReading = reading
		book.Favorites = favorites
	}

	return book, nil
}

func (s Service) fetchShelves(ctx context.Context, id int64) (toRead, reading, favorites sql.NullInt64, err error) {
	shelfURL := fmt.Sprintf("%s/book/shelves/%d", s.baseURL, id)

	doc, err := s.fetch.Get(ctx, shelfURL)
	if err != nil {
		return toRead, reading, favorites, err
	}
	page := shelfPage{doc: doc}
	toRead = nullCount(page.ToRead())
	reading = nullCount(page.CurrentlyReading())
	favorites = nullCount(page.Favorites())

	if toRead.Valid && reading.Valid && favorites.Valid {
		return toRead, reading, favorites, nil
	}
	next := page.NextPageURL()
	if next == "" {
		return toRead, reading, favorites, nil
	}
	nextURL, resolveErr := s.resolve(shelfURL, next)
	if resolveErr != nil {
		return toRead, reading, favorites, nil
	}

	doc, err = s.fetch.Get(ctx, nextURL)
	if err != nil {
		return toRead, reading, favorites, err
	}
	page = shelfPage{doc: doc}
	// first-found wins: only fill counts still missing
	if !toRead.Valid {
		toRead = nullCount(page.ToRead())
	}
	if !reading.Valid {
		reading = nullCount(page.CurrentlyReading())
	}
	if !favorites.Valid {
		favorites = nullCount(page.Favorites())
	}
	return toRead, reading, favorites, nil
}

func (s Service) resolve(base, ref string) (string, error) {
	baseURL, err := url.Parse(base)
	if err != nil {
		return "", err
	}
	refURL, err := url.Parse(ref)
	if err != nil {
		return "", err
	}
	return baseURL.ResolveReference(refURL).String(), nil
}

func nullCount(n int64, ok bool) sql.NullInt64 {
	return sql.NullInt64{Int64: n, Valid: ok}
}

func (s Service) SaveBook(ctx context.Context, book db.BookInfo) error {
	return s.qry.InsertBookInfo(ctx, book)
}

// CrawlRandom fetches n random book pages. Individual failures are logged
// and skipped; the batch always runs to completion unless the context is
// canceled.
func (s Service) CrawlRandom(ctx context.Context, n int) (saved int, err error) {
	ctx, span := tracer.Start(ctx, "CrawlRandom", trace.WithAttributes(
		attribute.Int("count", n),
	))
	defer span.End()

	for i := 0; i < n; i++ {
		if ctx.Err() != nil {
			return saved, ctx.Err()
		}

		book, err := s.FetchBook(ctx, RandomSelector)
		if err != nil {
			slog.WarnContext(ctx, "failed to fetch random book", "err", err)
			continue
		}
		if err := s.SaveBook(ctx, book); err != nil {
			slog.WarnContext(ctx, "failed to save book", "id", book.ID, "err", err)
			continue
		}
		saved++
		slog.InfoContext(ctx, "saved book", "id", book.ID, "title", book.Title,
			"progress", fmt.Sprintf("%d/%d", i+1, n))
	}
	return saved, nil
}

// FetchMissing re-crawls a failed id list, re-driving the shrinking
// remainder until it converges to empty. Two consecutive passes that
// recover nothing abandon the loop and return the ids that still fail;
// cancellation is the other way out.
func (s Service) FetchMissing(ctx context.Context, ids []int64) ([]int64, error) {
	ctx, span := tracer.Start(ctx, "FetchMissing", trace.WithAttributes(
		attribute.Int("count", len(ids)),
	))
	defer span.End()

	pending := ids
	stalled := 0
	for len(pending) > 0 {
		failed, err := s.fetchMissingPass(ctx, pending)
		if err != nil {
			return failed, err
		}
		if len(failed) == len(pending) {
			// a stalled list gets one more pass, transient failures often
			// clear on the retry
			stalled++
			if stalled >= 2 {
				slog.WarnContext(ctx, "no progress on missing books, giving up",
					"remaining", len(failed))
				return failed, nil
			}
		} else {
			stalled = 0
		}
		slog.InfoContext(ctx, "missing book pass complete",
			"recovered", len(pending)-len(failed), "remaining", len(failed))
		pending = failed
	}
	return nil, nil
}

func (s Service) fetchMissingPass(ctx context.Context, ids []int64) ([]int64, error) {
	var failed []int64
	for _, id := range ids {
		if ctx.Err() != nil {
			return failed, ctx.Err()
		}

		book, err := s.FetchBook(ctx, strconv.FormatInt(id, 10))
		if err != nil {
			slog.WarnContext(ctx, "failed to fetch book", "id", id, "err", err)
			failed = append(failed, id)
			continue
		}
		if err := s.SaveBook(ctx, book); err != nil {
			slog.WarnContext(ctx, "failed to save book", "id", id, "err", err)
			failed = append(failed, id)
		}
	}
	return failed, nil
}
