// Package features derives the per-review sentiment feature table from
// stored review text and the four lexicons.
package features

import (
	"context"
	"database/sql"
	"log/slog"

	"github.com/nkessler2000/sentiment-analysis/lib/textutil"
	"github.com/nkessler2000/sentiment-analysis/services/bookdata/db"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

var tracer = otel.Tracer("services/features")

type Options struct {
	// MinTokens is the quality gate: reviews with fewer tokens
	// contribute no word rows. Zero means 30.
	MinTokens int
}

type Service struct {
	database  *sql.DB
	qry       *db.Queries
	minTokens int
}

func NewService(database *sql.DB, opts Options) Service {
	if opts.MinTokens == 0 {
		opts.MinTokens = 30
	}
	return Service{
		database:  database,
		qry:       db.New(database),
		minTokens: opts.MinTokens,
	}
}

// TokenizePending projects each unprocessed review into one row per
// token. Reviews below the token-count gate contribute no rows; having
// nothing downstream, they stay pending and are re-skipped on every run.
func (s Service) TokenizePending(ctx context.Context) error {
	ctx, span := tracer.Start(ctx, "TokenizePending")
	defer span.End()

	pending, err := s.qry.ReviewsPendingTokenization(ctx)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return err
	}
	span.SetAttributes(attribute.Int("pending", len(pending)))

	tokenized := 0
	for _, review := range pending {
		words := textutil.WordsToList(review.ReviewText)
		if len(words) < s.minTokens {
			continue
		}

		tx, err := s.database.BeginTx(ctx, nil)
		if err != nil {
			return err
		}
		txqry := s.qry.WithTx(tx)
		failed := false
		for _, word := range words {
			if err := txqry.InsertReviewWord(ctx, review.ReviewID, word); err != nil {
				slog.WarnContext(ctx, "failed to insert review word",
					"review_id", review.ReviewID, "err", err)
				failed = true
				break
			}
		}
		if failed {
			tx.Rollback()
			continue
		}
		if err := tx.Commit(); err != nil {
			return err
		}
		tokenized++
	}

	slog.InfoContext(ctx, "tokenized reviews",
		"pending", len(pending), "tokenized", tokenized)
	return nil
}

// StructuralPending computes the shouting signals for each unprocessed
// review. These are derived once and never recomputed.
func (s Service) StructuralPending(ctx context.Context) error {
	ctx, span := tracer.Start(ctx, "StructuralPending")
	defer span.End()

	pending, err := s.qry.ReviewsPendingStructuralFeatures(ctx)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return err
	}

	for _, review := range pending {
		err := s.qry.InsertReviewFeatures(ctx, db.ReviewFeatures{
			ReviewID:         review.ReviewID,
			CapWordsCount:    textutil.CapWordCount(review.ReviewText),
			ExclamationCount: textutil.ExclamationCount(review.ReviewText),
		})
		if err != nil {
			slog.WarnContext(ctx, "failed to insert structural features",
				"review_id", review.ReviewID, "err", err)
		}
	}

	slog.InfoContext(ctx, "computed structural features", "pending", len(pending))
	return nil
}

// Aggregate joins every stored token against the four lexicons and
// rebuilds the whole review_stats table. The table is fully derived, so
// replacing it wholesale keeps it consistent under lexicon reloads.
func (s Service) Aggregate(ctx context.Context) error {
	ctx, span := tracer.Start(ctx, "Aggregate")
	defer span.End()

	sentiments, err := s.qry.WordSentiments(ctx)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return err
	}

	aggs := map[int64]*reviewAgg{}
	for _, w := range sentiments {
		agg := aggs[w.ReviewID]
		if agg == nil {
			agg = &reviewAgg{}
			aggs[w.ReviewID] = agg
		}
		agg.wordCount++
		agg.afinn.add(w.Afinn, true)
		agg.bing.add(w.Bing, false)
		agg.mpqa.add(w.Mpqa, false)
		agg.inq.add(w.Inq, false)
	}

	ratings, err := s.qry.RatingsForTokenizedReviews(ctx)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return err
	}

	structural, err := s.qry.StructuralFeatures(ctx)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return err
	}
	structuralByID := make(map[int64]db.ReviewFeatures, len(structural))
	for _, f := range structural {
		structuralByID[f.ReviewID] = f
	}

	stats := make([]db.ReviewStats, 0, len(ratings))
	for _, r := range ratings {
		agg := aggs[r.ReviewID]
		if agg == nil {
			continue
		}

		row := db.ReviewStats{
			ReviewID:  r.ReviewID,
			Rating:    r.Rating,
			WordCount: agg.wordCount,
			Afinn:     agg.afinn.stats(agg.wordCount),
			Bing:      agg.bing.stats(agg.wordCount),
			Mpqa:      agg.mpqa.stats(agg.wordCount),
			Inq:       agg.inq.stats(agg.wordCount),
		}
		if f, ok := structuralByID[r.ReviewID]; ok {
			row.CapWordsCount = sql.NullInt64{Int64: f.CapWordsCount, Valid: true}
			row.ExclamationCount = sql.NullInt64{Int64: f.ExclamationCount, Valid: true}
			if agg.wordCount > 0 {
				row.AllCapsDensity = sql.NullFloat64{
					Float64: float64(f.CapWordsCount) / float64(agg.wordCount),
					Valid:   true,
				}
			}
		}
		stats = append(stats, row)
	}

	tx, err := s.database.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()
	if err := s.qry.WithTx(tx).ReplaceReviewStats(ctx, stats); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return err
	}
	if err := tx.Commit(); err != nil {
		return err
	}

	slog.InfoContext(ctx, "rebuilt review stats", "reviews", len(stats))
	return nil
}
