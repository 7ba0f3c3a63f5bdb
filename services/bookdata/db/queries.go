package db

import (
	"context"
	"fmt"
)

const insertBookInfo = `
INSERT INTO book_info (
	id, title, orig_title, author, published, language, avg_rating,
	ratings_count, review_count, genre_1, genre_2, genre_3,
	to_read, currently_reading, favorites
) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
`

// InsertBookInfo appends one crawl attempt. A later crawl of the same id
// inserts a new row; deduplication is the cleaning pass's job.
func (q *Queries) InsertBookInfo(ctx context.Context, arg BookInfo) error {
	_, err := q.db.ExecContext(ctx, insertBookInfo,
		arg.ID, arg.Title, arg.OrigTitle, arg.Author, arg.Published,
		arg.Language, arg.AvgRating, arg.RatingsCount, arg.ReviewCount,
		arg.Genre1, arg.Genre2, arg.Genre3,
		arg.ToRead, arg.CurrentlyReading, arg.Favorites,
	)
	return err
}

// The eligibility queries below all follow the same shape: a max-key
// watermark as a fast path, plus an anti-join against the downstream
// table as the authoritative check. Keys are not strictly increasing
// across crawl batches, so the watermark alone is not enough.

const eligibleBookInfo = `
SELECT id, title, orig_title, author, published, language, avg_rating,
	ratings_count, review_count, genre_1, genre_2, genre_3,
	to_read, currently_reading, favorites
FROM book_info
WHERE (id > (SELECT IFNULL(MAX(id), 0) FROM book_info_clean)
		OR id NOT IN (SELECT id FROM book_info_clean))
	AND review_count >= ?
ORDER BY id
`

// EligibleBookInfo returns raw metadata rows not yet represented in
// book_info_clean with at least minReviews reviews.
func (q *Queries) EligibleBookInfo(ctx context.Context, minReviews int64) ([]BookInfo, error) {
	rows, err := q.db.QueryContext(ctx, eligibleBookInfo, minReviews)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []BookInfo
	for rows.Next() {
		var b BookInfo
		err := rows.Scan(
			&b.ID, &b.Title, &b.OrigTitle, &b.Author, &b.Published,
			&b.Language, &b.AvgRating, &b.RatingsCount, &b.ReviewCount,
			&b.Genre1, &b.Genre2, &b.Genre3,
			&b.ToRead, &b.CurrentlyReading, &b.Favorites,
		)
		if err != nil {
			return nil, err
		}
		out = append(out, b)
	}
	return out, rows.Err()
}

const getCleanBookByTitle = `
SELECT id, title, author, published, language, avg_rating,
	ratings_count, review_count, genre_1, genre_2, genre_3,
	to_read, currently_reading, favorites
FROM book_info_clean
WHERE title = ?
`

func (q *Queries) GetCleanBookByTitle(ctx context.Context, title string) (CleanBook, error) {
	var b CleanBook
	err := q.db.QueryRowContext(ctx, getCleanBookByTitle, title).Scan(
		&b.ID, &b.Title, &b.Author, &b.Published, &b.Language,
		&b.AvgRating, &b.RatingsCount, &b.ReviewCount,
		&b.Genre1, &b.Genre2, &b.Genre3,
		&b.ToRead, &b.CurrentlyReading, &b.Favorites,
	)
	return b, err
}

const insertCleanBook = `
INSERT INTO book_info_clean (
	id, title, author, published, language, avg_rating,
	ratings_count, review_count, genre_1, genre_2, genre_3,
	to_read, currently_reading, favorites
) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
`

func (q *Queries) InsertCleanBook(ctx context.Context, arg CleanBook) error {
	_, err := q.db.ExecContext(ctx, insertCleanBook,
		arg.ID, arg.Title, arg.Author, arg.Published, arg.Language,
		arg.AvgRating, arg.RatingsCount, arg.ReviewCount,
		arg.Genre1, arg.Genre2, arg.Genre3,
		arg.ToRead, arg.CurrentlyReading, arg.Favorites,
	)
	return err
}

func (q *Queries) DeleteCleanBook(ctx context.Context, id int64) error {
	_, err := q.db.ExecContext(ctx, `DELETE FROM book_info_clean WHERE id = ?`, id)
	return err
}

const listCleanBooks = `
SELECT id, title, author, published, language, avg_rating,
	ratings_count, review_count, genre_1, genre_2, genre_3,
	to_read, currently_reading, favorites
FROM book_info_clean
ORDER BY title, id
`

func (q *Queries) ListCleanBooks(ctx context.Context) ([]CleanBook, error) {
	rows, err := q.db.QueryContext(ctx, listCleanBooks)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []CleanBook
	for rows.Next() {
		var b CleanBook
		err := rows.Scan(
			&b.ID, &b.Title, &b.Author, &b.Published, &b.Language,
			&b.AvgRating, &b.RatingsCount, &b.ReviewCount,
			&b.Genre1, &b.Genre2, &b.Genre3,
			&b.ToRead, &b.CurrentlyReading, &b.Favorites,
		)
		if err != nil {
			return nil, err
		}
		out = append(out, b)
	}
	return out, rows.Err()
}

const eligibleForReviewCrawl = `
SELECT id, IFNULL(review_count, 0)
FROM book_info_clean
WHERE id > (SELECT IFNULL(MAX(book_id), 0) FROM reviews)
	OR id NOT IN (SELECT DISTINCT book_id FROM reviews)
ORDER BY id
`

// EligibleForReviewCrawl returns cleaned books with no ingested reviews.
func (q *Queries) EligibleForReviewCrawl(ctx context.Context) ([]CrawlCandidate, error) {
	rows, err := q.db.QueryContext(ctx, eligibleForReviewCrawl)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []CrawlCandidate
	for rows.Next() {
		var c CrawlCandidate
		if err := rows.Scan(&c.ID, &c.ReviewCount); err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

const insertReview = `
INSERT OR IGNORE INTO reviews (review_id, book_id, review_date, rating, review_text)
VALUES (?, ?, ?, ?, ?)
`

// InsertReview stores one review. Reviews are immutable; a duplicate id is
// ignored rather than updated.
func (q *Queries) InsertReview(ctx context.Context, arg Review) error {
	_, err := q.db.ExecContext(ctx, insertReview,
		arg.ReviewID, arg.BookID, arg.ReviewDate, arg.Rating, arg.ReviewText)
	return err
}

const reviewsPendingTokenization = `
SELECT review_id, review_text FROM reviews
WHERE (review_id > (SELECT IFNULL(MAX(review_id), 0) FROM review_words)
		OR review_id NOT IN (SELECT DISTINCT review_id FROM review_words))
	AND review_text IS NOT NULL
ORDER BY review_id
`

func (q *Queries) ReviewsPendingTokenization(ctx context.Context) ([]PendingReview, error) {
	return q.pendingReviews(ctx, reviewsPendingTokenization)
}

const reviewsPendingFeatures = `
SELECT review_id, review_text FROM reviews
WHERE (review_id > (SELECT IFNULL(MAX(review_id), 0) FROM review_features)
		OR review_id NOT IN (SELECT review_id FROM review_features))
	AND review_text IS NOT NULL
ORDER BY review_id
`

func (q *Queries) ReviewsPendingStructuralFeatures(ctx context.Context) ([]PendingReview, error) {
	return q.pendingReviews(ctx, reviewsPendingFeatures)
}

func (q *Queries) pendingReviews(ctx context.Context, query string) ([]PendingReview, error) {
	rows, err := q.db.QueryContext(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []PendingReview
	for rows.Next() {
		var r PendingReview
		if err := rows.Scan(&r.ReviewID, &r.ReviewText); err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

func (q *Queries) InsertReviewWord(ctx context.Context, reviewID int64, word string) error {
	_, err := q.db.ExecContext(ctx,
		`INSERT INTO review_words (review_id, word) VALUES (?, ?)`, reviewID, word)
	return err
}

const insertReviewFeatures = `
INSERT INTO review_features (review_id, cap_words_count, exclamation_count)
VALUES (?, ?, ?)
`

func (q *Queries) InsertReviewFeatures(ctx context.Context, arg ReviewFeatures) error {
	_, err := q.db.ExecContext(ctx, insertReviewFeatures,
		arg.ReviewID, arg.CapWordsCount, arg.ExclamationCount)
	return err
}

// ReplaceAfinnLexicon and friends reload a lexicon table in full;
// reference data is replace-only.

func (q *Queries) ReplaceAfinnLexicon(ctx context.Context, entries []LexiconEntry) error {
	return q.replaceLexicon(ctx, "afinn_lexicon", "score", entries)
}

func (q *Queries) ReplaceBingLexicon(ctx context.Context, entries []LexiconEntry) error {
	return q.replaceLexicon(ctx, "bing_lexicon", "sentiment", entries)
}

func (q *Queries) ReplaceMpqaLexicon(ctx context.Context, entries []LexiconEntry) error {
	return q.replaceLexicon(ctx, "mpqa_lexicon", "polarity", entries)
}

func (q *Queries) ReplaceInquirerLexicon(ctx context.Context, entries []LexiconEntry) error {
	return q.replaceLexicon(ctx, "inquirer_lexicon", "polarity", entries)
}

func (q *Queries) replaceLexicon(ctx context.Context, table, valueColumn string, entries []LexiconEntry) error {
	if _, err := q.db.ExecContext(ctx, fmt.Sprintf("DELETE FROM %s", table)); err != nil {
		return err
	}
	insert := fmt.Sprintf("INSERT INTO %s (word, %s) VALUES (?, ?)", table, valueColumn)
	for _, e := range entries {
		if _, err := q.db.ExecContext(ctx, insert, e.Word, e.Score); err != nil {
			return err
		}
	}
	return nil
}

const wordSentiments = `
SELECT rw.review_id,
	a.score AS afinn_score,
	o.sentiment AS bing_sentiment,
	m.polarity AS mpqa_polarity,
	i.polarity AS inq_polarity
FROM review_words rw
LEFT JOIN afinn_lexicon a ON a.word = rw.word
LEFT JOIN bing_lexicon o ON o.word = rw.word
LEFT JOIN mpqa_lexicon m ON m.word = rw.word
LEFT JOIN inquirer_lexicon i ON i.word = rw.word
ORDER BY rw.review_id
`

// WordSentiments left-joins every stored token against all four lexicons.
// Tokens unknown to a lexicon come back NULL for that column.
func (q *Queries) WordSentiments(ctx context.Context) ([]WordSentiment, error) {
	rows, err := q.db.QueryContext(ctx, wordSentiments)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []WordSentiment
	for rows.Next() {
		var w WordSentiment
		if err := rows.Scan(&w.ReviewID, &w.Afinn, &w.Bing, &w.Mpqa, &w.Inq); err != nil {
			return nil, err
		}
		out = append(out, w)
	}
	return out, rows.Err()
}

const ratingsForTokenizedReviews = `
SELECT review_id, IFNULL(rating, 0) FROM reviews
WHERE review_id IN (SELECT DISTINCT review_id FROM review_words)
ORDER BY review_id
`

func (q *Queries) RatingsForTokenizedReviews(ctx context.Context) ([]ReviewRating, error) {
	rows, err := q.db.QueryContext(ctx, ratingsForTokenizedReviews)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []ReviewRating
	for rows.Next() {
		var r ReviewRating
		if err := rows.Scan(&r.ReviewID, &r.Rating); err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

const structuralFeatures = `
SELECT review_id, IFNULL(cap_words_count, 0), IFNULL(exclamation_count, 0)
FROM review_features
`

func (q *Queries) StructuralFeatures(ctx context.Context) ([]ReviewFeatures, error) {
	rows, err := q.db.QueryContext(ctx, structuralFeatures)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []ReviewFeatures
	for rows.Next() {
		var f ReviewFeatures
		if err := rows.Scan(&f.ReviewID, &f.CapWordsCount, &f.ExclamationCount); err != nil {
			return nil, err
		}
		out = append(out, f)
	}
	return out, rows.Err()
}

const insertReviewStats = `
INSERT INTO review_stats (
	review_id, rating, word_count,
	afinn_mean, bing_mean, mpqa_mean, inq_mean,
	afinn_median, bing_median, mpqa_median, inq_median,
	afinn_sum, bing_sum, mpqa_sum, inq_sum,
	pos_afinn_count, neg_afinn_count, pos_bing_count, neg_bing_count,
	pos_mpqa_count, neg_mpqa_count, pos_inq_count, neg_inq_count,
	total_afinn_count, total_bing_count, total_mpqa_count, total_inq_count,
	pos_afinn_ratio, pos_bing_ratio, pos_mpqa_ratio, pos_inq_ratio,
	neg_afinn_ratio, neg_bing_ratio, neg_mpqa_ratio, neg_inq_ratio,
	pos_afinn_density, pos_bing_density, pos_mpqa_density, pos_inq_density,
	neg_afinn_density, neg_bing_density, neg_mpqa_density, neg_inq_density,
	afinn_words_ratio, bing_words_ratio, mpqa_words_ratio, inq_words_ratio,
	cap_words_count, exclamation_count, all_caps_density
) VALUES (
	?, ?, ?,
	?, ?, ?, ?,
	?, ?, ?, ?,
	?, ?, ?, ?,
	?, ?, ?, ?,
	?, ?, ?, ?,
	?, ?, ?, ?,
	?, ?, ?, ?,
	?, ?, ?, ?,
	?, ?, ?, ?,
	?, ?, ?, ?,
	?, ?, ?, ?,
	?, ?, ?
)
`

// ReplaceReviewStats rebuilds the whole feature table. Callers run it
// inside a transaction so readers never observe a half-replaced table.
func (q *Queries) ReplaceReviewStats(ctx context.Context, stats []ReviewStats) error {
	if _, err := q.db.ExecContext(ctx, `DELETE FROM review_stats`); err != nil {
		return err
	}
	for _, s := range stats {
		_, err := q.db.ExecContext(ctx, insertReviewStats,
			s.ReviewID, s.Rating, s.WordCount,
			s.Afinn.Mean, s.Bing.Mean, s.Mpqa.Mean, s.Inq.Mean,
			s.Afinn.Median, s.Bing.Median, s.Mpqa.Median, s.Inq.Median,
			s.Afinn.Sum, s.Bing.Sum, s.Mpqa.Sum, s.Inq.Sum,
			s.Afinn.PosCount, s.Afinn.NegCount, s.Bing.PosCount, s.Bing.NegCount,
			s.Mpqa.PosCount, s.Mpqa.NegCount, s.Inq.PosCount, s.Inq.NegCount,
			s.Afinn.TotalCount, s.Bing.TotalCount, s.Mpqa.TotalCount, s.Inq.TotalCount,
			s.Afinn.PosRatio, s.Bing.PosRatio, s.Mpqa.PosRatio, s.Inq.PosRatio,
			s.Afinn.NegRatio, s.Bing.NegRatio, s.Mpqa.NegRatio, s.Inq.NegRatio,
			s.Afinn.PosDensity, s.Bing.PosDensity, s.Mpqa.PosDensity, s.Inq.PosDensity,
			s.Afinn.NegDensity, s.Bing.NegDensity, s.Mpqa.NegDensity, s.Inq.NegDensity,
			s.Afinn.WordsRatio, s.Bing.WordsRatio, s.Mpqa.WordsRatio, s.Inq.WordsRatio,
			s.CapWordsCount, s.ExclamationCount, s.AllCapsDensity,
		)
		if err != nil {
			return err
		}
	}
	return nil
}
