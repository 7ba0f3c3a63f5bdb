package db

import "database/sql"

// BookInfo is one crawl attempt's metadata record. Text fields hold ""
// when the source page lacked them; genre and shelf columns stay NULL
// unless the enrichment gate passed during the crawl.
type BookInfo struct {
	ID               int64
	Title            string
	OrigTitle        string
	Author           string
	Published        sql.NullString
	Language         string
	AvgRating        sql.NullFloat64
	RatingsCount     sql.NullInt64
	ReviewCount      sql.NullInt64
	Genre1           sql.NullString
	Genre2           sql.NullString
	Genre3           sql.NullString
	ToRead           sql.NullInt64
	CurrentlyReading sql.NullInt64
	Favorites        sql.NullInt64
}

// ShelfEngagement is the dedup key for the cleaning pass: the sum of the
// three shelf counters, NULLs counting as zero.
func (b BookInfo) ShelfEngagement() int64 {
	return b.ToRead.Int64 + b.CurrentlyReading.Int64 + b.Favorites.Int64
}

type CleanBook struct {
	ID               int64
	Title            string
	Author           string
	Published        sql.NullString
	Language         string
	AvgRating        sql.NullFloat64
	RatingsCount     sql.NullInt64
	ReviewCount      sql.NullInt64
	Genre1           sql.NullString
	Genre2           sql.NullString
	Genre3           sql.NullString
	ToRead           sql.NullInt64
	CurrentlyReading sql.NullInt64
	Favorites        sql.NullInt64
}

func (b CleanBook) ShelfEngagement() int64 {
	return b.ToRead.Int64 + b.CurrentlyReading.Int64 + b.Favorites.Int64
}

type Review struct {
	ReviewID   int64
	BookID     int64
	ReviewDate sql.NullString
	Rating     int64
	ReviewText sql.NullString
}

// CrawlCandidate is a cleaned book whose reviews have not been ingested.
type CrawlCandidate struct {
	ID          int64
	ReviewCount int64
}

// PendingReview is a stored review not yet processed by a derivation
// stage.
type PendingReview struct {
	ReviewID   int64
	ReviewText string
}

type ReviewFeatures struct {
	ReviewID         int64
	CapWordsCount    int64
	ExclamationCount int64
}

type LexiconEntry struct {
	Word  string
	Score int64
}

// WordSentiment is one review token joined against all four lexicons;
// an invalid column means that lexicon does not know the word.
type WordSentiment struct {
	ReviewID int64
	Afinn    sql.NullInt64
	Bing     sql.NullInt64
	Mpqa     sql.NullInt64
	Inq      sql.NullInt64
}

type ReviewRating struct {
	ReviewID int64
	Rating   int64
}

// LexiconStats is the per-lexicon slice of a review's feature vector.
type LexiconStats struct {
	Mean       sql.NullFloat64
	Median     sql.NullFloat64
	Sum        float64
	PosCount   int64
	NegCount   int64
	TotalCount int64
	PosRatio   sql.NullFloat64
	NegRatio   sql.NullFloat64
	PosDensity sql.NullFloat64
	NegDensity sql.NullFloat64
	WordsRatio sql.NullFloat64
}

// ReviewStats is one row of the wide feature table.
type ReviewStats struct {
	ReviewID         int64
	Rating           int64
	WordCount        int64
	Afinn            LexiconStats
	Bing             LexiconStats
	Mpqa             LexiconStats
	Inq              LexiconStats
	CapWordsCount    sql.NullInt64
	ExclamationCount sql.NullInt64
	AllCapsDensity   sql.NullFloat64
}
