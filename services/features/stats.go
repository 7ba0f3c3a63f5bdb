package features

import (
	"database/sql"
	"sort"

	"github.com/nkessler2000/sentiment-analysis/services/bookdata/db"
)

// reviewAgg accumulates one review's token matches across the four
// lexicons.
type reviewAgg struct {
	wordCount int64
	afinn     lexAgg
	bing      lexAgg
	mpqa      lexAgg
	inq       lexAgg
}

// lexAgg accumulates one lexicon's matches for a single review. AFINN
// carries signed scores, the other three are binary (1 positive, 0
// negative).
type lexAgg struct {
	scores []float64
	pos    int64
	neg    int64
}

func (a *lexAgg) add(score sql.NullInt64, signed bool) {
	if !score.Valid {
		return
	}
	a.scores = append(a.scores, float64(score.Int64))
	if signed {
		switch {
		case score.Int64 > 0:
			a.pos++
		case score.Int64 < 0:
			a.neg++
		}
		return
	}
	if score.Int64 == 1 {
		a.pos++
	} else {
		a.neg++
	}
}

func (a *lexAgg) stats(wordCount int64) db.LexiconStats {
	// total is positive+negative, so a zero-scored match contributes to
	// mean/median/sum but not to the ratio denominators
	out := db.LexiconStats{
		PosCount:   a.pos,
		NegCount:   a.neg,
		TotalCount: a.pos + a.neg,
	}
	for _, s := range a.scores {
		out.Sum += s
	}

	if len(a.scores) > 0 {
		out.Mean = sql.NullFloat64{
			Float64: out.Sum / float64(len(a.scores)),
			Valid:   true,
		}
		out.Median = sql.NullFloat64{Float64: median(a.scores), Valid: true}
	}
	if out.TotalCount > 0 {
		out.PosRatio = sql.NullFloat64{
			Float64: float64(a.pos) / float64(out.TotalCount),
			Valid:   true,
		}
		out.NegRatio = sql.NullFloat64{
			Float64: float64(a.neg) / float64(out.TotalCount),
			Valid:   true,
		}
	}
	if wordCount > 0 {
		out.PosDensity = sql.NullFloat64{
			Float64: float64(a.pos) / float64(wordCount),
			Valid:   true,
		}
		out.NegDensity = sql.NullFloat64{
			Float64: float64(a.neg) / float64(wordCount),
			Valid:   true,
		}
		out.WordsRatio = sql.NullFloat64{
			Float64: out.Sum / float64(wordCount),
			Valid:   true,
		}
	}
	return out
}

func median(values []float64) float64 {
	sorted := make([]float64, len(values))
	copy(sorted, values)
	sort.Float64s(sorted)
	mid := len(sorted) / 2
	if len(sorted)%2 == 1 {
		return sorted[mid]
	}
	return (sorted[mid-1] + sorted[mid]) / 2
}
