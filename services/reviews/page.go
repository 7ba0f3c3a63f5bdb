package reviews

import (
	"strconv"
	"strings"
	"time"

	"github.com/nkessler2000/sentiment-analysis/lib/textutil"

	"github.com/PuerkitoBio/goquery"
)

// reviewDateLayout matches the "Mon DD, YYYY" rendering on review lists.
const reviewDateLayout = "Jan 2, 2006"

// reviewListPage wraps one parsed page of a book's review listing. The
// four column extractors walk the page independently; the service joins
// them positionally and rejects the page if the lengths disagree.
type reviewListPage struct {
	doc *goquery.Document
}

func (p reviewListPage) container() *goquery.Selection {
	return p.doc.Find("#bookReviews")
}

func (p reviewListPage) IDs() []int64 {
	var ids []int64
	p.container().Find(`div.review[itemprop="reviews"]`).Each(func(_ int, review *goquery.Selection) {
		attr, ok := review.Attr("id")
		if !ok {
			return
		}
		id, err := strconv.ParseInt(strings.TrimPrefix(attr, "review_"), 10, 64)
		if err != nil {
			return
		}
		ids = append(ids, id)
	})
	return ids
}

// Dates returns one entry per review; an unparsable date is kept as the
// zero time so the positional join with the other columns stays aligned.
func (p reviewListPage) Dates() []time.Time {
	var dates []time.Time
	p.container().Find("a.reviewDate").Each(func(_ int, a *goquery.Selection) {
		parsed, err := time.Parse(reviewDateLayout, strings.TrimSpace(a.Text()))
		if err != nil {
			dates = append(dates, time.Time{})
			return
		}
		dates = append(dates, parsed)
	})
	return dates
}

func (p reviewListPage) Ratings() []int64 {
	var ratings []int64
	p.container().Find("div.reviewHeader").Each(func(_ int, header *goquery.Selection) {
		text := strings.TrimSpace(header.Text())
		switch {
		case strings.Contains(text, "added it"):
			ratings = append(ratings, 0)
		case strings.Contains(text, "rated it"):
			label, _ := header.Find("span.staticStars span").First().Attr("title")
			ratings = append(ratings, RatingFromLabel(label))
		default:
			ratings = append(ratings, 0)
		}
	})
	return ratings
}

func (p reviewListPage) Texts() []string {
	var texts []string
	p.container().Find("div.reviewText").Each(func(_ int, div *goquery.Selection) {
		texts = append(texts, textutil.StripControl(strings.TrimSpace(div.Text())))
	})
	return texts
}

// RatingFromLabel converts a star-rating label into a 0-5 score. "added
// it" carries no star data and any unrecognized label also maps to 0.
func RatingFromLabel(label string) int64 {
	switch label {
	case "did not like it":
		return 1
	case "it was ok":
		return 2
	case "liked it":
		return 3
	case "really liked it":
		return 4
	case "it was amazing":
		return 5
	default:
		return 0
	}
}
