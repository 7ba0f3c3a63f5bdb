package catalog

import (
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/nkessler2000/sentiment-analysis/lib/htmlutil"
	"github.com/nkessler2000/sentiment-analysis/lib/textutil"

	"github.com/PuerkitoBio/goquery"
)

// bookPage wraps a parsed catalog book page. Every extraction method is
// fault-isolated: a missing or malformed field yields its zero value and
// never affects the other fields.
type bookPage struct {
	doc *goquery.Document
}

var idPrefix = regexp.MustCompile(`^.*/book/show/`)

func (p bookPage) ID() (int64, bool) {
	content, ok := p.doc.Find(`meta[property="al:ios:url"]`).Attr("content")
	if !ok {
		return 0, false
	}
	id, err := strconv.ParseInt(strings.TrimSpace(idPrefix.ReplaceAllString(content, "")), 10, 64)
	if err != nil {
		return 0, false
	}
	return id, true
}

func (p bookPage) Title() string {
	return textutil.StripAnnotation(htmlutil.CleanText(p.doc.Find("#bookTitle").First().Text()))
}

func (p bookPage) OriginalTitle() string {
	row := p.doc.Find("#bookDataBox > div:nth-of-type(1)")
	label := htmlutil.CleanText(row.Find("div.infoBoxRowTitle").First().Text())
	if label != "Original Title" {
		return ""
	}
	return htmlutil.CleanText(row.Find("div.infoBoxRowItem").First().Text())
}

func (p bookPage) Author() string {
	return htmlutil.CleanText(p.doc.Find("#bookAuthors > span:nth-of-type(2) > a > span").First().Text())
}

func (p bookPage) Language() string {
	return htmlutil.CleanText(p.doc.Find(`#bookDataBox div.infoBoxRowItem[itemprop="inLanguage"]`).First().Text())
}

var publishedNoise = regexp.MustCompile(`[()]|first published`)
var publishedSuffix = regexp.MustCompile(`Published|by[\s\S]*$`)

var ordinalSuffix = regexp.MustCompile(`(\d+)(st|nd|rd|th)`)

// PublishedDate prefers the "first published" annotation over the edition
// date, and returns "" when neither parses.
func (p bookPage) PublishedDate() string {
	raw := htmlutil.CleanText(p.doc.Find("#details > div:nth-of-type(2) > nobr").First().Text())
	if raw != "" {
		raw = strings.TrimSpace(publishedNoise.ReplaceAllString(raw, ""))
	} else {
		raw = htmlutil.CleanText(p.doc.Find("#details > div:nth-of-type(2)").First().Text())
		raw = strings.TrimSpace(publishedSuffix.ReplaceAllString(raw, ""))
	}
	if raw == "" {
		return ""
	}

	raw = ordinalSuffix.ReplaceAllString(raw, "$1")
	for _, layout := range []string{"January 2 2006", "January 2, 2006", "January 2006", "2006"} {
		parsed, err := time.Parse(layout, raw)
		if err == nil {
			return parsed.Format("2006-01-02")
		}
	}
	return ""
}

func (p bookPage) AvgRating() (float64, bool) {
	text := htmlutil.CleanText(p.doc.Find("#bookMeta span.value.rating span").First().Text())
	if text == "" {
		text = htmlutil.CleanText(p.doc.Find(`#bookMeta [itemprop="ratingValue"]`).First().Text())
	}
	rating, err := strconv.ParseFloat(text, 64)
	if err != nil {
		return 0, false
	}
	return rating, true
}

func (p bookPage) RatingsCount() (int64, bool) {
	title, ok := p.doc.Find("span.votes.value-title").First().Attr("title")
	if !ok {
		return 0, false
	}
	return textutil.CleanCount(title)
}

func (p bookPage) ReviewCount() (int64, bool) {
	title, ok := p.doc.Find("span.count.value-title").First().Attr("title")
	if !ok {
		return 0, false
	}
	return textutil.CleanCount(title)
}

// TopGenres returns up to three community genres; missing positions are
// empty strings.
func (p bookPage) TopGenres() [3]string {
	var genres [3]string
	p.doc.Find("div.rightContainer a.actionLinkLite.bookPageGenreLink").
		EachWithBreak(func(i int, link *goquery.Selection) bool {
			if i > 2 {
				return false
			}
			genres[i] = htmlutil.CleanText(link.Text())
			return true
		})
	return genres
}

// shelfPage wraps a parsed shelf-counts page.
type shelfPage struct {
	doc *goquery.Document
}

var toReadShelf = regexp.MustCompile(`shelf=to-read$`)
var currentlyReadingShelf = regexp.MustCompile(`shelf=currently-reading$`)
var favoritesShelf = regexp.MustCompile(`shelf=favorites$`)

func (p shelfPage) shelfCount(pattern *regexp.Regexp) (int64, bool) {
	text := htmlutil.AnchorTextByHref(p.doc.Selection, pattern)
	if text == "" {
		return 0, false
	}
	return textutil.CleanCount(text)
}

func (p shelfPage) ToRead() (int64, bool) {
	return p.shelfCount(toReadShelf)
}

func (p shelfPage) CurrentlyReading() (int64, bool) {
	return p.shelfCount(currentlyReadingShelf)
}

func (p shelfPage) Favorites() (int64, bool) {
	return p.shelfCount(favoritesShelf)
}

// NextPageURL returns the pagination link, or "" on the last page.
func (p shelfPage) NextPageURL() string {
	href, ok := p.doc.Find("a.next_page").First().Attr("href")
	if !ok {
		return ""
	}
	return href
}
