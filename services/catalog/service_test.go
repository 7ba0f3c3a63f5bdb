package catalog

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/nkessler2000/sentiment-analysis/lib/fetch"
	"github.com/nkessler2000/sentiment-analysis/lib/testutil"
	"github.com/nkessler2000/sentiment-analysis/services/bookdata/db"

	"github.com/stretchr/testify/require"
)

const bookPageHTML = `<html><head>
<meta property="al:ios:url" content="com.goodreads.https://book/show/234225"/>
</head><body>
<h1 id="bookTitle"> Dune (Dune Chronicles, #1) </h1>
<div id="bookAuthors"><span>By</span><span><a href="/author/1"><span>Frank Herbert</span></a></span></div>
<div id="bookMeta">
	<span class="value rating"><span>4.25</span></span>
	<span class="votes value-title" title="1,402,712"></span>
	<span class="count value-title" title="49,457"></span>
</div>
<div id="bookDataBox">
	<div>
		<div class="infoBoxRowTitle">Original Title</div>
		<div class="infoBoxRowItem">Dune</div>
	</div>
	<div>
		<div class="infoBoxRowTitle">Edition Language</div>
		<div class="infoBoxRowItem" itemprop="inLanguage">English</div>
	</div>
</div>
<div id="details">
	<div>Hardcover</div>
	<div>Published 1990 <nobr>(first published June 1, 1965)</nobr></div>
</div>
<div class="rightContainer">
	<a class="actionLinkLite bookPageGenreLink" href="/genres/science-fiction">Science Fiction</a>
	<a class="actionLinkLite bookPageGenreLink" href="/genres/fantasy">Fantasy</a>
	<a class="actionLinkLite bookPageGenreLink" href="/genres/classics">Classics</a>
	<a class="actionLinkLite bookPageGenreLink" href="/genres/fiction">Fiction</a>
</div>
</body></html>`

// same shape but below the enrichment gate on ratings while far above it
// on reviews
const quietBookPageHTML = `<html><head>
<meta property="al:ios:url" content="com.goodreads.https://book/show/999"/>
</head><body>
<h1 id="bookTitle">Quiet Book</h1>
<div id="bookMeta">
	<span class="votes value-title" title="150"></span>
	<span class="count value-title" title="999,999"></span>
</div>
</body></html>`

const shelfPage1HTML = `<html><body>
<a rel="nofollow" href="/shelf/users?shelf=to-read">1,500 people</a>
<a rel="nofollow" href="/shelf/users?shelf=currently-reading">321 people</a>
<a class="next_page" href="/book/shelves/234225?page=2">next</a>
</body></html>`

const shelfPage2HTML = `<html><body>
<a rel="nofollow" href="/shelf/users?shelf=to-read">9,999 people</a>
<a rel="nofollow" href="/shelf/users?shelf=favorites">88 people</a>
</body></html>`

func newTestSite(t *testing.T) *httptest.Server {
	mux := http.NewServeMux()
	mux.HandleFunc("/book/show/234225", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, bookPageHTML)
	})
	mux.HandleFunc("/book/random", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, bookPageHTML)
	})
	mux.HandleFunc("/book/show/999", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, quietBookPageHTML)
	})
	mux.HandleFunc("/book/shelves/234225", func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("page") == "2" {
			fmt.Fprint(w, shelfPage2HTML)
			return
		}
		fmt.Fprint(w, shelfPage1HTML)
	})

	server := httptest.NewServer(mux)
	t.Cleanup(server.Close)
	return server
}

func newTestService(t *testing.T, baseURL string) Service {
	setup, cleanup := testutil.SetupService(t, testutil.ServiceParams{
		Name:     "services/catalog",
		DbSchema: db.Schema,
	})
	t.Cleanup(cleanup)

	fetcher := fetch.NewClient(fetch.Options{Backoff: time.Millisecond})
	return NewService(setup.DB, fetcher, Options{BaseURL: baseURL})
}

func TestFetchBook(t *testing.T) {
	server := newTestSite(t)
	service := newTestService(t, server.URL)

	book, err := service.FetchBook(context.Background(), "234225")
	require.NoError(t, err)

	require.Equal(t, int64(234225), book.ID)
	require.Equal(t, "Dune", book.Title)
	require.Equal(t, "Dune", book.OrigTitle)
	require.Equal(t, "Frank Herbert", book.Author)
	require.Equal(t, "English", book.Language)
	require.Equal(t, "1965-06-01", book.Published.String)
	require.Equal(t, 4.25, book.AvgRating.Float64)
	require.Equal(t, int64(1402712), book.RatingsCount.Int64)
	require.Equal(t, int64(49457), book.ReviewCount.Int64)

	require.Equal(t, "Science Fiction", book.Genre1.String)
	require.Equal(t, "Fantasy", book.Genre2.String)
	require.Equal(t, "Classics", book.Genre3.String)
}

func TestFetchBookShelfPagination(t *testing.T) {
	server := newTestSite(t)
	service := newTestService(t, server.URL)

	book, err := service.FetchBook(context.Background(), "234225")
	require.NoError(t, err)

	// first page had to-read and currently-reading; favorites only
	// appeared on page two. First-found wins: to-read keeps the page-one
	// value even though page two repeats it.
	require.Equal(t, int64(1500), book.ToRead.Int64)
	require.Equal(t, int64(321), book.CurrentlyReading.Int64)
	require.Equal(t, int64(88), book.Favorites.Int64)
}

// The enrichment gate is keyed to ratings_count, so a book with few
// ratings gets no genre or shelf enrichment no matter how many reviews
// it claims.
func TestEnrichmentGateKeyedToRatingsCount(t *testing.T) {
	server := newTestSite(t)
	service := newTestService(t, server.URL)

	book, err := service.FetchBook(context.Background(), "999")
	require.NoError(t, err)

	require.Equal(t, int64(150), book.RatingsCount.Int64)
	require.Equal(t, int64(999999), book.ReviewCount.Int64)
	require.False(t, book.Genre1.Valid)
	require.False(t, book.ToRead.Valid)
	require.False(t, book.CurrentlyReading.Valid)
	require.False(t, book.Favorites.Valid)
}

func TestFetchBookRandomSelector(t *testing.T) {
	server := newTestSite(t)
	service := newTestService(t, server.URL)

	book, err := service.FetchBook(context.Background(), RandomSelector)
	require.NoError(t, err)
	// the id comes from the page itself
	require.Equal(t, int64(234225), book.ID)
}

func TestFetchBookInvalidSelector(t *testing.T) {
	server := newTestSite(t)
	service := newTestService(t, server.URL)

	_, err := service.FetchBook(context.Background(), "not-a-book")
	require.True(t, errors.Is(err, ErrInvalidSelector))
}

func TestFetchMissing(t *testing.T) {
	server := newTestSite(t)
	service := newTestService(t, server.URL)

	failed, err := service.FetchMissing(context.Background(), []int64{234225, 31337})
	require.NoError(t, err)
	// 31337 404s on every pass, so once it is the only id left the loop
	// makes no progress and gives up
	require.Equal(t, []int64{31337}, failed)
}

func TestFetchMissingConverges(t *testing.T) {
	var attempts atomic.Int64
	mux := http.NewServeMux()
	mux.HandleFunc("/book/show/777", func(w http.ResponseWriter, r *http.Request) {
		// transient failure: the first attempt errors, the retry succeeds
		if attempts.Add(1) == 1 {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		fmt.Fprint(w, quietBookPageHTML)
	})
	server := httptest.NewServer(mux)
	t.Cleanup(server.Close)

	service := newTestService(t, server.URL)

	failed, err := service.FetchMissing(context.Background(), []int64{777})
	require.NoError(t, err)
	require.Empty(t, failed)
	require.EqualValues(t, 2, attempts.Load())
}
