package htmlutil

import (
	"regexp"
	"strings"
	"testing"

	"github.com/PuerkitoBio/goquery"
	"github.com/stretchr/testify/require"
)

func TestGetText(t *testing.T) {
	page := `<html><body><a href="#"><span>1,200</span> <b>people</b></a></body></html>`

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(page))
	require.NoError(t, err)

	anchor := doc.Find("a").First()
	require.Len(t, anchor.Nodes, 1)
	require.Equal(t, "1,200 people", GetText(anchor.Nodes[0]))
}

func TestCleanText(t *testing.T) {
	cases := []struct {
		input    string
		expected string
	}{
		{"  Dune  ", "Dune"},
		{"a \n\n b", "a b"},
		{"plain", "plain"},
	}
	for _, test := range cases {
		require.Equal(t, test.expected, CleanText(test.input))
	}
}

func TestAnchorTextByHref(t *testing.T) {
	page := `<html><body>
		<a rel="nofollow" href="/shelf/show?shelf=to-read">1,200 people</a>
		<a rel="nofollow" href="/shelf/show?shelf=favorites">88 people</a>
	</body></html>`

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(page))
	require.NoError(t, err)

	text := AnchorTextByHref(doc.Selection, regexp.MustCompile(`shelf=favorites$`))
	require.Equal(t, "88 people", text)

	text = AnchorTextByHref(doc.Selection, regexp.MustCompile(`shelf=read$`))
	require.Equal(t, "", text)
}
