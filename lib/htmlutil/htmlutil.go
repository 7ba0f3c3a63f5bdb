package htmlutil

import (
	"bytes"
	"regexp"
	"strings"
	"unicode"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html"
)

func GetText(node *html.Node) string {
	var buffer bytes.Buffer
	getTextRecursive(node, &buffer)
	return buffer.String()
}

func getTextRecursive(node *html.Node, buffer *bytes.Buffer) {
	if node == nil {
		return
	}
	if node.Type == html.TextNode {
		buffer.WriteString(node.Data)
		return
	}
	child := node.FirstChild
	for child != nil {
		getTextRecursive(child, buffer)
		child = child.NextSibling
	}
}

var innerWhitespace = regexp.MustCompile(`\s\s+`)

// CleanText trims a scraped text node and collapses runs of inner
// whitespace, dropping non-printable characters.
func CleanText(s string) string {
	var printable strings.Builder
	for _, c := range s {
		if unicode.IsPrint(c) {
			printable.WriteRune(c)
		}
	}
	out := strings.Trim(printable.String(), " \t\n")
	return innerWhitespace.ReplaceAllString(out, " ")
}

// AnchorTextByHref returns the text of the first anchor in sel whose href
// attribute matches pattern, or "" when none matches.
func AnchorTextByHref(sel *goquery.Selection, pattern *regexp.Regexp) string {
	var out string
	sel.Find("a").EachWithBreak(func(_ int, a *goquery.Selection) bool {
		href, ok := a.Attr("href")
		if !ok || !pattern.MatchString(href) {
			return true
		}
		out = CleanText(GetText(a.Nodes[0]))
		return false
	})
	return out
}
