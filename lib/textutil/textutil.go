package textutil

import (
	"regexp"
	"strconv"
	"strings"
)

var annotationRegex = regexp.MustCompile(`[(\[].*[)\]]`)
var nonDigitRegex = regexp.MustCompile(`[^\d]`)

// WordsToList splits review text into lowercase tokens. Everything except
// ASCII letters, apostrophe, hyphen and space is dropped before splitting,
// empty tokens are discarded.
func WordsToList(text string) []string {
	var kept strings.Builder
	for _, c := range text {
		if (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z') ||
			c == '\'' || c == '-' || c == ' ' {
			kept.WriteRune(c)
		}
	}

	var words []string
	for _, w := range strings.Split(kept.String(), " ") {
		if w == "" {
			continue
		}
		words = append(words, strings.ToLower(w))
	}
	return words
}

// CapWordCount counts space-delimited runs of uppercase letters longer than
// one character, a shouting signal in review text.
func CapWordCount(text string) int64 {
	var kept strings.Builder
	for _, c := range text {
		if (c >= 'A' && c <= 'Z') || c == ' ' {
			kept.WriteRune(c)
		}
	}

	var count int64
	for _, w := range strings.Split(kept.String(), " ") {
		if len(w) > 1 {
			count++
		}
	}
	return count
}

func ExclamationCount(text string) int64 {
	return int64(strings.Count(text, "!"))
}

// StripControl removes characters below code point 32.
func StripControl(text string) string {
	var out strings.Builder
	for _, c := range text {
		if c >= 32 {
			out.WriteRune(c)
		}
	}
	return out.String()
}

// StripAnnotation removes a parenthesized or bracketed series suffix from a
// title, e.g. "Dune (Dune Chronicles, #1)" -> "Dune".
func StripAnnotation(title string) string {
	return strings.TrimSpace(annotationRegex.ReplaceAllString(title, ""))
}

// CleanCount parses a count that may carry thousands separators or
// surrounding text, e.g. "1,402,712 ratings". Returns false when no digits
// remain after cleaning.
func CleanCount(text string) (int64, bool) {
	digits := nonDigitRegex.ReplaceAllString(text, "")
	if digits == "" {
		return 0, false
	}
	n, err := strconv.ParseInt(digits, 10, 64)
	if err != nil {
		return 0, false
	}
	return n, true
}
