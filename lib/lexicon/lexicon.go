// Package lexicon parses the four word-polarity reference files into
// word->score entries. Three sources are binary (positive=1, negative=0),
// AFINN carries an integer intensity score.
package lexicon

import (
	"bufio"
	"encoding/csv"
	"fmt"
	"io"
	"regexp"
	"strconv"
	"strings"

	"golang.org/x/text/encoding/charmap"
)

type Entry struct {
	Word  string
	Score int64
}

// ParseAFINN reads the AFINN-111 word list: one tab-separated
// "word<TAB>score" pair per line.
func ParseAFINN(r io.Reader) ([]Entry, error) {
	var entries []Entry
	scanner := bufio.NewScanner(r)
	line := 0
	for scanner.Scan() {
		line++
		text := strings.TrimRight(scanner.Text(), "\r\n")
		if text == "" {
			continue
		}
		word, scoreText, found := strings.Cut(text, "\t")
		if !found {
			return nil, fmt.Errorf("lexicon: afinn line %d: missing tab separator", line)
		}
		score, err := strconv.ParseInt(strings.TrimSpace(scoreText), 10, 64)
		if err != nil {
			return nil, fmt.Errorf("lexicon: afinn line %d: %w", line, err)
		}
		entries = append(entries, Entry{Word: word, Score: score})
	}
	return entries, scanner.Err()
}

// ParseOpinion reads one half of the Bing opinion lexicon (the
// positive-words or negative-words file). The files are latin-1 encoded
// with a ";"-prefixed comment header. Every surviving word is assigned the
// given polarity (1 for the positive file, 0 for the negative file).
func ParseOpinion(r io.Reader, polarity int64) ([]Entry, error) {
	var entries []Entry
	scanner := bufio.NewScanner(charmap.ISO8859_1.NewDecoder().Reader(r))
	for scanner.Scan() {
		word := strings.TrimSpace(scanner.Text())
		if word == "" || strings.HasPrefix(word, ";") {
			continue
		}
		entries = append(entries, Entry{Word: word, Score: polarity})
	}
	return entries, scanner.Err()
}

var mpqaWord = regexp.MustCompile(`word1=(\S+)`)
var mpqaPolarity = regexp.MustCompile(`priorpolarity=(\S+)`)

// ParseMPQA reads the MPQA subjectivity clues file, one
// "key=value ..." record per line. priorpolarity=positive maps to 1,
// everything else to 0.
func ParseMPQA(r io.Reader) ([]Entry, error) {
	var entries []Entry
	scanner := bufio.NewScanner(r)
	line := 0
	for scanner.Scan() {
		line++
		text := scanner.Text()
		if strings.TrimSpace(text) == "" {
			continue
		}
		word := mpqaWord.FindStringSubmatch(text)
		polarity := mpqaPolarity.FindStringSubmatch(text)
		if word == nil || polarity == nil {
			return nil, fmt.Errorf("lexicon: mpqa line %d: missing word1 or priorpolarity field", line)
		}
		score := int64(0)
		if polarity[1] == "positive" {
			score = 1
		}
		entries = append(entries, Entry{Word: word[1], Score: score})
	}
	return entries, scanner.Err()
}

var inquirerSense = regexp.MustCompile(`#\d+$`)

// ParseInquirer reads a CSV export of the Harvard General Inquirer
// spreadsheet. Entries are lowercased and sense suffixes ("ABOUND#1")
// stripped; words marked neither Positiv nor Negativ are dropped, and the
// first occurrence of a word wins.
func ParseInquirer(r io.Reader) ([]Entry, error) {
	reader := csv.NewReader(r)
	header, err := reader.Read()
	if err != nil {
		return nil, fmt.Errorf("lexicon: inquirer header: %w", err)
	}

	entryCol, posCol, negCol := -1, -1, -1
	for i, name := range header {
		switch strings.TrimSpace(name) {
		case "Entry":
			entryCol = i
		case "Positiv":
			posCol = i
		case "Negativ":
			negCol = i
		}
	}
	if entryCol < 0 || posCol < 0 || negCol < 0 {
		return nil, fmt.Errorf("lexicon: inquirer header: missing Entry, Positiv or Negativ column")
	}

	seen := map[string]bool{}
	var entries []Entry
	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("lexicon: inquirer: %w", err)
		}

		var score int64
		switch {
		case record[posCol] != "":
			score = 1
		case record[negCol] != "":
			score = 0
		default:
			continue
		}

		word := strings.ToLower(strings.TrimSpace(record[entryCol]))
		word = inquirerSense.ReplaceAllString(word, "")
		if word == "" || seen[word] {
			continue
		}
		seen[word] = true
		entries = append(entries, Entry{Word: word, Score: score})
	}
	return entries, nil
}
