package lexicon

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestParseAFINN(t *testing.T) {
	input := "abandon\t-2\namazing\t4\n\nlol\t3\n"
	entries, err := ParseAFINN(strings.NewReader(input))
	require.NoError(t, err)
	require.Equal(t, []Entry{
		{Word: "abandon", Score: -2},
		{Word: "amazing", Score: 4},
		{Word: "lol", Score: 3},
	}, entries)
}

func TestParseAFINNMalformed(t *testing.T) {
	_, err := ParseAFINN(strings.NewReader("word-without-score\n"))
	require.Error(t, err)
}

func TestParseOpinion(t *testing.T) {
	input := strings.Join([]string{
		"; comment header line",
		";",
		"",
		"great",
		"joyful",
	}, "\n")
	entries, err := ParseOpinion(strings.NewReader(input), 1)
	require.NoError(t, err)
	require.Equal(t, []Entry{
		{Word: "great", Score: 1},
		{Word: "joyful", Score: 1},
	}, entries)

	entries, err = ParseOpinion(strings.NewReader("awful\n"), 0)
	require.NoError(t, err)
	require.Equal(t, []Entry{{Word: "awful", Score: 0}}, entries)
}

func TestParseMPQA(t *testing.T) {
	input := strings.Join([]string{
		"type=weaksubj len=1 word1=abandon pos1=verb stemmed1=y priorpolarity=negative",
		"type=strongsubj len=1 word1=admire pos1=verb stemmed1=y priorpolarity=positive",
	}, "\n")
	entries, err := ParseMPQA(strings.NewReader(input))
	require.NoError(t, err)
	require.Equal(t, []Entry{
		{Word: "abandon", Score: 0},
		{Word: "admire", Score: 1},
	}, entries)
}

func TestParseInquirer(t *testing.T) {
	input := strings.Join([]string{
		"Entry,Source,Positiv,Negativ",
		"ABOUND#1,H4Lvd,Positiv,",
		"ABOUND#2,H4Lvd,Positiv,",
		"ABANDON,H4Lvd,,Negativ",
		"THE,H4Lvd,,",
	}, "\n")
	entries, err := ParseInquirer(strings.NewReader(input))
	require.NoError(t, err)
	require.Equal(t, []Entry{
		{Word: "abound", Score: 1},
		{Word: "abandon", Score: 0},
	}, entries)
}
