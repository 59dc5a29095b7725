package matcher

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCloseEnough(t *testing.T) {
	tests := []struct {
		name      string
		answer    string
		candidate string
		overrides map[string]string
		want      bool
	}{
		{name: "reflexive after trim and case fold", answer: "Quebec", candidate: " quebec ", want: true},
		{name: "identical", answer: "Ontario", candidate: "Ontario", want: true},
		{name: "typo in long answer", answer: "pretzel", candidate: "pretxel", want: true},
		{name: "digit typo in long answer", answer: "Ontari0", candidate: "Ontario", want: true},
		{name: "different place", answer: "Ottowa", candidate: "Ontario", want: false},
		{name: "short strings never fuzzy match", answer: "foo", candidate: "fob", want: false},
		{name: "short substring with close length", answer: "dog", candidate: "dogs", want: true},
		{name: "short substring of much longer word", answer: "cat", candidate: "category", want: false},
		{name: "long substring", answer: "new york", candidate: "new york city", want: true},
		{name: "token order ignored", answer: "york new", candidate: "new york", want: true},
		{name: "integers never fuzzy match", answer: "4", candidate: "14", want: false},
		{name: "integers never fuzzy match reversed", answer: "14", candidate: "4", want: false},
		{name: "word number against digits", answer: "four", candidate: "4", want: true},
		{name: "digits against word number", answer: "4", candidate: "four", want: true},
		{name: "integer candidate rejects other spelled-out values", answer: "fourteen", candidate: "4", want: false},
		{name: "hyphenated word number", answer: "Twenty-One", candidate: "21", want: true},
		{name: "word number mismatch", answer: "five", candidate: "4", want: false},
		{
			name:      "override synonym",
			answer:    "Big Apple",
			candidate: "New York",
			overrides: map[string]string{"New York": "big apple"},
			want:      true,
		},
		{
			name:      "override for other answer does not apply",
			answer:    "Gotham",
			candidate: "New York",
			overrides: map[string]string{"New York": "big apple"},
			want:      false,
		},
		{
			name:      "override lets a numeric candidate match",
			answer:    "a dozen",
			candidate: "12",
			overrides: map[string]string{"12": "A Dozen"},
			want:      true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, CloseEnough(tt.answer, tt.candidate, tt.overrides))
		})
	}
}

func TestCloseEnoughNumericCandidateIgnoresSimilarity(t *testing.T) {
	for _, pair := range [][2]string{{"100", "1000"}, {"1999", "1998"}, {"12", "21"}, {"7", "77"}} {
		assert.False(t, CloseEnough(pair[0], pair[1], nil), "%q vs %q", pair[0], pair[1])
	}
}

func TestRatio(t *testing.T) {
	assert.Equal(t, 100, Ratio("abc", "abc"))
	assert.Equal(t, 67, Ratio("foo", "fob"))
	assert.Equal(t, 75, Ratio("dog", "dogs"))
	assert.Equal(t, 38, Ratio("cat", "category"))
	assert.Equal(t, 86, Ratio("pretzel", "pretxel"))
	assert.Equal(t, 0, Ratio("abc", "xyz"))
}

func TestPartialRatio(t *testing.T) {
	assert.Equal(t, 100, PartialRatio("cat", "category"))
	assert.Equal(t, 100, PartialRatio("category", "cat"))
	assert.Equal(t, 100, PartialRatio("york new", "new york"))
	assert.Equal(t, 86, PartialRatio("pretzel", "pretxel"))
	assert.Equal(t, 0, PartialRatio("", "anything"))
	assert.Equal(t, 0, PartialRatio("4", "four"))
}

func TestWordsToNumber(t *testing.T) {
	tests := []struct {
		in     string
		want   int
		wantOK bool
	}{
		{"four", 4, true},
		{"Seven", 7, true},
		{" zero ", 0, true},
		{"twenty-one", 21, true},
		{"ninety nine", 99, true},
		{"one hundred and five", 105, true},
		{"hundred", 100, true},
		{"two thousand", 2000, true},
		{"three million four hundred", 3000400, true},
		{"4", 0, false},
		{"pretzel", 0, false},
		{"four score", 0, false},
		{"and", 0, false},
		{"", 0, false},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, ok := WordsToNumber(tt.in)
			assert.Equal(t, tt.wantOK, ok)
			if tt.wantOK {
				assert.Equal(t, tt.want, got)
			}
		})
	}
}
