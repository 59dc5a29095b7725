package matcher

import "strings"

var numberWords = map[string]int{
	"zero": 0, "one": 1, "two": 2, "three": 3, "four": 4, "five": 5,
	"six": 6, "seven": 7, "eight": 8, "nine": 9, "ten": 10,
	"eleven": 11, "twelve": 12, "thirteen": 13, "fourteen": 14, "fifteen": 15,
	"sixteen": 16, "seventeen": 17, "eighteen": 18, "nineteen": 19,
	"twenty": 20, "thirty": 30, "forty": 40, "fifty": 50,
	"sixty": 60, "seventy": 70, "eighty": 80, "ninety": 90,
}

var scaleWords = map[string]int{
	"thousand": 1_000,
	"million":  1_000_000,
	"billion":  1_000_000_000,
}

// WordsToNumber converts an English numeral such as "twenty-one" or
// "one hundred and five" to its value. Digits are not accepted.
func WordsToNumber(s string) (int, bool) {
	words := strings.Fields(strings.ReplaceAll(normalize(s), "-", " "))

	total, current := 0, 0
	seen := false
	for _, w := range words {
		if w == "and" {
			continue
		}
		if v, ok := numberWords[w]; ok {
			current += v
		} else if w == "hundred" {
			if current == 0 {
				current = 1
			}
			current *= 100
		} else if scale, ok := scaleWords[w]; ok {
			if current == 0 {
				current = 1
			}
			total += current * scale
			current = 0
		} else {
			return 0, false
		}
		seen = true
	}
	if !seen {
		return 0, false
	}
	return total + current, true
}
