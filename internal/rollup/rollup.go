// Package rollup merges raw free-text answers into canonical coded answers.
//
// Answers are visited from most to least popular so the most common
// spelling of an answer becomes its code. Each answer either follows a human
// correction, joins the first existing code it is close enough to, or
// becomes a new code of its own.
package rollup

import (
	"sort"

	"github.com/quizitive/commonology-sub000/internal/matcher"
	"github.com/quizitive/commonology-sub000/internal/models"
)

// AnswerCount is the number of responses sharing one raw answer.
type AnswerCount struct {
	Answer string
	Count  int
}

// Result is the outcome of one rollup pass over a question's answers.
type Result struct {
	// Codes lists coded answers in the order they were created.
	Codes []string
	// Counts is the number of responses rolled into each code.
	Counts map[string]int
	// Groups lists the raw answers rolled into each code, in visit order.
	Groups map[string][]string
}

// Lookup inverts Groups into raw answer -> coded answer.
func (r *Result) Lookup() map[string]string {
	lookup := make(map[string]string)
	for code, members := range r.Groups {
		for _, raw := range members {
			lookup[raw] = code
		}
	}
	return lookup
}

// ValueCounts counts identical answers and orders them by count descending.
// Ties are broken by answer descending so the order never depends on input
// order.
func ValueCounts(answers []string) []AnswerCount {
	counts := make(map[string]int)
	for _, a := range answers {
		counts[a]++
	}

	out := make([]AnswerCount, 0, len(counts))
	for a, n := range counts {
		out = append(out, AnswerCount{Answer: a, Count: n})
	}
	SortCounts(out)
	return out
}

// SortCounts orders counts in place the way ProcessRollups expects.
func SortCounts(counts []AnswerCount) {
	sort.Slice(counts, func(i, j int) bool {
		if counts[i].Count != counts[j].Count {
			return counts[i].Count > counts[j].Count
		}
		return counts[i].Answer > counts[j].Answer
	})
}

// ProcessRollups runs a single forward pass over counts, which must already
// be sorted (see SortCounts). corrections maps raw answers to the coded
// answer a human chose for them; entries for answers not present are
// ignored.
func ProcessRollups(counts []AnswerCount, corrections map[string]string) *Result {
	res := &Result{
		Codes:  make([]string, 0, len(counts)),
		Counts: make(map[string]int),
		Groups: make(map[string][]string),
	}
	resolved := make(map[string]string, len(counts))

	for _, ac := range counts {
		if code, ok := resolved[ac.Answer]; ok {
			res.Counts[code] += ac.Count
			continue
		}

		code, ok := corrections[ac.Answer]
		if !ok || code == "" {
			code = ac.Answer
			for _, existing := range res.Codes {
				if matcher.CloseEnough(ac.Answer, existing, corrections) {
					code = existing
					break
				}
			}
		}

		if _, exists := res.Groups[code]; !exists {
			res.Codes = append(res.Codes, code)
		}
		res.Counts[code] += ac.Count
		res.Groups[code] = append(res.Groups[code], ac.Answer)
		resolved[ac.Answer] = code
	}

	return res
}

// BuildAnswerCodes rolls up every question's responses. Removed responses
// do not count toward popularity, but their raw strings are still coded so
// later un-removal never leaves an orphan.
func BuildAnswerCodes(responses []models.Response, corrections models.CorrectionMap) models.AnswerCodes {
	live := make(map[uint][]string)
	removedOnly := make(map[uint]map[string]bool)
	var questionIDs []uint

	for _, r := range responses {
		if _, ok := live[r.QuestionID]; !ok {
			live[r.QuestionID] = nil
			questionIDs = append(questionIDs, r.QuestionID)
		}
		if r.Removed {
			if removedOnly[r.QuestionID] == nil {
				removedOnly[r.QuestionID] = make(map[string]bool)
			}
			removedOnly[r.QuestionID][r.RawString] = true
			continue
		}
		live[r.QuestionID] = append(live[r.QuestionID], r.RawString)
	}

	codes := make(models.AnswerCodes, len(questionIDs))
	for _, qid := range questionIDs {
		counts := ValueCounts(live[qid])

		seen := make(map[string]bool, len(counts))
		for _, ac := range counts {
			seen[ac.Answer] = true
		}
		var stragglers []AnswerCount
		for raw := range removedOnly[qid] {
			if !seen[raw] {
				stragglers = append(stragglers, AnswerCount{Answer: raw})
			}
		}
		SortCounts(stragglers)
		counts = append(counts, stragglers...)

		codes[qid] = ProcessRollups(counts, corrections[qid]).Groups
	}
	return codes
}
