// internal/models/tally.go
package models

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"sort"
	"strconv"
	"strings"
)

type CodeScore struct {
	Code  string
	Score int
}

// CodeScores is an ordered code -> score mapping. It encodes as a JSON
// object whose keys keep the slice order.
type CodeScores []CodeScore

func (s CodeScores) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, cs := range s {
		if i > 0 {
			buf.WriteByte(',')
		}
		key, err := json.Marshal(cs.Code)
		if err != nil {
			return nil, err
		}
		buf.Write(key)
		buf.WriteByte(':')
		buf.WriteString(strconv.Itoa(cs.Score))
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

func (s *CodeScores) UnmarshalJSON(data []byte) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	tok, err := dec.Token()
	if err != nil {
		return err
	}
	if delim, ok := tok.(json.Delim); !ok || delim != '{' {
		return fmt.Errorf("code scores: expected object, got %v", tok)
	}

	out := CodeScores{}
	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return err
		}
		code, ok := tok.(string)
		if !ok {
			return fmt.Errorf("code scores: expected string key, got %v", tok)
		}
		var score int
		if err := dec.Decode(&score); err != nil {
			return fmt.Errorf("code scores: value for %q: %w", code, err)
		}
		out = append(out, CodeScore{Code: code, Score: score})
	}
	if _, err := dec.Token(); err != nil {
		return err
	}

	*s = out
	return nil
}

// Get returns the score for code, or 0 when the code is absent.
func (s CodeScores) Get(code string) int {
	for _, cs := range s {
		if cs.Code == code {
			return cs.Score
		}
	}
	return 0
}

// QuestionTally is the popularity table for one scored question.
type QuestionTally struct {
	QuestionID uint       `json:"question_id"`
	Number     int        `json:"number"`
	Text       string     `json:"text"`
	Scores     CodeScores `json:"scores"`
}

// Total sums every code's score.
func (q QuestionTally) Total() int {
	total := 0
	for _, cs := range q.Scores {
		total += cs.Score
	}
	return total
}

// AnswerTally holds one QuestionTally per scored question, in question
// number order.
type AnswerTally struct {
	GameID    uint            `json:"game_id"`
	Questions []QuestionTally `json:"questions"`
}

// Question looks up the tally of a question by id.
func (t *AnswerTally) Question(questionID uint) (QuestionTally, bool) {
	for _, q := range t.Questions {
		if q.QuestionID == questionID {
			return q, true
		}
	}
	return QuestionTally{}, false
}

// ScoreIndex flattens the tally into question id -> code -> score.
func (t *AnswerTally) ScoreIndex() map[uint]map[string]int {
	index := make(map[uint]map[string]int, len(t.Questions))
	for _, q := range t.Questions {
		scores := make(map[string]int, len(q.Scores))
		for _, cs := range q.Scores {
			scores[cs.Code] = cs.Score
		}
		index[q.QuestionID] = scores
	}
	return index
}

// Fingerprint hashes a sorted serialization of the tally content, so equal
// tallies always produce the same value regardless of slice order.
func (t *AnswerTally) Fingerprint() string {
	lines := make([]string, 0, 64)
	for _, q := range t.Questions {
		for _, cs := range q.Scores {
			lines = append(lines, fmt.Sprintf("%d|%q|%d", q.QuestionID, cs.Code, cs.Score))
		}
	}
	sort.Strings(lines)

	var sb strings.Builder
	fmt.Fprintf(&sb, "game:%d;", t.GameID)
	for _, line := range lines {
		sb.WriteString(line)
		sb.WriteByte(';')
	}

	hash := sha256.Sum256([]byte(sb.String()))
	return hex.EncodeToString(hash[:])
}
