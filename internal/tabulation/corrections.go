package tabulation

import (
	"fmt"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/quizitive/commonology-sub000/internal/models"
)

// ParseCorrections decodes a corrections sheet keyed by question id:
//
//	12:
//	  ontari0: Ontario
//	  "4": four
//
// JSON documents are accepted too.
func ParseCorrections(data []byte) (models.CorrectionMap, error) {
	var raw map[string]map[string]string
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("decode corrections: %w", err)
	}
	return NewCorrectionMap(raw)
}

// NewCorrectionMap converts string question ids into a CorrectionMap.
// Blank coded answers are dropped.
func NewCorrectionMap(raw map[string]map[string]string) (models.CorrectionMap, error) {
	corrections := make(models.CorrectionMap, len(raw))
	for key, entries := range raw {
		qid, err := ParseID(strings.TrimSpace(key))
		if err != nil {
			return nil, fmt.Errorf("corrections: question %w", err)
		}
		for rawString, code := range entries {
			if strings.TrimSpace(code) == "" {
				continue
			}
			if corrections[qid] == nil {
				corrections[qid] = make(map[string]string)
			}
			corrections[qid][rawString] = code
		}
	}
	return corrections, nil
}

// MergeCorrections layers override on top of base. Neither input is
// modified.
func MergeCorrections(base, override models.CorrectionMap) models.CorrectionMap {
	merged := make(models.CorrectionMap, len(base))
	for _, src := range []models.CorrectionMap{base, override} {
		for qid, entries := range src {
			if merged[qid] == nil {
				merged[qid] = make(map[string]string, len(entries))
			}
			for raw, code := range entries {
				merged[qid][raw] = code
			}
		}
	}
	return merged
}
