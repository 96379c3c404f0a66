package classify

import (
	"strings"

	"statlab/domain/dataset"
	"statlab/domain/stats"
)

// Classifier infers a column's semantic type from its raw values. Classify is
// pure, deterministic, and total: any input yields a type, never an error.
type Classifier struct {
	discreteUniqueLimit int
}

// New creates a classifier with the given discrete-uniqueness cutoff.
// The cutoff is a documented default, not a validated constant.
func New(discreteUniqueLimit int) *Classifier {
	if discreteUniqueLimit < 2 {
		discreteUniqueLimit = 20
	}
	return &Classifier{discreteUniqueLimit: discreteUniqueLimit}
}

// booleanLiterals is the recognized two-state vocabulary. Deliberately narrow:
// tokens like "Yes"/"No" classify categorical, matching the upstream contract.
var booleanLiterals = map[string]bool{
	"true":  true,
	"false": true,
	"t":     true,
	"f":     true,
}

// Classify returns the column type for a raw value slice.
//
// Priority: numeric (discrete below the uniqueness cutoff), timeseries,
// boolean, censored, ordinal, then categorical. An all-missing column is
// categorical. A handful of unparsable tokens does not flip an otherwise
// numeric column; those cells are flagged at the cell level instead.
func (c *Classifier) Classify(values []string) stats.ColumnType {
	present := make([]string, 0, len(values))
	for _, raw := range values {
		if !dataset.IsMissing(raw) {
			present = append(present, raw)
		}
	}
	if len(present) == 0 {
		return stats.TypeCategorical
	}

	if t, ok := c.classifyNumeric(present); ok {
		return t
	}
	if allParseAsTime(present) {
		return stats.TypeTimeseries
	}
	if isBoolean(present) {
		return stats.TypeBoolean
	}
	if isCensored(present) {
		return stats.TypeCensored
	}
	if _, conf := OrdinalScore(present); conf >= ordinalAcceptThreshold {
		return stats.TypeOrdinal
	}
	return stats.TypeCategorical
}

// classifyNumeric accepts a column when the clear majority of present cells
// parse as numbers. Minority unparsable tokens are tolerated here and flagged
// per cell by the flag store.
func (c *Classifier) classifyNumeric(present []string) (stats.ColumnType, bool) {
	parsed := 0
	distinct := make(map[float64]struct{})
	for _, raw := range present {
		if v, ok := dataset.ParseNumeric(raw); ok {
			parsed++
			distinct[v] = struct{}{}
		}
	}
	if parsed == 0 {
		return "", false
	}
	ratio := float64(parsed) / float64(len(present))
	if ratio < 0.8 {
		return "", false
	}
	if len(distinct) < c.discreteUniqueLimit {
		return stats.TypeDiscrete, true
	}
	return stats.TypeNumeric, true
}

func allParseAsTime(present []string) bool {
	for _, raw := range present {
		if _, ok := dataset.ParseTime(raw); !ok {
			return false
		}
	}
	return true
}

func isBoolean(present []string) bool {
	distinct := make(map[string]struct{})
	for _, raw := range present {
		token := strings.ToLower(strings.TrimSpace(raw))
		if !booleanLiterals[token] {
			return false
		}
		distinct[token] = struct{}{}
	}
	return len(distinct) == 2
}

// isCensored looks for interval-censored observations: bound markers like
// ">10", "<5", "10+" mixed with plain numbers. Heuristic; defaults to false.
func isCensored(present []string) bool {
	censored, numeric := 0, 0
	for _, raw := range present {
		s := strings.TrimSpace(raw)
		switch {
		case isCensorToken(s):
			censored++
		default:
			if _, ok := dataset.ParseNumeric(s); ok {
				numeric++
			}
		}
	}
	if censored == 0 {
		return false
	}
	// Every present cell must be either a bound marker or a plain number.
	return censored+numeric == len(present)
}

func isCensorToken(s string) bool {
	if len(s) < 2 {
		return false
	}
	if strings.HasPrefix(s, ">") || strings.HasPrefix(s, "<") {
		_, ok := dataset.ParseNumeric(strings.TrimLeft(s, "<>= "))
		return ok
	}
	if strings.HasSuffix(s, "+") {
		_, ok := dataset.ParseNumeric(strings.TrimRight(s, "+ "))
		return ok
	}
	return false
}
