package classify

import (
	"regexp"
	"sort"
	"strconv"
	"strings"
)

// ordinalAcceptThreshold is the confidence floor at which the best-effort
// ordinal detector wins over the categorical default.
const ordinalAcceptThreshold = 0.7

// orderedVocabularies are known graded scales. A column whose distinct tokens
// all come from one vocabulary is ordinal.
var orderedVocabularies = [][]string{
	{"low", "medium", "high"},
	{"very low", "low", "medium", "high", "very high"},
	{"small", "medium", "large"},
	{"xs", "s", "m", "l", "xl", "xxl"},
	{"never", "rarely", "sometimes", "often", "always"},
	{"strongly disagree", "disagree", "neutral", "agree", "strongly agree"},
	{"poor", "fair", "good", "very good", "excellent"},
	{"mild", "moderate", "severe"},
	{"first", "second", "third", "fourth", "fifth"},
	// administrative hierarchies
	{"intern", "junior", "senior", "lead", "principal"},
	{"assistant", "associate", "full"},
	{"bronze", "silver", "gold", "platinum"},
	{"primary", "secondary", "tertiary"},
}

var romanNumerals = map[string]int{
	"i": 1, "ii": 2, "iii": 3, "iv": 4, "v": 5,
	"vi": 6, "vii": 7, "viii": 8, "ix": 9, "x": 10,
	"xi": 11, "xii": 12,
}

var affixedToken = regexp.MustCompile(`^([a-z]*[\s_-]*)(\d+)$`)

// OrdinalScore estimates how likely the distinct tokens of a column form an
// ordered scale, returning the detector that fired and a confidence in [0,1].
// Ambiguity resolves toward zero: callers fall back to categorical.
func OrdinalScore(present []string) (detector string, confidence float64) {
	distinct := distinctLower(present)
	if len(distinct) < 2 {
		return "", 0
	}

	if covered, vocabSize := vocabularyMatch(distinct); covered {
		// Fuller coverage of a known scale reads as stronger evidence.
		return "vocabulary", 0.6 + 0.4*float64(len(distinct))/float64(vocabSize)
	}
	if romanMatch(distinct) {
		return "roman", 0.9
	}
	if evenlySpacedAffixed(distinct) {
		return "affixed", 0.8
	}
	return "", 0
}

func distinctLower(present []string) []string {
	seen := make(map[string]struct{})
	var out []string
	for _, raw := range present {
		token := strings.ToLower(strings.TrimSpace(raw))
		if _, dup := seen[token]; !dup {
			seen[token] = struct{}{}
			out = append(out, token)
		}
	}
	return out
}

func vocabularyMatch(distinct []string) (bool, int) {
	for _, vocab := range orderedVocabularies {
		members := make(map[string]bool, len(vocab))
		for _, w := range vocab {
			members[w] = true
		}
		all := true
		for _, token := range distinct {
			if !members[token] {
				all = false
				break
			}
		}
		if all {
			return true, len(vocab)
		}
	}
	return false, 0
}

func romanMatch(distinct []string) bool {
	for _, token := range distinct {
		if _, ok := romanNumerals[token]; !ok {
			return false
		}
	}
	return true
}

// evenlySpacedAffixed detects tokens like "level 1".."level 5" or "q1".."q4":
// one shared textual affix plus integer suffixes with a constant step.
func evenlySpacedAffixed(distinct []string) bool {
	if len(distinct) < 3 {
		return false
	}
	var prefix string
	nums := make([]int, 0, len(distinct))
	for i, token := range distinct {
		m := affixedToken.FindStringSubmatch(token)
		if m == nil {
			return false
		}
		if i == 0 {
			prefix = m[1]
		} else if m[1] != prefix {
			return false
		}
		n, err := strconv.Atoi(m[2])
		if err != nil {
			return false
		}
		nums = append(nums, n)
	}
	if prefix == "" {
		return false
	}
	sort.Ints(nums)
	step := nums[1] - nums[0]
	if step == 0 {
		return false
	}
	for i := 2; i < len(nums); i++ {
		if nums[i]-nums[i-1] != step {
			return false
		}
	}
	return true
}
