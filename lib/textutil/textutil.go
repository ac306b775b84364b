package textutil

import (
	"regexp"
	"slices"
	"strings"

	"github.com/antzucaro/matchr"
)

var whitespaceRegex = regexp.MustCompile(`\s+`)

func NormalizeName(name string) string {
	name = strings.ToLower(name)
	name = strings.Trim(name, " \n\t")
	name = whitespaceRegex.ReplaceAllString(name, "")
	return name
}

// FindName returns the candidate equal to name once both are normalized.
func FindName(name string, candidates []string) (string, bool) {
	target := NormalizeName(name)
	for _, c := range candidates {
		if NormalizeName(c) == target {
			return c, true
		}
	}
	return "", false
}

// minSimilarity is the jaro-winkler score below which a candidate is not
// worth suggesting.
const minSimilarity = 0.7

// Suggest returns up to n candidates most similar to name, best first.
func Suggest(name string, candidates []string, n int) []string {
	type scored struct {
		name       string
		similarity float64
	}

	target := NormalizeName(name)
	var matches []scored
	for _, c := range candidates {
		similarity := matchr.JaroWinkler(target, NormalizeName(c), false)
		if similarity < minSimilarity {
			continue
		}
		matches = append(matches, scored{name: c, similarity: similarity})
	}
	slices.SortStableFunc(matches, func(a, b scored) int {
		switch {
		case a.similarity > b.similarity:
			return -1
		case a.similarity < b.similarity:
			return 1
		}
		return 0
	})

	out := []string{}
	for i := 0; i < len(matches) && i < n; i++ {
		out = append(out, matches[i].name)
	}
	return out
}
