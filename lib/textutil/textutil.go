package textutil

import (
	"regexp"
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

// DedupeNames drops blank names and names equal to an earlier one under NormalizeName,
// the first spelling wins and order is kept.
func DedupeNames(names []string) []string {
	seen := make(map[string]struct{}, len(names))
	var out []string
	for _, name := range names {
		name = strings.TrimSpace(name)
		key := NormalizeName(name)
		if key == "" {
			continue
		}
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, name)
	}
	return out
}

// Similarity is the Jaro-Winkler similarity of two normalized names, in [0, 1].
func Similarity(a, b string) float64 {
	return matchr.JaroWinkler(NormalizeName(a), NormalizeName(b), false)
}
