package domain

import (
	"strings"

	mapset "github.com/deckarep/golang-set/v2"
)

// NormalizeTags lower-cases tags and drops duplicates and blanks, keeping the
// first occurrence order.
func NormalizeTags(tags []string) []string {
	seen := mapset.NewThreadUnsafeSet[string]()
	out := make([]string, 0, len(tags))
	for _, tag := range tags {
		t := strings.ToLower(strings.TrimSpace(tag))
		if t == "" {
			continue
		}
		if seen.Add(t) {
			out = append(out, t)
		}
	}
	return out
}
