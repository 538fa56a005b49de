package variant

import (
	"sort"
	"strings"

	"github.com/fekuna/omnipos-catalog-service/internal/model"
)

// Pair is one (attribute, value) selection.
type Pair struct {
	AttributeID string
	ValueID     string
}

// CombinationKey canonicalizes a set of selections: sorted, de-duplicated, joined.
// Two variants with the same selections in any order share a key.
func CombinationKey(pairs []Pair) string {
	parts := make([]string, 0, len(pairs))
	seen := make(map[string]bool, len(pairs))
	for _, p := range pairs {
		part := strings.TrimSpace(p.AttributeID) + ":" + strings.TrimSpace(p.ValueID)
		if seen[part] {
			continue
		}
		seen[part] = true
		parts = append(parts, part)
	}
	sort.Strings(parts)
	return strings.Join(parts, "|")
}

// KeyOf derives the combination key from a persisted variant's own options.
func KeyOf(v *model.ProductVariant) string {
	pairs := make([]Pair, len(v.Options))
	for i, o := range v.Options {
		pairs[i] = Pair{AttributeID: o.AttributeID, ValueID: o.ValueID}
	}
	return CombinationKey(pairs)
}
