package discovery

import (
	"strings"
	"unicode"

	"github.com/BaSui01/pathflow/types"
)

// ParseCapabilityHints returns the known capabilities named in goal, in the
// order they first appear. Words are split on anything but letters, digits
// and underscores, so "data_retrieval, then reasoning" yields both.
func ParseCapabilityHints(goal string, known []types.Capability) []types.Capability {
	if goal == "" || len(known) == 0 {
		return nil
	}
	knownSet := make(map[string]types.Capability, len(known))
	for _, c := range known {
		knownSet[strings.ToLower(string(c))] = c
	}

	words := strings.FieldsFunc(strings.ToLower(goal), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r) && r != '_'
	})

	var out []types.Capability
	seen := make(map[types.Capability]struct{})
	for _, w := range words {
		c, ok := knownSet[w]
		if !ok {
			continue
		}
		if _, dup := seen[c]; dup {
			continue
		}
		seen[c] = struct{}{}
		out = append(out, c)
	}
	return out
}
