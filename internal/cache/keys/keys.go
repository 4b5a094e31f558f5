// Package keys builds cache keys for computed routes.
package keys

import (
	"fmt"
	"strings"
	"unicode"

	"github.com/cespare/xxhash/v2"

	"github.com/mohammed-shakir/osm-grid-router/internal/core/model"
)

const routePrefix = "route"

// RouteKey identifies a search result. Results are only valid for the grid
// they were computed on, so the grid version leads the key; policy is a
// free-form description of the search options and is reduced to a digest.
func RouteKey(gridVersion uint64, policy string, from, to model.Cell) string {
	return fmt.Sprintf("%s:o=%016x:%d,%d:%d,%d",
		GridPrefix(gridVersion), PolicyDigest(policy), from.Row, from.Col, to.Row, to.Col)
}

// GridPrefix is shared by every route key computed on one grid version.
func GridPrefix(gridVersion uint64) string {
	return fmt.Sprintf("%s:g=%016x", routePrefix, gridVersion)
}

func PolicyDigest(policy string) uint64 {
	return xxhash.Sum64String(normalizePolicy(policy))
}

// normalizePolicy lower-cases and drops whitespace so "avoid | uniform" and
// "AVOID|uniform" name the same policy.
func normalizePolicy(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	for _, r := range s {
		if unicode.IsSpace(r) {
			continue
		}
		b.WriteRune(unicode.ToLower(r))
	}
	return b.String()
}
