package analysiscache

import (
	"net/url"
	"strconv"
	"strings"

	"github.com/ardilabayufirdaus/SIPOMA-PocketBase-sub005/internal/models"
)

// KeyPrefix namespaces the keys of monthly COP analyses.
const KeyPrefix = "cop_analysis"

// normalize lowercases s, trims it and collapses internal whitespace runs to one space.
func normalize(s string) string {
	return strings.Join(strings.Fields(strings.ToLower(s)), " ")
}

// Key derives the cache key for dims. Text components are normalized and then
// path-escaped, so a separator inside a component cannot make two different
// dimension sets share a key.
func Key(dims models.CacheDimensions) string {
	parts := []string{
		KeyPrefix,
		url.PathEscape(normalize(dims.Category)),
		url.PathEscape(normalize(dims.Unit)),
		strconv.Itoa(dims.Year),
		strconv.Itoa(dims.Month),
		url.PathEscape(normalize(dims.CementType)),
	}
	return strings.Join(parts, "/")
}
