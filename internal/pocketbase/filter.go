package pocketbase

import (
	"strings"
	"time"
)

// DateTimeLayout is the layout PocketBase stores datetime fields in.
// Filters on datetime fields must use it for string comparison to hold.
const DateTimeLayout = "2006-01-02 15:04:05.000Z"

var quoteReplacer = strings.NewReplacer(`\`, `\\`, `"`, `\"`)

// Quote renders s as a filter string literal.
func Quote(s string) string {
	return `"` + quoteReplacer.Replace(s) + `"`
}

// QuoteTime renders t as a filter datetime literal.
func QuoteTime(t time.Time) string {
	return Quote(t.UTC().Format(DateTimeLayout))
}

// And joins non-empty filter expressions with &&.
func And(exprs ...string) string {
	parts := make([]string, 0, len(exprs))
	for _, e := range exprs {
		if e != "" {
			parts = append(parts, "("+e+")")
		}
	}
	return strings.Join(parts, " && ")
}
