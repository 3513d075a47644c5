package models

import (
	"fmt"
	"time"
)

var timestampFormats = []string{
	TimestampLayout,
	"2006-01-02 15:04:05.000Z",
	time.RFC3339Nano,
	"2006-01-02 15:04:05",
}

// FormatTimestamp renders t in TimestampLayout (UTC).
func FormatTimestamp(t time.Time) string {
	return t.UTC().Format(TimestampLayout)
}

// ParseTimestamp accepts TimestampLayout as well as the space-separated layout
// PocketBase uses and plain RFC 3339.
func ParseTimestamp(s string) (time.Time, error) {
	for _, layout := range timestampFormats {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC(), nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognized timestamp %q", s)
}
