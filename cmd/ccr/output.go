package main

import (
	"fmt"
	"io"

	"github.com/goccy/go-json"
)

// printResult writes v as indented JSON when --json is set, otherwise the
// rendered text.
func printResult(w io.Writer, v any, text func() string) error {
	if jsonOutput {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(v)
	}
	_, err := fmt.Fprintln(w, text())
	return err
}
