package output

import (
	"bytes"
	"strconv"
	"text/tabwriter"

	"github.com/jamesainslie/dir2ml/pkg/dir2ml/types"
)

// PlainFormatter formats output as a simple aligned table of size, first
// digest, location count and path. No colors or styling are applied.
type PlainFormatter struct{}

// Format writes the formatted output to the buffer.
func (f *PlainFormatter) Format(w *bytes.Buffer, r *Result) error {
	tw := tabwriter.NewWriter(w, 0, 0, 1, ' ', 0)

	if _, err := tw.Write([]byte("SIZE\tDIGEST\tURLS\tPATH\n")); err != nil {
		return err
	}

	for _, file := range r.Files {
		digest := "-"
		if len(file.Hashes) > 0 {
			h := file.Hashes[len(file.Hashes)-1]
			digest = h.Type + ":" + shortHex(h.Hex)
		}
		row := types.FormatSize(file.Size) + "\t" + digest + "\t" +
			strconv.Itoa(len(file.Locations)) + "\t" + file.Name + "\n"
		if _, err := tw.Write([]byte(row)); err != nil {
			return err
		}
	}

	return tw.Flush()
}

// shortHex truncates a hex digest to 12 characters for display.
func shortHex(s string) string {
	if len(s) <= 12 {
		return s
	}
	return s[:12]
}

func init() {
	Register("plain", func() Formatter {
		return &PlainFormatter{}
	})
}

// Ensure PlainFormatter implements Formatter.
var _ Formatter = (*PlainFormatter)(nil)
