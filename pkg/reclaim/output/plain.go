package output

import (
	"bytes"
	"strings"
	"text/tabwriter"
)

// PlainFormatter formats output as a simple aligned table.
// It produces plain text output suitable for scripting and piping.
// No colors or styling are applied.
type PlainFormatter struct{}

// Format writes the formatted output to the buffer.
func (f *PlainFormatter) Format(w *bytes.Buffer, r *Report) error {
	// Actions and summaries read better as prose.
	switch r.Kind {
	case KindAction:
		w.WriteString(r.Action.Message)
		w.WriteByte('\n')
		if r.Action.ManifestID != "" {
			w.WriteString("manifest: " + r.Action.ManifestID + "\n")
		}
		for _, p := range r.Action.Problems {
			w.WriteString("  " + p + "\n")
		}
		return nil
	case KindSummary:
		_, rows := r.Rows()
		w.WriteString(rows[0][0])
		w.WriteByte('\n')
		return nil
	}

	// Use tabwriter for aligned columns
	tw := tabwriter.NewWriter(w, 0, 0, 1, ' ', 0)

	header, rows := r.Rows()
	if _, err := tw.Write([]byte(strings.Join(header, "\t") + "\n")); err != nil {
		return err
	}
	for _, row := range rows {
		if _, err := tw.Write([]byte(strings.Join(row, "\t") + "\n")); err != nil {
			return err
		}
	}

	// Flush tabwriter to buffer
	return tw.Flush()
}

func init() {
	Register("plain", func() Formatter {
		return &PlainFormatter{}
	})
}

// Ensure PlainFormatter implements Formatter.
var _ Formatter = (*PlainFormatter)(nil)
