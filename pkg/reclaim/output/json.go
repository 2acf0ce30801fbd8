package output

import (
	"bytes"
	"encoding/json"
)

// JSONFormatter formats output as a single indented JSON object.
type JSONFormatter struct{}

// Format writes the formatted output to the buffer.
func (f *JSONFormatter) Format(w *bytes.Buffer, r *Report) error {
	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	return encoder.Encode(view(r))
}

func init() {
	Register("json", func() Formatter {
		return &JSONFormatter{}
	})
}

// Ensure JSONFormatter implements Formatter.
var _ Formatter = (*JSONFormatter)(nil)

// JSONLFormatter formats output as newline-delimited JSON (one object per line).
// Triage items carry their verdict; other reports are a single line.
type JSONLFormatter struct{}

type jsonlItem struct {
	Verdict string  `json:"verdict"`
	Path    string  `json:"path"`
	Reason  *string `json:"reason"`
	Size    int64   `json:"size"`
}

// Format writes the formatted output to the buffer.
func (f *JSONLFormatter) Format(w *bytes.Buffer, r *Report) error {
	if r.Kind != KindTriage {
		data, err := json.Marshal(view(r))
		if err != nil {
			return err
		}
		w.Write(data)
		w.WriteByte('\n')
		return nil
	}

	for _, bucket := range r.buckets() {
		for _, item := range items(bucket.items) {
			data, err := json.Marshal(jsonlItem{
				Verdict: bucket.verdict.String(),
				Path:    item.Path,
				Reason:  item.Reason,
				Size:    item.Size,
			})
			if err != nil {
				return err
			}
			w.Write(data)
			w.WriteByte('\n')
		}
	}
	return nil
}

func init() {
	Register("jsonl", func() Formatter {
		return &JSONLFormatter{}
	})
}

// Ensure JSONLFormatter implements Formatter.
var _ Formatter = (*JSONLFormatter)(nil)
