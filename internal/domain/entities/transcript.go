package entities

import (
	"bytes"
	"encoding/json"
)

// ExportDocument is the JSON document written for each recording.
// Participants and Transcript are passed through verbatim from the API payload.
type ExportDocument struct {
	ID            string          `json:"id"`
	Title         string          `json:"title"`
	URL           string          `json:"url"`
	Source        string          `json:"source"`
	StartDatetime string          `json:"start_datetime"`
	Participants  json.RawMessage `json:"participants"`
	Transcript    json.RawMessage `json:"transcript"`
}

// Render encodes the document with two-space indentation, leaving non-ASCII and HTML
// characters unescaped
func (d *ExportDocument) Render() ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	if err := enc.Encode(d); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
