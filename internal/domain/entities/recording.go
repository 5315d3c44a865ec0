package entities

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"
	"unicode"
)

// UntitledRecording is used when Grain returns a recording without a title
const UntitledRecording = "Untitled"

// maxSafeTitleLength bounds the title part of an output file name, in characters
const maxSafeTitleLength = 50

// startDatetimeLayouts are tried in order when parsing start_datetime
var startDatetimeLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999999",
	"2006-01-02 15:04:05.999999999Z07:00",
	"2006-01-02 15:04:05.999999999",
	"2006-01-02",
}

// Recording represents a Grain recording as returned by the workspace API
type Recording struct {
	ID             string          `json:"id" validate:"required"`
	Title          string          `json:"title"`
	URL            string          `json:"url"`
	Source         string          `json:"source"`
	StartDatetime  string          `json:"start_datetime"`
	EndDatetime    string          `json:"end_datetime,omitempty"`
	Participants   json.RawMessage `json:"participants,omitempty"`
	Owners         json.RawMessage `json:"owners,omitempty"`
	TranscriptJSON json.RawMessage `json:"transcript_json,omitempty"`
}

// DisplayTitle returns the title, falling back to UntitledRecording
func (r *Recording) DisplayTitle() string {
	if r.Title == "" {
		return UntitledRecording
	}
	return r.Title
}

// ValidateID rejects a missing id and ids that would add path components to a file name
func (r *Recording) ValidateID() error {
	if r.ID == "" {
		return ErrRecordingIDMissing
	}
	if strings.ContainsAny(r.ID, "/\\\x00") {
		return fmt.Errorf("%w: %q", ErrRecordingIDUnsafe, r.ID)
	}
	return nil
}

// SafeTitle returns the title reduced to characters safe for a file name:
// letters, numbers, space, '-' and '_', trailing whitespace removed, at most 50 characters.
func (r *Recording) SafeTitle() string {
	var b strings.Builder
	for _, c := range r.DisplayTitle() {
		if unicode.IsLetter(c) || unicode.IsNumber(c) || c == ' ' || c == '-' || c == '_' {
			b.WriteRune(c)
		}
	}

	safe := []rune(strings.TrimRightFunc(b.String(), unicode.IsSpace))
	if len(safe) > maxSafeTitleLength {
		safe = safe[:maxSafeTitleLength]
	}
	return string(safe)
}

// StartTime parses StartDatetime, keeping the offset the API reported
func (r *Recording) StartTime() (time.Time, error) {
	raw := strings.TrimSpace(r.StartDatetime)
	if raw == "" {
		return time.Time{}, ErrStartDatetimeMissing
	}

	var lastErr error
	for _, layout := range startDatetimeLayouts {
		t, err := time.Parse(layout, raw)
		if err == nil {
			return t, nil
		}
		lastErr = err
	}
	return time.Time{}, lastErr
}

// ParticipantsJSON returns the participants exactly as the API sent them, [] when absent
func (r *Recording) ParticipantsJSON() json.RawMessage {
	if isEmptyJSON(r.Participants) {
		return json.RawMessage(`[]`)
	}
	return r.Participants
}

// HasTranscript reports whether the transcript payload was included
func (r *Recording) HasTranscript() bool {
	return !isEmptyJSON(r.TranscriptJSON)
}

func isEmptyJSON(raw json.RawMessage) bool {
	trimmed := strings.TrimSpace(string(raw))
	return trimmed == "" || trimmed == "null"
}

// ToExportDocument builds the document written to disk for this recording
func (r *Recording) ToExportDocument() *ExportDocument {
	transcript := json.RawMessage(`{}`)
	if r.HasTranscript() {
		transcript = r.TranscriptJSON
	}

	return &ExportDocument{
		ID:            r.ID,
		Title:         r.Title,
		URL:           r.URL,
		Source:        r.Source,
		StartDatetime: r.StartDatetime,
		Participants:  r.ParticipantsJSON(),
		Transcript:    transcript,
	}
}

// RecordingPage is one page of the recordings listing
type RecordingPage struct {
	Recordings []Recording `json:"recordings"`
	Cursor     *string     `json:"cursor"`
}

// NextCursor returns the cursor for the following page, empty when this is the last page
func (p *RecordingPage) NextCursor() string {
	if p == nil || p.Cursor == nil {
		return ""
	}
	return *p.Cursor
}
