package presenter

import (
	"encoding/json"
	"fmt"
	"io"
	"time"

	"github.com/johnquangdev/grain-sync/internal/adapter/dto/common"
	"github.com/johnquangdev/grain-sync/internal/adapter/dto/sync"
)

// Printer renders command results for the terminal, as text or as JSON
type Printer struct {
	w    io.Writer
	json bool
}

// NewPrinter creates a printer writing to w
func NewPrinter(w io.Writer, asJSON bool) *Printer {
	return &Printer{w: w, json: asJSON}
}

// Summary prints the outcome of a sync run
func (p *Printer) Summary(s *sync.SummaryResponse) error {
	if p.json {
		return p.encode(s)
	}

	if s.Mode == "test" {
		fmt.Fprintf(p.w, "\nTest complete! Output written to %s\n", s.OutputDir)
	} else if s.Completed {
		fmt.Fprintf(p.w, "\nCompleted! Processed %d recordings\n", s.ProcessedCount)
	} else {
		fmt.Fprintf(p.w, "\nStopped after %d recordings\n", s.ProcessedCount)
	}
	fmt.Fprintf(p.w, "  saved:    %d\n", s.Saved)
	fmt.Fprintf(p.w, "  skipped:  %d\n", s.Skipped)
	fmt.Fprintf(p.w, "  pages:    %d\n", s.Pages)
	fmt.Fprintf(p.w, "  duration: %s\n", formatDuration(time.Duration(s.DurationSeconds*float64(time.Second))))
	if s.Resumed {
		fmt.Fprintf(p.w, "  resumed with %d already processed\n", s.ProcessedCount-s.ProcessedThisRun)
	}
	return nil
}

// Status prints the saved resume state
func (p *Printer) Status(s *sync.StatusResponse) error {
	if p.json {
		return p.encode(s)
	}

	if !s.HasSavedState {
		fmt.Fprintf(p.w, "No saved state (%s: %s)\n", s.Backend, s.Location)
	} else {
		fmt.Fprintf(p.w, "Saved state (%s: %s)\n", s.Backend, s.Location)
		if s.SavedAt != nil {
			fmt.Fprintf(p.w, "  saved at:        %s\n", s.SavedAt.Format(time.RFC3339))
		}
		fmt.Fprintf(p.w, "  processed count: %d\n", s.ProcessedCount)
		if s.Cursor != nil {
			fmt.Fprintf(p.w, "  next cursor:     %s\n", *s.Cursor)
		}
	}
	if s.IndexedCount != nil {
		fmt.Fprintf(p.w, "  indexed:         %d\n", *s.IndexedCount)
	}
	if s.MirroredCount != nil {
		fmt.Fprintf(p.w, "  mirrored:        %d\n", *s.MirroredCount)
	}
	return nil
}

// IndexedRecording prints where and when a recording was exported
func (p *Printer) IndexedRecording(r *sync.IndexedRecordingResponse) error {
	if p.json {
		return p.encode(r)
	}

	fmt.Fprintf(p.w, "%s (%s)\n", r.RecordingID, r.Title)
	fmt.Fprintf(p.w, "  path:        %s\n", r.RelativePath)
	fmt.Fprintf(p.w, "  exported at: %s\n", r.ExportedAt.Format(time.RFC3339))
	fmt.Fprintf(p.w, "  run:         %s\n", r.RunID)
	return nil
}

// Message prints a one-line message, or a SuccessResponse in JSON mode
func (p *Printer) Message(msg string, data map[string]interface{}) error {
	if p.json {
		return p.encode(&common.SuccessResponse{Message: msg, Data: data})
	}
	fmt.Fprintln(p.w, msg)
	return nil
}

// Error prints a failed command
func (p *Printer) Error(err error) {
	if p.json {
		p.encode(ToErrorResponse(err))
		return
	}
	fmt.Fprintf(p.w, "Error: %v\n", err)
}

func (p *Printer) encode(v interface{}) error {
	enc := json.NewEncoder(p.w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func formatDuration(d time.Duration) string {
	d = d.Round(time.Second)
	h := d / time.Hour
	d -= h * time.Hour
	m := d / time.Minute
	d -= m * time.Minute
	s := d / time.Second

	if h > 0 {
		return fmt.Sprintf("%dh%02dm%02ds", h, m, s)
	}
	if m > 0 {
		return fmt.Sprintf("%dm%02ds", m, s)
	}
	return fmt.Sprintf("%ds", s)
}
