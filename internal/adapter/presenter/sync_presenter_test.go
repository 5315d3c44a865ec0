package presenter

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"testing"
	"time"

	apperrors "github.com/johnquangdev/grain-sync/errors"
	"github.com/johnquangdev/grain-sync/internal/domain/entities"
	"github.com/johnquangdev/grain-sync/internal/usecase/export"
)

func TestToSummaryResponse(t *testing.T) {
	summary := &export.Summary{
		RunID:          "run-1",
		Mode:           export.ModeFull,
		Resumed:        true,
		StartingCount:  10,
		ProcessedCount: 14,
		Saved:          3,
		Skipped:        1,
		Pages:          2,
		Completed:      true,
		Duration:       90 * time.Second,
	}

	resp := ToSummaryResponse(summary, "recordings")
	if resp.ProcessedThisRun != 4 || resp.DurationSeconds != 90 || resp.OutputDir != "recordings" {
		t.Fatalf("unexpected response %+v", resp)
	}

	var buf bytes.Buffer
	if err := NewPrinter(&buf, false).Summary(resp); err != nil {
		t.Fatalf("Summary failed: %v", err)
	}
	out := buf.String()
	for _, want := range []string{"Completed! Processed 14 recordings", "saved:    3", "duration: 1m30s", "resumed with 10 already processed"} {
		if !strings.Contains(out, want) {
			t.Fatalf("output missing %q:\n%s", want, out)
		}
	}
}

func TestStatus_NoSavedState(t *testing.T) {
	var buf bytes.Buffer
	NewPrinter(&buf, false).Status(ToStatusResponse(nil, "file", ".cursor_state.json"))
	if !strings.Contains(buf.String(), "No saved state") {
		t.Fatalf("unexpected output %q", buf.String())
	}
}

func TestStatus_JSON(t *testing.T) {
	var buf bytes.Buffer
	cp := entities.NewCheckpoint("c2", 5)
	if err := NewPrinter(&buf, true).Status(ToStatusResponse(cp, "redis", "grainsync:cursor_state")); err != nil {
		t.Fatalf("Status failed: %v", err)
	}

	var decoded map[string]interface{}
	if err := json.Unmarshal(buf.Bytes(), &decoded); err != nil {
		t.Fatalf("invalid json %q: %v", buf.String(), err)
	}
	if decoded["has_saved_state"] != true || decoded["cursor"] != "c2" || decoded["processed_count"] != float64(5) {
		t.Fatalf("unexpected status %v", decoded)
	}
}

func TestToErrorResponse(t *testing.T) {
	err := fmt.Errorf("sync: %w", apperrors.ErrInterrupted(context.Canceled))
	resp := ToErrorResponse(err)
	if resp.ExitCode != apperrors.ExitInterrupted || resp.Code != "INTERRUPTED" {
		t.Fatalf("unexpected error response %+v", resp)
	}

	missing := ToErrorResponse(apperrors.ErrMissingToken("GRAIN_API_TOKEN"))
	if missing.ExitCode != apperrors.ExitConfig || missing.Details["variable"] != "GRAIN_API_TOKEN" {
		t.Fatalf("unexpected error response %+v", missing)
	}
}
