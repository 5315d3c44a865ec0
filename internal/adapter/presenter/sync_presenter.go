package presenter

import (
	apperrors "github.com/johnquangdev/grain-sync/errors"
	"github.com/johnquangdev/grain-sync/internal/adapter/dto/common"
	"github.com/johnquangdev/grain-sync/internal/adapter/dto/sync"
	"github.com/johnquangdev/grain-sync/internal/domain/entities"
	"github.com/johnquangdev/grain-sync/internal/usecase/export"
)

// ToSummaryResponse converts a run summary to SummaryResponse DTO
func ToSummaryResponse(s *export.Summary, outputDir string) *sync.SummaryResponse {
	if s == nil {
		return nil
	}

	return &sync.SummaryResponse{
		RunID:            s.RunID,
		Mode:             s.Mode,
		Resumed:          s.Resumed,
		ProcessedCount:   s.ProcessedCount,
		ProcessedThisRun: s.ProcessedThisRun(),
		Saved:            s.Saved,
		Skipped:          s.Skipped,
		Pages:            s.Pages,
		Completed:        s.Completed,
		DurationSeconds:  s.Duration.Seconds(),
		OutputDir:        outputDir,
	}
}

// ToStatusResponse converts a saved checkpoint (nil when none) to StatusResponse DTO
func ToStatusResponse(cp *entities.Checkpoint, backend, location string) *sync.StatusResponse {
	response := &sync.StatusResponse{
		HasSavedState: cp != nil,
		Backend:       backend,
		Location:      location,
	}
	if cp == nil {
		return response
	}

	response.Cursor = cp.Cursor
	response.ProcessedCount = cp.ProcessedCount
	if !cp.Timestamp.IsZero() {
		savedAt := cp.Timestamp
		response.SavedAt = &savedAt
	}
	return response
}

// ToIndexedRecordingResponse converts an export index row to IndexedRecordingResponse DTO
func ToIndexedRecordingResponse(row *entities.ExportedRecording) *sync.IndexedRecordingResponse {
	if row == nil {
		return nil
	}

	return &sync.IndexedRecordingResponse{
		RecordingID:  row.RecordingID,
		Title:        row.Title,
		Source:       row.Source,
		URL:          row.URL,
		StartedAt:    row.StartedAt,
		RelativePath: row.RelativePath,
		RunID:        row.RunID.String(),
		ExportedAt:   row.ExportedAt,
	}
}

// ToErrorResponse converts any error to ErrorResponse DTO
func ToErrorResponse(err error) *common.ErrorResponse {
	if err == nil {
		return nil
	}

	response := &common.ErrorResponse{
		Error:    err.Error(),
		ExitCode: apperrors.ExitCodeOf(err),
	}
	if appErr, ok := apperrors.As(err); ok {
		response.Code = appErr.Code.String()
		response.Message = appErr.Message
		response.Details = appErr.Details
	}
	return response
}
