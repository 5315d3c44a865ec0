package runcontext

import (
	"context"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

type KeyContext string

var (
	keyRunID        KeyContext = "run_id"
	keyRunMode      KeyContext = "run_mode"
	keyRunStartTime KeyContext = "run_start_time"
	keyPage         KeyContext = "page"
)

// RunMetadata holds metadata for one sync invocation
type RunMetadata struct {
	RunID     uuid.UUID
	Mode      string
	Page      int
	StartTime time.Time
}

// RunBegin initializes a run context with a fresh run ID
func RunBegin(parentCtx context.Context, mode string) context.Context {
	ctx := context.WithValue(parentCtx, keyRunID, uuid.New())
	ctx = context.WithValue(ctx, keyRunMode, mode)
	ctx = context.WithValue(ctx, keyRunStartTime, time.Now())
	return ctx
}

// GetRunID extracts run ID from context
func GetRunID(ctx context.Context) (uuid.UUID, bool) {
	runID, ok := ctx.Value(keyRunID).(uuid.UUID)
	return runID, ok
}

// GetRunMode extracts the run mode ("full" or "test") from context
func GetRunMode(ctx context.Context) string {
	mode, _ := ctx.Value(keyRunMode).(string)
	return mode
}

// GetRunStartTime extracts run start time from context
func GetRunStartTime(ctx context.Context) (time.Time, bool) {
	startTime, ok := ctx.Value(keyRunStartTime).(time.Time)
	return startTime, ok
}

// SetPage records the page number currently being processed
func SetPage(ctx context.Context, page int) context.Context {
	return context.WithValue(ctx, keyPage, page)
}

// GetPage extracts the current page number, 0 when unset
func GetPage(ctx context.Context) int {
	page, ok := ctx.Value(keyPage).(int)
	if !ok {
		return 0
	}
	return page
}

// GetRunMetadata extracts all run metadata from context
func GetRunMetadata(ctx context.Context) *RunMetadata {
	runID, _ := GetRunID(ctx)
	startTime, _ := GetRunStartTime(ctx)

	return &RunMetadata{
		RunID:     runID,
		Mode:      GetRunMode(ctx),
		Page:      GetPage(ctx),
		StartTime: startTime,
	}
}

// Fields returns zap fields describing the run, for attaching to log lines
func Fields(ctx context.Context) []zap.Field {
	fields := make([]zap.Field, 0, 3)
	if runID, ok := GetRunID(ctx); ok {
		fields = append(fields, zap.String("run_id", runID.String()))
	}
	if mode := GetRunMode(ctx); mode != "" {
		fields = append(fields, zap.String("mode", mode))
	}
	if page := GetPage(ctx); page > 0 {
		fields = append(fields, zap.Int("page", page))
	}
	return fields
}
