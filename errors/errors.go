package errors

import (
	stderrors "errors"
	"fmt"
)

// AppError is the application error type carried up to the entry point
type AppError struct {
	Raw      error
	ExitCode int
	Code     ErrorCode
	Message  string
	Details  map[string]string
}

// Error implements error interface
func (e AppError) Error() string {
	if e.Raw != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Code.String(), e.Message, e.Raw)
	}
	return fmt.Sprintf("[%s] %s", e.Code.String(), e.Message)
}

// Unwrap exposes the raw cause to errors.Is / errors.As
func (e AppError) Unwrap() error {
	return e.Raw
}

// WithDetail adds a detail to the error
func (e AppError) WithDetail(key, value string) AppError {
	if e.Details == nil {
		e.Details = make(map[string]string)
	}
	e.Details[key] = value
	return e
}

// As reports whether err wraps an AppError and returns it
func As(err error) (AppError, bool) {
	var appErr AppError
	if stderrors.As(err, &appErr) {
		return appErr, true
	}
	return AppError{}, false
}

// ExitCodeOf maps any error to a process exit code
func ExitCodeOf(err error) int {
	if err == nil {
		return 0
	}
	if appErr, ok := As(err); ok && appErr.ExitCode != 0 {
		return appErr.ExitCode
	}
	return ExitFailure
}

// General Errors
func ErrInternal(err error) AppError {
	return AppError{
		Raw:      err,
		ExitCode: ExitFailure,
		Code:     ErrorCode_INTERNAL,
		Message:  "Internal error",
	}
}

func ErrInvalidArgument(message string) AppError {
	return AppError{
		ExitCode: ExitConfig,
		Code:     ErrorCode_INVALID_ARGUMENT,
		Message:  message,
	}
}

func ErrNotFound(resource string) AppError {
	return AppError{
		ExitCode: ExitFailure,
		Code:     ErrorCode_NOT_FOUND,
		Message:  fmt.Sprintf("%s not found", resource),
	}
}

// Configuration Errors
func ErrMissingToken(variable string) AppError {
	return AppError{
		ExitCode: ExitConfig,
		Code:     ErrorCode_CONFIG_MISSING_TOKEN,
		Message:  fmt.Sprintf("Please set %s environment variable", variable),
	}.WithDetail("variable", variable)
}

func ErrInvalidConfig(err error) AppError {
	return AppError{
		Raw:      err,
		ExitCode: ExitConfig,
		Code:     ErrorCode_CONFIG_INVALID,
		Message:  "Invalid configuration",
	}
}

// Grain API Errors
func ErrGrainAPIFailed(operation string, err error) AppError {
	return AppError{
		Raw:      err,
		ExitCode: ExitFailure,
		Code:     ErrorCode_GRAIN_API_FAILED,
		Message:  fmt.Sprintf("Grain API call failed: %s", operation),
	}.WithDetail("operation", operation)
}

func ErrGrainUnauthenticated(err error) AppError {
	return AppError{
		Raw:      err,
		ExitCode: ExitConfig,
		Code:     ErrorCode_GRAIN_UNAUTHENTICATED,
		Message:  "Grain rejected the API token",
	}
}

// Persistence Errors
func ErrRecordingWriteFailed(recordingID string, err error) AppError {
	return AppError{
		Raw:      err,
		ExitCode: ExitFailure,
		Code:     ErrorCode_RECORDING_WRITE_FAILED,
		Message:  "Failed to write recording",
	}.WithDetail("recording_id", recordingID)
}

func ErrCheckpointFailed(operation string, err error) AppError {
	return AppError{
		Raw:      err,
		ExitCode: ExitFailure,
		Code:     ErrorCode_CHECKPOINT_FAILED,
		Message:  fmt.Sprintf("Checkpoint operation failed: %s", operation),
	}.WithDetail("operation", operation)
}

// Integration Errors
func ErrStorageFailed(operation string, err error) AppError {
	return AppError{
		Raw:      err,
		ExitCode: ExitFailure,
		Code:     ErrorCode_INTEGRATION_STORAGE_FAILED,
		Message:  fmt.Sprintf("Storage operation failed: %s", operation),
	}
}

func ErrIndexFailed(operation string, err error) AppError {
	return AppError{
		Raw:      err,
		ExitCode: ExitFailure,
		Code:     ErrorCode_INTEGRATION_INDEX_FAILED,
		Message:  fmt.Sprintf("Index operation failed: %s", operation),
	}
}

func ErrInterrupted(err error) AppError {
	return AppError{
		Raw:      err,
		ExitCode: ExitInterrupted,
		Code:     ErrorCode_INTERRUPTED,
		Message:  "Interrupted, checkpoint kept at last completed page",
	}
}
