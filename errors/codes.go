package errors

// ErrorCode identifies a class of application failure
type ErrorCode int

const (
	ErrorCode_INTERNAL ErrorCode = iota + 1
	ErrorCode_INVALID_ARGUMENT
	ErrorCode_NOT_FOUND

	// Configuration
	ErrorCode_CONFIG_MISSING_TOKEN
	ErrorCode_CONFIG_INVALID

	// Grain API
	ErrorCode_GRAIN_API_FAILED
	ErrorCode_GRAIN_UNAUTHENTICATED

	// Local persistence
	ErrorCode_RECORDING_WRITE_FAILED
	ErrorCode_CHECKPOINT_FAILED

	// Secondary sinks
	ErrorCode_INTEGRATION_STORAGE_FAILED
	ErrorCode_INTEGRATION_INDEX_FAILED

	ErrorCode_INTERRUPTED
)

var errorCodeNames = map[ErrorCode]string{
	ErrorCode_INTERNAL:                   "INTERNAL",
	ErrorCode_INVALID_ARGUMENT:           "INVALID_ARGUMENT",
	ErrorCode_NOT_FOUND:                  "NOT_FOUND",
	ErrorCode_CONFIG_MISSING_TOKEN:       "CONFIG_MISSING_TOKEN",
	ErrorCode_CONFIG_INVALID:             "CONFIG_INVALID",
	ErrorCode_GRAIN_API_FAILED:           "GRAIN_API_FAILED",
	ErrorCode_GRAIN_UNAUTHENTICATED:      "GRAIN_UNAUTHENTICATED",
	ErrorCode_RECORDING_WRITE_FAILED:     "RECORDING_WRITE_FAILED",
	ErrorCode_CHECKPOINT_FAILED:          "CHECKPOINT_FAILED",
	ErrorCode_INTEGRATION_STORAGE_FAILED: "INTEGRATION_STORAGE_FAILED",
	ErrorCode_INTEGRATION_INDEX_FAILED:   "INTEGRATION_INDEX_FAILED",
	ErrorCode_INTERRUPTED:                "INTERRUPTED",
}

// String returns the symbolic name of the code
func (c ErrorCode) String() string {
	if name, ok := errorCodeNames[c]; ok {
		return name
	}
	return "UNKNOWN"
}

// Process exit codes
const (
	ExitFailure     = 1
	ExitConfig      = 2
	ExitInterrupted = 130
)
