package errors

import "errors"

// Export errors
var (
	ErrNoPrompter     = errors.New("no prompter configured")
	ErrNoResumeAnswer = errors.New("input closed before the resume prompt was answered")
	ErrIndexDisabled  = errors.New("export index is disabled")
	ErrUnknownBackend = errors.New("unknown checkpoint backend")
	ErrNotIndexed     = errors.New("recording is not in the export index")
)
