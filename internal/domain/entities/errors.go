package entities

import "errors"

// Domain errors
var (
	// Recording errors
	ErrRecordingIDMissing   = errors.New("recording id missing")
	ErrRecordingIDUnsafe    = errors.New("recording id contains path separators")
	ErrStartDatetimeMissing = errors.New("start datetime missing")

	// Checkpoint errors
	ErrCheckpointCorrupt = errors.New("checkpoint corrupt")
)
