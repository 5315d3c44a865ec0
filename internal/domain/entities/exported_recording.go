package entities

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

// ExportedRecording is the index row kept for every recording written to disk
type ExportedRecording struct {
	RecordingID  string         `json:"recording_id" gorm:"type:varchar(255);primary_key"`
	Title        string         `json:"title" gorm:"type:text;not null;default:''"`
	Source       string         `json:"source" gorm:"type:varchar(50);index"`
	URL          string         `json:"url" gorm:"type:text"`
	StartedAt    *time.Time     `json:"started_at,omitempty" gorm:"index"`
	RelativePath string         `json:"relative_path" gorm:"type:text;not null"`
	Participants datatypes.JSON `json:"participants" gorm:"type:jsonb;default:'[]'"`
	RunID        uuid.UUID      `json:"run_id" gorm:"type:uuid;not null;index"`
	ExportedAt   time.Time      `json:"exported_at" gorm:"not null;default:now()"`
	CreatedAt    time.Time      `json:"created_at" gorm:"autoCreateTime"`
	UpdatedAt    time.Time      `json:"updated_at" gorm:"autoUpdateTime"`
}

// TableName specifies the table name for GORM
func (ExportedRecording) TableName() string {
	return "exported_recordings"
}

// NewExportedRecording builds the index row for a saved recording
func NewExportedRecording(recording *Recording, relativePath string, runID uuid.UUID) (*ExportedRecording, error) {
	if err := recording.ValidateID(); err != nil {
		return nil, err
	}

	row := &ExportedRecording{
		RecordingID:  recording.ID,
		Title:        recording.DisplayTitle(),
		Source:       recording.Source,
		URL:          recording.URL,
		RelativePath: relativePath,
		Participants: datatypes.JSON(recording.ParticipantsJSON()),
		RunID:        runID,
		ExportedAt:   time.Now(),
	}
	if started, err := recording.StartTime(); err == nil {
		row.StartedAt = &started
	}
	return row, nil
}
