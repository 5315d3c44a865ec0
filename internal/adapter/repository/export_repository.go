package repository

import (
	"context"
	"errors"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/johnquangdev/grain-sync/internal/domain/entities"
)

// ExportRepository handles the exported recordings index
type ExportRepository struct {
	db *gorm.DB
}

// NewExportRepository creates a new export index repository
func NewExportRepository(db *gorm.DB) *ExportRepository {
	return &ExportRepository{db: db}
}

// Upsert creates the index row or refreshes it when the recording was exported before
func (r *ExportRepository) Upsert(ctx context.Context, exported *entities.ExportedRecording) error {
	if exported == nil {
		return errors.New("exported recording cannot be nil")
	}
	return r.upsertQuery(ctx, exported).Error
}

func (r *ExportRepository) upsertQuery(ctx context.Context, exported *entities.ExportedRecording) *gorm.DB {
	return r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns: []clause.Column{{Name: "recording_id"}},
			DoUpdates: clause.AssignmentColumns([]string{
				"title",
				"source",
				"url",
				"started_at",
				"relative_path",
				"participants",
				"run_id",
				"exported_at",
				"updated_at",
			}),
		}).
		Create(exported)
}

// FindByRecordingID retrieves an index row by Grain recording ID
func (r *ExportRepository) FindByRecordingID(ctx context.Context, recordingID string) (*entities.ExportedRecording, error) {
	var exported entities.ExportedRecording
	if err := r.findQuery(ctx, recordingID, &exported).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &exported, nil
}

func (r *ExportRepository) findQuery(ctx context.Context, recordingID string, dest *entities.ExportedRecording) *gorm.DB {
	return r.db.WithContext(ctx).Where("recording_id = ?", recordingID).First(dest)
}

// Count returns the number of indexed recordings
func (r *ExportRepository) Count(ctx context.Context) (int64, error) {
	var count int64
	if err := r.countQuery(ctx, &count).Error; err != nil {
		return 0, err
	}
	return count, nil
}

func (r *ExportRepository) countQuery(ctx context.Context, count *int64) *gorm.DB {
	return r.db.WithContext(ctx).Model(&entities.ExportedRecording{}).Count(count)
}
