package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/opentracing/opentracing-go"
	"gorm.io/gorm"

	"github.com/relocato/mailbridge/interfaces"
	"github.com/relocato/mailbridge/internal/models"
	"github.com/relocato/mailbridge/internal/tracing"
	"github.com/relocato/mailbridge/internal/utils"
)

type syncStateRepository struct {
	db *gorm.DB
}

func NewSyncStateRepository(db *gorm.DB) interfaces.SyncStateRepository {
	return &syncStateRepository{db: db}
}

// GetSyncState retrieves the sync state for a specific owner and folder
func (r *syncStateRepository) GetSyncState(ctx context.Context, ownerID, folder string) (*models.FolderSyncState, error) {
	span, ctx := opentracing.StartSpanFromContext(ctx, "syncStateRepository.GetSyncState")
	defer span.Finish()
	tracing.TagComponentPostgresRepository(span)

	var state models.FolderSyncState
	result := r.db.WithContext(ctx).
		Where("owner_id = ? AND folder = ?", ownerID, folder).
		First(&state)

	if result.Error != nil {
		if result.Error == gorm.ErrRecordNotFound {
			return nil, nil // No sync state yet
		}
		tracing.TraceErr(span, result.Error)
		return nil, fmt.Errorf("failed to get sync state: %w", result.Error)
	}

	return &state, nil
}

// SaveSyncState saves the sync state for an owner's folder
func (r *syncStateRepository) SaveSyncState(ctx context.Context, state *models.FolderSyncState) error {
	span, ctx := opentracing.StartSpanFromContext(ctx, "syncStateRepository.SaveSyncState")
	defer span.Finish()
	tracing.TagComponentPostgresRepository(span)

	state.LastSync = time.Now()

	// Try to update first
	result := r.db.WithContext(ctx).
		Model(&models.FolderSyncState{}).
		Where("owner_id = ? AND folder = ?", state.OwnerID, state.Folder).
		Updates(map[string]interface{}{
			"last_uid":   state.LastUID,
			"last_sync":  state.LastSync,
			"updated_at": time.Now(),
		})

	// If no record was updated, create a new one
	if result.RowsAffected == 0 {
		if state.ID == "" {
			state.ID = utils.GenerateNanoIDWithPrefix("fss", 16)
		}
		result = r.db.WithContext(ctx).Create(state)
	}

	if result.Error != nil {
		tracing.TraceErr(span, result.Error)
		return fmt.Errorf("failed to save sync state: %w", result.Error)
	}

	return nil
}

// DeleteSyncState deletes the sync state for an owner's folder
func (r *syncStateRepository) DeleteSyncState(ctx context.Context, ownerID, folder string) error {
	span, ctx := opentracing.StartSpanFromContext(ctx, "syncStateRepository.DeleteSyncState")
	defer span.Finish()
	tracing.TagComponentPostgresRepository(span)

	result := r.db.WithContext(ctx).
		Where("owner_id = ? AND folder = ?", ownerID, folder).
		Delete(&models.FolderSyncState{})

	if result.Error != nil {
		tracing.TraceErr(span, result.Error)
		return fmt.Errorf("failed to delete sync state: %w", result.Error)
	}

	return nil
}
