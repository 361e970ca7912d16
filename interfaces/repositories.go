package interfaces

import (
	"context"

	"github.com/relocato/mailbridge/internal/models"
)

// UpsertMode selects how an existing record is combined with an incoming one.
type UpsertMode string

const (
	// UpsertModeMerge keeps stored fields the incoming record does not supply.
	UpsertModeMerge UpsertMode = "merge"
	// UpsertModeReplace overwrites the stored record outright.
	UpsertModeReplace UpsertMode = "replace"
)

type EmailRepository interface {
	// Upsert writes a message under its (ownerId, folder, uid) key and
	// reports whether the store changed.
	Upsert(ctx context.Context, email *models.Email, mode UpsertMode) (bool, error)
	GetByKey(ctx context.Context, ownerID, folder string, uid uint32) (*models.Email, error)
	ListByFolder(ctx context.Context, ownerID, folder string, limit int) ([]models.Email, error)
}

type SyncStateRepository interface {
	GetSyncState(ctx context.Context, ownerID, folder string) (*models.FolderSyncState, error)
	SaveSyncState(ctx context.Context, state *models.FolderSyncState) error
	DeleteSyncState(ctx context.Context, ownerID, folder string) error
}

type DeliveryLogRepository interface {
	Create(ctx context.Context, log *models.DeliveryLog) error
	ListRecent(ctx context.Context, limit int) ([]models.DeliveryLog, error)
}
