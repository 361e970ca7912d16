package models

import (
	"time"
)

// FolderSyncState tracks the highest synced UID per (owner, folder) so a
// scheduled sync resumes where the previous one stopped.
type FolderSyncState struct {
	ID        string    `gorm:"column:id;type:varchar(50);primaryKey"`
	OwnerID   string    `gorm:"column:owner_id;type:varchar(50);index;not null"`
	Folder    string    `gorm:"column:folder;type:varchar(100);index;not null"`
	LastUID   uint32    `gorm:"column:last_uid;not null"`
	LastSync  time.Time `gorm:"column:last_sync;type:timestamp;not null"`
	CreatedAt time.Time `gorm:"column:created_at;type:timestamp;default:current_timestamp"`
	UpdatedAt time.Time `gorm:"column:updated_at;type:timestamp;default:current_timestamp"`
}

func (FolderSyncState) TableName() string {
	return "folder_sync_states"
}
