package models

import (
	"time"

	"github.com/lib/pq"
	"gorm.io/gorm"

	"github.com/relocato/mailbridge/internal/utils"
)

// Email is the stored form of a synced message. The natural key is
// (owner_id, folder, imap_uid); writes against the same key are idempotent.
type Email struct {
	ID        string `gorm:"column:id;type:varchar(50);primaryKey"`
	OwnerID   string `gorm:"column:owner_id;type:varchar(50);uniqueIndex:idx_owner_folder_uid;not null"`
	Folder    string `gorm:"column:folder;type:varchar(100);uniqueIndex:idx_owner_folder_uid;not null"`
	ImapUID   uint32 `gorm:"column:imap_uid;uniqueIndex:idx_owner_folder_uid;not null"`
	MessageID string `gorm:"column:message_id;type:varchar(255);index"`

	// Core email metadata
	Subject      string         `gorm:"column:subject;type:varchar(1000)"`
	CleanSubject string         `gorm:"column:clean_subject;type:varchar(1000);index"`
	Preview      string         `gorm:"column:preview;type:varchar(200)"`
	FromAddress  string         `gorm:"column:from_address;type:varchar(255);index"`
	FromName     string         `gorm:"column:from_name;type:varchar(255)"`
	ToAddresses  pq.StringArray `gorm:"column:to_addresses;type:text[]"`
	CcAddresses  pq.StringArray `gorm:"column:cc_addresses;type:text[]"`
	Flags        pq.StringArray `gorm:"column:flags;type:text[]"`

	// Time information
	SentAt   *time.Time `gorm:"column:sent_at;type:timestamp;index"`
	SyncedAt time.Time  `gorm:"column:synced_at;type:timestamp;not null"`

	// Content
	BodyText      string `gorm:"column:body_text;type:text"`
	BodyHTML      string `gorm:"column:body_html;type:text"`
	SizeBytes     uint32 `gorm:"column:size_bytes"`
	HasAttachment bool   `gorm:"column:has_attachment;default:false"`

	// Raw data
	RawHeaders  JSONMap `gorm:"column:raw_headers;type:jsonb"`
	Attachments JSONMap `gorm:"column:attachments;type:jsonb"`

	// Standard timestamps
	CreatedAt time.Time      `gorm:"column:created_at;type:timestamp;default:current_timestamp"`
	UpdatedAt time.Time      `gorm:"column:updated_at;type:timestamp;default:current_timestamp"`
	DeletedAt gorm.DeletedAt `gorm:"column:deleted_at;index"`
}

func (Email) TableName() string {
	return "emails"
}

func (e *Email) BeforeCreate(tx *gorm.DB) error {
	if e.ID == "" {
		e.ID = utils.GenerateNanoIDWithPrefix("email", 24)
	}
	e.CreatedAt = utils.Now()
	return nil
}
