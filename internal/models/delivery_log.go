package models

import (
	"time"

	"github.com/lib/pq"
	"gorm.io/gorm"

	"github.com/relocato/mailbridge/internal/utils"
)

// DeliveryLog records one pass through the delivery chain, successful or not.
type DeliveryLog struct {
	ID           string         `gorm:"column:id;type:varchar(50);primaryKey"`
	MessageID    string         `gorm:"column:message_id;type:varchar(255);index"`
	Subject      string         `gorm:"column:subject;type:varchar(1000)"`
	ToAddresses  pq.StringArray `gorm:"column:to_addresses;type:text[]"`
	Success      bool           `gorm:"column:success;index"`
	ProviderUsed string         `gorm:"column:provider_used;type:varchar(50)"`
	Attempts     JSONMap        `gorm:"column:attempts;type:jsonb"`
	CreatedAt    time.Time      `gorm:"column:created_at;type:timestamp;default:current_timestamp"`
}

func (DeliveryLog) TableName() string {
	return "delivery_logs"
}

func (d *DeliveryLog) BeforeCreate(tx *gorm.DB) error {
	if d.ID == "" {
		d.ID = utils.GenerateNanoIDWithPrefix("dlog", 16)
	}
	d.CreatedAt = utils.Now()
	return nil
}
