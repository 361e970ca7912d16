package repository

import (
	"gorm.io/gorm"

	"github.com/relocato/mailbridge/interfaces"
	"github.com/relocato/mailbridge/internal/models"
)

type Repositories struct {
	EmailRepository       interfaces.EmailRepository
	SyncStateRepository   interfaces.SyncStateRepository
	DeliveryLogRepository interfaces.DeliveryLogRepository
}

func InitRepositories(db *gorm.DB) *Repositories {
	return &Repositories{
		EmailRepository:       NewEmailRepository(db),
		SyncStateRepository:   NewSyncStateRepository(db),
		DeliveryLogRepository: NewDeliveryLogRepository(db),
	}
}

func MigrateDB(db *gorm.DB) error {
	return db.AutoMigrate(
		&models.Email{},
		&models.FolderSyncState{},
		&models.DeliveryLog{},
	)
}
