package handlers

import (
	"github.com/relocato/mailbridge/internal/repository"
	"github.com/relocato/mailbridge/services"
)

type APIHandlers struct {
	Folders *FoldersHandler
	Emails  *EmailsHandler
	Sync    *SyncHandler
}

func InitHandlers(s *services.Services, repos *repository.Repositories) *APIHandlers {
	return &APIHandlers{
		Folders: NewFoldersHandler(s.MailboxService),
		Emails:  NewEmailsHandler(s.MailboxService, s.DeliveryService),
		Sync:    NewSyncHandler(s.SyncService),
	}
}
