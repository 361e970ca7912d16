package services

import (
	"time"

	"github.com/relocato/mailbridge/config"
	"github.com/relocato/mailbridge/interfaces"
	"github.com/relocato/mailbridge/internal/logger"
	"github.com/relocato/mailbridge/internal/repository"
	"github.com/relocato/mailbridge/services/delivery"
	"github.com/relocato/mailbridge/services/health"
	"github.com/relocato/mailbridge/services/imap"
	"github.com/relocato/mailbridge/services/sync"
)

type Services struct {
	MailboxService  interfaces.MailboxService
	SyncService     interfaces.SyncService
	DeliveryService interfaces.DeliveryService
	HealthService   *health.HealthService
}

func InitServices(cfg *config.Config, log logger.Logger, repos *repository.Repositories) (*Services, error) {
	imapService := imap.NewIMAPService(cfg.MailboxConfig, log)

	providers := buildProviderChain(cfg, log)
	deliveryService := delivery.NewDeliveryService(log, providers, repos.DeliveryLogRepository)

	syncService := sync.NewSyncService(log, imapService, repos.EmailRepository, repos.SyncStateRepository, cfg.MailboxConfig.PageSize)

	healthService := health.NewHealthService(
		log,
		imapService,
		deliveryService,
		time.Duration(cfg.HealthConfig.FreshnessWindowSec)*time.Second,
	)

	services := Services{
		MailboxService:  imapService,
		SyncService:     syncService,
		DeliveryService: deliveryService,
		HealthService:   healthService,
	}

	return &services, nil
}

// buildProviderChain assembles delivery providers in configured order.
// Unknown names are skipped; the mock provider joins only when enabled.
func buildProviderChain(cfg *config.Config, log logger.Logger) []interfaces.DeliveryProvider {
	senderName := cfg.AppConfig.SenderName
	senderEmail := cfg.AppConfig.SenderEmail

	var providers []interfaces.DeliveryProvider
	for _, name := range cfg.DeliveryConfig.ProviderOrder {
		switch name {
		case "smtp":
			providers = append(providers, delivery.NewSMTPProvider(cfg.DeliveryConfig.SMTP, senderName, senderEmail))
		case "httpapi":
			providers = append(providers, delivery.NewHTTPAPIProvider(cfg.DeliveryConfig.HTTPApi, senderName, senderEmail))
		case "mock":
			if cfg.DeliveryConfig.EnableMock {
				providers = append(providers, delivery.NewMockProvider(log))
			}
		default:
			log.Warnf("Unknown delivery provider %q in provider order, skipping", name)
		}
	}

	if cfg.DeliveryConfig.EnableMock && !hasProvider(providers, "mock") {
		providers = append(providers, delivery.NewMockProvider(log))
	}

	return providers
}

func hasProvider(providers []interfaces.DeliveryProvider, name string) bool {
	for _, p := range providers {
		if p.Name() == name {
			return true
		}
	}
	return false
}
