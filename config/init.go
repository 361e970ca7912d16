package config

import (
	"log"

	"github.com/caarlos0/env/v6"
	"github.com/joho/godotenv"

	"github.com/relocato/mailbridge/internal/database"
	"github.com/relocato/mailbridge/internal/logger"
	"github.com/relocato/mailbridge/internal/tracing"
)

type Config struct {
	AppConfig      *AppConfig
	Logger         *logger.Config
	Tracing        *tracing.JaegerConfig
	DatabaseConfig *database.DatabaseConfig
	MailboxConfig  *MailboxConfig
	DeliveryConfig *DeliveryConfig
	HealthConfig   *HealthConfig
}

func InitConfig() (*Config, error) {
	config := &Config{
		AppConfig:      &AppConfig{},
		Logger:         &logger.Config{},
		Tracing:        &tracing.JaegerConfig{},
		DatabaseConfig: &database.DatabaseConfig{},
		MailboxConfig:  &MailboxConfig{},
		DeliveryConfig: &DeliveryConfig{
			SMTP:    &SMTPConfig{},
			HTTPApi: &HTTPDeliveryConfig{},
		},
		HealthConfig: &HealthConfig{},
	}

	err := godotenv.Load()
	if err != nil {
		log.Print("Unable to load .env file")
	}

	err = env.Parse(config)
	if err != nil {
		log.Fatalf("Error loading mailbridge config: %v", err)
	}

	return config, nil
}
