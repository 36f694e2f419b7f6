package main

import (
	"fmt"

	"github.com/studiobook/payments-service/internal/config"
	"github.com/studiobook/payments-service/internal/logger"
	"github.com/studiobook/payments-service/internal/model"

	"github.com/joho/godotenv"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

func main() {
	_ = godotenv.Load()
	cfg, err := config.Load("internal/config/config.yaml")
	if err != nil {
		panic(fmt.Errorf("load config: %w", err))
	}

	log, err := logger.NewLogger()
	if err != nil {
		panic(fmt.Errorf("init logger: %w", err))
	}
	defer log.Sync()

	gdb, err := gorm.Open(postgres.Open(cfg.Postgres.DSN), &gorm.Config{})
	if err != nil {
		log.Fatalf("open postgres: %v", err)
	}

	if err := gdb.AutoMigrate(
		&model.PaymentTransaction{}, &model.Transfer{}, &model.Payout{},
		&model.Refund{}, &model.BusinessIntegration{}, &model.Appointment{},
		&model.Business{}, &model.WebhookEvent{},
	); err != nil {
		log.Fatalf("auto-migrate: %v", err)
	}
	log.Info("schema migrated")
}
