package main

import (
	"context"
	"fmt"
	"net/http"

	"github.com/studiobook/payments-service/internal/config"
	"github.com/studiobook/payments-service/internal/logger"
	"github.com/studiobook/payments-service/internal/model"
	"github.com/studiobook/payments-service/internal/notify"
	"github.com/studiobook/payments-service/internal/repo"
	"github.com/studiobook/payments-service/internal/service"
	httptransport "github.com/studiobook/payments-service/internal/transport/http"
	"github.com/studiobook/payments-service/internal/webhook"

	"github.com/go-redis/redis/v8"
	"github.com/joho/godotenv"
	"github.com/segmentio/kafka-go"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

func main() {
	// 1. env + config
	_ = godotenv.Load()
	cfg, err := config.Load("internal/config/config.yaml")
	if err != nil {
		panic(fmt.Errorf("load config: %w", err))
	}

	// 2. init logger
	log, err := logger.NewLogger()
	if err != nil {
		panic(fmt.Errorf("init logger: %w", err))
	}
	defer log.Sync()

	// 3. postgres
	gdb, err := gorm.Open(postgres.Open(cfg.Postgres.DSN), &gorm.Config{PrepareStmt: true})
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

	// 4. redis, optional: the duplicate-delivery cache is best-effort
	var rdb *redis.Client
	if cfg.Redis.Addr != "" {
		rdb = redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		if err := rdb.Ping(context.Background()).Err(); err != nil {
			log.Warnf("redis unreachable, delivery cache disabled: %v", err)
			rdb = nil
		}
	}

	// 5. kafka writer for owner notifications
	kw := &kafka.Writer{
		Addr:     kafka.TCP(cfg.Kafka.Brokers...),
		Topic:    cfg.Kafka.Topic,
		Balancer: &kafka.LeastBytes{},
	}
	defer kw.Close()

	// 6. repo, notifier, services
	repository := repo.NewRepository(gdb, rdb, log)
	notifier := notify.NewDispatcher(repository, notify.NewKafkaSender(kw), log)
	reconciler := service.NewAppointmentReconciler(repository, log)
	payments := service.NewPaymentService(repository, reconciler, notifier, log)
	transfers := service.NewTransferService(repository, notifier, log)
	payouts := service.NewPayoutService(repository, notifier, log)
	accountAPI := service.NewStripeAccountAPI(cfg.Stripe.APIKey)
	accounts := service.NewAccountService(repository, accountAPI, notifier, log)

	// 7. webhook pipeline
	verifier := webhook.NewVerifier(cfg.Stripe.WebhookSecret)
	dispatcher := webhook.NewDispatcher(repository, log)
	webhook.RegisterRoutes(dispatcher, payments, transfers, payouts, accounts)

	// 8. gin router + serve
	router := httptransport.NewRouter(verifier, dispatcher, accounts, cfg.RateLimit, log)
	addr := fmt.Sprintf(":%d", cfg.Server.Port)
	log.Infof("payments-server listening on %s", addr)
	if err := http.ListenAndServe(addr, router); err != nil {
		log.Fatalf("listen: %v", err)
	}
}
