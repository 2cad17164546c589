package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/jhoicas/joyeria-erp/internal/application/billing"
	"github.com/jhoicas/joyeria-erp/internal/domain/inventory"
	"github.com/jhoicas/joyeria-erp/internal/infrastructure/events"
	"github.com/jhoicas/joyeria-erp/internal/infrastructure/lock"
	"github.com/jhoicas/joyeria-erp/internal/infrastructure/memory"
	"github.com/jhoicas/joyeria-erp/internal/infrastructure/postgres"
	httpRouter "github.com/jhoicas/joyeria-erp/internal/interfaces/http"
	"github.com/jhoicas/joyeria-erp/pkg/config"
	"github.com/jhoicas/joyeria-erp/pkg/logger"
	"github.com/shopspring/decimal"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic("cargar configuración: " + err.Error())
	}

	log := logger.New(logger.Config{
		Env:   cfg.App.Env,
		Level: cfg.App.LogLevel,
	})
	log.Info().
		Str("env", cfg.App.Env).
		Str("app", cfg.App.Name).
		Msg("iniciando aplicación")

	opts, err := billingOptions(cfg.Billing)
	if err != nil {
		log.Fatal().Err(err).Msg("configuración de facturación")
	}

	ctx := context.Background()

	// Almacén: PostgreSQL si hay DB configurada; si no, memoria con datos de demostración.
	var (
		txRunner  billing.BillingTxRunner
		storeName string
	)
	if cfg.DB.Enabled() {
		pool, err := postgres.NewPool(ctx, cfg.DB, log)
		if err != nil {
			log.Fatal().Err(err).Msg("conexión a PostgreSQL")
		}
		defer pool.Close()
		txRunner, storeName = postgres.NewTxRunner(pool), "postgres"
	} else {
		store := memory.NewStore()
		store.SeedDemo(time.Now().UTC())
		txRunner, storeName = store, "memory"
		log.Warn().Msg("DB_HOST/DATABASE_URL vacíos: usando almacén en memoria (los datos no persisten)")
	}

	var locker billing.RecordLocker
	if cfg.Redis.Addr != "" {
		rdb, err := lock.NewRedisClient(ctx, cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB)
		if err != nil {
			log.Fatal().Err(err).Msg("conexión a Redis")
		}
		defer rdb.Close()
		locker = lock.NewRedisLocker(rdb, time.Duration(cfg.Billing.LockTTLSeconds)*time.Second, log)
	} else {
		locker = lock.NewLocalLocker()
	}

	var publisher billing.EventPublisher
	if cfg.PubSub.Enabled() {
		ps, err := events.NewPubSubPublisher(ctx, cfg.PubSub.ProjectID, cfg.PubSub.TopicID, cfg.PubSub.CredentialsFile)
		if err != nil {
			log.Fatal().Err(err).Msg("cliente Pub/Sub")
		}
		defer ps.Close()
		publisher = ps
	} else {
		publisher = events.NewLogPublisher(log)
	}

	documentUC := billing.NewDocumentUseCase(txRunner, opts, log)
	finalizeUC := billing.NewFinalizeUseCase(txRunner, locker, publisher, opts, log)
	paymentUC := billing.NewPaymentUseCase(txRunner, locker, publisher, log)

	app := fiber.New(fiber.Config{
		AppName:      cfg.App.Name,
		ReadTimeout:  time.Second * 10,
		WriteTimeout: time.Second * 10,
		IdleTimeout:  time.Second * 60,
	})
	app.Use(recover.New())

	httpRouter.Router(app, httpRouter.RouterDeps{
		Documents: documentUC,
		Finalize:  finalizeUC,
		Payments:  paymentUC,
		JWTSecret: cfg.JWT.Secret,
		Store:     storeName,
		Log:       log,
	})

	go func() {
		if err := app.Listen(cfg.HTTP.Addr()); err != nil {
			log.Error().Err(err).Msg("servidor HTTP finalizado")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("señal de apagado recibida, cerrando servidor...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := app.ShutdownWithContext(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("apagado del servidor")
	}

	log.Info().Msg("aplicación detenida")
}

func billingOptions(cfg config.BillingConfig) (billing.Options, error) {
	stock, err := inventory.ParseStockPolicy(cfg.StockPolicy)
	if err != nil {
		return billing.Options{}, err
	}
	totals, err := billing.ParseTotalsPolicy(cfg.TotalsPolicy)
	if err != nil {
		return billing.Options{}, err
	}
	opts := billing.Options{StockPolicy: stock, TotalsPolicy: totals}
	if cfg.DefaultVATPercent != "" {
		vat, err := decimal.NewFromString(cfg.DefaultVATPercent)
		if err != nil {
			return billing.Options{}, err
		}
		opts.DefaultVATPercent = decimal.NewNullDecimal(vat)
	}
	return opts, nil
}
