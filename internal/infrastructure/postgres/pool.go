package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	pgxdecimal "github.com/jackc/pgx-shopspring-decimal"
	"github.com/jhoicas/joyeria-erp/pkg/config"
	"github.com/jhoicas/joyeria-erp/pkg/logger"
)

// NewPool abre el pool de PostgreSQL y verifica la conexión con un ping.
func NewPool(ctx context.Context, cfg config.DBConfig, log *logger.Logger) (*pgxpool.Pool, error) {
	pc, err := poolConfig(cfg)
	if err != nil {
		return nil, err
	}

	pool, err := pgxpool.NewWithConfig(ctx, pc)
	if err != nil {
		return nil, fmt.Errorf("crear pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping DB: %w", err)
	}
	log.Info().
		Str("host", pc.ConnConfig.Host).
		Str("database", pc.ConnConfig.Database).
		Int32("max_conns", pc.MaxConns).
		Msg("pool de PostgreSQL listo")
	return pool, nil
}

// poolConfig arma la configuración del pool. Los montos viajan como NUMERIC(14,3),
// así que cada conexión registra el codec de shopspring/decimal.
func poolConfig(cfg config.DBConfig) (*pgxpool.Config, error) {
	pc, err := pgxpool.ParseConfig(cfg.ConnectionString())
	if err != nil {
		return nil, fmt.Errorf("parse DSN: %w", err)
	}

	if cfg.MaxConns > 0 {
		pc.MaxConns = int32(cfg.MaxConns)
	}
	if cfg.MinConns >= 0 && int32(cfg.MinConns) <= pc.MaxConns {
		pc.MinConns = int32(cfg.MinConns)
	}
	if cfg.MaxConnLifetimeMinutes > 0 {
		pc.MaxConnLifetime = time.Duration(cfg.MaxConnLifetimeMinutes) * time.Minute
	}
	if cfg.MaxConnIdleMinutes > 0 {
		pc.MaxConnIdleTime = time.Duration(cfg.MaxConnIdleMinutes) * time.Minute
	}
	pc.HealthCheckPeriod = time.Minute

	pc.AfterConnect = func(ctx context.Context, conn *pgx.Conn) error {
		pgxdecimal.Register(conn.TypeMap())
		return nil
	}
	return pc, nil
}
