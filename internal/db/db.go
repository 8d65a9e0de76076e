package db

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/raketaclean/cleanbot/internal/config"
)

// Open creates a bounded pgx connection pool from config.
func Open(ctx context.Context, cfg config.PostgresConfig) (*pgxpool.Pool, error) {
	poolCfg, err := pgxpool.ParseConfig(DSN(cfg))
	if err != nil {
		return nil, fmt.Errorf("parse postgres config: %w", err)
	}
	if cfg.PoolMin > 0 {
		poolCfg.MinConns = int32(cfg.PoolMin)
	}
	if cfg.PoolMax > 0 {
		poolCfg.MaxConns = int32(cfg.PoolMax)
	}
	return pgxpool.NewWithConfig(ctx, poolCfg)
}
