package postgres

import (
	"context"

	"uplora/internal/config"
	"uplora/internal/repository"

	"github.com/jackc/pgx/v5/pgxpool"
)

var (
	_ repository.UserRepository          = (*UserRepository)(nil)
	_ repository.TeamRepository          = (*TeamRepository)(nil)
	_ repository.InviteRepository        = (*InviteRepository)(nil)
	_ repository.VideoRepository         = (*VideoRepository)(nil)
	_ repository.UploadLockRepository    = (*UploadLockRepository)(nil)
	_ repository.PasswordResetRepository = (*PasswordResetRepository)(nil)
	_ repository.Transactor              = (*DB)(nil)
)

type DB struct {
	Pool *pgxpool.Pool
}

func New(cfg *config.DatabaseConfig) (*DB, error) {
	poolConfig, err := pgxpool.ParseConfig(cfg.DSN())
	if err != nil {
		return nil, errFailedParseDatabaseConfig(err)
	}

	poolConfig.MaxConns = int32(cfg.MaxConns)
	poolConfig.MinConns = int32(cfg.MinConns)
	poolConfig.HealthCheckPeriod = poolHealthCheckPeriod
	poolConfig.MaxConnLifetime = poolMaxConnLifetime
	poolConfig.MaxConnIdleTime = poolMaxConnIdleTime

	pool, err := pgxpool.NewWithConfig(context.Background(), poolConfig)
	if err != nil {
		return nil, errFailedCreateConnectionPool(err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), dbPingTimeout)
	defer cancel()

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, errFailedPingDatabase(err)
	}

	return &DB{Pool: pool}, nil
}

func (db *DB) Close() {
	if db.Pool != nil {
		db.Pool.Close()
	}
}
