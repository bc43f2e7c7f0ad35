package database

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	_ "github.com/lib/pq"
)

const (
	defaultMaxPoolSize       = 25
	defaultMinPoolSize       = 5
	defaultMaxConnIdleTime   = 5 * time.Minute
	defaultMaxConnLifetime   = 1 * time.Hour
	defaultHealthCheckPeriod = 1 * time.Minute
	connectTimeout           = 5 * time.Second
	connectAttempts          = 5
	connectRetryDelay        = 2 * time.Second
)

// NewPostgresPool создает пул соединений и дожидается, пока база станет доступна.
// В docker-compose сервис стартует раньше Postgres, поэтому ping повторяется несколько раз.
func NewPostgresPool(ctx context.Context, dsn string, logger *slog.Logger) (*pgxpool.Pool, error) {
	config, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("unable to parse database DSN: %w", err)
	}

	config.MaxConns = defaultMaxPoolSize
	config.MinConns = defaultMinPoolSize
	config.MaxConnIdleTime = defaultMaxConnIdleTime
	config.MaxConnLifetime = defaultMaxConnLifetime
	config.HealthCheckPeriod = defaultHealthCheckPeriod

	pool, err := pgxpool.NewWithConfig(ctx, config)
	if err != nil {
		return nil, fmt.Errorf("unable to create connection pool: %w", err)
	}

	for attempt := 1; ; attempt++ {
		pingCtx, cancel := context.WithTimeout(ctx, connectTimeout)
		err = pool.Ping(pingCtx)
		cancel()
		if err == nil {
			break
		}
		if attempt == connectAttempts {
			pool.Close()
			return nil, fmt.Errorf("unable to ping database after %d attempts: %w", attempt, err)
		}
		logger.Warn("Database is not ready, retrying",
			slog.Int("attempt", attempt), slog.String("error", err.Error()))

		select {
		case <-ctx.Done():
			pool.Close()
			return nil, ctx.Err()
		case <-time.After(connectRetryDelay):
		}
	}

	logger.Info("Successfully connected to database")
	return pool, nil
}

func BuildDSN(cfgHost, cfgPort, cfgUser, cfgPassword, cfgName, cfgSSLMode string) string {
	return fmt.Sprintf("host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		cfgHost, cfgPort, cfgUser, cfgPassword, cfgName, cfgSSLMode)
}

// BuildMigrationURL собирает URL в формате golang-migrate (драйвер postgres на lib/pq).
func BuildMigrationURL(cfgHost, cfgPort, cfgUser, cfgPassword, cfgName, cfgSSLMode string) string {
	u := url.URL{
		Scheme:   "postgres",
		User:     url.UserPassword(cfgUser, cfgPassword),
		Host:     cfgHost + ":" + cfgPort,
		Path:     "/" + cfgName,
		RawQuery: "sslmode=" + url.QueryEscape(cfgSSLMode) + "&x-migrations-table=schema_migrations",
	}
	return u.String()
}
