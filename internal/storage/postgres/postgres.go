// Package postgres stores arena definitions and match results in PostgreSQL
// using pgx v5, and applies the schema with golang-migrate.
package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"github.com/cory-johannsen/arena/internal/config"
)

// Connection and health-check timing.
const (
	DefaultHealthTimeout = 2 * time.Second
	connectAttempts      = 5
	connectBackoff       = 250 * time.Millisecond
)

// Pool is a pgx connection pool that was reachable when it was opened.
type Pool struct {
	pool   *pgxpool.Pool
	logger *zap.Logger
}

// NewPool opens a pool for cfg and pings it, retrying with doubling backoff
// while the server is still starting.
//
// Precondition: cfg has passed config validation.
// Postcondition: Returns a pool that answered a ping, or a non-nil error.
func NewPool(ctx context.Context, cfg config.DatabaseConfig, logger *zap.Logger) (*Pool, error) {
	poolCfg, err := pgxpool.ParseConfig(cfg.DSN())
	if err != nil {
		return nil, fmt.Errorf("parsing database config: %w", err)
	}
	poolCfg.MaxConns = cfg.MaxConns
	poolCfg.MinConns = cfg.MinConns
	poolCfg.MaxConnLifetime = cfg.MaxConnLifetime

	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("creating connection pool: %w", err)
	}

	wait := connectBackoff
	for attempt := 1; ; attempt++ {
		err = pool.Ping(ctx)
		if err == nil {
			break
		}
		if attempt == connectAttempts {
			pool.Close()
			return nil, fmt.Errorf("pinging %s:%d after %d attempts: %w", cfg.Host, cfg.Port, attempt, err)
		}
		logger.Warn("database not ready, retrying",
			zap.Int("attempt", attempt),
			zap.Duration("backoff", wait),
			zap.Error(err),
		)
		select {
		case <-ctx.Done():
			pool.Close()
			return nil, ctx.Err()
		case <-time.After(wait):
		}
		wait *= 2
	}
	return &Pool{pool: pool, logger: logger}, nil
}

// Health checks that the database answers within timeout.
// A non-positive timeout uses DefaultHealthTimeout.
func (p *Pool) Health(ctx context.Context, timeout time.Duration) error {
	if timeout <= 0 {
		timeout = DefaultHealthTimeout
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	return p.pool.Ping(ctx)
}

// Watch checks Health every interval and logs failures until ctx is done.
// It always returns nil so a flapping database never ends a match.
func (p *Pool) Watch(ctx context.Context, interval time.Duration) error {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			if err := p.Health(ctx, 0); err != nil && ctx.Err() == nil {
				p.logger.Warn("database health check failed", zap.Error(err))
			}
		}
	}
}

// Close releases all pool resources.
func (p *Pool) Close() {
	p.pool.Close()
}

// DB returns the underlying pgxpool.Pool for repositories.
func (p *Pool) DB() *pgxpool.Pool {
	return p.pool
}
