// Package postgres provides a Postgres-backed catalog source.
package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/vidstream-labs/searchcore/internal/catalog"
)

// SourceConfig controls the Postgres connection pool used for catalog reads.
type SourceConfig struct {
	DSN             string
	MaxConns        int32
	MinConns        int32
	MaxConnLifetime time.Duration
}

type queryCloser interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	Close()
}

// Source reads searchable videos from Postgres.
type Source struct {
	pool queryCloser
}

// NewSource creates a Postgres-backed Source using the provided config.
func NewSource(ctx context.Context, cfg SourceConfig) (*Source, error) {
	if cfg.DSN == "" {
		return nil, fmt.Errorf("catalog.dsn is required")
	}
	poolCfg, err := pgxpool.ParseConfig(cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("parse postgres dsn: %w", err)
	}
	if cfg.MaxConns > 0 {
		poolCfg.MaxConns = cfg.MaxConns
	}
	if cfg.MinConns > 0 {
		poolCfg.MinConns = cfg.MinConns
	}
	if cfg.MaxConnLifetime > 0 {
		poolCfg.MaxConnLifetime = cfg.MaxConnLifetime
	}
	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("connect postgres: %w", err)
	}
	return &Source{pool: pool}, nil
}

// NewSourceWithPool constructs a Source from an existing pool (primarily for testing).
func NewSourceWithPool(pool queryCloser) (*Source, error) {
	if pool == nil {
		return nil, fmt.Errorf("pool is required")
	}
	return &Source{pool: pool}, nil
}

// Close releases the underlying pool resources.
func (s *Source) Close() {
	if s == nil || s.pool == nil {
		return
	}
	s.pool.Close()
}

// ListVideos returns catalog rows, restricted to scope when supplied.
func (s *Source) ListVideos(ctx context.Context, scope []int64) ([]catalog.Video, error) {
	if s == nil || s.pool == nil {
		return nil, fmt.Errorf("catalog source is not configured")
	}

	var (
		rows pgx.Rows
		err  error
	)
	if len(scope) > 0 {
		rows, err = s.pool.Query(ctx,
			`SELECT id, title, description FROM videos WHERE id = ANY($1) ORDER BY id`, scope)
	} else {
		rows, err = s.pool.Query(ctx,
			`SELECT id, title, description FROM videos ORDER BY id`)
	}
	if err != nil {
		return nil, fmt.Errorf("query videos: %w", err)
	}
	defer rows.Close()

	var videos []catalog.Video
	for rows.Next() {
		var (
			v    catalog.Video
			desc *string
		)
		if err := rows.Scan(&v.ID, &v.Title, &desc); err != nil {
			return nil, fmt.Errorf("scan video row: %w", err)
		}
		if desc != nil {
			v.Description = *desc
		}
		videos = append(videos, v)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate video rows: %w", err)
	}
	return videos, nil
}
