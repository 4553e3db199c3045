package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq" // postgres driver

	"github.com/AntonStoeckl/provider-directory-go/directory/snapshotbuilder"
	"github.com/AntonStoeckl/provider-directory-go/internal/config"
)

// build-snapshot reads every table once, so a handful of connections is plenty.
const (
	upstreamMaxConns        = 4
	upstreamMaxConnLifetime = time.Hour
	upstreamMaxConnIdleTime = time.Minute * 5
	upstreamConnectTimeout  = time.Second * 5
)

// openUpstream connects to the configured upstream postgres database.
// The returned close func releases the connection pool.
func openUpstream(ctx context.Context, cfg config.PostgresConfig) (snapshotbuilder.Source, func(), error) {
	if cfg.DSN == "" {
		return nil, nil, fmt.Errorf("%w: postgres.dsn is required", config.ErrInvalidConfig)
	}

	schema := snapshotbuilder.WithSchema(cfg.Schema)

	switch cfg.Driver {
	case config.DriverPGX:
		pool, err := openPGXPool(ctx, cfg.DSN)
		if err != nil {
			return nil, nil, err
		}

		if cfg.ReplicaDSN == "" {
			source, sourceErr := snapshotbuilder.NewPGXSource(pool, schema)
			if sourceErr != nil {
				pool.Close()
				return nil, nil, sourceErr
			}

			return source, pool.Close, nil
		}

		replica, err := openPGXPool(ctx, cfg.ReplicaDSN)
		if err != nil {
			pool.Close()
			return nil, nil, err
		}

		closePools := func() {
			replica.Close()
			pool.Close()
		}

		source, err := snapshotbuilder.NewPGXReplicaSource(pool, replica, schema)
		if err != nil {
			closePools()
			return nil, nil, err
		}

		return source, closePools, nil

	case config.DriverPQ:
		db, err := sql.Open("postgres", cfg.DSN)
		if err != nil {
			return nil, nil, err
		}
		configureSQLPool(db)

		if err = db.PingContext(ctx); err != nil {
			return nil, nil, errors.Join(err, db.Close())
		}

		source, err := snapshotbuilder.NewSQLSource(db, schema)
		if err != nil {
			return nil, nil, errors.Join(err, db.Close())
		}

		return source, func() { _ = db.Close() }, nil

	case config.DriverSQLX:
		db, err := sqlx.ConnectContext(ctx, "postgres", cfg.DSN)
		if err != nil {
			return nil, nil, err
		}
		configureSQLPool(db.DB)

		source, err := snapshotbuilder.NewSQLXSource(db, schema)
		if err != nil {
			return nil, nil, errors.Join(err, db.Close())
		}

		return source, func() { _ = db.Close() }, nil

	default:
		return nil, nil, fmt.Errorf("%w: postgres.driver %q", config.ErrInvalidConfig, cfg.Driver)
	}
}

func openPGXPool(ctx context.Context, dsn string) (*pgxpool.Pool, error) {
	poolConfig, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, err
	}

	poolConfig.MaxConns = upstreamMaxConns
	poolConfig.MaxConnLifetime = upstreamMaxConnLifetime
	poolConfig.MaxConnIdleTime = upstreamMaxConnIdleTime
	poolConfig.ConnConfig.ConnectTimeout = upstreamConnectTimeout

	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		return nil, err
	}

	if err = pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, err
	}

	return pool, nil
}

func configureSQLPool(db *sql.DB) {
	db.SetMaxOpenConns(upstreamMaxConns)
	db.SetMaxIdleConns(upstreamMaxConns)
	db.SetConnMaxLifetime(upstreamMaxConnLifetime)
	db.SetConnMaxIdleTime(upstreamMaxConnIdleTime)
}
