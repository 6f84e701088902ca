package config

import (
	"context"
	"database/sql"
	"errors"
	"io"

	"github.com/go-sql-driver/mysql"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq" // postgres driver

	"github.com/AntonStoeckl/asyncsql-go/asyncsql/engine"
)

type closerFunc func() error

func (f closerFunc) Close() error {
	return f()
}

// OpenEngine builds the toolkit pool described by cfg, checks that the database is reachable and
// wraps the pool in an Engine. The returned io.Closer closes the pool.
// Options are applied after the ones derived from cfg.
func OpenEngine(ctx context.Context, cfg Config, options ...engine.Option) (*engine.Engine, io.Closer, error) {
	if err := cfg.Validate(); err != nil {
		return nil, nil, err
	}

	allOptions := append([]engine.Option{
		engine.WithDialect(cfg.Dialect),
		engine.WithArraySize(cfg.Engine.ArraySize),
	}, options...)

	switch cfg.Adapter {
	case AdapterPGXPool:
		pool, err := openPGXPool(ctx, cfg)
		if err != nil {
			return nil, nil, err
		}

		e, err := engine.NewEngineFromPGXPool(pool, allOptions...)
		if err != nil {
			pool.Close()
			return nil, nil, err
		}

		return e, closerFunc(func() error { pool.Close(); return nil }), nil

	case AdapterSQLXDB:
		db, err := openSQLDB(ctx, cfg)
		if err != nil {
			return nil, nil, err
		}

		e, err := engine.NewEngineFromSQLX(sqlx.NewDb(db, cfg.Driver), allOptions...)
		if err != nil {
			return nil, nil, errors.Join(err, db.Close())
		}

		return e, db, nil

	default:
		db, err := openSQLDB(ctx, cfg)
		if err != nil {
			return nil, nil, err
		}

		e, err := engine.NewEngineFromSQLDB(db, allOptions...)
		if err != nil {
			return nil, nil, errors.Join(err, db.Close())
		}

		return e, db, nil
	}
}

func openPGXPool(ctx context.Context, cfg Config) (*pgxpool.Pool, error) {
	poolConfig, err := pgxpool.ParseConfig(cfg.DSN)
	if err != nil {
		return nil, err
	}

	if cfg.Pool.MaxOpenConns > 0 {
		poolConfig.MaxConns = int32(cfg.Pool.MaxOpenConns)
	}

	poolConfig.MaxConnLifetime = cfg.Pool.MaxConnLifetime
	poolConfig.MaxConnIdleTime = cfg.Pool.MaxConnIdleTime
	poolConfig.ConnConfig.ConnectTimeout = cfg.Pool.ConnectTimeout

	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		return nil, err
	}

	pingCtx, cancel := withConnectTimeout(ctx, cfg)
	defer cancel()

	if pingErr := pool.Ping(pingCtx); pingErr != nil {
		pool.Close()
		return nil, pingErr
	}

	return pool, nil
}

func openSQLDB(ctx context.Context, cfg Config) (*sql.DB, error) {
	dsn := cfg.DSN

	if cfg.Driver == DriverMySQL {
		normalized, err := normalizeMySQLDSN(dsn)
		if err != nil {
			return nil, err
		}

		dsn = normalized
	}

	db, err := sql.Open(cfg.Driver, dsn)
	if err != nil {
		return nil, err
	}

	db.SetMaxOpenConns(cfg.Pool.MaxOpenConns)
	db.SetMaxIdleConns(cfg.Pool.MaxIdleConns)
	db.SetConnMaxLifetime(cfg.Pool.MaxConnLifetime)
	db.SetConnMaxIdleTime(cfg.Pool.MaxConnIdleTime)

	pingCtx, cancel := withConnectTimeout(ctx, cfg)
	defer cancel()

	if pingErr := db.PingContext(pingCtx); pingErr != nil {
		_ = db.Close()
		return nil, pingErr
	}

	return db, nil
}

func withConnectTimeout(ctx context.Context, cfg Config) (context.Context, context.CancelFunc) {
	if cfg.Pool.ConnectTimeout <= 0 {
		return context.WithCancel(ctx)
	}

	return context.WithTimeout(ctx, cfg.Pool.ConnectTimeout)
}

// normalizeMySQLDSN makes DATETIME and TIMESTAMP columns scan into time.Time.
func normalizeMySQLDSN(dsn string) (string, error) {
	mysqlConfig, err := mysql.ParseDSN(dsn)
	if err != nil {
		return "", err
	}

	mysqlConfig.ParseTime = true

	return mysqlConfig.FormatDSN(), nil
}
