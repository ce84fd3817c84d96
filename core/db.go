package core

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
)

// Connect opens a pgx connection pool with conservative defaults.
func Connect(ctx context.Context, dsn string) (*pgxpool.Pool, error) {
	if dsn == "" {
		return nil, errors.New("empty database dsn")
	}

	config, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, err
	}
	config.MaxConns = 10
	config.MinConns = 1
	config.MaxConnLifetime = 30 * time.Minute
	config.MaxConnIdleTime = 5 * time.Minute
	config.HealthCheckPeriod = 30 * time.Second

	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	pool, err := pgxpool.NewWithConfig(ctx, config)
	if err != nil {
		return nil, err
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, err
	}

	return pool, nil
}

const usersSchema = `
CREATE TABLE IF NOT EXISTS users (
	id            BIGSERIAL PRIMARY KEY,
	username      VARCHAR(25)  NOT NULL CHECK (char_length(username) >= 3),
	password_hash TEXT         NOT NULL,
	email         VARCHAR(255) NOT NULL UNIQUE,
	enabled       BOOLEAN      NOT NULL DEFAULT TRUE,
	role          VARCHAR(16)  NOT NULL DEFAULT 'USER' CHECK (role IN ('USER', 'ADMIN')),
	created       TIMESTAMPTZ  NOT NULL DEFAULT now(),
	updated       TIMESTAMPTZ  NOT NULL DEFAULT now(),
	first_name    TEXT         NOT NULL DEFAULT '',
	last_name     TEXT         NOT NULL DEFAULT '',
	country       TEXT         NOT NULL DEFAULT '',
	city          TEXT         NOT NULL DEFAULT '',
	delivery_info TEXT         NOT NULL DEFAULT ''
)`

// EnsureSchema creates the users table when it does not exist yet.
func EnsureSchema(ctx context.Context, db *pgxpool.Pool) error {
	_, err := db.Exec(ctx, usersSchema)
	return err
}
