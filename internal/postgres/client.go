package postgres

import (
	"context"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
	"github.com/omnidesk/omnidesk/internal/config"
	ierr "github.com/omnidesk/omnidesk/internal/errors"
	"github.com/omnidesk/omnidesk/internal/logger"
)

// txKey carries an open transaction through the context so repositories
// joined into the same unit of work share it transparently.
type txKey struct{}

// IClient is the postgres access boundary used by the repositories.
type IClient interface {
	// Conn returns the transaction bound to ctx if one is open, otherwise
	// the shared connection pool.
	Conn(ctx context.Context) sqlx.ExtContext

	// WithTx runs fn inside a transaction. The transaction is committed when
	// fn returns nil and rolled back otherwise.
	WithTx(ctx context.Context, fn func(ctx context.Context) error) error

	// Ping verifies the connection is alive.
	Ping(ctx context.Context) error

	Close() error
}

type client struct {
	db     *sqlx.DB
	logger *logger.Logger
}

// NewClient opens a postgres connection pool from configuration.
func NewClient(cfg *config.Configuration, log *logger.Logger) (IClient, error) {
	db, err := sqlx.Open("postgres", cfg.Postgres.GetDSN())
	if err != nil {
		return nil, ierr.WithError(err).
			WithHint("Failed to open postgres connection").
			Mark(ierr.ErrDatabase)
	}

	return &client{db: db, logger: log}, nil
}

func (c *client) Conn(ctx context.Context) sqlx.ExtContext {
	if tx, ok := ctx.Value(txKey{}).(*sqlx.Tx); ok {
		return tx
	}
	return c.db
}

func (c *client) WithTx(ctx context.Context, fn func(ctx context.Context) error) error {
	if _, ok := ctx.Value(txKey{}).(*sqlx.Tx); ok {
		// Already inside a transaction; join it.
		return fn(ctx)
	}

	tx, err := c.db.BeginTxx(ctx, nil)
	if err != nil {
		return ierr.WithError(err).
			WithHint("Failed to begin transaction").
			Mark(ierr.ErrDatabase)
	}

	if err := fn(context.WithValue(ctx, txKey{}, tx)); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil {
			c.logger.Errorw("transaction rollback failed", "error", rbErr)
		}
		return err
	}

	if err := tx.Commit(); err != nil {
		return ierr.WithError(err).
			WithHint("Failed to commit transaction").
			Mark(ierr.ErrDatabase)
	}
	return nil
}

func (c *client) Ping(ctx context.Context) error {
	return c.db.PingContext(ctx)
}

func (c *client) Close() error {
	return c.db.Close()
}
