package postgres

import (
	"context"
	"database/sql"
	"time"

	"github.com/focusdeck/creditcore/internal/config"
	"github.com/focusdeck/creditcore/internal/logger"
	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
)

// IClient defines the interface for postgres client operations
type IClient interface {
	// WithTx wraps the given function in a transaction
	WithTx(ctx context.Context, fn func(context.Context) error) error

	// TxFromContext returns the transaction from context if it exists
	TxFromContext(ctx context.Context) *sqlx.Tx

	// Querier returns the current transaction if in a transaction, or the
	// regular connection pool
	Querier(ctx context.Context) Querier
}

// Querier defines the database operations shared by *sqlx.DB and *sqlx.Tx
type Querier interface {
	ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...interface{}) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...interface{}) *sql.Row
	GetContext(ctx context.Context, dest interface{}, query string, args ...interface{}) error
	SelectContext(ctx context.Context, dest interface{}, query string, args ...interface{}) error
	NamedExec(query string, arg interface{}) (sql.Result, error)
	NamedQuery(query string, arg interface{}) (*sqlx.Rows, error)
}

// DB wraps sqlx.DB to provide transaction management
type DB struct {
	*sqlx.DB
	logger *logger.Logger
}

var _ IClient = (*DB)(nil)

// NewDB creates a new DB instance
func NewDB(cfg *config.Configuration, logger *logger.Logger) (*DB, error) {
	db, err := sqlx.Connect("postgres", cfg.Postgres.GetDSN())
	if err != nil {
		return nil, err
	}

	db.SetMaxOpenConns(cfg.Postgres.MaxOpenConns)
	db.SetMaxIdleConns(cfg.Postgres.MaxIdleConns)
	db.SetConnMaxLifetime(time.Duration(cfg.Postgres.ConnMaxLifetime) * time.Minute)

	return &DB{DB: db, logger: logger}, nil
}

// Close closes the database connection
func (db *DB) Close() {
	if err := db.DB.Close(); err != nil {
		db.logger.Errorw("error closing database", "error", err)
	}
}

// Querier returns either the transaction from context or the base DB
func (db *DB) Querier(ctx context.Context) Querier {
	if tx := db.TxFromContext(ctx); tx != nil {
		return tx
	}
	return db.DB
}

// NamedExecContext is a helper method that wraps NamedExec with context
func (db *DB) NamedExecContext(ctx context.Context, query string, arg interface{}) (sql.Result, error) {
	return db.Querier(ctx).NamedExec(query, arg)
}

// NamedQueryContext is a helper method that wraps NamedQuery with context
func (db *DB) NamedQueryContext(ctx context.Context, query string, arg interface{}) (*sqlx.Rows, error) {
	return db.Querier(ctx).NamedQuery(query, arg)
}
