// Package warehouse materializes the star schema and loads it idempotently.
package warehouse

import (
	"context"
	"database/sql"
	stderrors "errors"

	"fintechbi/internal/observability"
	"fintechbi/pkg/errors"

	// Registered drivers, selected by URL scheme.
	_ "github.com/go-sql-driver/mysql"
	_ "github.com/jackc/pgx/v5/stdlib"
	_ "github.com/snowflakedb/gosnowflake"
	_ "modernc.org/sqlite"
)

// Upsert strategies
const (
	StrategyAuto         = "auto"
	StrategyNative       = "native"
	StrategyDeleteInsert = "delete_insert"
)

// CredentialSource resolves named secrets.
type CredentialSource interface {
	Get(name string) (string, error)
}

// Options configure a Warehouse.
type Options struct {
	Strategy string
	// Credential names the entry holding the password when the URL has none.
	Credential  string
	Credentials CredentialSource
	Logger      *observability.Logger
}

// Warehouse is a connection to the star schema store.
type Warehouse struct {
	db       *sql.DB
	dialect  *Dialect
	strategy string
	logger   *observability.Logger
}

type querier interface {
	ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error)
}

// Open connects to the warehouse named by rawURL and checks it is reachable.
// A sqlite database file and its directory are created when missing.
func Open(ctx context.Context, rawURL string, opts Options) (*Warehouse, error) {
	target, err := ParseURL(rawURL)
	if err != nil {
		return nil, err
	}

	if target.NeedsPassword() && opts.Credential != "" {
		if opts.Credentials == nil {
			return nil, errors.New(errors.ErrCodeCredentialMissing, "No credential store available").
				WithContext("credential", opts.Credential)
		}
		password, err := opts.Credentials.Get(opts.Credential)
		if err != nil {
			return nil, errors.Wrap(err, errors.ErrCodeCredentialMissing, "Failed to resolve warehouse password").
				WithContext("credential", opts.Credential).
				WithSuggestions("Run 'fintechbi setup' to store the warehouse password")
		}
		target.SetPassword(password)
	}

	if target.Dialect.Name == DialectSQLite {
		if err := ensureParentDir(target.Path); err != nil {
			return nil, err
		}
	}

	dsn, err := target.DSN()
	if err != nil {
		return nil, err
	}
	db, err := sql.Open(target.Dialect.DriverName, dsn)
	if err != nil {
		return nil, errors.ConnectionError("Failed to open warehouse connection", err).
			WithContext("url", target.Redacted())
	}
	if target.Dialect.Name == DialectSQLite {
		db.SetMaxOpenConns(1)
	}
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, errors.ConnectionError("Failed to connect to warehouse", err).
			WithContext("url", target.Redacted())
	}

	w, err := New(db, target.Dialect, opts)
	if err != nil {
		db.Close()
		return nil, err
	}
	return w, nil
}

// New wraps an open database handle.
func New(db *sql.DB, dialect *Dialect, opts Options) (*Warehouse, error) {
	strategy, err := resolveStrategy(dialect, opts.Strategy)
	if err != nil {
		return nil, err
	}
	logger := opts.Logger
	if logger == nil {
		logger = observability.Discard()
	}
	return &Warehouse{
		db:       db,
		dialect:  dialect,
		strategy: strategy,
		logger:   logger.WithField("dialect", dialect.Name),
	}, nil
}

func resolveStrategy(d *Dialect, requested string) (string, error) {
	switch requested {
	case "", StrategyAuto:
		if d.NativeUpsert {
			return StrategyNative, nil
		}
		return StrategyDeleteInsert, nil
	case StrategyNative:
		if !d.NativeUpsert {
			return "", errors.New(errors.ErrCodeUnsupportedDialect, "Native upsert is not available for this warehouse").
				WithContext("dialect", d.Name).
				WithSuggestions("Use the auto or delete_insert upsert strategy")
		}
		return StrategyNative, nil
	case StrategyDeleteInsert:
		return StrategyDeleteInsert, nil
	}
	return "", errors.ConfigError("Unknown upsert strategy "+requested, "warehouse.upsert_strategy")
}

// Dialect returns the SQL dialect in use
func (w *Warehouse) Dialect() *Dialect { return w.dialect }

// Strategy returns the resolved upsert strategy
func (w *Warehouse) Strategy() string { return w.strategy }

// DB exposes the underlying handle
func (w *Warehouse) DB() *sql.DB { return w.db }

// Close releases the connection pool
func (w *Warehouse) Close() error {
	return w.db.Close()
}

// inTx runs fn in one transaction, committing on success.
func (w *Warehouse) inTx(ctx context.Context, fn func(q querier) error) error {
	tx, err := w.db.BeginTx(ctx, nil)
	if err != nil {
		return errors.Wrap(err, errors.ErrCodeSQLTransaction, "Failed to begin transaction")
	}

	rollback := func() error {
		if err := tx.Rollback(); err != nil && !stderrors.Is(err, sql.ErrTxDone) {
			return err
		}
		return nil
	}
	return errors.NewTransactionHandler(tx.Commit, rollback).Execute(func() error {
		return fn(tx)
	})
}
