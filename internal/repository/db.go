package repository

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jackc/pgx/v5/stdlib"
	_ "modernc.org/sqlite"
)

// Dialect selects placeholder style and DDL.
type Dialect string

const (
	SQLite   Dialect = "sqlite"
	Postgres Dialect = "postgres"
)

type Config struct {
	DSN          string
	MaxOpenConns int
	BusyTimeout  time.Duration
	DialTimeout  time.Duration
}

// DB wraps *sql.DB with the dialect it speaks. PostgreSQL goes through a pgx pool
// exposed as database/sql; everything else is a sqlite file.
type DB struct {
	*sql.DB
	Dialect Dialect
	pool    *pgxpool.Pool
	logger  *slog.Logger
}

// DialectFor picks the dialect from a DSN.
func DialectFor(dsn string) Dialect {
	if strings.HasPrefix(dsn, "postgres://") || strings.HasPrefix(dsn, "postgresql://") {
		return Postgres
	}
	return SQLite
}

// Open connects and applies migrations.
func Open(ctx context.Context, cfg Config, logger *slog.Logger) (*DB, error) {
	if logger == nil {
		logger = slog.Default()
	}
	d := &DB{Dialect: DialectFor(cfg.DSN), logger: logger}
	logger.Info("repository.open", "dialect", d.Dialect)

	var err error
	switch d.Dialect {
	case Postgres:
		err = d.openPostgres(ctx, cfg)
	default:
		err = d.openSQLite(cfg)
	}
	if err != nil {
		logger.Error("repository.open.failed", "dialect", d.Dialect, "error", err)
		return nil, err
	}

	if err := d.migrate(ctx); err != nil {
		d.Close()
		return nil, err
	}
	logger.Info("repository.open.ok", "dialect", d.Dialect)
	return d, nil
}

func (d *DB) openPostgres(ctx context.Context, cfg Config) error {
	pc, err := pgxpool.ParseConfig(cfg.DSN)
	if err != nil {
		return err
	}
	if cfg.MaxOpenConns > 0 {
		pc.MaxConns = int32(cfg.MaxOpenConns)
	}
	pc.ConnConfig.RuntimeParams["application_name"] = "attendance-tracker"

	if cfg.DialTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, cfg.DialTimeout)
		defer cancel()
	}
	pool, err := pgxpool.NewWithConfig(ctx, pc)
	if err != nil {
		return err
	}
	d.pool = pool
	d.DB = stdlib.OpenDBFromPool(pool)
	return nil
}

func (d *DB) openSQLite(cfg Config) error {
	db, err := sql.Open("sqlite", cfg.DSN)
	if err != nil {
		return fmt.Errorf("open sqlite db: %w", err)
	}
	// one writer at a time; WAL lets readers proceed
	db.SetMaxOpenConns(max(cfg.MaxOpenConns, 1))

	busy := cfg.BusyTimeout
	if busy <= 0 {
		busy = 5 * time.Second
	}
	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA foreign_keys = ON",
		"PRAGMA busy_timeout = " + strconv.FormatInt(busy.Milliseconds(), 10),
	}
	for _, pragma := range pragmas {
		if _, execErr := db.Exec(pragma); execErr != nil {
			_ = db.Close()
			return fmt.Errorf("apply pragma %q: %w", pragma, execErr)
		}
	}
	d.DB = db
	return nil
}

// Close closes the database connections gracefully
func (d *DB) Close() {
	if d == nil {
		return
	}
	d.logger.Info("repository.close")
	if d.DB != nil {
		if err := d.DB.Close(); err != nil {
			d.logger.Error("repository.close.failed", "error", err)
		}
	}
	if d.pool != nil {
		d.pool.Close()
	}
}

// HealthCheck pings the database.
func (d *DB) HealthCheck(ctx context.Context, timeout time.Duration) error {
	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}
	if err := d.PingContext(ctx); err != nil {
		d.logger.Error("repository.ping.failed", "error", err)
		return err
	}
	return nil
}

// rebind rewrites ? placeholders to $n for PostgreSQL.
func (d *DB) rebind(query string) string {
	if d.Dialect != Postgres {
		return query
	}
	var b strings.Builder
	n := 0
	for _, r := range query {
		if r == '?' {
			n++
			b.WriteByte('$')
			b.WriteString(strconv.Itoa(n))
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

func (d *DB) exec(ctx context.Context, q string, args ...any) (sql.Result, error) {
	return d.ExecContext(ctx, d.rebind(q), args...)
}

func (d *DB) query(ctx context.Context, q string, args ...any) (*sql.Rows, error) {
	return d.QueryContext(ctx, d.rebind(q), args...)
}

func (d *DB) queryRow(ctx context.Context, q string, args ...any) *sql.Row {
	return d.QueryRowContext(ctx, d.rebind(q), args...)
}
