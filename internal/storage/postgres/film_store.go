// Package postgres provides the Postgres-backed films table.
package postgres

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/JakeFAU/grossing-films-crawler/internal/films"
)

// DefaultTable is the table recreated on every run.
const DefaultTable = "films"

var validTableName = regexp.MustCompile(`^[a-zA-Z_][a-zA-Z0-9_]*$`)

// FilmStoreConfig controls the Postgres connection pool used for the films table.
type FilmStoreConfig struct {
	DSN             string
	Table           string
	MaxConns        int32
	MaxConnLifetime time.Duration
}

type pool interface {
	Begin(context.Context) (pgx.Tx, error)
	Query(context.Context, string, ...any) (pgx.Rows, error)
	Close()
}

// StoredFilm is a row read back from the films table.
type StoredFilm struct {
	ID          int64
	Title       string
	ReleaseYear int32
	Director    string
	BoxOffice   int64
	Country     string
}

// FilmStore replaces the content of the films table.
type FilmStore struct {
	pool  pool
	table string
}

// NewFilmStore creates a Postgres-backed FilmStore using the provided config.
func NewFilmStore(ctx context.Context, cfg FilmStoreConfig) (*FilmStore, error) {
	if cfg.DSN == "" {
		return nil, fmt.Errorf("db.dsn is required")
	}
	table, err := tableName(cfg.Table)
	if err != nil {
		return nil, err
	}
	poolCfg, err := pgxpool.ParseConfig(cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("parse postgres dsn: %w", err)
	}
	if cfg.MaxConns > 0 {
		poolCfg.MaxConns = cfg.MaxConns
	}
	if cfg.MaxConnLifetime > 0 {
		poolCfg.MaxConnLifetime = cfg.MaxConnLifetime
	}
	p, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("connect postgres: %w", err)
	}
	if err := p.Ping(ctx); err != nil {
		p.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}
	return &FilmStore{pool: p, table: table}, nil
}

// NewFilmStoreWithPool constructs a store from an existing pool (primarily for testing).
func NewFilmStoreWithPool(p pool, table string) (*FilmStore, error) {
	if p == nil {
		return nil, fmt.Errorf("pool is required")
	}
	name, err := tableName(table)
	if err != nil {
		return nil, err
	}
	return &FilmStore{pool: p, table: name}, nil
}

func tableName(table string) (string, error) {
	if table == "" {
		table = DefaultTable
	}
	if !validTableName.MatchString(table) {
		return "", fmt.Errorf("invalid table name %q", table)
	}
	return table, nil
}

// Close releases the underlying pool resources.
func (s *FilmStore) Close() {
	if s == nil || s.pool == nil {
		return
	}
	s.pool.Close()
}

// Replace drops and recreates the table, then inserts one row per record. Everything
// happens in one transaction, so a failed run leaves the previous table in place.
func (s *FilmStore) Replace(ctx context.Context, records []films.Film) (err error) {
	if s == nil || s.pool == nil {
		return fmt.Errorf("film store is not configured")
	}
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer func() {
		if err == nil {
			return
		}
		if rbErr := tx.Rollback(ctx); rbErr != nil && !errors.Is(rbErr, pgx.ErrTxClosed) {
			err = fmt.Errorf("%w (rollback: %v)", err, rbErr)
		}
	}()

	if _, err = tx.Exec(ctx, s.dropSQL()); err != nil {
		return fmt.Errorf("drop table: %w", err)
	}
	if _, err = tx.Exec(ctx, s.createSQL()); err != nil {
		return fmt.Errorf("create table: %w", err)
	}
	insert := s.insertSQL()
	for _, rec := range records {
		var tag pgconn.CommandTag
		tag, err = tx.Exec(ctx, insert, insertArgs(rec)...)
		if err != nil {
			return fmt.Errorf("insert %q: %w", rec.Title, err)
		}
		if tag.RowsAffected() != 1 {
			return fmt.Errorf("insert %q: %d rows affected", rec.Title, tag.RowsAffected())
		}
	}
	if err = tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}

// List reads every row back in insertion order.
func (s *FilmStore) List(ctx context.Context) ([]StoredFilm, error) {
	if s == nil || s.pool == nil {
		return nil, fmt.Errorf("film store is not configured")
	}
	rows, err := s.pool.Query(ctx, fmt.Sprintf(`
SELECT id, title, COALESCE(release_year, 0), COALESCE(director, ''), COALESCE(box_office, 0)::BIGINT, COALESCE(country, '')
FROM %s
ORDER BY id`, s.table))
	if err != nil {
		return nil, fmt.Errorf("select films: %w", err)
	}
	defer rows.Close()

	var out []StoredFilm
	for rows.Next() {
		var f StoredFilm
		if err := rows.Scan(&f.ID, &f.Title, &f.ReleaseYear, &f.Director, &f.BoxOffice, &f.Country); err != nil {
			return nil, fmt.Errorf("scan film: %w", err)
		}
		out = append(out, f)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate films: %w", err)
	}
	return out, nil
}

func (s *FilmStore) dropSQL() string {
	return fmt.Sprintf(`DROP TABLE IF EXISTS %s`, s.table)
}

func (s *FilmStore) createSQL() string {
	return fmt.Sprintf(`
CREATE TABLE %s (
	id BIGSERIAL PRIMARY KEY,
	title TEXT NOT NULL,
	release_year INTEGER,
	director TEXT,
	box_office NUMERIC,
	country TEXT
)`, s.table)
}

func (s *FilmStore) insertSQL() string {
	return fmt.Sprintf(`
INSERT INTO %s (
	title,
	release_year,
	director,
	box_office,
	country
) VALUES (
	$1,$2,$3,$4,$5
)`, s.table)
}

func insertArgs(rec films.Film) []any {
	return []any{
		rec.Title,
		releaseYear(rec.Year),
		rec.Director,
		rec.Revenue,
		rec.Country,
	}
}

// releaseYear converts the raw year cell; non-numeric text is stored as NULL.
func releaseYear(raw string) any {
	year, err := strconv.Atoi(raw)
	if err != nil {
		return nil
	}
	return year
}
