package store

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/rotisserie/eris"
	_ "modernc.org/sqlite"

	"github.com/sells-group/country-catalog/internal/errs"
	"github.com/sells-group/country-catalog/internal/model"
)

// SQLiteStore implements Store using modernc.org/sqlite. It exists so the
// service can run without a Postgres instance (local development, tests).
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLite opens a SQLite database at the given path and configures WAL mode.
func NewSQLite(dsn string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: open")
	}
	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA synchronous=NORMAL",
	} {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, eris.Wrapf(err, "sqlite: exec %s", pragma)
		}
	}
	return &SQLiteStore{db: db}, nil
}

const sqliteMigration = `
CREATE TABLE IF NOT EXISTS countries (
	id                TEXT PRIMARY KEY,
	name              TEXT NOT NULL,
	name_key          TEXT NOT NULL UNIQUE,
	capital           TEXT,
	region            TEXT,
	population        INTEGER NOT NULL DEFAULT 0,
	currency_code     TEXT,
	exchange_rate     REAL,
	estimated_gdp     REAL,
	flag_url          TEXT,
	last_refreshed_at DATETIME NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_countries_region ON countries(region);
CREATE INDEX IF NOT EXISTS idx_countries_currency ON countries(currency_code);

CREATE TABLE IF NOT EXISTS system_metadata (
	key_name   TEXT PRIMARY KEY,
	key_value  TEXT NOT NULL,
	updated_at DATETIME NOT NULL
);
`

const sqliteCountrySelect = `SELECT id, name, capital, region, population, currency_code, exchange_rate, estimated_gdp, flag_url, last_refreshed_at FROM countries`

const sqliteCountryUpsert = `INSERT INTO countries
	(id, name, name_key, capital, region, population, currency_code, exchange_rate, estimated_gdp, flag_url, last_refreshed_at)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	ON CONFLICT(name_key) DO UPDATE SET
		name = excluded.name,
		capital = excluded.capital,
		region = excluded.region,
		population = excluded.population,
		currency_code = excluded.currency_code,
		exchange_rate = excluded.exchange_rate,
		estimated_gdp = excluded.estimated_gdp,
		flag_url = excluded.flag_url,
		last_refreshed_at = excluded.last_refreshed_at`

const sqliteMetadataUpsert = `INSERT INTO system_metadata (key_name, key_value, updated_at) VALUES (?, ?, ?)
	ON CONFLICT(key_name) DO UPDATE SET key_value = excluded.key_value, updated_at = excluded.updated_at`

func (s *SQLiteStore) Migrate(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, sqliteMigration)
	return eris.Wrap(err, "sqlite: migrate")
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func (s *SQLiteStore) FindByName(ctx context.Context, name string) (*model.Country, error) {
	row := s.db.QueryRowContext(ctx, sqliteCountrySelect+` WHERE name_key = ?`, model.NameKey(name))

	c, err := scanCountry(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, eris.Wrapf(errs.ErrNotFound, "sqlite: country %q", name)
	}
	if err != nil {
		return nil, eris.Wrapf(err, "sqlite: find country %q", name)
	}
	return c, nil
}

func (s *SQLiteStore) DeleteByName(ctx context.Context, name string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM countries WHERE name_key = ?`, model.NameKey(name))
	if err != nil {
		return eris.Wrapf(err, "sqlite: delete country %q", name)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return eris.Wrap(err, "sqlite: rows affected")
	}
	if n == 0 {
		return eris.Wrapf(errs.ErrNotFound, "sqlite: country %q", name)
	}
	return nil
}

func (s *SQLiteStore) List(ctx context.Context, filter model.CountryFilter) ([]model.Country, error) {
	query := sqliteCountrySelect + ` WHERE 1=1`
	var args []any

	if filter.Region != "" {
		query += ` AND LOWER(region) = LOWER(?)`
		args = append(args, filter.Region)
	}
	if filter.CurrencyCode != "" {
		query += ` AND LOWER(currency_code) = LOWER(?)`
		args = append(args, filter.CurrencyCode)
	}
	query += ` ORDER BY ` + orderClause(filter.Sort)

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: list countries")
	}
	defer rows.Close()

	var out []model.Country
	for rows.Next() {
		c, err := scanCountry(rows)
		if err != nil {
			return nil, eris.Wrap(err, "sqlite: scan country")
		}
		out = append(out, *c)
	}
	return out, eris.Wrap(rows.Err(), "sqlite: iterate countries")
}

func (s *SQLiteStore) Count(ctx context.Context) (int, error) {
	var n int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM countries`).Scan(&n); err != nil {
		return 0, eris.Wrap(err, "sqlite: count countries")
	}
	return n, nil
}

func (s *SQLiteStore) TopByEstimatedGDP(ctx context.Context, n int) ([]model.Country, error) {
	rows, err := s.db.QueryContext(ctx,
		sqliteCountrySelect+` WHERE estimated_gdp IS NOT NULL ORDER BY estimated_gdp DESC LIMIT ?`, n)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: top countries")
	}
	defer rows.Close()

	var out []model.Country
	for rows.Next() {
		c, err := scanCountry(rows)
		if err != nil {
			return nil, eris.Wrap(err, "sqlite: scan country")
		}
		out = append(out, *c)
	}
	return out, eris.Wrap(rows.Err(), "sqlite: iterate countries")
}

func (s *SQLiteStore) UpsertBatch(ctx context.Context, records []model.Country) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return eris.Wrap(err, "sqlite: begin upsert batch")
	}
	defer tx.Rollback() //nolint:errcheck

	if err := sqliteUpsertTx(ctx, tx, records); err != nil {
		return err
	}
	return eris.Wrap(tx.Commit(), "sqlite: commit upsert batch")
}

func (s *SQLiteStore) GetMetadata(ctx context.Context, key string) (*MetadataEntry, error) {
	var e MetadataEntry
	err := s.db.QueryRowContext(ctx,
		`SELECT key_name, key_value, updated_at FROM system_metadata WHERE key_name = ?`, key,
	).Scan(&e.Key, &e.Value, &e.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, eris.Wrapf(err, "sqlite: get metadata %s", key)
	}
	return &e, nil
}

func (s *SQLiteStore) SetMetadata(ctx context.Context, key, value string, updatedAt time.Time) error {
	_, err := s.db.ExecContext(ctx, sqliteMetadataUpsert, key, value, updatedAt)
	return eris.Wrapf(err, "sqlite: set metadata %s", key)
}

// ApplyRefresh writes the batch and the watermark in a single transaction.
func (s *SQLiteStore) ApplyRefresh(ctx context.Context, records []model.Country, refreshedAt time.Time) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return eris.Wrap(err, "sqlite: begin refresh")
	}
	defer tx.Rollback() //nolint:errcheck

	if err := sqliteUpsertTx(ctx, tx, records); err != nil {
		return err
	}

	if _, err := tx.ExecContext(ctx, sqliteMetadataUpsert,
		model.MetadataKeyLastRefreshed, refreshedAt.Format(time.RFC3339Nano), refreshedAt,
	); err != nil {
		return eris.Wrap(err, "sqlite: write watermark")
	}

	return eris.Wrap(tx.Commit(), "sqlite: commit refresh")
}

func sqliteUpsertTx(ctx context.Context, tx *sql.Tx, records []model.Country) error {
	for _, c := range records {
		_, err := tx.ExecContext(ctx, sqliteCountryUpsert,
			c.ID, c.Name, model.NameKey(c.Name), nullStr(c.Capital), nullStr(c.Region), c.Population,
			nullStr(c.CurrencyCode), nullFloat(c.ExchangeRate), nullFloat(c.EstimatedGDP),
			nullStr(c.FlagURL), c.LastRefreshedAt,
		)
		if err != nil {
			return eris.Wrapf(err, "sqlite: upsert country %q", c.Name)
		}
	}
	return nil
}

// helpers

type scannable interface {
	Scan(dest ...any) error
}

func scanCountry(row scannable) (*model.Country, error) {
	var c model.Country
	var capital, region, currency, flag sql.NullString
	var rate, gdp sql.NullFloat64

	err := row.Scan(&c.ID, &c.Name, &capital, &region, &c.Population,
		&currency, &rate, &gdp, &flag, &c.LastRefreshedAt)
	if err != nil {
		return nil, err
	}

	c.Capital = strPtr(capital)
	c.Region = strPtr(region)
	c.CurrencyCode = strPtr(currency)
	c.ExchangeRate = floatPtr(rate)
	c.EstimatedGDP = floatPtr(gdp)
	c.FlagURL = strPtr(flag)
	return &c, nil
}

func nullStr(p *string) sql.NullString {
	if p == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: *p, Valid: true}
}

func nullFloat(p *float64) sql.NullFloat64 {
	if p == nil {
		return sql.NullFloat64{}
	}
	return sql.NullFloat64{Float64: *p, Valid: true}
}

func strPtr(ns sql.NullString) *string {
	if !ns.Valid {
		return nil
	}
	s := ns.String
	return &s
}

func floatPtr(nf sql.NullFloat64) *float64 {
	if !nf.Valid {
		return nil
	}
	f := nf.Float64
	return &f
}
