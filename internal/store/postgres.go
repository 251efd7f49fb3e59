package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rotisserie/eris"

	"github.com/sells-group/country-catalog/internal/db"
	"github.com/sells-group/country-catalog/internal/errs"
	"github.com/sells-group/country-catalog/internal/model"
)

// PostgresStore implements Store using pgxpool.
type PostgresStore struct {
	pool    db.Pool
	closeFn func()
}

// PoolConfig holds optional connection pool tuning parameters.
type PoolConfig struct {
	MaxConns int32 `yaml:"max_conns" mapstructure:"max_conns"`
	MinConns int32 `yaml:"min_conns" mapstructure:"min_conns"`
}

// NewPostgres creates a PostgresStore with a connection pool.
func NewPostgres(ctx context.Context, connString string, poolCfg *PoolConfig) (*PostgresStore, error) {
	pgxCfg, err := pgxpool.ParseConfig(connString)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: parse config")
	}

	maxConns := int32(10)
	minConns := int32(2)
	if poolCfg != nil {
		if poolCfg.MaxConns > 0 {
			maxConns = poolCfg.MaxConns
		}
		if poolCfg.MinConns > 0 {
			minConns = poolCfg.MinConns
		}
	}
	pgxCfg.MaxConns = maxConns
	pgxCfg.MinConns = minConns
	pgxCfg.MaxConnLifetime = 30 * time.Minute
	pgxCfg.MaxConnIdleTime = 5 * time.Minute

	pool, err := pgxpool.NewWithConfig(ctx, pgxCfg)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: create pool")
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, eris.Wrap(err, "postgres: ping")
	}
	return &PostgresStore{pool: pool, closeFn: pool.Close}, nil
}

const postgresMigration = `
CREATE TABLE IF NOT EXISTS countries (
	id                TEXT PRIMARY KEY,
	name              TEXT NOT NULL,
	name_key          TEXT NOT NULL UNIQUE,
	capital           TEXT,
	region            TEXT,
	population        BIGINT NOT NULL DEFAULT 0,
	currency_code     TEXT,
	exchange_rate     DOUBLE PRECISION,
	estimated_gdp     DOUBLE PRECISION,
	flag_url          TEXT,
	last_refreshed_at TIMESTAMPTZ NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_countries_region ON countries(LOWER(region));
CREATE INDEX IF NOT EXISTS idx_countries_currency ON countries(LOWER(currency_code));
CREATE INDEX IF NOT EXISTS idx_countries_estimated_gdp ON countries(estimated_gdp DESC);

CREATE TABLE IF NOT EXISTS system_metadata (
	key_name   TEXT PRIMARY KEY,
	key_value  TEXT NOT NULL,
	updated_at TIMESTAMPTZ NOT NULL
);
`

const countrySelect = `SELECT id, name, capital, region, population, currency_code, exchange_rate, estimated_gdp, flag_url, last_refreshed_at FROM countries`

var countryUpsertSQL = db.UpsertSQL(db.UpsertConfig{
	Table: "countries",
	Columns: []string{
		"id", "name", "name_key", "capital", "region", "population",
		"currency_code", "exchange_rate", "estimated_gdp", "flag_url", "last_refreshed_at",
	},
	ConflictKeys: []string{"name_key"},
	SkipUpdate:   []string{"id"},
})

const metadataUpsertSQL = `INSERT INTO system_metadata (key_name, key_value, updated_at) VALUES ($1, $2, $3)
	ON CONFLICT (key_name) DO UPDATE SET key_value = EXCLUDED.key_value, updated_at = EXCLUDED.updated_at`

func (s *PostgresStore) Ping(ctx context.Context) error {
	return eris.Wrap(s.pool.Ping(ctx), "postgres: ping")
}

func (s *PostgresStore) Migrate(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, postgresMigration)
	return eris.Wrap(err, "postgres: migrate")
}

func (s *PostgresStore) Close() error {
	if s.closeFn != nil {
		s.closeFn()
	}
	return nil
}

func (s *PostgresStore) FindByName(ctx context.Context, name string) (*model.Country, error) {
	row := s.pool.QueryRow(ctx, countrySelect+` WHERE name_key = $1`, model.NameKey(name))

	var c model.Country
	err := row.Scan(&c.ID, &c.Name, &c.Capital, &c.Region, &c.Population,
		&c.CurrencyCode, &c.ExchangeRate, &c.EstimatedGDP, &c.FlagURL, &c.LastRefreshedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, eris.Wrapf(errs.ErrNotFound, "postgres: country %q", name)
	}
	if err != nil {
		return nil, eris.Wrapf(err, "postgres: find country %q", name)
	}
	return &c, nil
}

func (s *PostgresStore) DeleteByName(ctx context.Context, name string) error {
	tag, err := s.pool.Exec(ctx, `DELETE FROM countries WHERE name_key = $1`, model.NameKey(name))
	if err != nil {
		return eris.Wrapf(err, "postgres: delete country %q", name)
	}
	if tag.RowsAffected() == 0 {
		return eris.Wrapf(errs.ErrNotFound, "postgres: country %q", name)
	}
	return nil
}

func (s *PostgresStore) List(ctx context.Context, filter model.CountryFilter) ([]model.Country, error) {
	query := countrySelect + ` WHERE true`
	args := []any{}
	argIdx := 1

	if filter.Region != "" {
		query += fmt.Sprintf(` AND LOWER(region) = LOWER($%d)`, argIdx)
		args = append(args, filter.Region)
		argIdx++
	}
	if filter.CurrencyCode != "" {
		query += fmt.Sprintf(` AND LOWER(currency_code) = LOWER($%d)`, argIdx)
		args = append(args, filter.CurrencyCode)
		argIdx++
	}
	query += ` ORDER BY ` + orderClause(filter.Sort)

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: list countries")
	}
	defer rows.Close()

	return scanCountries(rows)
}

func (s *PostgresStore) Count(ctx context.Context) (int, error) {
	var n int
	if err := s.pool.QueryRow(ctx, `SELECT COUNT(*) FROM countries`).Scan(&n); err != nil {
		return 0, eris.Wrap(err, "postgres: count countries")
	}
	return n, nil
}

func (s *PostgresStore) TopByEstimatedGDP(ctx context.Context, n int) ([]model.Country, error) {
	rows, err := s.pool.Query(ctx,
		countrySelect+` WHERE estimated_gdp IS NOT NULL ORDER BY estimated_gdp DESC LIMIT $1`, n)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: top countries")
	}
	defer rows.Close()

	return scanCountries(rows)
}

func (s *PostgresStore) UpsertBatch(ctx context.Context, records []model.Country) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return eris.Wrap(err, "postgres: begin upsert batch")
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	if err := upsertCountriesTx(ctx, tx, records); err != nil {
		return err
	}
	return eris.Wrap(tx.Commit(ctx), "postgres: commit upsert batch")
}

func (s *PostgresStore) GetMetadata(ctx context.Context, key string) (*MetadataEntry, error) {
	var e MetadataEntry
	err := s.pool.QueryRow(ctx,
		`SELECT key_name, key_value, updated_at FROM system_metadata WHERE key_name = $1`, key,
	).Scan(&e.Key, &e.Value, &e.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, eris.Wrapf(err, "postgres: get metadata %s", key)
	}
	return &e, nil
}

func (s *PostgresStore) SetMetadata(ctx context.Context, key, value string, updatedAt time.Time) error {
	_, err := s.pool.Exec(ctx, metadataUpsertSQL, key, value, updatedAt)
	return eris.Wrapf(err, "postgres: set metadata %s", key)
}

// ApplyRefresh writes the batch and the watermark in a single transaction.
func (s *PostgresStore) ApplyRefresh(ctx context.Context, records []model.Country, refreshedAt time.Time) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return eris.Wrap(err, "postgres: begin refresh")
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	if err := upsertCountriesTx(ctx, tx, records); err != nil {
		return err
	}

	if _, err := tx.Exec(ctx, metadataUpsertSQL,
		model.MetadataKeyLastRefreshed, refreshedAt.Format(time.RFC3339Nano), refreshedAt,
	); err != nil {
		return eris.Wrap(err, "postgres: write watermark")
	}

	return eris.Wrap(tx.Commit(ctx), "postgres: commit refresh")
}

func upsertCountriesTx(ctx context.Context, tx pgx.Tx, records []model.Country) error {
	for _, c := range records {
		_, err := tx.Exec(ctx, countryUpsertSQL,
			c.ID, c.Name, model.NameKey(c.Name), c.Capital, c.Region, c.Population,
			c.CurrencyCode, c.ExchangeRate, c.EstimatedGDP, c.FlagURL, c.LastRefreshedAt,
		)
		if err != nil {
			return eris.Wrapf(err, "postgres: upsert country %q", c.Name)
		}
	}
	return nil
}

func scanCountries(rows pgx.Rows) ([]model.Country, error) {
	var out []model.Country
	for rows.Next() {
		var c model.Country
		if err := rows.Scan(&c.ID, &c.Name, &c.Capital, &c.Region, &c.Population,
			&c.CurrencyCode, &c.ExchangeRate, &c.EstimatedGDP, &c.FlagURL, &c.LastRefreshedAt); err != nil {
			return nil, eris.Wrap(err, "postgres: scan country")
		}
		out = append(out, c)
	}
	return out, eris.Wrap(rows.Err(), "postgres: iterate countries")
}

// orderClause maps a sort order to SQL shared by both store drivers.
func orderClause(s model.SortOrder) string {
	switch s {
	case model.SortNameDesc:
		return "LOWER(name) DESC"
	case model.SortPopulationAsc:
		return "population ASC"
	case model.SortPopulationDesc:
		return "population DESC"
	case model.SortGDPAsc:
		return "estimated_gdp ASC NULLS FIRST"
	case model.SortGDPDesc:
		return "estimated_gdp DESC NULLS LAST"
	default:
		return "LOWER(name) ASC"
	}
}
