// Package refresh implements the catalog reconciliation pipeline: fetch both
// upstream datasets, join countries to exchange rates by currency code,
// derive the estimated-GDP placeholder, and persist the batch plus the
// refresh watermark.
package refresh

import (
	"context"
	"math/rand/v2"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/sells-group/country-catalog/internal/errs"
	"github.com/sells-group/country-catalog/internal/model"
	"github.com/sells-group/country-catalog/internal/source"
	"github.com/sells-group/country-catalog/internal/store"
)

// Source is the subset of the upstream client the engine consumes.
type Source interface {
	Countries(ctx context.Context) ([]source.CountryRecord, error)
	Rates(ctx context.Context) (*source.RateTable, error)
}

// Result summarizes a completed refresh run.
type Result struct {
	Processed   int       `json:"processed_count"`
	RefreshedAt time.Time `json:"last_refreshed_at"`
}

// Engine runs the fetch -> join -> derive -> upsert cycle. Concurrent
// invocations are serialized; two refreshes never interleave their writes.
type Engine struct {
	src   Source
	store store.Store
	mu    sync.Mutex

	now        func() time.Time
	multiplier func() int
}

// NewEngine creates an Engine with wall-clock time and the default random
// GDP multiplier.
func NewEngine(src Source, st store.Store) *Engine {
	return &Engine{
		src:   src,
		store: st,
		now:   func() time.Time { return time.Now().UTC() },
		// Uniform in [1000, 2000] inclusive. A placeholder proxy for economic
		// output; deliberately not reproducible run-to-run.
		multiplier: func() int { return rand.IntN(1001) + 1000 },
	}
}

// Refresh fetches both sources, reconciles them into the catalog, and
// advances the watermark. Either every record touched this run is persisted
// together with the watermark, or nothing is.
func (e *Engine) Refresh(ctx context.Context) (*Result, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	log := zap.L().With(zap.String("component", "refresh"))
	start := time.Now()

	var countries []source.CountryRecord
	var rates *source.RateTable

	// The two fetches are independent; only the join cares about both.
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		countries, err = e.src.Countries(gctx)
		return err
	})
	g.Go(func() error {
		var err error
		rates, err = e.src.Rates(gctx)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	if len(countries) == 0 {
		return nil, eris.Wrap(errs.ErrNoData, "refresh: country list empty")
	}

	// One timestamp for every record touched this run, so "refreshed
	// together" is answerable downstream.
	refreshedAt := e.now()

	records := make([]model.Country, 0, len(countries))
	processed := 0
	for _, rec := range countries {
		if strings.TrimSpace(rec.Name) == "" {
			continue
		}
		records = append(records, e.reconcile(rec, rates, refreshedAt))
		processed++
	}

	if err := e.store.ApplyRefresh(ctx, records, refreshedAt); err != nil {
		return nil, err
	}

	log.Info("refresh complete",
		zap.Int("processed", processed),
		zap.Time("refreshed_at", refreshedAt),
		zap.Duration("elapsed", time.Since(start)),
	)

	return &Result{Processed: processed, RefreshedAt: refreshedAt}, nil
}

// reconcile joins one source country against the rate table and derives the
// persisted record.
func (e *Engine) reconcile(rec source.CountryRecord, rates *source.RateTable, refreshedAt time.Time) model.Country {
	c := model.Country{
		ID:              uuid.New().String(),
		Name:            rec.Name,
		Population:      rec.Population,
		LastRefreshedAt: refreshedAt,
	}
	if rec.Capital != "" {
		c.Capital = &rec.Capital
	}
	if rec.Region != "" {
		c.Region = &rec.Region
	}
	if rec.Flag != "" {
		c.FlagURL = &rec.Flag
	}

	if len(rec.Currencies) == 0 {
		// No currencies at all: code and rate stay unset, estimate is an
		// explicit zero. Distinct from "code present but rate missing".
		zero := 0.0
		c.EstimatedGDP = &zero
		return c
	}

	code := canonicalCurrency(rec.Currencies)
	if code == "" {
		return c
	}
	c.CurrencyCode = &code

	rate, ok := rates.Rates[code]
	if !ok || rate <= 0 {
		// Missing rate is "unknown", not zero: rate and estimate stay unset
		// so the join can be retried later without conflating the two.
		return c
	}
	c.ExchangeRate = &rate

	gdp := float64(rec.Population) * float64(e.multiplier()) / rate
	c.EstimatedGDP = &gdp
	return c
}

// canonicalCurrency is the single place the "first currency only" policy
// lives. Countries with multiple currencies lose all but the first code.
func canonicalCurrency(currencies []source.Currency) string {
	return strings.TrimSpace(currencies[0].Code)
}
