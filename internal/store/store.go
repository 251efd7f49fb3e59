// Package store persists the country catalog and its refresh watermark.
package store

import (
	"context"
	"time"

	"github.com/sells-group/country-catalog/internal/model"
)

// MetadataEntry is one row of the singleton key/value metadata table.
type MetadataEntry struct {
	Key       string    `json:"key"`
	Value     string    `json:"value"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Store defines the persistence interface for the catalog. Name matching in
// FindByName, DeleteByName, and upserts is case-insensitive.
type Store interface {
	// Catalog
	FindByName(ctx context.Context, name string) (*model.Country, error)
	DeleteByName(ctx context.Context, name string) error
	List(ctx context.Context, filter model.CountryFilter) ([]model.Country, error)
	Count(ctx context.Context) (int, error)
	TopByEstimatedGDP(ctx context.Context, n int) ([]model.Country, error)
	UpsertBatch(ctx context.Context, records []model.Country) error

	// Metadata
	GetMetadata(ctx context.Context, key string) (*MetadataEntry, error)
	SetMetadata(ctx context.Context, key, value string, updatedAt time.Time) error

	// ApplyRefresh writes the upsert batch and the refresh watermark as one
	// transaction, so readers never observe the batch without the watermark
	// or vice versa.
	ApplyRefresh(ctx context.Context, records []model.Country, refreshedAt time.Time) error

	// Lifecycle
	Migrate(ctx context.Context) error
	Close() error
}
