// Package model defines the catalog's domain types.
package model

import (
	"strings"
	"time"

	"golang.org/x/text/cases"
)

// MetadataKeyLastRefreshed is the system_metadata key holding the timestamp of
// the last successful full refresh.
const MetadataKeyLastRefreshed = "last_refreshed_at"

// Country is a persisted catalog record. Name is unique case-insensitively;
// pointer fields are absent when the source (or the rate join) did not provide
// a value. EstimatedGDP is a randomized placeholder derived from population and
// exchange rate, not a real economic statistic.
type Country struct {
	ID              string    `json:"id"`
	Name            string    `json:"name"`
	Capital         *string   `json:"capital,omitempty"`
	Region          *string   `json:"region,omitempty"`
	Population      int64     `json:"population"`
	CurrencyCode    *string   `json:"currency_code,omitempty"`
	ExchangeRate    *float64  `json:"exchange_rate,omitempty"`
	EstimatedGDP    *float64  `json:"estimated_gdp,omitempty"`
	FlagURL         *string   `json:"flag_url,omitempty"`
	LastRefreshedAt time.Time `json:"last_refreshed_at"`
}

var nameFolder = cases.Fold()

// NameKey returns the canonical case-insensitive matching key for a country
// name. Unicode case folding is done in Go so both store drivers agree on what
// "same name" means (SQLite's NOCASE only folds ASCII).
func NameKey(name string) string {
	return nameFolder.String(strings.TrimSpace(name))
}
