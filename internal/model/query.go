package model

// SortOrder is a recognized sort token for catalog listings.
type SortOrder string

const (
	SortNameAsc        SortOrder = "name_asc"
	SortNameDesc       SortOrder = "name_desc"
	SortPopulationAsc  SortOrder = "population_asc"
	SortPopulationDesc SortOrder = "population_desc"
	SortGDPAsc         SortOrder = "gdp_asc"
	SortGDPDesc        SortOrder = "gdp_desc"
)

// ParseSortOrder maps a sort token to a SortOrder. Unrecognized (or empty)
// tokens fall back to name_asc rather than erroring; consumers depend on the
// lenient behavior.
func ParseSortOrder(token string) SortOrder {
	switch SortOrder(token) {
	case SortNameAsc, SortNameDesc, SortPopulationAsc, SortPopulationDesc, SortGDPAsc, SortGDPDesc:
		return SortOrder(token)
	default:
		return SortNameAsc
	}
}

// CountryFilter specifies criteria for listing catalog records. Region and
// CurrencyCode are case-insensitive exact matches and combine with AND.
type CountryFilter struct {
	Region       string    `json:"region,omitempty"`
	CurrencyCode string    `json:"currency_code,omitempty"`
	Sort         SortOrder `json:"sort,omitempty"`
}
