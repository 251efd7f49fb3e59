package source

import (
	"context"
)

// Currency is one entry in a country's currency list as the upstream feed
// reports it.
type Currency struct {
	Code   string `json:"code"`
	Name   string `json:"name"`
	Symbol string `json:"symbol"`
}

// CountryRecord is one raw country object from the metadata feed. Every field
// except name may be absent.
type CountryRecord struct {
	Name       string     `json:"name"`
	Capital    string     `json:"capital"`
	Region     string     `json:"region"`
	Population int64      `json:"population"`
	Flag       string     `json:"flag"`
	Currencies []Currency `json:"currencies"`
}

// Countries fetches the full country list. Records with missing optional
// fields decode cleanly; an empty list is returned as-is and left for the
// caller to judge.
func (c *Client) Countries(ctx context.Context) ([]CountryRecord, error) {
	body, err := c.get(ctx, "countries", c.opts.CountriesURL)
	if err != nil {
		return nil, err
	}
	defer body.Close() //nolint:errcheck

	records, err := decodeJSON[[]CountryRecord](body)
	if err != nil {
		return nil, err
	}
	return *records, nil
}
