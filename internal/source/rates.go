package source

import (
	"context"

	"github.com/rotisserie/eris"

	"github.com/sells-group/country-catalog/internal/errs"
)

// RateTable is the exchange-rate feed payload: units of each currency per one
// unit of the base currency.
type RateTable struct {
	Result   string             `json:"result"`
	BaseCode string             `json:"base_code"`
	Rates    map[string]float64 `json:"rates"`
}

// Rates fetches the exchange-rate table. A response with a missing or empty
// rate map is unusable even when the HTTP call succeeded, and fails with
// ErrNoData.
func (c *Client) Rates(ctx context.Context) (*RateTable, error) {
	body, err := c.get(ctx, "rates", c.opts.RatesURL)
	if err != nil {
		return nil, err
	}
	defer body.Close() //nolint:errcheck

	table, err := decodeJSON[RateTable](body)
	if err != nil {
		return nil, err
	}
	if len(table.Rates) == 0 {
		return nil, eris.Wrap(errs.ErrNoData, "source: rate table empty")
	}
	return table, nil
}
