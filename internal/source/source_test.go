package source

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/country-catalog/internal/errs"
)

func newTestClient(countriesURL, ratesURL string) *Client {
	return New(Options{
		CountriesURL: countriesURL,
		RatesURL:     ratesURL,
		UserAgent:    "test-agent",
		Timeout:      5 * time.Second,
	})
}

func TestCountries_FullRecords(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "test-agent", r.Header.Get("User-Agent"))
		w.Write([]byte(`[
			{"name":"Canada","capital":"Ottawa","region":"Americas","population":37000000,
			 "flag":"https://flags.example/ca.svg",
			 "currencies":[{"code":"CAD","name":"Canadian dollar","symbol":"$"}]}
		]`))
	}))
	defer srv.Close()

	c := newTestClient(srv.URL, "")
	records, err := c.Countries(context.Background())
	require.NoError(t, err)
	require.Len(t, records, 1)

	assert.Equal(t, "Canada", records[0].Name)
	assert.Equal(t, "Ottawa", records[0].Capital)
	assert.Equal(t, int64(37000000), records[0].Population)
	require.Len(t, records[0].Currencies, 1)
	assert.Equal(t, "CAD", records[0].Currencies[0].Code)
}

func TestCountries_ToleratesAbsentOptionalFields(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`[{"name":"Atlantis","population":0}]`))
	}))
	defer srv.Close()

	c := newTestClient(srv.URL, "")
	records, err := c.Countries(context.Background())
	require.NoError(t, err)
	require.Len(t, records, 1)

	assert.Equal(t, "Atlantis", records[0].Name)
	assert.Empty(t, records[0].Capital)
	assert.Empty(t, records[0].Region)
	assert.Empty(t, records[0].Flag)
	assert.Nil(t, records[0].Currencies)
}

func TestCountries_EmptyListIsNotAnError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`[]`))
	}))
	defer srv.Close()

	c := newTestClient(srv.URL, "")
	records, err := c.Countries(context.Background())
	require.NoError(t, err)
	assert.Empty(t, records)
}

func TestCountries_NonSuccessStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	c := newTestClient(srv.URL, "")
	_, err := c.Countries(context.Background())
	require.Error(t, err)

	var se *errs.SourceError
	require.True(t, errors.As(err, &se))
	assert.Equal(t, "countries", se.Source)
	assert.Equal(t, http.StatusBadGateway, se.Status)
}

func TestCountries_NetworkError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	srv.Close() // refuse connections

	c := newTestClient(srv.URL, "")
	_, err := c.Countries(context.Background())
	require.Error(t, err)

	var se *errs.SourceError
	require.True(t, errors.As(err, &se))
	assert.Equal(t, 0, se.Status)
}

func TestCountries_SingleAttemptPerFetch(t *testing.T) {
	// The upstream would succeed on a second request, but a fetch is exactly
	// one attempt: the first failure aborts the whole refresh run.
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&calls, 1) == 1 {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		w.Write([]byte(`[{"name":"Canada","population":37000000}]`))
	}))
	defer srv.Close()

	c := newTestClient(srv.URL, "")
	_, err := c.Countries(context.Background())
	require.Error(t, err)

	var se *errs.SourceError
	require.True(t, errors.As(err, &se))
	assert.Equal(t, http.StatusBadGateway, se.Status)
	assert.EqualValues(t, 1, atomic.LoadInt32(&calls))
}

func TestRates_HappyPath(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"result":"success","base_code":"USD","rates":{"USD":1,"CAD":1.35,"JPY":148.2}}`))
	}))
	defer srv.Close()

	c := newTestClient("", srv.URL)
	table, err := c.Rates(context.Background())
	require.NoError(t, err)

	assert.Equal(t, "USD", table.BaseCode)
	assert.InDelta(t, 1.35, table.Rates["CAD"], 0.0001)
	assert.Len(t, table.Rates, 3)
}

func TestRates_EmptyTableFailsEvenOnHTTP200(t *testing.T) {
	for name, body := range map[string]string{
		"empty map":   `{"result":"success","base_code":"USD","rates":{}}`,
		"missing map": `{"result":"success","base_code":"USD"}`,
	} {
		t.Run(name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.Write([]byte(body))
			}))
			defer srv.Close()

			c := newTestClient("", srv.URL)
			_, err := c.Rates(context.Background())
			require.ErrorIs(t, err, errs.ErrNoData)
		})
	}
}

func TestRates_NonSuccessStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	c := newTestClient("", srv.URL)
	_, err := c.Rates(context.Background())

	var se *errs.SourceError
	require.True(t, errors.As(err, &se))
	assert.Equal(t, "rates", se.Source)
	assert.Equal(t, http.StatusServiceUnavailable, se.Status)
}
