package currency

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/shopspring/decimal"

	"github.com/wisentbank/wisent/errs"
)

// DefaultNBPURL is the National Bank of Poland table-A feed.
const DefaultNBPURL = "https://api.nbp.pl/api/exchangerates/tables/A/?format=json"

// NBPClient fetches mid rates from the NBP exchange-rate API.
type NBPClient struct {
	url    string
	client *http.Client
}

// NewNBPClient builds a client for the given feed URL. An empty url selects
// DefaultNBPURL; timeout 0 means no timeout.
func NewNBPClient(url string, timeout time.Duration) *NBPClient {
	if url == "" {
		url = DefaultNBPURL
	}
	return &NBPClient{
		url:    url,
		client: &http.Client{Timeout: timeout},
	}
}

// nbpTable mirrors the feed's JSON shape: a single-element array of tables,
// each carrying a list of {code, mid} rates.
type nbpTable struct {
	Rates []struct {
		Code string          `json:"code"`
		Mid  decimal.Decimal `json:"mid"`
	} `json:"rates"`
}

// Fetch downloads the current table. Any transport error, non-200 status or
// malformed body surfaces as errs.ErrExternalService; the stored table of
// the caller is never touched.
func (c *NBPClient) Fetch(ctx context.Context) (Table, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.url, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: building rate request: %v", errs.ErrExternalService, err)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: rate feed unreachable: %v", errs.ErrExternalService, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: rate feed returned status %d", errs.ErrExternalService, resp.StatusCode)
	}

	var tables []nbpTable
	if err := json.NewDecoder(resp.Body).Decode(&tables); err != nil {
		return nil, fmt.Errorf("%w: decoding rate feed: %v", errs.ErrExternalService, err)
	}
	if len(tables) == 0 {
		return nil, fmt.Errorf("%w: rate feed returned no tables", errs.ErrExternalService)
	}

	table := make(Table, len(tables[0].Rates))
	for _, rate := range tables[0].Rates {
		table[rate.Code] = rate.Mid
	}
	return table, nil
}
