package exchange

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/shopspring/decimal"
)

var (
	ErrRateSource   = errors.New("rate source request failed")
	ErrRateNotFound = errors.New("quote not found in rate source response")
	ErrRateParse    = errors.New("rate source returned a malformed rate")
)

// quote mirrors one entry of the dolarsi "valoresprincipales" payload. The
// buy price comes back as a string with a comma decimal separator.
type quote struct {
	Casa struct {
		Nombre string `json:"nombre"`
		Compra string `json:"compra"`
	} `json:"casa"`
}

// DolarSiClient fetches the configured quote (e.g. "Dolar Blue") from a
// dolarsi-style rate endpoint.
type DolarSiClient struct {
	http      *resty.Client
	url       string
	quoteName string
}

// NewDolarSiClient creates a rate-source client with a bounded request
// timeout so a slow upstream cannot stall cache readers indefinitely.
func NewDolarSiClient(url, quoteName string, timeout time.Duration) *DolarSiClient {
	return &DolarSiClient{
		http:      resty.New().SetTimeout(timeout),
		url:       url,
		quoteName: quoteName,
	}
}

// FetchRate retrieves the buy price of the configured quote as a decimal.
func (c *DolarSiClient) FetchRate(ctx context.Context) (decimal.Decimal, error) {
	resp, err := c.http.R().SetContext(ctx).Get(c.url)
	if err != nil {
		return decimal.Zero, fmt.Errorf("%w: %w", ErrRateSource, err)
	}
	if resp.IsError() {
		return decimal.Zero, fmt.Errorf("%w: unexpected status %d", ErrRateSource, resp.StatusCode())
	}

	var quotes []quote
	if err := json.Unmarshal(resp.Body(), &quotes); err != nil {
		return decimal.Zero, fmt.Errorf("%w: decode response: %w", ErrRateSource, err)
	}

	for _, q := range quotes {
		if q.Casa.Nombre != c.quoteName {
			continue
		}
		return parseRate(q.Casa.Compra)
	}

	return decimal.Zero, fmt.Errorf("%w: %q", ErrRateNotFound, c.quoteName)
}

// parseRate normalizes the comma decimal separator (dots before a comma are
// thousands separators) and rejects rates that a correct source could never
// return.
func parseRate(raw string) (decimal.Decimal, error) {
	normalized := strings.TrimSpace(raw)
	if strings.Contains(normalized, ",") {
		normalized = strings.ReplaceAll(normalized, ".", "")
		normalized = strings.ReplaceAll(normalized, ",", ".")
	}

	rate, err := decimal.NewFromString(normalized)
	if err != nil {
		return decimal.Zero, fmt.Errorf("%w: %q", ErrRateParse, raw)
	}
	if rate.Sign() <= 0 {
		return decimal.Zero, fmt.Errorf("%w: non-positive rate %q", ErrRateParse, raw)
	}

	return rate, nil
}
