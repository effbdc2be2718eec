// Package rates resolves daily exchange rates to the base currency.
package rates

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/shopspring/decimal"
)

// Source returns the authoritative daily rate of a currency to the base
// currency. ok is false when the rate is unavailable (outage, unsupported
// currency); callers must skip normalization and retry later, never
// substitute zero.
type Source interface {
	Rate(date time.Time, currency string) (rate decimal.Decimal, ok bool, err error)
}

// HTTPSource fetches daily rates from a CNB-style exchange rate service.
type HTTPSource struct {
	httpClient *http.Client
	baseURL    string
}

// NewHTTPSource creates a new HTTPSource.
func NewHTTPSource(baseURL string, timeout time.Duration) *HTTPSource {
	if timeout == 0 {
		timeout = 30 * time.Second
	}

	return &HTTPSource{
		httpClient: &http.Client{
			Timeout: timeout,
		},
		baseURL: baseURL,
	}
}

// dailyRatesResponse is the rate service response envelope.
type dailyRatesResponse struct {
	Rates []struct {
		CurrencyCode string          `json:"currencyCode"`
		Amount       int64           `json:"amount"`
		Rate         decimal.Decimal `json:"rate"`
	} `json:"rates"`
}

// Rate fetches the rate of one currency for one calendar day.
func (s *HTTPSource) Rate(date time.Time, currency string) (decimal.Decimal, bool, error) {
	endpoint := fmt.Sprintf("%s/cnbapi/exrates/daily?date=%s&lang=EN",
		s.baseURL, url.QueryEscape(date.Format("2006-01-02")))

	req, err := http.NewRequest("GET", endpoint, nil)
	if err != nil {
		return decimal.Zero, false, fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("Accept", "application/json")

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return decimal.Zero, false, fmt.Errorf("failed to fetch rates: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return decimal.Zero, false, fmt.Errorf("rate service error (status %d)", resp.StatusCode)
	}

	var daily dailyRatesResponse
	if err := json.NewDecoder(resp.Body).Decode(&daily); err != nil {
		return decimal.Zero, false, fmt.Errorf("failed to decode rates response: %w", err)
	}

	for _, r := range daily.Rates {
		if r.CurrencyCode != currency {
			continue
		}
		if r.Amount <= 0 || !r.Rate.IsPositive() {
			return decimal.Zero, false, nil
		}
		// Rates are quoted per Amount units of the currency.
		return r.Rate.Div(decimal.NewFromInt(r.Amount)), true, nil
	}

	// Currency not quoted on that day.
	return decimal.Zero, false, nil
}
