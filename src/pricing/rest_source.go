package pricing

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/shopspring/decimal"
	logger "github.com/sirupsen/logrus"
)

// tickerResponse matches the Binance-style price endpoint most quote APIs
// expose: {"symbol":"BTCUSDT","price":"45000.10"}.
type tickerResponse struct {
	Symbol string `json:"symbol"`
	Price  string `json:"price"`
}

// RESTSource fetches reference prices from a REST quote endpoint with
// internal retry.
type RESTSource struct {
	http      *resty.Client
	quotePath string
}

// NewRESTSource builds a price client for the given base URL and quote path.
func NewRESTSource(baseURL, quotePath string, timeout time.Duration) *RESTSource {
	if strings.TrimSpace(baseURL) == "" {
		baseURL = "https://api.binance.com"
		logger.Warnf("No price base URL provided, using default: %s", baseURL)
	}
	baseURL = strings.TrimRight(baseURL, "/")

	httpClient := resty.New().
		SetBaseURL(baseURL).
		SetTimeout(timeout).
		SetRetryCount(defaultRetryAttempts - 1).
		SetRetryWaitTime(defaultRetryBaseDelay).
		SetRetryMaxWaitTime(defaultRetryMaxBackoff).
		AddRetryCondition(isRetryableResp)

	return &RESTSource{http: httpClient, quotePath: quotePath}
}

func isRetryableResp(r *resty.Response, err error) bool {
	if err != nil {
		return true
	}
	if r == nil {
		return true
	}
	code := r.StatusCode()
	return code == 429 || code >= 500
}

// GetPrice returns the current reference price for a symbol.
func (s *RESTSource) GetPrice(ctx context.Context, symbol string) (decimal.Decimal, error) {
	var out tickerResponse

	resp, err := s.http.R().
		SetContext(ctx).
		SetQueryParam("symbol", symbol).
		SetResult(&out).
		Get(s.quotePath)
	if err != nil {
		return decimal.Zero, fmt.Errorf("price request failed for %s: %w", symbol, err)
	}
	if resp.IsError() {
		return decimal.Zero, fmt.Errorf("price request for %s returned %d", symbol, resp.StatusCode())
	}

	price, err := decimal.NewFromString(out.Price)
	if err != nil {
		return decimal.Zero, fmt.Errorf("unparseable price %q for %s: %w", out.Price, symbol, err)
	}
	if price.LessThanOrEqual(decimal.Zero) {
		return decimal.Zero, fmt.Errorf("non-positive price %s for %s", price, symbol)
	}

	return price, nil
}
