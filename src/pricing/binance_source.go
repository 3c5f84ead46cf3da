package pricing

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"github.com/nntaoli-project/goex"
	"github.com/nntaoli-project/goex/binance"
	"github.com/shopspring/decimal"
)

// BinanceSource reads last-trade prices through the goex Binance client.
type BinanceSource struct {
	exchange goex.API
}

// NewBinanceSource creates a source against the global Binance endpoint.
func NewBinanceSource() *BinanceSource {
	apiConfig := &goex.APIConfig{
		HttpClient: http.DefaultClient,
		Endpoint:   binance.GLOBAL_API_BASE_URL,
	}
	return &BinanceSource{exchange: binance.NewWithConfig(apiConfig)}
}

// GetPrice returns the last traded price for a symbol such as "BTCUSDT".
func (s *BinanceSource) GetPrice(_ context.Context, symbol string) (decimal.Decimal, error) {
	pair := currencyPairFromSymbol(symbol)

	ticker, err := s.exchange.GetTicker(pair)
	if err != nil {
		return decimal.Zero, fmt.Errorf("binance ticker for %s: %w", symbol, err)
	}

	price := decimal.NewFromFloat(ticker.Last)
	if price.LessThanOrEqual(decimal.Zero) {
		return decimal.Zero, fmt.Errorf("binance returned non-positive price for %s", symbol)
	}

	return price, nil
}

// currencyPairFromSymbol converts "BTCUSDT" / "BTC_USDT" / "BTC/USDT" into a
// goex currency pair.
func currencyPairFromSymbol(symbol string) goex.CurrencyPair {
	normalized := strings.ToUpper(strings.NewReplacer("/", "_", "-", "_").Replace(symbol))

	if !strings.Contains(normalized, "_") {
		for _, quote := range []string{"USDT", "BUSD", "USDC", "USD", "BTC", "ETH"} {
			if strings.HasSuffix(normalized, quote) && len(normalized) > len(quote) {
				normalized = normalized[:len(normalized)-len(quote)] + "_" + quote
				break
			}
		}
	}

	return goex.NewCurrencyPair2(normalized)
}
