package service

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// CoinGeckoSource fetches spot prices from the CoinGecko simple price API.
// Coin identifiers are CoinGecko ids ("bitcoin", "ethereum"), not tickers.
type CoinGeckoSource struct {
	baseURL string
	client  *http.Client
}

// NewCoinGeckoSource creates a source against baseURL (e.g.
// "https://api.coingecko.com/api/v3") with the given request timeout.
func NewCoinGeckoSource(baseURL string, timeout time.Duration) *CoinGeckoSource {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &CoinGeckoSource{
		baseURL: strings.TrimRight(baseURL, "/"),
		client:  &http.Client{Timeout: timeout},
	}
}

func (s *CoinGeckoSource) Name() string { return "coingecko" }

// FetchPrices requests USD prices for all coins in one call. Coins unknown
// to CoinGecko are omitted from the result.
func (s *CoinGeckoSource) FetchPrices(ctx context.Context, coins []string) (map[string]float64, error) {
	if len(coins) == 0 {
		return map[string]float64{}, nil
	}

	q := url.Values{}
	q.Set("ids", strings.Join(coins, ","))
	q.Set("vs_currencies", "usd")
	endpoint := s.baseURL + "/simple/price?" + q.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("coingecko: build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("coingecko: fetch prices: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("coingecko: fetch prices: unexpected status %d", resp.StatusCode)
	}

	// Response shape: {"bitcoin": {"usd": 64021.5}, ...}
	var body map[string]map[string]float64
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return nil, fmt.Errorf("coingecko: decode response: %w", err)
	}

	prices := make(map[string]float64, len(body))
	for coin, quotes := range body {
		if usd, ok := quotes["usd"]; ok && usd > 0 {
			prices[coin] = usd
		}
	}
	return prices, nil
}
