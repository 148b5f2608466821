// Package quote contains the CoinMarketCap quote API client.
// The client is the transport layer only: it fetches and decodes quotes and
// knows nothing about guilds or rendering.
package quote

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/jpillora/backoff"
	"github.com/shopspring/decimal"
	log "github.com/sirupsen/logrus"
	"github.com/sony/gobreaker"
	"golang.org/x/time/rate"
)

const quotesLatestPath = "/v2/cryptocurrency/quotes/latest"

// ErrInvalidAPIKey indicates the API rejected the configured key
var ErrInvalidAPIKey = errors.New("invalid or unauthorized API key")

// Quote is a single price sample for a symbol
type Quote struct {
	Symbol          string
	Name            string
	Slug            string
	PriceUSD        decimal.Decimal
	PercentChange1h float64
	MarketCap       float64
}

// Client fetches quotes from the CoinMarketCap API
type Client struct {
	baseURL         string
	httpClient      *http.Client
	rateLimiter     *rate.Limiter
	circuitBreaker  *gobreaker.CircuitBreaker
	maxResponseSize int64
	maxRetries      int
}

// NewClient creates a quote API client for the given base URL
func NewClient(baseURL string) *Client {
	return &Client{
		baseURL: strings.TrimSuffix(baseURL, "/"),
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
		// CMC free tier allows 30 requests/minute; stay well under it.
		rateLimiter: rate.NewLimiter(rate.Every(3*time.Second), 5),
		circuitBreaker: gobreaker.NewCircuitBreaker(gobreaker.Settings{
			Name:        "CoinMarketCapAPI",
			MaxRequests: 2,
			Interval:    60 * time.Second,
			Timeout:     30 * time.Second,
			ReadyToTrip: func(counts gobreaker.Counts) bool {
				return counts.ConsecutiveFailures > 5
			},
		}),
		maxResponseSize: 4 * 1024 * 1024,
		maxRetries:      3,
	}
}

// Lookup fetches the latest USD quotes for the given symbols.
// Symbols unknown to the API are absent from the result rather than an error.
func (c *Client) Lookup(ctx context.Context, apiKey string, symbols []string) ([]Quote, error) {
	if len(symbols) == 0 {
		return nil, nil
	}

	result, err := c.circuitBreaker.Execute(func() (interface{}, error) {
		return c.lookupWithRetry(ctx, apiKey, symbols)
	})
	if err != nil {
		return nil, err
	}
	return result.([]Quote), nil
}

func (c *Client) lookupWithRetry(ctx context.Context, apiKey string, symbols []string) ([]Quote, error) {
	b := &backoff.Backoff{
		Min:    300 * time.Millisecond,
		Max:    5 * time.Second,
		Factor: 2,
		Jitter: true,
	}

	var lastErr error
	for attempt := 0; attempt <= c.maxRetries; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(b.Duration()):
			}
		}

		quotes, retryable, err := c.lookupOnce(ctx, apiKey, symbols)
		if err == nil {
			return quotes, nil
		}
		lastErr = err
		if !retryable {
			return nil, err
		}
		log.WithError(err).WithField("attempt", attempt+1).Warn("Quote lookup failed, retrying")
	}
	return nil, lastErr
}

func (c *Client) lookupOnce(ctx context.Context, apiKey string, symbols []string) (quotes []Quote, retryable bool, err error) {
	if err := c.rateLimiter.Wait(ctx); err != nil {
		return nil, false, err
	}

	endpoint := c.baseURL + quotesLatestPath + "?symbol=" + url.QueryEscape(strings.Join(symbols, ","))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, false, err
	}
	req.Header.Set("X-CMC_PRO_API_KEY", apiKey)
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, true, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, c.maxResponseSize))
	if err != nil {
		return nil, true, err
	}

	switch {
	case resp.StatusCode == http.StatusOK:
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		return nil, false, ErrInvalidAPIKey
	case resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500:
		return nil, true, fmt.Errorf("quote API returned status %d", resp.StatusCode)
	default:
		return nil, false, fmt.Errorf("quote API returned status %d: %s", resp.StatusCode, string(body))
	}

	decoded, err := decodeQuotes(body)
	if err != nil {
		return nil, false, fmt.Errorf("failed to decode quote response: %w", err)
	}
	return decoded, false, nil
}

type quotesResponse struct {
	Data map[string][]struct {
		Name  string `json:"name"`
		Slug  string `json:"slug"`
		Quote map[string]struct {
			Price           decimal.Decimal `json:"price"`
			PercentChange1h float64         `json:"percent_change_1h"`
			MarketCap       float64         `json:"market_cap"`
		} `json:"quote"`
	} `json:"data"`
}

// decodeQuotes extracts the first listing per symbol from the v2 response,
// matching the upstream shape where each symbol maps to a list of listings.
func decodeQuotes(body []byte) ([]Quote, error) {
	var parsed quotesResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return nil, err
	}

	quotes := make([]Quote, 0, len(parsed.Data))
	for symbol, listings := range parsed.Data {
		if len(listings) == 0 {
			continue
		}
		first := listings[0]
		usd, ok := first.Quote["USD"]
		if !ok {
			continue
		}
		quotes = append(quotes, Quote{
			Symbol:          symbol,
			Name:            first.Name,
			Slug:            first.Slug,
			PriceUSD:        usd.Price,
			PercentChange1h: usd.PercentChange1h,
			MarketCap:       usd.MarketCap,
		})
	}
	return quotes, nil
}
