package quote

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleResponse = `{
	"data": {
		"BTC": [{
			"name": "Bitcoin",
			"slug": "bitcoin",
			"quote": {"USD": {"price": 64021.553, "percent_change_1h": 0.42, "market_cap": 1260000000000}}
		}],
		"ETH": [{
			"name": "Ethereum",
			"slug": "ethereum",
			"quote": {"USD": {"price": 3012.77, "percent_change_1h": -1.2, "market_cap": 362000000000}}
		}]
	}
}`

func TestClientLookup(t *testing.T) {
	var gotKey, gotSymbols string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotKey = r.Header.Get("X-CMC_PRO_API_KEY")
		gotSymbols = r.URL.Query().Get("symbol")
		w.Write([]byte(sampleResponse))
	}))
	defer server.Close()

	client := NewClient(server.URL)
	quotes, err := client.Lookup(context.Background(), "test-key", []string{"BTC", "ETH"})
	require.NoError(t, err)

	assert.Equal(t, "test-key", gotKey)
	assert.Equal(t, "BTC,ETH", gotSymbols)
	require.Len(t, quotes, 2)

	bySymbol := make(map[string]Quote)
	for _, q := range quotes {
		bySymbol[q.Symbol] = q
	}
	btc := bySymbol["BTC"]
	assert.Equal(t, "Bitcoin", btc.Name)
	assert.Equal(t, "bitcoin", btc.Slug)
	assert.Equal(t, "64021.553", btc.PriceUSD.String())
	assert.InDelta(t, 0.42, btc.PercentChange1h, 1e-9)

	eth := bySymbol["ETH"]
	assert.Equal(t, "ethereum", eth.Slug)
	assert.InDelta(t, -1.2, eth.PercentChange1h, 1e-9)
}

func TestClientLookupUnknownSymbolAbsent(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		// CMC returns an empty listing array for symbols it cannot resolve
		w.Write([]byte(`{"data": {"NOTREAL": []}}`))
	}))
	defer server.Close()

	client := NewClient(server.URL)
	quotes, err := client.Lookup(context.Background(), "test-key", []string{"NOTREAL"})
	require.NoError(t, err)
	assert.Empty(t, quotes)
}

func TestClientLookupInvalidKey(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer server.Close()

	client := NewClient(server.URL)
	_, err := client.Lookup(context.Background(), "bad-key", []string{"BTC"})
	assert.ErrorIs(t, err, ErrInvalidAPIKey)
}

func TestClientLookupRetriesServerErrors(t *testing.T) {
	var calls int
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		if calls < 3 {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		w.Write([]byte(sampleResponse))
	}))
	defer server.Close()

	client := NewClient(server.URL)
	quotes, err := client.Lookup(context.Background(), "test-key", []string{"BTC", "ETH"})
	require.NoError(t, err)
	assert.Len(t, quotes, 2)
	assert.Equal(t, 3, calls)
}

func TestClientLookupNoSymbols(t *testing.T) {
	client := NewClient("http://example.invalid")
	quotes, err := client.Lookup(context.Background(), "test-key", nil)
	require.NoError(t, err)
	assert.Nil(t, quotes)
}
