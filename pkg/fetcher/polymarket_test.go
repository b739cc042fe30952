package fetcher

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"trendwatch/pkg/config"
)

func TestMarketClient_ActiveMarkets(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/markets", r.URL.Path)
		assert.Equal(t, "true", r.URL.Query().Get("active"))
		assert.Equal(t, "false", r.URL.Query().Get("closed"))
		assert.Equal(t, "100", r.URL.Query().Get("limit"))

		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, `[
			{"id": "m1", "question": "Will candidate X win?", "description": "resolves on certification",
			 "market_slug": "candidate-x", "end_date_iso": "2026-11-03T00:00:00Z",
			 "outcome_prices": [0.62, 0.38], "volume": 150000, "liquidity": 20000,
			 "active": true, "closed": false, "category": "Politics", "tags": ["election"]},
			{"id": "m2", "question": "Minor market", "market_slug": "minor",
			 "volume": 500, "liquidity": 50, "active": true, "closed": false}
		]`)
	}))
	defer server.Close()

	client := NewMarketClient(config.MarketsSourceConfig{BaseURL: server.URL}, 5*time.Second)

	markets, err := client.ActiveMarkets(context.Background())
	require.NoError(t, err)
	require.Len(t, markets, 2)

	assert.Equal(t, "m1", markets[0].ID)
	assert.Equal(t, "candidate-x", markets[0].Slug)
	assert.InDelta(t, 0.62, markets[0].CurrentOdds, 0.0001, "first outcome price")
	assert.Equal(t, []string{"election"}, markets[0].Tags)
	assert.Equal(t, time.Date(2026, 11, 3, 0, 0, 0, 0, time.UTC), markets[0].EndDate)
	assert.True(t, markets[1].EndDate.IsZero(), "missing end date stays zero")
}

func TestMarketClient_Search(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/search", r.URL.Path)
		assert.Equal(t, "election polls", r.URL.Query().Get("query"))

		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, `[{"id": "m1", "question": "Q", "volume": 1000, "active": true}]`)
	}))
	defer server.Close()

	client := NewMarketClient(config.MarketsSourceConfig{BaseURL: server.URL}, 5*time.Second)

	markets, err := client.Search(context.Background(), "election polls")
	require.NoError(t, err)
	require.Len(t, markets, 1)
	assert.Equal(t, "m1", markets[0].ID)
}

func TestMarketClient_FindMatching(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		switch r.URL.Query().Get("query") {
		case "election":
			fmt.Fprint(w, `[
				{"id": "m1", "question": "Q1", "volume": 50000, "active": true, "closed": false},
				{"id": "m2", "question": "Q2", "volume": 50, "active": true, "closed": false},
				{"id": "m3", "question": "Q3", "volume": 9000, "active": false, "closed": false}
			]`)
		case "polls":
			// m1 repeats across searches, must not duplicate
			fmt.Fprint(w, `[
				{"id": "m1", "question": "Q1", "volume": 50000, "active": true, "closed": false},
				{"id": "m4", "question": "Q4", "volume": 2000, "active": true, "closed": true}
			]`)
		default: // title search
			fmt.Fprint(w, `[{"id": "m5", "question": "Q5", "volume": 700, "active": true, "closed": false}]`)
		}
	}))
	defer server.Close()

	client := NewMarketClient(config.MarketsSourceConfig{BaseURL: server.URL}, 5*time.Second)

	matches, err := client.FindMatching(context.Background(), "Election polls tighten", []string{"election", "polls"})
	require.NoError(t, err)
	require.Len(t, matches, 2, "low volume, inactive, closed and duplicate markets filtered out")
	assert.Equal(t, "m1", matches[0].ID)
	assert.Equal(t, "m5", matches[1].ID)
}

func TestMarketClient_FindMatching_SearchErrorsTolerated(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("query") == "boom" {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, `[{"id": "m1", "question": "Q1", "volume": 5000, "active": true, "closed": false}]`)
	}))
	defer server.Close()

	client := NewMarketClient(config.MarketsSourceConfig{BaseURL: server.URL}, 5*time.Second)

	matches, err := client.FindMatching(context.Background(), "title", []string{"boom", "ok"})
	require.NoError(t, err)
	assert.Len(t, matches, 1, "failed keyword search skipped")
}
