package testutil

import (
	"net/http"
	"net/http/httptest"
	"strconv"
	"sync"
	"time"

	"github.com/goccy/go-json"
	"github.com/mselser95/polymarket-insider/pkg/types"
)

// MockGammaAPI is a mock HTTP server that simulates the Polymarket Gamma API.
type MockGammaAPI struct {
	*httptest.Server
	Markets []*types.Market
	mu      sync.RWMutex
}

// NewMockGammaAPI creates a new mock Gamma API server.
func NewMockGammaAPI(markets []*types.Market) *MockGammaAPI {
	mock := &MockGammaAPI{
		Markets: markets,
	}

	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mock.mu.RLock()
		defer mock.mu.RUnlock()

		// Gamma API returns a direct array, not wrapped in an object
		if r.URL.Path == "/markets" {
			offset, _ := strconv.Atoi(r.URL.Query().Get("offset"))
			limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
			page := mock.Markets
			if slug := r.URL.Query().Get("slug"); slug != "" {
				page = nil
				for _, m := range mock.Markets {
					if m.Slug == slug {
						page = append(page, m)
					}
				}
			}
			if offset >= len(page) {
				page = nil
			} else {
				page = page[offset:]
			}
			if limit > 0 && len(page) > limit {
				page = page[:limit]
			}
			writeJSON(w, page)
			return
		}

		if len(r.URL.Path) > 9 && r.URL.Path[:9] == "/markets/" {
			slug := r.URL.Path[9:]
			for _, m := range mock.Markets {
				if m.Slug == slug {
					writeJSON(w, m)
					return
				}
			}
			http.NotFound(w, r)
			return
		}

		http.NotFound(w, r)
	})

	mock.Server = httptest.NewServer(handler)
	return mock
}

// SetMarkets replaces the markets served by the mock API.
func (m *MockGammaAPI) SetMarkets(markets []*types.Market) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Markets = markets
}

// DataAPITrade is the wire shape of a Data API /trades element.
type DataAPITrade struct {
	ProxyWallet     string  `json:"proxyWallet"`
	Side            string  `json:"side"`
	Asset           string  `json:"asset"`
	ConditionID     string  `json:"conditionId"`
	Size            float64 `json:"size"`
	Price           float64 `json:"price"`
	Timestamp       int64   `json:"timestamp"`
	TransactionHash string  `json:"transactionHash"`
}

// MockDataAPI simulates the Polymarket Data API /trades endpoint with
// offset pagination.
type MockDataAPI struct {
	*httptest.Server
	mu       sync.RWMutex
	trades   map[string][]DataAPITrade
	Requests int
	Fail     bool
}

// NewMockDataAPI creates a new mock Data API server.
func NewMockDataAPI() *MockDataAPI {
	mock := &MockDataAPI{trades: make(map[string][]DataAPITrade)}

	mock.Server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mock.mu.Lock()
		mock.Requests++
		fail := mock.Fail
		mock.mu.Unlock()

		if fail {
			http.Error(w, "upstream unavailable", http.StatusServiceUnavailable)
			return
		}
		if r.URL.Path != "/trades" {
			http.NotFound(w, r)
			return
		}

		mock.mu.RLock()
		all := mock.trades[r.URL.Query().Get("market")]
		mock.mu.RUnlock()

		offset, _ := strconv.Atoi(r.URL.Query().Get("offset"))
		limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
		if offset >= len(all) {
			writeJSON(w, []DataAPITrade{})
			return
		}
		page := all[offset:]
		if limit > 0 && len(page) > limit {
			page = page[:limit]
		}
		writeJSON(w, page)
	}))

	return mock
}

// AddTrades registers trades (newest first, as the API returns them).
func (m *MockDataAPI) AddTrades(market string, trades ...DataAPITrade) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.trades[market] = append(m.trades[market], trades...)
}

// SetFail makes every request return 503.
func (m *MockDataAPI) SetFail(fail bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Fail = fail
}

// RequestCount returns the number of requests served.
func (m *MockDataAPI) RequestCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.Requests
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(v)
}

// MapCache is a synchronous cache.Cache for tests; ristretto applies
// writes asynchronously.
type MapCache struct {
	mu      sync.Mutex
	entries map[string]mapEntry
	Sets    int
}

type mapEntry struct {
	value   interface{}
	expires time.Time
}

// NewMapCache creates an empty MapCache.
func NewMapCache() *MapCache {
	return &MapCache{entries: make(map[string]mapEntry)}
}

func (c *MapCache) Get(key string) (interface{}, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	e, ok := c.entries[key]
	if !ok || (!e.expires.IsZero() && time.Now().After(e.expires)) {
		return nil, false
	}
	return e.value, true
}

func (c *MapCache) Set(key string, value interface{}, ttl time.Duration) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	var expires time.Time
	if ttl > 0 {
		expires = time.Now().Add(ttl)
	}
	c.entries[key] = mapEntry{value: value, expires: expires}
	c.Sets++
	return true
}

func (c *MapCache) Delete(key string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.entries, key)
}

func (c *MapCache) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries = make(map[string]mapEntry)
}

func (c *MapCache) Close() {}
