package discovery

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/goccy/go-json"
	"github.com/mselser95/polymarket-insider/pkg/types"
	"go.uber.org/zap"
)

// MaxBatchSize is the maximum number of markets the Gamma API returns per request.
const MaxBatchSize = 100

// Client is an HTTP client for the Polymarket Gamma API.
type Client struct {
	baseURL    string
	httpClient *http.Client
	logger     *zap.Logger
}

// NewClient creates a new Gamma API client.
func NewClient(baseURL string, timeout time.Duration, logger *zap.Logger) *Client {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{
			Timeout: timeout,
		},
		logger: logger,
	}
}

// FetchActiveMarkets returns open markets ordered by 24h volume, highest first.
// Limits above MaxBatchSize are fetched page by page; 0 fetches everything.
func (c *Client) FetchActiveMarkets(ctx context.Context, limit, offset int) ([]*types.Market, error) {
	fetchAll := limit == 0

	var all []*types.Market
	for page := 0; ; page++ {
		batch := MaxBatchSize
		if !fetchAll {
			remaining := limit - len(all)
			if remaining <= 0 {
				break
			}
			if remaining < batch {
				batch = remaining
			}
		}

		params := url.Values{}
		params.Set("active", "true")
		params.Set("closed", "false")
		params.Set("order", "volume24hr")
		params.Set("ascending", "false")
		params.Set("limit", strconv.Itoa(batch))
		params.Set("offset", strconv.Itoa(offset+page*MaxBatchSize))

		markets, err := c.getMarkets(ctx, params)
		if err != nil {
			return nil, fmt.Errorf("fetch page %d: %w", page, err)
		}
		all = append(all, markets...)

		c.logger.Debug("fetched-page",
			zap.Int("page", page),
			zap.Int("markets", len(markets)),
			zap.Int("total", len(all)))

		if len(markets) < batch {
			break
		}
	}

	return all, nil
}

// FetchMarketBySlug fetches a single market by its slug.
func (c *Client) FetchMarketBySlug(ctx context.Context, slug string) (*types.Market, error) {
	params := url.Values{}
	params.Set("slug", slug)

	markets, err := c.getMarkets(ctx, params)
	if err != nil {
		return nil, fmt.Errorf("fetch market %q: %w", slug, err)
	}
	for _, m := range markets {
		if m.Slug == slug {
			return m, nil
		}
	}
	return nil, fmt.Errorf("market not found: %s", slug)
}

func (c *Client) getMarkets(ctx context.Context, params url.Values) ([]*types.Market, error) {
	requestURL := fmt.Sprintf("%s/markets?%s", c.baseURL, params.Encode())

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, requestURL, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", "polymarket-insider/1.0")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("do request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response body: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("unexpected status code %d: %s", resp.StatusCode, string(body))
	}

	// Gamma returns a bare array.
	var markets []*types.Market
	err = json.Unmarshal(body, &markets)
	if err != nil {
		return nil, fmt.Errorf("unmarshal response: %w", err)
	}
	return markets, nil
}
