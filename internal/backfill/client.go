package backfill

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/goccy/go-json"
	"github.com/mselser95/polymarket-insider/pkg/types"
	"go.uber.org/zap"
)

// PageSize is the Data API maximum page size for /trades.
const PageSize = 500

// Client fetches historical trades from the Polymarket Data API.
type Client struct {
	baseURL    string
	httpClient *http.Client
	logger     *zap.Logger

	maxRetries        int
	initialBackoff    time.Duration
	maxBackoff        time.Duration
	backoffMultiplier float64
	pageDelay         time.Duration
}

// NewClient creates a Data API client.
func NewClient(baseURL string, timeout time.Duration, logger *zap.Logger) *Client {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Client{
		baseURL:           strings.TrimRight(baseURL, "/"),
		httpClient:        &http.Client{Timeout: timeout},
		logger:            logger,
		maxRetries:        3,
		initialBackoff:    500 * time.Millisecond,
		maxBackoff:        5 * time.Second,
		backoffMultiplier: 2.0,
		pageDelay:         100 * time.Millisecond,
	}
}

// FetchTrades fetches one page of trades for a market, newest first.
// Rows that fail normalization are skipped.
func (c *Client) FetchTrades(ctx context.Context, market string, limit, offset int) ([]*types.Trade, error) {
	if limit <= 0 || limit > PageSize {
		limit = PageSize
	}

	params := url.Values{}
	params.Set("market", market)
	params.Set("limit", strconv.Itoa(limit))
	params.Set("offset", strconv.Itoa(offset))
	requestURL := fmt.Sprintf("%s/trades?%s", c.baseURL, params.Encode())

	body, err := c.getWithRetry(ctx, requestURL)
	if err != nil {
		return nil, err
	}

	var raw []types.RawTrade
	err = json.Unmarshal(body, &raw)
	if err != nil {
		return nil, fmt.Errorf("unmarshal trades: %w", err)
	}

	now := time.Now()
	trades := make([]*types.Trade, 0, len(raw))
	for i := range raw {
		tr, err := raw[i].Normalize(types.SourceHistorical, now)
		if err != nil {
			InvalidTradesTotal.Inc()
			continue
		}
		trades = append(trades, tr)
	}
	return trades, nil
}

// FetchHistory pages backwards through a market's trades until the page
// runs short, a trade older than lookback is reached, or maxTrades is hit.
func (c *Client) FetchHistory(ctx context.Context, market string, lookback time.Duration, maxTrades int) ([]*types.Trade, error) {
	start := time.Now()
	cutoff := start.Add(-lookback)

	var all []*types.Trade
	offset := 0
	for maxTrades <= 0 || len(all) < maxTrades {
		page, err := c.FetchTrades(ctx, market, PageSize, offset)
		if err != nil {
			return nil, fmt.Errorf("fetch page at offset %d: %w", offset, err)
		}
		if len(page) == 0 {
			break
		}

		reachedCutoff := false
		for _, tr := range page {
			if lookback > 0 && !tr.Timestamp.After(cutoff) {
				reachedCutoff = true
				break
			}
			all = append(all, tr)
			if maxTrades > 0 && len(all) >= maxTrades {
				break
			}
		}

		if reachedCutoff || len(page) < PageSize || (maxTrades > 0 && len(all) >= maxTrades) {
			break
		}
		offset += PageSize

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(c.pageDelay):
		}
	}

	FetchDurationSeconds.Observe(time.Since(start).Seconds())
	c.logger.Debug("history-fetched",
		zap.String("market-id", market),
		zap.Int("trades", len(all)),
		zap.Duration("lookback", lookback))

	return all, nil
}

// getWithRetry retries timeouts, 429 and 5xx responses with exponential
// backoff. Other 4xx responses fail immediately.
func (c *Client) getWithRetry(ctx context.Context, requestURL string) ([]byte, error) {
	backoff := c.initialBackoff
	var lastErr error

	for attempt := 0; attempt <= c.maxRetries; attempt++ {
		if attempt > 0 {
			c.logger.Debug("data-api-retry",
				zap.Int("attempt", attempt),
				zap.Duration("backoff", backoff),
				zap.Error(lastErr))

			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(backoff):
			}

			backoff = time.Duration(float64(backoff) * c.backoffMultiplier)
			if backoff > c.maxBackoff {
				backoff = c.maxBackoff
			}
		}

		body, retry, err := c.get(ctx, requestURL)
		if err == nil {
			return body, nil
		}
		lastErr = err
		if !retry || ctx.Err() != nil {
			break
		}
	}

	FetchErrorsTotal.Inc()
	return nil, lastErr
}

func (c *Client) get(ctx context.Context, requestURL string) ([]byte, bool, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, requestURL, nil)
	if err != nil {
		return nil, false, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", "polymarket-insider/1.0")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		var netErr net.Error
		retry := errors.As(err, &netErr) && netErr.Timeout()
		return nil, retry, fmt.Errorf("do request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, true, fmt.Errorf("read response body: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		retry := resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500
		return nil, retry, fmt.Errorf("unexpected status code %d: %s", resp.StatusCode, string(body))
	}

	return body, false, nil
}
