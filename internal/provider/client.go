// Package provider is the market-data feed client. All live external
// fetches for closes and option chains happen in this package only, and
// every call is gated on the session clock.
package provider

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/hward/premia/internal/contracts"
	"github.com/hward/premia/internal/symbols"
	"github.com/hward/premia/pkg/config"
	"github.com/hward/premia/pkg/httputil"
	"github.com/hward/premia/pkg/logger"
)

// Client handles communication with the market-data provider API.
type Client struct {
	httpClient *httputil.Client
	clock      contracts.SessionClock
	logger     *logger.Logger
	baseURL    string
	apiKey     string
}

// NewClient creates a new provider client. The session clock is mandatory:
// every fetch is refused outside LIVE mode.
func NewClient(cfg config.ProviderConfig, httpClient *httputil.Client, clock contracts.SessionClock, log *logger.Logger) *Client {
	return &Client{
		httpClient: httpClient,
		clock:      clock,
		logger:     log.WithField("module", "provider"),
		baseURL:    cfg.BaseURL,
		apiKey:     cfg.APIKey,
	}
}

// FetchClose fetches the daily close for a symbol.
func (c *Client) FetchClose(ctx context.Context, symbol string, date time.Time) (float64, error) {
	if err := c.clock.EnforceLive("provider.FetchClose"); err != nil {
		return 0, err
	}

	sym := symbols.Normalize(symbol)
	fullURL := fmt.Sprintf("%s/v1/stocks/%s/close?date=%s",
		c.baseURL, url.PathEscape(sym), date.Format("2006-01-02"))

	var payload closeResponse
	if err := c.getJSON(ctx, fullURL, &payload); err != nil {
		return 0, fmt.Errorf("fetch close for %s: %w", sym, err)
	}

	if payload.Close <= 0 {
		return 0, fmt.Errorf("fetch close for %s: non-positive close %.4f", sym, payload.Close)
	}

	c.logger.WithFields(map[string]interface{}{
		"symbol": sym,
		"date":   date.Format("2006-01-02"),
		"close":  payload.Close,
	}).Debug("Fetched close")

	return payload.Close, nil
}

// FetchOptionChain fetches the full option chain for a symbol out to maxDTE
// days. Contracts failing sanity checks are kept but flagged invalid, so
// the snapshot stays a faithful record of what the feed served.
func (c *Client) FetchOptionChain(ctx context.Context, symbol string, maxDTE int) ([]contracts.OptionContract, error) {
	if err := c.clock.EnforceLive("provider.FetchOptionChain"); err != nil {
		return nil, err
	}

	sym := symbols.Normalize(symbol)
	fullURL := fmt.Sprintf("%s/v1/options/%s/chain?max_dte=%d",
		c.baseURL, url.PathEscape(sym), maxDTE)

	var payload chainResponse
	if err := c.getJSON(ctx, fullURL, &payload); err != nil {
		return nil, fmt.Errorf("fetch chain for %s: %w", sym, err)
	}

	now := time.Now()
	out := make([]contracts.OptionContract, 0, len(payload.Contracts))
	valid := 0
	for _, raw := range payload.Contracts {
		oc, err := raw.toContract(now)
		if err != nil {
			c.logger.WithError(err).WithField("contract", raw.ContractSymbol).
				Debug("Skipping malformed contract")
			continue
		}
		if oc.Valid {
			valid++
		}
		out = append(out, oc)
	}

	c.logger.WithFields(map[string]interface{}{
		"symbol": sym,
		"total":  len(out),
		"valid":  valid,
	}).Debug("Fetched option chain")

	return out, nil
}

// getJSON performs an authenticated GET and decodes the JSON body.
func (c *Client) getJSON(ctx context.Context, fullURL string, dest interface{}) error {
	resp, err := c.httpClient.GetWithHeaders(ctx, fullURL, map[string]string{
		"Authorization": "Bearer " + c.apiKey,
		"Accept":        "application/json",
	})
	if err != nil {
		return fmt.Errorf("HTTP request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("unexpected status code %d: %s", resp.StatusCode, string(body))
	}

	if err := json.NewDecoder(resp.Body).Decode(dest); err != nil {
		return fmt.Errorf("decode response failed: %w", err)
	}

	return nil
}
