// Package extstats pulls summary numbers from an external analytics service
// so the dashboard can show them next to the self-hosted stats. The provider
// is optional: without credentials every call degrades to a "not configured"
// state instead of erroring.
package extstats

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"folio/internal/config"
)

// Summary is the external service's aggregate for a lookback window.
type Summary struct {
	PageViews   int     `json:"pageViews"`
	Visitors    int     `json:"visitors"`
	BounceRate  float64 `json:"bounceRate"`
	AvgDuration float64 `json:"avgDuration"`
}

// Referrer is one external referrer row.
type Referrer struct {
	Source   string `json:"source"`
	Visitors int    `json:"visitors"`
}

// Provider is an HTTP client for the external summary API.
type Provider struct {
	baseURL string
	token   string
	client  *http.Client
	logger  *slog.Logger
}

// NewProvider builds a provider from config. Missing credentials are fine;
// the provider just reports itself unconfigured.
func NewProvider(cfg *config.Config, logger *slog.Logger) *Provider {
	return &Provider{
		baseURL: strings.TrimRight(cfg.ExtStatsURL, "/"),
		token:   cfg.ExtStatsToken,
		client:  &http.Client{Timeout: 10 * time.Second},
		logger:  logger,
	}
}

// IsConfigured reports whether credentials are present.
func (p *Provider) IsConfigured() bool {
	return p.baseURL != "" && p.token != ""
}

func (p *Provider) get(ctx context.Context, path string, out interface{}) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.baseURL+path, nil)
	if err != nil {
		return fmt.Errorf("building request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+p.token)
	req.Header.Set("Accept", "application/json")

	resp, err := p.client.Do(req)
	if err != nil {
		return fmt.Errorf("calling external stats: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("external stats returned %d", resp.StatusCode)
	}
	return json.NewDecoder(resp.Body).Decode(out)
}

// GetSummary fetches the external aggregate for the window. Returns
// (nil, nil) when the provider is not configured; HTTP failures are logged
// and degrade to (nil, nil) too, because the external numbers are garnish,
// not the dashboard's backbone.
func (p *Provider) GetSummary(ctx context.Context, windowDays int) (*Summary, error) {
	if !p.IsConfigured() {
		return nil, nil
	}

	var summary Summary
	path := fmt.Sprintf("/api/v1/summary?days=%d", windowDays)
	if err := p.get(ctx, path, &summary); err != nil {
		p.logger.Warn("External stats summary unavailable", "error", err)
		return nil, nil
	}
	return &summary, nil
}

// GetReferrers fetches the external top-referrers list, degrading like
// GetSummary.
func (p *Provider) GetReferrers(ctx context.Context, windowDays, limit int) ([]Referrer, error) {
	if !p.IsConfigured() {
		return nil, nil
	}

	var referrers []Referrer
	path := fmt.Sprintf("/api/v1/referrers?days=%d&limit=%d", windowDays, limit)
	if err := p.get(ctx, path, &referrers); err != nil {
		p.logger.Warn("External referrers unavailable", "error", err)
		return nil, nil
	}
	return referrers, nil
}
