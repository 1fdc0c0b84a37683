// Package catalog provides the HTTP client for the remote card catalog
// with pagination, error classification, and optional retry.
package catalog

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// Prometheus metrics for catalog requests.
var (
	catalogRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "collector_catalog_requests_total",
		Help: "Total catalog requests by HTTP status",
	}, []string{"status"})

	catalogRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "collector_catalog_request_duration_seconds",
		Help:    "Catalog request duration in seconds by set code",
		Buckets: []float64{0.1, 0.5, 1, 2, 5, 10},
	}, []string{"set_code"})

	catalogErrorsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "collector_catalog_errors_total",
		Help: "Total catalog fetch errors by kind",
	}, []string{"kind"})
)

// DefaultBaseURL is the card search endpoint of the public catalog.
const DefaultBaseURL = "https://cards.fabtcg.com/api/search/v1/cards/"

// Card is one card record exactly as returned by the catalog. The
// collector treats it as schema-less and never mutates it after receipt.
type Card = json.RawMessage

// Pacer gates outbound requests. The catalog client uses it between
// pagination requests within one set fetch; the batch orchestrator owns
// pacing between sets.
type Pacer interface {
	Wait(ctx context.Context) error
}

// Fetcher retrieves all card records for one set code.
type Fetcher interface {
	FetchSet(ctx context.Context, code string) ([]Card, error)
}

// Config holds the catalog client configuration.
type Config struct {
	// BaseURL is the card search endpoint; set codes are passed as the
	// set_code query parameter.
	BaseURL string

	// UserAgent identifies the collector to the catalog.
	UserAgent string

	// Timeout bounds each individual HTTP request.
	Timeout time.Duration

	// MaxPages caps pagination per set, guarding against a pathological
	// next-link loop.
	MaxPages int

	// Pacer, when set, gates follow-up page requests within one fetch.
	Pacer Pacer
}

// DefaultConfig returns a safe default configuration.
func DefaultConfig() Config {
	return Config{
		BaseURL:   DefaultBaseURL,
		UserAgent: "card-collector/1.0",
		Timeout:   30 * time.Second,
		MaxPages:  100,
	}
}

// Client fetches card collections from the remote catalog. One FetchSet
// call performs one request per page; all failure modes funnel into a
// classified *Error, never a panic or an unclassified fault.
type Client struct {
	httpClient *http.Client
	config     Config
	logger     zerolog.Logger
}

// New creates a catalog client.
func New(cfg Config) (*Client, error) {
	if cfg.BaseURL == "" {
		return nil, fmt.Errorf("base URL is required")
	}
	if cfg.UserAgent == "" {
		return nil, fmt.Errorf("user-agent is required")
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}
	if cfg.MaxPages <= 0 {
		cfg.MaxPages = 100
	}

	logger := log.With().Str("component", "catalog-client").Logger()

	return &Client{
		httpClient: &http.Client{
			Timeout: cfg.Timeout,
		},
		config: cfg,
		logger: logger,
	}, nil
}

// page mirrors the catalog's paginated search response.
type page struct {
	Count    int     `json:"count"`
	Next     *string `json:"next"`
	Previous *string `json:"previous"`
	Results  []Card  `json:"results"`
}

// FetchSet retrieves every card record for the given set code, following
// pagination links in order. Card order is preserved as received. No
// retries happen here; retry policy is a decorator concern (WithRetry).
func (c *Client) FetchSet(ctx context.Context, code string) ([]Card, error) {
	if code == "" {
		return nil, ErrEmptySetCode
	}

	start := time.Now()
	defer func() {
		catalogRequestDuration.WithLabelValues(code).Observe(time.Since(start).Seconds())
	}()

	pageURL := c.config.BaseURL + "?set_code=" + url.QueryEscape(code)

	var cards []Card
	for pageNum := 1; ; pageNum++ {
		if pageNum > c.config.MaxPages {
			c.logger.Warn().
				Str("set_code", code).
				Int("max_pages", c.config.MaxPages).
				Msg("Pagination cap reached, returning partial set")
			break
		}

		// Gate follow-up pages the same way the orchestrator gates sets.
		if pageNum > 1 && c.config.Pacer != nil {
			if err := c.config.Pacer.Wait(ctx); err != nil {
				catalogErrorsTotal.WithLabelValues(string(ErrorKindNetwork)).Inc()
				return nil, &Error{SetCode: code, Kind: ErrorKindNetwork, Err: err}
			}
		}

		p, err := c.fetchPage(ctx, code, pageURL, pageNum)
		if err != nil {
			catalogErrorsTotal.WithLabelValues(string(KindOf(err))).Inc()
			return nil, err
		}

		cards = append(cards, p.Results...)

		if p.Next == nil || *p.Next == "" {
			break
		}
		pageURL = *p.Next
	}

	c.logger.Info().
		Str("set_code", code).
		Int("cards", len(cards)).
		Dur("duration", time.Since(start)).
		Msg("Set fetched")

	return cards, nil
}

// fetchPage performs one HTTP request and decodes one page of results.
func (c *Client) fetchPage(ctx context.Context, code, pageURL string, pageNum int) (*page, error) {
	c.logger.Debug().
		Str("set_code", code).
		Str("url", pageURL).
		Int("page", pageNum).
		Msg("Fetching catalog page")

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, pageURL, nil)
	if err != nil {
		return nil, &Error{SetCode: code, Kind: ErrorKindNetwork, Err: err}
	}
	req.Header.Set("User-Agent", c.config.UserAgent)
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		catalogRequestsTotal.WithLabelValues("network_error").Inc()
		c.logger.Error().Err(err).Str("set_code", code).Msg("Catalog request failed")
		return nil, &Error{SetCode: code, Kind: ErrorKindNetwork, Err: err}
	}
	defer resp.Body.Close()

	catalogRequestsTotal.WithLabelValues(fmt.Sprintf("%d", resp.StatusCode)).Inc()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		c.logger.Warn().
			Str("set_code", code).
			Int("status_code", resp.StatusCode).
			Msg("Catalog returned non-success status")
		return nil, &Error{
			SetCode:    code,
			Kind:       ErrorKindRemoteStatus,
			StatusCode: resp.StatusCode,
			Message:    resp.Status,
		}
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &Error{SetCode: code, Kind: ErrorKindNetwork, Err: err}
	}

	var p page
	if err := json.Unmarshal(body, &p); err != nil {
		c.logger.Warn().
			Err(err).
			Str("set_code", code).
			Int("page", pageNum).
			Msg("Catalog response body is not valid JSON")
		return nil, &Error{SetCode: code, Kind: ErrorKindDecode, Err: err}
	}

	return &p, nil
}

// SetHTTPClient sets a custom HTTP client (for testing).
func (c *Client) SetHTTPClient(client *http.Client) {
	c.httpClient = client
}
