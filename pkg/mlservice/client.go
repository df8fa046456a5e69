package mlservice

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/shoplink/bva-backend/pkg/config"
	pkgerrors "github.com/shoplink/bva-backend/pkg/errors"
	"github.com/shoplink/bva-backend/pkg/logger"
	"github.com/shoplink/bva-backend/pkg/metrics"
)

const (
	pathAtRisk     = "/smart-shelf/at-risk"
	pathInsights   = "/smart-shelf/insights"
	pathRestock    = "/restock/strategy"
	pathAdGenerate = "/ads/generate"
)

var (
	errBaseURLRequired = errors.New("ml service base url is required")
	errLoggerRequired  = errors.New("ml service logger is required")
)

// Client wraps the assistant inference service with centralized auth, logging, and error mapping.
type Client struct {
	httpClient *http.Client
	baseURL    string
	apiKey     string
	logger     *logger.Logger
	metrics    *metrics.MLServiceMetrics
}

// NewClient validates the configuration and builds the HTTP wrapper.
func NewClient(cfg config.MLConfig, logg *logger.Logger, m *metrics.MLServiceMetrics) (*Client, error) {
	if logg == nil {
		return nil, errLoggerRequired
	}
	baseURL := strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/")
	if baseURL == "" {
		return nil, errBaseURLRequired
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}

	return &Client{
		httpClient: &http.Client{Timeout: timeout},
		baseURL:    baseURL,
		apiKey:     strings.TrimSpace(cfg.APIKey),
		logger:     logg,
		metrics:    m,
	}, nil
}

// AtRisk flags inventory needing attention (low stock, near expiry, slow moving).
func (c *Client) AtRisk(ctx context.Context, req AtRiskRequest) (*AtRiskResponse, error) {
	out := &AtRiskResponse{}
	if err := c.post(ctx, pathAtRisk, req, out); err != nil {
		return nil, err
	}
	return out, nil
}

// Insights returns dashboard analytics over a sales window.
func (c *Client) Insights(ctx context.Context, req InsightsRequest) (*InsightsResponse, error) {
	out := &InsightsResponse{}
	if err := c.post(ctx, pathInsights, req, out); err != nil {
		return nil, err
	}
	return out, nil
}

// RestockStrategy computes a budget-constrained restocking plan.
func (c *Client) RestockStrategy(ctx context.Context, req RestockRequest) (*RestockResponse, error) {
	out := &RestockResponse{}
	if err := c.post(ctx, pathRestock, req, out); err != nil {
		return nil, err
	}
	return out, nil
}

// GenerateAd produces playbook-driven ad copy plus an image for a product.
func (c *Client) GenerateAd(ctx context.Context, req AdRequest) (*AdResponse, error) {
	out := &AdResponse{}
	if err := c.post(ctx, pathAdGenerate, req, out); err != nil {
		return nil, err
	}
	if !out.Success {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "ad generation reported failure")
	}
	return out, nil
}

func (c *Client) post(ctx context.Context, path string, payload any, out any) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("encoding ml request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("building ml request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if c.apiKey != "" {
		req.Header.Set("X-API-Key", c.apiKey)
	}

	c.logger.Debug(c.logger.WithFields(ctx, map[string]any{"endpoint": path}), "ml request")

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.metrics.ObserveRequest(path, 0, time.Since(start))
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "ml service unreachable")
	}
	defer resp.Body.Close()
	c.metrics.ObserveRequest(path, resp.StatusCode, time.Since(start))

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "reading ml response")
	}

	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		c.logger.Warn(c.logger.WithFields(ctx, map[string]any{
			"endpoint": path,
			"status":   resp.StatusCode,
		}), "ml request failed")
		return c.mapStatus(resp.StatusCode, raw)
	}

	if err := json.Unmarshal(raw, out); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "decoding ml response")
	}
	return nil
}

func (c *Client) mapStatus(status int, raw []byte) error {
	detail := extractDetail(raw)
	switch {
	case status == http.StatusBadRequest || status == http.StatusRequestEntityTooLarge:
		return pkgerrors.New(pkgerrors.CodeValidation, detail)
	case status == http.StatusUnauthorized || status == http.StatusForbidden:
		return pkgerrors.New(pkgerrors.CodeDependency, "ml service rejected credentials")
	default:
		return pkgerrors.New(pkgerrors.CodeDependency, detail)
	}
}

// extractDetail pulls FastAPI's {"detail": "..."} shape when present.
func extractDetail(raw []byte) string {
	var body struct {
		Detail string `json:"detail"`
	}
	if err := json.Unmarshal(raw, &body); err == nil && strings.TrimSpace(body.Detail) != "" {
		return body.Detail
	}
	return "ml service request failed"
}
