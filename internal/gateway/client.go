package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/smartdevs17/escrow-admin/internal/metrics"
	"github.com/smartdevs17/escrow-admin/internal/models"
	"github.com/smartdevs17/escrow-admin/pkg/utils"
)

// RequestFailed is returned for any non-2xx backend response.
type RequestFailed struct {
	StatusCode int
	Message    string
}

func (e *RequestFailed) Error() string {
	if e.Message != "" {
		return e.Message
	}
	return fmt.Sprintf("Request failed (%d)", e.StatusCode)
}

// Config configures a backend client
type Config struct {
	BaseURL string
	Timeout time.Duration
	Metrics *metrics.Manager
}

// Client talks to the escrow backend REST API. It performs exactly one
// request per operation and never retries.
type Client struct {
	baseURL    string
	httpClient *http.Client
	logger     *logrus.Entry
	metrics    *metrics.Manager
}

// NewClient creates a backend client. A missing base URL is not an error
// here; it is reported by the first operation that needs it.
func NewClient(cfg Config) *Client {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &Client{
		baseURL:    strings.TrimSpace(cfg.BaseURL),
		httpClient: &http.Client{Timeout: timeout},
		logger:     utils.ComponentLogger("gateway"),
		metrics:    cfg.Metrics,
	}
}

// BaseURL returns the configured backend URL, possibly empty.
func (c *Client) BaseURL() string {
	return c.baseURL
}

// ListDeals returns every deal known to the backend.
func (c *Client) ListDeals(ctx context.Context) ([]models.Deal, error) {
	var deals []models.Deal
	if err := c.do(ctx, "list_deals", http.MethodGet, "/deals", nil, &deals); err != nil {
		return nil, err
	}
	if deals == nil {
		deals = []models.Deal{}
	}
	return deals, nil
}

// GetDeal fetches one deal by on-chain id.
func (c *Client) GetDeal(ctx context.Context, dealID int64) (*models.Deal, error) {
	if err := models.ValidateDealID(dealID); err != nil {
		return nil, err
	}
	var deal models.Deal
	if err := c.do(ctx, "get_deal", http.MethodGet, dealPath(dealID), nil, &deal); err != nil {
		return nil, err
	}
	return &deal, nil
}

// CreateDeal submits a new deal record.
func (c *Client) CreateDeal(ctx context.Context, req models.CreateDealRequest) (*models.Deal, error) {
	if err := models.ValidateDealID(req.DealIDOnChain); err != nil {
		return nil, err
	}
	var deal models.Deal
	if err := c.do(ctx, "create_deal", http.MethodPost, "/deals", req, &deal); err != nil {
		return nil, err
	}
	return &deal, nil
}

// AdminRelease asks the backend to sign and submit a release.
func (c *Client) AdminRelease(ctx context.Context, dealID int64) (*models.AdminActionResult, error) {
	return c.admin(ctx, "admin_release", "/admin/release", dealID)
}

// AdminRefund asks the backend to sign and submit a refund.
func (c *Client) AdminRefund(ctx context.Context, dealID int64) (*models.AdminActionResult, error) {
	return c.admin(ctx, "admin_refund", "/admin/refund", dealID)
}

// GetRisk fetches the risk annotation of a deal.
func (c *Client) GetRisk(ctx context.Context, dealID int64) (*models.DealRisk, error) {
	if err := models.ValidateDealID(dealID); err != nil {
		return nil, err
	}
	var risk models.DealRisk
	if err := c.do(ctx, "get_risk", http.MethodGet, dealPath(dealID)+"/risk", nil, &risk); err != nil {
		return nil, err
	}
	return &risk, nil
}

// RescoreRisk asks the backend to recompute a deal's risk.
func (c *Client) RescoreRisk(ctx context.Context, dealID int64) (*models.DealRisk, error) {
	if err := models.ValidateDealID(dealID); err != nil {
		return nil, err
	}
	var risk models.DealRisk
	if err := c.do(ctx, "rescore_risk", http.MethodPost, dealPath(dealID)+"/risk/rescore", nil, &risk); err != nil {
		return nil, err
	}
	return &risk, nil
}

func (c *Client) admin(ctx context.Context, operation, path string, dealID int64) (*models.AdminActionResult, error) {
	if err := models.ValidateDealID(dealID); err != nil {
		return nil, err
	}
	var result models.AdminActionResult
	body := models.DealIDRequest{DealIDOnChain: dealID}
	if err := c.do(ctx, operation, http.MethodPost, path, body, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

func dealPath(dealID int64) string {
	return "/deals/" + strconv.FormatInt(dealID, 10)
}

// endpoint joins path onto the base URL, failing before any network call
// when the base URL is unusable.
func (c *Client) endpoint(path string) (string, error) {
	if c.baseURL == "" {
		return "", &models.ConfigurationError{Setting: "API base URL", Reason: "not configured"}
	}
	u, err := url.Parse(c.baseURL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return "", &models.ConfigurationError{Setting: "API base URL", Reason: fmt.Sprintf("not an absolute http(s) URL: %q", c.baseURL)}
	}
	return strings.TrimRight(c.baseURL, "/") + path, nil
}

func (c *Client) do(ctx context.Context, operation, method, path string, in, out interface{}) error {
	target, err := c.endpoint(path)
	if err != nil {
		return err
	}

	var body io.Reader
	if in != nil {
		payload, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("failed to encode %s request: %w", operation, err)
		}
		body = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, target, body)
	if err != nil {
		return fmt.Errorf("failed to build %s request: %w", operation, err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Cache-Control", "no-store")

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.metrics.RecordGatewayRequest(operation, "error", time.Since(start))
		c.logger.WithFields(logrus.Fields{
			"operation": operation,
			"error":     err,
		}).Debug("Backend request failed")
		return err
	}
	defer resp.Body.Close()

	c.metrics.RecordGatewayRequest(operation, strconv.Itoa(resp.StatusCode), time.Since(start))
	c.logger.WithFields(logrus.Fields{
		"operation": operation,
		"method":    method,
		"path":      path,
		"status":    resp.StatusCode,
		"duration":  time.Since(start),
	}).Debug("Backend request completed")

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read %s response: %w", operation, err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return &RequestFailed{StatusCode: resp.StatusCode, Message: serverMessage(raw)}
	}

	if out == nil || len(bytes.TrimSpace(raw)) == 0 {
		return nil
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return fmt.Errorf("failed to decode %s response: %w", operation, err)
	}
	return nil
}

// serverMessage extracts the "message" field of a JSON error body.
func serverMessage(raw []byte) string {
	var payload struct {
		Message json.RawMessage `json:"message"`
	}
	if err := json.Unmarshal(raw, &payload); err != nil || len(payload.Message) == 0 {
		return ""
	}

	var text string
	if err := json.Unmarshal(payload.Message, &text); err == nil {
		return strings.TrimSpace(text)
	}
	// Some frameworks send a list of validation messages.
	var list []string
	if err := json.Unmarshal(payload.Message, &list); err == nil && len(list) > 0 {
		return strings.Join(list, "; ")
	}
	return ""
}

// IsRequestFailed reports whether err is a backend rejection.
func IsRequestFailed(err error) bool {
	var rf *RequestFailed
	return errors.As(err, &rf)
}
