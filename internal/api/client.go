package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"

	"github.com/billie-coop/typeahead/internal/predict"
)

// maxResponseBytes bounds how much of a reply is read.
const maxResponseBytes = 1 << 20

// Client talks to the prediction service over HTTP.
type Client struct {
	client   *http.Client
	endpoint string
	keys     map[string]string
	logger   *slog.Logger
}

var _ predict.Transport = (*Client)(nil)

// ClientOption configures a Client.
type ClientOption func(*Client)

// WithHTTPClient replaces the default http.Client.
func WithHTTPClient(hc *http.Client) ClientOption {
	return func(c *Client) {
		c.client = hc
	}
}

// WithFieldKeys maps local field names to request keys. Fields without a
// mapping are sent under their own name.
func WithFieldKeys(keys map[string]string) ClientOption {
	return func(c *Client) {
		for name, key := range keys {
			c.keys[name] = key
		}
	}
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) ClientOption {
	return func(c *Client) {
		c.logger = l
	}
}

// NewClient creates a client posting to endpoint.
func NewClient(endpoint string, opts ...ClientOption) *Client {
	c := &Client{
		client:   &http.Client{},
		endpoint: endpoint,
		keys:     make(map[string]string),
		logger:   slog.New(slog.DiscardHandler),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Endpoint returns the URL queries are posted to.
func (c *Client) Endpoint() string {
	return c.endpoint
}

// Predict posts the query's fields and returns the predictions. Errors are
// returned with the underlying message intact so they can be shown to the
// user as is.
func (c *Client) Predict(ctx context.Context, q predict.Query) (predict.Result, error) {
	payload := make(map[string]any, len(q.Fields)+1)
	for name, value := range q.Fields {
		payload[c.wireKey(name)] = value
	}
	if q.Limit > 0 {
		payload[PredictionCountKey] = q.Limit
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return predict.Result{}, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(body))
	if err != nil {
		return predict.Result{}, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	if q.ID != "" {
		req.Header.Set(RequestIDHeader, q.ID)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return predict.Result{}, err
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return predict.Result{}, fmt.Errorf("failed to read prediction response: %w", err)
	}

	var decoded Response
	decodeErr := json.Unmarshal(data, &decoded)

	if resp.StatusCode != http.StatusOK {
		msg := strings.TrimSpace(string(data))
		if decodeErr == nil && decoded.Error != "" {
			msg = decoded.Error
		}
		if msg == "" {
			msg = http.StatusText(resp.StatusCode)
		}
		return predict.Result{}, &ServiceError{Status: resp.StatusCode, Message: msg}
	}
	if decodeErr != nil {
		return predict.Result{}, fmt.Errorf("failed to decode prediction response: %w", decodeErr)
	}
	if decoded.Error != "" {
		return predict.Result{}, &ServiceError{Status: resp.StatusCode, Message: decoded.Error}
	}

	res := decoded.Result()
	c.logger.Debug("prediction response",
		"seq", q.Sequence,
		"query_id", q.ID,
		"predictions", len(res.Predictions),
		"time_elapsed", timeElapsed(decoded.Info))
	return res, nil
}

func (c *Client) wireKey(name string) string {
	if key, ok := c.keys[name]; ok {
		return key
	}
	return name
}

func timeElapsed(info *Info) string {
	if info == nil {
		return ""
	}
	return info.TimeElapsed
}

// HealthCheck checks that the service behind the endpoint is up.
func (c *Client) HealthCheck(ctx context.Context) error {
	u, err := url.Parse(c.endpoint)
	if err != nil {
		return fmt.Errorf("invalid endpoint %q: %w", c.endpoint, err)
	}
	u.Path = "/healthz"
	u.RawQuery = ""

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return err
	}
	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("prediction service not reachable: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("prediction service returned status %d", resp.StatusCode)
	}
	return nil
}
