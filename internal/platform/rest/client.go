// Package rest implements the remote data gateway client over the hosted
// platform's REST surface.
package rest

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/aisocialapp/appcore/internal/apperr"
	"github.com/aisocialapp/appcore/internal/platform"
)

// TokenFunc supplies the bearer token for the current session, or ""
// when signed out.
type TokenFunc func() string

// Client talks to /rest/v1 of the hosted platform.
type Client struct {
	baseURL string
	apiKey  string
	token   TokenFunc
	httpc   *http.Client
	log     *zap.Logger
}

// Option adjusts client construction.
type Option func(*Client)

// WithHTTPClient substitutes the underlying HTTP client.
func WithHTTPClient(h *http.Client) Option {
	return func(c *Client) { c.httpc = h }
}

// WithLogger attaches a logger.
func WithLogger(l *zap.Logger) Option {
	return func(c *Client) { c.log = l }
}

// New creates a gateway client. token may be nil for anonymous access.
func New(baseURL, apiKey string, token TokenFunc, opts ...Option) *Client {
	c := &Client{
		baseURL: baseURL,
		apiKey:  apiKey,
		token:   token,
		httpc:   &http.Client{Timeout: 10 * time.Second},
		log:     zap.NewNop(),
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

var _ platform.Gateway = (*Client)(nil)

// Select executes a filtered, ordered read and decodes the result rows.
func (c *Client) Select(ctx context.Context, q platform.Query) ([]platform.Record, error) {
	u := c.collectionURL(q.Collection) + "?" + CanonicalQueryString(EncodeQuery(q))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, apperr.Wrap(apperr.KindInternal, "build select request", err)
	}
	body, err := c.do(req, http.StatusOK)
	if err != nil {
		return nil, err
	}
	var records []platform.Record
	if err := json.Unmarshal(body, &records); err != nil {
		return nil, apperr.Wrap(apperr.KindTransport, "decode select response", err)
	}
	return records, nil
}

// Insert writes a single record and returns the stored row, including
// server-assigned fields. An idempotency key, when provided, makes a
// retried insert return the original row instead of creating a duplicate.
func (c *Client) Insert(ctx context.Context, collection string, record platform.Record, opts ...platform.InsertOption) (platform.Record, error) {
	settings := platform.ApplyInsertOptions(opts)

	payload, err := json.Marshal(record)
	if err != nil {
		return nil, apperr.Wrap(apperr.KindInternal, "encode insert payload", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.collectionURL(collection), bytes.NewReader(payload))
	if err != nil {
		return nil, apperr.Wrap(apperr.KindInternal, "build insert request", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Prefer", "return=representation")
	if settings.IdempotencyKey != "" {
		req.Header.Set("Idempotency-Key", settings.IdempotencyKey)
	}

	body, err := c.do(req, http.StatusCreated)
	if err != nil {
		return nil, err
	}
	var rows []platform.Record
	if err := json.Unmarshal(body, &rows); err != nil {
		return nil, apperr.Wrap(apperr.KindTransport, "decode insert response", err)
	}
	if len(rows) == 0 {
		return nil, apperr.New(apperr.KindTransport, "insert returned no row")
	}
	return rows[0], nil
}

// Update applies a partial field set to every row matching the filter.
func (c *Client) Update(ctx context.Context, collection string, fields platform.Record, filter platform.Filter) error {
	payload, err := json.Marshal(fields)
	if err != nil {
		return apperr.Wrap(apperr.KindInternal, "encode update payload", err)
	}
	u := c.collectionURL(collection) + "?" + CanonicalQueryString(EncodeFilter(filter))
	req, err := http.NewRequestWithContext(ctx, http.MethodPatch, u, bytes.NewReader(payload))
	if err != nil {
		return apperr.Wrap(apperr.KindInternal, "build update request", err)
	}
	req.Header.Set("Content-Type", "application/json")
	_, err = c.do(req, http.StatusNoContent)
	return err
}

// Delete removes every row matching the filter.
func (c *Client) Delete(ctx context.Context, collection string, filter platform.Filter) error {
	u := c.collectionURL(collection) + "?" + CanonicalQueryString(EncodeFilter(filter))
	req, err := http.NewRequestWithContext(ctx, http.MethodDelete, u, nil)
	if err != nil {
		return apperr.Wrap(apperr.KindInternal, "build delete request", err)
	}
	_, err = c.do(req, http.StatusNoContent)
	return err
}

func (c *Client) collectionURL(collection string) string {
	return fmt.Sprintf("%s/rest/v1/%s", c.baseURL, collection)
}

func (c *Client) do(req *http.Request, wantStatus int) ([]byte, error) {
	req.Header.Set("apikey", c.apiKey)
	if c.token != nil {
		if t := c.token(); t != "" {
			req.Header.Set("Authorization", "Bearer "+t)
		}
	}

	resp, err := c.httpc.Do(req)
	if err != nil {
		return nil, apperr.Wrap(apperr.KindTransport, "gateway request failed", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, apperr.Wrap(apperr.KindTransport, "read gateway response", err)
	}
	if resp.StatusCode != wantStatus && resp.StatusCode != http.StatusOK {
		c.log.Debug("gateway error",
			zap.String("url", req.URL.String()),
			zap.Int("status", resp.StatusCode))
		return nil, apperr.New(apperr.FromStatus(resp.StatusCode),
			fmt.Sprintf("gateway returned %d: %s", resp.StatusCode, truncate(body, 200)))
	}
	return body, nil
}

func truncate(b []byte, n int) string {
	if len(b) <= n {
		return string(b)
	}
	return string(b[:n]) + "..."
}
