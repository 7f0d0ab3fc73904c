// Package objstore implements the hosted object storage surface: upload
// bytes under a bucket/key and resolve a stable public URL for reads.
package objstore

import (
	"bytes"
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/aisocialapp/appcore/internal/apperr"
	"github.com/aisocialapp/appcore/internal/platform"
)

// Client talks to /storage/v1 of the hosted platform.
type Client struct {
	baseURL string
	apiKey  string
	token   func() string
	httpc   *http.Client
}

// New creates a storage client. token may be nil for anonymous access.
func New(baseURL, apiKey string, token func() string) *Client {
	return &Client{
		baseURL: baseURL,
		apiKey:  apiKey,
		token:   token,
		httpc:   &http.Client{Timeout: 30 * time.Second},
	}
}

// WithHTTPClient substitutes the underlying HTTP client and returns the
// receiver for chaining during construction.
func (c *Client) WithHTTPClient(h *http.Client) *Client {
	c.httpc = h
	return c
}

var _ platform.ObjectStorage = (*Client)(nil)

// Upload stores data under bucket/key. There is no versioning: a second
// upload to the same key overwrites silently.
func (c *Client) Upload(ctx context.Context, bucket, key string, data []byte, contentType string) error {
	u := fmt.Sprintf("%s/storage/v1/object/%s/%s", c.baseURL, bucket, key)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, u, bytes.NewReader(data))
	if err != nil {
		return apperr.Wrap(apperr.KindInternal, "build upload request", err)
	}
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	req.Header.Set("Content-Type", contentType)
	req.Header.Set("apikey", c.apiKey)
	if c.token != nil {
		if t := c.token(); t != "" {
			req.Header.Set("Authorization", "Bearer "+t)
		}
	}

	resp, err := c.httpc.Do(req)
	if err != nil {
		return apperr.Wrap(apperr.KindTransport, "upload failed", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		return apperr.New(apperr.FromStatus(resp.StatusCode),
			fmt.Sprintf("storage returned %d", resp.StatusCode))
	}
	return nil
}

// PublicURL returns the stable read URL for an object.
func (c *Client) PublicURL(bucket, key string) string {
	return fmt.Sprintf("%s/storage/v1/object/public/%s/%s", c.baseURL, bucket, key)
}
