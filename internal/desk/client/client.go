// Package client talks to the visitor-management backend's REST surface.
package client

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/dmitrijs2005/visitdesk/internal/desk/models"
	"github.com/dmitrijs2005/visitdesk/internal/netx"
)

type Client interface {
	List(ctx context.Context, src models.Source) ([]models.RawRecord, error)
	Update(ctx context.Context, src models.Source, id string, patch models.Patch) error
	RemoveFromUI(ctx context.Context, src models.Source, id string, reason string) error
	Create(ctx context.Context, src models.Source, visits []models.NewVisit) error
}

// HTTPClient implements Client over JSON/HTTP.
type HTTPClient struct {
	baseURL string
	http    *http.Client
	timeout time.Duration
}

var _ Client = (*HTTPClient)(nil)

// NewHTTPClient builds a client for baseURL. A nil hc uses a fresh
// http.Client; timeout bounds every single call.
func NewHTTPClient(baseURL string, hc *http.Client, timeout time.Duration) (*HTTPClient, error) {
	u, err := url.Parse(baseURL)
	if err != nil {
		return nil, fmt.Errorf("parse base url: %w", err)
	}
	if u.Scheme == "" || u.Host == "" {
		return nil, fmt.Errorf("base url %q must be absolute", baseURL)
	}
	if hc == nil {
		hc = &http.Client{}
	}
	return &HTTPClient{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    hc,
		timeout: timeout,
	}, nil
}

func (c *HTTPClient) endpoint(src models.Source, parts ...string) string {
	var b strings.Builder
	b.WriteString(c.baseURL)
	b.WriteString("/api/")
	b.WriteString(src.Collection())
	for _, p := range parts {
		b.WriteByte('/')
		b.WriteString(url.PathEscape(p))
	}
	return b.String()
}

func (c *HTTPClient) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if c.timeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, c.timeout)
}

// List fetches the whole collection for src.
func (c *HTTPClient) List(ctx context.Context, src models.Source) ([]models.RawRecord, error) {
	ctx, cancel := c.withTimeout(ctx)
	defer cancel()

	var out []models.RawRecord
	if err := netx.DoJSON(ctx, c.http, http.MethodGet, c.endpoint(src), nil, &out); err != nil {
		return nil, mapError(err)
	}
	if out == nil {
		out = []models.RawRecord{}
	}
	return out, nil
}

// Update sends a partial update for one record.
func (c *HTTPClient) Update(ctx context.Context, src models.Source, id string, patch models.Patch) error {
	ctx, cancel := c.withTimeout(ctx)
	defer cancel()

	return mapError(netx.DoJSON(ctx, c.http, http.MethodPut, c.endpoint(src, id), patch, nil))
}

// RemoveFromUI flags the record as hidden for every desk client.
func (c *HTTPClient) RemoveFromUI(ctx context.Context, src models.Source, id string, reason string) error {
	ctx, cancel := c.withTimeout(ctx)
	defer cancel()

	body := models.RemoveRequest{Reason: reason}
	return mapError(netx.DoJSON(ctx, c.http, http.MethodPut, c.endpoint(src, id, "remove-ui"), body, nil))
}

// Create bulk-creates visits in the src collection.
func (c *HTTPClient) Create(ctx context.Context, src models.Source, visits []models.NewVisit) error {
	if len(visits) == 0 {
		return nil
	}

	ctx, cancel := c.withTimeout(ctx)
	defer cancel()

	return mapError(netx.DoJSON(ctx, c.http, http.MethodPost, c.endpoint(src), visits, nil))
}
