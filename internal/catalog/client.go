// Package catalog reads menu availability from the menu service on behalf of
// the order service.
package catalog

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"github.com/Additional-Code/byteristo/internal/config"
)

var catalogTracer = otel.Tracer("github.com/Additional-Code/byteristo/catalog")

const availablePath = "/api/menu/available"

// Item is the subset of a menu item the order service cares about.
type Item struct {
	ID              string `json:"id"`
	Name            string `json:"name"`
	PreparationTime int    `json:"preparation_time"`
	IsAvailable     bool   `json:"is_available"`
}

// Client lists the menu items that can currently be ordered.
type Client interface {
	AvailableItems(ctx context.Context) ([]Item, error)
}

// HTTPClient talks to the menu service over HTTP.
type HTTPClient struct {
	baseURL string
	http    *http.Client
}

// NewHTTPClient builds a client bounded by the configured timeout.
func NewHTTPClient(cfg config.Config) *HTTPClient {
	return &HTTPClient{
		baseURL: cfg.Catalog.URL,
		http:    &http.Client{Timeout: cfg.Catalog.Timeout},
	}
}

type availableResponse struct {
	Success bool   `json:"success"`
	Data    []Item `json:"data"`
}

// AvailableItems calls GET /api/menu/available.
func (c *HTTPClient) AvailableItems(ctx context.Context) ([]Item, error) {
	ctx, span := catalogTracer.Start(ctx, "CatalogClient.AvailableItems")
	defer span.End()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+availablePath, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "request failed")
		return nil, fmt.Errorf("request menu service: %w", err)
	}
	defer resp.Body.Close()

	span.SetAttributes(attribute.Int("http.status_code", resp.StatusCode))
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		_, _ = io.Copy(io.Discard, resp.Body)
		span.SetStatus(codes.Error, "unexpected status")
		return nil, fmt.Errorf("menu service responded %d", resp.StatusCode)
	}

	var body availableResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "decode failed")
		return nil, fmt.Errorf("decode menu response: %w", err)
	}
	return body.Data, nil
}
