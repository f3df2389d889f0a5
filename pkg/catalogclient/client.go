/**
 * @description
 * This package provides a client for communicating with the product catalog
 * service. Goal creation against a concrete product uses the catalog price as
 * the authoritative target, so the client exposes a single product lookup.
 */
package catalogclient

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// Client is a client for the product catalog service.
type Client struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
}

// NewClient creates a new catalog service client.
func NewClient(baseURL string, apiKey string) *Client {
	return &Client{
		baseURL:    strings.TrimRight(strings.TrimSpace(baseURL), "/"),
		apiKey:     apiKey,
		httpClient: &http.Client{Timeout: 30 * time.Second},
	}
}

// Product is the subset of the catalog entry the savings service cares about.
type Product struct {
	ID                string          `json:"id"`
	Name              string          `json:"name"`
	Price             decimal.Decimal `json:"price"`
	MerchantProfileID string          `json:"merchant_profile_id"`
	InStock           bool            `json:"in_stock"`
}

// GetProduct fetches a product by ID from the catalog service.
func (c *Client) GetProduct(ctx context.Context, productID string) (*Product, error) {
	if c.baseURL == "" {
		return nil, fmt.Errorf("catalog service base url is empty")
	}

	url := fmt.Sprintf("%s/internal/products/%s", c.baseURL, productID)

	req, err := http.NewRequestWithContext(ctx, "GET", url, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if strings.TrimSpace(c.apiKey) != "" {
		req.Header.Set("X-Internal-API-Key", strings.TrimSpace(c.apiKey))
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to execute request to catalog service: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return nil, fmt.Errorf("product %s not found in catalog", productID)
	}
	if resp.StatusCode >= 400 {
		return nil, fmt.Errorf("catalog service returned error status %d", resp.StatusCode)
	}

	var product Product
	if err := json.NewDecoder(resp.Body).Decode(&product); err != nil {
		return nil, fmt.Errorf("failed to decode response: %w", err)
	}

	return &product, nil
}
