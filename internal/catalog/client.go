// Package catalog is the client for the jewelry catalog service. The auction
// service only ever flags item availability; cataloguing and appraisal live
// on the other side of this boundary.
package catalog

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"time"
)

const (
	StatusInAuction = "in_auction"
	StatusSold      = "sold"
	StatusAvailable = "available"
)

type Client struct {
	BaseURL string
	HTTP    *http.Client
}

func NewClient(baseURL string, timeout time.Duration) *Client {
	return &Client{
		BaseURL: baseURL,
		HTTP:    &http.Client{Timeout: timeout},
	}
}

func (c *Client) MarkItemInAuction(itemID string) error { return c.setStatus(itemID, StatusInAuction) }
func (c *Client) MarkItemSold(itemID string) error      { return c.setStatus(itemID, StatusSold) }
func (c *Client) MarkItemAvailable(itemID string) error { return c.setStatus(itemID, StatusAvailable) }

func (c *Client) setStatus(itemID, status string) error {
	body, _ := json.Marshal(map[string]string{"status": status})
	url := fmt.Sprintf("%s/api/items/%s/status", c.BaseURL, itemID)

	req, err := http.NewRequest(http.MethodPut, url, bytes.NewBuffer(body))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.HTTP.Do(req)
	if err != nil {
		return fmt.Errorf("catalog service error: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusNoContent {
		return fmt.Errorf("catalog service returned status %d for item %s", resp.StatusCode, itemID)
	}
	return nil
}
