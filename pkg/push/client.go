// Package push provides a client for delivering push notifications through
// an HTTP push gateway.
package push

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
)

// Client represents a push gateway client.
type Client struct {
	baseURL string
	apiKey  string
	client  *http.Client
}

// NewClient creates a new push Client for the given gateway.
func NewClient(baseURL, apiKey string) *Client {
	return &Client{
		baseURL: baseURL,
		apiKey:  apiKey,
		client:  &http.Client{},
	}
}

// sendRequest represents the payload for the gateway's send endpoint.
type sendRequest struct {
	RecipientID string `json:"recipient_id"` // device/user to push to
	Message     string `json:"message"`      // message text
}

// Send pushes a notification message to the specified recipient.
//
// It returns an error if the request fails or the gateway responds with a
// non-200 status.
func (c *Client) Send(to string, msg string) error {
	url := fmt.Sprintf("%s/v1/push", c.baseURL)

	reqBody := sendRequest{
		RecipientID: to,
		Message:     msg,
	}

	body, err := json.Marshal(reqBody)
	if err != nil {
		return fmt.Errorf("marshal request: %w", err)
	}

	req, err := http.NewRequest(http.MethodPost, url, bytes.NewBuffer(body))
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("send request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("push gateway error: %s", resp.Status)
	}

	return nil
}
