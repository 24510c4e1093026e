// ABOUTME: HTTP client for the crm-gateway API used by crm-admin
// ABOUTME: Adds bearer auth and turns {"error": ...} bodies into Go errors

package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/2389/brokerage-crm/internal/gateway"
)

// APIError is a non-2xx response from the gateway.
type APIError struct {
	Status  int
	Message string
}

func (e *APIError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("gateway returned status %d", e.Status)
	}
	return fmt.Sprintf("gateway returned status %d: %s", e.Status, e.Message)
}

// Client talks to a crm-gateway over HTTP.
type Client struct {
	baseURL string
	token   string
	http    *http.Client
}

// NewClient creates a Client for baseURL. An empty token sends no Authorization header.
func NewClient(baseURL, token string) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		token:   token,
		http:    &http.Client{Timeout: 30 * time.Second},
	}
}

func (c *Client) do(ctx context.Context, method, path string, body, out any) error {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encoding request: %w", err)
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("creating request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("calling gateway: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		apiErr := &APIError{Status: resp.StatusCode}
		var payload struct {
			Error string `json:"error"`
		}
		if err := json.NewDecoder(resp.Body).Decode(&payload); err == nil {
			apiErr.Message = payload.Error
		}
		return apiErr
	}

	if out == nil || resp.StatusCode == http.StatusNoContent {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decoding response: %w", err)
	}
	return nil
}

// AssignLead assigns an existing lead to the next agent in rotation.
func (c *Client) AssignLead(ctx context.Context, leadID string) (*gateway.AssignLeadResponse, error) {
	var resp gateway.AssignLeadResponse
	if err := c.do(ctx, http.MethodPost, "/leads/assign", gateway.AssignLeadRequest{LeadID: leadID}, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// AssignBatch creates leads from communication logs.
func (c *Client) AssignBatch(ctx context.Context, logIDs []string) (*gateway.AssignBatchResponse, error) {
	var resp gateway.AssignBatchResponse
	if err := c.do(ctx, http.MethodPost, "/leads/assign-batch", gateway.AssignBatchRequest{LogIDs: logIDs}, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// RotationStatus reports the roster, cursor, and next agent.
func (c *Client) RotationStatus(ctx context.Context) (*gateway.RotationStatusResponse, error) {
	var resp gateway.RotationStatusResponse
	if err := c.do(ctx, http.MethodGet, "/api/rotation", nil, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// ResetRotation puts the cursor back to its initial position.
func (c *Client) ResetRotation(ctx context.Context) error {
	return c.do(ctx, http.MethodPost, "/api/rotation/reset", nil, nil)
}

// ListTeamMembers returns all team members.
func (c *Client) ListTeamMembers(ctx context.Context) ([]gateway.TeamMemberResponse, error) {
	var resp []gateway.TeamMemberResponse
	if err := c.do(ctx, http.MethodGet, "/api/team-members", nil, &resp); err != nil {
		return nil, err
	}
	return resp, nil
}
