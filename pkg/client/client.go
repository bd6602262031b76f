package client

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/devsha256/anypoint-automation-utils/pkg/api"
)

// Client is an Anypoint automation API client
type Client struct {
	baseURL    string
	httpClient *http.Client
	token      string
}

// ClientOption is a function that configures a Client
type ClientOption func(*Client)

// WithTimeout sets the timeout for the HTTP client
func WithTimeout(timeout time.Duration) ClientOption {
	return func(c *Client) {
		c.httpClient.Timeout = timeout
	}
}

// WithToken sets the authentication token
func WithToken(token string) ClientOption {
	return func(c *Client) {
		c.token = token
	}
}

// NewClient creates a new Anypoint automation API client
func NewClient(baseURL string, options ...ClientOption) *Client {
	client := &Client{
		baseURL: baseURL,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}

	for _, option := range options {
		option(client)
	}

	return client
}

// ListApplications returns the application inventory
func (c *Client) ListApplications() ([]api.Application, error) {
	resp, err := c.doRequest("GET", "/api/applications", nil)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	var apps []api.Application
	if err := json.NewDecoder(resp.Body).Decode(&apps); err != nil {
		return nil, err
	}

	return apps, nil
}

// RunOperation runs one batch lifecycle operation and returns its summary
func (c *Client) RunOperation(kind api.OperationKind, pattern string) (*api.BatchSummary, error) {
	data, err := json.Marshal(map[string]string{"pattern": pattern})
	if err != nil {
		return nil, err
	}

	resp, err := c.doRequest("POST", fmt.Sprintf("/api/operations/%s", kind), bytes.NewReader(data))
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	var summary api.BatchSummary
	if err := json.NewDecoder(resp.Body).Decode(&summary); err != nil {
		return nil, err
	}

	return &summary, nil
}

// ListRuns returns recent run records
func (c *Client) ListRuns(limit int) ([]api.RunRecord, error) {
	resp, err := c.doRequest("GET", fmt.Sprintf("/api/history?limit=%d", limit), nil)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	var runs []api.RunRecord
	if err := json.NewDecoder(resp.Body).Decode(&runs); err != nil {
		return nil, err
	}

	return runs, nil
}

// doRequest performs an HTTP request
func (c *Client) doRequest(method, path string, body io.Reader) (*http.Response, error) {
	req, err := http.NewRequest(method, c.baseURL+path, body)
	if err != nil {
		return nil, err
	}

	req.Header.Set("Content-Type", "application/json")
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, err
	}

	if resp.StatusCode >= 400 {
		defer resp.Body.Close()
		var apiErr api.Error
		if err := json.NewDecoder(resp.Body).Decode(&apiErr); err != nil {
			return nil, fmt.Errorf("HTTP error: %s", resp.Status)
		}
		return nil, fmt.Errorf("API error: %d - %s", apiErr.Code, apiErr.Message)
	}

	return resp, nil
}
