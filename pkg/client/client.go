// Package client provides a Go client for the deployctl history API.
package client

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"
)

// Client is a deployctl history API client
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// Option configures a Client
type Option func(*Client)

// WithHTTPClient sets a custom HTTP client
func WithHTTPClient(c *http.Client) Option {
	return func(client *Client) {
		client.httpClient = c
	}
}

// New creates a new history API client
func New(baseURL string, opts ...Option) *Client {
	c := &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}

	for _, opt := range opts {
		opt(c)
	}

	return c
}

// Deployment is a recorded deployment
type Deployment struct {
	ID                  string          `json:"id,omitempty"`
	ChainID             int64           `json:"chainId"`
	Network             string          `json:"network,omitempty"`
	Address             string          `json:"address"`
	ContractName        string          `json:"contractName"`
	DeployerAddress     string          `json:"deployerAddress,omitempty"`
	TxHash              string          `json:"txHash,omitempty"`
	BlockNumber         int64           `json:"blockNumber,omitempty"`
	ConstructorArgs     json.RawMessage `json:"constructorArgs,omitempty"`
	VerificationStatus  string          `json:"verificationStatus,omitempty"`
	VerificationMessage string          `json:"verificationMessage,omitempty"`
	CreatedAt           string          `json:"createdAt,omitempty"`
}

// ListOptions filters and pages a deployment listing
type ListOptions struct {
	ChainID  int64
	Network  string
	Contract string
	Status   string
	Limit    int
	Cursor   string
}

// ListDeploymentsResponse is the response for listing deployments
type ListDeploymentsResponse struct {
	Data       []Deployment `json:"data"`
	Pagination Pagination   `json:"pagination"`
}

// Pagination contains pagination info
type Pagination struct {
	Limit      int    `json:"limit"`
	HasMore    bool   `json:"hasMore"`
	NextCursor string `json:"nextCursor,omitempty"`
}

// APIError represents an API error response
type APIError struct {
	StatusCode int    `json:"-"`
	Code       string `json:"code"`
	Message    string `json:"message"`
}

func (e *APIError) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// IsNotFound reports whether err is a 404 from the API.
func IsNotFound(err error) bool {
	apiErr, ok := err.(*APIError)
	return ok && apiErr.StatusCode == http.StatusNotFound
}

// ListDeployments lists recorded deployments
func (c *Client) ListDeployments(ctx context.Context, opts ListOptions) (*ListDeploymentsResponse, error) {
	q := url.Values{}
	if opts.ChainID > 0 {
		q.Set("chain_id", strconv.FormatInt(opts.ChainID, 10))
	}
	if opts.Network != "" {
		q.Set("network", opts.Network)
	}
	if opts.Contract != "" {
		q.Set("contract", opts.Contract)
	}
	if opts.Status != "" {
		q.Set("status", opts.Status)
	}
	if opts.Limit > 0 {
		q.Set("limit", strconv.Itoa(opts.Limit))
	}
	if opts.Cursor != "" {
		q.Set("cursor", opts.Cursor)
	}

	path := "/api/v1/deployments"
	if len(q) > 0 {
		path += "?" + q.Encode()
	}

	var resp ListDeploymentsResponse
	if err := c.get(ctx, path, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// GetDeployment gets a deployment by chain ID and address
func (c *Client) GetDeployment(ctx context.Context, chainID int64, address string) (*Deployment, error) {
	var resp Deployment
	path := fmt.Sprintf("/api/v1/deployments/%d/%s", chainID, url.PathEscape(address))
	if err := c.get(ctx, path, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// Health checks that the API is up
func (c *Client) Health(ctx context.Context) error {
	return c.get(ctx, "/health", nil)
}

func (c *Client) get(ctx context.Context, path string, result any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return c.parseError(resp)
	}

	if result != nil {
		return json.NewDecoder(resp.Body).Decode(result)
	}

	return nil
}

func (c *Client) parseError(resp *http.Response) error {
	var errResp struct {
		Error APIError `json:"error"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&errResp); err != nil || errResp.Error.Code == "" {
		return &APIError{StatusCode: resp.StatusCode, Code: "HTTP_" + strconv.Itoa(resp.StatusCode), Message: resp.Status}
	}
	errResp.Error.StatusCode = resp.StatusCode
	return &errResp.Error
}
