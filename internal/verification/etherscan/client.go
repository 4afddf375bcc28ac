// Package etherscan submits contract source code to Etherscan-compatible
// explorers (Etherscan V2 multichain API and clones such as Blockscout).
package etherscan

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"github.com/pendergraft/deployctl/internal/verification/domain"
)

var (
	ErrRejected     = errors.New("explorer rejected verification")
	ErrPollExceeded = errors.New("verification still pending")
	ErrNoAPIKey     = errors.New("explorer API key not set")
)

// DefaultAPIURL is the Etherscan V2 multichain endpoint.
const DefaultAPIURL = "https://api.etherscan.io/v2/api"

const (
	statusOK = "1"

	pendingInQueue = "pending in queue"
	codeFormat     = "solidity-standard-json-input"
)

// Response is the envelope every Etherscan endpoint returns
type Response struct {
	Status  string          `json:"status"`
	Message string          `json:"message"`
	Result  json.RawMessage `json:"result"`
}

// ResultString returns Result as a string; non-string results are returned raw.
func (r *Response) ResultString() string {
	var s string
	if err := json.Unmarshal(r.Result, &s); err == nil {
		return s
	}
	return string(r.Result)
}

// Client is an Etherscan API client
type Client struct {
	baseURL      string
	apiKey       string
	httpClient   *http.Client
	limiter      *rate.Limiter
	pollInterval time.Duration
	maxPolls     int
}

// Option configures a Client
type Option func(*Client)

// WithHTTPClient sets a custom HTTP client
func WithHTTPClient(c *http.Client) Option {
	return func(client *Client) {
		client.httpClient = c
	}
}

// WithRateLimit caps outgoing requests per second. The free tier allows 5.
func WithRateLimit(perSecond float64) Option {
	return func(client *Client) {
		if perSecond > 0 {
			client.limiter = rate.NewLimiter(rate.Limit(perSecond), 1)
		}
	}
}

// WithPolling sets how often and how many times checkverifystatus is queried.
func WithPolling(interval time.Duration, maxPolls int) Option {
	return func(client *Client) {
		if interval > 0 {
			client.pollInterval = interval
		}
		if maxPolls > 0 {
			client.maxPolls = maxPolls
		}
	}
}

// New creates a new Etherscan client
func New(baseURL, apiKey string, opts ...Option) *Client {
	c := &Client{
		baseURL: baseURL,
		apiKey:  apiKey,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
		limiter:      rate.NewLimiter(5, 1),
		pollInterval: 5 * time.Second,
		maxPolls:     60,
	}

	for _, opt := range opts {
		opt(c)
	}

	return c
}

// Verify submits req and polls until the explorer reaches a verdict.
func (c *Client) Verify(ctx context.Context, req domain.Request) error {
	if c.apiKey == "" {
		return ErrNoAPIKey
	}

	guid, err := c.Submit(ctx, req)
	if err != nil {
		return err
	}

	for i := 0; i < c.maxPolls; i++ {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(c.pollInterval):
		}

		done, err := c.CheckStatus(ctx, req.ChainID, guid)
		if err != nil || done {
			return err
		}
	}
	return fmt.Errorf("%w: guid %s after %d checks", ErrPollExceeded, guid, c.maxPolls)
}

// Submit posts verifysourcecode and returns the receipt GUID.
func (c *Client) Submit(ctx context.Context, req domain.Request) (string, error) {
	form := url.Values{}
	form.Set("apikey", c.apiKey)
	form.Set("module", "contract")
	form.Set("action", "verifysourcecode")
	form.Set("contractaddress", req.Address)
	form.Set("sourceCode", string(req.StandardJSON))
	form.Set("codeformat", codeFormat)
	form.Set("contractname", req.ContractName)
	form.Set("compilerversion", req.CompilerVersion)
	// Etherscan's parameter name is misspelled
	form.Set("constructorArguements", req.ConstructorArgs)

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint(req.ChainID, nil), strings.NewReader(form.Encode()))
	if err != nil {
		return "", fmt.Errorf("creating request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := c.do(ctx, httpReq)
	if err != nil {
		return "", err
	}
	if resp.Status != statusOK {
		return "", fmt.Errorf("%w: %s", ErrRejected, resp.ResultString())
	}
	return resp.ResultString(), nil
}

// CheckStatus queries checkverifystatus once. It reports done=false while
// the submission is still queued.
func (c *Client) CheckStatus(ctx context.Context, chainID int64, guid string) (bool, error) {
	q := url.Values{}
	q.Set("apikey", c.apiKey)
	q.Set("module", "contract")
	q.Set("action", "checkverifystatus")
	q.Set("guid", guid)

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, c.endpoint(chainID, q), nil)
	if err != nil {
		return false, fmt.Errorf("creating request: %w", err)
	}

	resp, err := c.do(ctx, httpReq)
	if err != nil {
		return false, err
	}

	result := resp.ResultString()
	if resp.Status == statusOK {
		return true, nil
	}
	if strings.Contains(strings.ToLower(result), pendingInQueue) {
		return false, nil
	}
	return true, fmt.Errorf("%w: %s", ErrRejected, result)
}

func (c *Client) endpoint(chainID int64, q url.Values) string {
	if q == nil {
		q = url.Values{}
	}
	if chainID > 0 {
		q.Set("chainid", strconv.FormatInt(chainID, 10))
	}
	sep := "?"
	if strings.Contains(c.baseURL, "?") {
		sep = "&"
	}
	return c.baseURL + sep + q.Encode()
}

func (c *Client) do(ctx context.Context, req *http.Request) (*Response, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("reading response: %w", err)
	}
	if resp.StatusCode >= 400 {
		return nil, fmt.Errorf("explorer returned HTTP %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}

	var out Response
	if err := json.Unmarshal(body, &out); err != nil {
		return nil, fmt.Errorf("decoding response: %w", err)
	}
	return &out, nil
}
