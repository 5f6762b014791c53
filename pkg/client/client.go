package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

var (
	// ErrNotFound is returned when a block or transaction does not exist.
	ErrNotFound = errors.New("not found")
	// ErrUnauthorized is returned when the operator token is missing or invalid.
	ErrUnauthorized = errors.New("unauthorized")
	// ErrDuplicate is returned by CastVote when the voter has already voted.
	ErrDuplicate = errors.New("duplicate submission")
	// ErrIntegrity is returned by CastVote when the server refuses to extend
	// a chain that fails verification.
	ErrIntegrity = errors.New("chain integrity failure")
)

// maxResponseBytes bounds response bodies; exports of large chains are the
// biggest payloads.
const maxResponseBytes = 64 << 20

// Block mirrors a ledger block on the wire.
type Block struct {
	Index        int            `json:"index"`
	Timestamp    string         `json:"timestamp"`
	Data         map[string]any `json:"data"`
	PreviousHash string         `json:"previousHash"`
	Hash         string         `json:"hash"`
	NextHash     string         `json:"nextHash,omitempty"`
}

// VerifyResult is the outcome of a full-chain verification.
type VerifyResult struct {
	Valid    bool   `json:"valid"`
	Height   int    `json:"height,omitempty"`
	HeadHash string `json:"headHash,omitempty"`
	Index    int    `json:"index"`
	Reason   string `json:"reason,omitempty"`
	Message  string `json:"message,omitempty"`
}

// Receipt is returned for an accepted vote.
type Receipt struct {
	TxID      string `json:"txId"`
	BlockHash string `json:"blockHash"`
	Index     int    `json:"index"`
}

// Status summarises the ledger.
type Status struct {
	Length     int    `json:"length"`
	Height     int    `json:"height"`
	HeadHash   string `json:"headHash"`
	StorageKey string `json:"storageKey"`
}

// InspectResult describes one block and its link consistency. PrevOK and
// NextOK are nil when there is no neighbour to compare against.
type InspectResult struct {
	Found  bool   `json:"found"`
	Block  *Block `json:"block,omitempty"`
	Checks struct {
		HashOK bool  `json:"hashOk"`
		PrevOK *bool `json:"prevOk"`
		NextOK *bool `json:"nextOk"`
	} `json:"checks"`
	Length      int    `json:"length"`
	Height      int    `json:"height"`
	BlockHeight int    `json:"blockHeight"`
	HeadHash    string `json:"headHash"`
}

// APIError is a non-2xx response from the server. It matches the package
// sentinels with errors.Is.
type APIError struct {
	StatusCode int
	Message    string
	// Verification is set when the server refused a vote on a broken chain.
	Verification *VerifyResult
}

func (e *APIError) Error() string {
	return fmt.Sprintf("server error %d: %s", e.StatusCode, e.Message)
}

// Is maps HTTP status codes to the package sentinels.
func (e *APIError) Is(target error) bool {
	switch target {
	case ErrNotFound:
		return e.StatusCode == http.StatusNotFound
	case ErrUnauthorized:
		return e.StatusCode == http.StatusUnauthorized
	case ErrDuplicate:
		return e.StatusCode == http.StatusConflict
	case ErrIntegrity:
		return e.StatusCode == http.StatusUnprocessableEntity
	}
	return false
}

// Client talks to a sengd instance.
type Client struct {
	baseURL     string
	httpClient  *http.Client
	bearerToken string
}

// Option is a functional option for configuring a Client.
type Option func(*Client) error

// WithHTTPClient sets a custom http.Client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) error {
		if hc == nil {
			return errors.New("nil http client")
		}
		c.httpClient = hc
		return nil
	}
}

// WithBearerToken attaches an operator token to every request.
func WithBearerToken(token string) Option {
	return func(c *Client) error {
		c.bearerToken = strings.TrimSpace(token)
		return nil
	}
}

// WithTimeout sets the per-request timeout of the default HTTP client.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) error {
		c.httpClient.Timeout = d
		return nil
	}
}

// New creates a Client for the server at baseURL.
//
//	c, err := client.New("http://localhost:8080", client.WithTimeout(5*time.Second))
func New(baseURL string, opts ...Option) (*Client, error) {
	u, err := url.Parse(baseURL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return nil, fmt.Errorf("invalid server URL %q", baseURL)
	}
	c := &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: 30 * time.Second},
	}
	for _, o := range opts {
		if err := o(c); err != nil {
			return nil, err
		}
	}
	return c, nil
}

// MustNew is like New but panics on error.
func MustNew(baseURL string, opts ...Option) *Client {
	c, err := New(baseURL, opts...)
	if err != nil {
		panic(err)
	}
	return c
}

// Status returns the chain length, height and head hash.
func (c *Client) Status(ctx context.Context) (*Status, error) {
	var out Status
	if err := c.getJSON(ctx, "/api/v1/ledger", &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Verify runs a full-chain verification on the server. A broken chain is
// reported through the result, not as an error.
func (c *Client) Verify(ctx context.Context) (*VerifyResult, error) {
	var out VerifyResult
	if err := c.getJSON(ctx, "/api/v1/ledger/verify", &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Chain returns every block, genesis first.
func (c *Client) Chain(ctx context.Context) ([]*Block, error) {
	var out struct {
		Chain []*Block `json:"chain"`
	}
	if err := c.getJSON(ctx, "/api/v1/ledger/chain", &out); err != nil {
		return nil, err
	}
	return out.Chain, nil
}

// Inspect looks a block up by hash. A missing block yields ErrNotFound.
func (c *Client) Inspect(ctx context.Context, hash string) (*InspectResult, error) {
	hash = strings.TrimSpace(hash)
	if hash == "" {
		return nil, errors.New("hash is required")
	}
	var out InspectResult
	if err := c.getJSON(ctx, "/api/v1/ledger/blocks/"+url.PathEscape(hash), &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Transaction returns the block holding txID.
func (c *Client) Transaction(ctx context.Context, txID string) (*Block, error) {
	var out Block
	if err := c.getJSON(ctx, "/api/v1/ledger/tx/"+url.PathEscape(strings.TrimSpace(txID)), &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Tally returns the vote count per candidate.
func (c *Client) Tally(ctx context.Context) (map[string]int, error) {
	var out struct {
		Tally map[string]int `json:"tally"`
	}
	if err := c.getJSON(ctx, "/api/v1/ledger/tally", &out); err != nil {
		return nil, err
	}
	return out.Tally, nil
}

// CastVote appends a vote. extra is merged into the block payload; it may
// not override the core vote fields.
func (c *Client) CastVote(ctx context.Context, voterID, candidateID string, extra map[string]any) (*Receipt, error) {
	payload, err := json.Marshal(map[string]any{
		"voterId":     voterID,
		"candidateId": candidateID,
		"extra":       extra,
	})
	if err != nil {
		return nil, fmt.Errorf("marshal vote: %w", err)
	}
	req, err := c.newRequest(ctx, http.MethodPost, "/api/v1/ledger/votes", bytes.NewReader(payload))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")

	status, body, err := c.doStatusBody(req)
	if err != nil {
		return nil, err
	}
	if status != http.StatusCreated {
		apiErr := newAPIError(status, body)
		var refused struct {
			Verification *VerifyResult `json:"verification"`
		}
		if json.Unmarshal(body, &refused) == nil {
			apiErr.Verification = refused.Verification
		}
		return nil, apiErr
	}

	var out Receipt
	if err := json.Unmarshal(body, &out); err != nil {
		return nil, fmt.Errorf("decode receipt: %w", err)
	}
	return &out, nil
}

// Export returns the raw snapshot document.
func (c *Client) Export(ctx context.Context) ([]byte, error) {
	req, err := c.newRequest(ctx, http.MethodGet, "/api/v1/ledger/export", nil)
	if err != nil {
		return nil, err
	}
	return c.do(req)
}

// Import replaces the server's chain with data, a snapshot document or a
// bare chain array. A chain that fails verification is reported through
// the result with a nil error; malformed input is an *APIError.
func (c *Client) Import(ctx context.Context, data []byte) (*VerifyResult, error) {
	req, err := c.newRequest(ctx, http.MethodPost, "/api/v1/ledger/import", bytes.NewReader(data))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")

	status, body, err := c.doStatusBody(req)
	if err != nil {
		return nil, err
	}
	if status != http.StatusOK && status != http.StatusUnprocessableEntity {
		return nil, newAPIError(status, body)
	}

	var out VerifyResult
	if err := json.Unmarshal(body, &out); err != nil {
		return nil, fmt.Errorf("decode import result: %w", err)
	}
	return &out, nil
}

func (c *Client) getJSON(ctx context.Context, path string, out any) error {
	req, err := c.newRequest(ctx, http.MethodGet, path, nil)
	if err != nil {
		return err
	}
	body, err := c.do(req)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

func (c *Client) newRequest(ctx context.Context, method, path string, body io.Reader) (*http.Request, error) {
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	return req, nil
}

// do performs req and fails on any non-2xx status.
func (c *Client) do(req *http.Request) ([]byte, error) {
	status, body, err := c.doStatusBody(req)
	if err != nil {
		return nil, err
	}
	if status >= 300 {
		return nil, newAPIError(status, body)
	}
	return body, nil
}

// doStatusBody returns (statusCode, body, error) without failing on 4xx
// responses. The caller interprets the status code.
func (c *Client) doStatusBody(req *http.Request) (int, []byte, error) {
	if c.bearerToken != "" {
		req.Header.Set("Authorization", "Bearer "+c.bearerToken)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return 0, nil, fmt.Errorf("HTTP request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return resp.StatusCode, nil, fmt.Errorf("read response: %w", err)
	}
	return resp.StatusCode, body, nil
}

func newAPIError(status int, body []byte) *APIError {
	msg := strings.TrimSpace(string(body))
	var e struct {
		Error string `json:"error"`
	}
	if json.Unmarshal(body, &e) == nil && e.Error != "" {
		msg = e.Error
	}
	return &APIError{StatusCode: status, Message: msg}
}
