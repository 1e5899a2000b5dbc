// Package rpc implements the HTTP JSON-RPC and WebSocket transports for
// the remote node, with a typed error taxonomy so the subscription layer
// can tell throttling from genuine connection loss.
package rpc

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"sync/atomic"
	"time"

	"cryptoscore-client/internal/pubkey"
)

// Default configuration values.
const (
	DefaultTimeout     = 30 * time.Second
	DefaultMaxRetries  = 3
	DefaultRetryDelay  = 1 * time.Second
	DefaultMaxDelay    = 10 * time.Second
	DefaultBackoffMult = 2.0
)

// HTTPClient implements Client using HTTP JSON-RPC 2.0.
type HTTPClient struct {
	endpoint    string
	client      *http.Client
	maxRetries  int
	retryDelay  time.Duration
	maxDelay    time.Duration
	backoffMult float64
	requestID   atomic.Uint64
}

// ClientOption configures HTTPClient.
type ClientOption func(*HTTPClient)

// WithTimeout sets HTTP client timeout.
func WithTimeout(d time.Duration) ClientOption {
	return func(c *HTTPClient) {
		c.client.Timeout = d
	}
}

// WithMaxRetries sets maximum retry attempts for transport failures.
func WithMaxRetries(n int) ClientOption {
	return func(c *HTTPClient) {
		c.maxRetries = n
	}
}

// WithRetryDelay sets initial retry delay.
func WithRetryDelay(d time.Duration) ClientOption {
	return func(c *HTTPClient) {
		c.retryDelay = d
	}
}

// WithHTTPClient sets a custom http.Client.
func WithHTTPClient(client *http.Client) ClientOption {
	return func(c *HTTPClient) {
		c.client = client
	}
}

// NewHTTPClient creates a new JSON-RPC HTTP client.
func NewHTTPClient(endpoint string, opts ...ClientOption) *HTTPClient {
	c := &HTTPClient{
		endpoint:    endpoint,
		client:      &http.Client{Timeout: DefaultTimeout},
		maxRetries:  DefaultMaxRetries,
		retryDelay:  DefaultRetryDelay,
		maxDelay:    DefaultMaxDelay,
		backoffMult: DefaultBackoffMult,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

var _ Client = (*HTTPClient)(nil)

// rpcRequest is a JSON-RPC 2.0 request.
type rpcRequest struct {
	JSONRPC string        `json:"jsonrpc"`
	ID      uint64        `json:"id"`
	Method  string        `json:"method"`
	Params  []interface{} `json:"params,omitempty"`
}

// rpcResponse is a JSON-RPC 2.0 response.
type rpcResponse struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      uint64          `json:"id"`
	Result  json.RawMessage `json:"result,omitempty"`
	Error   *rpcError       `json:"error,omitempty"`
}

// call performs a JSON-RPC call. Transport failures are retried with
// exponential backoff; rate limiting and RPC-level errors are returned
// immediately so the caller's own policy applies.
func (c *HTTPClient) call(ctx context.Context, method string, params []interface{}, result interface{}) error {
	reqID := c.requestID.Add(1)
	body, err := json.Marshal(rpcRequest{
		JSONRPC: "2.0",
		ID:      reqID,
		Method:  method,
		Params:  params,
	})
	if err != nil {
		return fmt.Errorf("marshal request: %w", err)
	}

	delay := c.retryDelay
	var lastErr error

	for attempt := 0; attempt <= c.maxRetries; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(delay):
			}
			delay = time.Duration(float64(delay) * c.backoffMult)
			if delay > c.maxDelay {
				delay = c.maxDelay
			}
		}

		req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(body))
		if err != nil {
			return fmt.Errorf("create request: %w", err)
		}
		req.Header.Set("Content-Type", "application/json")

		resp, err := c.client.Do(req)
		if err != nil {
			lastErr = fmt.Errorf("%w: %v", ErrConnectionLost, err)
			continue
		}

		respBody, err := io.ReadAll(resp.Body)
		resp.Body.Close()
		if err != nil {
			lastErr = fmt.Errorf("%w: read response: %v", ErrConnectionLost, err)
			continue
		}

		if resp.StatusCode == http.StatusTooManyRequests {
			// Not retried here: hammering a throttled endpoint makes it
			// worse. The caller downgrades and cools off.
			return fmt.Errorf("%w: http 429", ErrRateLimited)
		}

		if resp.StatusCode != http.StatusOK {
			lastErr = fmt.Errorf("unexpected status %d: %s", resp.StatusCode, string(respBody))
			continue
		}

		var rpcResp rpcResponse
		if err := json.Unmarshal(respBody, &rpcResp); err != nil {
			lastErr = fmt.Errorf("unmarshal response: %w", err)
			continue
		}

		if rpcResp.Error != nil {
			return classifyRPCError(rpcResp.Error)
		}

		if result != nil && rpcResp.Result != nil {
			if err := json.Unmarshal(rpcResp.Result, result); err != nil {
				return fmt.Errorf("unmarshal result: %w", err)
			}
		}
		return nil
	}

	return fmt.Errorf("max retries exceeded: %w", lastErr)
}

// accountValue is the raw account payload shared by several RPC results.
type accountValue struct {
	Lamports   uint64   `json:"lamports"`
	Owner      string   `json:"owner"`
	Data       []string `json:"data"` // [base64_data, encoding]
	Executable bool     `json:"executable"`
}

type rpcContext struct {
	Slot uint64 `json:"slot"`
}

func (v *accountValue) toAccountInfo(slot uint64) (*AccountInfo, error) {
	owner, err := pubkey.FromBase58(v.Owner)
	if err != nil {
		return nil, fmt.Errorf("parse account owner: %w", err)
	}
	info := &AccountInfo{
		Lamports:   v.Lamports,
		Owner:      owner,
		Executable: v.Executable,
		Slot:       slot,
	}
	if len(v.Data) >= 1 && v.Data[0] != "" {
		data, err := base64.StdEncoding.DecodeString(v.Data[0])
		if err != nil {
			return nil, fmt.Errorf("decode account data: %w", err)
		}
		info.Data = data
	}
	return info, nil
}

// GetAccountInfo fetches one account. Returns nil if it does not exist.
func (c *HTTPClient) GetAccountInfo(ctx context.Context, pk pubkey.PublicKey, commitment Commitment) (*AccountInfo, error) {
	params := []interface{}{
		pk.String(),
		map[string]interface{}{
			"encoding":   "base64",
			"commitment": string(commitment),
		},
	}

	var result struct {
		Context rpcContext    `json:"context"`
		Value   *accountValue `json:"value"`
	}
	if err := c.call(ctx, "getAccountInfo", params, &result); err != nil {
		return nil, err
	}
	if result.Value == nil {
		return nil, nil
	}
	return result.Value.toAccountInfo(result.Context.Slot)
}

// GetMultipleAccounts fetches a batch of accounts in one round trip.
func (c *HTTPClient) GetMultipleAccounts(ctx context.Context, pks []pubkey.PublicKey, commitment Commitment) ([]*AccountInfo, error) {
	if len(pks) == 0 {
		return nil, nil
	}
	keys := make([]string, len(pks))
	for i, pk := range pks {
		keys[i] = pk.String()
	}
	params := []interface{}{
		keys,
		map[string]interface{}{
			"encoding":   "base64",
			"commitment": string(commitment),
		},
	}

	var result struct {
		Context rpcContext      `json:"context"`
		Value   []*accountValue `json:"value"`
	}
	if err := c.call(ctx, "getMultipleAccounts", params, &result); err != nil {
		return nil, err
	}

	infos := make([]*AccountInfo, len(result.Value))
	for i, v := range result.Value {
		if v == nil {
			continue
		}
		info, err := v.toAccountInfo(result.Context.Slot)
		if err != nil {
			return nil, err
		}
		infos[i] = info
	}
	return infos, nil
}

// GetProgramAccounts scans every account owned by a program.
func (c *HTTPClient) GetProgramAccounts(ctx context.Context, program pubkey.PublicKey, commitment Commitment) ([]KeyedAccount, error) {
	params := []interface{}{
		program.String(),
		map[string]interface{}{
			"encoding":   "base64",
			"commitment": string(commitment),
		},
	}

	var result []struct {
		Pubkey  string       `json:"pubkey"`
		Account accountValue `json:"account"`
	}
	if err := c.call(ctx, "getProgramAccounts", params, &result); err != nil {
		return nil, err
	}

	accounts := make([]KeyedAccount, 0, len(result))
	for _, r := range result {
		pk, err := pubkey.FromBase58(r.Pubkey)
		if err != nil {
			return nil, fmt.Errorf("parse account pubkey: %w", err)
		}
		info, err := r.Account.toAccountInfo(0)
		if err != nil {
			return nil, err
		}
		accounts = append(accounts, KeyedAccount{Pubkey: pk, Account: *info})
	}
	return accounts, nil
}

// GetSlot returns the current slot.
func (c *HTTPClient) GetSlot(ctx context.Context, commitment Commitment) (uint64, error) {
	params := []interface{}{
		map[string]interface{}{"commitment": string(commitment)},
	}
	var result uint64
	if err := c.call(ctx, "getSlot", params, &result); err != nil {
		return 0, err
	}
	return result, nil
}

// GetHealth performs a liveness round trip. Any response other than "ok"
// is an error.
func (c *HTTPClient) GetHealth(ctx context.Context) error {
	var result string
	if err := c.call(ctx, "getHealth", nil, &result); err != nil {
		return err
	}
	if result != "ok" {
		return fmt.Errorf("node unhealthy: %q", result)
	}
	return nil
}

// SendTransaction submits a signed transaction and returns its signature.
func (c *HTTPClient) SendTransaction(ctx context.Context, signedTx []byte) (string, error) {
	params := []interface{}{
		base64.StdEncoding.EncodeToString(signedTx),
		map[string]interface{}{"encoding": "base64"},
	}
	var signature string
	if err := c.call(ctx, "sendTransaction", params, &signature); err != nil {
		return "", err
	}
	return signature, nil
}
