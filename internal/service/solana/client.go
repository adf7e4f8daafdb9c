package solana

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/mr-tron/base58"

	"PoolWatch/internal/domain/models"
	domrepo "PoolWatch/internal/domain/repository"
	"PoolWatch/internal/service/rpcpool"
	xhttp "PoolWatch/pkg/http"
)

// Client calls the Solana JSON-RPC API. Every request is admitted through
// the endpoint pool's rate limiter and fails over across endpoints; callers
// wrap calls in the circuit breaker per named operation.
type Client struct {
	pool       *rpcpool.Pool
	httpClient *xhttp.Client
	commitment string
	metrics    domrepo.Metrics
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient overrides the HTTP client (tests).
func WithHTTPClient(hc *xhttp.Client) Option {
	return func(c *Client) { c.httpClient = hc }
}

// WithCommitment sets the commitment level for queries.
func WithCommitment(commitment string) Option {
	return func(c *Client) {
		if commitment != "" {
			c.commitment = commitment
		}
	}
}

// WithMetrics wires request metrics.
func WithMetrics(m domrepo.Metrics) Option {
	return func(c *Client) { c.metrics = m }
}

// NewClient creates a pool-routed RPC client.
func NewClient(pool *rpcpool.Pool, opts ...Option) *Client {
	c := &Client{
		pool:       pool,
		httpClient: xhttp.NewClient(xhttp.WithTimeout(15 * time.Second)),
		commitment: "confirmed",
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// call posts one JSON-RPC request to the best admitting endpoint. The pool
// never blocks: when every endpoint is exhausted the call fails fast and the
// caller's breaker absorbs the failure.
func (c *Client) call(ctx context.Context, operation, method string, params []any, out any) error {
	ep, err := c.pool.SelectEndpoint()
	if err != nil {
		return fmt.Errorf("%s: %w", method, err)
	}

	payload, err := json.Marshal(rpcRequest{Jsonrpc: "2.0", ID: 1, Method: method, Params: params})
	if err != nil {
		return fmt.Errorf("%s marshal: %w", method, err)
	}

	resp, err := c.httpClient.SendRequest(ctx, &xhttp.RequestOptions{
		Method:  xhttp.MethodPost,
		URL:     ep.URL,
		Headers: map[string]string{"Content-Type": "application/json"},
		Body:    payload,
	})
	if err != nil {
		c.observe(ep.Name, operation, "network_error")
		return fmt.Errorf("%s do: %w", method, err)
	}
	defer func() {
		_, _ = io.Copy(io.Discard, resp.Body)
		_ = resp.Body.Close()
	}()

	if resp.StatusCode != http.StatusOK {
		c.observe(ep.Name, operation, fmt.Sprintf("http_%d", resp.StatusCode))
		return fmt.Errorf("%s: http %d from %s", method, resp.StatusCode, ep.Name)
	}

	var envelope rpcResponse
	if err := json.NewDecoder(resp.Body).Decode(&envelope); err != nil {
		c.observe(ep.Name, operation, "decode_error")
		return fmt.Errorf("%s decode: %w", method, err)
	}
	if envelope.Error != nil {
		c.observe(ep.Name, operation, "rpc_error")
		return fmt.Errorf("%s: rpc error %d: %s", method, envelope.Error.Code, envelope.Error.Message)
	}
	if out != nil {
		if err := json.Unmarshal(envelope.Result, out); err != nil {
			c.observe(ep.Name, operation, "decode_error")
			return fmt.Errorf("%s result: %w", method, err)
		}
	}
	c.observe(ep.Name, operation, "ok")
	return nil
}

func (c *Client) observe(endpoint, operation, outcome string) {
	if c.metrics != nil {
		c.metrics.RecordRPCRequest(endpoint, operation, outcome)
	}
}

// GetSignaturesForAddress fetches recent signatures for a program address.
func (c *Client) GetSignaturesForAddress(ctx context.Context, address string, limit int) ([]SignatureInfo, error) {
	if limit <= 0 {
		limit = 25
	}
	params := []any{address, map[string]any{"limit": limit, "commitment": c.commitment}}
	var sigs []SignatureInfo
	if err := c.call(ctx, "rpc_signatures", "getSignaturesForAddress", params, &sigs); err != nil {
		return nil, err
	}
	return sigs, nil
}

// GetTransaction resolves one transaction body by signature.
func (c *Client) GetTransaction(ctx context.Context, signature string) (*models.RawTransaction, error) {
	params := []any{signature, map[string]any{
		"commitment":                     c.commitment,
		"encoding":                       "json",
		"maxSupportedTransactionVersion": 0,
	}}
	var res txResult
	if err := c.call(ctx, "rpc_transaction", "getTransaction", params, &res); err != nil {
		return nil, err
	}
	if len(res.Transaction.Message.AccountKeys) == 0 {
		return nil, fmt.Errorf("getTransaction %s: empty result", signature)
	}
	return toRawTransaction(signature, &res), nil
}

// toRawTransaction flattens the RPC envelope into the domain transaction.
// Instruction data that fails base58 decoding is carried as empty bytes so
// the parser degrades it to a structured failure instead of losing the tx.
func toRawTransaction(signature string, res *txResult) *models.RawTransaction {
	tx := &models.RawTransaction{
		Signature:   signature,
		Slot:        res.Slot,
		AccountKeys: res.Transaction.Message.AccountKeys,
	}
	if res.BlockTime != nil {
		tx.BlockTime = *res.BlockTime
	}
	for _, in := range res.Transaction.Message.Instructions {
		data, err := base58.Decode(in.Data)
		if err != nil {
			data = nil
		}
		tx.Instructions = append(tx.Instructions, models.RawInstruction{
			ProgramIndex:   in.ProgramIDIndex,
			Data:           data,
			AccountIndexes: in.Accounts,
		})
	}
	return tx
}
