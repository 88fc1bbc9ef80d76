// Package rpc implements ledger.Client over JSON-RPC 2.0 on HTTP.
//
// Every call goes through a circuit breaker. Transport failures and HTTP
// errors count against the breaker and surface as ledger.ErrNetwork; JSON-RPC
// error responses are verdicts from the node and do not trip it.
package rpc

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/pkg/errors"
	"github.com/sony/gobreaker"

	"github.com/jdziat/simple-durable-airdrops/pkg/ledger"
)

// Method names understood by the ledger node.
const (
	MethodGetAccountInfo     = "getAccountInfo"
	MethodGetLatestFinality  = "getLatestFinality"
	MethodGetBlockHeight     = "getBlockHeight"
	MethodGetFeeForMessage   = "getFeeForMessage"
	MethodSendTransaction    = "sendTransaction"
	MethodGetSignatureStatus = "getSignatureStatus"
)

// Client is a ledger.Client backed by a JSON-RPC endpoint.
type Client struct {
	url     string
	http    *http.Client
	breaker *gobreaker.CircuitBreaker
	logger  *slog.Logger
	nextID  atomic.Uint64
}

var _ ledger.Client = (*Client)(nil)

// Option configures a Client.
type Option interface {
	apply(*Client)
}

type optionFunc func(*Client)

func (f optionFunc) apply(c *Client) { f(c) }

// WithHTTPClient sets the HTTP client used for requests.
func WithHTTPClient(hc *http.Client) Option {
	return optionFunc(func(c *Client) {
		c.http = hc
	})
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return optionFunc(func(c *Client) {
		c.logger = l
	})
}

// BreakerConfig controls when the circuit opens.
type BreakerConfig struct {
	// ConsecutiveFailures trips the breaker after this many failures in a row.
	ConsecutiveFailures uint32
	// Timeout is how long the breaker stays open before probing again.
	Timeout time.Duration
	// MaxRequests is the number of probes allowed while half-open.
	MaxRequests uint32
}

// DefaultBreakerConfig returns the default breaker configuration.
func DefaultBreakerConfig() BreakerConfig {
	return BreakerConfig{
		ConsecutiveFailures: 5,
		Timeout:             30 * time.Second,
		MaxRequests:         1,
	}
}

// WithBreaker overrides the breaker configuration.
func WithBreaker(cfg BreakerConfig) Option {
	return optionFunc(func(c *Client) {
		c.breaker = newBreaker(c, cfg)
	})
}

// New returns a client for the JSON-RPC endpoint at url.
func New(url string, opts ...Option) *Client {
	c := &Client{
		url:    url,
		http:   &http.Client{Timeout: 30 * time.Second},
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt.apply(c)
	}
	if c.breaker == nil {
		c.breaker = newBreaker(c, DefaultBreakerConfig())
	}
	return c
}

func newBreaker(c *Client, cfg BreakerConfig) *gobreaker.CircuitBreaker {
	return gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        "ledger-rpc",
		MaxRequests: cfg.MaxRequests,
		Timeout:     cfg.Timeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= cfg.ConsecutiveFailures
		},
		IsSuccessful: func(err error) bool {
			var rpcErr *Error
			return err == nil || errors.As(err, &rpcErr)
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			c.logger.Warn("ledger rpc circuit breaker changed state",
				"breaker", name, "from", from.String(), "to", to.String())
		},
	})
}

// Error is a JSON-RPC error object returned by the node.
type Error struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

func (e *Error) Error() string {
	return fmt.Sprintf("rpc error %d: %s", e.Code, e.Message)
}

type request struct {
	JSONRPC string `json:"jsonrpc"`
	ID      uint64 `json:"id"`
	Method  string `json:"method"`
	Params  []any  `json:"params"`
}

type response struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      uint64          `json:"id"`
	Result  json.RawMessage `json:"result"`
	Error   *Error          `json:"error"`
}

// call performs one JSON-RPC request and decodes its result into out.
func (c *Client) call(ctx context.Context, method string, out any, params ...any) error {
	if params == nil {
		params = []any{}
	}
	_, err := c.breaker.Execute(func() (any, error) {
		return nil, c.do(ctx, method, out, params)
	})
	if err == nil {
		return nil
	}

	var rpcErr *Error
	if errors.As(err, &rpcErr) {
		return err
	}
	if err == gobreaker.ErrOpenState || err == gobreaker.ErrTooManyRequests {
		return errors.Wrapf(ledger.ErrNetwork, "%s: circuit breaker: %v", method, err)
	}
	return errors.Wrapf(ledger.ErrNetwork, "%s: %v", method, err)
}

func (c *Client) do(ctx context.Context, method string, out any, params []any) error {
	body, err := json.Marshal(request{
		JSONRPC: "2.0",
		ID:      c.nextID.Add(1),
		Method:  method,
		Params:  params,
	})
	if err != nil {
		return errors.Wrap(err, "encode request")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, bytes.NewReader(body))
	if err != nil {
		return errors.Wrap(err, "build request")
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return errors.Wrap(err, "send request")
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 10<<20))
	if err != nil {
		return errors.Wrap(err, "read response")
	}
	if resp.StatusCode != http.StatusOK {
		return errors.Errorf("unexpected status %d", resp.StatusCode)
	}

	var rpcResp response
	if err := json.Unmarshal(raw, &rpcResp); err != nil {
		return errors.Wrap(err, "decode response")
	}
	if rpcResp.Error != nil {
		return rpcResp.Error
	}
	if out == nil {
		return nil
	}
	if err := json.Unmarshal(rpcResp.Result, out); err != nil {
		return errors.Wrap(err, "decode result")
	}
	return nil
}

// State returns the circuit breaker state.
func (c *Client) State() gobreaker.State {
	return c.breaker.State()
}

// AccountExists implements ledger.Client.
func (c *Client) AccountExists(ctx context.Context, addr ledger.Address) (bool, error) {
	var out struct {
		Exists bool `json:"exists"`
	}
	if err := c.call(ctx, MethodGetAccountInfo, &out, addr.String()); err != nil {
		return false, err
	}
	return out.Exists, nil
}

// LatestFinality implements ledger.Client.
func (c *Client) LatestFinality(ctx context.Context) (ledger.Finality, error) {
	var out ledger.Finality
	err := c.call(ctx, MethodGetLatestFinality, &out)
	return out, err
}

// BlockHeight implements ledger.Client.
func (c *Client) BlockHeight(ctx context.Context) (uint64, error) {
	var out uint64
	err := c.call(ctx, MethodGetBlockHeight, &out)
	return out, err
}

// EstimateFee implements ledger.Client.
func (c *Client) EstimateFee(ctx context.Context, msg ledger.Message) (uint64, error) {
	raw, err := msg.Bytes()
	if err != nil {
		return 0, errors.Wrap(err, "encode message")
	}
	var out uint64
	err = c.call(ctx, MethodGetFeeForMessage, &out, base64.StdEncoding.EncodeToString(raw))
	return out, err
}

// SendTransaction implements ledger.Client. A node-side error response is
// reported as ledger.ErrRejected.
func (c *Client) SendTransaction(ctx context.Context, tx *ledger.Tx) (ledger.Signature, error) {
	serialized, err := ledger.EncodeTx(tx)
	if err != nil {
		return ledger.Signature{}, err
	}
	var out string
	if err := c.call(ctx, MethodSendTransaction, &out, serialized); err != nil {
		var rpcErr *Error
		if errors.As(err, &rpcErr) {
			return ledger.Signature{}, errors.Wrapf(ledger.ErrRejected, "%s: %s", MethodSendTransaction, rpcErr.Message)
		}
		return ledger.Signature{}, err
	}
	sig, err := ledger.ParseSignature(out)
	if err != nil {
		return ledger.Signature{}, errors.Wrapf(ledger.ErrNetwork, "%s: %v", MethodSendTransaction, err)
	}
	return sig, nil
}

// SignatureStatus implements ledger.Client.
func (c *Client) SignatureStatus(ctx context.Context, sig ledger.Signature) (ledger.SignatureStatus, error) {
	var out ledger.SignatureStatus
	err := c.call(ctx, MethodGetSignatureStatus, &out, sig.String())
	return out, err
}
