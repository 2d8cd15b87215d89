// Package ollama is a thin HTTP client for a local Ollama server, covering
// the embedding, rerank, and model-inspection endpoints the engine uses.
package ollama

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"golang.org/x/time/rate"

	"github.com/lorebase/lorebase/pkg/fn"
	"github.com/lorebase/lorebase/pkg/resilience"
)

// Client talks to an Ollama server. Requests are rate limited so bulk
// indexing does not starve interactive queries against the same server,
// transient failures are retried with backoff, and a circuit breaker sheds
// load while the server is down.
type Client struct {
	baseURL string
	http    *http.Client
	limiter *rate.Limiter
	breaker *resilience.Breaker
	retry   fn.RetryOpts
}

// New creates a client for the given base URL, e.g. "http://localhost:11434".
func New(baseURL string) *Client {
	return &Client{
		baseURL: baseURL,
		http:    &http.Client{Timeout: 120 * time.Second},
		limiter: rate.NewLimiter(rate.Every(20*time.Millisecond), 10),
		breaker: resilience.NewBreaker(resilience.DefaultBreakerOpts),
		retry:   fn.DefaultRetry,
	}
}

// statusError carries a non-200 response status.
type statusError struct {
	endpoint string
	code     int
}

func (e *statusError) Error() string {
	return fmt.Sprintf("ollama %s: status %d", e.endpoint, e.code)
}

func (c *Client) post(ctx context.Context, endpoint string, payload, out any) error {
	if err := c.limiter.Wait(ctx); err != nil {
		return err
	}

	var reqErr error
	err := c.breaker.Call(ctx, func(ctx context.Context) error {
		return fn.Retry(ctx, c.retry, func(ctx context.Context) fn.Result[struct{}] {
			reqErr = c.doPost(ctx, endpoint, payload, out)
			// A 4xx is a definitive answer from a live server: no retry,
			// and it does not count toward opening the circuit.
			var se *statusError
			if errors.As(reqErr, &se) && se.code < 500 {
				return fn.Ok(struct{}{})
			}
			return fn.FromPair(struct{}{}, reqErr)
		}).Err()
	})
	if errors.Is(err, resilience.ErrCircuitOpen) {
		return fmt.Errorf("ollama %s: %w", endpoint, err)
	}
	return reqErr
}

func (c *Client) doPost(ctx context.Context, endpoint string, payload, out any) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("ollama %s: encode: %w", endpoint, err)
	}
	req, err := http.NewRequestWithContext(ctx, "POST", c.baseURL+endpoint, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("ollama %s: %w", endpoint, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != 200 {
		return &statusError{endpoint: endpoint, code: resp.StatusCode}
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("ollama %s: decode: %w", endpoint, err)
	}
	return nil
}

type showReq struct {
	Model string `json:"model"`
}

// CheckModel verifies the server knows the given model.
func (c *Client) CheckModel(ctx context.Context, model string) error {
	var out map[string]any
	return c.post(ctx, "/api/show", showReq{Model: model}, &out)
}
