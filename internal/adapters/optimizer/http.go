package optimizer

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"field-route-service/internal/platform/metrics"
)

type httpStatusError struct {
	Code int
	Body string
}

func (e *httpStatusError) Error() string {
	return fmt.Sprintf("Code %d: %s", e.Code, e.Body)
}

func (c *Client) newRequest(
	ctx context.Context,
	method string,
	url string,
	body io.Reader,
) (*http.Request, error) {
	req, err := http.NewRequestWithContext(ctx, method, url, body)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}

	req.Header.Set("Accept", "application/json")

	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	return req, nil
}

// do executes req and returns the body. A status >= 400 is a transport
// failure unless the body is the service's own {success:false} envelope.
func (c *Client) do(req *http.Request) ([]byte, error) {
	resp, err := c.session.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	b, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response body: %w", err)
	}

	if resp.StatusCode >= 400 && !isFailureEnvelope(b) {
		return nil, &httpStatusError{
			Code: resp.StatusCode,
			Body: strings.TrimSpace(string(b)),
		}
	}
	return b, nil
}

// post sends payload as JSON to path and returns the raw response body.
// Any error returned here is a transport failure.
func (c *Client) post(ctx context.Context, path string, payload any) ([]byte, error) {
	raw, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("encode request: %w", err)
	}

	if err := c.limiter.Wait(ctx); err != nil {
		metrics.OptimizerCalls.WithLabelValues(path, "rate_limited").Inc()
		return nil, fmt.Errorf("wait for rate limiter: %w", err)
	}

	body, err := c.breaker.Execute(func() (interface{}, error) {
		req, err := c.newRequest(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(raw))
		if err != nil {
			return nil, err
		}
		return c.do(req)
	})
	if err != nil {
		metrics.OptimizerCalls.WithLabelValues(path, "transport_error").Inc()
		return nil, err
	}

	metrics.OptimizerCalls.WithLabelValues(path, "ok").Inc()
	return body.([]byte), nil
}

func isFailureEnvelope(b []byte) bool {
	var env struct {
		Success *bool `json:"success"`
	}
	if err := json.Unmarshal(b, &env); err != nil {
		return false
	}
	return env.Success != nil && !*env.Success
}
