package tellus

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

const rpcPath = "/rpc/v1"

// Client talks to a Tellus deployment. It is safe for concurrent use.
type Client struct {
	endpoint   string
	token      string
	project    string
	httpClient *http.Client
	logger     *zap.Logger
	maxRetries int
}

// Option configures a Client.
type Option func(*Client)

// WithToken sets the bearer token sent with every request.
func WithToken(token string) Option {
	return func(c *Client) { c.token = token }
}

// WithProject sets the project header used for quota accounting.
func WithProject(project string) Option {
	return func(c *Client) { c.project = project }
}

// WithHTTPClient replaces the default HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.httpClient = hc }
}

// WithLogger attaches a logger for request-level debug output. The default
// is a no-op logger.
func WithLogger(l *zap.Logger) Option {
	return func(c *Client) { c.logger = l }
}

// WithRetries sets how many times a request is retried after a 429, a 5xx,
// or a transport error. The default is 2.
func WithRetries(n int) Option {
	return func(c *Client) { c.maxRetries = n }
}

// NewClient creates a client for the given endpoint, e.g.
// "https://api.tellus.example".
func NewClient(endpoint string, opts ...Option) (*Client, error) {
	u, err := url.Parse(endpoint)
	if err != nil {
		return nil, fmt.Errorf("tellus: invalid endpoint: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, fmt.Errorf("tellus: endpoint must be http(s), got %q", endpoint)
	}
	c := &Client{
		endpoint:   strings.TrimSuffix(endpoint, "/"),
		httpClient: &http.Client{Timeout: 60 * time.Second},
		logger:     zap.NewNop(),
		maxRetries: 2,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// call performs one JSON-RPC round trip, retrying retryable failures.
func (c *Client) call(ctx context.Context, method string, params any) (json.RawMessage, error) {
	rawParams, err := json.Marshal(params)
	if err != nil {
		return nil, fmt.Errorf("tellus: encoding %s params: %w", method, err)
	}
	req := rpcRequest{
		JSONRPC: "2.0",
		ID:      uuid.NewString(),
		Method:  method,
		Params:  rawParams,
	}
	body, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("tellus: encoding %s request: %w", method, err)
	}

	var lastErr error
	for attempt := 0; attempt <= c.maxRetries; attempt++ {
		if attempt > 0 {
			// Capped linear backoff keeps retry bursts cheap for the
			// common transient cases (429, load-balancer 503).
			backoff := time.Duration(attempt) * 500 * time.Millisecond
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(backoff):
			}
		}
		result, retryable, err := c.doOnce(ctx, method, req.ID, body)
		if err == nil {
			return result, nil
		}
		lastErr = err
		if !retryable {
			return nil, err
		}
		c.logger.Debug("retrying request",
			zap.String("method", method),
			zap.Int("attempt", attempt+1),
			zap.Error(err))
	}
	return nil, lastErr
}

func (c *Client) doOnce(ctx context.Context, method, id string, body []byte) (result json.RawMessage, retryable bool, err error) {
	start := time.Now()
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint+rpcPath, bytes.NewReader(body))
	if err != nil {
		return nil, false, fmt.Errorf("tellus: building request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	if c.token != "" {
		httpReq.Header.Set("Authorization", "Bearer "+c.token)
	}
	if c.project != "" {
		httpReq.Header.Set("X-Tellus-Project", c.project)
	}

	httpResp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, true, fmt.Errorf("tellus: %s: %w", method, err)
	}
	defer httpResp.Body.Close()

	if httpResp.StatusCode == http.StatusTooManyRequests || httpResp.StatusCode >= 500 {
		io.Copy(io.Discard, httpResp.Body)
		return nil, true, fmt.Errorf("tellus: %s: server returned %s", method, httpResp.Status)
	}
	if httpResp.StatusCode != http.StatusOK {
		io.Copy(io.Discard, httpResp.Body)
		return nil, false, fmt.Errorf("tellus: %s: server returned %s", method, httpResp.Status)
	}

	respBody, err := io.ReadAll(httpResp.Body)
	if err != nil {
		return nil, true, fmt.Errorf("tellus: reading %s response: %w", method, err)
	}
	var resp rpcResponse
	if err := json.Unmarshal(respBody, &resp); err != nil {
		return nil, false, fmt.Errorf("tellus: parsing %s response: %w", method, err)
	}
	if resp.ID != id {
		return nil, false, fmt.Errorf("tellus: %s: response id %q does not match request id %q", method, resp.ID, id)
	}

	c.logger.Debug("rpc call",
		zap.String("method", method),
		zap.Int("request_bytes", len(body)),
		zap.Int("response_bytes", len(respBody)),
		zap.Duration("elapsed", time.Since(start)))

	if resp.Error != nil {
		return nil, false, resp.Error
	}
	return resp.Result, false, nil
}

// Ping checks connectivity and authentication.
func (c *Client) Ping(ctx context.Context) error {
	_, err := c.call(ctx, "ping", map[string]any{})
	return err
}

// Compute evaluates the computation graph rooted at op and returns the
// materialized value.
func (c *Client) Compute(ctx context.Context, op Operand) (Result, error) {
	graph, err := MarshalGraph(op)
	if err != nil {
		return Result{}, err
	}
	raw, err := c.call(ctx, "value.compute", computeParams{Graph: graph})
	if err != nil {
		return Result{}, err
	}
	return Result{raw: raw}, nil
}

// Thumbnail renders a quicklook of the image graph.
func (c *Client) Thumbnail(ctx context.Context, img Image, opts ThumbnailOptions) (*Thumbnail, error) {
	graph, err := MarshalGraph(img)
	if err != nil {
		return nil, err
	}
	raw, err := c.call(ctx, "image.thumbnail", thumbnailParams{Graph: graph, Params: opts})
	if err != nil {
		return nil, err
	}
	var res thumbnailResult
	if err := json.Unmarshal(raw, &res); err != nil {
		return nil, fmt.Errorf("tellus: parsing thumbnail response: %w", err)
	}
	return res.decode()
}

// Export starts a long-running export of the image graph and returns a
// task handle to poll with TaskStatus.
func (c *Client) Export(ctx context.Context, img Image, description string, scale float64) (*Task, error) {
	graph, err := MarshalGraph(img)
	if err != nil {
		return nil, err
	}
	raw, err := c.call(ctx, "image.export", exportParams{
		Graph:       graph,
		Description: description,
		Scale:       scale,
	})
	if err != nil {
		return nil, err
	}
	var task Task
	if err := json.Unmarshal(raw, &task); err != nil {
		return nil, fmt.Errorf("tellus: parsing export response: %w", err)
	}
	return &task, nil
}

// TaskStatus fetches the state of a long-running job.
func (c *Client) TaskStatus(ctx context.Context, taskID string) (*TaskStatus, error) {
	raw, err := c.call(ctx, "task.status", map[string]any{"task_id": taskID})
	if err != nil {
		return nil, err
	}
	var st TaskStatus
	if err := json.Unmarshal(raw, &st); err != nil {
		return nil, fmt.Errorf("tellus: parsing task status: %w", err)
	}
	return &st, nil
}

// Algorithms lists the remote functions available on the platform.
func (c *Client) Algorithms(ctx context.Context) ([]Algorithm, error) {
	raw, err := c.call(ctx, "algorithms.list", map[string]any{})
	if err != nil {
		return nil, err
	}
	var algos []Algorithm
	if err := json.Unmarshal(raw, &algos); err != nil {
		return nil, fmt.Errorf("tellus: parsing algorithm list: %w", err)
	}
	return algos, nil
}
