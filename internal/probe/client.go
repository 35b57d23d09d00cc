package probe

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/goccy/go-json"

	"github.com/okian/seisnear/internal/domain/types"
)

// maxBody bounds the size of a decoded response.
const maxBody = 16 << 20

// Client talks to the seisnear HTTP API.
type Client struct {
	baseURL string
	http    *http.Client
}

// NewClient creates a client for baseURL with the given request timeout.
func NewClient(baseURL string, timeout time.Duration) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: timeout},
	}
}

// Health checks /healthz.
func (c *Client) Health(ctx context.Context) error {
	status, body, err := c.do(ctx, http.MethodGet, "/healthz", nil)
	if err != nil {
		return err
	}
	if status != http.StatusOK {
		return fmt.Errorf("%w: status %d: %s", ErrUnhealthy, status, strings.TrimSpace(string(body)))
	}
	return nil
}

// Search runs a synchronous search.
func (c *Client) Search(ctx context.Context, req types.SearchRequest) (*types.SearchResponse, error) {
	status, body, err := c.do(ctx, http.MethodPost, "/search", req)
	if err != nil {
		return nil, err
	}
	return decodeSearch(status, body)
}

// Submit queues an asynchronous search and returns its acknowledgement.
func (c *Client) Submit(ctx context.Context, req types.SearchRequest) (*types.Accepted, error) {
	status, body, err := c.do(ctx, http.MethodPost, "/searches", req)
	if err != nil {
		return nil, err
	}
	if status != http.StatusAccepted {
		return nil, responseError(status, body)
	}
	var ack types.Accepted
	if err := json.Unmarshal(body, &ack); err != nil {
		return nil, fmt.Errorf("decode acknowledgement: %w", err)
	}
	if ack.Location == "" {
		ack.Location = "/searches/" + ack.ID
	}
	return &ack, nil
}

// Get fetches a search report by its location path.
func (c *Client) Get(ctx context.Context, location string) (*types.SearchResponse, error) {
	status, body, err := c.do(ctx, http.MethodGet, location, nil)
	if err != nil {
		return nil, err
	}
	return decodeSearch(status, body)
}

func (c *Client) do(ctx context.Context, method, path string, payload interface{}) (int, []byte, error) {
	var reader io.Reader
	if payload != nil {
		data, err := json.Marshal(payload)
		if err != nil {
			return 0, nil, fmt.Errorf("marshal request body: %w", err)
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return 0, nil, fmt.Errorf("create request: %w", err)
	}
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return 0, nil, fmt.Errorf("%w: %s %s: %w", ErrRequestFailed, method, path, err)
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBody))
	if err != nil {
		return resp.StatusCode, nil, fmt.Errorf("read response body: %w", err)
	}
	return resp.StatusCode, body, nil
}

// decodeSearch accepts 200 and 502; the latter still carries a report.
func decodeSearch(status int, body []byte) (*types.SearchResponse, error) {
	if status != http.StatusOK && status != http.StatusBadGateway {
		return nil, responseError(status, body)
	}
	var resp types.SearchResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("decode search response: %w", err)
	}
	return &resp, nil
}

func responseError(status int, body []byte) error {
	var e types.ErrorResponse
	if err := json.Unmarshal(body, &e); err == nil && e.Message != "" {
		return fmt.Errorf("%w: status %d: %s", ErrRequestFailed, status, e.Message)
	}
	return fmt.Errorf("%w: status %d", ErrRequestFailed, status)
}
