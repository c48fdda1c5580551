package client

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/alfredjeanlab/leadrelay/internal/model"
)

// HTTPClient implements RelayClient using the leadrelay HTTP/JSON API.
type HTTPClient struct {
	baseURL    string
	httpClient *http.Client
}

// NewHTTPClient creates a new HTTP client targeting the given base URL
// (e.g. "http://localhost:8080").
func NewHTTPClient(baseURL string) *HTTPClient {
	return &HTTPClient{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{},
	}
}

// Close is a no-op for the HTTP client.
func (c *HTTPClient) Close() error { return nil }

func (c *HTTPClient) SendDashboardUpdate(ctx context.Context, leadID string, payload map[string]any) (*DashboardResponse, error) {
	var resp DashboardResponse
	path := "/api/webhook/dashboard-update/" + url.PathEscape(leadID)
	if err := c.doJSON(ctx, http.MethodPost, path, payload, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

func (c *HTTPClient) SendStatusUpdate(ctx context.Context, leadID string, req *StatusUpdateRequest) (*StatusResponse, error) {
	var resp StatusResponse
	path := "/api/webhook/status-update/" + url.PathEscape(leadID)
	if err := c.doJSON(ctx, http.MethodPost, path, req, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

func (c *HTTPClient) LeadStatus(ctx context.Context, leadID string) (*LeadStatusResponse, error) {
	var resp LeadStatusResponse
	if err := c.doJSON(ctx, http.MethodGet, "/api/leads/"+url.PathEscape(leadID), nil, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

func (c *HTTPClient) DebugRequests(ctx context.Context, limit int) (*DebugRequestsResponse, error) {
	path := "/api/debug/requests"
	if limit > 0 {
		path += fmt.Sprintf("?limit=%d", limit)
	}
	var resp DebugRequestsResponse
	if err := c.doJSON(ctx, http.MethodGet, path, nil, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// StreamEvents opens the SSE stream for a lead. Events arrive on the returned
// channel in wire order; the channel closes when the server ends the stream
// or ctx is canceled. Keepalive comment lines are skipped.
func (c *HTTPClient) StreamEvents(ctx context.Context, leadID string) (<-chan *model.Event, error) {
	path := c.baseURL + "/api/leads/" + url.PathEscape(leadID) + "/stream"
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, path, nil)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Accept", "text/event-stream")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("connecting stream: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		resp.Body.Close()
		return nil, &APIError{StatusCode: resp.StatusCode, Message: strings.TrimSpace(string(body))}
	}

	out := make(chan *model.Event)
	go func() {
		defer close(out)
		defer resp.Body.Close()
		scanner := bufio.NewScanner(resp.Body)
		scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
		for scanner.Scan() {
			evt, ok := parseSSELine(scanner.Text())
			if !ok {
				continue
			}
			select {
			case out <- evt:
			case <-ctx.Done():
				return
			}
		}
	}()
	return out, nil
}

// parseSSELine decodes one line of an SSE stream. Blank separators, comment
// keepalives, and undecodable payloads all return ok=false.
func parseSSELine(line string) (*model.Event, bool) {
	var data string
	switch {
	case strings.HasPrefix(line, "data: "):
		data = line[len("data: "):]
	case strings.HasPrefix(line, "data:"):
		data = line[len("data:"):]
	default:
		return nil, false
	}
	var evt model.Event
	if err := json.Unmarshal([]byte(data), &evt); err != nil || evt.Type == "" {
		return nil, false
	}
	return &evt, true
}

func (c *HTTPClient) Health(ctx context.Context) (string, error) {
	var resp struct {
		Status string `json:"status"`
	}
	if err := c.doJSON(ctx, http.MethodGet, "/api/health", nil, &resp); err != nil {
		return "", err
	}
	return resp.Status, nil
}

// --- internal helpers ---

// APIError represents an error response from the server.
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("HTTP %d: %s", e.StatusCode, e.Message)
}

// doJSON performs an HTTP request with optional JSON body and decodes the JSON response.
// If result is nil, the response body is discarded.
func (c *HTTPClient) doJSON(ctx context.Context, method, path string, body any, result any) error {
	var bodyReader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("marshaling request body: %w", err)
		}
		bodyReader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, bodyReader)
	if err != nil {
		return fmt.Errorf("creating request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("performing request: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("reading response: %w", err)
	}

	if resp.StatusCode >= 400 {
		var errResp struct {
			Error string `json:"error"`
		}
		if json.Unmarshal(respBody, &errResp) == nil && errResp.Error != "" {
			return &APIError{StatusCode: resp.StatusCode, Message: errResp.Error}
		}
		return &APIError{StatusCode: resp.StatusCode, Message: strings.TrimSpace(string(respBody))}
	}

	if result != nil {
		if err := json.Unmarshal(respBody, result); err != nil {
			return fmt.Errorf("decoding response: %w", err)
		}
	}

	return nil
}
