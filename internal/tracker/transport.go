package tracker

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"
)

// TransportError wraps a delivery failure so callers can tell transport
// trouble apart from the server rejecting a payload.
type TransportError struct {
	Op  string
	Err error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("transport %s: %v", e.Op, e.Err)
}

func (e *TransportError) Unwrap() error { return e.Err }

// HTTPTransport delivers reports to a folio ingestion surface over HTTP.
type HTTPTransport struct {
	baseURL string
	client  *http.Client
}

// NewHTTPTransport builds a transport against baseURL, e.g.
// "https://example.com". A nil client gets a short default timeout suited to
// fire-and-forget beacons.
func NewHTTPTransport(baseURL string, client *http.Client) *HTTPTransport {
	if client == nil {
		client = &http.Client{Timeout: 5 * time.Second}
	}
	return &HTTPTransport{
		baseURL: strings.TrimRight(baseURL, "/"),
		client:  client,
	}
}

type pageViewResponse struct {
	Success bool   `json:"success"`
	ViewID  string `json:"viewId"`
	Ignored bool   `json:"ignored"`
	Error   string `json:"error"`
}

func (t *HTTPTransport) send(ctx context.Context, method, path string, payload interface{}, out interface{}) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return &TransportError{Op: path, Err: err}
	}

	req, err := http.NewRequestWithContext(ctx, method, t.baseURL+path, bytes.NewReader(body))
	if err != nil {
		return &TransportError{Op: path, Err: err}
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := t.client.Do(req)
	if err != nil {
		return &TransportError{Op: path, Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 500 {
		return &TransportError{Op: path, Err: fmt.Errorf("server returned %d", resp.StatusCode)}
	}
	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return &TransportError{Op: path, Err: err}
		}
	}
	return nil
}

func (t *HTTPTransport) RecordPageView(ctx context.Context, payload PageViewPayload) (string, error) {
	var resp pageViewResponse
	if err := t.send(ctx, http.MethodPost, "/analytics/pageview", payload, &resp); err != nil {
		return "", err
	}
	if !resp.Success {
		return "", fmt.Errorf("page view rejected: %s", resp.Error)
	}
	// An ignored view has no id; the caller simply never patches a duration.
	return resp.ViewID, nil
}

func (t *HTTPTransport) UpdateDuration(ctx context.Context, viewID string, seconds int) error {
	payload := map[string]interface{}{"viewId": viewID, "duration": seconds}
	// A 404 here is advisory: the duration decodes as success=false but the
	// view is simply gone, which best-effort delivery absorbs upstream.
	return t.send(ctx, http.MethodPut, "/analytics/pageview", payload, nil)
}

func (t *HTTPTransport) RecordEvent(ctx context.Context, payload EventPayload) error {
	var resp pageViewResponse
	if err := t.send(ctx, http.MethodPost, "/analytics/event", payload, &resp); err != nil {
		return err
	}
	if !resp.Success {
		return fmt.Errorf("event rejected: %s", resp.Error)
	}
	return nil
}

var _ Transport = (*HTTPTransport)(nil)
