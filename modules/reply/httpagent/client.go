package httpagent

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/flemzord/qqrelay/internal/reply"
	"github.com/flemzord/qqrelay/pkg/message"
)

// HTTPError is returned when the agent endpoint answers with a non-2xx status.
type HTTPError struct {
	Status int
	Body   string
}

func (e *HTTPError) Error() string {
	return fmt.Sprintf("httpagent: agent returned %d: %s", e.Status, e.Body)
}

// dispatchRequest is the body posted to the agent endpoint.
type dispatchRequest struct {
	Context message.InboundContext `json:"context"`
}

// dispatchResponse is the agent's answer. Payloads are delivered in order.
type dispatchResponse struct {
	Replies []message.ReplyPayload `json:"replies"`
}

// Dispatcher is a reply.Dispatcher that forwards each inbound context to an
// HTTP agent endpoint and delivers the returned payloads.
type Dispatcher struct {
	cfg  Config
	http *http.Client
}

// Compile-time interface guard.
var _ reply.Dispatcher = (*Dispatcher)(nil)

// NewDispatcher creates a Dispatcher for the given configuration.
func NewDispatcher(cfg Config) *Dispatcher {
	cfg.defaults()
	return &Dispatcher{
		cfg:  cfg,
		http: &http.Client{Timeout: cfg.Timeout},
	}
}

// Dispatch implements reply.Dispatcher.
func (d *Dispatcher) Dispatch(ctx context.Context, req reply.Request) error {
	resp, err := d.post(ctx, dispatchRequest{Context: req.Context})
	if err != nil {
		return err
	}
	_, err = reply.DeliverBuffered(ctx, req, resp.Replies)
	return err
}

func (d *Dispatcher) post(ctx context.Context, payload dispatchRequest) (*dispatchResponse, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("httpagent: marshal request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, d.cfg.URL, bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("httpagent: create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	if d.cfg.Token != "" {
		httpReq.Header.Set("Authorization", "Bearer "+d.cfg.Token)
	}

	resp, err := d.http.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("httpagent: request failed: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(io.LimitReader(resp.Body, d.cfg.MaxResponseBytes))
	if err != nil {
		return nil, fmt.Errorf("httpagent: read response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, &HTTPError{Status: resp.StatusCode, Body: strings.TrimSpace(string(body))}
	}

	var out dispatchResponse
	if len(bytes.TrimSpace(body)) == 0 || resp.StatusCode == http.StatusNoContent {
		return &out, nil
	}
	if err := json.Unmarshal(body, &out); err != nil {
		return nil, fmt.Errorf("httpagent: decode response: %w", err)
	}
	return &out, nil
}
