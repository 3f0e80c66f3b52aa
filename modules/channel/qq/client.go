package qq

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// maxResponseBytes bounds reads of NapCat API responses.
const maxResponseBytes = 1 << 20

// ErrEmptyText is returned by SendText when there is nothing to send.
var ErrEmptyText = errors.New("qq: empty text")

// SendError is returned when NapCat rejects a send.
type SendError struct {
	Status int
	Detail string
}

func (e *SendError) Error() string {
	return fmt.Sprintf("qq: napcat send failed (%d): %s", e.Status, e.Detail)
}

// SendResult is the outcome of a successful send.
type SendResult struct {
	// MessageID is the id NapCat assigned, or "" when it returned none.
	MessageID string
}

// TextSender sends plain text to a QQ conversation.
type TextSender interface {
	SendText(ctx context.Context, target Target, text string) (SendResult, error)
}

// Client is a thin HTTP wrapper around the NapCat OneBot 11 HTTP API.
type Client struct {
	baseURL     *url.URL
	accessToken string
	http        *http.Client
}

// NewClient creates a client for the API at baseURL.
func NewClient(baseURL, accessToken string, timeout time.Duration) (*Client, error) {
	u, err := url.Parse(baseURL)
	if err != nil {
		return nil, fmt.Errorf("qq: parse http_url: %w", err)
	}
	return &Client{
		baseURL:     u,
		accessToken: accessToken,
		http:        &http.Client{Timeout: timeout},
	}, nil
}

// sendResponse is the OneBot action response envelope.
type sendResponse struct {
	Status    string          `json:"status"`
	Data      json.RawMessage `json:"data"`
	MessageID FlexString      `json:"message_id"`
}

// SendText sends text to target via send_group_msg or send_private_msg.
// The text is trimmed; an empty text returns ErrEmptyText without a request.
func (c *Client) SendText(ctx context.Context, target Target, text string) (SendResult, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return SendResult{}, ErrEmptyText
	}

	ctx, span := tracer.Start(ctx, "qq.send", trace.WithAttributes(
		attribute.String("qq.target.kind", string(target.Kind)),
		attribute.String("qq.target.id", target.ID),
	))
	defer span.End()

	endpoint, payload := "/send_private_msg", map[string]any{"user_id": coerceID(target.ID), "message": text}
	if target.Kind == TargetGroup {
		endpoint, payload = "/send_group_msg", map[string]any{"group_id": coerceID(target.ID), "message": text}
	}

	res, err := c.do(ctx, endpoint, payload)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "send failed")
		return SendResult{}, err
	}
	span.SetAttributes(attribute.String("qq.message_id", res.MessageID))
	return res, nil
}

func (c *Client) do(ctx context.Context, endpoint string, payload any) (SendResult, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return SendResult{}, fmt.Errorf("qq: marshal %s request: %w", endpoint, err)
	}

	u := c.baseURL.ResolveReference(&url.URL{Path: endpoint})
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, u.String(), bytes.NewReader(data))
	if err != nil {
		return SendResult{}, fmt.Errorf("qq: create %s request: %w", endpoint, err)
	}
	req.Header.Set("Content-Type", "application/json")
	if c.accessToken != "" {
		req.Header.Set("Authorization", "Bearer "+c.accessToken)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return SendResult{}, fmt.Errorf("qq: %s request failed: %w", endpoint, err)
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return SendResult{}, fmt.Errorf("qq: read %s response: %w", endpoint, err)
	}

	var parsed sendResponse
	decodeErr := json.Unmarshal(body, &parsed)
	ok := resp.StatusCode >= 200 && resp.StatusCode < 300
	if !ok || decodeErr != nil || parsed.Status != "ok" {
		return SendResult{}, &SendError{
			Status: resp.StatusCode,
			Detail: strings.TrimSpace(string(body)),
		}
	}

	return SendResult{MessageID: parsed.messageID()}, nil
}

// messageID prefers data.message_id over the top-level field.
func (r sendResponse) messageID() string {
	if isObject(r.Data) {
		var d struct {
			MessageID FlexString `json:"message_id"`
		}
		if err := json.Unmarshal(r.Data, &d); err == nil && d.MessageID != "" {
			return string(d.MessageID)
		}
	}
	return string(r.MessageID)
}

// coerceID sends ids as numbers when the whole id is a base-10 integer.
func coerceID(id string) any {
	if n, err := strconv.ParseInt(id, 10, 64); err == nil {
		return n
	}
	return id
}
