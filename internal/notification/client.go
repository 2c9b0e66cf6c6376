package notification

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/KidRide/kidride-backend/logger"
	"github.com/KidRide/kidride-backend/types"
)

// Notifier delivers a notification to one user. Delivery is best effort;
// callers decide whether a failure is retried.
type Notifier interface {
	Notify(ctx context.Context, recipientID string, kind types.NotificationKind, payload map[string]interface{}) error
}

// Client represents a client for the notification facade API
type Client struct {
	apiURL     string
	apiKey     string
	httpClient *http.Client
}

var _ Notifier = (*Client)(nil)

// ClientOption is a function that configures the client
type ClientOption func(*Client)

// WithHTTPClient sets a custom HTTP client
func WithHTTPClient(client *http.Client) ClientOption {
	return func(c *Client) {
		c.httpClient = client
	}
}

// WithTimeout overrides the default request timeout.
func WithTimeout(d time.Duration) ClientOption {
	return func(c *Client) {
		c.httpClient.Timeout = d
	}
}

// NewClient creates a new notification client
func NewClient(apiURL, apiKey string, opts ...ClientOption) *Client {
	c := &Client{
		apiURL: apiURL,
		apiKey: apiKey,
		httpClient: &http.Client{
			Timeout: 10 * time.Second,
		},
	}

	for _, opt := range opts {
		opt(c)
	}

	return c
}

// Notify sends kind to recipientID with the payload as notification data.
func (c *Client) Notify(ctx context.Context, recipientID string, kind types.NotificationKind, payload map[string]interface{}) error {
	_, err := c.Send(ctx, &Request{
		UserID:    recipientID,
		EventType: kind,
		Priority:  PriorityFor(kind),
		Data:      payload,
	})
	return err
}

// Send sends a notification request to the facade API
func (c *Client) Send(ctx context.Context, req *Request) (*Response, error) {
	if err := c.validateRequest(req); err != nil {
		return nil, fmt.Errorf("invalid request: %w", err)
	}

	jsonData, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	url := c.apiURL
	if !isFullURL(c.apiURL) {
		url = fmt.Sprintf("%s/notify", strings.TrimSuffix(c.apiURL, "/"))
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewBuffer(jsonData))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("x-api-key", c.apiKey)

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("failed to send request: %w", err)
	}
	defer resp.Body.Close()

	var notifResp Response
	if err := json.NewDecoder(resp.Body).Decode(&notifResp); err != nil {
		return nil, fmt.Errorf("failed to decode response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		if notifResp.Error != "" {
			return &notifResp, fmt.Errorf("notification failed with status %d: %s", resp.StatusCode, notifResp.Error)
		}
		return &notifResp, fmt.Errorf("notification failed with status %d", resp.StatusCode)
	}

	return &notifResp, nil
}

func (c *Client) validateRequest(req *Request) error {
	if req.UserID == "" {
		return fmt.Errorf("userId is required")
	}
	if req.EventType == "" {
		return fmt.Errorf("eventType is required")
	}
	if !validKinds[req.EventType] {
		return fmt.Errorf("invalid eventType: %s", req.EventType)
	}

	switch req.Priority {
	case "", PriorityCritical, PriorityHigh, PriorityMedium, PriorityLow:
	default:
		return fmt.Errorf("invalid priority: %s", req.Priority)
	}

	if req.Data == nil {
		req.Data = make(map[string]interface{})
	}
	return nil
}

// isFullURL checks if the URL already includes an endpoint path
func isFullURL(url string) bool {
	return strings.HasSuffix(url, "/notify")
}

// LogNotifier writes notifications to the log. Used when the facade is disabled.
type LogNotifier struct{}

var _ Notifier = LogNotifier{}

func (LogNotifier) Notify(_ context.Context, recipientID string, kind types.NotificationKind, payload map[string]interface{}) error {
	logger.GetLogger().Named("notification").Infow("Notification (facade disabled)",
		"recipientId", recipientID, "kind", kind, "payload", payload)
	return nil
}
