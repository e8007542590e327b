package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"helpdesk-service/internal/config"
)

type notifyRequest struct {
	From      string `json:"from"`
	Recipient string `json:"recipient"`
	Subject   string `json:"subject"`
	Body      string `json:"body"`
}

// NotifierClient posts notifications to the notification service.
// Callers treat delivery as best-effort; an error here is logged by the
// caller and never fails the triggering operation.
type NotifierClient struct {
	baseURL    string
	from       string
	httpClient *http.Client
}

func NewNotifierClient(cfg *config.Config) *NotifierClient {
	return &NotifierClient{
		baseURL: cfg.ExternalServices.NotificationServiceURL,
		from:    cfg.ExternalServices.NotificationFrom,
		httpClient: &http.Client{
			Timeout: 10 * time.Second,
		},
	}
}

func (c *NotifierClient) Notify(ctx context.Context, recipient, subject, body string) error {
	if c.baseURL == "" {
		return fmt.Errorf("notification service URL is not configured")
	}

	payload, err := json.Marshal(notifyRequest{
		From:      c.from,
		Recipient: recipient,
		Subject:   subject,
		Body:      body,
	})
	if err != nil {
		return fmt.Errorf("encode notification: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/notifications", bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("send notification: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		respBody, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("notification service returned status %d: %s", resp.StatusCode, string(respBody))
	}

	return nil
}
