// Package mail sends transactional email through the SendGrid v3 API.
package mail

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

const sendURL = "https://api.sendgrid.com/v3/mail/send"

// Sender delivers one HTML email to one recipient.
type Sender interface {
	Send(ctx context.Context, to, subject, htmlBody string) error
}

type SendGridClient struct {
	httpClient *http.Client
	baseURL    string
	apiKey     string
	fromEmail  string
	fromName   string
}

func NewSendGridClient(apiKey, fromEmail, fromName string) *SendGridClient {
	return &SendGridClient{
		httpClient: &http.Client{Timeout: 30 * time.Second},
		baseURL:    sendURL,
		apiKey:     apiKey,
		fromEmail:  fromEmail,
		fromName:   fromName,
	}
}

type address struct {
	Email string `json:"email"`
	Name  string `json:"name,omitempty"`
}

type personalization struct {
	To []address `json:"to"`
}

type content struct {
	Type  string `json:"type"`
	Value string `json:"value"`
}

type sendRequest struct {
	Personalizations []personalization `json:"personalizations"`
	From             address           `json:"from"`
	Subject          string            `json:"subject"`
	Content          []content         `json:"content"`
}

func (c *SendGridClient) Send(ctx context.Context, to, subject, htmlBody string) error {
	payload, err := json.Marshal(sendRequest{
		Personalizations: []personalization{{To: []address{{Email: to}}}},
		From:             address{Email: c.fromEmail, Name: c.fromName},
		Subject:          subject,
		Content:          []content{{Type: "text/html", Value: htmlBody}},
	})
	if err != nil {
		return fmt.Errorf("failed to encode mail: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	httpReq.Header.Set("Authorization", "Bearer "+c.apiKey)
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return fmt.Errorf("mail request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("mail rejected (status %d): %s", resp.StatusCode, bytes.TrimSpace(body))
	}
	return nil
}
