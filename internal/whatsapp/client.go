// Package whatsapp is a thin client for the WhatsApp Business Cloud API.
// The provider is an external collaborator; only plain message delivery is
// wrapped here.
package whatsapp

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"github.com/pkg/errors"

	"github.com/amawa/backend/config"
)

// ErrDisabled is returned when no provider credentials are configured
var ErrDisabled = errors.New("whatsapp client is disabled")

// Client sends messages through the WhatsApp Business Cloud API
type Client struct {
	httpClient *http.Client
	baseURL    string
	phoneID    string
	token      string
	enabled    bool
}

// NewClient creates a new WhatsApp client
func NewClient(cfg config.WhatsAppConfig) *Client {
	return &Client{
		httpClient: &http.Client{Timeout: cfg.Timeout},
		baseURL:    cfg.BaseURL,
		phoneID:    cfg.PhoneNumberID,
		token:      cfg.AccessToken,
		enabled:    cfg.Enabled && cfg.AccessToken != "" && cfg.PhoneNumberID != "",
	}
}

// Enabled reports whether the client can deliver messages
func (c *Client) Enabled() bool {
	return c != nil && c.enabled
}

type textMessage struct {
	MessagingProduct string `json:"messaging_product"`
	To               string `json:"to"`
	Type             string `json:"type"`
	Text             struct {
		Body string `json:"body"`
	} `json:"text"`
}

type sendResponse struct {
	Messages []struct {
		ID string `json:"id"`
	} `json:"messages"`
	Error *struct {
		Message string `json:"message"`
		Code    int    `json:"code"`
	} `json:"error"`
}

// SendText delivers a plain text message and returns the provider message ID
func (c *Client) SendText(ctx context.Context, phone, body string) (string, error) {
	if !c.Enabled() {
		return "", ErrDisabled
	}

	msg := textMessage{
		MessagingProduct: "whatsapp",
		To:               phone,
		Type:             "text",
	}
	msg.Text.Body = body

	payload, err := json.Marshal(msg)
	if err != nil {
		return "", errors.Wrap(err, "failed to marshal message")
	}

	url := fmt.Sprintf("%s/%s/messages", c.baseURL, c.phoneID)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		return "", errors.Wrap(err, "failed to build request")
	}
	req.Header.Set("Authorization", "Bearer "+c.token)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", errors.Wrap(err, "failed to call WhatsApp API")
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", errors.Wrap(err, "failed to read WhatsApp response")
	}

	var parsed sendResponse
	if err := json.Unmarshal(respBody, &parsed); err != nil {
		return "", errors.Wrap(err, "failed to parse WhatsApp response")
	}

	if resp.StatusCode >= 400 {
		if parsed.Error != nil {
			return "", errors.Errorf("WhatsApp API error %d: %s", parsed.Error.Code, parsed.Error.Message)
		}
		return "", errors.Errorf("WhatsApp API returned status %d", resp.StatusCode)
	}

	if len(parsed.Messages) == 0 {
		return "", errors.New("WhatsApp API returned no message ID")
	}
	return parsed.Messages[0].ID, nil
}
