// Package messenger wraps the Facebook Messenger Send API and webhook
// verification for BotWeave channel integrations.
package messenger

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"time"
)

// DefaultGraphAPIBase is the Facebook Graph API endpoint used for sends.
const DefaultGraphAPIBase = "https://graph.facebook.com/v19.0"

// Opts holds configuration options for the Messenger client.
type Opts struct {
	PageAccessToken string
	AppSecret       string
	VerifyToken     string
	APIBase         string
	HTTPClient      *http.Client
}

// Option defines a configuration option for the Messenger client.
type Option func(*Opts)

// WithPageAccessToken sets the per-integration page access token.
func WithPageAccessToken(token string) Option {
	return func(o *Opts) { o.PageAccessToken = token }
}

// WithAppSecret sets the app secret used for webhook signature verification.
func WithAppSecret(secret string) Option {
	return func(o *Opts) { o.AppSecret = secret }
}

// WithVerifyToken sets the token expected during the webhook verification handshake.
func WithVerifyToken(token string) Option {
	return func(o *Opts) { o.VerifyToken = token }
}

// WithAPIBase overrides the Graph API base URL (used by tests).
func WithAPIBase(base string) Option {
	return func(o *Opts) { o.APIBase = base }
}

// WithHTTPClient overrides the HTTP client used for sends.
func WithHTTPClient(c *http.Client) Option {
	return func(o *Opts) { o.HTTPClient = c }
}

// Client talks to the Facebook Messenger platform for one page integration.
type Client struct {
	httpClient      *http.Client
	apiBase         string
	pageAccessToken string
	appSecret       string
	verifyToken     string
}

// NewClient creates a Messenger client, falling back to environment variables
// for options that were not provided.
func NewClient(opts ...Option) (*Client, error) {
	var cfg Opts
	for _, opt := range opts {
		opt(&cfg)
	}
	if cfg.PageAccessToken == "" {
		cfg.PageAccessToken = os.Getenv("MESSENGER_PAGE_ACCESS_TOKEN")
	}
	if cfg.AppSecret == "" {
		cfg.AppSecret = os.Getenv("MESSENGER_APP_SECRET")
	}
	if cfg.VerifyToken == "" {
		cfg.VerifyToken = os.Getenv("MESSENGER_VERIFY_TOKEN")
	}
	if cfg.APIBase == "" {
		cfg.APIBase = DefaultGraphAPIBase
	}
	if cfg.HTTPClient == nil {
		cfg.HTTPClient = &http.Client{Timeout: 15 * time.Second}
	}
	slog.Debug("Messenger client config loaded",
		"PageAccessToken_set", cfg.PageAccessToken != "",
		"AppSecret_set", cfg.AppSecret != "",
		"VerifyToken_set", cfg.VerifyToken != "")

	if cfg.PageAccessToken == "" {
		return nil, fmt.Errorf("page access token must be provided")
	}

	return &Client{
		httpClient:      cfg.HTTPClient,
		apiBase:         cfg.APIBase,
		pageAccessToken: cfg.PageAccessToken,
		appSecret:       cfg.AppSecret,
		verifyToken:     cfg.VerifyToken,
	}, nil
}

// sendRequest is the Send API payload for a plain text message.
type sendRequest struct {
	Recipient struct {
		ID string `json:"id"`
	} `json:"recipient"`
	Message struct {
		Text string `json:"text"`
	} `json:"message"`
}

// SendMessage delivers a text message to the recipient PSID via the Send API.
func (c *Client) SendMessage(ctx context.Context, recipientID, body string) error {
	var payload sendRequest
	payload.Recipient.ID = recipientID
	payload.Message.Text = body

	data, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to marshal send request: %w", err)
	}

	url := fmt.Sprintf("%s/me/messages?access_token=%s", c.apiBase, c.pageAccessToken)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(data))
	if err != nil {
		return fmt.Errorf("failed to build send request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		slog.Error("Messenger SendMessage request failed", "error", err, "to", recipientID)
		return fmt.Errorf("failed to call send API: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		respBody, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		slog.Error("Messenger SendMessage rejected", "status", resp.StatusCode, "to", recipientID, "body", string(respBody))
		return fmt.Errorf("send API returned status %d", resp.StatusCode)
	}

	slog.Debug("Messenger SendMessage succeeded", "to", recipientID, "body_length", len(body))
	return nil
}

// VerifySignature checks the X-Hub-Signature-256 header against the raw
// webhook payload using the app secret. Verification fails closed: a missing
// secret or malformed header rejects the payload.
func (c *Client) VerifySignature(payload []byte, signatureHeader string) bool {
	if c.appSecret == "" {
		slog.Warn("Messenger VerifySignature called without app secret")
		return false
	}
	const prefix = "sha256="
	if len(signatureHeader) <= len(prefix) || signatureHeader[:len(prefix)] != prefix {
		return false
	}
	want, err := hex.DecodeString(signatureHeader[len(prefix):])
	if err != nil {
		return false
	}
	mac := hmac.New(sha256.New, []byte(c.appSecret))
	mac.Write(payload)
	return hmac.Equal(mac.Sum(nil), want)
}

// VerifyWebhook handles the subscription handshake: when mode is "subscribe"
// and the token matches, it returns the challenge to echo back.
func (c *Client) VerifyWebhook(mode, token, challenge string) (string, bool) {
	if mode == "subscribe" && token != "" && token == c.verifyToken {
		slog.Info("Messenger webhook verified")
		return challenge, true
	}
	slog.Warn("Messenger webhook verification failed", "mode", mode)
	return "", false
}

// WebhookEvent is the subset of the Messenger webhook payload the platform consumes.
type WebhookEvent struct {
	Object string `json:"object"`
	Entry  []struct {
		ID        string `json:"id"`
		Time      int64  `json:"time"`
		Messaging []struct {
			Sender struct {
				ID string `json:"id"`
			} `json:"sender"`
			Message struct {
				MID  string `json:"mid"`
				Text string `json:"text"`
			} `json:"message"`
		} `json:"messaging"`
	} `json:"entry"`
}

// ParseWebhookEvent decodes a webhook payload into its event structure.
func ParseWebhookEvent(payload []byte) (*WebhookEvent, error) {
	var ev WebhookEvent
	if err := json.Unmarshal(payload, &ev); err != nil {
		return nil, fmt.Errorf("failed to parse webhook payload: %w", err)
	}
	return &ev, nil
}
