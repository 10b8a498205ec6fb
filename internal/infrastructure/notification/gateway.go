package notification

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/qualee/backend/internal/infrastructure/config"
)

// GatewaySender posts WhatsApp messages to a Twilio-compatible Messages API
type GatewaySender struct {
	client     *http.Client
	endpoint   string
	accountSID string
	authToken  string
	from       string
}

// NewGatewaySender creates a GatewaySender. A nil client gets a default
// one with the configured timeout.
func NewGatewaySender(cfg config.GatewayConfig, client *http.Client) *GatewaySender {
	if client == nil {
		timeout := cfg.Timeout
		if timeout <= 0 {
			timeout = 10 * time.Second
		}
		client = &http.Client{Timeout: timeout}
	}
	return &GatewaySender{
		client:     client,
		endpoint:   fmt.Sprintf("%s/2010-04-01/Accounts/%s/Messages.json", strings.TrimRight(cfg.BaseURL, "/"), url.PathEscape(cfg.AccountSID)),
		accountSID: cfg.AccountSID,
		authToken:  cfg.AuthToken,
		from:       whatsappAddress(cfg.FromNumber),
	}
}

// Send submits one message
func (s *GatewaySender) Send(ctx context.Context, msg Message) error {
	form := url.Values{}
	form.Set("To", whatsappAddress(msg.To))
	form.Set("From", s.from)
	form.Set("Body", msg.Body)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.endpoint, strings.NewReader(form.Encode()))
	if err != nil {
		return fmt.Errorf("build gateway request: %w", err)
	}
	req.SetBasicAuth(s.accountSID, s.authToken)
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("Accept", "application/json")

	resp, err := s.client.Do(req)
	if err != nil {
		return fmt.Errorf("gateway request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("gateway returned %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}
	_, _ = io.Copy(io.Discard, resp.Body)
	return nil
}

// Close releases idle connections
func (s *GatewaySender) Close() error {
	s.client.CloseIdleConnections()
	return nil
}

func whatsappAddress(phone string) string {
	if strings.HasPrefix(phone, "whatsapp:") {
		return phone
	}
	return "whatsapp:" + phone
}
