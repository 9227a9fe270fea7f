// Package sms sends outbound text messages via the Twilio REST API.
package sms

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/shuttle-global/twilio-demo-app/pkg/logger"
)

const defaultAPIBase = "https://api.twilio.com"

// Sender posts form-encoded messages to the Twilio Messages endpoint using
// basic auth.
type Sender struct {
	apiBase    string
	accountSID string
	authToken  string
	http       *http.Client
}

func NewSender(accountSID, authToken string) *Sender {
	return &Sender{
		apiBase:    defaultAPIBase,
		accountSID: accountSID,
		authToken:  authToken,
		http:       &http.Client{Timeout: 15 * time.Second},
	}
}

// WithAPIBase overrides the Twilio API base URL. Used by tests.
func (s *Sender) WithAPIBase(base string) *Sender {
	s.apiBase = strings.TrimRight(base, "/")
	return s
}

// Send dispatches one SMS. Failures are returned, not retried; a payment
// link the caller never receives is recoverable by restarting the flow.
func (s *Sender) Send(ctx context.Context, from, to, body string) error {
	if s.accountSID == "" || s.authToken == "" {
		return fmt.Errorf("sms: twilio credentials not configured")
	}

	form := url.Values{}
	form.Set("From", from)
	form.Set("To", to)
	form.Set("Body", body)

	u := fmt.Sprintf("%s/2010-04-01/Accounts/%s/Messages.json", s.apiBase, url.PathEscape(s.accountSID))
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, u, strings.NewReader(form.Encode()))
	if err != nil {
		return err
	}
	req.SetBasicAuth(s.accountSID, s.authToken)
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	log := logger.From(ctx)
	start := time.Now()
	log.Debug("fetch", "type", "fetch", "action", "start", "operation", "send_sms", "to", to)

	resp, err := s.http.Do(req)
	dur := time.Since(start)
	if err != nil {
		log.Error("fetch", "type", "fetch", "action", "complete_error", "operation", "send_sms",
			"err", err, "duration_ms", dur.Milliseconds())
		return fmt.Errorf("sms: send: %w", err)
	}
	defer resp.Body.Close()
	raw, _ := io.ReadAll(resp.Body)

	if resp.StatusCode < 200 || resp.StatusCode >= 400 {
		log.Error("fetch", "type", "fetch", "action", "complete_error", "operation", "send_sms",
			"status", resp.StatusCode, "body", logger.Truncate(string(raw), 1024),
			"duration_ms", dur.Milliseconds())
		return fmt.Errorf("sms: send returned status %d", resp.StatusCode)
	}

	log.Debug("fetch", "type", "fetch", "action", "complete", "operation", "send_sms",
		"status", resp.StatusCode, "duration_ms", dur.Milliseconds())
	return nil
}
