// Package shuttle is a thin typed client for the Shuttle payment gateway
// REST API. Every call is bearer-authenticated with the per-call instance
// secret, logged start/complete with duration and a truncated body, and
// counted in metrics.
//
// Callers must treat (nil, error) results as "not available" and branch on
// absence rather than aborting the voice call, except where a missing result
// leaves nothing sensible to say.
package shuttle

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/shuttle-global/twilio-demo-app/internal/cache"
	"github.com/shuttle-global/twilio-demo-app/internal/metrics"
	"github.com/shuttle-global/twilio-demo-app/pkg/logger"
)

// ErrUnauthorized marks a 401 from the gateway, surfaced as a generic
// unauthorized response at the HTTP boundary.
var ErrUnauthorized = errors.New("shuttle: unauthorized")

// Auth carries the per-call instance credential embedded in the webhook path.
type Auth struct {
	InstanceID     string
	InstanceSecret string
}

type Client struct {
	host string
	http *http.Client

	// lookups is optional; nil means every lookup goes to the gateway.
	lookups *cache.Cache

	maxLogBody int
}

// NewClient builds a gateway client for host (no trailing slash).
// lookups may be nil.
func NewClient(host string, lookups *cache.Cache) *Client {
	return &Client{
		host:       host,
		http:       &http.Client{Timeout: 30 * time.Second},
		lookups:    lookups,
		maxLogBody: 2048,
	}
}

// Host returns the gateway base URL, also used to build hosted link URLs.
func (c *Client) Host() string { return c.host }

func (c *Client) GetInstance(ctx context.Context, auth Auth) (*Instance, error) {
	var env struct {
		Instance *Instance `json:"instance"`
	}
	err := c.cachedGet(ctx, auth, "get_instance",
		fmt.Sprintf("/c/api/instances/%s", url.PathEscape(auth.InstanceID)),
		cacheKey("instance", auth), &env)
	if err != nil {
		return nil, err
	}
	return env.Instance, nil
}

func (c *Client) GetCapabilities(ctx context.Context, auth Auth) (*Capabilities, error) {
	var env struct {
		Capabilities *Capabilities `json:"capabilities"`
	}
	err := c.cachedGet(ctx, auth, "get_capabilities",
		fmt.Sprintf("/c/api/instances/%s/capabilities", url.PathEscape(auth.InstanceID)),
		cacheKey("capabilities", auth), &env)
	if err != nil {
		return nil, err
	}
	return env.Capabilities, nil
}

// GetPaymentMethods lists active (or failing) payment methods saved against
// an account key.
func (c *Client) GetPaymentMethods(ctx context.Context, auth Auth, accountKey string) ([]PaymentMethod, error) {
	if accountKey == "" {
		return nil, nil
	}
	var env struct {
		PaymentMethods []PaymentMethod `json:"payment_methods"`
	}
	path := fmt.Sprintf("/c/api/instances/%s/accounts/%s/payment_methods?criteria=%s",
		url.PathEscape(auth.InstanceID), url.PathEscape(accountKey), url.QueryEscape("status=ACTIVE;FAILING"))
	if err := c.doJSON(ctx, auth, "get_payment_methods", http.MethodGet, path, nil, &env); err != nil {
		return nil, err
	}
	return env.PaymentMethods, nil
}

func (c *Client) GetPaymentMethod(ctx context.Context, auth Auth, paymentMethodID string) (*PaymentMethod, error) {
	var env struct {
		PaymentMethod *PaymentMethod `json:"payment_method"`
	}
	path := fmt.Sprintf("/c/api/instances/%s/payment_methods/%s",
		url.PathEscape(auth.InstanceID), url.PathEscape(paymentMethodID))
	if err := c.doJSON(ctx, auth, "get_payment_method", http.MethodGet, path, nil, &env); err != nil {
		return nil, err
	}
	return env.PaymentMethod, nil
}

func (c *Client) DeletePaymentMethod(ctx context.Context, auth Auth, paymentMethodID string) error {
	path := fmt.Sprintf("/c/api/instances/%s/payment_methods/%s",
		url.PathEscape(auth.InstanceID), url.PathEscape(paymentMethodID))
	_, err := c.do(ctx, auth, "delete_payment_method", http.MethodDelete, path, nil)
	return err
}

// GetPayment looks a payment up by id or link alt key.
func (c *Client) GetPayment(ctx context.Context, auth Auth, paymentID string) (*Payment, error) {
	var env struct {
		Payment *Payment `json:"payment"`
	}
	path := fmt.Sprintf("/c/api/instances/%s/payments/%s",
		url.PathEscape(auth.InstanceID), url.PathEscape(paymentID))
	if err := c.doJSON(ctx, auth, "get_payment", http.MethodGet, path, nil, &env); err != nil {
		return nil, err
	}
	return env.Payment, nil
}

func (c *Client) CreatePayment(ctx context.Context, auth Auth, req CreatePaymentRequest) (*Payment, error) {
	var env struct {
		Payment *Payment `json:"payment"`
	}
	path := fmt.Sprintf("/c/api/instances/%s/payments", url.PathEscape(auth.InstanceID))
	if err := c.doJSON(ctx, auth, "create_payment", http.MethodPost, path, req, &env); err != nil {
		return nil, err
	}
	return env.Payment, nil
}

func (c *Client) CreateCheckout(ctx context.Context, auth Auth, req CreateCheckoutRequest) (*Checkout, error) {
	var out Checkout
	path := fmt.Sprintf("/c/api/instances/%s/checkout", url.PathEscape(auth.InstanceID))
	if err := c.doJSON(ctx, auth, "create_checkout", http.MethodPost, path, req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) RefundPayment(ctx context.Context, auth Auth, paymentID, reason string) (*TransactionResult, error) {
	if reason == "" {
		reason = "Demo App"
	}
	var env struct {
		Refund *TransactionResult `json:"refund"`
	}
	path := fmt.Sprintf("/c/api/instances/%s/payments/%s/refund",
		url.PathEscape(auth.InstanceID), url.PathEscape(paymentID))
	body := map[string]any{"reason": reason}
	if err := c.doJSON(ctx, auth, "refund_payment", http.MethodPost, path, body, &env); err != nil {
		return nil, err
	}
	return env.Refund, nil
}

func (c *Client) CapturePayment(ctx context.Context, auth Auth, paymentID string) (*TransactionResult, error) {
	var env struct {
		Capture *TransactionResult `json:"capture"`
	}
	path := fmt.Sprintf("/c/api/instances/%s/payments/%s/capture",
		url.PathEscape(auth.InstanceID), url.PathEscape(paymentID))
	if err := c.doJSON(ctx, auth, "capture_payment", http.MethodPost, path, map[string]any{}, &env); err != nil {
		return nil, err
	}
	return env.Capture, nil
}

func (c *Client) VoidPayment(ctx context.Context, auth Auth, paymentID string) (*TransactionResult, error) {
	var env struct {
		Void *TransactionResult `json:"void"`
	}
	path := fmt.Sprintf("/c/api/instances/%s/payments/%s/void",
		url.PathEscape(auth.InstanceID), url.PathEscape(paymentID))
	if err := c.doJSON(ctx, auth, "void_payment", http.MethodPost, path, nil, &env); err != nil {
		return nil, err
	}
	return env.Void, nil
}

// cacheKey binds a cached lookup to the presented credential, so a request
// carrying a wrong secret can never be served a hit populated by a valid one
// and must reach the gateway, which rejects it with 401. Keys carry a digest,
// never the raw secret.
func cacheKey(kind string, auth Auth) string {
	sum := sha256.Sum256([]byte(auth.InstanceSecret))
	return kind + ":" + auth.InstanceID + ":" + hex.EncodeToString(sum[:8])
}

// cachedGet serves instance-scoped lookups through the optional cache.
func (c *Client) cachedGet(ctx context.Context, auth Auth, op, path, cacheKey string, out any) error {
	if raw, ok := c.lookups.Get(ctx, cacheKey); ok {
		if err := json.Unmarshal(raw, out); err == nil {
			return nil
		}
	}
	raw, err := c.do(ctx, auth, op, http.MethodGet, path, nil)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return fmt.Errorf("shuttle: decode %s: %w", op, err)
	}
	c.lookups.Set(ctx, cacheKey, raw)
	return nil
}

func (c *Client) doJSON(ctx context.Context, auth Auth, op, method, path string, body, out any) error {
	raw, err := c.do(ctx, auth, op, method, path, body)
	if err != nil {
		return err
	}
	if len(raw) == 0 {
		return nil
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return fmt.Errorf("shuttle: decode %s: %w", op, err)
	}
	return nil
}

// do issues one authenticated request and returns the raw body for statuses
// in 200-399, or an error otherwise.
func (c *Client) do(ctx context.Context, auth Auth, op, method, path string, body any) (json.RawMessage, error) {
	log := logger.From(ctx)
	u := c.host + path
	start := time.Now()

	var reqBody io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("shuttle: encode %s: %w", op, err)
		}
		reqBody = bytes.NewReader(b)
	}

	req, err := http.NewRequestWithContext(ctx, method, u, reqBody)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Bearer "+auth.InstanceSecret)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	log.Debug("fetch", "type", "fetch", "action", "start", "operation", op, "method", method, "url", u)

	resp, err := c.http.Do(req)
	dur := time.Since(start)
	if err != nil {
		metrics.ObserveGateway(op, "complete_error", dur)
		log.Error("fetch", "type", "fetch", "action", "complete_error", "operation", op, "url", u,
			"err", err, "duration_ms", dur.Milliseconds())
		return nil, fmt.Errorf("shuttle: %s: %w", op, err)
	}
	defer resp.Body.Close()

	raw, readErr := io.ReadAll(resp.Body)

	ok := resp.StatusCode >= 200 && resp.StatusCode < 400
	action := "complete"
	if !ok {
		action = "complete_error"
	}
	metrics.ObserveGateway(op, action, dur)

	attrs := []any{
		"type", "fetch", "action", action, "operation", op, "url", u,
		"status", resp.StatusCode,
		"body", logger.Truncate(string(raw), c.maxLogBody),
		"duration_ms", dur.Milliseconds(),
	}
	if ok {
		log.Debug("fetch", attrs...)
	} else {
		log.Error("fetch", attrs...)
	}

	if !ok {
		if resp.StatusCode == http.StatusUnauthorized {
			return nil, fmt.Errorf("%w: %s", ErrUnauthorized, op)
		}
		return nil, fmt.Errorf("shuttle: %s returned status %d", op, resp.StatusCode)
	}
	if readErr != nil {
		return nil, fmt.Errorf("shuttle: read %s: %w", op, readErr)
	}
	return raw, nil
}
