// Package linkpage serves the static payment-link landing page: an HTML
// shell embedding the gateway's hosted checkout widget, keyed by the public
// shared key for the instance's environment.
package linkpage

import (
	"fmt"
	"html"
	"net/http"
	"net/url"
)

const defaultCheckoutHost = "https://app.shuttleglobal.com"

// Links builds the URLs texted to callers. When a public base URL and token
// secret are configured the link points at this app's landing page with a
// signed expiring token; otherwise it falls back to the gateway-hosted page.
type Links struct {
	GatewayHost   string
	PublicBaseURL string
	Tokens        *Tokens
}

func (l *Links) PaymentLinkURL(instanceID, nonce string) (string, error) {
	if l.PublicBaseURL == "" || !l.Tokens.Enabled() {
		return l.GatewayHost + "/demo/link/" + url.PathEscape(nonce), nil
	}
	token, err := l.Tokens.Sign(instanceID, nonce)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%s/demo/link/%s/%s?t=%s",
		l.PublicBaseURL, url.PathEscape(instanceID), url.PathEscape(nonce), url.QueryEscape(token)), nil
}

// PageHandler renders the landing page for a checkout nonce.
type PageHandler struct {
	// CheckoutHost hosts the checkout widget script; defaults to the
	// gateway's app host when empty.
	CheckoutHost string

	// SharedKey selects the public widget key by instance id
	// (sandbox vs live prefix convention).
	SharedKey func(instanceID string) string

	// Tokens, when enabled, makes a valid link token mandatory.
	Tokens *Tokens
}

// Render returns the HTTP status and HTML body for the landing page.
func (h *PageHandler) Render(instanceID, nonce, token string) (int, string) {
	if h.Tokens.Enabled() {
		if err := h.Tokens.Verify(token, instanceID, nonce); err != nil {
			return http.StatusGone, expiredPage
		}
	}

	host := h.CheckoutHost
	if host == "" {
		host = defaultCheckoutHost
	}
	sharedKey := ""
	if h.SharedKey != nil {
		sharedKey = h.SharedKey(instanceID)
	}

	return http.StatusOK, fmt.Sprintf(checkoutPage,
		html.EscapeString(nonce), host, host, url.PathEscape(sharedKey), url.PathEscape(instanceID))
}

const checkoutPage = `<!DOCTYPE html>
<html class="h-full">
  <head>
    <meta charset="utf-8">
    <meta http-equiv="X-UA-Compatible" content="IE=edge">
    <title>Demo Payment</title>
    <meta name="viewport" content="width=device-width, initial-scale=1">
    <link rel="icon" href="/favicon.png">
  </head>
  <body>
    <div data-shuttle-checkout="%s" data-shuttle-disable-new-window="true" data-shuttle-host="%s"></div>
    <script src="%s/%s/%s/shuttle-1.3.X.js" type="text/javascript"></script>
  </body>
</html>`

const expiredPage = `<!DOCTYPE html>
<html>
  <head>
    <meta charset="utf-8">
    <title>Demo Payment</title>
  </head>
  <body>
    <p>This payment link has expired. Please call again to request a new one.</p>
  </body>
</html>`
