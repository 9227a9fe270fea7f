package linkpage

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Tokens signs and verifies the expiring tokens attached to self-hosted
// payment links. A token binds one checkout nonce to one instance, so a
// texted link cannot be replayed against another tenant or kept forever.
type Tokens struct {
	secret []byte
	ttl    time.Duration
	clock  func() time.Time
}

const tokenIssuer = "twilio-demo-app"

func NewTokens(secret string, ttl time.Duration) *Tokens {
	var key []byte
	if secret != "" {
		key = []byte(secret)
	}
	return &Tokens{secret: key, ttl: ttl, clock: time.Now}
}

// Enabled reports whether link tokens are configured at all.
func (t *Tokens) Enabled() bool {
	return t != nil && len(t.secret) > 0
}

var ErrLinkTokenInvalid = errors.New("linkpage: invalid link token")

func (t *Tokens) Sign(instanceID, nonce string) (string, error) {
	if !t.Enabled() {
		return "", ErrLinkTokenInvalid
	}
	now := t.clock()
	claims := jwt.RegisteredClaims{
		Issuer:    tokenIssuer,
		Subject:   nonce,
		Audience:  jwt.ClaimStrings{instanceID},
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(t.ttl)),
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(t.secret)
}

// Verify checks the token's signature, expiry, and binding to the given
// instance and nonce.
func (t *Tokens) Verify(token, instanceID, nonce string) error {
	if !t.Enabled() {
		return ErrLinkTokenInvalid
	}
	parsed, err := jwt.Parse(token,
		func(*jwt.Token) (any, error) { return t.secret, nil },
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(tokenIssuer),
		jwt.WithSubject(nonce),
		jwt.WithAudience(instanceID),
		jwt.WithTimeFunc(t.clock),
	)
	if err != nil || !parsed.Valid {
		return ErrLinkTokenInvalid
	}
	return nil
}
