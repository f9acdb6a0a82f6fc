// Package auth verifies the HMAC-signed tokens issued by the ticketing app's
// login endpoint.
package auth

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	jwtlib "github.com/golang-jwt/jwt/v5"
	"github.com/mmuslimabdulj/talep-presence/internal/domain"
)

var (
	// ErrMissingToken is returned when a request carries no token at all
	ErrMissingToken = errors.New("token required")

	// ErrInvalidToken covers bad signatures, wrong algorithms, expiry and bad claims
	ErrInvalidToken = errors.New("invalid or expired token")
)

// Claims mirrors the payload signed at login
type Claims struct {
	ID        int64  `json:"id"`
	FirstName string `json:"ad"`
	LastName  string `json:"soyad"`
	Username  string `json:"username"`
	Role      string `json:"role"`
	jwtlib.RegisteredClaims
}

// Principal converts the claims into a domain principal
func (c *Claims) Principal() *domain.Principal {
	return &domain.Principal{
		ID:        c.ID,
		FirstName: c.FirstName,
		LastName:  c.LastName,
		Username:  c.Username,
		Role:      c.Role,
	}
}

// Verifier checks tokens against a shared HMAC secret
type Verifier struct {
	secret []byte
	parser *jwtlib.Parser
}

// NewVerifier creates a verifier for the given secret
func NewVerifier(secret string) *Verifier {
	return &Verifier{
		secret: []byte(secret),
		parser: jwtlib.NewParser(
			jwtlib.WithValidMethods([]string{"HS256", "HS384", "HS512"}),
			jwtlib.WithExpirationRequired(),
		),
	}
}

// Verify parses token and returns its principal
func (v *Verifier) Verify(token string) (*domain.Principal, error) {
	if token == "" {
		return nil, ErrMissingToken
	}

	claims := &Claims{}
	parsed, err := v.parser.ParseWithClaims(token, claims, func(t *jwtlib.Token) (interface{}, error) {
		// Only the HMAC family is accepted
		if _, ok := t.Method.(*jwtlib.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected alg: %v", t.Header["alg"])
		}
		return v.secret, nil
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	if !parsed.Valid {
		return nil, ErrInvalidToken
	}
	if claims.ID <= 0 {
		return nil, fmt.Errorf("%w: missing user id", ErrInvalidToken)
	}

	return claims.Principal(), nil
}

// Issuer signs tokens in the same shape as the ticketing app. Used for local
// development and tests.
type Issuer struct {
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

// NewIssuer creates an issuer; ttl <= 0 falls back to domain.DefaultTokenTTL
func NewIssuer(secret string, ttl time.Duration) *Issuer {
	if ttl <= 0 {
		ttl = domain.DefaultTokenTTL
	}
	return &Issuer{secret: []byte(secret), ttl: ttl, now: time.Now}
}

// Issue returns an HS256 token for p
func (i *Issuer) Issue(p domain.Principal) (string, error) {
	now := i.now()
	claims := Claims{
		ID:        p.ID,
		FirstName: p.FirstName,
		LastName:  p.LastName,
		Username:  p.Username,
		Role:      p.Role,
		RegisteredClaims: jwtlib.RegisteredClaims{
			IssuedAt:  jwtlib.NewNumericDate(now),
			ExpiresAt: jwtlib.NewNumericDate(now.Add(i.ttl)),
		},
	}

	signed, err := jwtlib.NewWithClaims(jwtlib.SigningMethodHS256, claims).SignedString(i.secret)
	if err != nil {
		return "", fmt.Errorf("sign token: %w", err)
	}
	return signed, nil
}

// TokenFromRequest extracts a token from the "token" query parameter (browser
// websocket handshakes cannot set headers) or an Authorization bearer header.
func TokenFromRequest(r *http.Request) string {
	if token := strings.TrimSpace(r.URL.Query().Get("token")); token != "" {
		return token
	}
	return BearerToken(r)
}

// BearerToken extracts the token from "Authorization: Bearer <token>"
func BearerToken(r *http.Request) string {
	header := strings.TrimSpace(r.Header.Get("Authorization"))
	if !strings.HasPrefix(header, "Bearer ") {
		return ""
	}
	return strings.TrimSpace(strings.TrimPrefix(header, "Bearer "))
}
