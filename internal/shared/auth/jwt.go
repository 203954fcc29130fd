package auth

import (
	"crypto/rsa"
	"errors"
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

var (
	ErrMissingToken = errors.New("missing token")
	ErrInvalidToken = errors.New("invalid token")
	// ErrForbiddenDashboard means the token is valid but not scoped to the dashboard.
	ErrForbiddenDashboard = errors.New("dashboard not allowed for token")
)

// Claims carries the receiver identity. An empty Dashboards list grants every
// dashboard; otherwise ids are compared case-insensitively and "*" matches all.
type Claims struct {
	Dashboards []string `json:"dashboards,omitempty"`
	jwt.RegisteredClaims
}

// Allows reports whether the claims grant access to dashboardID.
func (c *Claims) Allows(dashboardID string) bool {
	if c == nil {
		return false
	}
	if len(c.Dashboards) == 0 {
		return true
	}
	dashboardID = strings.ToLower(strings.TrimSpace(dashboardID))
	return slices.ContainsFunc(c.Dashboards, func(d string) bool {
		d = strings.ToLower(strings.TrimSpace(d))
		return d == "*" || d == dashboardID
	})
}

type TokenValidator interface {
	Validate(token string) (*Claims, error)
}

// JWTValidator verifies RS256 tokens when a public key is configured and HS256
// tokens otherwise.
type JWTValidator struct {
	secret    []byte
	publicKey *rsa.PublicKey
	now       func() time.Time
}

func NewJWTValidator(secret, publicKeyPEM string) (*JWTValidator, error) {
	v := &JWTValidator{secret: []byte(strings.TrimSpace(secret)), now: time.Now}
	if strings.TrimSpace(publicKeyPEM) != "" {
		key, err := jwt.ParseRSAPublicKeyFromPEM([]byte(publicKeyPEM))
		if err != nil {
			return nil, fmt.Errorf("parse jwt public key: %w", err)
		}
		v.publicKey = key
	}
	if v.publicKey == nil && len(v.secret) == 0 {
		return nil, errors.New("jwt validator needs a secret or a public key")
	}
	return v, nil
}

func (v *JWTValidator) keyFunc(t *jwt.Token) (any, error) {
	if v.publicKey != nil {
		if _, ok := t.Method.(*jwt.SigningMethodRSA); !ok {
			return nil, fmt.Errorf("unexpected signing method %v, expected RS256", t.Header["alg"])
		}
		return v.publicKey, nil
	}
	if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
		return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
	}
	return v.secret, nil
}

func (v *JWTValidator) Validate(token string) (*Claims, error) {
	if strings.TrimSpace(token) == "" {
		return nil, ErrMissingToken
	}

	claims := &Claims{}
	parsed, err := jwt.ParseWithClaims(token, claims, v.keyFunc,
		jwt.WithLeeway(5*time.Second),
		jwt.WithTimeFunc(v.now),
		jwt.WithExpirationRequired(),
	)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	if !parsed.Valid {
		return nil, ErrInvalidToken
	}
	if strings.TrimSpace(claims.Subject) == "" {
		return nil, fmt.Errorf("%w: missing subject", ErrInvalidToken)
	}
	return claims, nil
}

// Authorize validates token and checks that it grants dashboardID.
func Authorize(v TokenValidator, token, dashboardID string) (*Claims, error) {
	claims, err := v.Validate(token)
	if err != nil {
		return nil, err
	}
	if !claims.Allows(dashboardID) {
		return nil, fmt.Errorf("%w: %s", ErrForbiddenDashboard, dashboardID)
	}
	return claims, nil
}
