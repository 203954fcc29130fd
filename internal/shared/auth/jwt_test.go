package auth

import (
	"crypto/rand"
	"crypto/rsa"
	"crypto/x509"
	"encoding/pem"
	"errors"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

func sign(t *testing.T, method jwt.SigningMethod, key any, claims Claims) string {
	t.Helper()
	token, err := jwt.NewWithClaims(method, claims).SignedString(key)
	if err != nil {
		t.Fatalf("sign: %v", err)
	}
	return token
}

func claimsFor(subject string, exp time.Time, dashboards ...string) Claims {
	return Claims{
		Dashboards: dashboards,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   subject,
			ExpiresAt: jwt.NewNumericDate(exp),
		},
	}
}

func TestJWTValidatorHMAC(t *testing.T) {
	v, err := NewJWTValidator("secret", "")
	if err != nil {
		t.Fatalf("NewJWTValidator: %v", err)
	}
	exp := time.Now().Add(time.Hour)

	claims, err := v.Validate(sign(t, jwt.SigningMethodHS256, []byte("secret"), claimsFor("op-1", exp, "plant")))
	if err != nil {
		t.Fatalf("Validate: %v", err)
	}
	if claims.Subject != "op-1" || !claims.Allows("Plant") || claims.Allows("ops") {
		t.Fatalf("unexpected claims %+v", claims)
	}

	cases := map[string]string{
		"empty":        "",
		"wrong secret": sign(t, jwt.SigningMethodHS256, []byte("other"), claimsFor("op-1", exp)),
		"expired":      sign(t, jwt.SigningMethodHS256, []byte("secret"), claimsFor("op-1", time.Now().Add(-time.Hour))),
		"no subject":   sign(t, jwt.SigningMethodHS256, []byte("secret"), claimsFor("", exp)),
		"garbage":      "not-a-jwt",
	}
	for name, token := range cases {
		if _, err := v.Validate(token); err == nil {
			t.Errorf("%s: expected error", name)
		} else if name != "empty" && !errors.Is(err, ErrInvalidToken) {
			t.Errorf("%s: expected ErrInvalidToken, got %v", name, err)
		}
	}
}

func TestJWTValidatorRSA(t *testing.T) {
	key, err := rsa.GenerateKey(rand.Reader, 2048)
	if err != nil {
		t.Fatal(err)
	}
	der, err := x509.MarshalPKIXPublicKey(&key.PublicKey)
	if err != nil {
		t.Fatal(err)
	}
	pub := string(pem.EncodeToMemory(&pem.Block{Type: "PUBLIC KEY", Bytes: der}))

	v, err := NewJWTValidator("", pub)
	if err != nil {
		t.Fatalf("NewJWTValidator: %v", err)
	}
	exp := time.Now().Add(time.Hour)
	if _, err := v.Validate(sign(t, jwt.SigningMethodRS256, key, claimsFor("op-1", exp))); err != nil {
		t.Fatalf("Validate RS256: %v", err)
	}
	if _, err := v.Validate(sign(t, jwt.SigningMethodHS256, []byte("secret"), claimsFor("op-1", exp))); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("expected HS256 rejection, got %v", err)
	}

	if _, err := NewJWTValidator("", ""); err == nil {
		t.Fatal("expected error without keys")
	}
	if _, err := NewJWTValidator("", "not pem"); err == nil {
		t.Fatal("expected error for bad pem")
	}
}

func TestAuthorize(t *testing.T) {
	v, _ := NewJWTValidator("secret", "")
	exp := time.Now().Add(time.Hour)

	if _, err := Authorize(v, sign(t, jwt.SigningMethodHS256, []byte("secret"), claimsFor("op", exp, "ops")), "plant"); !errors.Is(err, ErrForbiddenDashboard) {
		t.Fatalf("expected ErrForbiddenDashboard, got %v", err)
	}
	if _, err := Authorize(v, sign(t, jwt.SigningMethodHS256, []byte("secret"), claimsFor("op", exp, "*")), "plant"); err != nil {
		t.Fatalf("wildcard: %v", err)
	}
	if _, err := Authorize(v, "", "plant"); !errors.Is(err, ErrMissingToken) {
		t.Fatalf("expected ErrMissingToken, got %v", err)
	}
}

func TestExtractToken(t *testing.T) {
	r := httptest.NewRequest("GET", "/ws/dashboards/plant?token=q", nil)
	if got := ExtractToken(r, ""); got != "q" {
		t.Fatalf("query token: got %q", got)
	}
	r.Header.Set("Authorization", "bearer h")
	if got := ExtractToken(r, ""); got != "h" {
		t.Fatalf("header token: got %q", got)
	}
	r.Header.Set("Authorization", "Basic abc")
	if got := ExtractBearerToken(r); got != "" {
		t.Fatalf("basic auth: got %q", got)
	}
	if got := ExtractToken(nil, "token"); got != "" {
		t.Fatalf("nil request: got %q", got)
	}
}
