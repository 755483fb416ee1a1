package jwt

import (
	"errors"
	"testing"
	"time"

	gjwt "github.com/golang-jwt/jwt/v5"
)

func secretFor(b byte) []byte {
	out := make([]byte, MinSecretLen)
	for i := range out {
		out[i] = b
	}
	return out
}

func newTestManager(t *testing.T, accessTTL time.Duration) *Manager {
	t.Helper()

	m, err := NewManager(Config{
		Secrets: map[Class][]byte{
			ClassAccess:        secretFor('a'),
			ClassRefresh:       secretFor('r'),
			ClassVerification:  secretFor('v'),
			ClassPasswordReset: secretFor('p'),
		},
		TTLs: map[Class]time.Duration{
			ClassAccess:        accessTTL,
			ClassRefresh:       time.Hour,
			ClassVerification:  time.Hour,
			ClassPasswordReset: time.Hour,
		},
		Issuer: "ultramarket-test",
	})
	if err != nil {
		t.Fatalf("new manager: %v", err)
	}
	return m
}

func TestSignVerifyRoundTrip(t *testing.T) {
	m := newTestManager(t, time.Minute)

	base := Claims{
		UserID:      "u1",
		Email:       "u1@example.com",
		Role:        "customer",
		Permissions: []string{"orders.read"},
		SessionID:   "s1",
		IPAddress:   "10.0.0.1",
	}
	token, signed, err := m.Sign(base, ClassAccess, "web-aud")
	if err != nil {
		t.Fatalf("sign: %v", err)
	}
	if signed.TokenID() == "" {
		t.Fatal("expected a generated token id")
	}

	claims, err := m.Verify(token, ClassAccess, "web-aud")
	if err != nil {
		t.Fatalf("verify: %v", err)
	}
	if claims.UserID != "u1" || claims.Email != "u1@example.com" || claims.SessionID != "s1" {
		t.Fatalf("claims did not round-trip: %+v", claims)
	}
	if claims.TokenType != "access" {
		t.Fatalf("expected access token type, got %q", claims.TokenType)
	}
	if claims.TokenID() != signed.TokenID() {
		t.Fatalf("token id mismatch: %q vs %q", claims.TokenID(), signed.TokenID())
	}
}

func TestClassSeparation(t *testing.T) {
	m := newTestManager(t, time.Minute)

	refreshToken, _, err := m.Sign(Claims{UserID: "u1", SessionID: "s1"}, ClassRefresh, "")
	if err != nil {
		t.Fatalf("sign refresh: %v", err)
	}

	// A refresh token must not verify against the access class even though
	// the signature itself is sound.
	if _, err := m.Verify(refreshToken, ClassAccess, ""); !errors.Is(err, ErrWrongSecretOrIssuer) {
		t.Fatalf("expected ErrWrongSecretOrIssuer, got %v", err)
	}

	accessToken, _, err := m.Sign(Claims{UserID: "u1", SessionID: "s1"}, ClassAccess, "")
	if err != nil {
		t.Fatalf("sign access: %v", err)
	}
	if _, err := m.Verify(accessToken, ClassRefresh, ""); !errors.Is(err, ErrWrongSecretOrIssuer) {
		t.Fatalf("expected ErrWrongSecretOrIssuer, got %v", err)
	}
}

func TestVerifyExpiredReturnsClaims(t *testing.T) {
	m, err := NewManager(Config{
		Secrets: map[Class][]byte{
			ClassAccess:        secretFor('a'),
			ClassRefresh:       secretFor('r'),
			ClassVerification:  secretFor('v'),
			ClassPasswordReset: secretFor('p'),
		},
		TTLs: map[Class]time.Duration{
			ClassAccess:        time.Millisecond,
			ClassRefresh:       time.Hour,
			ClassVerification:  time.Hour,
			ClassPasswordReset: time.Hour,
		},
		Issuer: "ultramarket-test",
		Leeway: time.Nanosecond,
	})
	if err != nil {
		t.Fatalf("new manager: %v", err)
	}

	token, _, err := m.Sign(Claims{UserID: "u1", SessionID: "s1"}, ClassAccess, "")
	if err != nil {
		t.Fatalf("sign: %v", err)
	}

	time.Sleep(5 * time.Millisecond)

	claims, err := m.Verify(token, ClassAccess, "")
	if !errors.Is(err, ErrExpired) {
		t.Fatalf("expected ErrExpired, got %v", err)
	}
	if claims == nil || claims.UserID != "u1" {
		t.Fatalf("expected structurally valid claims alongside ErrExpired, got %+v", claims)
	}
}

func TestVerifyMalformed(t *testing.T) {
	m := newTestManager(t, time.Minute)

	for _, tokenStr := range []string{
		"",
		"not-a-token",
		"aaaa.bbbb.cccc",
	} {
		if _, err := m.Verify(tokenStr, ClassAccess, ""); !errors.Is(err, ErrMalformed) {
			t.Fatalf("token %q: expected ErrMalformed, got %v", tokenStr, err)
		}
	}
}

func TestVerifyTamperedSignature(t *testing.T) {
	m := newTestManager(t, time.Minute)

	token, _, err := m.Sign(Claims{UserID: "u1", SessionID: "s1"}, ClassAccess, "")
	if err != nil {
		t.Fatalf("sign: %v", err)
	}

	tampered := token[:len(token)-2] + "xx"
	if _, err := m.Verify(tampered, ClassAccess, ""); err == nil {
		t.Fatal("expected tampered token to be rejected")
	}
}

func TestVerifyAudienceMismatch(t *testing.T) {
	m := newTestManager(t, time.Minute)

	token, _, err := m.Sign(Claims{UserID: "u1", SessionID: "s1"}, ClassAccess, "web-aud")
	if err != nil {
		t.Fatalf("sign: %v", err)
	}

	if _, err := m.Verify(token, ClassAccess, "mobile-aud"); !errors.Is(err, ErrAudienceMismatch) {
		t.Fatalf("expected ErrAudienceMismatch, got %v", err)
	}

	// Empty expected audience skips the check.
	if _, err := m.Verify(token, ClassAccess, ""); err != nil {
		t.Fatalf("expected audience check to be skipped: %v", err)
	}
}

func TestVerifyForeignIssuer(t *testing.T) {
	m := newTestManager(t, time.Minute)

	foreign := gjwt.NewWithClaims(gjwt.SigningMethodHS256, &Claims{
		UserID: "u1",
		RegisteredClaims: gjwt.RegisteredClaims{
			Issuer:    "someone-else",
			ExpiresAt: gjwt.NewNumericDate(time.Now().Add(time.Minute)),
			ID:        "jti-1",
		},
	})
	token, err := foreign.SignedString(secretFor('a'))
	if err != nil {
		t.Fatalf("sign foreign: %v", err)
	}

	if _, err := m.Verify(token, ClassAccess, ""); !errors.Is(err, ErrWrongSecretOrIssuer) {
		t.Fatalf("expected ErrWrongSecretOrIssuer, got %v", err)
	}
}

func TestPeek(t *testing.T) {
	m := newTestManager(t, time.Minute)

	token, signed, err := m.Sign(Claims{UserID: "u1", SessionID: "s1"}, ClassAccess, "")
	if err != nil {
		t.Fatalf("sign: %v", err)
	}

	peeked, ok := m.Peek(token)
	if !ok {
		t.Fatal("expected peek to succeed")
	}
	if peeked.TokenID() != signed.TokenID() {
		t.Fatalf("peeked token id mismatch: %q vs %q", peeked.TokenID(), signed.TokenID())
	}

	if _, ok := m.Peek("garbage"); ok {
		t.Fatal("expected peek to fail on garbage")
	}
}

func TestNewManagerRejectsWeakConfig(t *testing.T) {
	base := func() Config {
		return Config{
			Secrets: map[Class][]byte{
				ClassAccess:        secretFor('a'),
				ClassRefresh:       secretFor('r'),
				ClassVerification:  secretFor('v'),
				ClassPasswordReset: secretFor('p'),
			},
			TTLs: map[Class]time.Duration{
				ClassAccess:        time.Minute,
				ClassRefresh:       time.Hour,
				ClassVerification:  time.Hour,
				ClassPasswordReset: time.Hour,
			},
			Issuer: "ultramarket-test",
		}
	}

	cfg := base()
	cfg.Secrets[ClassRefresh] = []byte("short")
	if _, err := NewManager(cfg); err == nil {
		t.Fatal("expected short secret to be rejected")
	}

	cfg = base()
	delete(cfg.Secrets, ClassPasswordReset)
	if _, err := NewManager(cfg); err == nil {
		t.Fatal("expected missing secret to be rejected")
	}

	cfg = base()
	cfg.TTLs[ClassAccess] = 0
	if _, err := NewManager(cfg); err == nil {
		t.Fatal("expected zero TTL to be rejected")
	}

	cfg = base()
	cfg.Issuer = ""
	if _, err := NewManager(cfg); err == nil {
		t.Fatal("expected missing issuer to be rejected")
	}
}
