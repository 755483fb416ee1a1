package jwt

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// Class selects the signing secret and lifetime for a token. The four values
// form a closed set; anything else is rejected at construction time.
type Class uint8

const (
	// ClassAccess is the short-lived request credential.
	ClassAccess Class = iota
	// ClassRefresh is the long-lived rotation credential.
	ClassRefresh
	// ClassVerification is the one-time email verification credential.
	ClassVerification
	// ClassPasswordReset is the one-time password reset credential.
	ClassPasswordReset

	classCount
)

func (c Class) String() string {
	switch c {
	case ClassAccess:
		return "access"
	case ClassRefresh:
		return "refresh"
	case ClassVerification:
		return "verification"
	case ClassPasswordReset:
		return "password_reset"
	default:
		return "unknown"
	}
}

// Valid reports whether c is one of the four defined classes.
func (c Class) Valid() bool {
	return c < classCount
}

// Verification failure modes. Callers must branch with errors.Is; the
// concrete messages are not part of the contract.
var (
	// ErrExpired marks a token that is structurally sound but past its
	// expiry (beyond leeway). Claims are returned alongside this error.
	ErrExpired = errors.New("token expired")
	// ErrMalformed marks a token whose structure or signature is invalid.
	ErrMalformed = errors.New("token malformed")
	// ErrWrongSecretOrIssuer marks a token signed by a different authority
	// or carrying a foreign issuer.
	ErrWrongSecretOrIssuer = errors.New("token signed by unknown authority")
	// ErrAudienceMismatch marks a valid token presented to the wrong
	// client surface.
	ErrAudienceMismatch = errors.New("token audience mismatch")
)

const (
	// MinSecretLen is the minimum accepted secret length per class.
	// Anything shorter is a configuration error, not a runtime one.
	MinSecretLen = 32

	defaultLeeway = 30 * time.Second
	maxLeeway     = 2 * time.Minute
)

// Claims is the signed payload. Wire keys follow the platform's original
// camelCase field names; the registered claims map onto iss/aud/iat/exp/jti.
type Claims struct {
	UserID      string   `json:"userId"`
	Email       string   `json:"email,omitempty"`
	Role        string   `json:"role,omitempty"`
	Permissions []string `json:"permissions,omitempty"`
	SessionID   string   `json:"sessionId"`
	TokenType   string   `json:"tokenType"`
	DeviceID    string   `json:"deviceId,omitempty"`
	IPAddress   string   `json:"ipAddress,omitempty"`
	jwt.RegisteredClaims
}

// TokenID returns the jti revocation key.
func (c *Claims) TokenID() string {
	return c.ID
}

// Config carries the per-class signing material. Instances are configured
// during initialization and treated as immutable afterwards.
type Config struct {
	Secrets map[Class][]byte
	TTLs    map[Class]time.Duration
	Issuer  string
	Leeway  time.Duration
}

// Manager signs and verifies tokens for all four classes. It is stateless
// and safe for concurrent use.
type Manager struct {
	config Config
}

// NewManager validates cfg and returns a codec. Every class needs a secret
// of at least MinSecretLen bytes and a positive TTL; secrets may be shared
// between classes only by explicit caller choice, never by fallback.
func NewManager(cfg Config) (*Manager, error) {
	if cfg.Issuer == "" {
		return nil, errors.New("issuer is required")
	}
	if cfg.Leeway == 0 {
		cfg.Leeway = defaultLeeway
	}
	if cfg.Leeway < 0 || cfg.Leeway > maxLeeway {
		return nil, errors.New("invalid leeway configuration")
	}
	for c := Class(0); c < classCount; c++ {
		secret, ok := cfg.Secrets[c]
		if !ok || len(secret) == 0 {
			return nil, fmt.Errorf("missing %s secret", c)
		}
		if len(secret) < MinSecretLen {
			return nil, fmt.Errorf("%s secret shorter than %d bytes", c, MinSecretLen)
		}
		if ttl := cfg.TTLs[c]; ttl <= 0 {
			return nil, fmt.Errorf("invalid %s TTL configuration", c)
		}
	}

	secrets := make(map[Class][]byte, classCount)
	for c, s := range cfg.Secrets {
		secrets[c] = append([]byte(nil), s...)
	}
	cfg.Secrets = secrets

	ttls := make(map[Class]time.Duration, classCount)
	for c, ttl := range cfg.TTLs {
		ttls[c] = ttl
	}
	cfg.TTLs = ttls

	return &Manager{config: cfg}, nil
}

// TTL returns the configured lifetime for a class.
func (m *Manager) TTL(class Class) time.Duration {
	return m.config.TTLs[class]
}

// Sign produces a compact signed token of the given class for the audience
// string aud. The returned claims are the fully populated payload that went
// into the token, including the generated jti and expiry.
func (m *Manager) Sign(base Claims, class Class, aud string) (string, *Claims, error) {
	if !class.Valid() {
		return "", nil, fmt.Errorf("invalid token class %d", class)
	}

	now := time.Now()
	claims := base
	claims.TokenType = class.String()
	claims.RegisteredClaims = jwt.RegisteredClaims{
		Issuer:    m.config.Issuer,
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(m.config.TTLs[class])),
		ID:        uuid.NewString(),
	}
	if aud != "" {
		claims.Audience = jwt.ClaimStrings{aud}
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, &claims)
	signed, err := token.SignedString(m.config.Secrets[class])
	if err != nil {
		return "", nil, err
	}

	return signed, &claims, nil
}

// Verify checks the signature, issuer, expiry (with leeway) and, when
// expectedAudience is non-empty, the audience of tokenStr against the given
// class. On ErrExpired the structurally valid claims are returned together
// with the error; every other failure returns nil claims.
func (m *Manager) Verify(tokenStr string, class Class, expectedAudience string) (*Claims, error) {
	if !class.Valid() {
		return nil, ErrMalformed
	}

	options := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithLeeway(m.config.Leeway),
		jwt.WithIssuer(m.config.Issuer),
		jwt.WithIssuedAt(),
	}
	if expectedAudience != "" {
		options = append(options, jwt.WithAudience(expectedAudience))
	}

	parser := jwt.NewParser(options...)
	token, err := parser.ParseWithClaims(tokenStr, &Claims{}, func(t *jwt.Token) (interface{}, error) {
		return m.config.Secrets[class], nil
	})
	if err != nil {
		switch {
		case errors.Is(err, jwt.ErrTokenExpired):
			if token != nil {
				if claims, ok := token.Claims.(*Claims); ok {
					return claims, ErrExpired
				}
			}
			return nil, ErrExpired
		case errors.Is(err, jwt.ErrTokenSignatureInvalid),
			errors.Is(err, jwt.ErrTokenInvalidIssuer):
			return nil, ErrWrongSecretOrIssuer
		case errors.Is(err, jwt.ErrTokenInvalidAudience):
			return nil, ErrAudienceMismatch
		default:
			return nil, ErrMalformed
		}
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return nil, ErrMalformed
	}

	return claims, nil
}

// Peek decodes tokenStr without verifying the signature and returns its
// claims. It exists solely so the revocation registry can be consulted
// before the (more expensive) cryptographic verification; nothing returned
// by Peek may be trusted for authorization.
func (m *Manager) Peek(tokenStr string) (*Claims, bool) {
	claims := &Claims{}
	_, _, err := jwt.NewParser().ParseUnverified(tokenStr, claims)
	if err != nil || claims.ID == "" {
		return nil, false
	}
	return claims, true
}
