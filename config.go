package authcore

import (
	"bytes"
	"errors"
	"time"

	"github.com/mansur-7080/UltraMarket-sub008/jwt"
)

// Config defines the process-wide engine configuration. Instances are
// constructed once at startup, validated, and treated as immutable
// afterwards. A validation failure is fatal to startup, never a runtime
// condition.
type Config struct {
	Token      TokenConfig
	Audience   AudienceConfig
	Security   SecurityConfig
	Session    SessionConfig
	Revocation RevocationConfig
	Audit      AuditConfig
	Metrics    MetricsConfig
}

/*
====================================
TOKEN CONFIG
====================================
*/

// TokenConfig carries per-class signing secrets and lifetimes. Each class
// signs with its own secret; a refresh secret must never verify an access
// token and vice versa.
type TokenConfig struct {
	AccessSecret       []byte
	RefreshSecret      []byte
	VerificationSecret []byte
	ResetSecret        []byte

	AccessTTL       time.Duration
	RefreshTTL      time.Duration
	VerificationTTL time.Duration
	ResetTTL        time.Duration

	Issuer string
	Leeway time.Duration
}

/*
====================================
AUDIENCE CONFIG
====================================
*/

// AudienceConfig maps each client surface to the audience string stamped
// into (and expected from) its tokens.
type AudienceConfig struct {
	Web    string
	Mobile string
	Admin  string
}

// Lookup returns the expected-audience string for a client surface.
func (c AudienceConfig) Lookup(a Audience) (string, bool) {
	switch a {
	case AudienceWeb:
		return c.Web, true
	case AudienceMobile:
		return c.Mobile, true
	case AudienceAdmin:
		return c.Admin, true
	default:
		return "", false
	}
}

/*
====================================
SECURITY CONFIG
====================================
*/

// SecurityConfig holds the runtime security toggles.
type SecurityConfig struct {
	// EnableBlacklisting turns the revocation check on. When enabled and the
	// revocation backend is unreachable, validation fails closed.
	EnableBlacklisting bool
	// EnableIPValidation turns the soft IP-change warning on. An IP change
	// alone never fails a request.
	EnableIPValidation bool
	// EnforceRotation makes every refresh revoke the token it replaces.
	EnforceRotation bool
	// RefreshThreshold is the remaining-lifetime floor under which
	// validation advises the caller to rotate.
	RefreshThreshold time.Duration
}

/*
====================================
SESSION CONFIG
====================================
*/

// SessionConfig controls the session tracker.
type SessionConfig struct {
	RedisPrefix string
	// MaxConcurrentSessions caps active sessions per user. Exceeding it
	// evicts the oldest session and revokes its refresh token. Zero
	// disables the cap.
	MaxConcurrentSessions int
}

/*
====================================
REVOCATION CONFIG
====================================
*/

// RevocationConfig controls the revocation registry.
type RevocationConfig struct {
	RedisPrefix   string
	SweepInterval time.Duration
}

// AuditConfig controls the asynchronous audit dispatcher.
type AuditConfig struct {
	Enabled    bool
	BufferSize int
	DropIfFull bool
}

// MetricsConfig controls the in-process metrics counters.
type MetricsConfig struct {
	Enabled                 bool
	EnableLatencyHistograms bool
}

/*
====================================
DEFAULT CONFIG
====================================
*/

func defaultConfig() Config {
	return Config{
		Token: TokenConfig{
			AccessTTL:       15 * time.Minute,
			RefreshTTL:      30 * 24 * time.Hour,
			VerificationTTL: 24 * time.Hour,
			ResetTTL:        15 * time.Minute,
			Leeway:          30 * time.Second,
		},
		Audience: AudienceConfig{
			Web:    "ultramarket-web",
			Mobile: "ultramarket-mobile",
			Admin:  "ultramarket-admin",
		},
		Security: SecurityConfig{
			EnableBlacklisting: true,
			EnableIPValidation: true,
			EnforceRotation:    true,
			RefreshThreshold:   5 * time.Minute,
		},
		Session: SessionConfig{
			RedisPrefix:           "usess",
			MaxConcurrentSessions: 5,
		},
		Revocation: RevocationConfig{
			RedisPrefix:   "rvk",
			SweepInterval: time.Hour,
		},
		Audit: AuditConfig{
			Enabled:    false,
			BufferSize: 1024,
			DropIfFull: true,
		},
		Metrics: MetricsConfig{
			Enabled:                 false,
			EnableLatencyHistograms: false,
		},
	}
}

func cloneConfig(cfg Config) Config {
	out := cfg
	out.Token.AccessSecret = cloneBytes(cfg.Token.AccessSecret)
	out.Token.RefreshSecret = cloneBytes(cfg.Token.RefreshSecret)
	out.Token.VerificationSecret = cloneBytes(cfg.Token.VerificationSecret)
	out.Token.ResetSecret = cloneBytes(cfg.Token.ResetSecret)
	return out
}

func cloneBytes(b []byte) []byte {
	if len(b) == 0 {
		return nil
	}
	out := make([]byte, len(b))
	copy(out, b)
	return out
}

/*
====================================
VALIDATION
====================================
*/

// Validate checks the configuration invariants the engine depends on. It is
// called by [Builder.Build]; a non-nil error must abort process startup.
func (c *Config) Validate() error {
	// Token secrets
	if len(c.Token.AccessSecret) < jwt.MinSecretLen {
		return errors.New("Token AccessSecret must be at least 32 bytes")
	}
	if len(c.Token.RefreshSecret) < jwt.MinSecretLen {
		return errors.New("Token RefreshSecret must be at least 32 bytes")
	}
	if len(c.Token.VerificationSecret) < jwt.MinSecretLen {
		return errors.New("Token VerificationSecret must be at least 32 bytes")
	}
	if len(c.Token.ResetSecret) < jwt.MinSecretLen {
		return errors.New("Token ResetSecret must be at least 32 bytes")
	}
	if bytes.Equal(c.Token.AccessSecret, c.Token.RefreshSecret) {
		return errors.New("Token AccessSecret and RefreshSecret must differ")
	}

	// Token lifetimes
	if c.Token.AccessTTL <= 0 {
		return errors.New("Token AccessTTL must be > 0")
	}
	if c.Token.RefreshTTL <= 0 {
		return errors.New("Token RefreshTTL must be > 0")
	}
	if c.Token.RefreshTTL < c.Token.AccessTTL {
		return errors.New("Token RefreshTTL must be >= AccessTTL")
	}
	if c.Token.VerificationTTL <= 0 {
		return errors.New("Token VerificationTTL must be > 0")
	}
	if c.Token.ResetTTL <= 0 {
		return errors.New("Token ResetTTL must be > 0")
	}

	if c.Token.Issuer == "" {
		return errors.New("Token Issuer is required")
	}
	if c.Token.Leeway < 0 {
		return errors.New("Token Leeway must be >= 0")
	}

	// Audiences
	if c.Audience.Web == "" || c.Audience.Mobile == "" || c.Audience.Admin == "" {
		return errors.New("Audience strings must all be set")
	}

	// Security
	if c.Security.RefreshThreshold < 0 {
		return errors.New("Security RefreshThreshold must be >= 0")
	}
	if c.Security.RefreshThreshold >= c.Token.RefreshTTL {
		return errors.New("Security RefreshThreshold must be < RefreshTTL")
	}

	// Session
	if c.Session.MaxConcurrentSessions < 0 {
		return errors.New("Session MaxConcurrentSessions must be >= 0")
	}

	// Revocation
	if c.Revocation.SweepInterval <= 0 {
		return errors.New("Revocation SweepInterval must be > 0")
	}

	// Audit
	if c.Audit.Enabled && c.Audit.BufferSize <= 0 {
		return errors.New("Audit BufferSize must be > 0 when Audit is enabled")
	}

	return nil
}
