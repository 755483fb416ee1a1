package authcore

import (
	"fmt"
	"regexp"
	"strconv"
	"time"

	"github.com/caarlos0/env/v11"
)

// envConfig is the flat environment surface. Secrets are required; every
// other key falls back to the engine defaults.
type envConfig struct {
	AccessSecret       string `env:"ACCESS_SECRET,required"`
	RefreshSecret      string `env:"REFRESH_SECRET,required"`
	VerificationSecret string `env:"VERIFICATION_SECRET,required"`
	ResetSecret        string `env:"RESET_SECRET,required"`

	AccessExpiry       string `env:"ACCESS_EXPIRY" envDefault:"15m"`
	RefreshExpiry      string `env:"REFRESH_EXPIRY" envDefault:"30d"`
	VerificationExpiry string `env:"VERIFICATION_EXPIRY" envDefault:"24h"`
	ResetExpiry        string `env:"RESET_EXPIRY" envDefault:"15m"`

	Issuer string `env:"ISSUER" envDefault:"ultramarket"`

	WebAudience    string `env:"WEB_AUDIENCE" envDefault:"ultramarket-web"`
	MobileAudience string `env:"MOBILE_AUDIENCE" envDefault:"ultramarket-mobile"`
	AdminAudience  string `env:"ADMIN_AUDIENCE" envDefault:"ultramarket-admin"`

	EnableBlacklisting    bool `env:"ENABLE_BLACKLISTING" envDefault:"true"`
	EnableIPValidation    bool `env:"ENABLE_IP_VALIDATION" envDefault:"true"`
	EnableRotation        bool `env:"ENABLE_ROTATION" envDefault:"true"`
	MaxConcurrentSessions int  `env:"MAX_CONCURRENT_SESSIONS" envDefault:"5"`
}

// expiryPattern is the accepted duration format: a positive integer with a
// single unit suffix. "d" is accepted on top of the standard units because
// refresh lifetimes are conventionally written as "30d".
var expiryPattern = regexp.MustCompile(`^(\d+)([smhd])$`)

func parseExpiry(key, value string) (time.Duration, error) {
	m := expiryPattern.FindStringSubmatch(value)
	if m == nil {
		return 0, fmt.Errorf("%s: invalid duration %q, want digits followed by s, m, h, or d", key, value)
	}

	n, err := strconv.ParseInt(m[1], 10, 64)
	if err != nil || n <= 0 {
		return 0, fmt.Errorf("%s: invalid duration %q", key, value)
	}

	var unit time.Duration
	switch m[2] {
	case "s":
		unit = time.Second
	case "m":
		unit = time.Minute
	case "h":
		unit = time.Hour
	case "d":
		unit = 24 * time.Hour
	}

	return time.Duration(n) * unit, nil
}

// ConfigFromEnv loads [Config] from the process environment on top of the
// defaults. It only parses; [Config.Validate] still runs inside
// [Builder.Build], so a missing or weak secret stays a fatal startup error.
func ConfigFromEnv() (Config, error) {
	var raw envConfig
	if err := env.Parse(&raw); err != nil {
		return Config{}, err
	}

	cfg := defaultConfig()
	cfg.Token.AccessSecret = []byte(raw.AccessSecret)
	cfg.Token.RefreshSecret = []byte(raw.RefreshSecret)
	cfg.Token.VerificationSecret = []byte(raw.VerificationSecret)
	cfg.Token.ResetSecret = []byte(raw.ResetSecret)
	cfg.Token.Issuer = raw.Issuer

	for _, expiry := range []struct {
		key    string
		value  string
		target *time.Duration
	}{
		{"ACCESS_EXPIRY", raw.AccessExpiry, &cfg.Token.AccessTTL},
		{"REFRESH_EXPIRY", raw.RefreshExpiry, &cfg.Token.RefreshTTL},
		{"VERIFICATION_EXPIRY", raw.VerificationExpiry, &cfg.Token.VerificationTTL},
		{"RESET_EXPIRY", raw.ResetExpiry, &cfg.Token.ResetTTL},
	} {
		d, err := parseExpiry(expiry.key, expiry.value)
		if err != nil {
			return Config{}, err
		}
		*expiry.target = d
	}

	cfg.Audience.Web = raw.WebAudience
	cfg.Audience.Mobile = raw.MobileAudience
	cfg.Audience.Admin = raw.AdminAudience

	cfg.Security.EnableBlacklisting = raw.EnableBlacklisting
	cfg.Security.EnableIPValidation = raw.EnableIPValidation
	cfg.Security.EnforceRotation = raw.EnableRotation
	cfg.Session.MaxConcurrentSessions = raw.MaxConcurrentSessions

	return cfg, nil
}
