package authcore

import (
	"errors"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/mansur-7080/UltraMarket-sub008/jwt"
	"github.com/mansur-7080/UltraMarket-sub008/revocation"
	"github.com/mansur-7080/UltraMarket-sub008/session"
)

// Builder assembles an [Engine] from configuration and optional backends.
// A builder is single-use: Build consumes it.
type Builder struct {
	config    Config
	redis     redis.UniversalClient
	auditSink AuditSink

	built bool
}

// New returns a builder seeded with the engine defaults.
func New() *Builder {
	return &Builder{
		config: defaultConfig(),
	}
}

// WithConfig replaces the builder's configuration wholesale.
func (b *Builder) WithConfig(cfg Config) *Builder {
	b.config = cloneConfig(cfg)
	return b
}

// WithRedis selects Redis-backed revocation and session storage. Without a
// client both fall back to the in-process stores, which is fine for tests
// and single-instance deployments but loses state on restart and is not
// shared across instances.
func (b *Builder) WithRedis(client redis.UniversalClient) *Builder {
	b.redis = client
	return b
}

// WithAuditSink sets the destination for audit events. It only takes effect
// when [AuditConfig.Enabled] is true.
func (b *Builder) WithAuditSink(sink AuditSink) *Builder {
	b.auditSink = sink
	return b
}

// WithMetricsEnabled toggles in-process metrics collection.
func (b *Builder) WithMetricsEnabled(enabled bool) *Builder {
	b.config.Metrics.Enabled = enabled
	return b
}

// WithLatencyHistograms toggles the validation latency histogram.
func (b *Builder) WithLatencyHistograms(enabled bool) *Builder {
	b.config.Metrics.EnableLatencyHistograms = enabled
	return b
}

// Build validates the configuration, constructs every subsystem, starts the
// background revocation sweeper, and returns the engine. A configuration
// error here must abort process startup.
func (b *Builder) Build() (*Engine, error) {
	if b.built {
		return nil, errors.New("builder already used")
	}

	cfg := cloneConfig(b.config)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	codec, err := jwt.NewManager(jwt.Config{
		Secrets: map[jwt.Class][]byte{
			jwt.ClassAccess:        cfg.Token.AccessSecret,
			jwt.ClassRefresh:       cfg.Token.RefreshSecret,
			jwt.ClassVerification:  cfg.Token.VerificationSecret,
			jwt.ClassPasswordReset: cfg.Token.ResetSecret,
		},
		TTLs: map[jwt.Class]time.Duration{
			jwt.ClassAccess:        cfg.Token.AccessTTL,
			jwt.ClassRefresh:       cfg.Token.RefreshTTL,
			jwt.ClassVerification:  cfg.Token.VerificationTTL,
			jwt.ClassPasswordReset: cfg.Token.ResetTTL,
		},
		Issuer: cfg.Token.Issuer,
		Leeway: cfg.Token.Leeway,
	})
	if err != nil {
		return nil, err
	}

	// -------- REVOCATION REGISTRY --------
	var revocationStore revocation.Store
	if b.redis != nil {
		revocationStore = revocation.NewRedisStore(b.redis, cfg.Revocation.RedisPrefix)
	} else {
		revocationStore = revocation.NewMemoryStore()
	}
	registry := revocation.NewRegistry(revocationStore, cfg.Revocation.SweepInterval)

	// -------- SESSION TRACKER --------
	var sessionStore session.Store
	if b.redis != nil {
		sessionStore = session.NewRedisStore(b.redis, cfg.Session.RedisPrefix)
	} else {
		sessionStore = session.NewMemoryStore()
	}
	tracker := session.NewTracker(sessionStore, registry, cfg.Session.MaxConcurrentSessions)

	engine := &Engine{
		config:   cfg,
		codec:    codec,
		registry: registry,
		tracker:  tracker,
		audit:    newAuditDispatcher(cfg.Audit, b.auditSink),
		metrics:  NewMetrics(cfg.Metrics),
	}

	registry.Start()

	b.built = true

	return engine, nil
}
