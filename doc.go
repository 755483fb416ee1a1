// Package authcore is the token and session lifecycle core of the
// UltraMarket platform. It issues, validates, rotates, and revokes signed
// credentials across four token classes (access, refresh, email
// verification, password reset), each signed with its own secret, and
// enforces a per-user concurrent session cap with FIFO eviction.
//
// The engine is built once at startup:
//
//	cfg, err := authcore.ConfigFromEnv()
//	engine, err := authcore.New().
//		WithConfig(cfg).
//		WithRedis(client).
//		Build()
//	defer engine.Close()
//
// Account storage, email delivery, and HTTP wiring stay outside the
// engine: it consumes a [User] and produces token pairs and validation
// results, nothing more. Without a Redis client the revocation and session
// state lives in process memory, which is suitable for tests and
// single-instance deployments only.
package authcore
