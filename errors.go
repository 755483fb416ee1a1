package authcore

import "errors"

var (
	// ErrTokenMalformed marks a token whose structure, signature, or issuer
	// is invalid. Never retryable.
	ErrTokenMalformed = errors.New("token malformed")
	// ErrTokenExpired marks a structurally sound token past its expiry.
	// Callers may attempt a refresh.
	ErrTokenExpired = errors.New("token expired")
	// ErrTokenRevoked marks a token whose identifier was explicitly
	// invalidated before its natural expiry. Never retryable.
	ErrTokenRevoked = errors.New("token revoked")
	// ErrTokenTypeMismatch marks a token of the wrong class presented to a
	// verifier. Either a caller bug or tampering.
	ErrTokenTypeMismatch = errors.New("token type mismatch")
	// ErrAudienceMismatch marks a valid token presented to the wrong client
	// surface.
	ErrAudienceMismatch = errors.New("token audience mismatch")
	// ErrInvalidAudience marks an audience value outside the closed set.
	ErrInvalidAudience = errors.New("invalid audience")
	// ErrInvalidRole marks a role value outside the closed set.
	ErrInvalidRole = errors.New("invalid role")
	// ErrRevocationUnavailable is returned when blacklisting is enabled but
	// the revocation backend cannot be reached. Validation fails closed.
	ErrRevocationUnavailable = errors.New("revocation backend unavailable")
	// ErrSessionUnavailable is returned when the session backend cannot be
	// reached during issuance or logout.
	ErrSessionUnavailable = errors.New("session backend unavailable")
	// ErrSessionNotFound is returned when a logout names an unknown session.
	ErrSessionNotFound = errors.New("session not found")
	// ErrEngineNotReady is returned by operations on a nil or closed engine.
	ErrEngineNotReady = errors.New("engine not initialized")
)
