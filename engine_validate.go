package authcore

import (
	"context"
	"errors"
	"time"

	"github.com/mansur-7080/UltraMarket-sub008/jwt"
)

// ipChangedWarning is appended when the presented IP differs from the one
// recorded at issuance. An IP change alone is not conclusive evidence of
// compromise on mobile networks, so it never fails the request.
const ipChangedWarning = "IP address changed"

// Validate runs the validation pipeline against tokenStr for the expected
// token class. Checks run in a fixed order and short-circuit on the first
// hard failure: revocation lookup, cryptographic verification, token class
// match, then the soft contextual checks that only produce warnings.
//
// The result always carries either Valid=true with claims or Valid=false
// with a typed error. ShouldRefresh is advisory: it is set when an access
// token expired or when any token's remaining lifetime is under the
// configured refresh threshold.
func (e *Engine) Validate(ctx context.Context, tokenStr string, expected TokenType, vc ValidationContext) ValidationResult {
	if e == nil {
		return ValidationResult{Err: ErrEngineNotReady}
	}

	start := time.Now()
	result := e.validate(ctx, tokenStr, expected, vc)
	e.metrics.Observe(MetricValidateLatency, time.Since(start))

	if result.Valid {
		e.metricInc(MetricValidateSuccess)
	} else {
		e.metricInc(MetricValidateFailure)
		e.emitAudit(ctx, auditEventTokenRejected, false, "", "", result.Err, func() map[string]string {
			return map[string]string{"expected_type": expected.String()}
		})
	}

	return result
}

func (e *Engine) validate(ctx context.Context, tokenStr string, expected TokenType, vc ValidationContext) ValidationResult {
	// Revocation comes first: a revoked token must fail regardless of
	// cryptographic validity or expiry status. The unverified peek only
	// feeds the registry lookup; nothing from it is trusted.
	if e.config.Security.EnableBlacklisting {
		if peeked, ok := e.codec.Peek(tokenStr); ok {
			revoked, err := e.registry.IsRevoked(ctx, peeked.TokenID())
			if err != nil {
				return ValidationResult{Err: ErrRevocationUnavailable}
			}
			if revoked {
				e.metricInc(MetricTokenRevoked)
				return ValidationResult{Err: ErrTokenRevoked}
			}
		}
	}

	expectedAudience := ""
	if vc.Audience != "" {
		aud, ok := e.config.Audience.Lookup(vc.Audience)
		if !ok {
			return ValidationResult{Err: ErrInvalidAudience}
		}
		expectedAudience = aud
	}

	claims, err := e.codec.Verify(tokenStr, expected, expectedAudience)
	if err != nil {
		switch {
		case errors.Is(err, jwt.ErrExpired):
			e.metricInc(MetricTokenExpired)
			return ValidationResult{
				Claims:        claims,
				Err:           ErrTokenExpired,
				ShouldRefresh: expected == TokenAccess,
			}
		case errors.Is(err, jwt.ErrAudienceMismatch):
			return ValidationResult{Err: ErrAudienceMismatch}
		default:
			// Malformed and wrong-secret collapse here: neither is ever
			// trustworthy, and callers get no hint which check failed.
			return ValidationResult{Err: ErrTokenMalformed}
		}
	}

	if claims.TokenType != expected.String() {
		e.metricInc(MetricTypeMismatch)
		return ValidationResult{Err: ErrTokenTypeMismatch}
	}

	result := ValidationResult{Valid: true, Claims: claims}

	if e.config.Security.EnableIPValidation &&
		vc.IPAddress != "" && claims.IPAddress != "" &&
		vc.IPAddress != claims.IPAddress {
		e.metricInc(MetricIPMismatch)
		result.Warnings = append(result.Warnings, ipChangedWarning)
	}

	if e.config.Security.RefreshThreshold > 0 && claims.ExpiresAt != nil {
		if time.Until(claims.ExpiresAt.Time) < e.config.Security.RefreshThreshold {
			result.ShouldRefresh = true
		}
	}

	return result
}
