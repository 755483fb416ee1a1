package authcore

import (
	"context"
	"errors"
	"time"

	"github.com/mansur-7080/UltraMarket-sub008/jwt"
)

// signSingleUse signs a one-time credential of the given class. These
// tokens carry no session; single use is enforced by revoking their
// identifier on confirmation.
func (e *Engine) signSingleUse(ctx context.Context, user User, audience Audience, class TokenType) (string, time.Time, error) {
	if e == nil {
		return "", time.Time{}, ErrEngineNotReady
	}
	if user.ID == "" {
		return "", time.Time{}, errors.New("user id is required")
	}

	aud, ok := e.config.Audience.Lookup(audience)
	if !ok {
		return "", time.Time{}, ErrInvalidAudience
	}

	base := jwt.Claims{
		UserID:    user.ID,
		Email:     user.Email,
		Role:      string(user.Role),
		IPAddress: clientIPFromContext(ctx),
	}

	token, claims, err := e.codec.Sign(base, class, aud)
	if err != nil {
		return "", time.Time{}, err
	}

	return token, claims.ExpiresAt.Time, nil
}

// confirmSingleUse validates a one-time credential and revokes its
// identifier so a second confirmation with the same token fails with
// [ErrTokenRevoked].
func (e *Engine) confirmSingleUse(ctx context.Context, token string, class TokenType, vc ValidationContext) (*Claims, error) {
	result := e.Validate(ctx, token, class, vc)
	if !result.Valid {
		return nil, result.Err
	}

	claims := result.Claims
	if err := e.registry.Revoke(ctx, claims.TokenID(), claims.ExpiresAt.Time); err != nil {
		return nil, ErrRevocationUnavailable
	}

	return claims, nil
}

// IssueVerificationToken signs a one-time email verification credential.
func (e *Engine) IssueVerificationToken(ctx context.Context, user User, audience Audience) (string, time.Time, error) {
	token, expiresAt, err := e.signSingleUse(ctx, user, audience, TokenVerification)
	if err != nil {
		e.emitAudit(ctx, auditEventVerificationRejected, false, user.ID, "", err, nil)
		return "", time.Time{}, err
	}

	e.metricInc(MetricVerificationIssued)
	e.emitAudit(ctx, auditEventVerificationIssued, true, user.ID, "", nil, nil)

	return token, expiresAt, nil
}

// ConfirmVerification consumes a verification token. The token becomes
// unusable afterwards; the caller flips the account's verified flag.
func (e *Engine) ConfirmVerification(ctx context.Context, token string, vc ValidationContext) (*Claims, error) {
	claims, err := e.confirmSingleUse(ctx, token, TokenVerification, vc)
	if err != nil {
		e.metricInc(MetricVerificationFailed)
		e.emitAudit(ctx, auditEventVerificationRejected, false, "", "", err, nil)
		return nil, err
	}

	e.metricInc(MetricVerificationConfirmed)
	e.emitAudit(ctx, auditEventVerificationConfirmed, true, claims.UserID, "", nil, nil)

	return claims, nil
}

// IssuePasswordReset signs a one-time password reset credential.
func (e *Engine) IssuePasswordReset(ctx context.Context, user User, audience Audience) (string, time.Time, error) {
	token, expiresAt, err := e.signSingleUse(ctx, user, audience, TokenPasswordReset)
	if err != nil {
		e.emitAudit(ctx, auditEventResetRejected, false, user.ID, "", err, nil)
		return "", time.Time{}, err
	}

	e.metricInc(MetricResetIssued)
	e.emitAudit(ctx, auditEventResetIssued, true, user.ID, "", nil, nil)

	return token, expiresAt, nil
}

// ConfirmPasswordReset consumes a reset token and ends every session of the
// user, since a password change invalidates all outstanding credentials.
// The caller performs the actual password update.
func (e *Engine) ConfirmPasswordReset(ctx context.Context, token string, vc ValidationContext) (*Claims, error) {
	claims, err := e.confirmSingleUse(ctx, token, TokenPasswordReset, vc)
	if err != nil {
		e.metricInc(MetricResetFailed)
		e.emitAudit(ctx, auditEventResetRejected, false, "", "", err, nil)
		return nil, err
	}

	if err := e.LogoutAll(ctx, claims.UserID); err != nil {
		e.metricInc(MetricResetFailed)
		return nil, err
	}

	e.metricInc(MetricResetConfirmed)
	e.emitAudit(ctx, auditEventResetConfirmed, true, claims.UserID, "", nil, nil)

	return claims, nil
}
