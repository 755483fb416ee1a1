package authcore

import (
	"context"
	"errors"
	"time"
)

const (
	auditEventTokenIssued           = "token_issued"
	auditEventTokenIssueFailed      = "token_issue_failed"
	auditEventTokenRefreshed        = "token_refreshed"
	auditEventRefreshRejected       = "refresh_rejected"
	auditEventRefreshReuseDetected  = "refresh_reuse_detected"
	auditEventTokenRejected         = "token_rejected"
	auditEventSessionEvicted        = "session_evicted"
	auditEventLogoutSession         = "logout_session"
	auditEventLogoutAll             = "logout_all"
	auditEventVerificationIssued    = "verification_issued"
	auditEventVerificationConfirmed = "verification_confirmed"
	auditEventVerificationRejected  = "verification_rejected"
	auditEventResetIssued           = "password_reset_issued"
	auditEventResetConfirmed        = "password_reset_confirmed"
	auditEventResetRejected         = "password_reset_rejected"
)

// AuditErrorCode is the stable error label stored on audit events.
type AuditErrorCode string

const (
	auditErrMalformed             AuditErrorCode = "malformed"
	auditErrExpired               AuditErrorCode = "expired"
	auditErrRevoked               AuditErrorCode = "revoked"
	auditErrTypeMismatch          AuditErrorCode = "type_mismatch"
	auditErrAudienceMismatch      AuditErrorCode = "audience_mismatch"
	auditErrInvalidAudience       AuditErrorCode = "invalid_audience"
	auditErrInvalidRole           AuditErrorCode = "invalid_role"
	auditErrSessionNotFound       AuditErrorCode = "session_not_found"
	auditErrRevocationUnavailable AuditErrorCode = "revocation_unavailable"
	auditErrSessionUnavailable    AuditErrorCode = "session_unavailable"
	auditErrInternal              AuditErrorCode = "internal_error"
)

func (e *Engine) emitAudit(
	ctx context.Context,
	eventType string,
	success bool,
	userID string,
	sessionID string,
	err error,
	metadataBuilder func() map[string]string,
) {
	if e == nil || e.audit == nil {
		return
	}

	var metadata map[string]string
	if metadataBuilder != nil {
		metadata = metadataBuilder()
	}
	if ua := userAgentFromContext(ctx); ua != "" {
		if metadata == nil {
			metadata = make(map[string]string, 1)
		}
		metadata["user_agent"] = ua
	}

	event := AuditEvent{
		Timestamp: time.Now().UTC(),
		EventType: eventType,
		UserID:    userID,
		SessionID: sessionID,
		IP:        clientIPFromContext(ctx),
		Success:   success,
		Metadata:  metadata,
	}
	if code := auditErrorCode(err); code != "" {
		event.Error = string(code)
	}

	e.audit.Emit(ctx, event)
}

func auditErrorCode(err error) AuditErrorCode {
	if err == nil {
		return ""
	}

	switch {
	case errors.Is(err, ErrTokenMalformed):
		return auditErrMalformed
	case errors.Is(err, ErrTokenExpired):
		return auditErrExpired
	case errors.Is(err, ErrTokenRevoked):
		return auditErrRevoked
	case errors.Is(err, ErrTokenTypeMismatch):
		return auditErrTypeMismatch
	case errors.Is(err, ErrAudienceMismatch):
		return auditErrAudienceMismatch
	case errors.Is(err, ErrInvalidAudience):
		return auditErrInvalidAudience
	case errors.Is(err, ErrInvalidRole):
		return auditErrInvalidRole
	case errors.Is(err, ErrSessionNotFound):
		return auditErrSessionNotFound
	case errors.Is(err, ErrRevocationUnavailable):
		return auditErrRevocationUnavailable
	case errors.Is(err, ErrSessionUnavailable):
		return auditErrSessionUnavailable
	default:
		return auditErrInternal
	}
}
