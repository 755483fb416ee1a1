package authcore

import (
	"context"
	"errors"
	"strconv"
	"time"

	"github.com/mansur-7080/UltraMarket-sub008/internal"
	"github.com/mansur-7080/UltraMarket-sub008/jwt"
	"github.com/mansur-7080/UltraMarket-sub008/revocation"
	"github.com/mansur-7080/UltraMarket-sub008/session"
)

// Engine is the token and session lifecycle core. It issues, validates,
// rotates, and revokes signed credentials across the four token classes and
// enforces the per-user concurrent session cap.
//
// Engines are constructed once at startup via [Builder.Build] and treated
// as immutable afterwards. All methods are safe for concurrent use.
type Engine struct {
	config   Config
	codec    *jwt.Manager
	registry *revocation.Registry
	tracker  *session.Tracker
	audit    *auditDispatcher
	metrics  *Metrics
}

// Close stops the background revocation sweeper and drains the audit
// dispatcher. The engine must not be used after Close.
func (e *Engine) Close() {
	if e == nil {
		return
	}
	if e.registry != nil {
		e.registry.Close()
	}
	if e.audit != nil {
		e.audit.Close()
	}
}

// AuditDropped reports how many audit events were dropped because the
// dispatcher buffer was full.
func (e *Engine) AuditDropped() uint64 {
	if e == nil || e.audit == nil {
		return 0
	}
	return e.audit.Dropped()
}

// MetricsSnapshot returns a point-in-time copy of all engine metrics.
func (e *Engine) MetricsSnapshot() MetricsSnapshot {
	if e == nil || e.metrics == nil {
		return MetricsSnapshot{
			Counters:   map[MetricID]uint64{},
			Histograms: map[MetricID][]uint64{},
		}
	}
	return e.metrics.Snapshot()
}

func (e *Engine) metricInc(id MetricID) {
	if e == nil || e.metrics == nil {
		return
	}
	e.metrics.Inc(id)
}

// Issue builds access and refresh claims for user sharing a fresh session
// identifier, signs both, and registers the session. If the user is at the
// concurrent session cap the oldest session is evicted and its refresh
// token revoked before the new pair is returned.
func (e *Engine) Issue(ctx context.Context, user User, ic IssueContext) (*TokenPair, error) {
	if e == nil {
		return nil, ErrEngineNotReady
	}
	if user.ID == "" {
		e.metricInc(MetricIssueFailure)
		return nil, errors.New("user id is required")
	}
	if user.Role != "" && !user.Role.Valid() {
		e.metricInc(MetricIssueFailure)
		e.emitAudit(ctx, auditEventTokenIssueFailed, false, user.ID, "", ErrInvalidRole, nil)
		return nil, ErrInvalidRole
	}
	if !ic.Audience.Valid() {
		e.metricInc(MetricIssueFailure)
		e.emitAudit(ctx, auditEventTokenIssueFailed, false, user.ID, "", ErrInvalidAudience, nil)
		return nil, ErrInvalidAudience
	}

	pair, evicted, err := e.issuePair(ctx, user, ic)
	if err != nil {
		e.metricInc(MetricIssueFailure)
		e.emitAudit(ctx, auditEventTokenIssueFailed, false, user.ID, "", err, nil)
		return nil, err
	}

	e.metricInc(MetricIssueSuccess)
	e.metricInc(MetricSessionCreated)
	e.emitAudit(ctx, auditEventTokenIssued, true, user.ID, pair.SessionID, nil, func() map[string]string {
		return map[string]string{"audience": string(ic.Audience)}
	})
	e.auditEvictions(ctx, user.ID, evicted)

	return pair, nil
}

// issuePair signs a new access+refresh pair and tracks its session. It is
// shared by Issue and Refresh.
func (e *Engine) issuePair(ctx context.Context, user User, ic IssueContext) (*TokenPair, []*session.Session, error) {
	aud, ok := e.config.Audience.Lookup(ic.Audience)
	if !ok {
		return nil, nil, ErrInvalidAudience
	}

	deviceID := ic.DeviceID
	if deviceID == "" {
		deviceID = deviceIDFromContext(ctx)
	}
	ip := ic.IPAddress
	if ip == "" {
		ip = clientIPFromContext(ctx)
	}

	sid, err := internal.NewSessionID()
	if err != nil {
		return nil, nil, err
	}
	sessionID := sid.String()
	base := jwt.Claims{
		UserID:      user.ID,
		Email:       user.Email,
		Role:        string(user.Role),
		Permissions: user.Permissions,
		SessionID:   sessionID,
		DeviceID:    deviceID,
		IPAddress:   ip,
	}

	accessToken, accessClaims, err := e.codec.Sign(base, jwt.ClassAccess, aud)
	if err != nil {
		return nil, nil, err
	}
	refreshToken, refreshClaims, err := e.codec.Sign(base, jwt.ClassRefresh, aud)
	if err != nil {
		return nil, nil, err
	}

	sess := &session.Session{
		SessionID:        sessionID,
		UserID:           user.ID,
		Audience:         string(ic.Audience),
		AccessTokenID:    accessClaims.TokenID(),
		RefreshTokenID:   refreshClaims.TokenID(),
		CreatedAt:        time.Now().Unix(),
		AccessExpiresAt:  accessClaims.ExpiresAt.Unix(),
		RefreshExpiresAt: refreshClaims.ExpiresAt.Unix(),
	}

	evicted, err := e.tracker.Track(ctx, sess)
	if err != nil {
		if errors.Is(err, session.ErrRedisUnavailable) {
			return nil, nil, ErrSessionUnavailable
		}
		return nil, nil, err
	}

	return &TokenPair{
		AccessToken:      accessToken,
		AccessExpiresAt:  accessClaims.ExpiresAt.Time,
		RefreshToken:     refreshToken,
		RefreshExpiresAt: refreshClaims.ExpiresAt.Time,
		SessionID:        sessionID,
	}, evicted, nil
}

func (e *Engine) auditEvictions(ctx context.Context, userID string, evicted []*session.Session) {
	for _, old := range evicted {
		e.metricInc(MetricSessionEvicted)
		e.emitAudit(ctx, auditEventSessionEvicted, true, userID, old.SessionID, nil, func() map[string]string {
			return map[string]string{
				"created_at": strconv.FormatInt(old.CreatedAt, 10),
			}
		})
	}
}

// Refresh rotates a refresh token: it runs the full validation pipeline
// against it, ends the old session, revokes the old refresh token so it is
// single-use, and issues a brand-new pair under a new session identifier.
// On a failed validation the pipeline's error is returned unchanged.
func (e *Engine) Refresh(ctx context.Context, refreshToken string, vc ValidationContext) (*TokenPair, error) {
	if e == nil {
		return nil, ErrEngineNotReady
	}

	result := e.Validate(ctx, refreshToken, TokenRefresh, vc)
	if !result.Valid {
		e.metricInc(MetricRefreshFailure)
		if errors.Is(result.Err, ErrTokenRevoked) {
			// A rotated token presented again. Possible replay.
			e.metricInc(MetricRefreshReuseDetected)
			e.emitAudit(ctx, auditEventRefreshReuseDetected, false, "", "", result.Err, nil)
		} else {
			e.emitAudit(ctx, auditEventRefreshRejected, false, "", "", result.Err, nil)
		}
		return nil, result.Err
	}

	claims := result.Claims
	audience := vc.Audience

	old, err := e.tracker.Untrack(ctx, claims.UserID, claims.SessionID)
	switch {
	case err == nil:
		if audience == "" {
			audience = Audience(old.Audience)
		}
	case errors.Is(err, session.ErrSessionNotFound):
		// Session already gone (evicted or logged out elsewhere); the token
		// itself still rotates below.
	case errors.Is(err, session.ErrRedisUnavailable):
		e.metricInc(MetricRefreshFailure)
		return nil, ErrSessionUnavailable
	default:
		e.metricInc(MetricRefreshFailure)
		return nil, err
	}

	if e.config.Security.EnforceRotation {
		if err := e.registry.Revoke(ctx, claims.TokenID(), claims.ExpiresAt.Time); err != nil {
			e.metricInc(MetricRefreshFailure)
			return nil, ErrRevocationUnavailable
		}
	}

	if audience == "" {
		audience = e.audienceFromClaims(claims)
	}

	user := User{
		ID:          claims.UserID,
		Email:       claims.Email,
		Role:        Role(claims.Role),
		Permissions: claims.Permissions,
	}
	pair, evicted, err := e.issuePair(ctx, user, IssueContext{
		Audience:  audience,
		DeviceID:  claims.DeviceID,
		IPAddress: clientIPFromContext(ctx),
	})
	if err != nil {
		e.metricInc(MetricRefreshFailure)
		e.emitAudit(ctx, auditEventRefreshRejected, false, user.ID, "", err, nil)
		return nil, err
	}

	e.metricInc(MetricRefreshSuccess)
	e.emitAudit(ctx, auditEventTokenRefreshed, true, user.ID, pair.SessionID, nil, func() map[string]string {
		return map[string]string{"previous_session": claims.SessionID}
	})
	e.auditEvictions(ctx, user.ID, evicted)

	return pair, nil
}

// audienceFromClaims maps the audience string inside claims back onto the
// client surface it was configured for.
func (e *Engine) audienceFromClaims(claims *jwt.Claims) Audience {
	if len(claims.Audience) == 0 {
		return ""
	}
	switch claims.Audience[0] {
	case e.config.Audience.Web:
		return AudienceWeb
	case e.config.Audience.Mobile:
		return AudienceMobile
	case e.config.Audience.Admin:
		return AudienceAdmin
	default:
		return ""
	}
}

// Logout ends the session behind a presented access token. The token is
// fully validated first; both of the session's token identifiers are then
// revoked so neither half of the pair outlives the logout.
func (e *Engine) Logout(ctx context.Context, accessToken string) error {
	if e == nil {
		return ErrEngineNotReady
	}

	result := e.Validate(ctx, accessToken, TokenAccess, ValidationContext{})
	if !result.Valid {
		return result.Err
	}

	return e.LogoutSession(ctx, result.Claims.UserID, result.Claims.SessionID)
}

// LogoutSession ends one tracked session and revokes both of its token
// identifiers.
func (e *Engine) LogoutSession(ctx context.Context, userID, sessionID string) error {
	if e == nil {
		return ErrEngineNotReady
	}

	sess, err := e.tracker.Untrack(ctx, userID, sessionID)
	if err != nil {
		if errors.Is(err, session.ErrSessionNotFound) {
			return ErrSessionNotFound
		}
		if errors.Is(err, session.ErrRedisUnavailable) {
			return ErrSessionUnavailable
		}
		return err
	}

	if err := e.registry.Revoke(ctx, sess.RefreshTokenID, time.Unix(sess.RefreshExpiresAt, 0)); err != nil {
		return ErrRevocationUnavailable
	}
	if err := e.registry.Revoke(ctx, sess.AccessTokenID, time.Unix(sess.AccessExpiresAt, 0)); err != nil {
		return ErrRevocationUnavailable
	}

	e.metricInc(MetricLogout)
	e.emitAudit(ctx, auditEventLogoutSession, true, userID, sessionID, nil, nil)

	return nil
}

// LogoutAll ends every session of a user and revokes all of their token
// identifiers. Used on password change and explicit "log out everywhere".
func (e *Engine) LogoutAll(ctx context.Context, userID string) error {
	if e == nil {
		return ErrEngineNotReady
	}

	n, err := e.tracker.RevokeAll(ctx, userID)
	if err != nil {
		if errors.Is(err, session.ErrRedisUnavailable) {
			return ErrSessionUnavailable
		}
		if errors.Is(err, revocation.ErrRedisUnavailable) {
			return ErrRevocationUnavailable
		}
		return err
	}

	e.metricInc(MetricLogoutAll)
	e.emitAudit(ctx, auditEventLogoutAll, true, userID, "", nil, func() map[string]string {
		return map[string]string{"sessions_ended": strconv.Itoa(n)}
	})

	return nil
}

// ActiveSessions lists a user's tracked sessions in registration order.
func (e *Engine) ActiveSessions(ctx context.Context, userID string) ([]*session.Session, error) {
	if e == nil {
		return nil, ErrEngineNotReady
	}
	return e.tracker.ActiveSessions(ctx, userID)
}
