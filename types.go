package authcore

import (
	"time"

	"github.com/mansur-7080/UltraMarket-sub008/jwt"
)

// Role is the closed set of platform roles carried inside token claims.
type Role string

const (
	// RoleCustomer is an ordinary shopper account.
	RoleCustomer Role = "customer"
	// RoleAdmin is a platform operator account.
	RoleAdmin Role = "admin"
	// RoleVendor is a marketplace seller account.
	RoleVendor Role = "vendor"
	// RoleModerator is a content moderation account.
	RoleModerator Role = "moderator"
	// RoleSuperAdmin is the unrestricted operator account.
	RoleSuperAdmin Role = "super_admin"
)

// Valid reports whether r is one of the defined roles.
func (r Role) Valid() bool {
	switch r {
	case RoleCustomer, RoleAdmin, RoleVendor, RoleModerator, RoleSuperAdmin:
		return true
	default:
		return false
	}
}

// Audience is the intended consumer class of a token. Each audience maps to
// a distinct expected-audience string from [AudienceConfig], so a token
// issued for one client surface is not accepted by another.
type Audience string

const (
	// AudienceWeb is the browser storefront.
	AudienceWeb Audience = "web"
	// AudienceMobile is the mobile application.
	AudienceMobile Audience = "mobile"
	// AudienceAdmin is the operator dashboard.
	AudienceAdmin Audience = "admin"
)

// Valid reports whether a is one of the defined audiences.
func (a Audience) Valid() bool {
	switch a {
	case AudienceWeb, AudienceMobile, AudienceAdmin:
		return true
	default:
		return false
	}
}

// TokenType selects the signing secret and lifetime for a token.
type TokenType = jwt.Class

const (
	// TokenAccess is the short-lived request credential.
	TokenAccess = jwt.ClassAccess
	// TokenRefresh is the long-lived rotation credential.
	TokenRefresh = jwt.ClassRefresh
	// TokenVerification is the one-time email verification credential.
	TokenVerification = jwt.ClassVerification
	// TokenPasswordReset is the one-time password reset credential.
	TokenPasswordReset = jwt.ClassPasswordReset
)

// Claims is the decoded signed payload attached to validated requests.
type Claims = jwt.Claims

// User is the caller-supplied identity a token pair is issued for. The
// engine never looks users up itself; account storage stays outside it.
type User struct {
	ID          string
	Email       string
	Role        Role
	Permissions []string
}

// TokenPair is one issued access+refresh pair. Both tokens share a
// SessionID; rotating the pair produces a new SessionID and revokes the old
// refresh token.
type TokenPair struct {
	AccessToken      string
	AccessExpiresAt  time.Time
	RefreshToken     string
	RefreshExpiresAt time.Time
	SessionID        string
}

// IssueContext carries the per-request issuance inputs. DeviceID and
// IPAddress are optional and recorded into the claims when present.
type IssueContext struct {
	Audience  Audience
	DeviceID  string
	IPAddress string
}

// ValidationContext carries the optional contextual inputs to
// [Engine.Validate]. A zero value disables the contextual checks.
type ValidationContext struct {
	Audience  Audience
	IPAddress string
}

// ValidationResult is the single structured outcome of the validation
// pipeline. Warnings are advisory and never block the request; Err is set
// exactly when Valid is false. ShouldRefresh hints that the caller should
// rotate soon, either because the access token expired or because its
// remaining lifetime dipped under the refresh threshold.
type ValidationResult struct {
	Valid         bool
	Claims        *Claims
	Err           error
	Warnings      []string
	ShouldRefresh bool
}
