package session

// Session is one logical login. It carries both token identifiers so logout
// and eviction can blacklist without re-parsing tokens, and the refresh
// expiry so revocation entries are retained exactly as long as needed.
//
// Session instances are immutable once tracked.
type Session struct {
	SessionID string
	UserID    string
	Audience  string

	AccessTokenID  string
	RefreshTokenID string

	CreatedAt        int64
	AccessExpiresAt  int64
	RefreshExpiresAt int64
}
