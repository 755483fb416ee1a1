package middleware

import (
	"context"
	"net/http"
	"strings"

	authcore "github.com/mansur-7080/UltraMarket-sub008"
)

// Response headers carrying the pipeline's advisory outputs. Hard failures
// never reach these; they exist so well-behaved clients can rotate before
// their access token lapses.
const (
	// HeaderTokenExpired is set to "true" on 401 responses caused by an
	// expired access token, hinting the client should refresh and retry.
	HeaderTokenExpired = "X-Token-Expired"
	// HeaderRefreshSuggested is set to "true" when validation passed but the
	// token's remaining lifetime is under the refresh threshold.
	HeaderRefreshSuggested = "X-Refresh-Suggested"
	// HeaderAuthWarning carries advisory warnings such as an IP change.
	HeaderAuthWarning = "X-Auth-Warning"
)

type claimsContextKey struct{}

// ClaimsFromContext returns the validated claims that [Guard] attached to
// the request context.
func ClaimsFromContext(ctx context.Context) (*authcore.Claims, bool) {
	claims, ok := ctx.Value(claimsContextKey{}).(*authcore.Claims)
	return claims, ok
}

// Guard validates the bearer access token for the given client surface. On
// success the decoded claims are attached to the request context; every
// failure maps to the same 401, distinguished only by the expired-token
// hint header.
func Guard(engine *authcore.Engine, audience authcore.Audience) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if engine == nil {
				http.Error(w, "unauthorized", http.StatusUnauthorized)
				return
			}

			token, ok := bearerToken(r.Header.Get("Authorization"))
			if !ok {
				http.Error(w, "unauthorized", http.StatusUnauthorized)
				return
			}

			ctx := authcore.WithClientIP(r.Context(), clientIP(r))
			result := engine.Validate(ctx, token, authcore.TokenAccess, authcore.ValidationContext{
				Audience:  audience,
				IPAddress: clientIP(r),
			})
			if !result.Valid {
				if result.ShouldRefresh {
					w.Header().Set(HeaderTokenExpired, "true")
				}
				http.Error(w, "unauthorized", http.StatusUnauthorized)
				return
			}

			if result.ShouldRefresh {
				w.Header().Set(HeaderRefreshSuggested, "true")
			}
			for _, warning := range result.Warnings {
				w.Header().Add(HeaderAuthWarning, warning)
			}

			ctx = context.WithValue(ctx, claimsContextKey{}, result.Claims)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func bearerToken(value string) (string, bool) {
	const bearer = "Bearer "
	if !strings.HasPrefix(value, bearer) {
		return "", false
	}

	token := value[len(bearer):]
	if token == "" {
		return "", false
	}

	return token, true
}

func clientIP(r *http.Request) string {
	if forwarded := r.Header.Get("X-Forwarded-For"); forwarded != "" {
		if i := strings.IndexByte(forwarded, ','); i > 0 {
			return strings.TrimSpace(forwarded[:i])
		}
		return strings.TrimSpace(forwarded)
	}

	host := r.RemoteAddr
	if i := strings.LastIndexByte(host, ':'); i > 0 {
		host = host[:i]
	}
	return host
}
