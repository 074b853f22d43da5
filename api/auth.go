/*
auth.go - Bearer-token authentication and request provenance

The boundary resolves the acting user ONCE per request and threads it
down through the request context; the domain never reads ambient
security state. Token issuance is a separate service - this layer only
validates HS256 bearer tokens whose subject is the user id.

Request provenance for the audit trail is resolved here too: client IP
prefers the first X-Forwarded-For value, then the direct connection
address; the user agent comes from the request header. Missing values
fall back to the UNKNOWN sentinel inside the audit package.
*/
package api

import (
	"context"
	"net"
	"net/http"
	"strings"

	"github.com/golang-jwt/jwt/v5"

	"github.com/warp/sales-engine/audit"
	"github.com/warp/sales-engine/sales"
)

type actorKey struct{}

// actorFrom returns the authenticated user stored by Authenticator.
func actorFrom(r *http.Request) (sales.User, bool) {
	actor, ok := r.Context().Value(actorKey{}).(sales.User)
	return actor, ok
}

// Authenticator validates bearer tokens and loads the acting user.
type Authenticator struct {
	Secret    []byte
	Directory sales.Directory
}

// Middleware rejects requests without a valid token or with an
// inactive user, and stores the resolved actor in the context.
func (a *Authenticator) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		header := r.Header.Get("Authorization")
		if !strings.HasPrefix(header, "Bearer ") {
			writeError(w, http.StatusUnauthorized, "Missing bearer token", nil)
			return
		}
		raw := strings.TrimPrefix(header, "Bearer ")

		token, err := jwt.Parse(raw, func(t *jwt.Token) (any, error) {
			return a.Secret, nil
		}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Name}))
		if err != nil || !token.Valid {
			writeError(w, http.StatusUnauthorized, "Invalid token", err)
			return
		}

		subject, err := token.Claims.GetSubject()
		if err != nil || subject == "" {
			writeError(w, http.StatusUnauthorized, "Invalid token subject", err)
			return
		}

		user, err := a.Directory.GetUser(r.Context(), subject)
		if err != nil {
			writeError(w, http.StatusUnauthorized, "Unknown user", nil)
			return
		}
		if !user.Active {
			writeError(w, http.StatusUnauthorized, "User is deactivated", nil)
			return
		}

		ctx := context.WithValue(r.Context(), actorKey{}, *user)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// RequireRoles rejects authenticated actors whose role is not listed.
func RequireRoles(roles ...sales.Role) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			actor, ok := actorFrom(r)
			if !ok {
				writeError(w, http.StatusUnauthorized, "Not authenticated", nil)
				return
			}
			for _, role := range roles {
				if actor.Role == role {
					next.ServeHTTP(w, r)
					return
				}
			}
			writeError(w, http.StatusForbidden, "Insufficient role", nil)
		})
	}
}

// RequestMeta attaches client IP and user agent to the context for the
// audit recorder.
func RequestMeta(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		meta := audit.Meta{
			IPAddress: clientIP(r),
			UserAgent: r.UserAgent(),
		}
		next.ServeHTTP(w, r.WithContext(audit.WithMeta(r.Context(), meta)))
	})
}

// clientIP prefers the first X-Forwarded-For value, then the direct
// connection address.
func clientIP(r *http.Request) string {
	if forwarded := r.Header.Get("X-Forwarded-For"); forwarded != "" {
		return strings.TrimSpace(strings.Split(forwarded, ",")[0])
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
