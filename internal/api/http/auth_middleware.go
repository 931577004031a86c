package httpapi

import (
	"net/http"
	"strings"
)

// requireAuth resolves the session token and attaches the AuthUser to the
// request context. Requests without a valid session are rejected.
func (s *Server) requireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token := s.extractToken(r)
		if token == "" {
			respondError(w, http.StatusUnauthorized, "UNAUTHORIZED", "missing credentials")
			return
		}
		u, sess, err := s.authSvc.Authenticate(r.Context(), token)
		if err != nil {
			respondError(w, http.StatusUnauthorized, "UNAUTHORIZED", "invalid or expired session")
			return
		}
		auth := &AuthUser{
			UserID:    u.UserID,
			Email:     u.Email,
			Role:      u.Role,
			BrandID:   sess.BrandID,
			SessionID: sess.SessionID,
			Token:     token,
		}
		next.ServeHTTP(w, r.WithContext(contextWithAuthUser(r.Context(), auth)))
	})
}

// requireRole restricts a route to the given roles. Admins pass everywhere.
func (s *Server) requireRole(roles ...string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			auth := authUserFromContext(r.Context())
			if auth == nil {
				respondError(w, http.StatusUnauthorized, "UNAUTHORIZED", "missing auth")
				return
			}
			if string(auth.Role) == "ADMIN" {
				next.ServeHTTP(w, r)
				return
			}
			for _, role := range roles {
				if string(auth.Role) == role {
					next.ServeHTTP(w, r)
					return
				}
			}
			respondError(w, http.StatusForbidden, "FORBIDDEN", "insufficient role")
		})
	}
}

// extractToken reads the session token from the Authorization header or,
// failing that, the session cookie.
func (s *Server) extractToken(r *http.Request) string {
	if h := r.Header.Get("Authorization"); h != "" {
		if strings.HasPrefix(h, "Bearer ") {
			return strings.TrimPrefix(h, "Bearer ")
		}
	}
	if c, err := r.Cookie(s.sessionCookieName); err == nil {
		return c.Value
	}
	return ""
}
