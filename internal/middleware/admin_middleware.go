package middleware

import (
	"context"
	"net/http"
	"strings"

	"pad-sync-server/pkg/jwt"
	"pad-sync-server/pkg/response"
)

type contextKey string

const SubjectKey contextKey = "subject"

// AdminMiddleware only lets through requests carrying an admin bearer token
// signed with jwtSecret.
func AdminMiddleware(jwtSecret string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.Method == http.MethodOptions {
				next.ServeHTTP(w, r)
				return
			}

			if jwtSecret == "" {
				response.Error(w, http.StatusServiceUnavailable, "Admin endpoints are disabled")
				return
			}

			authHeader := r.Header.Get("Authorization")
			if authHeader == "" {
				response.Unauthorized(w, "Missing authorization header")
				return
			}

			parts := strings.Split(authHeader, " ")
			if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
				response.Unauthorized(w, "Invalid authorization header format")
				return
			}

			claims, err := jwt.ValidateAdminToken(parts[1], jwtSecret)
			if err != nil {
				response.Unauthorized(w, "Invalid or expired token")
				return
			}

			ctx := context.WithValue(r.Context(), SubjectKey, claims.Subject)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func GetSubject(r *http.Request) string {
	subject, ok := r.Context().Value(SubjectKey).(string)
	if !ok {
		return ""
	}
	return subject
}
