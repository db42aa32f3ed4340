package middleware

import (
	"context"
	"log/slog"
	"net/http"
	"strings"

	id "beacon/pkg/domain"
)

// JWTValidator validates operator access tokens.
type JWTValidator interface {
	ValidateToken(tokenString string) (*JWTClaims, error)
}

// JWTClaims represents the claims we expect from the JWT validator.
type JWTClaims struct {
	OperatorID string
	Role       string
}

// Context keys for storing authenticated operator information.
type contextKeyOperatorID struct{}
type contextKeyOperatorRole struct{}

var (
	ContextKeyOperatorID   = contextKeyOperatorID{}
	ContextKeyOperatorRole = contextKeyOperatorRole{}
)

// GetOperatorID retrieves the authenticated operator ID from the context.
func GetOperatorID(ctx context.Context) id.OperatorID {
	operatorID, ok := ctx.Value(ContextKeyOperatorID).(string)
	if !ok {
		return ""
	}
	return id.OperatorID(operatorID)
}

// GetOperatorRole retrieves the authenticated operator's role from the context.
func GetOperatorRole(ctx context.Context) string {
	role, ok := ctx.Value(ContextKeyOperatorRole).(string)
	if !ok {
		return ""
	}
	return role
}

func writeJSONError(w http.ResponseWriter, status int, errCode, errDesc string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write([]byte(`{"error":"` + errCode + `","error_description":"` + errDesc + `"}`))
}

// RequireAuth authenticates the operator from the Authorization header. Every
// route behind it can assume GetOperatorID returns a non-empty identity.
func RequireAuth(validator JWTValidator, logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			authHeader := r.Header.Get("Authorization")
			const bearerPrefix = "Bearer "
			if after, ok := strings.CutPrefix(authHeader, bearerPrefix); ok {
				claims, err := validator.ValidateToken(after)
				if err != nil {
					ctx := r.Context()
					logger.WarnContext(ctx, "unauthorized access - invalid token",
						"error", err,
						"request_id", GetRequestID(ctx),
					)
					writeJSONError(w, http.StatusUnauthorized, "unauthorized", "Invalid or expired token")
					return
				}

				ctx := r.Context()
				ctx = context.WithValue(ctx, ContextKeyOperatorID, claims.OperatorID)
				ctx = context.WithValue(ctx, ContextKeyOperatorRole, claims.Role)

				next.ServeHTTP(w, r.WithContext(ctx))
				return
			}

			// No Authorization header or invalid format
			ctx := r.Context()
			logger.WarnContext(ctx, "unauthorized access - missing token",
				"request_id", GetRequestID(ctx),
			)
			writeJSONError(w, http.StatusUnauthorized, "unauthorized", "Missing or invalid Authorization header")
		})
	}
}
