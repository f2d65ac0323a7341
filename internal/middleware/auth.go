package middleware

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/google/uuid"

	"github.com/quickbills/billpay-api/internal/domain/user"
	"github.com/quickbills/billpay-api/internal/pkg/jwt"
	"github.com/quickbills/billpay-api/internal/pkg/logger"
	"github.com/quickbills/billpay-api/internal/pkg/response"
)

type contextKey string

const principalKey contextKey = "principal"

// Principal is the authenticated wallet owner behind a request.
type Principal struct {
	UserID uuid.UUID
	Role   user.Role
}

func (p Principal) IsAdmin() bool {
	return p.Role == user.RoleAdmin
}

// Auth validates the bearer token and attaches the caller to the request.
// The request logger gains user_id and role, so every ledger log line written
// further down carries the wallet owner.
func Auth(jwtService *jwt.Service) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()

			token, ok := bearerToken(r)
			if !ok {
				logger.FromContext(ctx).Debug().Str("path", r.URL.Path).Msg("missing or malformed authorization header")
				response.Unauthorized(w, "Missing or invalid authorization header")
				return
			}

			claims, err := jwtService.ValidateAccessToken(token)
			if err != nil {
				logger.FromContext(ctx).Debug().Err(err).Str("path", r.URL.Path).Msg("access token rejected")
				if errors.Is(err, jwt.ErrExpiredToken) {
					response.Unauthorized(w, "Token expired")
				} else {
					response.Unauthorized(w, "Invalid token")
				}
				return
			}
			if claims.UserID == uuid.Nil {
				response.Unauthorized(w, "Invalid token")
				return
			}

			p := Principal{UserID: claims.UserID, Role: user.Role(claims.Role)}
			reqLog := logger.FromContext(ctx).With().
				Str("user_id", p.UserID.String()).
				Str("role", string(p.Role)).
				Logger()

			ctx = context.WithValue(ctx, principalKey, p)
			ctx = logger.WithContext(ctx, &reqLog)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func bearerToken(r *http.Request) (string, bool) {
	scheme, token, ok := strings.Cut(strings.TrimSpace(r.Header.Get("Authorization")), " ")
	if !ok || !strings.EqualFold(scheme, "bearer") {
		return "", false
	}
	token = strings.TrimSpace(token)
	return token, token != ""
}

// GetPrincipal returns the authenticated caller, if any.
func GetPrincipal(ctx context.Context) (Principal, bool) {
	p, ok := ctx.Value(principalKey).(Principal)
	return p, ok
}

// GetUserID returns the wallet owner of the request, or uuid.Nil outside Auth.
func GetUserID(ctx context.Context) uuid.UUID {
	p, _ := GetPrincipal(ctx)
	return p.UserID
}

func GetRole(ctx context.Context) string {
	p, _ := GetPrincipal(ctx)
	return string(p.Role)
}

// RequireRole lets the request through only for the listed roles.
func RequireRole(roles ...user.Role) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			p, _ := GetPrincipal(r.Context())
			for _, role := range roles {
				if p.Role == role {
					next.ServeHTTP(w, r)
					return
				}
			}

			logger.FromContext(r.Context()).Warn().Str("path", r.URL.Path).Msg("role not permitted")
			response.Forbidden(w, "Insufficient permissions")
		})
	}
}

// RequireAdmin guards refunds, audit logs and the other operator routes.
func RequireAdmin() func(http.Handler) http.Handler {
	return RequireRole(user.RoleAdmin)
}
