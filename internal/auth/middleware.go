package auth

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/zjoart/go-invest-ledger/internal/key"
	"github.com/zjoart/go-invest-ledger/internal/user"
	"github.com/zjoart/go-invest-ledger/pkg/config"
	"github.com/zjoart/go-invest-ledger/pkg/utils"
)

const apiKeyHeader = "x-api-key"

func JWTMiddleware(cfg config.Config, userRepo user.Repository) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			authHeader := r.Header.Get("Authorization")
			if authHeader == "" {
				utils.BuildErrorResponse(w, http.StatusUnauthorized, "Authorization required", nil)
				return
			}

			tokenString := strings.TrimPrefix(authHeader, "Bearer ")
			token, err := jwt.Parse(tokenString, func(token *jwt.Token) (interface{}, error) {
				if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
					return nil, fmt.Errorf("unexpected signing method")
				}
				return []byte(cfg.JWTSecret), nil
			})

			if err != nil || !token.Valid {
				utils.BuildErrorResponse(w, http.StatusUnauthorized, "Invalid token", nil)
				return
			}

			claims, ok := token.Claims.(jwt.MapClaims)
			if !ok {
				utils.BuildErrorResponse(w, http.StatusUnauthorized, "Invalid token claims", nil)
				return
			}

			userIDStr, ok := claims[utils.UserIDKey].(string)
			if !ok {
				utils.BuildErrorResponse(w, http.StatusUnauthorized, "Invalid user ID in token", nil)
				return
			}

			// role and permissions come from the stored user, not the token
			usr, err := userRepo.FindByID(r.Context(), userIDStr)
			if err != nil {
				utils.BuildErrorResponse(w, http.StatusUnauthorized, "User not found", nil)
				return
			}

			ctx := context.WithValue(r.Context(), utils.UserKey, *usr)
			ctx = context.WithValue(ctx, utils.PermissionsKey, []string{"*"})
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func APIKeyMiddleware(keyRepo key.Repository, userRepo user.Repository) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			apiKeyValue := r.Header.Get(apiKeyHeader)
			if apiKeyValue == "" {
				utils.BuildErrorResponse(w, http.StatusUnauthorized, "API Key required", nil)
				return
			}

			apiKey, err := keyRepo.FindByKey(r.Context(), apiKeyValue)
			if err != nil {
				utils.BuildErrorResponse(w, http.StatusUnauthorized, "Invalid API Key", nil)
				return
			}

			if apiKey.IsRevoked {
				utils.BuildErrorResponse(w, http.StatusUnauthorized, "API Key revoked", nil)
				return
			}

			if time.Now().After(apiKey.ExpiresAt) {
				utils.BuildErrorResponse(w, http.StatusUnauthorized, "API key has expired", nil)
				return
			}

			usr, err := userRepo.FindByID(r.Context(), apiKey.UserID.String())
			if err != nil {
				utils.BuildErrorResponse(w, http.StatusUnauthorized, "Associated user not found", nil)
				return
			}

			if !usr.Role.IsReviewer() {
				utils.BuildErrorResponse(w, http.StatusForbidden, "API keys are limited to agents and admins", nil)
				return
			}

			ctx := context.WithValue(r.Context(), utils.UserKey, *usr)
			ctx = context.WithValue(ctx, utils.PermissionsKey, []string(apiKey.Permissions))
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// UnifiedAuthMiddleware accepts either an API key or a bearer token,
// preferring the key when both are sent.
func UnifiedAuthMiddleware(cfg config.Config, keyRepo key.Repository, userRepo user.Repository) func(http.Handler) http.Handler {
	jwtAuth := JWTMiddleware(cfg, userRepo)
	keyAuth := APIKeyMiddleware(keyRepo, userRepo)

	return func(next http.Handler) http.Handler {
		viaJWT := jwtAuth(next)
		viaKey := keyAuth(next)
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.Header.Get(apiKeyHeader) != "" {
				viaKey.ServeHTTP(w, r)
				return
			}
			viaJWT.ServeHTTP(w, r)
		})
	}
}

func RequireRole(roles ...user.Role) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			usr, ok := r.Context().Value(utils.UserKey).(user.User)
			if !ok {
				utils.BuildErrorResponse(w, http.StatusUnauthorized, "Unauthorized", nil)
				return
			}

			for _, role := range roles {
				if usr.Role == role {
					next.ServeHTTP(w, r)
					return
				}
			}

			utils.BuildErrorResponse(w, http.StatusForbidden, "Insufficient role", nil)
		})
	}
}

func RequirePermission(perm key.Permission) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			perms, ok := r.Context().Value(utils.PermissionsKey).([]string)
			if !ok {
				utils.BuildErrorResponse(w, http.StatusForbidden, "Permissions not found", nil)
				return
			}

			hasPerm := false
			for _, p := range perms {
				if p == "*" || p == string(perm) {
					hasPerm = true
					break
				}
			}

			if !hasPerm {
				utils.BuildErrorResponse(w, http.StatusForbidden, "Insufficient permissions", nil)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}
