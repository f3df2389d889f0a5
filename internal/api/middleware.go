/**
 * @description
 * This file contains custom middleware for the HTTP router: JWT authentication,
 * the shared-secret guard for internal endpoints, and Redis-backed rate
 * limiting for money-moving routes.
 *
 * @dependencies
 * - context, net/http, strings: Standard Go libraries.
 * - github.com/golang-jwt/jwt/v5: JWT parsing and validation.
 */

package api

import (
	"context"
	"crypto/subtle"
	"fmt"
	"log"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/nsiahkofidennis001-cloud/savegoal-backend/internal/app"
)

// authContextKey is a custom type for context keys to avoid collisions.
type authContextKey string

const (
	userIDKey   authContextKey = "userID"
	userRoleKey authContextKey = "userRole"
)

// RoleAdmin is the role claim value required by the admin route group.
const RoleAdmin = "ADMIN"

// AuthMiddleware validates the bearer token and places the subject's UUID and
// role on the request context.
func AuthMiddleware(jwtSecret string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			authHeader := r.Header.Get("Authorization")
			if authHeader == "" {
				http.Error(w, "Authorization header required", http.StatusUnauthorized)
				return
			}

			tokenString := strings.TrimPrefix(authHeader, "Bearer ")
			if tokenString == authHeader {
				http.Error(w, "Invalid Authorization header format", http.StatusUnauthorized)
				return
			}

			token, err := jwt.Parse(tokenString, func(token *jwt.Token) (interface{}, error) {
				if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
					return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
				}
				return []byte(jwtSecret), nil
			})
			if err != nil {
				http.Error(w, fmt.Sprintf("Invalid token: %v", err), http.StatusUnauthorized)
				return
			}
			if !token.Valid {
				http.Error(w, "Invalid token", http.StatusUnauthorized)
				return
			}

			claims, ok := token.Claims.(jwt.MapClaims)
			if !ok {
				http.Error(w, "Invalid token claims", http.StatusUnauthorized)
				return
			}

			sub, ok := claims["sub"].(string)
			if !ok {
				http.Error(w, "User ID not found in token", http.StatusUnauthorized)
				return
			}
			userID, err := uuid.Parse(sub)
			if err != nil {
				http.Error(w, "Invalid user ID format in token", http.StatusUnauthorized)
				return
			}

			role, _ := claims["role"].(string)

			ctx := context.WithValue(r.Context(), userIDKey, userID)
			ctx = context.WithValue(ctx, userRoleKey, role)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// RequireAdmin rejects requests whose token does not carry the admin role.
func RequireAdmin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		role, _ := r.Context().Value(userRoleKey).(string)
		if !strings.EqualFold(role, RoleAdmin) {
			http.Error(w, "Admin access required", http.StatusForbidden)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// InternalAPIKeyMiddleware guards service-to-service endpoints with a shared
// secret carried in the X-Internal-API-Key header.
func InternalAPIKeyMiddleware(apiKey string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if apiKey == "" {
				http.Error(w, "Internal endpoints are not configured", http.StatusServiceUnavailable)
				return
			}
			provided := strings.TrimSpace(r.Header.Get("X-Internal-API-Key"))
			if subtle.ConstantTimeCompare([]byte(provided), []byte(apiKey)) != 1 {
				http.Error(w, "Invalid internal API key", http.StatusUnauthorized)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// RateLimitMiddleware limits requests per authenticated user per minute for a
// named scope. A limiter error fails open so Redis downtime never blocks the
// ledger.
func RateLimitMiddleware(limiter app.RateLimiter, scope string, perMinute int) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if limiter == nil || perMinute <= 0 {
				next.ServeHTTP(w, r)
				return
			}
			userID, ok := GetUserID(r.Context())
			if !ok {
				next.ServeHTTP(w, r)
				return
			}
			count, retryAfter, err := limiter.ConsumeRateLimit(r.Context(), scope, userID.String(), perMinute, time.Minute)
			if err != nil {
				log.Printf("level=warn component=api msg=\"rate limiter unavailable; allowing request\" scope=%s err=%v", scope, err)
				next.ServeHTTP(w, r)
				return
			}
			if count > perMinute {
				w.Header().Set("Retry-After", strconv.Itoa(retryAfter))
				http.Error(w, "Too many requests", http.StatusTooManyRequests)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// GetUserID retrieves the authenticated user's ID from the request context.
func GetUserID(ctx context.Context) (uuid.UUID, bool) {
	userID, ok := ctx.Value(userIDKey).(uuid.UUID)
	return userID, ok
}
