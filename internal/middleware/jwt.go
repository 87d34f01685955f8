package middleware

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/golang-jwt/jwt/v5"

	"github.com/taskchat/taskchat/internal/httputil"
	"github.com/taskchat/taskchat/internal/logging"
)

// ErrInvalidToken is returned when token verification fails.
var ErrInvalidToken = errors.New("invalid token")

// ContextKey is a type for context keys
type ContextKey string

// UserIDKey is the context key for the authenticated user's ID.
const UserIDKey ContextKey = "userId"

// JWTAuth verifies the bearer token on every request and puts the token
// subject into the request context. Missing or invalid tokens get 401.
func JWTAuth(accessSecret, issuer string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			authHeader := r.Header.Get("Authorization")
			if authHeader == "" {
				httputil.Unauthorized(w, "missing authorization header")
				return
			}

			parts := strings.SplitN(authHeader, " ", 2)
			if len(parts) != 2 || !strings.EqualFold(parts[0], "bearer") {
				httputil.Unauthorized(w, "invalid authorization header format")
				return
			}
			tokenString := parts[1]
			if tokenString == "" {
				httputil.Unauthorized(w, "empty token")
				return
			}

			claims, err := ValidateJWT(tokenString, accessSecret)
			if err != nil {
				logging.Warnf("[jwt] token rejected: %v", err)
				httputil.Unauthorized(w, "invalid token")
				return
			}

			if issuer != "" {
				iss, _ := claims.GetIssuer()
				if iss != issuer {
					logging.Warnf("[jwt] wrong issuer: %s", iss)
					httputil.Unauthorized(w, "invalid token issuer")
					return
				}
			}

			sub, err := claims.GetSubject()
			if err != nil || sub == "" {
				httputil.Unauthorized(w, "token has no subject")
				return
			}

			ctx := context.WithValue(r.Context(), UserIDKey, sub)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// ValidateJWT verifies an HMAC-signed token and returns its claims.
func ValidateJWT(tokenString, secret string) (jwt.MapClaims, error) {
	token, err := jwt.Parse(tokenString, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, ErrInvalidToken
		}
		return []byte(secret), nil
	})
	if err != nil {
		return nil, err
	}
	if claims, ok := token.Claims.(jwt.MapClaims); ok && token.Valid {
		return claims, nil
	}
	return nil, ErrInvalidToken
}

// GetUserID extracts the authenticated user ID from context.
func GetUserID(ctx context.Context) string {
	if id, ok := ctx.Value(UserIDKey).(string); ok {
		return id
	}
	return ""
}
