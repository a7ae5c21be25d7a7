package middleware

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"satupapan/internal/protocol"
	"satupapan/pkg/logger"

	"github.com/golang-jwt/jwt/v5"
)

type contextKey string

const (
	UserIDKey   contextKey = "userID"
	IdentityKey contextKey = "identity"
)

// UserID returns the authenticated user id, or "" outside AuthMiddleware.
func UserID(ctx context.Context) string {
	id, _ := ctx.Value(UserIDKey).(string)
	return id
}

// IdentityFrom returns the identity built from the token claims.
func IdentityFrom(ctx context.Context) protocol.Identity {
	ident, _ := ctx.Value(IdentityKey).(protocol.Identity)
	return ident
}

// AuthMiddleware validates an HMAC-signed JWT taken from the "token" query parameter (browsers
// cannot set headers on websocket requests) or the Authorization header.
func AuthMiddleware(secret string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			tokenString := r.URL.Query().Get("token")
			if tokenString == "" {
				authHeader := r.Header.Get("Authorization")
				tokenString = strings.TrimPrefix(authHeader, "Bearer ")
			}

			if tokenString == "" {
				http.Error(w, "Unauthorized: No token provided", http.StatusUnauthorized)
				return
			}

			token, err := jwt.Parse(tokenString, func(token *jwt.Token) (interface{}, error) {
				if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
					return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
				}
				if secret == "" {
					logger.Sugar.Error("JWT_SECRET is not set; rejecting every token")
					return nil, fmt.Errorf("server is not configured to validate JWTs")
				}
				return []byte(secret), nil
			})
			if err != nil || !token.Valid {
				logger.Sugar.Warnf("Invalid token: %v", err)
				http.Error(w, "Unauthorized: Invalid or expired token", http.StatusUnauthorized)
				return
			}

			claims, ok := token.Claims.(jwt.MapClaims)
			if !ok {
				http.Error(w, "Unauthorized: Could not parse token claims", http.StatusUnauthorized)
				return
			}
			identity, ok := identityFromClaims(claims)
			if !ok {
				http.Error(w, "Unauthorized: User ID (sub) claim is missing or invalid", http.StatusUnauthorized)
				return
			}

			ctx := context.WithValue(r.Context(), UserIDKey, identity.ID)
			ctx = context.WithValue(ctx, IdentityKey, identity)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// identityFromClaims reads sub plus the display fields. Supabase puts them under user_metadata.
func identityFromClaims(claims jwt.MapClaims) (protocol.Identity, bool) {
	sub, ok := claims["sub"].(string)
	if !ok || sub == "" {
		return protocol.Identity{}, false
	}
	ident := protocol.Identity{ID: sub}

	meta, _ := claims["user_metadata"].(map[string]interface{})
	ident.Name = firstString(claims["name"], meta["full_name"], meta["name"], claims["email"])
	ident.Avatar = firstString(claims["picture"], meta["avatar_url"])
	if ident.Name == "" {
		ident.Name = sub
	}
	return ident, true
}

func firstString(values ...interface{}) string {
	for _, v := range values {
		if s, ok := v.(string); ok && s != "" {
			return s
		}
	}
	return ""
}
