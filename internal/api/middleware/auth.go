package middleware

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/golang-jwt/jwt/v5"

	"github.com/florencygajera/CRM-backend/internal/domain/auth"
)

// tokenClaims is the JWT payload issued at login
type tokenClaims struct {
	TenantID string `json:"tenant_id"`
	UserID   string `json:"user_id"`
	Role     string `json:"role"`
	jwt.RegisteredClaims
}

// AuthMiddleware parses the bearer token, resolves the caller's branch from
// the X-Branch-ID header and attaches the auth context to the request.
// Requests without a valid token or branch are rejected at the boundary;
// handlers and services may assume the context is present and scoped.
func AuthMiddleware(jwtSecret string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			header := r.Header.Get("Authorization")
			if !strings.HasPrefix(header, "Bearer ") {
				unauthorized(w, "missing bearer token")
				return
			}
			tokenString := strings.TrimPrefix(header, "Bearer ")

			claims := &tokenClaims{}
			token, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (interface{}, error) {
				if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
					return nil, jwt.ErrSignatureInvalid
				}
				return []byte(jwtSecret), nil
			})
			if err != nil || !token.Valid {
				unauthorized(w, "invalid token")
				return
			}
			if claims.TenantID == "" || claims.UserID == "" {
				unauthorized(w, "token carries no tenant")
				return
			}

			branchID := r.Header.Get("X-Branch-ID")
			if branchID == "" {
				unauthorized(w, "X-Branch-ID header is required")
				return
			}

			scope := auth.Context{
				TenantID: claims.TenantID,
				BranchID: branchID,
				UserID:   claims.UserID,
				Role:     auth.Role(strings.ToUpper(claims.Role)),
			}
			next.ServeHTTP(w, r.WithContext(auth.WithContext(r.Context(), scope)))
		})
	}
}

func unauthorized(w http.ResponseWriter, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusUnauthorized)
	json.NewEncoder(w).Encode(map[string]string{"error": message})
}
