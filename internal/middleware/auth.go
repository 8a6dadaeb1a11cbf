package middleware

import (
	"encoding/json"
	"net/http"
	"strings"

	"gridbase/internal/domain"
)

// AuthMiddleware authenticates requests with a Bearer JWT through the given
// validator and stores the resulting principal in the request context.
// nameClaim selects which claim becomes the principal's username ("sub" by
// default). Requests without a valid token get a 401 JSON response.
func AuthMiddleware(validator JWTValidator, nameClaim string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if auth := r.Header.Get("Authorization"); strings.HasPrefix(auth, "Bearer ") {
				tokenStr := strings.TrimPrefix(auth, "Bearer ")
				claims, err := validator.Validate(r.Context(), tokenStr)
				if err == nil {
					if username := principalName(claims, nameClaim); username != "" {
						ctx := domain.WithPrincipal(r.Context(), domain.Principal{Username: username})
						next.ServeHTTP(w, r.WithContext(ctx))
						return
					}
				}
			}

			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusUnauthorized)
			_ = json.NewEncoder(w).Encode(map[string]any{
				"code":    401,
				"message": "unauthorized: provide a valid JWT Bearer token",
			})
		})
	}
}

func principalName(claims *JWTClaims, nameClaim string) string {
	if nameClaim == "" || nameClaim == "sub" {
		return claims.Subject
	}
	if v, ok := claims.Raw[nameClaim].(string); ok {
		return v
	}
	return ""
}
