package middleware

import (
	"context"
	"net/http"

	"github.com/google/uuid"

	"github.com/nkiryanov/escrowledger/internal/handlers/profilectx"
	"github.com/nkiryanov/escrowledger/internal/handlers/render"
)

type authService interface {
	Auth(ctx context.Context, r *http.Request) (uuid.UUID, error)
}

func AuthMiddleware(as authService) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			profileID, err := as.Auth(r.Context(), r)
			if err != nil {
				render.ServiceError(w, "Unauthorized", http.StatusUnauthorized)
				return
			}
			ctx := profilectx.New(r.Context(), profileID)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
