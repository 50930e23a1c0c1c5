// Package authn resolves the acting user from the bearer session token.
package authn

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	resp "uptask/internal/lib/api/response"
	"uptask/internal/lib/jwt"
	sl "uptask/internal/lib/logger"
	"uptask/internal/models"

	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/render"
	"github.com/google/uuid"
)

type ctxKey struct{}

type UserProvider interface {
	User(ctx context.Context, id uuid.UUID) (models.User, error)
}

// New rejects requests without a valid "Authorization: Bearer <jwt>" header
// and stores the resolved user in the request context.
func New(log *slog.Logger, secret string, users UserProvider) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			const op = "middleware.authn"

			log := log.With(
				slog.String("op", op),
				slog.String("request_id", middleware.GetReqID(r.Context())),
			)

			raw, ok := bearer(r)
			if !ok {
				unauthorized(w, r)
				return
			}

			userID, err := jwt.ParseToken(raw, secret)
			if err != nil {
				log.Info("invalid session token", sl.Err(err))
				unauthorized(w, r)
				return
			}

			user, err := users.User(r.Context(), userID)
			if err != nil {
				if !errors.Is(err, context.Canceled) {
					log.Warn("session user not resolved", sl.Err(err))
				}
				unauthorized(w, r)
				return
			}

			ctx := WithUser(r.Context(), user)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// UserFromContext returns the user stored by New.
func UserFromContext(ctx context.Context) (models.User, bool) {
	user, ok := ctx.Value(ctxKey{}).(models.User)
	return user, ok
}

// WithUser stores the user the same way New does.
func WithUser(ctx context.Context, user models.User) context.Context {
	return context.WithValue(ctx, ctxKey{}, user)
}

func bearer(r *http.Request) (string, bool) {
	header := r.Header.Get("Authorization")

	scheme, token, found := strings.Cut(header, " ")
	if !found || !strings.EqualFold(scheme, "Bearer") || strings.TrimSpace(token) == "" {
		return "", false
	}

	return strings.TrimSpace(token), true
}

func unauthorized(w http.ResponseWriter, r *http.Request) {
	render.Status(r, http.StatusUnauthorized)
	render.JSON(w, r, resp.Error("Unauthorized"))
}
