package resetpassword

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"uptask/internal/auth"
	"uptask/internal/lib/api/request"
	resp "uptask/internal/lib/api/response"
	sl "uptask/internal/lib/logger"

	"github.com/go-chi/chi"
	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/render"
	"github.com/go-playground/validator/v10"
)

type Request struct {
	Password             string `json:"password" validate:"required,min=8"`
	PasswordConfirmation string `json:"password_confirmation" validate:"required,eqfield=Password"`
}

type PasswordResetter interface {
	UpdatePasswordWithToken(ctx context.Context, token, password string) error
}

// New handles POST /auth/update-password/{token}.
func New(log *slog.Logger, validate *validator.Validate, svc PasswordResetter) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		const op = "handlers.resetPassword.New"

		log := log.With(
			slog.String("op", op),
			slog.String("request_id", middleware.GetReqID(r.Context())),
		)

		token := chi.URLParam(r, "token")
		if err := validate.Var(token, "required,len=6,numeric"); err != nil {
			render.Status(r, http.StatusNotFound)
			render.JSON(w, r, resp.Error("Invalid or expired token"))

			return
		}

		var req Request
		if !request.Decode(w, r, log, validate, &req) {
			return
		}

		ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
		defer cancel()

		if err := svc.UpdatePasswordWithToken(ctx, token, req.Password); err != nil {
			if errors.Is(err, auth.ErrTokenNotFound) {
				render.Status(r, http.StatusNotFound)
				render.JSON(w, r, resp.Error("Invalid or expired token"))

				return
			}

			log.Error("failed to reset password", sl.Err(err))

			render.Status(r, http.StatusInternalServerError)
			render.JSON(w, r, resp.Error("Internal error"))

			return
		}

		log.Info("password reset with token")

		render.JSON(w, r, resp.Message("Password updated"))
	}
}
