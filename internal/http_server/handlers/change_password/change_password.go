package changepassword

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
	"uptask/internal/middleware/authn"

	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/render"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
)

type Request struct {
	CurrentPassword      string `json:"current_password" validate:"required"`
	Password             string `json:"password" validate:"required,min=8"`
	PasswordConfirmation string `json:"password_confirmation" validate:"required,eqfield=Password"`
}

type PasswordChanger interface {
	UpdateCurrentUserPassword(ctx context.Context, userID uuid.UUID, current, password string) error
}

func New(log *slog.Logger, validate *validator.Validate, svc PasswordChanger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		const op = "handlers.changePassword.New"

		log := log.With(
			slog.String("op", op),
			slog.String("request_id", middleware.GetReqID(r.Context())),
		)

		user, _ := authn.UserFromContext(r.Context())

		var req Request
		if !request.Decode(w, r, log, validate, &req) {
			return
		}

		ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
		defer cancel()

		if err := svc.UpdateCurrentUserPassword(ctx, user.ID, req.CurrentPassword, req.Password); err != nil {
			if errors.Is(err, auth.ErrInvalidCredentials) {
				render.Status(r, http.StatusUnauthorized)
				render.JSON(w, r, resp.Error("Current password is incorrect"))

				return
			}

			log.Error("failed to change password", sl.Err(err))

			render.Status(r, http.StatusInternalServerError)
			render.JSON(w, r, resp.Error("Internal error"))

			return
		}

		render.JSON(w, r, resp.Message("Password updated"))
	}
}
