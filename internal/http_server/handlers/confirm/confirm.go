package confirm

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

	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/render"
	"github.com/go-playground/validator/v10"
)

type Request struct {
	Token string `json:"token" validate:"required,len=6,numeric"`
}

type AccountConfirmer interface {
	ConfirmAccount(ctx context.Context, token string) error
}

func New(log *slog.Logger, validate *validator.Validate, confirmer AccountConfirmer) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		const op = "handlers.confirm.New"

		log := log.With(
			slog.String("op", op),
			slog.String("request_id", middleware.GetReqID(r.Context())),
		)

		var req Request
		if !request.Decode(w, r, log, validate, &req) {
			return
		}

		ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
		defer cancel()

		if err := confirmer.ConfirmAccount(ctx, req.Token); err != nil {
			if errors.Is(err, auth.ErrTokenNotFound) {
				log.Warn("invalid confirmation token")

				render.Status(r, http.StatusNotFound)
				render.JSON(w, r, resp.Error("Invalid or expired token"))

				return
			}

			log.Error("failed to confirm account", sl.Err(err))

			render.Status(r, http.StatusInternalServerError)
			render.JSON(w, r, resp.Error("Internal error"))

			return
		}

		log.Info("account confirmed")

		render.JSON(w, r, resp.Message("Account confirmed"))
	}
}
