package requestcode

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
	Email string `json:"email" validate:"required,email"`
}

type CodeRequester interface {
	RequestConfirmationCode(ctx context.Context, email string) error
}

// New godoc
// @Summary      Повторная отправка кода подтверждения
// @Description  Выдает новый код подтверждения и отправляет его на почту. Старые коды остаются действительными до истечения срока.
// @Tags         auth
// @Accept       json
// @Produce      json
// @Success      200  {object}  object{status=string,message=string}
// @Failure      400  {object}  object{status=string,error=string}  "Ошибка валидации"
// @Failure      404  {object}  object{status=string,error=string}  "Пользователь не найден"
// @Failure      409  {object}  object{status=string,error=string}  "Аккаунт уже подтвержден"
// @Failure      500  {object}  object{status=string,error=string}  "Внутренняя ошибка сервера"
// @Router       /auth/request-code [post]
func New(log *slog.Logger, validate *validator.Validate, requester CodeRequester) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		const op = "handlers.requestCode.New"

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

		err := requester.RequestConfirmationCode(ctx, req.Email)
		switch {
		case err == nil:
			render.JSON(w, r, resp.Message("A new code was sent to your email"))
		case errors.Is(err, auth.ErrUserNotFound):
			render.Status(r, http.StatusNotFound)
			render.JSON(w, r, resp.Error("User not found"))
		case errors.Is(err, auth.ErrAlreadyConfirmed):
			render.Status(r, http.StatusConflict)
			render.JSON(w, r, resp.Error("Account already confirmed"))
		default:
			log.Error("failed to issue confirmation code", sl.Err(err))

			render.Status(r, http.StatusInternalServerError)
			render.JSON(w, r, resp.Error("Internal error"))
		}
	}
}
