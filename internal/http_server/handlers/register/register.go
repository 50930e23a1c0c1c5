package register

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
	"uptask/internal/models"

	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/render"
	"github.com/go-playground/validator/v10"
)

type Request struct {
	Name                 string `json:"name" validate:"required,max=100"`
	Email                string `json:"email" validate:"required,email"`
	Password             string `json:"password" validate:"required,min=8"`
	PasswordConfirmation string `json:"password_confirmation" validate:"required,eqfield=Password"`
}

type AccountCreator interface {
	CreateAccount(ctx context.Context, acc auth.NewAccount) (models.User, error)
}

// New godoc
// @Summary      Регистрация пользователя
// @Description  Создает неподтвержденный аккаунт и отправляет на почту шестизначный код подтверждения.
// @Description  Письмо отправляется асинхронно через RabbitMQ, ошибка отправки не влияет на ответ.
// @Tags         auth
// @Accept       json
// @Produce      json
// @Success      201  {object}  object{status=string,message=string}
// @Failure      400  {object}  object{status=string,error=string}  "Ошибка валидации"
// @Failure      409  {object}  object{status=string,error=string}  "Пользователь уже зарегистрирован"
// @Failure      500  {object}  object{status=string,error=string}  "Внутренняя ошибка сервера"
// @Router       /auth/create-account [post]
func New(
	log *slog.Logger,
	validate *validator.Validate,
	creator AccountCreator,
) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		const op = "handlers.register.New"

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

		user, err := creator.CreateAccount(ctx, auth.NewAccount{
			Name:     req.Name,
			Email:    req.Email,
			Password: req.Password,
		})
		if err != nil {
			if errors.Is(err, auth.ErrUserExists) {
				render.Status(r, http.StatusConflict)
				render.JSON(w, r, resp.Error("User already registered"))

				return
			}

			log.Error("failed to register user", sl.Err(err))

			render.Status(r, http.StatusInternalServerError)
			render.JSON(w, r, resp.Error("Internal error"))

			return
		}

		log.Info("User registered", slog.String("id", user.ID.String()))

		render.Status(r, http.StatusCreated)
		render.JSON(w, r, resp.Message("Account created, check your email to confirm it"))
	}
}
