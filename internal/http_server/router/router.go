package router

import (
	"log/slog"
	"net/http"

	"uptask/internal/auth"
	changepassword "uptask/internal/http_server/handlers/change_password"
	"uptask/internal/http_server/handlers/confirm"
	currentuser "uptask/internal/http_server/handlers/current_user"
	forgotpassword "uptask/internal/http_server/handlers/forgot_password"
	"uptask/internal/http_server/handlers/login"
	notesapi "uptask/internal/http_server/handlers/notes"
	"uptask/internal/http_server/handlers/profile"
	projectsapi "uptask/internal/http_server/handlers/projects"
	"uptask/internal/http_server/handlers/register"
	requestcode "uptask/internal/http_server/handlers/request_code"
	resetpassword "uptask/internal/http_server/handlers/reset_password"
	tasksapi "uptask/internal/http_server/handlers/tasks"
	validatetoken "uptask/internal/http_server/handlers/validate_token"
	resp "uptask/internal/lib/api/response"
	"uptask/internal/middleware/access"
	"uptask/internal/middleware/authn"
	"uptask/internal/middleware/ratelimit"
	"uptask/internal/notes"
	"uptask/internal/projects"
	"uptask/internal/tasks"

	"github.com/go-chi/chi"
	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/render"
	"github.com/go-playground/validator/v10"
)

type Services struct {
	Auth     *auth.Auth
	Projects *projects.Projects
	Tasks    *tasks.Tasks
	Notes    *notes.Notes
}

func New(
	log *slog.Logger,
	validate *validator.Validate,
	sessionSecret string,
	svc Services,
) *chi.Mux {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		render.JSON(w, r, resp.OK())
	})

	requireUser := authn.New(log, sessionSecret, svc.Auth)

	r.Route("/api", func(r chi.Router) {
		r.Route("/auth", func(r chi.Router) {
			r.With(ratelimit.CreateAccount()).
				Post("/create-account", register.New(log, validate, svc.Auth))
			r.With(ratelimit.ConfirmAccount()).
				Post("/confirm-account", confirm.New(log, validate, svc.Auth))
			r.With(ratelimit.RequestCode()).
				Post("/request-code", requestcode.New(log, validate, svc.Auth))
			r.With(ratelimit.Login()).
				Post("/login", login.New(log, validate, svc.Auth))
			r.With(ratelimit.RequestCode()).
				Post("/forgot-password", forgotpassword.New(log, validate, svc.Auth))
			r.With(ratelimit.TokenCheck()).
				Post("/validate-token", validatetoken.New(log, validate, svc.Auth))
			r.With(ratelimit.TokenCheck()).
				Post("/update-password/{token}", resetpassword.New(log, validate, svc.Auth))

			r.Group(func(r chi.Router) {
				r.Use(requireUser)

				r.Get("/user", currentuser.New())
				r.Put("/profile", profile.New(log, validate, svc.Auth))
				r.Post("/update-password", changepassword.New(log, validate, svc.Auth))
			})
		})

		r.Route("/projects", func(r chi.Router) {
			r.Use(requireUser)

			r.Post("/", projectsapi.Create(log, validate, svc.Projects))
			r.Get("/", projectsapi.List(log, svc.Projects))

			r.Route("/{projectId}", func(r chi.Router) {
				r.Use(access.ProjectExists(log, svc.Projects))

				r.Get("/", projectsapi.Get(log, svc.Projects))
				r.With(access.ManagerOnly).Put("/", projectsapi.Update(log, validate, svc.Projects))
				r.With(access.ManagerOnly).Delete("/", projectsapi.Delete(log, svc.Projects))

				r.Route("/team", func(r chi.Router) {
					r.Get("/", projectsapi.Team(log, svc.Projects))
					r.With(access.ManagerOnly).Post("/", projectsapi.AddMember(log, validate, svc.Projects))
					r.With(access.ManagerOnly).Delete("/{userId}", projectsapi.RemoveMember(log, svc.Projects))
				})

				r.Route("/tasks", func(r chi.Router) {
					r.With(access.ManagerOnly).Post("/", tasksapi.Create(log, validate, svc.Tasks))
					r.Get("/", tasksapi.List(log, svc.Tasks))

					r.Route("/{taskId}", func(r chi.Router) {
						r.Use(access.TaskExists(log, svc.Tasks))

						r.Get("/", tasksapi.Get())
						r.With(access.ManagerOnly).Put("/", tasksapi.Update(log, validate, svc.Tasks))
						r.With(access.ManagerOnly).Delete("/", tasksapi.Delete(log, svc.Tasks))
						r.Post("/status", tasksapi.UpdateStatus(log, validate, svc.Tasks))

						r.Post("/notes", notesapi.Create(log, validate, svc.Notes))
						r.Get("/notes", notesapi.List(log, svc.Notes))
						r.Delete("/notes/{noteId}", notesapi.Delete(log, svc.Notes))
					})
				})
			})
		})
	})

	return r
}
