// Package projects serves the project and team endpoints. Routes under
// /projects/{projectId} expect the project in the request context.
package projects

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"uptask/internal/lib/api/request"
	resp "uptask/internal/lib/api/response"
	sl "uptask/internal/lib/logger"
	"uptask/internal/middleware/access"
	"uptask/internal/middleware/authn"
	"uptask/internal/models"
	"uptask/internal/projects"

	"github.com/go-chi/chi"
	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/render"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
)

type Request struct {
	ProjectName string `json:"project_name" validate:"required,max=200"`
	ClientName  string `json:"client_name" validate:"required,max=200"`
	Description string `json:"description" validate:"required,max=2000"`
}

func (r Request) input() projects.Input {
	return projects.Input{
		ProjectName: r.ProjectName,
		ClientName:  r.ClientName,
		Description: r.Description,
	}
}

type MemberRequest struct {
	Email string `json:"email" validate:"required,email"`
}

type ProjectResponse struct {
	resp.Response
	Project any `json:"project"`
}

type ListResponse struct {
	resp.Response
	Projects []models.Project `json:"projects"`
}

type TeamResponse struct {
	resp.Response
	Team []models.UserRef `json:"team"`
}

type Service interface {
	CreateProject(ctx context.Context, managerID uuid.UUID, in projects.Input) (models.Project, error)
	Projects(ctx context.Context, userID uuid.UUID) ([]models.Project, error)
	Details(ctx context.Context, project models.Project) (projects.Details, error)
	UpdateProject(ctx context.Context, project models.Project, in projects.Input) (models.Project, error)
	DeleteProject(ctx context.Context, id uuid.UUID) error
	Team(ctx context.Context, project models.Project) ([]models.UserRef, error)
	AddMember(ctx context.Context, project models.Project, email string) error
	RemoveMember(ctx context.Context, project models.Project, userID uuid.UUID) error
}

func Create(log *slog.Logger, validate *validator.Validate, svc Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		log := withOp(log, r, "handlers.projects.Create")
		user, _ := authn.UserFromContext(r.Context())

		var req Request
		if !request.Decode(w, r, log, validate, &req) {
			return
		}

		ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
		defer cancel()

		project, err := svc.CreateProject(ctx, user.ID, req.input())
		if err != nil {
			internalError(w, r, log, "failed to create project", err)
			return
		}

		log.Info("project created", slog.String("project_id", project.ID.String()))

		render.Status(r, http.StatusCreated)
		render.JSON(w, r, ProjectResponse{Response: resp.Message("Project created"), Project: project})
	}
}

func List(log *slog.Logger, svc Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		log := withOp(log, r, "handlers.projects.List")
		user, _ := authn.UserFromContext(r.Context())

		ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
		defer cancel()

		list, err := svc.Projects(ctx, user.ID)
		if err != nil {
			internalError(w, r, log, "failed to list projects", err)
			return
		}

		render.JSON(w, r, ListResponse{Response: resp.OK(), Projects: list})
	}
}

func Get(log *slog.Logger, svc Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		log := withOp(log, r, "handlers.projects.Get")
		project, _ := access.ProjectFromContext(r.Context())

		ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
		defer cancel()

		details, err := svc.Details(ctx, project)
		if err != nil {
			internalError(w, r, log, "failed to load project", err)
			return
		}

		render.JSON(w, r, ProjectResponse{Response: resp.OK(), Project: details})
	}
}

func Update(log *slog.Logger, validate *validator.Validate, svc Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		log := withOp(log, r, "handlers.projects.Update")
		project, _ := access.ProjectFromContext(r.Context())

		var req Request
		if !request.Decode(w, r, log, validate, &req) {
			return
		}

		ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
		defer cancel()

		if _, err := svc.UpdateProject(ctx, project, req.input()); err != nil {
			serviceError(w, r, log, err)
			return
		}

		render.JSON(w, r, resp.Message("Project updated"))
	}
}

func Delete(log *slog.Logger, svc Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		log := withOp(log, r, "handlers.projects.Delete")
		project, _ := access.ProjectFromContext(r.Context())

		ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
		defer cancel()

		if err := svc.DeleteProject(ctx, project.ID); err != nil {
			serviceError(w, r, log, err)
			return
		}

		render.JSON(w, r, resp.Message("Project deleted"))
	}
}

func Team(log *slog.Logger, svc Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		log := withOp(log, r, "handlers.projects.Team")
		project, _ := access.ProjectFromContext(r.Context())

		ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
		defer cancel()

		team, err := svc.Team(ctx, project)
		if err != nil {
			internalError(w, r, log, "failed to load team", err)
			return
		}

		render.JSON(w, r, TeamResponse{Response: resp.OK(), Team: team})
	}
}

func AddMember(log *slog.Logger, validate *validator.Validate, svc Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		log := withOp(log, r, "handlers.projects.AddMember")
		project, _ := access.ProjectFromContext(r.Context())

		var req MemberRequest
		if !request.Decode(w, r, log, validate, &req) {
			return
		}

		ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
		defer cancel()

		if err := svc.AddMember(ctx, project, req.Email); err != nil {
			serviceError(w, r, log, err)
			return
		}

		render.JSON(w, r, resp.Message("Member added"))
	}
}

func RemoveMember(log *slog.Logger, svc Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		log := withOp(log, r, "handlers.projects.RemoveMember")
		project, _ := access.ProjectFromContext(r.Context())

		userID, err := uuid.Parse(chi.URLParam(r, "userId"))
		if err != nil {
			render.Status(r, http.StatusBadRequest)
			render.JSON(w, r, resp.Error("Invalid user id"))
			return
		}

		ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
		defer cancel()

		if err := svc.RemoveMember(ctx, project, userID); err != nil {
			serviceError(w, r, log, err)
			return
		}

		render.JSON(w, r, resp.Message("Member removed"))
	}
}

func serviceError(w http.ResponseWriter, r *http.Request, log *slog.Logger, err error) {
	switch {
	case errors.Is(err, projects.ErrProjectNotFound):
		render.Status(r, http.StatusNotFound)
		render.JSON(w, r, resp.Error("Project not found"))
	case errors.Is(err, projects.ErrUserNotFound):
		render.Status(r, http.StatusNotFound)
		render.JSON(w, r, resp.Error("User not found"))
	case errors.Is(err, projects.ErrNotMember):
		render.Status(r, http.StatusNotFound)
		render.JSON(w, r, resp.Error("User is not a member of the project"))
	case errors.Is(err, projects.ErrAlreadyMember):
		render.Status(r, http.StatusConflict)
		render.JSON(w, r, resp.Error("User already belongs to the project"))
	default:
		internalError(w, r, log, "project operation failed", err)
	}
}

func internalError(w http.ResponseWriter, r *http.Request, log *slog.Logger, msg string, err error) {
	log.Error(msg, sl.Err(err))

	render.Status(r, http.StatusInternalServerError)
	render.JSON(w, r, resp.Error("Internal error"))
}

func withOp(log *slog.Logger, r *http.Request, op string) *slog.Logger {
	return log.With(
		slog.String("op", op),
		slog.String("request_id", middleware.GetReqID(r.Context())),
	)
}
