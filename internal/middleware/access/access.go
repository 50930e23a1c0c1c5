// Package access resolves the project and task named in the URL and checks
// that the acting user may reach them.
package access

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	resp "uptask/internal/lib/api/response"
	sl "uptask/internal/lib/logger"
	"uptask/internal/middleware/authn"
	"uptask/internal/models"
	"uptask/internal/projects"
	"uptask/internal/tasks"

	"github.com/go-chi/chi"
	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/render"
	"github.com/google/uuid"
)

type (
	projectKey struct{}
	taskKey    struct{}
)

type ProjectProvider interface {
	Project(ctx context.Context, id uuid.UUID) (models.Project, error)
}

type TaskProvider interface {
	Task(ctx context.Context, id uuid.UUID) (models.Task, error)
}

// ProjectExists loads {projectId}. Users outside the project get 401.
func ProjectExists(log *slog.Logger, provider ProjectProvider) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			const op = "middleware.access.ProjectExists"

			log := log.With(
				slog.String("op", op),
				slog.String("request_id", middleware.GetReqID(r.Context())),
			)

			id, err := uuid.Parse(chi.URLParam(r, "projectId"))
			if err != nil {
				fail(w, r, http.StatusBadRequest, "Invalid project id")
				return
			}

			project, err := provider.Project(r.Context(), id)
			if err != nil {
				if errors.Is(err, projects.ErrProjectNotFound) {
					fail(w, r, http.StatusNotFound, "Project not found")
					return
				}

				log.Error("failed to load project", sl.Err(err))
				fail(w, r, http.StatusInternalServerError, "Internal error")
				return
			}

			user, ok := authn.UserFromContext(r.Context())
			if !ok || !project.HasMember(user.ID) {
				fail(w, r, http.StatusUnauthorized, "Access denied")
				return
			}

			ctx := WithProject(r.Context(), project)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// TaskExists loads {taskId} and requires it to belong to the resolved project.
func TaskExists(log *slog.Logger, provider TaskProvider) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			const op = "middleware.access.TaskExists"

			log := log.With(
				slog.String("op", op),
				slog.String("request_id", middleware.GetReqID(r.Context())),
			)

			id, err := uuid.Parse(chi.URLParam(r, "taskId"))
			if err != nil {
				fail(w, r, http.StatusBadRequest, "Invalid task id")
				return
			}

			task, err := provider.Task(r.Context(), id)
			if err != nil {
				if errors.Is(err, tasks.ErrTaskNotFound) {
					fail(w, r, http.StatusNotFound, "Task not found")
					return
				}

				log.Error("failed to load task", sl.Err(err))
				fail(w, r, http.StatusInternalServerError, "Internal error")
				return
			}

			project, ok := ProjectFromContext(r.Context())
			if !ok || task.ProjectID != project.ID {
				fail(w, r, http.StatusNotFound, "Task not found")
				return
			}

			ctx := WithTask(r.Context(), task)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// ManagerOnly lets through only the manager of the resolved project.
func ManagerOnly(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		user, _ := authn.UserFromContext(r.Context())
		project, ok := ProjectFromContext(r.Context())

		if !ok || project.Manager != user.ID {
			fail(w, r, http.StatusUnauthorized, "Only the project manager can do that")
			return
		}

		next.ServeHTTP(w, r)
	})
}

func ProjectFromContext(ctx context.Context) (models.Project, bool) {
	project, ok := ctx.Value(projectKey{}).(models.Project)
	return project, ok
}

func TaskFromContext(ctx context.Context) (models.Task, bool) {
	task, ok := ctx.Value(taskKey{}).(models.Task)
	return task, ok
}

func WithProject(ctx context.Context, project models.Project) context.Context {
	return context.WithValue(ctx, projectKey{}, project)
}

func WithTask(ctx context.Context, task models.Task) context.Context {
	return context.WithValue(ctx, taskKey{}, task)
}

func fail(w http.ResponseWriter, r *http.Request, status int, msg string) {
	render.Status(r, status)
	render.JSON(w, r, resp.Error(msg))
}
