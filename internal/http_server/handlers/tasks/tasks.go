// Package tasks serves the task endpoints under /projects/{projectId}/tasks.
package tasks

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
	"uptask/internal/models"
	"uptask/internal/tasks"

	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/render"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
)

type Request struct {
	Name        string `json:"name" validate:"required,max=200"`
	Description string `json:"description" validate:"required,max=2000"`
}

func (r Request) input() tasks.Input {
	return tasks.Input{Name: r.Name, Description: r.Description}
}

type StatusRequest struct {
	Status string `json:"status" validate:"required,oneof=pending onHold inProgress underReview completed"`
}

type TaskResponse struct {
	resp.Response
	Task models.Task `json:"task"`
}

type ListResponse struct {
	resp.Response
	Tasks []models.Task `json:"tasks"`
}

type Service interface {
	CreateTask(ctx context.Context, projectID uuid.UUID, in tasks.Input) (models.Task, error)
	ProjectTasks(ctx context.Context, projectID uuid.UUID) ([]models.Task, error)
	UpdateTask(ctx context.Context, task models.Task, in tasks.Input) (models.Task, error)
	UpdateStatus(ctx context.Context, task models.Task, status models.TaskStatus) (models.Task, error)
	DeleteTask(ctx context.Context, id uuid.UUID) error
}

func Create(log *slog.Logger, validate *validator.Validate, svc Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		log := withOp(log, r, "handlers.tasks.Create")
		project, _ := access.ProjectFromContext(r.Context())

		var req Request
		if !request.Decode(w, r, log, validate, &req) {
			return
		}

		ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
		defer cancel()

		task, err := svc.CreateTask(ctx, project.ID, req.input())
		if err != nil {
			serviceError(w, r, log, err)
			return
		}

		render.Status(r, http.StatusCreated)
		render.JSON(w, r, TaskResponse{Response: resp.Message("Task created"), Task: task})
	}
}

func List(log *slog.Logger, svc Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		log := withOp(log, r, "handlers.tasks.List")
		project, _ := access.ProjectFromContext(r.Context())

		ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
		defer cancel()

		list, err := svc.ProjectTasks(ctx, project.ID)
		if err != nil {
			serviceError(w, r, log, err)
			return
		}

		render.JSON(w, r, ListResponse{Response: resp.OK(), Tasks: list})
	}
}

// Get needs no service call, the task is already resolved by access.TaskExists.
func Get() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		task, _ := access.TaskFromContext(r.Context())

		render.JSON(w, r, TaskResponse{Response: resp.OK(), Task: task})
	}
}

func Update(log *slog.Logger, validate *validator.Validate, svc Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		log := withOp(log, r, "handlers.tasks.Update")
		task, _ := access.TaskFromContext(r.Context())

		var req Request
		if !request.Decode(w, r, log, validate, &req) {
			return
		}

		ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
		defer cancel()

		if _, err := svc.UpdateTask(ctx, task, req.input()); err != nil {
			serviceError(w, r, log, err)
			return
		}

		render.JSON(w, r, resp.Message("Task updated"))
	}
}

func UpdateStatus(log *slog.Logger, validate *validator.Validate, svc Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		log := withOp(log, r, "handlers.tasks.UpdateStatus")
		task, _ := access.TaskFromContext(r.Context())

		var req StatusRequest
		if !request.Decode(w, r, log, validate, &req) {
			return
		}

		ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
		defer cancel()

		if _, err := svc.UpdateStatus(ctx, task, models.TaskStatus(req.Status)); err != nil {
			serviceError(w, r, log, err)
			return
		}

		render.JSON(w, r, resp.Message("Task status updated"))
	}
}

func Delete(log *slog.Logger, svc Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		log := withOp(log, r, "handlers.tasks.Delete")
		task, _ := access.TaskFromContext(r.Context())

		ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
		defer cancel()

		if err := svc.DeleteTask(ctx, task.ID); err != nil {
			serviceError(w, r, log, err)
			return
		}

		render.JSON(w, r, resp.Message("Task deleted"))
	}
}

func serviceError(w http.ResponseWriter, r *http.Request, log *slog.Logger, err error) {
	switch {
	case errors.Is(err, tasks.ErrTaskNotFound):
		render.Status(r, http.StatusNotFound)
		render.JSON(w, r, resp.Error("Task not found"))
	case errors.Is(err, tasks.ErrProjectNotFound):
		render.Status(r, http.StatusNotFound)
		render.JSON(w, r, resp.Error("Project not found"))
	default:
		log.Error("task operation failed", sl.Err(err))

		render.Status(r, http.StatusInternalServerError)
		render.JSON(w, r, resp.Error("Internal error"))
	}
}

func withOp(log *slog.Logger, r *http.Request, op string) *slog.Logger {
	return log.With(
		slog.String("op", op),
		slog.String("request_id", middleware.GetReqID(r.Context())),
	)
}
