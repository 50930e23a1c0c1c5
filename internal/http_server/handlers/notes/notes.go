// Package notes serves the note endpoints of a task.
package notes

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
	"uptask/internal/notes"

	"github.com/go-chi/chi"
	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/render"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
)

type Request struct {
	Content string `json:"content" validate:"required,max=1000"`
}

type NoteResponse struct {
	resp.Response
	Note models.Note `json:"note"`
}

type ListResponse struct {
	resp.Response
	Notes []models.Note `json:"notes"`
}

type Service interface {
	CreateNote(ctx context.Context, task models.Task, author models.UserRef, content string) (models.Note, error)
	TaskNotes(ctx context.Context, taskID uuid.UUID) ([]models.Note, error)
	DeleteNote(ctx context.Context, task models.Task, userID, noteID uuid.UUID) error
}

func Create(log *slog.Logger, validate *validator.Validate, svc Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		const op = "handlers.notes.Create"

		log := log.With(
			slog.String("op", op),
			slog.String("request_id", middleware.GetReqID(r.Context())),
		)

		user, _ := authn.UserFromContext(r.Context())
		task, _ := access.TaskFromContext(r.Context())

		var req Request
		if !request.Decode(w, r, log, validate, &req) {
			return
		}

		ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
		defer cancel()

		note, err := svc.CreateNote(ctx, task, user.Ref(), req.Content)
		if err != nil {
			log.Error("failed to create note", sl.Err(err))

			render.Status(r, http.StatusInternalServerError)
			render.JSON(w, r, resp.Error("Internal error"))

			return
		}

		render.Status(r, http.StatusCreated)
		render.JSON(w, r, NoteResponse{Response: resp.Message("Note created"), Note: note})
	}
}

func List(log *slog.Logger, svc Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		const op = "handlers.notes.List"

		task, _ := access.TaskFromContext(r.Context())

		ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
		defer cancel()

		list, err := svc.TaskNotes(ctx, task.ID)
		if err != nil {
			log.Error("failed to list notes",
				slog.String("op", op),
				slog.String("request_id", middleware.GetReqID(r.Context())),
				sl.Err(err),
			)

			render.Status(r, http.StatusInternalServerError)
			render.JSON(w, r, resp.Error("Internal error"))

			return
		}

		render.JSON(w, r, ListResponse{Response: resp.OK(), Notes: list})
	}
}

func Delete(log *slog.Logger, svc Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		const op = "handlers.notes.Delete"

		log := log.With(
			slog.String("op", op),
			slog.String("request_id", middleware.GetReqID(r.Context())),
		)

		user, _ := authn.UserFromContext(r.Context())
		task, _ := access.TaskFromContext(r.Context())

		noteID, err := uuid.Parse(chi.URLParam(r, "noteId"))
		if err != nil {
			render.Status(r, http.StatusBadRequest)
			render.JSON(w, r, resp.Error("Invalid note id"))

			return
		}

		ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
		defer cancel()

		err = svc.DeleteNote(ctx, task, user.ID, noteID)
		switch {
		case err == nil:
			render.JSON(w, r, resp.Message("Note deleted"))
		case errors.Is(err, notes.ErrNoteNotFound):
			render.Status(r, http.StatusNotFound)
			render.JSON(w, r, resp.Error("Note not found"))
		case errors.Is(err, notes.ErrNotCreator):
			render.Status(r, http.StatusUnauthorized)
			render.JSON(w, r, resp.Error("Only the author can delete this note"))
		default:
			log.Error("failed to delete note", sl.Err(err))

			render.Status(r, http.StatusInternalServerError)
			render.JSON(w, r, resp.Error("Internal error"))
		}
	}
}
