package notes

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	sl "uptask/internal/lib/logger"
	"uptask/internal/lib/settle"
	"uptask/internal/models"
	"uptask/internal/storage"

	"github.com/google/uuid"
)

var (
	ErrNoteNotFound = errors.New("note not found")
	ErrNotCreator   = errors.New("only the author can delete a note")
)

type Notes struct {
	log   *slog.Logger
	tasks TaskNoteLinker
	notes NoteStorage
}

// TaskNoteLinker changes only the note list of a task.
type TaskNoteLinker interface {
	AddTaskNote(ctx context.Context, taskID, noteID uuid.UUID) error
	RemoveTaskNote(ctx context.Context, taskID, noteID uuid.UUID) error
}

type NoteStorage interface {
	SaveNote(ctx context.Context, n models.Note) error
	Note(ctx context.Context, id uuid.UUID) (models.Note, error)
	TaskNotes(ctx context.Context, taskID uuid.UUID) ([]models.Note, error)
	DeleteNote(ctx context.Context, id uuid.UUID) error
}

func New(log *slog.Logger, tasks TaskNoteLinker, notes NoteStorage) *Notes {
	return &Notes{
		log:   log,
		tasks: tasks,
		notes: notes,
	}
}

// * CreateNote создает заметку и добавляет ее id в список заметок задачи
func (n *Notes) CreateNote(ctx context.Context, task models.Task, author models.UserRef, content string) (models.Note, error) {
	const op = "notes.CreateNote"

	log := n.log.With(
		slog.String("op", op),
		slog.String("task_id", task.ID.String()),
	)

	note := models.Note{
		ID:        uuid.New(),
		Content:   content,
		CreatedBy: author,
		TaskID:    task.ID,
		CreatedAt: time.Now().UTC(),
	}

	errs := settle.All(ctx,
		func(ctx context.Context) error { return n.tasks.AddTaskNote(ctx, task.ID, note.ID) },
		func(ctx context.Context) error { return n.notes.SaveNote(ctx, note) },
	)
	for _, err := range settle.Failed(errs) {
		log.Error("paired write failed", sl.Err(err), slog.String("note_id", note.ID.String()))
	}

	log.Info("note created", slog.String("note_id", note.ID.String()))

	return note, nil
}

func (n *Notes) TaskNotes(ctx context.Context, taskID uuid.UUID) ([]models.Note, error) {
	const op = "notes.TaskNotes"

	notes, err := n.notes.TaskNotes(ctx, taskID)
	if err != nil {
		n.log.Error("failed to list notes", slog.String("op", op), sl.Err(err))
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return notes, nil
}

// * DeleteNote удаляет заметку, удалить может только ее автор
func (n *Notes) DeleteNote(ctx context.Context, task models.Task, userID, noteID uuid.UUID) error {
	const op = "notes.DeleteNote"

	log := n.log.With(
		slog.String("op", op),
		slog.String("task_id", task.ID.String()),
		slog.String("note_id", noteID.String()),
	)

	note, err := n.notes.Note(ctx, noteID)
	if err != nil {
		if errors.Is(err, storage.ErrNoteNotFound) {
			return fmt.Errorf("%s: %w", op, ErrNoteNotFound)
		}

		log.Error("failed to get note", sl.Err(err))
		return fmt.Errorf("%s: %w", op, err)
	}

	if note.TaskID != task.ID {
		return fmt.Errorf("%s: %w", op, ErrNoteNotFound)
	}

	if note.CreatedBy.ID != userID {
		log.Warn("delete attempt by non-author", slog.String("uid", userID.String()))
		return fmt.Errorf("%s: %w", op, ErrNotCreator)
	}

	errs := settle.All(ctx,
		func(ctx context.Context) error { return n.tasks.RemoveTaskNote(ctx, task.ID, noteID) },
		func(ctx context.Context) error { return n.notes.DeleteNote(ctx, noteID) },
	)
	for _, err := range settle.Failed(errs) {
		log.Error("paired write failed", sl.Err(err))
	}

	log.Info("note deleted")

	return nil
}
