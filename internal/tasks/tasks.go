package tasks

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	sl "uptask/internal/lib/logger"
	"uptask/internal/models"
	"uptask/internal/storage"

	"github.com/google/uuid"
)

var (
	ErrTaskNotFound    = errors.New("task not found")
	ErrProjectNotFound = errors.New("project not found")
)

type Tasks struct {
	log   *slog.Logger
	tasks TaskStorage
}

type TaskStorage interface {
	SaveTask(ctx context.Context, t models.Task) error
	UpdateTask(ctx context.Context, t models.Task) error
	Task(ctx context.Context, id uuid.UUID) (models.Task, error)
	ProjectTasks(ctx context.Context, projectID uuid.UUID) ([]models.Task, error)
	DeleteTask(ctx context.Context, id uuid.UUID) error
}

type Input struct {
	Name        string
	Description string
}

func New(log *slog.Logger, tasks TaskStorage) *Tasks {
	return &Tasks{
		log:   log,
		tasks: tasks,
	}
}

func (t *Tasks) CreateTask(ctx context.Context, projectID uuid.UUID, in Input) (models.Task, error) {
	const op = "tasks.CreateTask"

	now := time.Now().UTC()
	task := models.Task{
		ID:          uuid.New(),
		ProjectID:   projectID,
		Name:        in.Name,
		Description: in.Description,
		Status:      models.StatusPending,
		Notes:       []uuid.UUID{},
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	if err := t.tasks.SaveTask(ctx, task); err != nil {
		if errors.Is(err, storage.ErrProjectNotFound) {
			return models.Task{}, fmt.Errorf("%s: %w", op, ErrProjectNotFound)
		}

		t.log.Error("failed to save task", slog.String("op", op), sl.Err(err))
		return models.Task{}, fmt.Errorf("%s: %w", op, err)
	}

	return task, nil
}

func (t *Tasks) ProjectTasks(ctx context.Context, projectID uuid.UUID) ([]models.Task, error) {
	const op = "tasks.ProjectTasks"

	list, err := t.tasks.ProjectTasks(ctx, projectID)
	if err != nil {
		t.log.Error("failed to list tasks", slog.String("op", op), sl.Err(err))
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return list, nil
}

func (t *Tasks) Task(ctx context.Context, id uuid.UUID) (models.Task, error) {
	const op = "tasks.Task"

	task, err := t.tasks.Task(ctx, id)
	if err != nil {
		return models.Task{}, t.storageErr(op, err)
	}

	return task, nil
}

func (t *Tasks) UpdateTask(ctx context.Context, task models.Task, in Input) (models.Task, error) {
	const op = "tasks.UpdateTask"

	task.Name = in.Name
	task.Description = in.Description
	task.UpdatedAt = time.Now().UTC()

	if err := t.tasks.UpdateTask(ctx, task); err != nil {
		return models.Task{}, t.storageErr(op, err)
	}

	return task, nil
}

// * UpdateStatus меняет статус задачи, доступно любому участнику проекта
func (t *Tasks) UpdateStatus(ctx context.Context, task models.Task, status models.TaskStatus) (models.Task, error) {
	const op = "tasks.UpdateStatus"

	task.Status = status
	task.UpdatedAt = time.Now().UTC()

	if err := t.tasks.UpdateTask(ctx, task); err != nil {
		return models.Task{}, t.storageErr(op, err)
	}

	t.log.Info("status changed",
		slog.String("op", op),
		slog.String("task_id", task.ID.String()),
		slog.String("status", string(status)),
	)

	return task, nil
}

func (t *Tasks) DeleteTask(ctx context.Context, id uuid.UUID) error {
	const op = "tasks.DeleteTask"

	if err := t.tasks.DeleteTask(ctx, id); err != nil {
		return t.storageErr(op, err)
	}

	return nil
}

func (t *Tasks) storageErr(op string, err error) error {
	if errors.Is(err, storage.ErrTaskNotFound) {
		return fmt.Errorf("%s: %w", op, ErrTaskNotFound)
	}

	t.log.Error("storage failure", slog.String("op", op), sl.Err(err))

	return fmt.Errorf("%s: %w", op, err)
}
