package projects

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"strings"
	"time"

	sl "uptask/internal/lib/logger"
	"uptask/internal/models"
	"uptask/internal/storage"

	"github.com/google/uuid"
)

var (
	ErrProjectNotFound = errors.New("project not found")
	ErrUserNotFound    = errors.New("user not found")
	ErrAlreadyMember   = errors.New("user already belongs to the project")
	ErrNotMember       = errors.New("user is not a member of the project")
)

type Projects struct {
	log      *slog.Logger
	projects ProjectStorage
	tasks    TaskLister
	users    UserProvider
}

type ProjectStorage interface {
	SaveProject(ctx context.Context, p models.Project) error
	UpdateProject(ctx context.Context, p models.Project) error
	Project(ctx context.Context, id uuid.UUID) (models.Project, error)
	ProjectsForUser(ctx context.Context, userID uuid.UUID) ([]models.Project, error)
	DeleteProject(ctx context.Context, id uuid.UUID) error
}

type TaskLister interface {
	ProjectTasks(ctx context.Context, projectID uuid.UUID) ([]models.Task, error)
}

type UserProvider interface {
	User(ctx context.Context, email string) (models.User, error)
	UsersByIDs(ctx context.Context, ids []uuid.UUID) ([]models.User, error)
}

type Input struct {
	ProjectName string
	ClientName  string
	Description string
}

// Details is a project together with its tasks.
type Details struct {
	models.Project
	Tasks []models.Task `json:"tasks"`
}

func New(log *slog.Logger, projects ProjectStorage, tasks TaskLister, users UserProvider) *Projects {
	return &Projects{
		log:      log,
		projects: projects,
		tasks:    tasks,
		users:    users,
	}
}

func (p *Projects) CreateProject(ctx context.Context, managerID uuid.UUID, in Input) (models.Project, error) {
	const op = "projects.CreateProject"

	now := time.Now().UTC()
	project := models.Project{
		ID:          uuid.New(),
		ProjectName: in.ProjectName,
		ClientName:  in.ClientName,
		Description: in.Description,
		Manager:     managerID,
		Team:        []uuid.UUID{},
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	if err := p.projects.SaveProject(ctx, project); err != nil {
		p.log.Error("failed to save project", slog.String("op", op), sl.Err(err))
		return models.Project{}, fmt.Errorf("%s: %w", op, err)
	}

	return project, nil
}

// Projects lists the projects the user manages or belongs to.
func (p *Projects) Projects(ctx context.Context, userID uuid.UUID) ([]models.Project, error) {
	const op = "projects.Projects"

	list, err := p.projects.ProjectsForUser(ctx, userID)
	if err != nil {
		p.log.Error("failed to list projects", slog.String("op", op), sl.Err(err))
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return list, nil
}

func (p *Projects) Project(ctx context.Context, id uuid.UUID) (models.Project, error) {
	const op = "projects.Project"

	project, err := p.projects.Project(ctx, id)
	if err != nil {
		if errors.Is(err, storage.ErrProjectNotFound) {
			return models.Project{}, fmt.Errorf("%s: %w", op, ErrProjectNotFound)
		}

		p.log.Error("failed to get project", slog.String("op", op), sl.Err(err))
		return models.Project{}, fmt.Errorf("%s: %w", op, err)
	}

	return project, nil
}

func (p *Projects) Details(ctx context.Context, project models.Project) (Details, error) {
	const op = "projects.Details"

	tasks, err := p.tasks.ProjectTasks(ctx, project.ID)
	if err != nil {
		p.log.Error("failed to list tasks", slog.String("op", op), sl.Err(err))
		return Details{}, fmt.Errorf("%s: %w", op, err)
	}

	return Details{Project: project, Tasks: tasks}, nil
}

func (p *Projects) UpdateProject(ctx context.Context, project models.Project, in Input) (models.Project, error) {
	const op = "projects.UpdateProject"

	project.ProjectName = in.ProjectName
	project.ClientName = in.ClientName
	project.Description = in.Description
	project.UpdatedAt = time.Now().UTC()

	if err := p.projects.UpdateProject(ctx, project); err != nil {
		return models.Project{}, p.storageErr(op, err)
	}

	return project, nil
}

// * DeleteProject удаляет проект вместе с задачами и заметками
func (p *Projects) DeleteProject(ctx context.Context, id uuid.UUID) error {
	const op = "projects.DeleteProject"

	if err := p.projects.DeleteProject(ctx, id); err != nil {
		return p.storageErr(op, err)
	}

	p.log.Info("project deleted", slog.String("op", op), slog.String("project_id", id.String()))

	return nil
}

func (p *Projects) Team(ctx context.Context, project models.Project) ([]models.UserRef, error) {
	const op = "projects.Team"

	users, err := p.users.UsersByIDs(ctx, project.Team)
	if err != nil {
		p.log.Error("failed to load team", slog.String("op", op), sl.Err(err))
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	team := make([]models.UserRef, 0, len(users))
	for _, u := range users {
		team = append(team, u.Ref())
	}

	return team, nil
}

// * AddMember добавляет пользователя в команду проекта по email
func (p *Projects) AddMember(ctx context.Context, project models.Project, email string) error {
	const op = "projects.AddMember"

	log := p.log.With(slog.String("op", op), slog.String("project_id", project.ID.String()))

	user, err := p.users.User(ctx, strings.ToLower(strings.TrimSpace(email)))
	if err != nil {
		if errors.Is(err, storage.ErrUserNotFound) {
			return fmt.Errorf("%s: %w", op, ErrUserNotFound)
		}

		log.Error("failed to get user", sl.Err(err))
		return fmt.Errorf("%s: %w", op, err)
	}

	if project.HasMember(user.ID) {
		return fmt.Errorf("%s: %w", op, ErrAlreadyMember)
	}

	project.Team = append(slices.Clone(project.Team), user.ID)

	if err := p.projects.UpdateProject(ctx, project); err != nil {
		return p.storageErr(op, err)
	}

	log.Info("member added", slog.String("uid", user.ID.String()))

	return nil
}

func (p *Projects) RemoveMember(ctx context.Context, project models.Project, userID uuid.UUID) error {
	const op = "projects.RemoveMember"

	if !slices.Contains(project.Team, userID) {
		return fmt.Errorf("%s: %w", op, ErrNotMember)
	}

	project.Team = slices.DeleteFunc(slices.Clone(project.Team), func(id uuid.UUID) bool {
		return id == userID
	})

	if err := p.projects.UpdateProject(ctx, project); err != nil {
		return p.storageErr(op, err)
	}

	return nil
}

func (p *Projects) storageErr(op string, err error) error {
	if errors.Is(err, storage.ErrProjectNotFound) {
		return fmt.Errorf("%s: %w", op, ErrProjectNotFound)
	}

	p.log.Error("storage failure", slog.String("op", op), sl.Err(err))

	return fmt.Errorf("%s: %w", op, err)
}
