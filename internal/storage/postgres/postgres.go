package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"uptask/internal/config"
	"uptask/internal/models"
	"uptask/internal/storage"
	"uptask/internal/storage/postgres/migrations"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jackc/pgx/v5/stdlib"
	"github.com/pressly/goose/v3"
)

const (
	uniqueViolation     = "23505"
	foreignKeyViolation = "23503"
)

type PostgresRepo struct {
	pool *pgxpool.Pool
}

func New(ctx context.Context, cfg *config.Config) (*PostgresRepo, error) {
	const op = "storage.postgres.New"

	dsn := dsn(cfg)

	poolConfig, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("%s: failed to parse config: %w", op, err)
	}

	poolConfig.MaxConns = 10
	poolConfig.MinConns = 2
	poolConfig.MaxConnLifetime = time.Hour
	poolConfig.MaxConnIdleTime = time.Minute * 30

	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		return nil, fmt.Errorf("%s: failed to create pool: %w", op, err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("%s: failed to ping database: %w", op, err)
	}

	return &PostgresRepo{pool: pool}, nil
}

// * Migrate применяет встроенные миграции goose
func (r *PostgresRepo) Migrate(ctx context.Context) error {
	const op = "storage.postgres.Migrate"

	db := stdlib.OpenDBFromPool(r.pool)
	defer db.Close()

	goose.SetBaseFS(migrations.Migrations)

	if err := goose.SetDialect("postgres"); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	if err := goose.UpContext(ctx, db, "."); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	return nil
}

func (r *PostgresRepo) SaveUser(ctx context.Context, user models.User) error {
	const op = "storage.postgres.SaveUser"

	query := `
		INSERT INTO users (id, name, email, password_hash, confirmed, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7);
	`

	_, err := r.pool.Exec(ctx, query,
		user.ID,
		user.Name,
		user.Email,
		user.PassHash,
		user.Confirmed,
		user.CreatedAt,
		user.UpdatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return storage.ErrUserExists
		}

		return fmt.Errorf("%s: failed to save user: %w", op, err)
	}

	return nil
}

func (r *PostgresRepo) UpdateUser(ctx context.Context, user models.User) error {
	const op = "storage.postgres.UpdateUser"

	query := `
		UPDATE users
		SET name = $2, email = $3, password_hash = $4, confirmed = $5, updated_at = $6
		WHERE id = $1;
	`

	tag, err := r.pool.Exec(ctx, query, user.ID, user.Name, user.Email, user.PassHash, user.Confirmed, user.UpdatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return storage.ErrUserExists
		}

		return fmt.Errorf("%s: %w", op, err)
	}

	if tag.RowsAffected() == 0 {
		return storage.ErrUserNotFound
	}

	return nil
}

const userColumns = `id, name, email, password_hash, confirmed, created_at, updated_at`

func (r *PostgresRepo) User(ctx context.Context, email string) (models.User, error) {
	const op = "storage.postgres.User"

	query := `SELECT ` + userColumns + ` FROM users WHERE LOWER(email) = LOWER($1);`

	u, err := scanUser(r.pool.QueryRow(ctx, query, email))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return models.User{}, storage.ErrUserNotFound
		}

		return models.User{}, fmt.Errorf("%s: %w", op, err)
	}

	return u, nil
}

func (r *PostgresRepo) UserByID(ctx context.Context, id uuid.UUID) (models.User, error) {
	const op = "storage.postgres.UserByID"

	query := `SELECT ` + userColumns + ` FROM users WHERE id = $1;`

	u, err := scanUser(r.pool.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return models.User{}, storage.ErrUserNotFound
		}

		return models.User{}, fmt.Errorf("%s: %w", op, err)
	}

	return u, nil
}

func (r *PostgresRepo) UsersByIDs(ctx context.Context, ids []uuid.UUID) ([]models.User, error) {
	const op = "storage.postgres.UsersByIDs"

	query := `
		SELECT ` + userColumns + `
		FROM users
		WHERE id = ANY($1)
		ORDER BY array_position($1, id);
	`

	rows, err := r.pool.Query(ctx, query, ids)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	defer rows.Close()

	users := make([]models.User, 0, len(ids))
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
		users = append(users, u)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return users, nil
}

func (r *PostgresRepo) SaveProject(ctx context.Context, p models.Project) error {
	const op = "storage.postgres.SaveProject"

	query := `
		INSERT INTO projects (id, project_name, client_name, description, manager_id, team, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8);
	`

	_, err := r.pool.Exec(ctx, query,
		p.ID,
		p.ProjectName,
		p.ClientName,
		p.Description,
		p.Manager,
		nonNil(p.Team),
		p.CreatedAt,
		p.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	return nil
}

func (r *PostgresRepo) UpdateProject(ctx context.Context, p models.Project) error {
	const op = "storage.postgres.UpdateProject"

	query := `
		UPDATE projects
		SET project_name = $2, client_name = $3, description = $4, team = $5, updated_at = $6
		WHERE id = $1;
	`

	tag, err := r.pool.Exec(ctx, query, p.ID, p.ProjectName, p.ClientName, p.Description, nonNil(p.Team), p.UpdatedAt)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	if tag.RowsAffected() == 0 {
		return storage.ErrProjectNotFound
	}

	return nil
}

const projectColumns = `id, project_name, client_name, description, manager_id, team, created_at, updated_at`

func (r *PostgresRepo) Project(ctx context.Context, id uuid.UUID) (models.Project, error) {
	const op = "storage.postgres.Project"

	query := `SELECT ` + projectColumns + ` FROM projects WHERE id = $1;`

	p, err := scanProject(r.pool.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return models.Project{}, storage.ErrProjectNotFound
		}

		return models.Project{}, fmt.Errorf("%s: %w", op, err)
	}

	return p, nil
}

func (r *PostgresRepo) ProjectsForUser(ctx context.Context, userID uuid.UUID) ([]models.Project, error) {
	const op = "storage.postgres.ProjectsForUser"

	query := `
		SELECT ` + projectColumns + `
		FROM projects
		WHERE manager_id = $1 OR $1 = ANY(team)
		ORDER BY created_at;
	`

	rows, err := r.pool.Query(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	defer rows.Close()

	projects := []models.Project{}
	for rows.Next() {
		p, err := scanProject(rows)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
		projects = append(projects, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return projects, nil
}

// * DeleteProject удаляет проект, задачи и заметки удаляются каскадно
func (r *PostgresRepo) DeleteProject(ctx context.Context, id uuid.UUID) error {
	const op = "storage.postgres.DeleteProject"

	tag, err := r.pool.Exec(ctx, `DELETE FROM projects WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	if tag.RowsAffected() == 0 {
		return storage.ErrProjectNotFound
	}

	return nil
}

func (r *PostgresRepo) SaveTask(ctx context.Context, t models.Task) error {
	const op = "storage.postgres.SaveTask"

	query := `
		INSERT INTO tasks (id, project_id, name, description, status, note_ids, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8);
	`

	_, err := r.pool.Exec(ctx, query,
		t.ID,
		t.ProjectID,
		t.Name,
		t.Description,
		string(t.Status),
		nonNil(t.Notes),
		t.CreatedAt,
		t.UpdatedAt,
	)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == foreignKeyViolation {
			return storage.ErrProjectNotFound
		}

		return fmt.Errorf("%s: %w", op, err)
	}

	return nil
}

// * UpdateTask обновляет поля задачи, список заметок меняют только AddTaskNote/RemoveTaskNote
func (r *PostgresRepo) UpdateTask(ctx context.Context, t models.Task) error {
	const op = "storage.postgres.UpdateTask"

	query := `
		UPDATE tasks
		SET name = $2, description = $3, status = $4, updated_at = $5
		WHERE id = $1;
	`

	tag, err := r.pool.Exec(ctx, query, t.ID, t.Name, t.Description, string(t.Status), t.UpdatedAt)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	if tag.RowsAffected() == 0 {
		return storage.ErrTaskNotFound
	}

	return nil
}

func (r *PostgresRepo) AddTaskNote(ctx context.Context, taskID, noteID uuid.UUID) error {
	const op = "storage.postgres.AddTaskNote"

	query := `
		UPDATE tasks
		SET note_ids = array_append(note_ids, $2::uuid)
		WHERE id = $1;
	`

	return r.execTaskNotes(ctx, op, query, taskID, noteID)
}

func (r *PostgresRepo) RemoveTaskNote(ctx context.Context, taskID, noteID uuid.UUID) error {
	const op = "storage.postgres.RemoveTaskNote"

	query := `
		UPDATE tasks
		SET note_ids = array_remove(note_ids, $2::uuid)
		WHERE id = $1;
	`

	return r.execTaskNotes(ctx, op, query, taskID, noteID)
}

func (r *PostgresRepo) execTaskNotes(ctx context.Context, op, query string, taskID, noteID uuid.UUID) error {
	tag, err := r.pool.Exec(ctx, query, taskID, noteID)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	if tag.RowsAffected() == 0 {
		return storage.ErrTaskNotFound
	}

	return nil
}

const taskColumns = `id, project_id, name, description, status, note_ids, created_at, updated_at`

func (r *PostgresRepo) Task(ctx context.Context, id uuid.UUID) (models.Task, error) {
	const op = "storage.postgres.Task"

	query := `SELECT ` + taskColumns + ` FROM tasks WHERE id = $1;`

	t, err := scanTask(r.pool.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return models.Task{}, storage.ErrTaskNotFound
		}

		return models.Task{}, fmt.Errorf("%s: %w", op, err)
	}

	return t, nil
}

func (r *PostgresRepo) ProjectTasks(ctx context.Context, projectID uuid.UUID) ([]models.Task, error) {
	const op = "storage.postgres.ProjectTasks"

	query := `SELECT ` + taskColumns + ` FROM tasks WHERE project_id = $1 ORDER BY created_at;`

	rows, err := r.pool.Query(ctx, query, projectID)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	defer rows.Close()

	tasks := []models.Task{}
	for rows.Next() {
		t, err := scanTask(rows)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
		tasks = append(tasks, t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return tasks, nil
}

func (r *PostgresRepo) DeleteTask(ctx context.Context, id uuid.UUID) error {
	const op = "storage.postgres.DeleteTask"

	tag, err := r.pool.Exec(ctx, `DELETE FROM tasks WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	if tag.RowsAffected() == 0 {
		return storage.ErrTaskNotFound
	}

	return nil
}

func (r *PostgresRepo) SaveNote(ctx context.Context, n models.Note) error {
	const op = "storage.postgres.SaveNote"

	query := `
		INSERT INTO notes (id, content, created_by, task_id, created_at)
		VALUES ($1, $2, $3, $4, $5);
	`

	_, err := r.pool.Exec(ctx, query, n.ID, n.Content, n.CreatedBy.ID, n.TaskID, n.CreatedAt)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == foreignKeyViolation {
			return storage.ErrTaskNotFound
		}

		return fmt.Errorf("%s: %w", op, err)
	}

	return nil
}

const noteQuery = `
	SELECT n.id, n.content, n.task_id, n.created_at, u.id, u.name, u.email
	FROM notes n
	JOIN users u ON u.id = n.created_by
`

func (r *PostgresRepo) Note(ctx context.Context, id uuid.UUID) (models.Note, error) {
	const op = "storage.postgres.Note"

	n, err := scanNote(r.pool.QueryRow(ctx, noteQuery+` WHERE n.id = $1;`, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return models.Note{}, storage.ErrNoteNotFound
		}

		return models.Note{}, fmt.Errorf("%s: %w", op, err)
	}

	return n, nil
}

func (r *PostgresRepo) TaskNotes(ctx context.Context, taskID uuid.UUID) ([]models.Note, error) {
	const op = "storage.postgres.TaskNotes"

	rows, err := r.pool.Query(ctx, noteQuery+` WHERE n.task_id = $1 ORDER BY n.created_at;`, taskID)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	defer rows.Close()

	notes := []models.Note{}
	for rows.Next() {
		n, err := scanNote(rows)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
		notes = append(notes, n)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return notes, nil
}

func (r *PostgresRepo) DeleteNote(ctx context.Context, id uuid.UUID) error {
	const op = "storage.postgres.DeleteNote"

	tag, err := r.pool.Exec(ctx, `DELETE FROM notes WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	if tag.RowsAffected() == 0 {
		return storage.ErrNoteNotFound
	}

	return nil
}

func (r *PostgresRepo) Close() {
	r.pool.Close()
}

func scanUser(row pgx.Row) (models.User, error) {
	var u models.User
	err := row.Scan(
		&u.ID,
		&u.Name,
		&u.Email,
		&u.PassHash,
		&u.Confirmed,
		&u.CreatedAt,
		&u.UpdatedAt,
	)

	return u, err
}

func scanProject(row pgx.Row) (models.Project, error) {
	var p models.Project
	err := row.Scan(
		&p.ID,
		&p.ProjectName,
		&p.ClientName,
		&p.Description,
		&p.Manager,
		&p.Team,
		&p.CreatedAt,
		&p.UpdatedAt,
	)

	return p, err
}

func scanTask(row pgx.Row) (models.Task, error) {
	var (
		t      models.Task
		status string
	)
	err := row.Scan(
		&t.ID,
		&t.ProjectID,
		&t.Name,
		&t.Description,
		&status,
		&t.Notes,
		&t.CreatedAt,
		&t.UpdatedAt,
	)
	t.Status = models.TaskStatus(status)

	return t, err
}

func scanNote(row pgx.Row) (models.Note, error) {
	var n models.Note
	err := row.Scan(
		&n.ID,
		&n.Content,
		&n.TaskID,
		&n.CreatedAt,
		&n.CreatedBy.ID,
		&n.CreatedBy.Name,
		&n.CreatedBy.Email,
	)

	return n, err
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError

	return errors.As(err, &pgErr) && pgErr.Code == uniqueViolation
}

// uuid[] columns are NOT NULL
func nonNil(ids []uuid.UUID) []uuid.UUID {
	if ids == nil {
		return []uuid.UUID{}
	}

	return ids
}

// * dsn формирует конфигурацию базы данных.
func dsn(cfg *config.Config) string {
	return fmt.Sprintf("host=%s port=%d user=%s password=%s database=%s sslmode=%s",
		cfg.Postgres.Host,
		cfg.Postgres.Port,
		cfg.Postgres.User,
		cfg.Postgres.Password,
		cfg.Postgres.DBName,
		cfg.Postgres.SSLMode,
	)
}
