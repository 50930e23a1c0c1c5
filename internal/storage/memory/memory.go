// Package memory keeps every collection in process memory. It backs the
// service and handler tests and mirrors the constraints of the postgres and
// redis implementations (unique emails, cascading deletes, token expiry).
package memory

import (
	"context"
	"slices"
	"strings"
	"sync"

	"uptask/internal/models"
	"uptask/internal/storage"

	"github.com/google/uuid"
)

type Storage struct {
	mu sync.RWMutex

	users    map[uuid.UUID]models.User
	tokens   map[string]models.Token
	projects map[uuid.UUID]models.Project
	tasks    map[uuid.UUID]models.Task
	notes    map[uuid.UUID]models.Note

	// insertion order, used where postgres orders by created_at
	projectOrder []uuid.UUID
	taskOrder    []uuid.UUID
	noteOrder    []uuid.UUID
}

func New() *Storage {
	return &Storage{
		users:    make(map[uuid.UUID]models.User),
		tokens:   make(map[string]models.Token),
		projects: make(map[uuid.UUID]models.Project),
		tasks:    make(map[uuid.UUID]models.Task),
		notes:    make(map[uuid.UUID]models.Note),
	}
}

func (s *Storage) SaveUser(_ context.Context, user models.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.users[user.ID]; exists {
		return storage.ErrUserExists
	}
	if s.emailTaken(user.Email, uuid.Nil) {
		return storage.ErrUserExists
	}

	user.PassHash = slices.Clone(user.PassHash)
	s.users[user.ID] = user

	return nil
}

func (s *Storage) UpdateUser(_ context.Context, user models.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.users[user.ID]; !exists {
		return storage.ErrUserNotFound
	}
	if s.emailTaken(user.Email, user.ID) {
		return storage.ErrUserExists
	}

	user.PassHash = slices.Clone(user.PassHash)
	s.users[user.ID] = user

	return nil
}

func (s *Storage) User(_ context.Context, email string) (models.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, u := range s.users {
		if strings.EqualFold(u.Email, email) {
			return u, nil
		}
	}

	return models.User{}, storage.ErrUserNotFound
}

func (s *Storage) UserByID(_ context.Context, id uuid.UUID) (models.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	u, ok := s.users[id]
	if !ok {
		return models.User{}, storage.ErrUserNotFound
	}

	return u, nil
}

func (s *Storage) UsersByIDs(_ context.Context, ids []uuid.UUID) ([]models.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	users := make([]models.User, 0, len(ids))
	for _, id := range ids {
		if u, ok := s.users[id]; ok {
			users = append(users, u)
		}
	}

	return users, nil
}

func (s *Storage) emailTaken(email string, except uuid.UUID) bool {
	for id, u := range s.users {
		if id != except && strings.EqualFold(u.Email, email) {
			return true
		}
	}

	return false
}

func (s *Storage) SaveToken(_ context.Context, t models.Token) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if existing, ok := s.tokens[t.Token]; ok && !existing.IsExpired() {
		return storage.ErrTokenExists
	}
	s.tokens[t.Token] = t

	return nil
}

func (s *Storage) Token(_ context.Context, token string) (models.Token, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	t, ok := s.tokens[token]
	if !ok {
		return models.Token{}, storage.ErrTokenNotFound
	}
	if t.IsExpired() {
		delete(s.tokens, token)
		return models.Token{}, storage.ErrTokenNotFound
	}

	return t, nil
}

func (s *Storage) DeleteToken(_ context.Context, token string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.tokens, token)

	return nil
}

// UserTokens returns the live tokens issued to the user.
func (s *Storage) UserTokens(userID uuid.UUID) []models.Token {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var tokens []models.Token
	for _, t := range s.tokens {
		if t.UserID == userID && !t.IsExpired() {
			tokens = append(tokens, t)
		}
	}

	return tokens
}

func (s *Storage) SaveProject(_ context.Context, p models.Project) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	p.Team = slices.Clone(p.Team)
	s.projects[p.ID] = p
	s.projectOrder = append(s.projectOrder, p.ID)

	return nil
}

func (s *Storage) UpdateProject(_ context.Context, p models.Project) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.projects[p.ID]; !ok {
		return storage.ErrProjectNotFound
	}

	p.Team = slices.Clone(p.Team)
	s.projects[p.ID] = p

	return nil
}

func (s *Storage) Project(_ context.Context, id uuid.UUID) (models.Project, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	p, ok := s.projects[id]
	if !ok {
		return models.Project{}, storage.ErrProjectNotFound
	}
	p.Team = slices.Clone(p.Team)

	return p, nil
}

func (s *Storage) ProjectsForUser(_ context.Context, userID uuid.UUID) ([]models.Project, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	projects := []models.Project{}
	for _, id := range s.projectOrder {
		p, ok := s.projects[id]
		if !ok || !p.HasMember(userID) {
			continue
		}
		p.Team = slices.Clone(p.Team)
		projects = append(projects, p)
	}

	return projects, nil
}

func (s *Storage) DeleteProject(_ context.Context, id uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.projects[id]; !ok {
		return storage.ErrProjectNotFound
	}

	for taskID, t := range s.tasks {
		if t.ProjectID == id {
			s.deleteTaskLocked(taskID)
		}
	}
	delete(s.projects, id)

	return nil
}

func (s *Storage) SaveTask(_ context.Context, t models.Task) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.projects[t.ProjectID]; !ok {
		return storage.ErrProjectNotFound
	}

	t.Notes = slices.Clone(t.Notes)
	s.tasks[t.ID] = t
	s.taskOrder = append(s.taskOrder, t.ID)

	return nil
}

func (s *Storage) UpdateTask(_ context.Context, t models.Task) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	stored, ok := s.tasks[t.ID]
	if !ok {
		return storage.ErrTaskNotFound
	}

	t.Notes = stored.Notes
	s.tasks[t.ID] = t

	return nil
}

func (s *Storage) AddTaskNote(_ context.Context, taskID, noteID uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	t, ok := s.tasks[taskID]
	if !ok {
		return storage.ErrTaskNotFound
	}

	t.Notes = append(slices.Clone(t.Notes), noteID)
	s.tasks[taskID] = t

	return nil
}

func (s *Storage) RemoveTaskNote(_ context.Context, taskID, noteID uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	t, ok := s.tasks[taskID]
	if !ok {
		return storage.ErrTaskNotFound
	}

	t.Notes = slices.DeleteFunc(slices.Clone(t.Notes), func(id uuid.UUID) bool {
		return id == noteID
	})
	s.tasks[taskID] = t

	return nil
}

func (s *Storage) Task(_ context.Context, id uuid.UUID) (models.Task, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	t, ok := s.tasks[id]
	if !ok {
		return models.Task{}, storage.ErrTaskNotFound
	}
	t.Notes = slices.Clone(t.Notes)

	return t, nil
}

func (s *Storage) ProjectTasks(_ context.Context, projectID uuid.UUID) ([]models.Task, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	tasks := []models.Task{}
	for _, id := range s.taskOrder {
		t, ok := s.tasks[id]
		if !ok || t.ProjectID != projectID {
			continue
		}
		t.Notes = slices.Clone(t.Notes)
		tasks = append(tasks, t)
	}

	return tasks, nil
}

func (s *Storage) DeleteTask(_ context.Context, id uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.tasks[id]; !ok {
		return storage.ErrTaskNotFound
	}
	s.deleteTaskLocked(id)

	return nil
}

func (s *Storage) deleteTaskLocked(id uuid.UUID) {
	for noteID, n := range s.notes {
		if n.TaskID == id {
			delete(s.notes, noteID)
		}
	}
	delete(s.tasks, id)
}

func (s *Storage) SaveNote(_ context.Context, n models.Note) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.tasks[n.TaskID]; !ok {
		return storage.ErrTaskNotFound
	}

	s.notes[n.ID] = n
	s.noteOrder = append(s.noteOrder, n.ID)

	return nil
}

func (s *Storage) Note(_ context.Context, id uuid.UUID) (models.Note, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	n, ok := s.notes[id]
	if !ok {
		return models.Note{}, storage.ErrNoteNotFound
	}

	return s.withAuthor(n), nil
}

func (s *Storage) TaskNotes(_ context.Context, taskID uuid.UUID) ([]models.Note, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	notes := []models.Note{}
	for _, id := range s.noteOrder {
		n, ok := s.notes[id]
		if !ok || n.TaskID != taskID {
			continue
		}
		notes = append(notes, s.withAuthor(n))
	}

	return notes, nil
}

func (s *Storage) DeleteNote(_ context.Context, id uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.notes[id]; !ok {
		return storage.ErrNoteNotFound
	}
	delete(s.notes, id)

	return nil
}

func (s *Storage) withAuthor(n models.Note) models.Note {
	if u, ok := s.users[n.CreatedBy.ID]; ok {
		n.CreatedBy = u.Ref()
	}

	return n
}
