package access

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	sl "uptask/internal/lib/logger"
	"uptask/internal/middleware/authn"
	"uptask/internal/models"
	"uptask/internal/projects"
	"uptask/internal/tasks"

	"github.com/go-chi/chi"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
)

type projectStub map[uuid.UUID]models.Project

func (s projectStub) Project(_ context.Context, id uuid.UUID) (models.Project, error) {
	p, ok := s[id]
	if !ok {
		return models.Project{}, projects.ErrProjectNotFound
	}
	return p, nil
}

type taskStub map[uuid.UUID]models.Task

func (s taskStub) Task(_ context.Context, id uuid.UUID) (models.Task, error) {
	t, ok := s[id]
	if !ok {
		return models.Task{}, tasks.ErrTaskNotFound
	}
	return t, nil
}

type env struct {
	router  http.Handler
	manager models.User
	member  models.User
	project models.Project
	task    models.Task
	foreign models.Task
}

func newEnv() env {
	manager := models.User{ID: uuid.New()}
	member := models.User{ID: uuid.New()}
	project := models.Project{ID: uuid.New(), Manager: manager.ID, Team: []uuid.UUID{member.ID}}
	task := models.Task{ID: uuid.New(), ProjectID: project.ID}
	foreign := models.Task{ID: uuid.New(), ProjectID: uuid.New()}

	log := sl.Discard()
	ok := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	})

	r := chi.NewRouter()
	r.Route("/projects/{projectId}", func(r chi.Router) {
		r.Use(ProjectExists(log, projectStub{project.ID: project}))
		r.Get("/", ok)
		r.With(ManagerOnly).Delete("/", ok)
		r.Route("/tasks/{taskId}", func(r chi.Router) {
			r.Use(TaskExists(log, taskStub{task.ID: task, foreign.ID: foreign}))
			r.Get("/", func(w http.ResponseWriter, r *http.Request) {
				_, okP := ProjectFromContext(r.Context())
				_, okT := TaskFromContext(r.Context())
				if !okP || !okT {
					w.WriteHeader(http.StatusInternalServerError)
					return
				}
				w.WriteHeader(http.StatusNoContent)
			})
		})
	})

	return env{router: r, manager: manager, member: member, project: project, task: task, foreign: foreign}
}

func (e env) do(method, path string, user models.User) int {
	req := httptest.NewRequest(method, path, nil)
	req = req.WithContext(authn.WithUser(req.Context(), user))

	rec := httptest.NewRecorder()
	e.router.ServeHTTP(rec, req)

	return rec.Code
}

func TestProjectExists(t *testing.T) {
	e := newEnv()
	stranger := models.User{ID: uuid.New()}
	path := "/projects/" + e.project.ID.String() + "/"

	assert.Equal(t, http.StatusNoContent, e.do(http.MethodGet, path, e.manager))
	assert.Equal(t, http.StatusNoContent, e.do(http.MethodGet, path, e.member))
	assert.Equal(t, http.StatusUnauthorized, e.do(http.MethodGet, path, stranger))
	assert.Equal(t, http.StatusNotFound, e.do(http.MethodGet, "/projects/"+uuid.NewString()+"/", e.manager))
	assert.Equal(t, http.StatusBadRequest, e.do(http.MethodGet, "/projects/not-a-uuid/", e.manager))
}

func TestManagerOnly(t *testing.T) {
	e := newEnv()
	path := "/projects/" + e.project.ID.String() + "/"

	assert.Equal(t, http.StatusNoContent, e.do(http.MethodDelete, path, e.manager))
	assert.Equal(t, http.StatusUnauthorized, e.do(http.MethodDelete, path, e.member))
}

func TestTaskExists(t *testing.T) {
	e := newEnv()
	base := "/projects/" + e.project.ID.String() + "/tasks/"

	assert.Equal(t, http.StatusNoContent, e.do(http.MethodGet, base+e.task.ID.String()+"/", e.member))
	assert.Equal(t, http.StatusNotFound, e.do(http.MethodGet, base+e.foreign.ID.String()+"/", e.member))
	assert.Equal(t, http.StatusNotFound, e.do(http.MethodGet, base+uuid.NewString()+"/", e.member))
	assert.Equal(t, http.StatusBadRequest, e.do(http.MethodGet, base+"nope/", e.member))
}
