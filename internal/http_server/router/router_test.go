package router

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"uptask/internal/auth"
	sl "uptask/internal/lib/logger"
	"uptask/internal/models"
	"uptask/internal/notes"
	"uptask/internal/projects"
	"uptask/internal/storage/memory"
	"uptask/internal/tasks"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const secret = "router-test-secret"

type mailbox struct {
	mu     sync.Mutex
	tokens map[string][]string
}

func (m *mailbox) SendConfirmationEmail(user models.User, token string) { m.put(user.Email, token) }

func (m *mailbox) SendPasswordResetToken(user models.User, token string) { m.put(user.Email, token) }

func (m *mailbox) put(email, token string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.tokens[email] = append(m.tokens[email], token)
}

func (m *mailbox) last(t *testing.T, email string) string {
	t.Helper()

	m.mu.Lock()
	defer m.mu.Unlock()

	list := m.tokens[email]
	require.NotEmpty(t, list, "no email for %s", email)

	return list[len(list)-1]
}

type api struct {
	t     *testing.T
	h     http.Handler
	store *memory.Storage
	mail  *mailbox
}

func newAPI(t *testing.T) *api {
	t.Helper()

	log := sl.Discard()
	store := memory.New()
	mail := &mailbox{tokens: make(map[string][]string)}

	svc := Services{
		Auth:     auth.New(log, store, store, store, mail, secret, time.Hour, 10*time.Minute),
		Projects: projects.New(log, store, store, store),
		Tasks:    tasks.New(log, store),
		Notes:    notes.New(log, store, store),
	}

	return &api{
		t:     t,
		h:     New(log, validator.New(), secret, svc),
		store: store,
		mail:  mail,
	}
}

func (a *api) call(method, path, session string, body any) (int, map[string]any) {
	a.t.Helper()

	var buf bytes.Buffer
	if body != nil {
		require.NoError(a.t, json.NewEncoder(&buf).Encode(body))
	}

	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if session != "" {
		req.Header.Set("Authorization", "Bearer "+session)
	}

	rec := httptest.NewRecorder()
	a.h.ServeHTTP(rec, req)

	var out map[string]any
	if rec.Body.Len() > 0 {
		require.NoError(a.t, json.Unmarshal(rec.Body.Bytes(), &out), rec.Body.String())
	}

	return rec.Code, out
}

func (a *api) signup(email string) {
	a.t.Helper()

	code, body := a.call(http.MethodPost, "/api/auth/create-account", "", map[string]string{
		"name":                  "User " + email,
		"email":                 email,
		"password":              "password123",
		"password_confirmation": "password123",
	})
	require.Equal(a.t, http.StatusCreated, code, body)
}

func (a *api) confirm(email string) {
	a.t.Helper()

	code, body := a.call(http.MethodPost, "/api/auth/confirm-account", "", map[string]string{
		"token": a.mail.last(a.t, email),
	})
	require.Equal(a.t, http.StatusOK, code, body)
}

func (a *api) login(email, password string) (int, string) {
	a.t.Helper()

	code, body := a.call(http.MethodPost, "/api/auth/login", "", map[string]string{
		"email":    email,
		"password": password,
	})

	token, _ := body["token"].(string)

	return code, token
}

func (a *api) user(email string) models.User {
	a.t.Helper()

	u, err := a.store.User(context.Background(), email)
	require.NoError(a.t, err)

	return u
}

func (a *api) member(email string) string {
	a.t.Helper()

	a.signup(email)
	a.confirm(email)

	code, session := a.login(email, "password123")
	require.Equal(a.t, http.StatusOK, code)

	return session
}

func nested(t *testing.T, body map[string]any, key string) map[string]any {
	t.Helper()

	v, ok := body[key].(map[string]any)
	require.True(t, ok, "missing %q in %v", key, body)

	return v
}

func TestScenario(t *testing.T) {
	a := newAPI(t)

	// create account: unconfirmed user with exactly one token
	a.signup("a@x.com")
	u := a.user("a@x.com")
	assert.False(t, u.Confirmed)
	require.Len(t, a.store.UserTokens(u.ID), 1)

	// confirm: confirmed, token gone, second attempt is NotFound
	code := a.mail.last(t, "a@x.com")
	status, _ := a.call(http.MethodPost, "/api/auth/confirm-account", "", map[string]string{"token": code})
	require.Equal(t, http.StatusOK, status)
	assert.True(t, a.user("a@x.com").Confirmed)
	assert.Empty(t, a.store.UserTokens(u.ID))

	status, _ = a.call(http.MethodPost, "/api/auth/confirm-account", "", map[string]string{"token": code})
	assert.Equal(t, http.StatusNotFound, status)

	// login
	status, _ = a.login("a@x.com", "wrong-password")
	assert.Equal(t, http.StatusUnauthorized, status)

	status, sessionU := a.login("a@x.com", "password123")
	require.Equal(t, http.StatusOK, status)
	require.NotEmpty(t, sessionU)

	sessionV := a.member("v@x.com")

	// project with V on the team and one task
	status, body := a.call(http.MethodPost, "/api/projects", sessionU, map[string]string{
		"project_name": "Website",
		"client_name":  "ACME",
		"description":  "Landing page",
	})
	require.Equal(t, http.StatusCreated, status, body)
	projectID := nested(t, body, "project")["id"].(string)

	status, body = a.call(http.MethodPost, "/api/projects/"+projectID+"/team", sessionU, map[string]string{"email": "v@x.com"})
	require.Equal(t, http.StatusOK, status, body)

	status, body = a.call(http.MethodPost, "/api/projects/"+projectID+"/tasks", sessionU, map[string]string{
		"name":        "Hero section",
		"description": "Design the hero",
	})
	require.Equal(t, http.StatusCreated, status, body)
	taskID := nested(t, body, "task")["id"].(string)

	notesPath := "/api/projects/" + projectID + "/tasks/" + taskID + "/notes"

	// U writes a note, the list shows it with createdBy = U
	status, body = a.call(http.MethodPost, notesPath, sessionU, map[string]string{"content": "hello"})
	require.Equal(t, http.StatusCreated, status, body)
	noteID := nested(t, body, "note")["id"].(string)

	status, body = a.call(http.MethodGet, notesPath, sessionU, nil)
	require.Equal(t, http.StatusOK, status)
	list := body["notes"].([]any)
	require.Len(t, list, 1)
	first := list[0].(map[string]any)
	assert.Equal(t, "hello", first["content"])
	assert.Equal(t, u.ID.String(), nested(t, first, "created_by")["id"])

	// V is not the author
	status, _ = a.call(http.MethodDelete, notesPath+"/"+noteID, sessionV, nil)
	assert.Equal(t, http.StatusUnauthorized, status)

	status, body = a.call(http.MethodGet, notesPath, sessionV, nil)
	require.Equal(t, http.StatusOK, status)
	assert.Len(t, body["notes"].([]any), 1)

	// U deletes it
	status, _ = a.call(http.MethodDelete, notesPath+"/"+noteID, sessionU, nil)
	assert.Equal(t, http.StatusOK, status)

	status, body = a.call(http.MethodGet, notesPath, sessionU, nil)
	require.Equal(t, http.StatusOK, status)
	assert.Empty(t, body["notes"].([]any))

	task, err := a.store.Task(context.Background(), uuid.MustParse(taskID))
	require.NoError(t, err)
	assert.Empty(t, task.Notes)
}

func TestLogin_UnconfirmedAccount(t *testing.T) {
	a := newAPI(t)

	a.signup("new@x.com")
	u := a.user("new@x.com")

	status, _ := a.login("new@x.com", "password123")
	assert.Equal(t, http.StatusUnauthorized, status)
	assert.Len(t, a.store.UserTokens(u.ID), 2)

	status, _ = a.login("ghost@x.com", "password123")
	assert.Equal(t, http.StatusNotFound, status)
}

func TestCreateAccount_Errors(t *testing.T) {
	a := newAPI(t)

	a.signup("dup@x.com")

	status, _ := a.call(http.MethodPost, "/api/auth/create-account", "", map[string]string{
		"name":                  "Dup",
		"email":                 "DUP@x.com",
		"password":              "password123",
		"password_confirmation": "password123",
	})
	assert.Equal(t, http.StatusConflict, status)

	status, body := a.call(http.MethodPost, "/api/auth/create-account", "", map[string]string{
		"name":                  "Bad",
		"email":                 "bad@x.com",
		"password":              "password123",
		"password_confirmation": "different1",
	})
	assert.Equal(t, http.StatusBadRequest, status)
	assert.Equal(t, "Error", body["status"])
	assert.Equal(t, "field PasswordConfirmation must match Password", body["error"])

	status, body = a.call(http.MethodPost, "/api/auth/create-account", "", []string{"not", "an", "object"})
	assert.Equal(t, http.StatusBadRequest, status)
	assert.Equal(t, "Failed to decode request", body["error"])
}

func TestLogin_InvalidBody(t *testing.T) {
	a := newAPI(t)

	status, body := a.call(http.MethodPost, "/api/auth/login", "", map[string]string{
		"email": "a@x.com",
	})
	assert.Equal(t, http.StatusBadRequest, status)
	assert.Equal(t, "field Password is a required field", body["error"])

	status, body = a.call(http.MethodPost, "/api/auth/login", "", map[string]string{
		"email":    "not-an-email",
		"password": "password123",
	})
	assert.Equal(t, http.StatusBadRequest, status)
	assert.Equal(t, "field Email is not a valid email", body["error"])

	status, body = a.call(http.MethodPost, "/api/auth/login", "", "{")
	assert.Equal(t, http.StatusBadRequest, status)
	assert.Equal(t, "Failed to decode request", body["error"])
}

func TestPasswordReset(t *testing.T) {
	a := newAPI(t)
	a.member("r@x.com")

	status, _ := a.call(http.MethodPost, "/api/auth/forgot-password", "", map[string]string{"email": "r@x.com"})
	require.Equal(t, http.StatusOK, status)
	code := a.mail.last(t, "r@x.com")

	status, _ = a.call(http.MethodPost, "/api/auth/validate-token", "", map[string]string{"token": code})
	require.Equal(t, http.StatusOK, status)

	status, _ = a.call(http.MethodPost, "/api/auth/update-password/"+code, "", map[string]string{
		"password":              "brand-new-pass",
		"password_confirmation": "brand-new-pass",
	})
	require.Equal(t, http.StatusOK, status)

	status, _ = a.call(http.MethodPost, "/api/auth/validate-token", "", map[string]string{"token": code})
	assert.Equal(t, http.StatusNotFound, status)

	status, _ = a.login("r@x.com", "brand-new-pass")
	assert.Equal(t, http.StatusOK, status)
}

func TestAuthenticatedProfile(t *testing.T) {
	a := newAPI(t)
	session := a.member("me@x.com")
	a.member("taken@x.com")

	status, _ := a.call(http.MethodGet, "/api/auth/user", "", nil)
	assert.Equal(t, http.StatusUnauthorized, status)

	status, body := a.call(http.MethodGet, "/api/auth/user", session, nil)
	require.Equal(t, http.StatusOK, status)
	user := nested(t, body, "user")
	assert.Equal(t, "me@x.com", user["email"])
	assert.NotContains(t, user, "PassHash")

	status, _ = a.call(http.MethodPut, "/api/auth/profile", session, map[string]string{"name": "Me", "email": "taken@x.com"})
	assert.Equal(t, http.StatusConflict, status)

	status, _ = a.call(http.MethodPut, "/api/auth/profile", session, map[string]string{"name": "Me", "email": "me@x.com"})
	assert.Equal(t, http.StatusOK, status)

	status, _ = a.call(http.MethodPost, "/api/auth/update-password", session, map[string]string{
		"current_password":      "wrong-password",
		"password":              "another-pass",
		"password_confirmation": "another-pass",
	})
	assert.Equal(t, http.StatusUnauthorized, status)
}

func TestProjectAccess(t *testing.T) {
	a := newAPI(t)
	manager := a.member("m@x.com")
	teammate := a.member("t@x.com")
	stranger := a.member("s@x.com")

	status, body := a.call(http.MethodPost, "/api/projects", manager, map[string]string{
		"project_name": "P", "client_name": "C", "description": "D",
	})
	require.Equal(t, http.StatusCreated, status)
	projectPath := "/api/projects/" + nested(t, body, "project")["id"].(string)

	status, _ = a.call(http.MethodPost, projectPath+"/team", manager, map[string]string{"email": "t@x.com"})
	require.Equal(t, http.StatusOK, status)
	status, _ = a.call(http.MethodPost, projectPath+"/team", manager, map[string]string{"email": "t@x.com"})
	assert.Equal(t, http.StatusConflict, status)

	status, _ = a.call(http.MethodGet, projectPath, stranger, nil)
	assert.Equal(t, http.StatusUnauthorized, status)

	status, _ = a.call(http.MethodGet, projectPath, teammate, nil)
	assert.Equal(t, http.StatusOK, status)

	status, _ = a.call(http.MethodPost, projectPath+"/tasks", teammate, map[string]string{"name": "x", "description": "y"})
	assert.Equal(t, http.StatusUnauthorized, status)

	status, body = a.call(http.MethodPost, projectPath+"/tasks", manager, map[string]string{"name": "x", "description": "y"})
	require.Equal(t, http.StatusCreated, status)
	taskPath := projectPath + "/tasks/" + nested(t, body, "task")["id"].(string)

	status, _ = a.call(http.MethodPost, taskPath+"/status", teammate, map[string]string{"status": "inProgress"})
	assert.Equal(t, http.StatusOK, status)
	status, _ = a.call(http.MethodPost, taskPath+"/status", teammate, map[string]string{"status": "done"})
	assert.Equal(t, http.StatusBadRequest, status)

	status, body = a.call(http.MethodGet, taskPath, teammate, nil)
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, "inProgress", nested(t, body, "task")["status"])

	status, body = a.call(http.MethodGet, "/api/projects", teammate, nil)
	require.Equal(t, http.StatusOK, status)
	assert.Len(t, body["projects"].([]any), 1)

	status, _ = a.call(http.MethodDelete, projectPath, teammate, nil)
	assert.Equal(t, http.StatusUnauthorized, status)
	status, _ = a.call(http.MethodDelete, projectPath, manager, nil)
	assert.Equal(t, http.StatusOK, status)
	status, _ = a.call(http.MethodGet, projectPath, manager, nil)
	assert.Equal(t, http.StatusNotFound, status)
}

func TestHealth(t *testing.T) {
	a := newAPI(t)

	status, body := a.call(http.MethodGet, "/health", "", nil)
	assert.Equal(t, http.StatusOK, status)
	assert.Equal(t, "OK", body["status"])
}
