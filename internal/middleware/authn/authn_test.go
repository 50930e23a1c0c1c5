package authn

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"uptask/internal/lib/jwt"
	sl "uptask/internal/lib/logger"
	"uptask/internal/models"
	"uptask/internal/storage"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const secret = "secret"

type users map[uuid.UUID]models.User

func (u users) User(_ context.Context, id uuid.UUID) (models.User, error) {
	user, ok := u[id]
	if !ok {
		return models.User{}, storage.ErrUserNotFound
	}
	return user, nil
}

func serve(t *testing.T, store users, header string) (*httptest.ResponseRecorder, models.User, bool) {
	t.Helper()

	var (
		got  models.User
		seen bool
	)
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got, seen = UserFromContext(r.Context())
		w.WriteHeader(http.StatusNoContent)
	})

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	if header != "" {
		req.Header.Set("Authorization", header)
	}
	rec := httptest.NewRecorder()

	New(sl.Discard(), secret, store)(next).ServeHTTP(rec, req)

	return rec, got, seen
}

func TestAuthn(t *testing.T) {
	user := models.User{ID: uuid.New(), Name: "Jane"}
	store := users{user.ID: user}

	valid, err := jwt.NewToken(user.ID, secret, time.Hour)
	require.NoError(t, err)
	unknown, err := jwt.NewToken(uuid.New(), secret, time.Hour)
	require.NoError(t, err)
	foreign, err := jwt.NewToken(user.ID, "other-secret", time.Hour)
	require.NoError(t, err)

	tests := []struct {
		name   string
		header string
		status int
	}{
		{name: "valid", header: "Bearer " + valid, status: http.StatusNoContent},
		{name: "lower case scheme", header: "bearer " + valid, status: http.StatusNoContent},
		{name: "missing header", header: "", status: http.StatusUnauthorized},
		{name: "wrong scheme", header: "Basic " + valid, status: http.StatusUnauthorized},
		{name: "garbage", header: "Bearer abc", status: http.StatusUnauthorized},
		{name: "foreign signature", header: "Bearer " + foreign, status: http.StatusUnauthorized},
		{name: "deleted user", header: "Bearer " + unknown, status: http.StatusUnauthorized},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec, got, seen := serve(t, store, tt.header)

			assert.Equal(t, tt.status, rec.Code)
			if tt.status == http.StatusNoContent {
				assert.True(t, seen)
				assert.Equal(t, user.ID, got.ID)
			}
		})
	}
}
