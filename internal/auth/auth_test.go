package auth

import (
	"context"
	"sync"
	"testing"
	"time"

	"uptask/internal/lib/jwt"
	sl "uptask/internal/lib/logger"
	"uptask/internal/models"
	"uptask/internal/storage/memory"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSecret = "test-secret"

type sentMail struct {
	purpose string
	email   string
	token   string
}

type fakeMailer struct {
	mu   sync.Mutex
	sent []sentMail
}

func (m *fakeMailer) SendConfirmationEmail(user models.User, token string) {
	m.record(models.PurposeConfirmAccount, user, token)
}

func (m *fakeMailer) SendPasswordResetToken(user models.User, token string) {
	m.record(models.PurposeResetPassword, user, token)
}

func (m *fakeMailer) record(purpose string, user models.User, token string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.sent = append(m.sent, sentMail{purpose: purpose, email: user.Email, token: token})
}

func (m *fakeMailer) last(t *testing.T) sentMail {
	t.Helper()

	m.mu.Lock()
	defer m.mu.Unlock()

	require.NotEmpty(t, m.sent, "no email was sent")
	return m.sent[len(m.sent)-1]
}

func (m *fakeMailer) count() int {
	m.mu.Lock()
	defer m.mu.Unlock()

	return len(m.sent)
}

type suite struct {
	auth   *Auth
	store  *memory.Storage
	mailer *fakeMailer
}

func newSuite(t *testing.T) suite {
	t.Helper()

	store := memory.New()
	mailer := &fakeMailer{}

	return suite{
		auth:   New(sl.Discard(), store, store, store, mailer, testSecret, time.Hour, 10*time.Minute),
		store:  store,
		mailer: mailer,
	}
}

func (s suite) register(t *testing.T, email, pass string) models.User {
	t.Helper()

	user, err := s.auth.CreateAccount(context.Background(), NewAccount{Name: "Jane", Email: email, Password: pass})
	require.NoError(t, err)

	return user
}

func (s suite) registerConfirmed(t *testing.T, email, pass string) models.User {
	t.Helper()

	user := s.register(t, email, pass)
	require.NoError(t, s.auth.ConfirmAccount(context.Background(), s.mailer.last(t).token))

	return user
}

func TestCreateAccount_UnconfirmedWithOneToken(t *testing.T) {
	s := newSuite(t)
	ctx := context.Background()

	user := s.register(t, "  A@X.com ", "password123")

	stored, err := s.store.UserByID(ctx, user.ID)
	require.NoError(t, err)
	assert.False(t, stored.Confirmed)
	assert.Equal(t, "a@x.com", stored.Email)
	assert.NotEqual(t, []byte("password123"), stored.PassHash)

	tokens := s.store.UserTokens(user.ID)
	require.Len(t, tokens, 1)

	mail := s.mailer.last(t)
	assert.Equal(t, models.PurposeConfirmAccount, mail.purpose)
	assert.Equal(t, tokens[0].Token, mail.token)
	assert.Equal(t, "a@x.com", mail.email)
}

func TestCreateAccount_DuplicateEmail(t *testing.T) {
	s := newSuite(t)

	s.register(t, "a@x.com", "password123")

	_, err := s.auth.CreateAccount(context.Background(), NewAccount{Name: "Other", Email: "A@x.COM", Password: "password123"})
	assert.ErrorIs(t, err, ErrUserExists)
	assert.Equal(t, 1, s.mailer.count())
}

func TestConfirmAccount(t *testing.T) {
	s := newSuite(t)
	ctx := context.Background()

	user := s.register(t, "a@x.com", "password123")
	code := s.mailer.last(t).token

	require.NoError(t, s.auth.ConfirmAccount(ctx, code))

	stored, err := s.store.UserByID(ctx, user.ID)
	require.NoError(t, err)
	assert.True(t, stored.Confirmed)
	assert.Empty(t, s.store.UserTokens(user.ID))

	assert.ErrorIs(t, s.auth.ConfirmAccount(ctx, code), ErrTokenNotFound)
}

func TestConfirmAccount_UnknownToken(t *testing.T) {
	s := newSuite(t)

	assert.ErrorIs(t, s.auth.ConfirmAccount(context.Background(), "000000"), ErrTokenNotFound)
}

func TestConfirmAccount_ExpiredToken(t *testing.T) {
	s := newSuite(t)
	ctx := context.Background()

	user := s.register(t, "a@x.com", "password123")
	require.NoError(t, s.store.SaveToken(ctx, models.Token{
		Token:     "123123",
		UserID:    user.ID,
		ExpiresAt: time.Now().Add(-time.Minute),
	}))

	assert.ErrorIs(t, s.auth.ConfirmAccount(ctx, "123123"), ErrTokenNotFound)
}

func TestLogin(t *testing.T) {
	s := newSuite(t)
	ctx := context.Background()

	user := s.registerConfirmed(t, "a@x.com", "password123")

	_, err := s.auth.Login(ctx, "a@x.com", "wrong-password")
	assert.ErrorIs(t, err, ErrInvalidCredentials)

	session, err := s.auth.Login(ctx, "A@X.COM", "password123")
	require.NoError(t, err)

	uid, err := jwt.ParseToken(session, testSecret)
	require.NoError(t, err)
	assert.Equal(t, user.ID, uid)
}

func TestLogin_UnknownUser(t *testing.T) {
	s := newSuite(t)

	_, err := s.auth.Login(context.Background(), "nobody@x.com", "password123")
	assert.ErrorIs(t, err, ErrUserNotFound)
}

func TestLogin_UnconfirmedIssuesNewToken(t *testing.T) {
	s := newSuite(t)

	user := s.register(t, "a@x.com", "password123")
	require.Len(t, s.store.UserTokens(user.ID), 1)

	_, err := s.auth.Login(context.Background(), "a@x.com", "password123")
	assert.ErrorIs(t, err, ErrNotConfirmed)

	assert.Len(t, s.store.UserTokens(user.ID), 2)
	assert.Equal(t, 2, s.mailer.count())

	// the resent code is usable
	require.NoError(t, s.auth.ConfirmAccount(context.Background(), s.mailer.last(t).token))
}

func TestRequestConfirmationCode(t *testing.T) {
	s := newSuite(t)
	ctx := context.Background()

	assert.ErrorIs(t, s.auth.RequestConfirmationCode(ctx, "nobody@x.com"), ErrUserNotFound)

	user := s.register(t, "a@x.com", "password123")
	require.NoError(t, s.auth.RequestConfirmationCode(ctx, "a@x.com"))
	assert.Len(t, s.store.UserTokens(user.ID), 2)

	require.NoError(t, s.auth.ConfirmAccount(ctx, s.mailer.last(t).token))
	assert.ErrorIs(t, s.auth.RequestConfirmationCode(ctx, "a@x.com"), ErrAlreadyConfirmed)
}

func TestPasswordResetFlow(t *testing.T) {
	s := newSuite(t)
	ctx := context.Background()

	s.registerConfirmed(t, "a@x.com", "password123")

	assert.ErrorIs(t, s.auth.ForgotPassword(ctx, "nobody@x.com"), ErrUserNotFound)
	require.NoError(t, s.auth.ForgotPassword(ctx, "a@x.com"))

	mail := s.mailer.last(t)
	assert.Equal(t, models.PurposeResetPassword, mail.purpose)

	require.NoError(t, s.auth.ValidateToken(ctx, mail.token))
	// validation does not consume the code
	require.NoError(t, s.auth.ValidateToken(ctx, mail.token))

	require.NoError(t, s.auth.UpdatePasswordWithToken(ctx, mail.token, "new-password"))
	assert.ErrorIs(t, s.auth.ValidateToken(ctx, mail.token), ErrTokenNotFound)
	assert.ErrorIs(t, s.auth.UpdatePasswordWithToken(ctx, mail.token, "again-password"), ErrTokenNotFound)

	_, err := s.auth.Login(ctx, "a@x.com", "password123")
	assert.ErrorIs(t, err, ErrInvalidCredentials)

	_, err = s.auth.Login(ctx, "a@x.com", "new-password")
	assert.NoError(t, err)
}

func TestUpdateProfile(t *testing.T) {
	s := newSuite(t)
	ctx := context.Background()

	alice := s.registerConfirmed(t, "alice@x.com", "password123")
	s.registerConfirmed(t, "bob@x.com", "password123")

	// own email is not a conflict
	updated, err := s.auth.UpdateProfile(ctx, alice.ID, "Alice", "ALICE@x.com")
	require.NoError(t, err)
	assert.Equal(t, "Alice", updated.Name)
	assert.Equal(t, "alice@x.com", updated.Email)

	_, err = s.auth.UpdateProfile(ctx, alice.ID, "Alice", "bob@x.com")
	assert.ErrorIs(t, err, ErrUserExists)

	_, err = s.auth.UpdateProfile(ctx, uuid.New(), "Ghost", "ghost@x.com")
	assert.ErrorIs(t, err, ErrUserNotFound)
}

func TestUpdateCurrentUserPassword(t *testing.T) {
	s := newSuite(t)
	ctx := context.Background()

	user := s.registerConfirmed(t, "a@x.com", "password123")

	err := s.auth.UpdateCurrentUserPassword(ctx, user.ID, "wrong-password", "new-password")
	assert.ErrorIs(t, err, ErrInvalidCredentials)

	require.NoError(t, s.auth.UpdateCurrentUserPassword(ctx, user.ID, "password123", "new-password"))

	_, err = s.auth.Login(ctx, "a@x.com", "new-password")
	assert.NoError(t, err)
}

func TestUser(t *testing.T) {
	s := newSuite(t)
	ctx := context.Background()

	user := s.register(t, "a@x.com", "password123")

	got, err := s.auth.User(ctx, user.ID)
	require.NoError(t, err)
	assert.Equal(t, "Jane", got.Name)

	_, err = s.auth.User(ctx, uuid.New())
	assert.ErrorIs(t, err, ErrUserNotFound)
}
