package emails

import (
	"context"
	"errors"
	"sync"
	"testing"

	sl "uptask/internal/lib/logger"
	"uptask/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakePublisher struct {
	mu   sync.Mutex
	msgs []models.Message
	err  error
}

func (p *fakePublisher) SendMessage(_ context.Context, msg models.Message) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.msgs = append(p.msgs, msg)

	return p.err
}

var user = models.User{Name: "Jane", Email: "jane@x.com"}

func TestSendConfirmationEmail(t *testing.T) {
	pub := &fakePublisher{}
	e := New(sl.Discard(), pub, "http://localhost:5173/")

	e.SendConfirmationEmail(user, "123456")
	e.Wait()

	require.Len(t, pub.msgs, 1)
	assert.Equal(t, models.Message{
		Email:   "jane@x.com",
		Name:    "Jane",
		Token:   "123456",
		Link:    "http://localhost:5173/auth/confirm-account",
		Purpose: models.PurposeConfirmAccount,
	}, pub.msgs[0])
}

func TestSendPasswordResetToken(t *testing.T) {
	pub := &fakePublisher{}
	e := New(sl.Discard(), pub, "https://app.example.com")

	e.SendPasswordResetToken(user, "654321")
	e.Wait()

	require.Len(t, pub.msgs, 1)
	assert.Equal(t, "https://app.example.com/auth/new-password", pub.msgs[0].Link)
	assert.Equal(t, models.PurposeResetPassword, pub.msgs[0].Purpose)
}

func TestPublishFailureIsNotObserved(t *testing.T) {
	pub := &fakePublisher{err: errors.New("broker down")}
	e := New(sl.Discard(), pub, "http://localhost")

	assert.NotPanics(t, func() {
		e.SendConfirmationEmail(user, "111111")
		e.SendConfirmationEmail(user, "222222")
		e.Wait()
	})
	assert.Len(t, pub.msgs, 2)
}
