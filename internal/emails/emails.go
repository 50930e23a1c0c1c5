// Package emails turns account events into messages for the mail queue.
// Publication never blocks the request that triggered it.
package emails

import (
	"context"
	"log/slog"
	"strings"
	"sync"
	"time"

	sl "uptask/internal/lib/logger"
	"uptask/internal/models"
)

const publishTimeout = 5 * time.Second

type Publisher interface {
	SendMessage(ctx context.Context, msg models.Message) error
}

type AuthEmail struct {
	log         *slog.Logger
	pub         Publisher
	frontendURL string

	wg sync.WaitGroup
}

func New(log *slog.Logger, pub Publisher, frontendURL string) *AuthEmail {
	return &AuthEmail{
		log:         log,
		pub:         pub,
		frontendURL: strings.TrimRight(frontendURL, "/"),
	}
}

func (e *AuthEmail) SendConfirmationEmail(user models.User, token string) {
	e.publish(models.Message{
		Email:   user.Email,
		Name:    user.Name,
		Token:   token,
		Link:    e.frontendURL + "/auth/confirm-account",
		Purpose: models.PurposeConfirmAccount,
	})
}

func (e *AuthEmail) SendPasswordResetToken(user models.User, token string) {
	e.publish(models.Message{
		Email:   user.Email,
		Name:    user.Name,
		Token:   token,
		Link:    e.frontendURL + "/auth/new-password",
		Purpose: models.PurposeResetPassword,
	})
}

// Wait blocks until every started publication has finished.
func (e *AuthEmail) Wait() {
	e.wg.Wait()
}

func (e *AuthEmail) publish(msg models.Message) {
	const op = "emails.publish"

	e.wg.Add(1)
	go func() {
		defer e.wg.Done()

		ctx, cancel := context.WithTimeout(context.Background(), publishTimeout)
		defer cancel()

		log := e.log.With(slog.String("op", op), slog.String("purpose", msg.Purpose))

		if err := e.pub.SendMessage(ctx, msg); err != nil {
			log.Error("failed to publish email", sl.Err(err))
			return
		}

		log.Debug("email queued")
	}()
}
