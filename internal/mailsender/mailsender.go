package mailsender

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"html/template"
	"log/slog"

	"uptask/internal/models"

	"gopkg.in/gomail.v2"
)

var ErrUnknownPurpose = errors.New("unknown email purpose")

type Mailer struct {
	Host     string
	Port     int
	Username string
	Password string
	From     string
}

type email struct {
	subject string
	body    *template.Template
}

var emails = map[string]email{
	models.PurposeConfirmAccount: {
		subject: "UpTask - Confirm your account",
		body: template.Must(template.New("confirm").Parse(
			`<p>Hi {{.Name}}, you have created your UpTask account, it is almost ready.</p>
<p>Visit the following link to confirm your account:</p>
<a href="{{.Link}}">Confirm account</a>
<p>And enter the code: <b>{{.Token}}</b></p>
<p>This code expires in 10 minutes.</p>
`)),
	},
	models.PurposeResetPassword: {
		subject: "UpTask - Reset your password",
		body: template.Must(template.New("reset").Parse(
			`<p>Hi {{.Name}}, you have requested to reset your password. If this was a mistake, ignore this email.</p>
<p>Visit the following link to set a new password:</p>
<a href="{{.Link}}">Reset password</a>
<p>And enter the code: <b>{{.Token}}</b></p>
<p>This code expires in 10 minutes.</p>
`)),
	},
}

// Render returns the subject and html body for the message.
func Render(msg models.Message) (string, string, error) {
	const op = "mailsender.Render"

	e, ok := emails[msg.Purpose]
	if !ok {
		return "", "", fmt.Errorf("%s: %w: %q", op, ErrUnknownPurpose, msg.Purpose)
	}

	var buf bytes.Buffer
	if err := e.body.Execute(&buf, msg); err != nil {
		return "", "", fmt.Errorf("%s: %w", op, err)
	}

	return e.subject, buf.String(), nil
}

func (m *Mailer) Send(msg models.Message) error {
	const op = "mailsender.Send"

	subject, body, err := Render(msg)
	if err != nil {
		return err
	}

	gm := gomail.NewMessage()
	gm.SetHeader("To", msg.Email)
	gm.SetHeader("From", m.From)
	gm.SetHeader("Subject", subject)

	gm.SetBody("text/html", body)

	dialer := gomail.NewDialer(m.Host, m.Port, m.Username, m.Password)
	if err := dialer.DialAndSend(gm); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	return nil
}

// Sender delivers a rendered message.
type Sender interface {
	Send(msg models.Message) error
}

// Handler decodes a queue payload and delivers it.
func Handler(log *slog.Logger, s Sender) func(ctx context.Context, body []byte) error {
	return func(_ context.Context, body []byte) error {
		const op = "mailsender.Handler"

		var msg models.Message
		if err := json.Unmarshal(body, &msg); err != nil {
			return fmt.Errorf("%s: failed to unmarshal message: %w", op, err)
		}

		if err := s.Send(msg); err != nil {
			return err
		}

		log.Info("message sent successfully", slog.String("purpose", msg.Purpose))

		return nil
	}
}
