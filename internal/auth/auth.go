package auth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"uptask/internal/lib/jwt"
	sl "uptask/internal/lib/logger"
	"uptask/internal/lib/password"
	"uptask/internal/lib/settle"
	"uptask/internal/lib/token"
	"uptask/internal/models"
	"uptask/internal/storage"

	"github.com/google/uuid"
)

var (
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrUserExists         = errors.New("user already exists")
	ErrUserNotFound       = errors.New("user not found")
	ErrTokenNotFound      = errors.New("token not found")
	ErrNotConfirmed       = errors.New("account not confirmed")
	ErrAlreadyConfirmed   = errors.New("account already confirmed")
)

// tokenAttempts bounds the retries when a freshly generated code is taken.
const tokenAttempts = 5

type Auth struct {
	log         *slog.Logger
	usrSaver    UserSaver
	usrProvider UserProvider
	tokens      TokenStorage
	mailer      Mailer
	secret      string
	sessionTTL  time.Duration
	tokenTTL    time.Duration
}

type UserSaver interface {
	SaveUser(ctx context.Context, user models.User) error
	UpdateUser(ctx context.Context, user models.User) error
}

type UserProvider interface {
	User(ctx context.Context, email string) (models.User, error)
	UserByID(ctx context.Context, id uuid.UUID) (models.User, error)
}

type TokenStorage interface {
	SaveToken(ctx context.Context, t models.Token) error
	Token(ctx context.Context, token string) (models.Token, error)
	DeleteToken(ctx context.Context, token string) error
}

// Mailer sends emails without waiting for delivery.
type Mailer interface {
	SendConfirmationEmail(user models.User, token string)
	SendPasswordResetToken(user models.User, token string)
}

type NewAccount struct {
	Name     string
	Email    string
	Password string
}

func New(
	log *slog.Logger,
	userSaver UserSaver,
	userProvider UserProvider,
	tokens TokenStorage,
	mailer Mailer,
	secret string,
	sessionTTL, tokenTTL time.Duration,
) *Auth {
	return &Auth{
		log:         log,
		usrSaver:    userSaver,
		usrProvider: userProvider,
		tokens:      tokens,
		mailer:      mailer,
		secret:      secret,
		sessionTTL:  sessionTTL,
		tokenTTL:    tokenTTL,
	}
}

// * CreateAccount создает неподтвержденного пользователя и отправляет код подтверждения
func (a *Auth) CreateAccount(ctx context.Context, acc NewAccount) (models.User, error) {
	const op = "auth.CreateAccount"

	log := a.log.With(slog.String("op", op))

	email := normalizeEmail(acc.Email)

	_, err := a.usrProvider.User(ctx, email)
	if err == nil {
		log.Warn("user already exists")
		return models.User{}, fmt.Errorf("%s: %w", op, ErrUserExists)
	}
	if !errors.Is(err, storage.ErrUserNotFound) {
		log.Error("failed to get user", sl.Err(err))
		return models.User{}, fmt.Errorf("%s: %w", op, err)
	}

	passHash, err := password.Hash(acc.Password)
	if err != nil {
		log.Error("failed to generate password hash", sl.Err(err))
		return models.User{}, fmt.Errorf("%s: %w", op, err)
	}

	now := time.Now().UTC()
	user := models.User{
		ID:        uuid.New(),
		Name:      strings.TrimSpace(acc.Name),
		Email:     email,
		PassHash:  passHash,
		CreatedAt: now,
		UpdatedAt: now,
	}

	tok, err := a.newToken(ctx, user.ID)
	if err != nil {
		log.Error("failed to generate token", sl.Err(err))
		return models.User{}, fmt.Errorf("%s: %w", op, err)
	}

	a.mailer.SendConfirmationEmail(user, tok.Token)

	errs := settle.All(ctx,
		func(ctx context.Context) error { return a.usrSaver.SaveUser(ctx, user) },
		func(ctx context.Context) error { return a.tokens.SaveToken(ctx, tok) },
	)
	for _, err := range settle.Failed(errs) {
		log.Error("paired write failed", sl.Err(err), slog.String("uid", user.ID.String()))
	}

	log.Info("account created", slog.String("uid", user.ID.String()))

	return user, nil
}

// * ConfirmAccount подтверждает аккаунт и удаляет использованный код
func (a *Auth) ConfirmAccount(ctx context.Context, code string) error {
	const op = "auth.ConfirmAccount"

	log := a.log.With(slog.String("op", op))

	tok, user, err := a.tokenOwner(ctx, code)
	if err != nil {
		if !errors.Is(err, ErrTokenNotFound) {
			log.Error("failed to resolve token", sl.Err(err))
		}
		return fmt.Errorf("%s: %w", op, err)
	}

	user.Confirmed = true

	errs := settle.All(ctx,
		func(ctx context.Context) error { return a.usrSaver.UpdateUser(ctx, user) },
		func(ctx context.Context) error { return a.tokens.DeleteToken(ctx, tok.Token) },
	)
	for _, err := range settle.Failed(errs) {
		log.Error("paired write failed", sl.Err(err), slog.String("uid", user.ID.String()))
	}

	log.Info("account confirmed", slog.String("uid", user.ID.String()))

	return nil
}

// * Login проверяет учетные данные и возвращает JWT
func (a *Auth) Login(ctx context.Context, email, pass string) (string, error) {
	const op = "auth.Login"

	log := a.log.With(slog.String("op", op))

	user, err := a.userByEmail(ctx, email)
	if err != nil {
		if !errors.Is(err, ErrUserNotFound) {
			log.Error("failed to get user", sl.Err(err))
		}
		return "", fmt.Errorf("%s: %w", op, err)
	}

	if !user.Confirmed {
		log.Info("login attempt on unconfirmed account", slog.String("uid", user.ID.String()))

		tok, err := a.issueToken(ctx, user.ID)
		if err != nil {
			log.Error("failed to issue confirmation token", sl.Err(err))
		} else {
			a.mailer.SendConfirmationEmail(user, tok.Token)
		}

		return "", fmt.Errorf("%s: %w", op, ErrNotConfirmed)
	}

	if err := password.Check(user.PassHash, pass); err != nil {
		log.Info("invalid credentials", sl.Err(err))
		return "", fmt.Errorf("%s: %w", op, ErrInvalidCredentials)
	}

	session, err := jwt.NewToken(user.ID, a.secret, a.sessionTTL)
	if err != nil {
		log.Error("failed to generate session token", sl.Err(err))
		return "", fmt.Errorf("%s: %w", op, err)
	}

	log.Info("user logged in successfully", slog.String("uid", user.ID.String()))

	return session, nil
}

// * RequestConfirmationCode выдает новый код подтверждения
func (a *Auth) RequestConfirmationCode(ctx context.Context, email string) error {
	const op = "auth.RequestConfirmationCode"

	log := a.log.With(slog.String("op", op))

	user, err := a.userByEmail(ctx, email)
	if err != nil {
		if !errors.Is(err, ErrUserNotFound) {
			log.Error("failed to get user", sl.Err(err))
		}
		return fmt.Errorf("%s: %w", op, err)
	}

	if user.Confirmed {
		return fmt.Errorf("%s: %w", op, ErrAlreadyConfirmed)
	}

	tok, err := a.issueToken(ctx, user.ID)
	if err != nil {
		log.Error("failed to issue token", sl.Err(err))
		return fmt.Errorf("%s: %w", op, err)
	}

	a.mailer.SendConfirmationEmail(user, tok.Token)

	return nil
}

// * ForgotPassword выдает код для сброса пароля
func (a *Auth) ForgotPassword(ctx context.Context, email string) error {
	const op = "auth.ForgotPassword"

	log := a.log.With(slog.String("op", op))

	user, err := a.userByEmail(ctx, email)
	if err != nil {
		if !errors.Is(err, ErrUserNotFound) {
			log.Error("failed to get user", sl.Err(err))
		}
		return fmt.Errorf("%s: %w", op, err)
	}

	tok, err := a.issueToken(ctx, user.ID)
	if err != nil {
		log.Error("failed to issue token", sl.Err(err))
		return fmt.Errorf("%s: %w", op, err)
	}

	a.mailer.SendPasswordResetToken(user, tok.Token)

	return nil
}

// ValidateToken checks that the code exists without consuming it.
func (a *Auth) ValidateToken(ctx context.Context, code string) error {
	const op = "auth.ValidateToken"

	if _, err := a.lookupToken(ctx, code); err != nil {
		if !errors.Is(err, ErrTokenNotFound) {
			a.log.Error("failed to get token", slog.String("op", op), sl.Err(err))
		}
		return fmt.Errorf("%s: %w", op, err)
	}

	return nil
}

// * UpdatePasswordWithToken меняет пароль по коду из письма
func (a *Auth) UpdatePasswordWithToken(ctx context.Context, code, newPass string) error {
	const op = "auth.UpdatePasswordWithToken"

	log := a.log.With(slog.String("op", op))

	tok, user, err := a.tokenOwner(ctx, code)
	if err != nil {
		if !errors.Is(err, ErrTokenNotFound) {
			log.Error("failed to resolve token", sl.Err(err))
		}
		return fmt.Errorf("%s: %w", op, err)
	}

	passHash, err := password.Hash(newPass)
	if err != nil {
		log.Error("failed to generate password hash", sl.Err(err))
		return fmt.Errorf("%s: %w", op, err)
	}
	user.PassHash = passHash

	errs := settle.All(ctx,
		func(ctx context.Context) error { return a.usrSaver.UpdateUser(ctx, user) },
		func(ctx context.Context) error { return a.tokens.DeleteToken(ctx, tok.Token) },
	)
	for _, err := range settle.Failed(errs) {
		log.Error("paired write failed", sl.Err(err), slog.String("uid", user.ID.String()))
	}

	log.Info("password reset", slog.String("uid", user.ID.String()))

	return nil
}

// User returns the account with the given id.
func (a *Auth) User(ctx context.Context, id uuid.UUID) (models.User, error) {
	const op = "auth.User"

	user, err := a.usrProvider.UserByID(ctx, id)
	if err != nil {
		if errors.Is(err, storage.ErrUserNotFound) {
			return models.User{}, fmt.Errorf("%s: %w", op, ErrUserNotFound)
		}
		return models.User{}, fmt.Errorf("%s: %w", op, err)
	}

	return user, nil
}

// * UpdateProfile меняет имя и email текущего пользователя
func (a *Auth) UpdateProfile(ctx context.Context, userID uuid.UUID, name, email string) (models.User, error) {
	const op = "auth.UpdateProfile"

	log := a.log.With(slog.String("op", op), slog.String("uid", userID.String()))

	user, err := a.User(ctx, userID)
	if err != nil {
		return models.User{}, fmt.Errorf("%s: %w", op, err)
	}

	email = normalizeEmail(email)

	other, err := a.usrProvider.User(ctx, email)
	switch {
	case err == nil && other.ID != user.ID:
		log.Warn("email belongs to another user")
		return models.User{}, fmt.Errorf("%s: %w", op, ErrUserExists)
	case err != nil && !errors.Is(err, storage.ErrUserNotFound):
		log.Error("failed to get user", sl.Err(err))
		return models.User{}, fmt.Errorf("%s: %w", op, err)
	}

	user.Name = strings.TrimSpace(name)
	user.Email = email
	user.UpdatedAt = time.Now().UTC()

	if err := a.usrSaver.UpdateUser(ctx, user); err != nil {
		if errors.Is(err, storage.ErrUserExists) {
			return models.User{}, fmt.Errorf("%s: %w", op, ErrUserExists)
		}

		log.Error("failed to update user", sl.Err(err))
		return models.User{}, fmt.Errorf("%s: %w", op, err)
	}

	return user, nil
}

// * UpdateCurrentUserPassword меняет пароль после проверки текущего
func (a *Auth) UpdateCurrentUserPassword(ctx context.Context, userID uuid.UUID, current, newPass string) error {
	const op = "auth.UpdateCurrentUserPassword"

	log := a.log.With(slog.String("op", op), slog.String("uid", userID.String()))

	user, err := a.User(ctx, userID)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	if err := password.Check(user.PassHash, current); err != nil {
		log.Info("current password mismatch")
		return fmt.Errorf("%s: %w", op, ErrInvalidCredentials)
	}

	passHash, err := password.Hash(newPass)
	if err != nil {
		log.Error("failed to generate password hash", sl.Err(err))
		return fmt.Errorf("%s: %w", op, err)
	}

	user.PassHash = passHash
	user.UpdatedAt = time.Now().UTC()

	if err := a.usrSaver.UpdateUser(ctx, user); err != nil {
		log.Error("failed to update user", sl.Err(err))
		return fmt.Errorf("%s: %w", op, err)
	}

	return nil
}

func (a *Auth) userByEmail(ctx context.Context, email string) (models.User, error) {
	user, err := a.usrProvider.User(ctx, normalizeEmail(email))
	if err != nil {
		if errors.Is(err, storage.ErrUserNotFound) {
			return models.User{}, ErrUserNotFound
		}
		return models.User{}, err
	}

	return user, nil
}

func (a *Auth) lookupToken(ctx context.Context, code string) (models.Token, error) {
	tok, err := a.tokens.Token(ctx, code)
	if err != nil {
		if errors.Is(err, storage.ErrTokenNotFound) {
			return models.Token{}, ErrTokenNotFound
		}
		return models.Token{}, err
	}

	return tok, nil
}

// tokenOwner resolves the code and the user it was issued to.
func (a *Auth) tokenOwner(ctx context.Context, code string) (models.Token, models.User, error) {
	tok, err := a.lookupToken(ctx, code)
	if err != nil {
		return models.Token{}, models.User{}, err
	}

	user, err := a.usrProvider.UserByID(ctx, tok.UserID)
	if err != nil {
		if errors.Is(err, storage.ErrUserNotFound) {
			// orphaned token left by a failed paired write
			return models.Token{}, models.User{}, ErrTokenNotFound
		}
		return models.Token{}, models.User{}, err
	}

	return tok, user, nil
}

// newToken builds a code that is not in use yet. It is not persisted.
func (a *Auth) newToken(ctx context.Context, userID uuid.UUID) (models.Token, error) {
	for range tokenAttempts {
		code, err := token.Generate()
		if err != nil {
			return models.Token{}, err
		}

		_, err = a.tokens.Token(ctx, code)
		if errors.Is(err, storage.ErrTokenNotFound) {
			now := time.Now().UTC()
			return models.Token{
				Token:     code,
				UserID:    userID,
				CreatedAt: now,
				ExpiresAt: now.Add(a.tokenTTL),
			}, nil
		}
		if err != nil {
			return models.Token{}, err
		}
	}

	return models.Token{}, storage.ErrTokenExists
}

// issueToken builds and persists a code, retrying on collisions.
func (a *Auth) issueToken(ctx context.Context, userID uuid.UUID) (models.Token, error) {
	for range tokenAttempts {
		tok, err := a.newToken(ctx, userID)
		if err != nil {
			return models.Token{}, err
		}

		err = a.tokens.SaveToken(ctx, tok)
		if errors.Is(err, storage.ErrTokenExists) {
			continue
		}
		if err != nil {
			return models.Token{}, err
		}

		return tok, nil
	}

	return models.Token{}, storage.ErrTokenExists
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
