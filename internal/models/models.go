package models

import (
	"time"

	"github.com/google/uuid"
)

type User struct {
	ID        uuid.UUID `json:"id"`
	Name      string    `json:"name"`
	Email     string    `json:"email"`
	PassHash  []byte    `json:"-"`
	Confirmed bool      `json:"confirmed"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// UserRef is the public part of a user embedded into other resources.
type UserRef struct {
	ID    uuid.UUID `json:"id"`
	Name  string    `json:"name"`
	Email string    `json:"email"`
}

func (u User) Ref() UserRef {
	return UserRef{ID: u.ID, Name: u.Name, Email: u.Email}
}

// Token is a single-use code tied to one user. It confirms an account or
// authorizes a password reset.
type Token struct {
	Token     string    `json:"token"`
	UserID    uuid.UUID `json:"user_id"`
	CreatedAt time.Time `json:"created_at"`
	ExpiresAt time.Time `json:"expires_at"`
}

// * IsExpired проверяет, истек ли срок действия токена
func (t Token) IsExpired() bool {
	return t.ExpiresAt.Before(time.Now())
}

type Project struct {
	ID          uuid.UUID   `json:"id"`
	ProjectName string      `json:"project_name"`
	ClientName  string      `json:"client_name"`
	Description string      `json:"description"`
	Manager     uuid.UUID   `json:"manager"`
	Team        []uuid.UUID `json:"team"`
	CreatedAt   time.Time   `json:"created_at"`
	UpdatedAt   time.Time   `json:"updated_at"`
}

// HasMember reports whether the user manages the project or belongs to its team.
func (p *Project) HasMember(userID uuid.UUID) bool {
	if p.Manager == userID {
		return true
	}

	for _, id := range p.Team {
		if id == userID {
			return true
		}
	}

	return false
}

type TaskStatus string

const (
	StatusPending     TaskStatus = "pending"
	StatusOnHold      TaskStatus = "onHold"
	StatusInProgress  TaskStatus = "inProgress"
	StatusUnderReview TaskStatus = "underReview"
	StatusCompleted   TaskStatus = "completed"
)

type Task struct {
	ID          uuid.UUID   `json:"id"`
	ProjectID   uuid.UUID   `json:"project"`
	Name        string      `json:"name"`
	Description string      `json:"description"`
	Status      TaskStatus  `json:"status"`
	Notes       []uuid.UUID `json:"notes"`
	CreatedAt   time.Time   `json:"created_at"`
	UpdatedAt   time.Time   `json:"updated_at"`
}

type Note struct {
	ID        uuid.UUID `json:"id"`
	Content   string    `json:"content"`
	CreatedBy UserRef   `json:"created_by"`
	TaskID    uuid.UUID `json:"task"`
	CreatedAt time.Time `json:"created_at"`
}

const (
	PurposeConfirmAccount = "confirm_account"
	PurposeResetPassword  = "reset_password"
)

// Message is the payload published to the mail queue.
type Message struct {
	Email   string `json:"to"`
	Name    string `json:"name"`
	Token   string `json:"token"`
	Link    string `json:"link"`
	Purpose string `json:"purpose"`
}
