package newsroom

import (
	"errors"
	"time"

	"github.com/jhchabran/newsroom/authentication"
	"golang.org/x/crypto/bcrypt"
)

// ErrNoPassword is returned when checking the password of a user who signed up
// through an OAuth provider.
var ErrNoPassword = errors.New("user has no password")

// ErrLoginTaken is returned when an OAuth login matches a user who signed up with a password.
var ErrLoginTaken = authentication.ErrLoginTaken

type User struct {
	ID           int64     `db:"id"`
	Name         string    `db:"name"`
	Email        string    `db:"email"`
	PasswordHash string    `db:"password_hash"`
	CreatedAt    time.Time `db:"created_at"`
	LastLoginAt  time.Time `db:"last_login_at"`
}

func NewUser(name string, email string) *User {
	now := NowFunc()
	return &User{
		Name:        name,
		Email:       email,
		CreatedAt:   now,
		LastLoginAt: now,
	}
}

// SetPassword stores a bcrypt hash of password.
func (u *User) SetPassword(password string) error {
	b, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return err
	}

	u.PasswordHash = string(b)
	return nil
}

// CheckPassword returns nil if password matches the stored hash.
func (u *User) CheckPassword(password string) error {
	if u.PasswordHash == "" {
		return ErrNoPassword
	}

	return bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(password))
}
