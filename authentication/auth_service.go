package authentication

import (
	"errors"
	"net/http"
)

// ErrLoginTaken is returned by a sign in callback when the provider's login
// belongs to an account created on the site.
var ErrLoginTaken = errors.New("login is taken by a local account")

// An AuthService keeps track of the signed in user across requests.
type AuthService interface {
	// CurrentUser returns the signed in user, or nil if there is none.
	CurrentUser(req *http.Request) (*User, error)
	SignIn(res http.ResponseWriter, req *http.Request, user *User) error
	Destroy(res http.ResponseWriter, req *http.Request) error
}

// An OAuthHandler is responsible of providing the callbacks to interact
// with an OAuth provider.
type OAuthHandler interface {
	Start(res http.ResponseWriter, req *http.Request)
	// Callback completes the flow. beforeSignIn is given the user fetched from
	// the provider and must set its ID before it gets signed in.
	Callback(res http.ResponseWriter, req *http.Request, beforeSignIn func(*User) error)
}

// A User is what gets stored in the session to identify the signed in user.
type User struct {
	ID        int64  `json:"id"`
	Login     string `json:"login"`
	Email     string `json:"email,omitempty"`
	AvatarURL string `json:"avatar_url,omitempty"`
}
