// Package cookie_auth stores the signed in user in a signed session cookie.
package cookie_auth

import (
	"encoding/json"
	"net/http"

	"github.com/gorilla/sessions"
	"github.com/jhchabran/newsroom/authentication"
	"github.com/rs/zerolog"
)

const (
	sessionKey = "newsroom-session"
	userKey    = "user"
)

type Handler struct {
	sessionStore sessions.Store
	logger       zerolog.Logger
}

func New(sessionStore sessions.Store, logger zerolog.Logger) *Handler {
	return &Handler{
		sessionStore: sessionStore,
		logger:       logger,
	}
}

// CurrentUser returns the user stored in the session. A session cookie that
// cannot be decoded, for example after the server secret changed, is treated
// as no session at all.
func (h *Handler) CurrentUser(req *http.Request) (*authentication.User, error) {
	session, err := h.sessionStore.Get(req, sessionKey)
	if err != nil {
		h.logger.Debug().Err(err).Msg("Ignoring undecodable session")
		return nil, nil
	}

	b, ok := session.Values[userKey].([]byte)
	if !ok {
		return nil, nil
	}

	var user authentication.User
	if err := json.Unmarshal(b, &user); err != nil {
		return nil, err
	}

	return &user, nil
}

func (h *Handler) SignIn(res http.ResponseWriter, req *http.Request, user *authentication.User) error {
	// Get always returns a usable session, even when the previous cookie couldn't be decoded
	session, _ := h.sessionStore.Get(req, sessionKey)

	b, err := json.Marshal(user)
	if err != nil {
		return err
	}

	session.Values[userKey] = b
	session.Options.MaxAge = 60 * 60 * 24 * 14
	session.Options.HttpOnly = true
	// cross-site POSTs, such as a forged comment form, arrive without the session
	session.Options.SameSite = http.SameSiteLaxMode
	if err := session.Save(req, res); err != nil {
		return err
	}

	h.logger.Debug().Str("login", user.Login).Msg("Signed in")
	return nil
}

func (h *Handler) Destroy(res http.ResponseWriter, req *http.Request) error {
	session, _ := h.sessionStore.Get(req, sessionKey)

	delete(session.Values, userKey)
	session.Options.MaxAge = -1
	return session.Save(req, res)
}
