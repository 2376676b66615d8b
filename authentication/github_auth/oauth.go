package github_auth

import (
	"crypto/rand"
	"encoding/base64"
	"errors"
	"net/http"
	"net/url"

	"github.com/google/go-github/github"
	"github.com/gorilla/sessions"
	"github.com/jhchabran/newsroom/authentication"
	"github.com/rs/zerolog"
	"golang.org/x/oauth2"
)

const (
	sessionKey = "newsroom-oauth"
	stateKey   = "state"
)

// Config holds the OAuth application credentials. The endpoints default to
// GitHub's and are only overridden in tests.
type Config struct {
	ClientID     string
	ClientSecret string
	RedirectURL  string
	AuthURL      string
	TokenURL     string
	APIBaseURL   string
}

type Handler struct {
	sessionStore sessions.Store
	auth         authentication.AuthService
	logger       zerolog.Logger
	oauthConfig  *oauth2.Config
	apiBaseURL   *url.URL
}

func New(cfg Config, sessionStore sessions.Store, auth authentication.AuthService, logger zerolog.Logger) (*Handler, error) {
	endpoint := oauth2.Endpoint{
		AuthURL:  "https://github.com/login/oauth/authorize",
		TokenURL: "https://github.com/login/oauth/access_token",
	}
	if cfg.AuthURL != "" {
		endpoint.AuthURL = cfg.AuthURL
	}
	if cfg.TokenURL != "" {
		endpoint.TokenURL = cfg.TokenURL
	}

	h := &Handler{
		sessionStore: sessionStore,
		auth:         auth,
		logger:       logger,
		oauthConfig: &oauth2.Config{
			ClientID:     cfg.ClientID,
			ClientSecret: cfg.ClientSecret,
			Endpoint:     endpoint,
			RedirectURL:  cfg.RedirectURL,
			Scopes:       []string{"user:email"},
		},
	}

	if cfg.APIBaseURL != "" {
		u, err := url.Parse(cfg.APIBaseURL)
		if err != nil {
			return nil, err
		}
		h.apiBaseURL = u
	}

	return h, nil
}

// SetRedirectURL sets the URL GitHub sends users back to, which is only known
// once the server is listening in tests.
func (h *Handler) SetRedirectURL(u string) {
	h.oauthConfig.RedirectURL = u
}

// Start redirects the user to GitHub, remembering a random state to check on the way back.
func (h *Handler) Start(res http.ResponseWriter, req *http.Request) {
	b := make([]byte, 16)
	if _, err := rand.Read(b); err != nil {
		h.logger.Error().Err(err).Msg("Failed to generate state")
		http.Error(res, "Failed to start authentication", http.StatusInternalServerError)
		return
	}
	state := base64.URLEncoding.EncodeToString(b)

	session, _ := h.sessionStore.Get(req, sessionKey)
	session.Values[stateKey] = state
	if err := session.Save(req, res); err != nil {
		h.logger.Error().Err(err).Msg("Failed to save session")
		http.Error(res, "Failed to save session", http.StatusInternalServerError)
		return
	}

	http.Redirect(res, req, h.oauthConfig.AuthCodeURL(state), http.StatusFound)
}

func (h *Handler) Callback(res http.ResponseWriter, req *http.Request, beforeSignIn func(*authentication.User) error) {
	session, err := h.sessionStore.Get(req, sessionKey)
	if err != nil {
		http.Error(res, "Session aborted", http.StatusBadRequest)
		return
	}

	state, ok := session.Values[stateKey].(string)
	if !ok || state == "" || req.URL.Query().Get("state") != state {
		http.Error(res, "no state match; possible csrf OR cookies not enabled", http.StatusBadRequest)
		return
	}

	// a state can only be used once
	delete(session.Values, stateKey)
	if err := session.Save(req, res); err != nil {
		h.logger.Error().Err(err).Msg("Failed to save session")
		http.Error(res, "Failed to save session", http.StatusInternalServerError)
		return
	}

	ctx := req.Context()
	token, err := h.oauthConfig.Exchange(ctx, req.URL.Query().Get("code"))
	if err != nil {
		h.logger.Warn().Err(err).Msg("Failed to exchange code")
		http.Error(res, "there was an issue getting your token", http.StatusBadGateway)
		return
	}

	if !token.Valid() {
		http.Error(res, "retrieved invalid token", http.StatusBadRequest)
		return
	}

	client := github.NewClient(h.oauthConfig.Client(ctx, token))
	if h.apiBaseURL != nil {
		client.BaseURL = h.apiBaseURL
	}

	ghUser, _, err := client.Users.Get(ctx, "")
	if err != nil {
		h.logger.Warn().Err(err).Msg("Failed to fetch GitHub user")
		http.Error(res, "couldn't load user data from Github", http.StatusBadGateway)
		return
	}

	user := &authentication.User{
		Login:     ghUser.GetLogin(),
		Email:     ghUser.GetEmail(),
		AvatarURL: ghUser.GetAvatarURL(),
	}

	if err := beforeSignIn(user); errors.Is(err, authentication.ErrLoginTaken) {
		h.logger.Warn().Err(err).Str("login", user.Login).Msg("Refused OAuth sign in")
		http.Error(res, "this login belongs to another account", http.StatusConflict)
		return
	} else if err != nil {
		h.logger.Error().Err(err).Str("login", user.Login).Msg("OAuth callback failed")
		http.Error(res, "failed to execute oauth callback", http.StatusInternalServerError)
		return
	}

	if err := h.auth.SignIn(res, req, user); err != nil {
		h.logger.Error().Err(err).Msg("Failed to sign in")
		http.Error(res, "could not save session", http.StatusInternalServerError)
		return
	}

	http.Redirect(res, req, "/", http.StatusFound)
}
