package integration

import (
	"encoding/json"
	"net"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"

	qt "github.com/frankban/quicktest"
	"github.com/gorilla/sessions"
	"github.com/jhchabran/newsroom"
	"github.com/jhchabran/newsroom/authentication/cookie_auth"
	"github.com/jhchabran/newsroom/authentication/github_auth"
	"go.uber.org/goleak"
)

func TestServerStartStop(t *testing.T) {
	defer goleak.VerifyNone(t, goleak.IgnoreCurrent())
	c := qt.New(t)

	c.Run("stops gracefully", func(c *qt.C) {
		store := newTestStore(c)
		defer store.Close()

		s := newsroom.NewServer(&newsroom.ServerConfig{Addr: "127.0.0.1:0"}, newTestLogger(c), store, cookie_auth.New(sessions.NewCookieStore([]byte("test")), newTestLogger(c)))
		c.Assert(s.Prepare(), qt.IsNil)

		errc := make(chan error, 1)
		go func() { errc <- s.Start() }()

		s.Stop()
		c.Assert(<-errc, qt.IsNil)
	})

	c.Run("reports an address already in use", func(c *qt.C) {
		l, err := net.Listen("tcp", "127.0.0.1:0")
		c.Assert(err, qt.IsNil)
		defer l.Close()

		store := newTestStore(c)
		defer store.Close()

		s := newsroom.NewServer(&newsroom.ServerConfig{Addr: l.Addr().String()}, newTestLogger(c), store, cookie_auth.New(sessions.NewCookieStore([]byte("test")), newTestLogger(c)))
		c.Assert(s.Prepare(), qt.IsNil)

		c.Assert(s.Start(), qt.Not(qt.IsNil))
		// Stop must not block once Start gave up
		s.Stop()
	})
}

// newFakeGitHub serves the OAuth and user endpoints of GitHub for a single user.
func newFakeGitHub(c *qt.C, login string) *httptest.Server {
	mux := http.NewServeMux()
	mux.HandleFunc("/login/oauth/authorize", func(w http.ResponseWriter, r *http.Request) {
		redirect, err := url.Parse(r.URL.Query().Get("redirect_uri"))
		if err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		q := redirect.Query()
		q.Set("code", "the-code")
		q.Set("state", r.URL.Query().Get("state"))
		redirect.RawQuery = q.Encode()
		http.Redirect(w, r, redirect.String(), http.StatusFound)
	})
	mux.HandleFunc("/login/oauth/access_token", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]interface{}{
			"access_token": "the-token",
			"token_type":   "bearer",
		})
	})
	mux.HandleFunc("/api/user", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]interface{}{
			"login": login,
			"email": login + "@github.com",
		})
	})

	srv := httptest.NewServer(mux)
	c.Cleanup(srv.Close)
	return srv
}

// newGitHubTestContext returns a test context whose server signs in through a fake GitHub
// knowing a single user, login.
func newGitHubTestContext(c *qt.C, login string) *testContext {
	gh := newFakeGitHub(c, login)

	logger := newTestLogger(c)
	store := newTestStore(c)
	sessionStore := sessions.NewCookieStore([]byte("test"))
	auth := cookie_auth.New(sessionStore, logger)
	oauth, err := github_auth.New(github_auth.Config{
		ClientID:     "id",
		ClientSecret: "secret",
		AuthURL:      gh.URL + "/login/oauth/authorize",
		TokenURL:     gh.URL + "/login/oauth/access_token",
		APIBaseURL:   gh.URL + "/api/",
	}, sessionStore, auth, logger)
	c.Assert(err, qt.IsNil)

	s := newsroom.NewServer(&newsroom.ServerConfig{}, logger, store, auth)
	s.SetOAuthHandler(oauth)
	c.Assert(s.Prepare(), qt.IsNil)
	ts := httptest.NewServer(s)
	c.Cleanup(func() {
		ts.Close()
		store.Close()
	})
	oauth.SetRedirectURL(ts.URL + "/auth/github/callback")

	return &testContext{c: c, server: s, testServer: ts, store: store, auth: auth}
}

func TestGitHubSignIn(t *testing.T) {
	c := qt.New(t)

	c.Run("creates the user once", func(c *qt.C) {
		tc := newGitHubTestContext(c, "octocat")

		// follow redirects through the fake GitHub and back
		client := tc.newHTTPClient()
		client.CheckRedirect = nil

		resp := tc.get(client, "/auth/github/start")
		c.Assert(resp.StatusCode, qt.Equals, http.StatusOK)
		c.Assert(resp.Request.URL.Path, qt.Equals, "/")

		user, err := tc.store.FindUserByLogin("octocat")
		c.Assert(err, qt.IsNil)
		c.Assert(user, qt.Not(qt.IsNil))
		c.Assert(user.Email, qt.Equals, "octocat@github.com")

		c.Assert(signedInAs(tc, client), qt.Equals, "octocat")

		// signing in again doesn't create another user
		resp = tc.get(client, "/auth/github/start")
		c.Assert(resp.StatusCode, qt.Equals, http.StatusOK)
		again, err := tc.store.FindUserByLogin("octocat")
		c.Assert(err, qt.IsNil)
		c.Assert(again.ID, qt.Equals, user.ID)
	})

	c.Run("can't take over a password account with the same login", func(c *qt.C) {
		tc := newGitHubTestContext(c, "Автор")

		local := newsroom.NewUser("Автор", "")
		c.Assert(local.SetPassword("correct horse"), qt.IsNil)
		c.Assert(tc.store.InsertUser(local), qt.IsNil)
		comment := tc.createComment(tc.createNews(), local)

		client := tc.newHTTPClient()
		client.CheckRedirect = nil

		resp := tc.get(client, "/auth/github/start")
		c.Assert(resp.StatusCode, qt.Equals, http.StatusConflict)
		c.Assert(signedInAs(tc, client), qt.Equals, "")

		// still anonymous, so sent to the login page instead of the edit form
		client.CheckRedirect = func(*http.Request, []*http.Request) error {
			return http.ErrUseLastResponse
		}
		resp = tc.get(client, comment.EditPath())
		c.Assert(resp.StatusCode, qt.Equals, http.StatusFound)
		c.Assert(resp.Header.Get("Location"), qt.Matches, "/auth/login.*")

		found, err := tc.store.FindUserByLogin("Автор")
		c.Assert(err, qt.IsNil)
		c.Assert(found.ID, qt.Equals, local.ID)
		c.Assert(found.CheckPassword("correct horse"), qt.IsNil)
	})
}
