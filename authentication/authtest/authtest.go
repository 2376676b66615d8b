// Package authtest signs users in without going through a login form, for tests.
package authtest

import (
	"net/http"
	"net/http/httptest"
	"net/url"

	"github.com/jhchabran/newsroom/authentication"
)

// ForceLogin signs user in for every request client sends to serverURL.
// The session cookie is minted by auth itself, so the server accepts it as if
// the user had gone through the login page.
func ForceLogin(client *http.Client, serverURL string, auth authentication.AuthService, user *authentication.User) error {
	u, err := url.Parse(serverURL)
	if err != nil {
		return err
	}

	req := httptest.NewRequest("GET", serverURL, nil)
	rec := httptest.NewRecorder()
	if err := auth.SignIn(rec, req, user); err != nil {
		return err
	}

	client.Jar.SetCookies(u, rec.Result().Cookies())
	return nil
}
