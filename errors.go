package newsroom

import (
	"database/sql"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
)

type ErrorResponder interface {
	RespondError(w http.ResponseWriter, r *http.Request) bool
}

// respondError writes the response for err, falling back on a 500 when err
// doesn't know how to respond by itself.
func (s *Server) respondError(w http.ResponseWriter, r *http.Request, err error) {
	var responder ErrorResponder
	if errors.As(err, &responder) && responder.RespondError(w, r) {
		s.Logger.Debug().Err(err).Str("request_id", ctxRequestID(r.Context())).Str("path", r.URL.Path).Msg("Request failed")
		return
	}

	s.Logger.Error().Err(err).Str("request_id", ctxRequestID(r.Context())).Str("path", r.URL.Path).Msg("Request failed")
	http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
}

// Maybe404Error responds with not found status code, if its supplied error
// is sql.ErrNoRows.
type Maybe404Error struct {
	err error
}

func Maybe404(err error) *Maybe404Error {
	return &Maybe404Error{err: err}
}

func (e *Maybe404Error) Error() string {
	return fmt.Sprintf("Maybe404: %v", e.err.Error())
}

func (e *Maybe404Error) Unwrap() error {
	return e.err
}

func (e *Maybe404Error) Is404() bool {
	return errors.Is(e.err, sql.ErrNoRows)
}

func (e *Maybe404Error) RespondError(w http.ResponseWriter, r *http.Request) bool {
	if !e.Is404() {
		return false
	}

	http.Error(w, http.StatusText(http.StatusNotFound), http.StatusNotFound)
	return true
}

// LoginRequiredError redirects to the login page, remembering where to come
// back to once authenticated.
type LoginRequiredError struct {
	path string
}

func LoginRequired(path string) *LoginRequiredError {
	return &LoginRequiredError{path: path}
}

func (e *LoginRequiredError) Error() string {
	return fmt.Sprintf("LoginRequiredError: %v", e.path)
}

func (e *LoginRequiredError) RespondError(w http.ResponseWriter, r *http.Request) bool {
	http.Redirect(w, r, LoginRedirectPath(e.path), http.StatusFound)
	return true
}

// LoginRedirectPath returns the login path with a next parameter pointing at
// path. Slashes are left unescaped so the target stays readable.
func LoginRedirectPath(path string) string {
	next := strings.ReplaceAll(url.QueryEscape(path), "%2F", "/")
	return loginPath + "?next=" + next
}

// BadRequestError responds with bad request status code
type BadRequestError struct {
	err error
}

func BadRequest(err error) *BadRequestError {
	return &BadRequestError{err: err}
}

func (e *BadRequestError) Error() string {
	return fmt.Sprintf("BadRequestError: %v", e.err)
}

func (e *BadRequestError) RespondError(w http.ResponseWriter, r *http.Request) bool {
	http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
	return true
}
