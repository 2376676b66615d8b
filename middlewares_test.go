package newsroom

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	qt "github.com/frankban/quicktest"
	"github.com/jhchabran/newsroom/authentication"
	"github.com/julienschmidt/httprouter"
	"github.com/rs/zerolog"
)

// stubAuth is an AuthService always returning the same session.
type stubAuth struct {
	user *authentication.User
	err  error
}

func (a *stubAuth) CurrentUser(*http.Request) (*authentication.User, error) {
	return a.user, a.err
}

func (a *stubAuth) SignIn(http.ResponseWriter, *http.Request, *authentication.User) error {
	return nil
}

func (a *stubAuth) Destroy(http.ResponseWriter, *http.Request) error {
	return nil
}

func TestWithMiddlewares(t *testing.T) {
	c := qt.New(t)

	handler := func(w http.ResponseWriter, r *http.Request, p httprouter.Params) {}

	c.Run("calls middlewares", func(c *qt.C) {
		s1 := false
		m1 := func(h httprouter.Handle) httprouter.Handle { s1 = true; return h }

		withMiddlewares(func(m middleware) { m(handler) }, m1)
		c.Assert(s1, qt.IsTrue)
	})

	c.Run("passing m1, m2, m3 run them in that order", func(c *qt.C) {
		trace := []int{}
		tracer := func(i int) middleware {
			return func(h httprouter.Handle) httprouter.Handle {
				return func(w http.ResponseWriter, r *http.Request, p httprouter.Params) {
					trace = append(trace, i)
					h(w, r, p)
				}
			}
		}

		var h httprouter.Handle
		withMiddlewares(func(m middleware) { h = m(handler) },
			tracer(1),
			tracer(2),
			tracer(3))

		h(httptest.NewRecorder(), &http.Request{}, httprouter.Params{})

		c.Assert(trace, qt.DeepEquals, []int{1, 2, 3})
	})
}

func TestLoadSessionMiddleware(t *testing.T) {
	c := qt.New(t)

	c.Run("stores the session in the context", func(c *qt.C) {
		auth := &stubAuth{user: &authentication.User{ID: 1, Login: "alpha"}}
		s := &Server{Logger: zerolog.Nop(), authService: auth}

		var seen *authentication.User
		h := s.loadSessionMiddleware()(func(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
			seen = ctxSession(r.Context())
		})
		h(httptest.NewRecorder(), httptest.NewRequest("GET", "/", nil), nil)

		c.Assert(seen, qt.Not(qt.IsNil))
		c.Assert(seen.Login, qt.Equals, "alpha")
	})

	c.Run("halts on session errors", func(c *qt.C) {
		auth := &stubAuth{err: errors.New("boom")}
		s := &Server{Logger: zerolog.Nop(), authService: auth}

		called := false
		h := s.loadSessionMiddleware()(func(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
			called = true
		})
		rec := httptest.NewRecorder()
		h(rec, httptest.NewRequest("GET", "/", nil), nil)

		c.Assert(called, qt.IsFalse)
		c.Assert(rec.Code, qt.Equals, http.StatusInternalServerError)
	})
}

func TestRequireLoginMiddleware(t *testing.T) {
	c := qt.New(t)
	s := &Server{Logger: zerolog.Nop()}

	c.Run("redirects anonymous requests to the login page", func(c *qt.C) {
		called := false
		h := s.requireLoginMiddleware()(func(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
			called = true
		})
		rec := httptest.NewRecorder()
		h(rec, httptest.NewRequest("GET", "/comments/3/edit", nil), nil)

		c.Assert(called, qt.IsFalse)
		c.Assert(rec.Code, qt.Equals, http.StatusFound)
		c.Assert(rec.Header().Get("Location"), qt.Equals, "/auth/login?next=/comments/3/edit")
	})

	c.Run("lets authenticated requests through", func(c *qt.C) {
		called := false
		h := s.requireLoginMiddleware()(func(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
			called = true
		})
		req := httptest.NewRequest("GET", "/comments/3/edit", nil)
		req = req.WithContext(context.WithValue(req.Context(), ctxKeyUser, &User{ID: 1, Name: "alpha"}))
		h(httptest.NewRecorder(), req, nil)

		c.Assert(called, qt.IsTrue)
	})
}

func TestAccessLogMiddleware(t *testing.T) {
	c := qt.New(t)

	var buf bytes.Buffer
	s := &Server{Logger: zerolog.New(&buf)}

	var requestID string
	h := s.accessLogMiddleware()(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requestID = ctxRequestID(r.Context())
		w.WriteHeader(http.StatusTeapot)
		_, _ = w.Write([]byte("short and stout"))
	}))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest("GET", "/teapot", nil))

	c.Assert(requestID, qt.Not(qt.Equals), "")
	c.Assert(rec.Header().Get("X-Request-Id"), qt.Equals, requestID)

	var line map[string]interface{}
	c.Assert(json.Unmarshal(buf.Bytes(), &line), qt.IsNil)
	c.Assert(line["request_id"], qt.Equals, requestID)
	c.Assert(line["uri"], qt.Equals, "/teapot")
	c.Assert(line["status"], qt.Equals, float64(http.StatusTeapot))
	c.Assert(line["length"], qt.Equals, float64(len("short and stout")))
}
