package newsroom

import (
	"context"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/jhchabran/newsroom/authentication"
	"github.com/julienschmidt/httprouter"
)

// middleware is a convenient type for declaring middlewares.
type middleware func(httprouter.Handle) httprouter.Handle

// httpMiddleware is a convenient type for declaring middlewares.
type httpMiddleware func(http.Handler) http.Handler

// contextKey is a type for storing values in each request context.
type contextKey string

// String returns a stringified context key.
func (k contextKey) String() string { return string(k) }

// ctxKeySession is the context key for storing the current user session in a context
var ctxKeySession = contextKey("session")

// ctxKeyUser is the context key for storing the current user record in a context
var ctxKeyUser = contextKey("user")

// ctxKeyRequestID is the context key for the id given to each request by the access log.
var ctxKeyRequestID = contextKey("request_id")

// ctxSession is a helper func to fetch the user session from the context.
func ctxSession(ctx context.Context) *authentication.User {
	v, _ := ctx.Value(ctxKeySession).(*authentication.User)
	return v
}

// ctxUser is a helper func to fetch the user record from the context.
func ctxUser(ctx context.Context) *User {
	v, _ := ctx.Value(ctxKeyUser).(*User)
	return v
}

func ctxRequestID(ctx context.Context) string {
	v, _ := ctx.Value(ctxKeyRequestID).(string)
	return v
}

// withMiddlewares is a helper function to declare routes with middlewares more easily.
// The caller declares its routes in the body on the f function, calling f's argument on its
// httprouter.Handle to wrap them.
func withMiddlewares(f func(middleware), middlewares ...middleware) {
	wrapper := func(handle httprouter.Handle) httprouter.Handle {
		h := handle
		for i := len(middlewares) - 1; i >= 0; i-- {
			m := middlewares[i]
			h = m(h)
		}
		return h
	}

	f(wrapper)
}

// loadSessionMiddleware fetches the user session data through the AuthService
// and stores it in the request context. If there's no session it will assign nil in
// the context to the session key.
func (s *Server) loadSessionMiddleware() middleware {
	return func(next httprouter.Handle) httprouter.Handle {
		return func(w http.ResponseWriter, r *http.Request, p httprouter.Params) {
			userData, err := s.authService.CurrentUser(r)
			if err != nil {
				s.Logger.Warn().Err(err).Msg("Failed to fetch session data")
				http.Error(w, "Failed to fetch session data", http.StatusInternalServerError)
				return
			}

			ctx := context.WithValue(r.Context(), ctxKeySession, userData)
			next(w, r.WithContext(ctx), p)
		}
	}
}

// loadUserMiddleware fetches the user of the current session from the database and stores it
// in the request context. A session pointing at a user that doesn't exist anymore is destroyed,
// and the request goes on as anonymous.
func (s *Server) loadUserMiddleware() middleware {
	return func(next httprouter.Handle) httprouter.Handle {
		return func(w http.ResponseWriter, r *http.Request, p httprouter.Params) {
			session := ctxSession(r.Context())
			if session == nil {
				next(w, r, p)
				return
			}

			user, err := s.store.FindUserByLogin(session.Login)
			if err != nil {
				s.Logger.Error().Err(err).Msg("Failed to fetch user from db")
				http.Error(w, "Failed to fetch user from database", http.StatusInternalServerError)
				return
			}

			ctx := r.Context()
			if user == nil {
				s.Logger.Debug().Str("login", session.Login).Msg("Session of a missing user, destroying it")
				if err := s.authService.Destroy(w, r); err != nil {
					s.Logger.Error().Err(err).Msg("Failed to destroy session")
					http.Error(w, "Failed to destroy session", http.StatusInternalServerError)
					return
				}
				ctx = context.WithValue(ctx, ctxKeySession, (*authentication.User)(nil))
			} else {
				ctx = context.WithValue(ctx, ctxKeyUser, user)
			}

			next(w, r.WithContext(ctx), p)
		}
	}
}

// requireLoginMiddleware halts the chain for anonymous requests, sending them to the login page
// with a next parameter pointing back at the requested page.
func (s *Server) requireLoginMiddleware() middleware {
	return func(next httprouter.Handle) httprouter.Handle {
		return func(w http.ResponseWriter, r *http.Request, p httprouter.Params) {
			if ctxUser(r.Context()) == nil {
				s.respondError(w, r, LoginRequired(r.URL.RequestURI()))
				return
			}

			next(w, r, p)
		}
	}
}

// statusRecorder remembers what was written back to the client.
type statusRecorder struct {
	http.ResponseWriter
	status int
	length int
}

func (w *statusRecorder) WriteHeader(status int) {
	w.ResponseWriter.WriteHeader(status)
	w.status = status
}

func (w *statusRecorder) Write(b []byte) (int, error) {
	if w.status == 0 {
		w.status = http.StatusOK
	}
	n, err := w.ResponseWriter.Write(b)
	w.length += n
	return n, err
}

// accessLogMiddleware gives an id to each request, sent back in the X-Request-Id header,
// and logs a single line per request once it has been served.
func (s *Server) accessLogMiddleware() httpMiddleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			id := uuid.NewString()
			w.Header().Set("X-Request-Id", id)

			rec := &statusRecorder{ResponseWriter: w}
			ctx := context.WithValue(r.Context(), ctxKeyRequestID, id)
			next.ServeHTTP(rec, r.WithContext(ctx))
			if rec.status == 0 {
				rec.status = http.StatusOK
			}

			s.Logger.Info().
				Str("request_id", id).
				Str("method", r.Method).
				Str("uri", r.RequestURI).
				Int("status", rec.status).
				Int("length", rec.length).
				Dur("duration", time.Since(start)).
				Msg("Request served")
		})
	}
}
