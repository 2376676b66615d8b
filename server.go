package newsroom

import (
	"bytes"
	"context"
	"embed"
	"errors"
	"fmt"
	"html/template"
	"io/fs"
	"net/http"
	"time"

	"github.com/jhchabran/newsroom/authentication"
	"github.com/julienschmidt/httprouter"
	"github.com/rs/zerolog"
)

const (
	loginPath  = "/auth/login"
	logoutPath = "/auth/logout"
	signupPath = "/auth/signup"

	shutdownTimeout = 5 * time.Second
)

//go:embed assets
var assets embed.FS

// pages lists every page template along with the partials it needs.
var pages = map[string][]string{
	"index.html":  {"_news.html"},
	"detail.html": {"_comment.html", "_comment_form.html"},
	"edit.html":   {"_comment_form.html"},
	"delete.html": {"_comment.html"},
	"login.html":  nil,
	"logout.html": nil,
	"signup.html": nil,
}

type ServerConfig struct {
	Addr        string
	NewsPerPage int
}

// A CommentHook is called after a comment has been stored.
type CommentHook func(news *News, comment *Comment) error

type Server struct {
	Logger          zerolog.Logger
	config          *ServerConfig
	store           Store
	router          *httprouter.Router
	handler         http.Handler
	templates       map[string]*template.Template
	done            chan struct{}
	idleConnsClosed chan struct{}
	authService     authentication.AuthService
	oauthHandler    authentication.OAuthHandler
	commentHooks    []CommentHook
}

func NewServer(config *ServerConfig, logger zerolog.Logger, store Store, authService authentication.AuthService) *Server {
	if config.NewsPerPage <= 0 {
		config.NewsPerPage = 10
	}

	s := &Server{
		config:          config,
		store:           store,
		authService:     authService,
		router:          httprouter.New(),
		Logger:          logger,
		done:            make(chan struct{}),
		idleConnsClosed: make(chan struct{}),
	}
	s.handler = s.accessLogMiddleware()(s.router)

	return s
}

// SetOAuthHandler enables signing in through an OAuth provider. It must be
// called before Prepare.
func (s *Server) SetOAuthHandler(h authentication.OAuthHandler) {
	s.oauthHandler = h
}

func (s *Server) AddCommentHook(hook CommentHook) {
	s.commentHooks = append(s.commentHooks, hook)
}

// Prepare connects to the store, loads the templates and declares the routes.
func (s *Server) Prepare() error {
	err := s.store.Connect()
	if err != nil {
		return err
	}

	err = s.loadTemplates()
	if err != nil {
		return err
	}

	static, err := fs.Sub(assets, "assets/static")
	if err != nil {
		return err
	}
	s.router.ServeFiles("/static/*filepath", http.FS(static))

	withMiddlewares(func(m middleware) {
		s.router.GET("/", m(s.handle(s.HandleIndex)))
		s.router.GET("/news/:id", m(s.handle(s.HandleDetail)))
		s.router.GET(loginPath, m(s.handle(s.HandleLogin)))
		s.router.POST(loginPath, m(s.handle(s.HandleLoginAction)))
		s.router.GET(logoutPath, m(s.handle(s.HandleLogout)))
		s.router.POST(logoutPath, m(s.handle(s.HandleLogout)))
		s.router.GET(signupPath, m(s.handle(s.HandleSignup)))
		s.router.POST(signupPath, m(s.handle(s.HandleSignupAction)))
	},
		s.loadSessionMiddleware(),
		s.loadUserMiddleware())

	withMiddlewares(func(m middleware) {
		s.router.POST("/news/:id", m(s.handle(s.HandleSubmitCommentAction)))
		s.router.GET("/comments/:id/edit", m(s.handle(s.HandleCommentEdit)))
		s.router.POST("/comments/:id/edit", m(s.handle(s.HandleCommentUpdateAction)))
		s.router.GET("/comments/:id/delete", m(s.handle(s.HandleCommentDelete)))
		s.router.POST("/comments/:id/delete", m(s.handle(s.HandleCommentDeleteAction)))
	},
		s.loadSessionMiddleware(),
		s.loadUserMiddleware(),
		s.requireLoginMiddleware())

	if s.oauthHandler != nil {
		s.router.GET("/auth/github/start", s.HandleOAuthStart())
		s.router.GET("/auth/github/callback", s.HandleOAuthCallback())
	}

	return nil
}

func (s *Server) loadTemplates() error {
	s.templates = make(map[string]*template.Template, len(pages))
	for page, partials := range pages {
		files := []string{"assets/templates/" + page, "assets/templates/_header.html", "assets/templates/_footer.html"}
		for _, p := range partials {
			files = append(files, "assets/templates/"+p)
		}

		tmpl, err := template.New(page).Funcs(helpers).ParseFS(assets, files...)
		if err != nil {
			return fmt.Errorf("failed to parse template %s: %w", page, err)
		}
		s.templates[page] = tmpl
	}

	return nil
}

// Start listens on the configured address and blocks until Stop is called.
func (s *Server) Start() error {
	httpServer := http.Server{Addr: s.config.Addr, Handler: s}

	errc := make(chan error, 1)
	go func() {
		if err := httpServer.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
			errc <- err
		}
		close(errc)
	}()

	select {
	case err := <-errc:
		close(s.idleConnsClosed)
		return err
	case <-s.done:
	}

	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	err := httpServer.Shutdown(ctx)
	// wait for the listener goroutine to return
	<-errc
	close(s.idleConnsClosed)

	return err
}

func (s *Server) Stop() {
	close(s.done)
	<-s.idleConnsClosed
}

func (s *Server) ServeHTTP(res http.ResponseWriter, req *http.Request) {
	s.handler.ServeHTTP(res, req)
}

// handlerFunc is a route handler which leaves writing error responses to the server.
type handlerFunc func(res http.ResponseWriter, req *http.Request, params httprouter.Params) error

func (s *Server) handle(h handlerFunc) httprouter.Handle {
	return func(res http.ResponseWriter, req *http.Request, params httprouter.Params) {
		if err := h(res, req, params); err != nil {
			s.respondError(res, req, err)
		}
	}
}

// render executes the page template into a buffer first, so a failing
// template never sends a partial page. The current session is exposed to
// templates as .Session unless vars already sets it.
func (s *Server) render(res http.ResponseWriter, req *http.Request, page string, vars map[string]interface{}) error {
	tmpl, ok := s.templates[page]
	if !ok {
		return fmt.Errorf("unknown template %q", page)
	}

	if _, ok := vars["Session"]; !ok {
		vars["Session"] = ctxSession(req.Context())
	}

	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, vars); err != nil {
		return fmt.Errorf("failed to render %s: %w", page, err)
	}

	res.Header().Set("Content-Type", "text/html; charset=utf-8")
	_, err := buf.WriteTo(res)
	return err
}
