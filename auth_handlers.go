package newsroom

import (
	"net/http"
	"strings"

	"github.com/jhchabran/newsroom/authentication"
	"github.com/julienschmidt/httprouter"
)

const (
	invalidLoginMessage  = "Please enter a correct username and password. Note that both fields may be case-sensitive."
	usernameTakenMessage = "A user with that username already exists."
)

// safeNext returns next if it is a path on this site, the root path otherwise.
func safeNext(next string) string {
	if !strings.HasPrefix(next, "/") || strings.HasPrefix(next, "//") || strings.HasPrefix(next, "/\\") {
		return "/"
	}

	return next
}

func (s *Server) signIn(res http.ResponseWriter, req *http.Request, user *User) error {
	return s.authService.SignIn(res, req, &authentication.User{
		ID:    user.ID,
		Login: user.Name,
		Email: user.Email,
	})
}

func (s *Server) HandleLogin(res http.ResponseWriter, req *http.Request, _ httprouter.Params) error {
	return s.render(res, req, "login.html", map[string]interface{}{
		"Form": &loginForm{Next: req.URL.Query().Get("next")},
	})
}

// HandleLoginAction checks the submitted credentials. On success, the user is sent to the
// page they were trying to reach before having to log in.
func (s *Server) HandleLoginAction(res http.ResponseWriter, req *http.Request, _ httprouter.Params) error {
	form := &loginForm{}
	if err := decodeForm(req, form); err != nil {
		return err
	}
	form.Username = strings.TrimSpace(form.Username)

	errs, err := validateForm(form)
	if err != nil {
		return err
	}

	var user *User
	if errs == nil {
		user, err = s.store.FindUserByLogin(form.Username)
		if err != nil {
			return err
		}
		if user == nil || user.CheckPassword(form.Password) != nil {
			errs = formErrors{}
			errs.add(nonFieldErrors, invalidLoginMessage)
		}
	}

	if errs != nil {
		form.Password = ""
		form.Errors = errs
		return s.render(res, req, "login.html", map[string]interface{}{"Form": form})
	}

	if err := s.signIn(res, req, user); err != nil {
		return err
	}

	http.Redirect(res, req, safeNext(form.Next), http.StatusFound)
	return nil
}

// HandleLogout destroys the session, if any, and confirms it.
func (s *Server) HandleLogout(res http.ResponseWriter, req *http.Request, _ httprouter.Params) error {
	if err := s.authService.Destroy(res, req); err != nil {
		return err
	}

	return s.render(res, req, "logout.html", map[string]interface{}{
		"Session": (*authentication.User)(nil),
	})
}

func (s *Server) HandleSignup(res http.ResponseWriter, req *http.Request, _ httprouter.Params) error {
	return s.render(res, req, "signup.html", map[string]interface{}{
		"Form": &signupForm{},
	})
}

// HandleSignupAction creates a user with a password and signs them in.
func (s *Server) HandleSignupAction(res http.ResponseWriter, req *http.Request, _ httprouter.Params) error {
	form := &signupForm{}
	if err := decodeForm(req, form); err != nil {
		return err
	}
	form.Username = strings.TrimSpace(form.Username)

	errs, err := validateForm(form)
	if err != nil {
		return err
	}

	if !errs.Has("username") {
		existing, err := s.store.FindUserByLogin(form.Username)
		if err != nil {
			return err
		}
		if existing != nil {
			if errs == nil {
				errs = formErrors{}
			}
			errs.add("username", usernameTakenMessage)
		}
	}

	if errs != nil {
		form.Password = ""
		form.PasswordConfirmation = ""
		form.Errors = errs
		return s.render(res, req, "signup.html", map[string]interface{}{"Form": form})
	}

	user := NewUser(form.Username, "")
	if err := user.SetPassword(form.Password); err != nil {
		return err
	}
	if err := s.store.InsertUser(user); err != nil {
		return err
	}

	if err := s.signIn(res, req, user); err != nil {
		return err
	}

	http.Redirect(res, req, "/", http.StatusFound)
	return nil
}

// HandleOAuthStart handles requests starting the OAuth authentication process.
func (s *Server) HandleOAuthStart() httprouter.Handle {
	return func(res http.ResponseWriter, req *http.Request, _ httprouter.Params) {
		s.oauthHandler.Start(res, req)
	}
}

// HandleOAuthCallback handles requests of the OAuth provider redirecting the user back,
// creating their account on the first visit.
func (s *Server) HandleOAuthCallback() httprouter.Handle {
	return func(res http.ResponseWriter, req *http.Request, _ httprouter.Params) {
		s.oauthHandler.Callback(res, req, func(u *authentication.User) error {
			user, err := s.store.CreateOrUpdateUser(u.Login, u.Email)
			if err != nil {
				return err
			}
			u.ID = user.ID
			return nil
		})
	}
}
