package newsroom

import (
	"database/sql"
	"fmt"
	"math"
	"net/http"
	"strconv"
	"strings"

	"github.com/julienschmidt/httprouter"
)

// parseID reads the id route parameter. A malformed id can't match any record, so it
// is answered like a missing one.
func parseID(params httprouter.Params) (int64, error) {
	raw := params.ByName("id")
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		return 0, Maybe404(fmt.Errorf("invalid id %q: %w", raw, sql.ErrNoRows))
	}

	return id, nil
}

// parsePage reads the zero-based page query parameter, falling back on the first page.
// Pages whose offset can't be computed with perPage news per page fall back too.
func parsePage(req *http.Request, perPage int) int {
	page, err := strconv.Atoi(req.URL.Query().Get("page"))
	if err != nil || page < 0 || page > math.MaxInt32/perPage-1 {
		return 0
	}

	return page
}

// HandleIndex handles requests for the root path, listing the news of the requested page,
// most recent first.
func (s *Server) HandleIndex(res http.ResponseWriter, req *http.Request, _ httprouter.Params) error {
	perPage := s.config.NewsPerPage
	page := parsePage(req, perPage)

	news, err := s.store.ListNews(page, perPage)
	if err != nil {
		return err
	}

	count, err := s.store.CountNews()
	if err != nil {
		return err
	}

	vars := map[string]interface{}{
		"News":     news,
		"PrevPage": page - 1,
		"NextPage": page + 1,
	}
	if (page+1)*perPage >= count {
		vars["NextPage"] = -1
	}

	return s.render(res, req, "index.html", vars)
}

// HandleDetail handles requests to access a news, showing its comments and a comment form
// if authenticated.
func (s *Server) HandleDetail(res http.ResponseWriter, req *http.Request, params httprouter.Params) error {
	id, err := parseID(params)
	if err != nil {
		return err
	}

	news, err := s.store.FindNews(id)
	if err != nil {
		return Maybe404(err)
	}

	var form *commentForm
	if ctxUser(req.Context()) != nil {
		form = &commentForm{}
	}

	return s.renderDetail(res, req, news, form)
}

func (s *Server) renderDetail(res http.ResponseWriter, req *http.Request, news *News, form *commentForm) error {
	comments, err := s.store.ListComments(news.ID)
	if err != nil {
		return err
	}

	return s.render(res, req, "detail.html", map[string]interface{}{
		"News":     news,
		"Comments": newCommentPresenters(comments, ctxUser(req.Context())),
		"Form":     form,
		"Action":   news.Path(),
	})
}

// HandleSubmitCommentAction handles requests for when a user submit a comment on a news.
// An invalid comment re-renders the news page with the form errors.
func (s *Server) HandleSubmitCommentAction(res http.ResponseWriter, req *http.Request, params httprouter.Params) error {
	id, err := parseID(params)
	if err != nil {
		return err
	}

	news, err := s.store.FindNews(id)
	if err != nil {
		return Maybe404(err)
	}

	form, err := parseCommentForm(req)
	if err != nil {
		return err
	}
	if form.Errors != nil {
		return s.renderDetail(res, req, news, form)
	}

	user := ctxUser(req.Context())
	comment := NewComment(news.ID, form.Text, user.ID)
	err = s.store.InsertComment(comment)
	if err != nil {
		return err
	}
	comment.Author = user.Name

	s.runCommentHooks(req, news, comment)

	http.Redirect(res, req, news.CommentsPath(), http.StatusFound)
	return nil
}

// runCommentHooks runs the hooks in order. The comment is already stored at this point,
// so failures are only logged.
func (s *Server) runCommentHooks(req *http.Request, news *News, comment *Comment) {
	for _, h := range s.commentHooks {
		if err := h(news, comment); err != nil {
			s.Logger.Warn().Err(err).
				Str("request_id", ctxRequestID(req.Context())).
				Int64("comment_id", comment.ID).
				Msg("Comment hook failed")
		}
	}
}

func parseCommentForm(req *http.Request) (*commentForm, error) {
	form := &commentForm{}
	if err := decodeForm(req, form); err != nil {
		return nil, err
	}
	form.Text = strings.TrimSpace(form.Text)

	errs, err := validateForm(form)
	if err != nil {
		return nil, err
	}
	form.Errors = errs

	return form, nil
}

// findOwnComment finds the comment from the route parameters, as long as it belongs to the
// current user. Comments of other users are reported as missing.
func (s *Server) findOwnComment(req *http.Request, params httprouter.Params) (*Comment, *News, error) {
	id, err := parseID(params)
	if err != nil {
		return nil, nil, err
	}

	user := ctxUser(req.Context())
	comment, err := s.store.FindCommentByAuthor(id, user.ID)
	if err != nil {
		return nil, nil, Maybe404(err)
	}

	news, err := s.store.FindNews(comment.NewsID)
	if err != nil {
		return nil, nil, Maybe404(err)
	}

	return comment, news, nil
}

func (s *Server) HandleCommentEdit(res http.ResponseWriter, req *http.Request, params httprouter.Params) error {
	comment, news, err := s.findOwnComment(req, params)
	if err != nil {
		return err
	}

	return s.render(res, req, "edit.html", map[string]interface{}{
		"News":    news,
		"Comment": comment,
		"Form":    &commentForm{Text: comment.Text},
		"Action":  comment.EditPath(),
	})
}

func (s *Server) HandleCommentUpdateAction(res http.ResponseWriter, req *http.Request, params httprouter.Params) error {
	comment, news, err := s.findOwnComment(req, params)
	if err != nil {
		return err
	}

	form, err := parseCommentForm(req)
	if err != nil {
		return err
	}
	if form.Errors != nil {
		return s.render(res, req, "edit.html", map[string]interface{}{
			"News":    news,
			"Comment": comment,
			"Form":    form,
			"Action":  comment.EditPath(),
		})
	}

	comment.Text = form.Text
	err = s.store.UpdateComment(comment)
	if err != nil {
		return Maybe404(err)
	}

	http.Redirect(res, req, news.CommentsPath(), http.StatusFound)
	return nil
}

func (s *Server) HandleCommentDelete(res http.ResponseWriter, req *http.Request, params httprouter.Params) error {
	comment, news, err := s.findOwnComment(req, params)
	if err != nil {
		return err
	}

	return s.render(res, req, "delete.html", map[string]interface{}{
		"News":    news,
		"Comment": newCommentPresenters([]*Comment{comment}, ctxUser(req.Context()))[0],
	})
}

func (s *Server) HandleCommentDeleteAction(res http.ResponseWriter, req *http.Request, params httprouter.Params) error {
	comment, news, err := s.findOwnComment(req, params)
	if err != nil {
		return err
	}

	err = s.store.DeleteComment(comment.ID)
	if err != nil {
		return Maybe404(err)
	}

	http.Redirect(res, req, news.CommentsPath(), http.StatusFound)
	return nil
}
