package integration

import (
	"errors"
	"net/http"
	"net/url"
	"strings"
	"testing"

	qt "github.com/frankban/quicktest"
	"github.com/jhchabran/newsroom"
)

var formData = url.Values{"text": {"Новый текст"}}

var errHookFailed = errors.New("hook failed")

func TestCreateComment(t *testing.T) {
	c := qt.New(t)

	c.Run("anonymous user can't create comment", func(c *qt.C) {
		tc := newTestContext(c)
		news := tc.createNews()

		resp := tc.post(tc.newHTTPClient(), news.Path(), formData)
		c.Assert(resp.StatusCode, qt.Equals, http.StatusFound)
		c.Assert(resp.Header.Get("Location"), qt.Equals, "/auth/login?next="+news.Path())
		c.Assert(tc.countComments(), qt.Equals, 0)
	})

	c.Run("user can create comment", func(c *qt.C) {
		tc := newTestContext(c)
		news := tc.createNews()
		author := tc.author()

		resp := tc.post(tc.newAuthenticatedClient(author), news.Path(), url.Values{"text": {"Текст комментария"}})
		c.Assert(resp.StatusCode, qt.Equals, http.StatusFound)
		c.Assert(resp.Header.Get("Location"), qt.Equals, news.Path()+"#comments")
		c.Assert(tc.countComments(), qt.Equals, 1)

		comments, err := tc.store.ListComments(news.ID)
		c.Assert(err, qt.IsNil)
		c.Assert(comments, qt.HasLen, 1)
		c.Assert(comments[0].Text, qt.Equals, "Текст комментария")
		c.Assert(comments[0].AuthorID, qt.Equals, author.ID)
		c.Assert(comments[0].NewsID, qt.Equals, news.ID)
	})

	c.Run("user can't use bad words", func(c *qt.C) {
		tc := newTestContext(c)
		news := tc.createNews()

		for _, word := range newsroom.BadWords {
			text := "Какой-то текст, " + word + ", еще текст"
			resp := tc.post(tc.newAuthenticatedClient(tc.createUser("user-"+word)), news.Path(), url.Values{"text": {text}})

			doc := tc.document(resp)
			form := doc.Find("form#comment-form")
			c.Assert(form.Find(".errorlist li").Text(), qt.Equals, newsroom.Warning)
			c.Assert(form.Find("textarea[name=text]").Text(), qt.Equals, text)
		}
		c.Assert(tc.countComments(), qt.Equals, 0)
	})

	c.Run("bad words are caught whatever their case", func(c *qt.C) {
		tc := newTestContext(c)
		news := tc.createNews()

		text := "Ты " + strings.ToUpper(newsroom.BadWords[1]) + "!"
		doc := tc.document(tc.post(tc.newAuthenticatedClient(tc.author()), news.Path(), url.Values{"text": {text}}))
		c.Assert(doc.Find(".errorlist li").Text(), qt.Equals, newsroom.Warning)
		c.Assert(tc.countComments(), qt.Equals, 0)
	})

	c.Run("an empty comment is rejected", func(c *qt.C) {
		tc := newTestContext(c)
		news := tc.createNews()

		doc := tc.document(tc.post(tc.newAuthenticatedClient(tc.author()), news.Path(), url.Values{"text": {"   "}}))
		c.Assert(doc.Find(".errorlist li").Text(), qt.Equals, "This field is required.")
		c.Assert(tc.countComments(), qt.Equals, 0)
	})

	c.Run("commenting a missing news is not found", func(c *qt.C) {
		tc := newTestContext(c)

		resp := tc.post(tc.newAuthenticatedClient(tc.author()), newsroom.NewsPath(666), formData)
		c.Assert(resp.StatusCode, qt.Equals, http.StatusNotFound)
		c.Assert(tc.countComments(), qt.Equals, 0)
	})

	c.Run("comment hooks are called", func(c *qt.C) {
		tc := newTestContext(c)
		news := tc.createNews()

		var got *newsroom.Comment
		tc.server.AddCommentHook(func(n *newsroom.News, comment *newsroom.Comment) error {
			c.Check(n.ID, qt.Equals, news.ID)
			got = comment
			return nil
		})

		resp := tc.post(tc.newAuthenticatedClient(tc.author()), news.Path(), formData)
		c.Assert(resp.StatusCode, qt.Equals, http.StatusFound)
		c.Assert(got, qt.Not(qt.IsNil))
		c.Assert(got.Author, qt.Equals, "Автор")
		c.Assert(got.Text, qt.Equals, formData.Get("text"))
	})

	c.Run("a failing hook doesn't fail the request", func(c *qt.C) {
		tc := newTestContext(c)
		news := tc.createNews()
		tc.server.AddCommentHook(func(*newsroom.News, *newsroom.Comment) error {
			return errHookFailed
		})

		resp := tc.post(tc.newAuthenticatedClient(tc.author()), news.Path(), formData)
		c.Assert(resp.StatusCode, qt.Equals, http.StatusFound)
		c.Assert(tc.countComments(), qt.Equals, 1)
	})
}

func TestDeleteComment(t *testing.T) {
	c := qt.New(t)

	c.Run("author can delete comment", func(c *qt.C) {
		tc := newTestContext(c)
		news := tc.createNews()
		author := tc.author()
		comment := tc.createComment(news, author)

		resp := tc.post(tc.newAuthenticatedClient(author), newsroom.CommentDeletePath(comment.ID), nil)
		c.Assert(resp.StatusCode, qt.Equals, http.StatusFound)
		c.Assert(resp.Header.Get("Location"), qt.Equals, news.CommentsPath())
		c.Assert(tc.countComments(), qt.Equals, 0)
	})

	c.Run("not author can't delete comment of another user", func(c *qt.C) {
		tc := newTestContext(c)
		news := tc.createNews()
		comment := tc.createComment(news, tc.author())

		resp := tc.post(tc.newAuthenticatedClient(tc.notAuthor()), newsroom.CommentDeletePath(comment.ID), nil)
		c.Assert(resp.StatusCode, qt.Equals, http.StatusNotFound)
		c.Assert(tc.countComments(), qt.Equals, 1)
	})

	c.Run("anonymous user can't delete comment", func(c *qt.C) {
		tc := newTestContext(c)
		news := tc.createNews()
		comment := tc.createComment(news, tc.author())

		resp := tc.post(tc.newHTTPClient(), newsroom.CommentDeletePath(comment.ID), nil)
		c.Assert(resp.StatusCode, qt.Equals, http.StatusFound)
		c.Assert(resp.Header.Get("Location"), qt.Equals, "/auth/login?next="+newsroom.CommentDeletePath(comment.ID))
		c.Assert(tc.countComments(), qt.Equals, 1)
	})
}

func TestEditComment(t *testing.T) {
	c := qt.New(t)

	c.Run("author can edit comment", func(c *qt.C) {
		tc := newTestContext(c)
		news := tc.createNews()
		author := tc.author()
		comment := tc.createComment(news, author)

		resp := tc.post(tc.newAuthenticatedClient(author), newsroom.CommentEditPath(comment.ID), formData)
		c.Assert(resp.StatusCode, qt.Equals, http.StatusFound)
		c.Assert(resp.Header.Get("Location"), qt.Equals, news.CommentsPath())

		updated, err := tc.store.FindComment(comment.ID)
		c.Assert(err, qt.IsNil)
		c.Assert(updated.Text, qt.Equals, formData.Get("text"))
		c.Assert(updated.AuthorID, qt.Equals, author.ID)
	})

	c.Run("not author can't edit comment of another user", func(c *qt.C) {
		tc := newTestContext(c)
		news := tc.createNews()
		comment := tc.createComment(news, tc.author())

		resp := tc.post(tc.newAuthenticatedClient(tc.notAuthor()), newsroom.CommentEditPath(comment.ID), formData)
		c.Assert(resp.StatusCode, qt.Equals, http.StatusNotFound)

		unchanged, err := tc.store.FindComment(comment.ID)
		c.Assert(err, qt.IsNil)
		c.Assert(unchanged.Text, qt.Equals, comment.Text)
		c.Assert(unchanged.Text, qt.Not(qt.Equals), formData.Get("text"))
	})

	c.Run("author can't edit in bad words", func(c *qt.C) {
		tc := newTestContext(c)
		news := tc.createNews()
		author := tc.author()
		comment := tc.createComment(news, author)

		text := "Ну ты и " + newsroom.BadWords[0]
		doc := tc.document(tc.post(tc.newAuthenticatedClient(author), newsroom.CommentEditPath(comment.ID), url.Values{"text": {text}}))
		c.Assert(doc.Find("form#comment-form .errorlist li").Text(), qt.Equals, newsroom.Warning)

		unchanged, err := tc.store.FindComment(comment.ID)
		c.Assert(err, qt.IsNil)
		c.Assert(unchanged.Text, qt.Equals, comment.Text)
	})

	c.Run("edit form is filled with the current text", func(c *qt.C) {
		tc := newTestContext(c)
		news := tc.createNews()
		author := tc.author()
		comment := tc.createComment(news, author)

		doc := tc.document(tc.get(tc.newAuthenticatedClient(author), newsroom.CommentEditPath(comment.ID)))
		form := doc.Find("form#comment-form")
		c.Assert(form.AttrOr("action", ""), qt.Equals, newsroom.CommentEditPath(comment.ID))
		c.Assert(form.Find("textarea[name=text]").Text(), qt.Equals, comment.Text)
	})
}
