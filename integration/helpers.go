package integration

import (
	"net/http"
	"net/http/cookiejar"
	"net/http/httptest"
	"net/url"
	"strconv"
	"time"

	"github.com/PuerkitoBio/goquery"
	qt "github.com/frankban/quicktest"
	"github.com/google/uuid"
	"github.com/gorilla/sessions"
	"github.com/jhchabran/newsroom"
	"github.com/jhchabran/newsroom/authentication"
	"github.com/jhchabran/newsroom/authentication/authtest"
	"github.com/jhchabran/newsroom/authentication/cookie_auth"
	"github.com/jhchabran/newsroom/sqlstore"
	"github.com/rs/zerolog"
)

const (
	// newsPerPage is the number of news on the home page.
	newsPerPage = 10
	// commentsCount is the number of comments created by createAllComments.
	commentsCount = 10
)

// testingLogWriter is an output target for zerolog which will print on the testing logger.
type testingLogWriter struct {
	c *qt.C
}

// Write outputs on the passed bytes on the test logger
func (l *testingLogWriter) Write(p []byte) (n int, err error) {
	str := string(p[0 : len(p)-1]) // drop the final \n
	l.c.Log(str)
	return len(p), nil
}

func newTestLogger(c *qt.C) zerolog.Logger {
	w := testingLogWriter{c}
	output := zerolog.ConsoleWriter{Out: &w, NoColor: true}
	return zerolog.New(output)
}

// newTestStore returns a migrated store backed by its own in-memory SQLite database.
func newTestStore(c *qt.C) *sqlstore.SQLStore {
	store := sqlstore.New(sqlstore.SQLite, "file:"+uuid.NewString()+"?mode=memory&cache=shared&_fk=on")
	c.Assert(store.Connect(), qt.IsNil)
	_, err := store.Migrate()
	c.Assert(err, qt.IsNil)

	return store
}

// A struct to hold the server and its components.
// Provides a few helpers for convenience.
type testContext struct {
	c          *qt.C
	server     *newsroom.Server
	testServer *httptest.Server
	store      *sqlstore.SQLStore
	auth       authentication.AuthService
}

// newTestContext creates a prepared server, with a fresh database, listening on a test server
// which is shut down at the end of the test.
func newTestContext(c *qt.C) *testContext {
	tc := testContext{c: c}

	logger := newTestLogger(c)
	tc.store = newTestStore(c)
	sessionStore := sessions.NewCookieStore([]byte("test"))
	tc.auth = cookie_auth.New(sessionStore, logger)

	tc.server = newsroom.NewServer(
		&newsroom.ServerConfig{NewsPerPage: newsPerPage},
		logger,
		tc.store,
		tc.auth,
	)
	c.Assert(tc.server.Prepare(), qt.IsNil, qt.Commentf("couldn't prepare the server"))

	tc.testServer = httptest.NewServer(tc.server)
	c.Cleanup(func() {
		// waits for in-flight requests, so nothing logs once the test is over
		tc.testServer.Close()
		c.Assert(tc.store.Close(), qt.IsNil)
	})

	return &tc
}

// url returns an url to the test server based on the given path
func (tc *testContext) url(path string) string {
	return tc.testServer.URL + path
}

// newHTTPClient returns an anonymous client. It doesn't follow redirects, so they can be asserted on.
func (tc *testContext) newHTTPClient() *http.Client {
	jar, err := cookiejar.New(nil)
	tc.c.Assert(err, qt.IsNil)

	return &http.Client{
		Jar: jar,
		CheckRedirect: func(*http.Request, []*http.Request) error {
			return http.ErrUseLastResponse
		},
	}
}

// newAuthenticatedClient returns a client signed in as user.
func (tc *testContext) newAuthenticatedClient(user *newsroom.User) *http.Client {
	client := tc.newHTTPClient()
	err := authtest.ForceLogin(client, tc.testServer.URL, tc.auth, &authentication.User{
		ID:    user.ID,
		Login: user.Name,
	})
	tc.c.Assert(err, qt.IsNil)

	return client
}

func (tc *testContext) createUser(login string) *newsroom.User {
	user := newsroom.NewUser(login, "")
	tc.c.Assert(tc.store.InsertUser(user), qt.IsNil)
	return user
}

// author is the user who wrote the comment fixture.
func (tc *testContext) author() *newsroom.User {
	return tc.createUser("Автор")
}

// notAuthor is a user with no relation to the comment fixture.
func (tc *testContext) notAuthor() *newsroom.User {
	return tc.createUser("Не автор")
}

func (tc *testContext) createNews() *newsroom.News {
	news := newsroom.NewNews("Заголовок", "Текст")
	tc.c.Assert(tc.store.InsertNews(news), qt.IsNil)
	return news
}

func (tc *testContext) createComment(news *newsroom.News, author *newsroom.User) *newsroom.Comment {
	comment := newsroom.NewComment(news.ID, "Текст комментария", author.ID)
	tc.c.Assert(tc.store.InsertComment(comment), qt.IsNil)
	return comment
}

// createAllNews creates one more news than fits on the home page, one per day going back from today.
func (tc *testContext) createAllNews() []*newsroom.News {
	today := newsroom.NowFunc().UTC().Truncate(24 * time.Hour)

	all := make([]*newsroom.News, 0, newsPerPage+1)
	for i := 0; i < newsPerPage+1; i++ {
		news := &newsroom.News{
			Title: "Новость " + strconv.Itoa(i),
			Text:  "Просто текст.",
			Date:  today.AddDate(0, 0, -i),
		}
		tc.c.Assert(tc.store.InsertNews(news), qt.IsNil)
		all = append(all, news)
	}

	return all
}

// createAllComments creates comments on news, each one dated a day after the previous one.
// They are inserted most recent first so that insertion order can't pass for chronological order.
func (tc *testContext) createAllComments(news *newsroom.News, author *newsroom.User) []*newsroom.Comment {
	now := newsroom.NowFunc().UTC().Truncate(time.Second)

	all := make([]*newsroom.Comment, 0, commentsCount)
	for i := commentsCount - 1; i >= 0; i-- {
		comment := newsroom.NewComment(news.ID, "Текст "+strconv.Itoa(i), author.ID)
		comment.CreatedAt = now.AddDate(0, 0, i)
		tc.c.Assert(tc.store.InsertComment(comment), qt.IsNil)
		all = append(all, comment)
	}

	return all
}

func (tc *testContext) countComments() int {
	var count int
	tc.c.Assert(tc.store.DB().Get(&count, "SELECT COUNT(*) FROM comments"), qt.IsNil)
	return count
}

func (tc *testContext) get(client *http.Client, path string) *http.Response {
	resp, err := client.Get(tc.url(path))
	tc.c.Assert(err, qt.IsNil)
	tc.c.Cleanup(func() { resp.Body.Close() })
	return resp
}

func (tc *testContext) post(client *http.Client, path string, values url.Values) *http.Response {
	resp, err := client.PostForm(tc.url(path), values)
	tc.c.Assert(err, qt.IsNil)
	tc.c.Cleanup(func() { resp.Body.Close() })
	return resp
}

// document parses the body of a successful response.
func (tc *testContext) document(resp *http.Response) *goquery.Document {
	tc.c.Assert(resp.StatusCode, qt.Equals, http.StatusOK)
	doc, err := goquery.NewDocumentFromReader(resp.Body)
	tc.c.Assert(err, qt.IsNil)
	return doc
}
