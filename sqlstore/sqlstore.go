// Package sqlstore implements newsroom.Store on top of PostgreSQL or SQLite.
//
// Queries are written with ? placeholders and rebound for the driver in use.
package sqlstore

import (
	"database/sql"
	"errors"
	"fmt"

	"github.com/jhchabran/newsroom"
	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
	_ "github.com/mattn/go-sqlite3"
)

const (
	Postgres = "postgres"
	SQLite   = "sqlite3"
)

const (
	newsColumns = `news.id, news.title, news.text, news.date,
		(SELECT COUNT(*) FROM comments WHERE comments.news_id = news.id) AS comments_count`
	commentColumns = `comments.id, comments.news_id, comments.author_id, comments.text, comments.created_at,
		users.name AS author`
	userColumns = `users.id, users.name, users.email, users.password_hash, users.created_at, users.last_login_at`
)

// A SQLStore is responsible of interacting with the storage layer using a SQL database.
type SQLStore struct {
	driver   string
	dbString string
	db       *sqlx.DB
}

// New returns a SQLStore for driver (Postgres or SQLite), configured for a
// given address string, such as "user=postgres dbname=newsroom ..." or
// "file:newsroom.db?_fk=on".
func New(driver string, addr string) *SQLStore {
	return &SQLStore{
		driver:   driver,
		dbString: addr,
	}
}

// Connect establish a connection with the database using the address given at initialization.
func (s *SQLStore) Connect() error {
	if s.db != nil {
		return nil
	}

	db, err := sqlx.Connect(s.driver, s.dbString)
	if err != nil {
		return err
	}

	if s.driver == SQLite {
		// sqlite only allows a single writer
		db.SetMaxOpenConns(1)
	}

	s.db = db

	return nil
}

// DB returns the existing connection, making it suitable to perform requests not already supported by
// the store interface. If called while not connected, it will return nil.
func (s *SQLStore) DB() *sqlx.DB {
	return s.db
}

func (s *SQLStore) Driver() string {
	return s.driver
}

func (s *SQLStore) Close() error {
	if s.db == nil {
		return nil
	}
	return s.db.Close()
}

// ListNews returns a page of news, most recent first.
func (s *SQLStore) ListNews(page int, perPage int) ([]*newsroom.News, error) {
	news := []*newsroom.News{}
	q := s.db.Rebind("SELECT " + newsColumns + " FROM news ORDER BY news.date DESC, news.id DESC LIMIT ? OFFSET ?")
	if err := s.db.Select(&news, q, perPage, page*perPage); err != nil {
		return nil, fmt.Errorf("list news: %w", err)
	}

	return news, nil
}

func (s *SQLStore) CountNews() (int, error) {
	var count int
	if err := s.db.Get(&count, "SELECT COUNT(*) FROM news"); err != nil {
		return 0, fmt.Errorf("count news: %w", err)
	}

	return count, nil
}

func (s *SQLStore) FindNews(id int64) (*newsroom.News, error) {
	news := newsroom.News{}
	q := s.db.Rebind("SELECT " + newsColumns + " FROM news WHERE news.id = ?")
	if err := s.db.Get(&news, q, id); err != nil {
		return nil, fmt.Errorf("find news %d: %w", id, err)
	}

	return &news, nil
}

func (s *SQLStore) InsertNews(news *newsroom.News) error {
	var id int64
	q := s.db.Rebind("INSERT INTO news (title, text, date) VALUES (?, ?, ?) RETURNING id")
	if err := s.db.Get(&id, q, news.Title, news.Text, news.Date.UTC()); err != nil {
		return fmt.Errorf("insert news: %w", err)
	}

	news.ID = id

	return nil
}

// ListComments returns the comments of a news in chronological order.
func (s *SQLStore) ListComments(newsID int64) ([]*newsroom.Comment, error) {
	comments := []*newsroom.Comment{}
	q := s.db.Rebind("SELECT " + commentColumns + ` FROM comments
		JOIN users ON comments.author_id = users.id
		WHERE comments.news_id = ?
		ORDER BY comments.created_at ASC, comments.id ASC`)
	if err := s.db.Select(&comments, q, newsID); err != nil {
		return nil, fmt.Errorf("list comments of news %d: %w", newsID, err)
	}

	return comments, nil
}

func (s *SQLStore) FindComment(id int64) (*newsroom.Comment, error) {
	comment := newsroom.Comment{}
	q := s.db.Rebind("SELECT " + commentColumns + " FROM comments JOIN users ON comments.author_id = users.id WHERE comments.id = ?")
	if err := s.db.Get(&comment, q, id); err != nil {
		return nil, fmt.Errorf("find comment %d: %w", id, err)
	}

	return &comment, nil
}

// FindCommentByAuthor finds a comment only if it was written by authorID, so
// that comments of other users look like they don't exist.
func (s *SQLStore) FindCommentByAuthor(id int64, authorID int64) (*newsroom.Comment, error) {
	comment := newsroom.Comment{}
	q := s.db.Rebind("SELECT " + commentColumns + ` FROM comments
		JOIN users ON comments.author_id = users.id
		WHERE comments.id = ? AND comments.author_id = ?`)
	if err := s.db.Get(&comment, q, id, authorID); err != nil {
		return nil, fmt.Errorf("find comment %d of author %d: %w", id, authorID, err)
	}

	return &comment, nil
}

func (s *SQLStore) InsertComment(comment *newsroom.Comment) error {
	if comment.CreatedAt.IsZero() {
		comment.CreatedAt = newsroom.NowFunc()
	}

	var id int64
	q := s.db.Rebind("INSERT INTO comments (news_id, author_id, text, created_at) VALUES (?, ?, ?, ?) RETURNING id")
	err := s.db.Get(&id, q, comment.NewsID, comment.AuthorID, comment.Text, comment.CreatedAt.UTC())
	if err != nil {
		return fmt.Errorf("insert comment: %w", err)
	}

	comment.ID = id

	return nil
}

// UpdateComment only updates the text, a comment never changes of author.
func (s *SQLStore) UpdateComment(comment *newsroom.Comment) error {
	q := s.db.Rebind("UPDATE comments SET text = ? WHERE id = ?")
	res, err := s.db.Exec(q, comment.Text, comment.ID)
	if err != nil {
		return fmt.Errorf("update comment %d: %w", comment.ID, err)
	}

	return expectOneRow(res, "update comment", comment.ID)
}

func (s *SQLStore) DeleteComment(id int64) error {
	q := s.db.Rebind("DELETE FROM comments WHERE id = ?")
	res, err := s.db.Exec(q, id)
	if err != nil {
		return fmt.Errorf("delete comment %d: %w", id, err)
	}

	return expectOneRow(res, "delete comment", id)
}

func (s *SQLStore) FindUser(id int64) (*newsroom.User, error) {
	user := newsroom.User{}
	q := s.db.Rebind("SELECT " + userColumns + " FROM users WHERE id = ?")
	if err := s.db.Get(&user, q, id); err != nil {
		return nil, fmt.Errorf("find user %d: %w", id, err)
	}

	return &user, nil
}

// FindUserByLogin returns a nil user if there is no user with that login.
func (s *SQLStore) FindUserByLogin(login string) (*newsroom.User, error) {
	user := newsroom.User{}
	q := s.db.Rebind("SELECT " + userColumns + " FROM users WHERE name = ?")
	err := s.db.Get(&user, q, login)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("find user %q: %w", login, err)
	}

	return &user, nil
}

func (s *SQLStore) InsertUser(user *newsroom.User) error {
	now := newsroom.NowFunc().UTC()
	if user.CreatedAt.IsZero() {
		user.CreatedAt = now
	}
	if user.LastLoginAt.IsZero() {
		user.LastLoginAt = now
	}

	var id int64
	q := s.db.Rebind("INSERT INTO users (name, email, password_hash, created_at, last_login_at) VALUES (?, ?, ?, ?, ?) RETURNING id")
	err := s.db.Get(&id, q, user.Name, user.Email, user.PasswordHash, user.CreatedAt.UTC(), user.LastLoginAt.UTC())
	if err != nil {
		return fmt.Errorf("insert user %q: %w", user.Name, err)
	}

	user.ID = id

	return nil
}

// CreateOrUpdateUser creates a user without password, or bumps its last login
// date if it already exists. A user with a password is left untouched and
// newsroom.ErrLoginTaken is returned.
func (s *SQLStore) CreateOrUpdateUser(login string, email string) (*newsroom.User, error) {
	now := newsroom.NowFunc().UTC()
	q := s.db.Rebind(`INSERT INTO users (name, email, created_at, last_login_at) VALUES (?, ?, ?, ?)
		ON CONFLICT (name) DO UPDATE SET last_login_at = excluded.last_login_at
		WHERE users.password_hash = ''`)
	if _, err := s.db.Exec(q, login, email, now, now); err != nil {
		return nil, fmt.Errorf("upsert user %q: %w", login, err)
	}

	user, err := s.FindUserByLogin(login)
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, fmt.Errorf("upsert user %q: %w", login, sql.ErrNoRows)
	}
	if user.PasswordHash != "" {
		return nil, fmt.Errorf("upsert user %q: %w", login, newsroom.ErrLoginTaken)
	}

	return user, nil
}

// Truncate deletes every record. It is meant for tests.
func (s *SQLStore) Truncate() error {
	for _, table := range []string{"comments", "news", "users"} {
		if _, err := s.db.Exec("DELETE FROM " + table); err != nil {
			return fmt.Errorf("truncate %s: %w", table, err)
		}
	}

	return nil
}

func expectOneRow(res sql.Result, op string, id int64) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("%s %d: %w", op, id, err)
	}
	if n == 0 {
		return fmt.Errorf("%s %d: %w", op, id, sql.ErrNoRows)
	}

	return nil
}

// ensure SQLStore implements the interface
var _ newsroom.Store = (*SQLStore)(nil)
