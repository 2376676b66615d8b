package newsroom

import (
	"strconv"
	"time"
)

type News struct {
	ID            int64     `db:"id"`
	Title         string    `db:"title"`
	Text          string    `db:"text"`
	Date          time.Time `db:"date"`
	CommentsCount int64     `db:"comments_count"`
}

// NewNews returns a News dated today.
func NewNews(title string, text string) *News {
	return &News{
		Title: title,
		Text:  text,
		Date:  today(),
	}
}

// Path returns the path of the news detail page.
func (n *News) Path() string {
	return NewsPath(n.ID)
}

// CommentsPath returns the path of the news detail page, anchored on its comments.
func (n *News) CommentsPath() string {
	return n.Path() + "#comments"
}

func NewsPath(id int64) string {
	return "/news/" + strconv.FormatInt(id, 10)
}

func today() time.Time {
	now := NowFunc()
	return time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
}
