package newsroom

import (
	"html/template"
	"strconv"
	"time"

	"github.com/samber/lo"
)

type Comment struct {
	ID        int64     `db:"id"`
	NewsID    int64     `db:"news_id"`
	AuthorID  int64     `db:"author_id"`
	Author    string    `db:"author"`
	Text      string    `db:"text"`
	CreatedAt time.Time `db:"created_at"`
}

func NewComment(newsID int64, text string, authorID int64) *Comment {
	return &Comment{
		NewsID:    newsID,
		AuthorID:  authorID,
		Text:      text,
		CreatedAt: NowFunc(),
	}
}

// OwnedBy tells if the comment was written by the given user.
func (c *Comment) OwnedBy(userID int64) bool {
	return c.AuthorID == userID
}

func (c *Comment) EditPath() string {
	return CommentEditPath(c.ID)
}

func (c *Comment) DeletePath() string {
	return CommentDeletePath(c.ID)
}

func CommentEditPath(id int64) string {
	return "/comments/" + strconv.FormatInt(id, 10) + "/edit"
}

func CommentDeletePath(id int64) string {
	return "/comments/" + strconv.FormatInt(id, 10) + "/delete"
}

// A commentPresenter is what the templates get to render a comment.
type commentPresenter struct {
	ID         int64
	Author     string
	Body       template.HTML
	CreatedAt  time.Time
	EditPath   string
	DeletePath string
	// CanEdit is only true for the comment's author.
	CanEdit bool
}

// newCommentPresenters keeps the order of the given comments, flagging those
// the viewer is allowed to change. A nil viewer is anonymous.
func newCommentPresenters(comments []*Comment, viewer *User) []*commentPresenter {
	return lo.Map(comments, func(c *Comment, _ int) *commentPresenter {
		return &commentPresenter{
			ID:         c.ID,
			Author:     c.Author,
			Body:       renderBody(c.Text),
			CreatedAt:  c.CreatedAt,
			EditPath:   c.EditPath(),
			DeletePath: c.DeletePath(),
			CanEdit:    viewer != nil && c.OwnedBy(viewer.ID),
		}
	})
}
