package newsroom

// A Store persists news, comments and users.
//
// Lookups of missing records return an error wrapping sql.ErrNoRows, except
// FindUserByLogin which returns a nil user.
type Store interface {
	Connect() error
	ListNews(page int, perPage int) ([]*News, error)
	CountNews() (int, error)
	FindNews(id int64) (*News, error)
	InsertNews(news *News) error
	ListComments(newsID int64) ([]*Comment, error)
	FindComment(id int64) (*Comment, error)
	FindCommentByAuthor(id int64, authorID int64) (*Comment, error)
	InsertComment(comment *Comment) error
	UpdateComment(comment *Comment) error
	DeleteComment(id int64) error
	FindUser(id int64) (*User, error)
	FindUserByLogin(login string) (*User, error)
	InsertUser(user *User) error
	CreateOrUpdateUser(login string, email string) (*User, error)
}
