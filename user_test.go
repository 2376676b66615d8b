package newsroom

import (
	"testing"

	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

func TestUserPassword(t *testing.T) {
	r := require.New(t)

	u := NewUser("alpha", "alpha@email.com")
	r.ErrorIs(u.CheckPassword("anything"), ErrNoPassword)

	r.NoError(u.SetPassword("s3cret-pass"))
	r.NotEqual("s3cret-pass", u.PasswordHash)
	r.NoError(u.CheckPassword("s3cret-pass"))
	r.ErrorIs(u.CheckPassword("wrong"), bcrypt.ErrMismatchedHashAndPassword)
}
