package newsroom

import (
	"errors"
	"fmt"
	"net/http"
	"reflect"
	"regexp"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/mitchellh/mapstructure"
)

// nonFieldErrors is the key under which errors not related to a single field are stored.
const nonFieldErrors = "__all__"

var usernameRe = regexp.MustCompile(`^[\p{L}\p{N}@.+\-_]+$`)

// formErrors maps field names to their error messages.
type formErrors map[string][]string

func (e formErrors) add(field string, msg string) {
	e[field] = append(e[field], msg)
}

// Has is used by templates to know if a field has errors.
func (e formErrors) Has(field string) bool {
	return len(e[field]) > 0
}

// commentForm is the form to create or edit a comment.
type commentForm struct {
	Text   string     `mapstructure:"text" validate:"required,max=2000,clean"`
	Errors formErrors `mapstructure:"-"`
}

type loginForm struct {
	Username string     `mapstructure:"username" validate:"required"`
	Password string     `mapstructure:"password" validate:"required"`
	Next     string     `mapstructure:"next"`
	Errors   formErrors `mapstructure:"-"`
}

type signupForm struct {
	Username             string     `mapstructure:"username" validate:"required,max=150,username"`
	Password             string     `mapstructure:"password" validate:"required,min=8"`
	PasswordConfirmation string     `mapstructure:"password_confirmation" validate:"required,eqfield=Password"`
	Errors               formErrors `mapstructure:"-"`
}

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New()

	// report errors under the form field names rather than the struct field names
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name := strings.SplitN(f.Tag.Get("mapstructure"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})

	err := v.RegisterValidation("clean", func(fl validator.FieldLevel) bool {
		return !containsBadWords(fl.Field().String())
	})
	if err != nil {
		panic(err)
	}

	err = v.RegisterValidation("username", func(fl validator.FieldLevel) bool {
		return usernameRe.MatchString(fl.Field().String())
	})
	if err != nil {
		panic(err)
	}

	return v
}

// decodeForm parses the request body and copies the submitted values into form.
func decodeForm(req *http.Request, form interface{}) error {
	if err := req.ParseForm(); err != nil {
		return BadRequest(err)
	}

	values := make(map[string]interface{}, len(req.PostForm))
	for k, v := range req.PostForm {
		if len(v) > 0 {
			values[k] = v[0]
		}
	}

	if err := mapstructure.Decode(values, form); err != nil {
		return BadRequest(err)
	}

	return nil
}

// validateForm checks form against its validation tags, returning nil if it is valid.
func validateForm(form interface{}) (formErrors, error) {
	err := validate.Struct(form)
	if err == nil {
		return nil, nil
	}

	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return nil, err
	}

	errs := formErrors{}
	for _, fe := range verrs {
		errs.add(fe.Field(), fieldErrorMessage(fe))
	}

	return errs, nil
}

func fieldErrorMessage(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "This field is required."
	case "max":
		return fmt.Sprintf("Ensure this value has at most %s characters.", fe.Param())
	case "min":
		return fmt.Sprintf("Ensure this value has at least %s characters.", fe.Param())
	case "clean":
		return Warning
	case "username":
		return "Enter a valid username. This value may contain only letters, numbers, and @/./+/-/_ characters."
	case "eqfield":
		return "The two password fields didn't match."
	default:
		return "Enter a valid value."
	}
}
