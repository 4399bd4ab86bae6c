// Package forms holds the validation records for user submitted forms. Each
// record is a struct whose fields carry the submitted values and whose tags
// name the constraints checked by Validate.
package forms

import (
	"errors"
	"fmt"
	"net/url"
	"path/filepath"
	"reflect"
	"slices"
	"sort"
	"strings"

	"blogfeed/app/models"

	"github.com/go-playground/form/v4"
	"github.com/go-playground/validator/v10"
)

// ReservedUsernames collide with top level routes and cannot be registered.
var ReservedUsernames = []string{"api", "auth", "new", "follow", "group", "media", "static", "metrics"}

// ImageExtensions are the file extensions accepted for post images.
var ImageExtensions = []string{"jpg", "jpeg", "png", "gif", "webp"}

// PostForm is submitted when creating or editing a post.
type PostForm struct {
	Text       string `form:"text" validate:"required,notblank"`
	Group      string `form:"group" validate:"omitempty,slug"`
	ImageName  string `form:"image" validate:"omitempty,image_ext"`
	ClearImage bool   `form:"image-clear"`
}

// CommentForm is submitted when commenting on a post.
type CommentForm struct {
	Text string `form:"text" validate:"required,notblank"`
}

// SignupForm is submitted when registering an account.
type SignupForm struct {
	Username        string `form:"username" validate:"required,max=150,username,not_reserved"`
	FirstName       string `form:"first_name" validate:"max=150"`
	LastName        string `form:"last_name" validate:"max=150"`
	Email           string `form:"email" validate:"omitempty,email"`
	Password        string `form:"password1" validate:"required,min=8"`
	PasswordConfirm string `form:"password2" validate:"required,eqfield=Password"`
}

// LoginForm is submitted when signing in.
type LoginForm struct {
	Username string `form:"username" validate:"required"`
	Password string `form:"password" validate:"required"`
	Next     string `form:"next"`
}

// ValidationError maps form field names to messages.
type ValidationError struct {
	Fields map[string][]string `json:"errors"`
}

func (e *ValidationError) Error() string {
	names := make([]string, 0, len(e.Fields))
	for name := range e.Fields {
		names = append(names, name)
	}
	sort.Strings(names)
	parts := make([]string, 0, len(names))
	for _, name := range names {
		parts = append(parts, fmt.Sprintf("%s: %s", name, strings.Join(e.Fields[name], " ")))
	}
	return "invalid form: " + strings.Join(parts, "; ")
}

// Add records msg against field. Use the empty field name for form-wide errors.
func (e *ValidationError) Add(field, msg string) {
	if e.Fields == nil {
		e.Fields = make(map[string][]string)
	}
	e.Fields[field] = append(e.Fields[field], msg)
}

// Has reports whether field has at least one error.
func (e *ValidationError) Has(field string) bool {
	return len(e.Fields[field]) > 0
}

// First returns the first message for field, or "".
func (e *ValidationError) First(field string) string {
	if msgs := e.Fields[field]; len(msgs) > 0 {
		return msgs[0]
	}
	return ""
}

// NewValidationError builds a single-field error.
func NewValidationError(field, msg string) *ValidationError {
	e := &ValidationError{}
	e.Add(field, msg)
	return e
}

var decoder = newDecoder()

func newDecoder() *form.Decoder {
	d := form.NewDecoder()
	d.SetMode(form.ModeExplicit)
	return d
}

// Decode copies submitted values into the struct dst points to, matching
// values to fields by their form tag. Bool fields accept what an HTML checkbox
// sends ("on"). A value that does not parse is reported as a ValidationError.
func Decode(values url.Values, dst any) error {
	err := decoder.Decode(dst, values)
	var malformed form.DecodeErrors
	if errors.As(err, &malformed) {
		invalid := &ValidationError{}
		for field := range malformed {
			invalid.Add(field, "Enter a valid value.")
		}
		return invalid
	}
	if err != nil {
		return fmt.Errorf("decode form: %w", err)
	}
	return nil
}

var validate = newValidator()

func newValidator() *validator.Validate {
	v := models.NewValidator()
	v.RegisterTagNameFunc(func(field reflect.StructField) string {
		name := strings.SplitN(field.Tag.Get("form"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	v.RegisterValidation("not_reserved", func(fl validator.FieldLevel) bool {
		return !slices.Contains(ReservedUsernames, strings.ToLower(fl.Field().String()))
	})
	v.RegisterValidation("image_ext", func(fl validator.FieldLevel) bool {
		return HasImageExtension(fl.Field().String())
	})
	return v
}

// HasImageExtension reports whether name ends in an accepted image extension.
func HasImageExtension(name string) bool {
	ext := strings.TrimPrefix(strings.ToLower(filepath.Ext(name)), ".")
	return slices.Contains(ImageExtensions, ext)
}

// Validate checks a form record and returns a *ValidationError listing every
// failing field, or nil.
func Validate(record any) error {
	err := validate.Struct(record)
	if err == nil {
		return nil
	}
	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		return err
	}
	result := &ValidationError{}
	for _, fe := range fieldErrs {
		result.Add(fe.Field(), message(fe))
	}
	return result
}

func message(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required", "notblank":
		return "This field is required."
	case "email":
		return "Enter a valid email address."
	case "min":
		return fmt.Sprintf("Ensure this value has at least %s characters.", fe.Param())
	case "max":
		return fmt.Sprintf("Ensure this value has at most %s characters.", fe.Param())
	case "username":
		return "Enter a valid username. This value may contain only letters, numbers, and @/./+/-/_ characters."
	case "not_reserved":
		return "This username is reserved."
	case "eqfield":
		return "The two password fields didn't match."
	case "slug":
		return "Select a valid group."
	case "image_ext":
		return fmt.Sprintf("File extension is not allowed. Allowed extensions are: %s.", strings.Join(ImageExtensions, ", "))
	default:
		return fmt.Sprintf("Failed the %q check.", fe.Tag())
	}
}
