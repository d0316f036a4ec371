// Package form parses and validates the HTML forms the blog accepts.
//
// Each form is a plain struct built from url.Values. Validate returns nil or an
// *apperror.AppError wrapping apperror.ErrValidation whose Fields map holds every
// problem, keyed by input name. Problems that belong to no single input are
// keyed by NonField.
//
// Forms never touch the database. Rules that need storage (a taken username,
// wrong credentials) are added by the service layer under the same keys.
package form

import (
	"net/url"
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/sakif/blog/internal/apperror"
)

// NonField is the Fields key for errors that concern the form as a whole.
const NonField = "__all__"

const (
	MaxUsernameLength = 150
	MinPasswordLength = 8
	// bcrypt ignores everything past 72 bytes.
	MaxPasswordBytes   = 72
	MaxTitleLength     = 200
	MaxCommentLength   = 5000
	RequiredFieldError = "This field is required."
)

// Letters and digits from any script, plus . @ + - _
var usernamePattern = regexp.MustCompile(`^[\p{L}\p{N}_.@+-]+$`)

// errs collects field messages in insertion order per field.
type errs map[string][]string

func (e errs) add(field, msg string) { e[field] = append(e[field], msg) }

func (e errs) err() error {
	if len(e) == 0 {
		return nil
	}
	return apperror.Invalid(e)
}

// Registration is the sign-up form.
type Registration struct {
	Username  string
	Password1 string
	Password2 string
}

func RegistrationFromValues(v url.Values) Registration {
	return Registration{
		Username:  strings.TrimSpace(v.Get("username")),
		Password1: v.Get("password1"),
		Password2: v.Get("password2"),
	}
}

func (f Registration) Validate() error {
	e := errs{}

	switch {
	case f.Username == "":
		e.add("username", RequiredFieldError)
	case utf8.RuneCountInString(f.Username) > MaxUsernameLength:
		e.add("username", "Ensure this value has at most 150 characters.")
	case !usernamePattern.MatchString(f.Username):
		e.add("username", "Enter a valid username. This value may contain only letters, numbers, and @/./+/-/_ characters.")
	}

	if f.Password1 == "" {
		e.add("password1", RequiredFieldError)
	}
	if f.Password2 == "" {
		e.add("password2", RequiredFieldError)
	}
	if f.Password1 == "" || f.Password2 == "" {
		return e.err()
	}

	if f.Password1 != f.Password2 {
		e.add("password2", "The two password fields didn't match.")
		return e.err()
	}

	if utf8.RuneCountInString(f.Password1) < MinPasswordLength {
		e.add("password2", "This password is too short. It must contain at least 8 characters.")
	}
	if len(f.Password1) > MaxPasswordBytes {
		e.add("password2", "This password is too long.")
	}
	if isNumeric(f.Password1) {
		e.add("password2", "This password is entirely numeric.")
	}
	if f.Username != "" && strings.EqualFold(f.Password1, f.Username) {
		e.add("password2", "The password is too similar to the username.")
	}
	return e.err()
}

func isNumeric(s string) bool {
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return s != ""
}

// Login is the sign-in form. Next is the local path to return to afterwards.
type Login struct {
	Username string
	Password string
	Next     string
}

func LoginFromValues(v url.Values) Login {
	return Login{
		Username: strings.TrimSpace(v.Get("username")),
		Password: v.Get("password"),
		Next:     v.Get("next"),
	}
}

func (f Login) Validate() error {
	e := errs{}
	if f.Username == "" {
		e.add("username", RequiredFieldError)
	}
	if f.Password == "" {
		e.add("password", RequiredFieldError)
	}
	return e.err()
}

// Post is the create/edit form. Public follows checkbox semantics: the field
// is present only when the box is ticked.
type Post struct {
	Title   string
	Content string
	Public  bool
}

func PostFromValues(v url.Values) Post {
	return Post{
		Title:   strings.TrimSpace(v.Get("title")),
		Content: v.Get("content"),
		Public:  checkbox(v, "public"),
	}
}

func (f Post) Validate() error {
	e := errs{}
	switch {
	case f.Title == "":
		e.add("title", RequiredFieldError)
	case utf8.RuneCountInString(f.Title) > MaxTitleLength:
		e.add("title", "Ensure this value has at most 200 characters.")
	}
	if strings.TrimSpace(f.Content) == "" {
		e.add("content", RequiredFieldError)
	}
	return e.err()
}

// Comment is the form on the post detail page.
type Comment struct {
	Content string
}

func CommentFromValues(v url.Values) Comment {
	return Comment{Content: strings.TrimSpace(v.Get("content"))}
}

func (f Comment) Validate() error {
	e := errs{}
	switch {
	case f.Content == "":
		e.add("content", RequiredFieldError)
	case utf8.RuneCountInString(f.Content) > MaxCommentLength:
		e.add("content", "Ensure this value has at most 5000 characters.")
	}
	return e.err()
}

// checkbox mirrors how browsers submit <input type="checkbox">: absent means
// unchecked, any of the usual truthy values means checked.
func checkbox(v url.Values, name string) bool {
	if _, ok := v[name]; !ok {
		return false
	}
	switch strings.ToLower(v.Get(name)) {
	case "", "on", "true", "1", "yes":
		return true
	}
	return false
}
