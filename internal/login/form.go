// Package login validates the display name a user picks before joining.
package login

import (
	"regexp"
	"strings"

	"github.com/pkg/errors"
)

// The messages are shown to the user verbatim, hence the capitals.
var (
	// ErrRequired is returned for an empty or blank name.
	ErrRequired = errors.New("Username is required")
	// ErrInvalid is returned for names outside the allowed character set.
	ErrInvalid = errors.New("Please enter a valid username")
)

var validName = regexp.MustCompile(`^[A-Za-z0-9_-]+$`)

// Validate trims name and checks it. On success it returns the trimmed name.
func Validate(name string) (string, error) {
	trimmed := strings.TrimSpace(name)
	if trimmed == "" {
		return "", ErrRequired
	}
	if strings.EqualFold(trimmed, "null") || !validName.MatchString(trimmed) {
		return "", ErrInvalid
	}
	return trimmed, nil
}

// Form holds the state of the login field: the raw input and the error from
// the last failed submit. It knows nothing about connections.
type Form struct {
	value string
	err   error
}

// SetValue records an edit. Any pending error is cleared.
func (f *Form) SetValue(v string) {
	f.value = v
	f.err = nil
}

// Value returns the raw input.
func (f *Form) Value() string {
	return f.value
}

// Submit validates the input. It returns the trimmed name and true on
// success; on failure it keeps the error for Error and returns false.
func (f *Form) Submit() (string, bool) {
	name, err := Validate(f.value)
	if err != nil {
		f.err = err
		return "", false
	}
	f.err = nil
	return name, true
}

// Error returns the message to show under the field, or "".
func (f *Form) Error() string {
	if f.err == nil {
		return ""
	}
	return f.err.Error()
}

// Reset empties the form.
func (f *Form) Reset() {
	f.value = ""
	f.err = nil
}
