// Package domain contains entity without logic, just meta-data
package domain

import (
	"errors"
	"strings"
	"unicode/utf8"
)

const MaxUsernameLen = 36

var (
	ErrUsernameTooLong = errors.New("username too long")
	ErrUsernameEmpty   = errors.New("username empty")
)

// User is the self-asserted identity bound to one connection.
// Names are not unique; the registry keeps the last registration per name.
type User struct {
	Username string `json:"username"`
}

// TrimUsername is the only normalization the server applies to names.
func TrimUsername(username string) string {
	return strings.TrimSpace(username)
}

// NormalizeUsername trims whitespace and enforces length limits, counted in
// runes. Clients use it to check user input before registering.
func NormalizeUsername(username string) (string, error) {
	username = TrimUsername(username)
	if username == "" {
		return "", ErrUsernameEmpty
	}
	if utf8.RuneCountInString(username) > MaxUsernameLen {
		return "", ErrUsernameTooLong
	}
	return username, nil
}

func NewUser(username string) (*User, error) {
	name, err := NormalizeUsername(username)
	if err != nil {
		return nil, err
	}
	return &User{Username: name}, nil
}

func (u *User) SetUsername(username string) error {
	name, err := NormalizeUsername(username)
	if err != nil {
		return err
	}
	u.Username = name
	return nil
}
