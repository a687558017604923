// Package domain contains entities without logic, just meta-data.
package domain

import "errors"

const MaxUserIDLen = 64

var (
	ErrUserIDEmpty   = errors.New("user id empty")
	ErrUserIDTooLong = errors.New("user id too long")
)

// UserID is the caller-supplied participant identity.
// It is unique only within a room, by map semantics.
type UserID string

func ParseUserID(s string) (UserID, error) {
	if len(s) == 0 {
		return "", ErrUserIDEmpty
	}
	if len(s) > MaxUserIDLen {
		return "", ErrUserIDTooLong
	}
	return UserID(s), nil
}
