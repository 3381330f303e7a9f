package domain

import (
	"strings"
	"unicode"
	"unicode/utf8"
)

const (
	// MaxRoomLength caps room identifiers, in characters.
	MaxRoomLength = 64

	syncKeyPrefix = "sync:"
)

// ValidateRoom rejects empty identifiers and identifiers longer than MaxRoomLength.
func ValidateRoom(room string) error {
	if room == "" || utf8.RuneCountInString(room) > MaxRoomLength {
		return ErrInvalidRoom
	}
	return nil
}

// NormalizeRoom folds a user supplied join code: surrounding and inner
// whitespace is removed and letters are lowercased.
func NormalizeRoom(code string) (string, error) {
	code = strings.Map(func(r rune) rune {
		if unicode.IsSpace(r) {
			return -1
		}
		return r
	}, strings.ToLower(code))

	if err := ValidateRoom(code); err != nil {
		return "", err
	}
	return code, nil
}

// SyncKey namespaces a room in the backing store.
func SyncKey(room string) string {
	return syncKeyPrefix + room
}
