package domain

import (
	"context"
	"encoding/json"
)

// KVStore is the backing store capability room documents are persisted in.
// Values are opaque bytes; the store never interprets them.
type KVStore interface {
	// Get returns the stored value and whether the key exists.
	Get(ctx context.Context, key string) ([]byte, bool, error)
	// Set overwrites the value stored under key.
	Set(ctx context.Context, key string, value []byte) error
	Ping(ctx context.Context) error
	Close() error
}

// UserKey identifies one of the two people sharing a room.
type UserKey string

const (
	UserMoi      UserKey = "moi"
	UserMarianne UserKey = "marianne"
)

// Users lists every known user in display order.
var Users = []UserKey{UserMoi, UserMarianne}

// ParseUserKey validates a user key given on the command line or in a request.
func ParseUserKey(s string) (UserKey, error) {
	switch UserKey(s) {
	case UserMoi, UserMarianne:
		return UserKey(s), nil
	}
	return "", ErrUnknownUser
}

// UserNote is one person's rating of a restaurant. Both fields may be absent.
type UserNote struct {
	Note    *int    `json:"note"`
	Comment *string `json:"comment"`
}

// RestaurantNote holds the independent notes of both users for one restaurant.
type RestaurantNote struct {
	Moi      *UserNote `json:"moi,omitempty"`
	Marianne *UserNote `json:"marianne,omitempty"`
}

// For returns the note of the given user, nil when absent.
func (n RestaurantNote) For(user UserKey) *UserNote {
	switch user {
	case UserMoi:
		return n.Moi
	case UserMarianne:
		return n.Marianne
	}
	return nil
}

// With returns a copy with the note of user replaced.
func (n RestaurantNote) With(user UserKey, note *UserNote) RestaurantNote {
	switch user {
	case UserMoi:
		n.Moi = note
	case UserMarianne:
		n.Marianne = note
	}
	return n
}

// Notes maps a restaurant ID (decimal string) to its notes.
type Notes map[string]RestaurantNote

// SyncPayload is the single document replicated per room. Unknown fields
// of an incoming document are dropped.
type SyncPayload struct {
	DoneIDs            []int `json:"doneIds"`
	ClassementMoi      []int `json:"classementMoi"`
	ClassementMarianne []int `json:"classementMarianne"`
	ValidatedMoi       bool  `json:"validatedMoi"`
	ValidatedMarianne  bool  `json:"validatedMarianne"`
	Notes              Notes `json:"notes"`
}

// Normalize replaces nil collections with empty ones so the payload always
// serializes as lists and an object, never null.
func (p SyncPayload) Normalize() SyncPayload {
	if p.DoneIDs == nil {
		p.DoneIDs = []int{}
	}
	if p.ClassementMoi == nil {
		p.ClassementMoi = []int{}
	}
	if p.ClassementMarianne == nil {
		p.ClassementMarianne = []int{}
	}
	if p.Notes == nil {
		p.Notes = Notes{}
	}
	return p
}

// PersistRequest is the body of POST /sync.
type PersistRequest struct {
	Room string          `json:"room"`
	Data json.RawMessage `json:"data,omitempty"`
}

// PersistResponse acknowledges a POST /sync.
type PersistResponse struct {
	OK bool `json:"ok"`
}

// ErrorBody is the machine-checkable error shape returned with 4xx responses.
type ErrorBody struct {
	Error string `json:"error"`
}
