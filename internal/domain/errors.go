package domain

import "errors"

var (
	ErrInvalidRoom             = errors.New("invalid room")
	ErrMalformedRequest        = errors.New("invalid json")
	ErrBackingStoreUnavailable = errors.New("backing store unavailable")
	ErrTransportFailure        = errors.New("sync transport failure")
	ErrNotSynced               = errors.New("no sync room set")
	ErrUnknownUser             = errors.New("unknown user, expected moi or marianne")
	ErrInvalidNote             = errors.New("note must be between 1 and 5")
)
