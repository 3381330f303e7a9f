package domain

import "time"

const (
	EventSyncPulled = "sync:pulled"
	EventSyncPushed = "sync:pushed"
)

// SyncPulledEvent is published after a pulled document was applied locally.
type SyncPulledEvent struct {
	Room    string
	Payload SyncPayload
	At      time.Time
}

// SyncPushedEvent is published after a push was acknowledged by the endpoint.
type SyncPushedEvent struct {
	Room  string
	Bytes int
	At    time.Time
}
