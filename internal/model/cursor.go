package model

import "time"

// EventCursor is the last processed position of one event stream.
type EventCursor struct {
	EventType string
	Next      EventID
	CreatedAt time.Time
	UpdatedAt time.Time
}
