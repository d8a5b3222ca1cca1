package model

import "fmt"

// ProjectionError reports an event whose payload does not match the expected schema.
type ProjectionError struct {
	Kind      EventKind `json:"kind"`
	EventType string    `json:"event_type"`
	TxDigest  string    `json:"tx_digest"`
	EventSeq  string    `json:"event_seq"`
	Field     string    `json:"field"`
	Payload   string    `json:"payload"`
}

func (e *ProjectionError) Error() string {
	return fmt.Sprintf("project %s event %s:%s: missing field %q", e.Kind, e.TxDigest, e.EventSeq, e.Field)
}
