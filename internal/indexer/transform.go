package indexer

import (
	"fmt"
	"strconv"

	"lendingScope/internal/chain"
	"lendingScope/internal/model"
)

func buildRawEvent(ev chain.Event) (model.RawEvent, error) {
	var ts uint64
	if ev.TimestampMs != "" {
		parsed, err := strconv.ParseUint(ev.TimestampMs, 10, 64)
		if err != nil {
			return model.RawEvent{}, fmt.Errorf("event %s timestamp: %w", ev.ID, err)
		}
		ts = parsed
	}

	return model.RawEvent{
		ID:          ev.ID,
		Type:        ev.Type,
		Sender:      ev.Sender,
		TimestampMs: ts,
		Payload:     ev.ParsedJSON,
	}, nil
}
