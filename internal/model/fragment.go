package model

// Effect marks which aggregate views of an obligation an event kind invalidates.
type Effect uint8

const (
	EffectCollateral Effect = 1 << iota
	EffectDebt

	EffectNone Effect = 0
)

// Has reports whether e includes flag.
func (e Effect) Has(flag Effect) bool {
	return e&flag != 0
}

// Fragment is the projection of one raw event.
type Fragment struct {
	Kind         EventKind
	EventID      EventID
	ObligationID string
	// Created is set only for obligation creation events.
	Created *Obligation
	// Record is nil for obligation creation events.
	Record Record
}
