package core

import "github.com/google/uuid"

// IDGenerator mints identifiers for outbox events and journal entries.
// Tests swap in a sequential generator to keep assertions deterministic.
type IDGenerator interface {
	NewID() string
}

type UUIDGenerator struct{}

func (UUIDGenerator) NewID() string {
	return uuid.NewString()
}

var _ IDGenerator = UUIDGenerator{}
