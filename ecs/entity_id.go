package ecs

import "fmt"

// EntityId encodes the arena slot index (lower 32 bits) and the slot generation (upper 32 bits)
type EntityId uint64

// InvalidEntityId never refers to an entity
const InvalidEntityId EntityId = ^EntityId(0)

// NewEntityId creates an EntityId from a slot index and generation
func NewEntityId(index uint32, generation uint32) EntityId {
	return EntityId(uint64(generation)<<32 | uint64(index))
}

// Index extracts the arena slot index from the entity ID
func (e EntityId) Index() uint32 {
	return uint32(e & 0xFFFFFFFF)
}

// Generation extracts the slot generation from the entity ID
func (e EntityId) Generation() uint32 {
	return uint32(e >> 32)
}

// IsValid reports whether the id could refer to an entity. Generations start at 1,
// so the zero value is invalid as well as InvalidEntityId.
func (e EntityId) IsValid() bool {
	return e != InvalidEntityId && e.Generation() != 0
}

func (e EntityId) String() string {
	if !e.IsValid() {
		return "e<invalid>"
	}
	return fmt.Sprintf("e%dv%d", e.Index(), e.Generation())
}
