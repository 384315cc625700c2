package ecs

import (
	"slices"

	"github.com/rotisserie/eris"
)

// Parents are lookup-only back references; children are owned by their parent and
// die with it. Both directions are stored as ids into the world's arena.

// Parent returns the parent entity, or nil for a root.
func (e *Entity) Parent() *Entity {
	return e.world.arena.get(e.parent)
}

// Children returns the ids of the entity's children in attach order. The slice is
// owned by the entity.
func (e *Entity) Children() []EntityId {
	return e.children
}

// SetParent attaches e under parent, or detaches it when parent is nil. Any
// reparenting that would make e its own ancestor is rejected.
func (e *Entity) SetParent(parent *Entity) error {
	if !e.alive {
		return eris.Wrapf(ErrEntityDestroyed, "reparent %s", e.id)
	}
	if parent == nil {
		if e.parent.IsValid() {
			e.unlink()
			e.inherit(true, e.partition)
			e.world.hierarchyVersion++
		}
		return nil
	}
	if parent.world != e.world {
		return eris.Wrapf(ErrInvalidParent, "%s belongs to another world", parent.id)
	}
	if !parent.alive {
		return eris.Wrapf(ErrEntityDestroyed, "parent %s", parent.id)
	}
	if parent == e {
		return eris.Wrapf(ErrInvalidParent, "%s cannot parent itself", e.id)
	}
	for a := parent; a != nil; a = a.Parent() {
		if a == e {
			return eris.Wrapf(ErrCyclicParent, "%s is an ancestor of %s", e.id, parent.id)
		}
	}
	if e.parent == parent.id {
		return nil
	}

	e.unlink()
	e.parent = parent.id
	parent.children = append(parent.children, e.id)
	e.inherit(parent.IsEnabled(), parent.partition)
	e.world.hierarchyVersion++
	return nil
}

// unlink removes e from its parent's child list.
func (e *Entity) unlink() {
	if p := e.Parent(); p != nil {
		if i := slices.Index(p.children, e.id); i >= 0 {
			p.children = slices.Delete(p.children, i, i+1)
		}
	}
	e.parent = InvalidEntityId
}

// SetEnabled toggles the entity. A disabled entity keeps its components but its
// effective mask is empty, and so is every descendant's.
func (e *Entity) SetEnabled(enabled bool) {
	if e.enabled == enabled {
		return
	}
	e.enabled = enabled
	e.markDirty()
	for _, id := range e.children {
		if child := e.world.arena.get(id); child != nil {
			child.inherit(e.IsEnabled(), child.partition)
		}
	}
}

// SetPartition tags e and its whole subtree with a world-partition id.
func (e *Entity) SetPartition(partition uint32) {
	e.inherit(e.parentEnabled, partition)
}

// inherit pushes the parent's enabled state and partition down the subtree.
func (e *Entity) inherit(parentEnabled bool, partition uint32) {
	e.partition = partition
	if e.parentEnabled != parentEnabled {
		e.parentEnabled = parentEnabled
		e.markDirty()
	}
	for _, id := range e.children {
		if child := e.world.arena.get(id); child != nil {
			child.inherit(e.IsEnabled(), partition)
		}
	}
}
