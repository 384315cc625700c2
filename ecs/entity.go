package ecs

import (
	"reflect"
	"unsafe"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
)

type componentSlot struct {
	typ  ComponentType
	slot int32
	ptr  unsafe.Pointer
}

// Entity is a composition of components owned by a World. Entities are allocated
// from the World's arena and must not be copied.
//
// The component list is split in two ranges: the first live entries are attached,
// the rest are stale and get reclaimed by the next Refresh.
type Entity struct {
	id       EntityId
	world    *World
	instance uuid.UUID
	name     string

	slots []componentSlot
	live  int

	// mask is the cached, enabled-gated union of live component types. reconciled is
	// the mask the world's families currently agree with.
	mask       MaskHandle
	reconciled MaskHandle

	alive         bool
	dirty         bool
	queued        bool
	pending       bool
	enabled       bool
	parentEnabled bool
	replicated    bool

	parent       EntityId
	children     []EntityId
	partition    uint32
	childVersion uint64

	liveIndex int
	inbox     []Message
	onReady   func(*Entity)
}

func (e *Entity) init(w *World, instance uuid.UUID) {
	e.world = w
	e.instance = instance
	e.alive = true
	e.pending = true
	e.enabled = true
	e.parentEnabled = true
	e.parent = InvalidEntityId
	e.liveIndex = -1
}

// reset clears everything but the id and keeps slice capacity for the next tenant.
func (e *Entity) reset() {
	clear(e.slots)
	clear(e.inbox)
	*e = Entity{
		id:       e.id,
		slots:    e.slots[:0],
		children: e.children[:0],
		inbox:    e.inbox[:0],
	}
}

// ID returns the entity's arena id.
func (e *Entity) ID() EntityId { return e.id }

// UUID returns the instance identifier used across sessions and the network.
func (e *Entity) UUID() uuid.UUID { return e.instance }

// World returns the owning world.
func (e *Entity) World() *World { return e.world }

func (e *Entity) Name() string        { return e.name }
func (e *Entity) SetName(name string) { e.name = name }

// IsAlive reports whether Destroy has not been called.
func (e *Entity) IsAlive() bool { return e.alive }

// IsDirty reports whether the component set changed since the last Refresh.
func (e *Entity) IsDirty() bool { return e.dirty }

// IsPending reports whether the entity waits for the next spawn pass.
func (e *Entity) IsPending() bool { return e.pending }

// IsReplicated reports whether the entity was created by remote replication.
func (e *Entity) IsReplicated() bool { return e.replicated }

// IsEnabled reports whether the entity and all its ancestors are enabled.
func (e *Entity) IsEnabled() bool { return e.enabled && e.parentEnabled }

// Mask returns the cached mask handle. It is recomputed by Refresh.
func (e *Entity) Mask() MaskHandle { return e.mask }

// Partition returns the world-partition tag.
func (e *Entity) Partition() uint32 { return e.partition }

// ChildVersion changes every time a child refreshes its composition.
func (e *Entity) ChildVersion() uint64 { return e.childVersion }

// OnReady sets a hook called once when the entity is promoted to live.
func (e *Entity) OnReady(fn func(*Entity)) { e.onReady = fn }

// Inbox returns the messages waiting on the entity in arrival order. The slice is
// owned by the entity and changes as systems send and purge.
func (e *Entity) Inbox() []Message { return e.inbox }

// AddComponent attaches a copy of value (given as T or *T) to the entity.
func (e *Entity) AddComponent(value any) error {
	ct, ok := e.world.registry.TypeOf(value)
	if !ok {
		return eris.Wrapf(ErrUnknownComponent, "%T", value)
	}
	_, err := e.addComponent(ct, value)
	return err
}

func (e *Entity) addComponent(ct ComponentType, value any) (unsafe.Pointer, error) {
	if !e.alive {
		return nil, eris.Wrapf(ErrEntityDestroyed, "add %s to %s", e.world.registry.Name(ct), e.id)
	}
	if e.indexOf(ct) >= 0 {
		return nil, eris.Wrapf(ErrDuplicateComponent, "%s on %s", e.world.registry.Name(ct), e.id)
	}
	if e.live >= e.world.cfg.MaxEntityComponents {
		return nil, eris.Wrapf(ErrTooManyComponents, "%s has %d", e.id, e.live)
	}

	pool := e.world.pool(ct)
	var (
		ptr  unsafe.Pointer
		slot int32
	)
	if value == nil {
		ptr, slot = pool.allocZero()
	} else {
		var ok bool
		ptr, slot, ok = pool.alloc(value)
		if !ok {
			return nil, eris.Wrapf(ErrUnknownComponent, "%T is not %s", value, e.world.registry.Name(ct))
		}
	}

	e.slots = append(e.slots, componentSlot{typ: ct, slot: slot, ptr: ptr})
	if last := len(e.slots) - 1; last != e.live {
		// Keep live entries contiguous: the new slot takes the first stale position.
		e.slots[e.live], e.slots[last] = e.slots[last], e.slots[e.live]
	}
	e.live++
	e.markDirty()
	return ptr, nil
}

// RemoveComponentById detaches the component of type ct. The component is
// reclaimed on the next Refresh; until then existing pointers stay valid.
func (e *Entity) RemoveComponentById(ct ComponentType) bool {
	i := e.indexOf(ct)
	if i < 0 {
		return false
	}
	e.live--
	e.slots[i], e.slots[e.live] = e.slots[e.live], e.slots[i]
	e.markDirty()
	return true
}

// Refresh reclaims stale components and recomputes the mask. It does nothing
// unless the entity is dirty.
func (e *Entity) Refresh() {
	if !e.dirty {
		return
	}

	for _, s := range e.slots[e.live:] {
		e.world.pool(s.typ).free(s.slot)
	}
	clear(e.slots[e.live:])
	e.slots = e.slots[:e.live]

	var m Mask
	if e.IsEnabled() {
		for _, s := range e.slots {
			m = m.With(s.typ)
		}
	}
	e.mask = e.world.masks.Intern(m)
	e.dirty = false

	if p := e.world.arena.get(e.parent); p != nil {
		p.childVersion++
	}
}

// Destroy marks the entity and its children dead. Memory is reclaimed by the
// world's next sweep.
func (e *Entity) Destroy() error {
	if !e.alive {
		return eris.Wrapf(ErrEntityDestroyed, "%s", e.id)
	}
	if e.replicated && !e.world.cfg.ReplicaAuthority && !e.world.closing {
		return eris.Wrapf(ErrReplicaAuthority, "%s (%s)", e.id, e.instance)
	}
	e.destroy()
	return nil
}

func (e *Entity) destroy() {
	for len(e.children) > 0 {
		child := e.world.arena.get(e.children[len(e.children)-1])
		if child == nil || !child.alive {
			e.children = e.children[:len(e.children)-1]
			continue
		}
		child.destroy()
	}

	e.unlink()
	e.alive = false
	e.markDirty()
	e.world.onDestroyed(e)
}

// Has reports whether a live component of type ct is attached.
func (e *Entity) Has(ct ComponentType) bool {
	return e.indexOf(ct) >= 0
}

// Component returns a pointer to the live component of type ct, or nil.
func (e *Entity) Component(ct ComponentType) unsafe.Pointer {
	if i := e.indexOf(ct); i >= 0 {
		return e.slots[i].ptr
	}
	return nil
}

// ComponentValue returns the live component of type ct as a *T boxed in an any.
func (e *Entity) ComponentValue(ct ComponentType) any {
	ptr := e.Component(ct)
	if ptr == nil {
		return nil
	}
	return e.world.pool(ct).boxed(ptr)
}

// ComponentTypes returns the types of the live components in storage order.
func (e *Entity) ComponentTypes() []ComponentType {
	types := make([]ComponentType, e.live)
	for i, s := range e.slots[:e.live] {
		types[i] = s.typ
	}
	return types
}

// ComponentCount returns the number of live components.
func (e *Entity) ComponentCount() int { return e.live }

// componentAt returns the component pointer of ct on e, looking past the live range
// so a dirty entity still resolves components removed since its last refresh.
func (e *Entity) componentAt(ct ComponentType) unsafe.Pointer {
	for i := range e.slots {
		if e.slots[i].typ == ct {
			return e.slots[i].ptr
		}
	}
	return nil
}

func (e *Entity) indexOf(ct ComponentType) int {
	for i := 0; i < e.live; i++ {
		if e.slots[i].typ == ct {
			return i
		}
	}
	return -1
}

func (e *Entity) markDirty() {
	e.dirty = true
	e.world.enqueue(e)
}

// Add attaches value to e and returns a pointer to the stored component.
func Add[T any](e *Entity, value T) (*T, error) {
	ct, ok := e.world.registry.typeFor(reflect.TypeFor[T]())
	if !ok {
		return nil, eris.Wrapf(ErrUnknownComponent, "%s", reflect.TypeFor[T]())
	}
	ptr, err := e.addComponent(ct, value)
	if err != nil {
		return nil, err
	}
	return (*T)(ptr), nil
}

// MustAdd is Add that panics on error.
func MustAdd[T any](e *Entity, value T) *T {
	ptr, err := Add(e, value)
	if err != nil {
		panic(err)
	}
	return ptr
}

// Get returns the live component of type T, or nil.
func Get[T any](e *Entity) *T {
	ct, ok := e.world.registry.typeFor(reflect.TypeFor[T]())
	if !ok {
		return nil
	}
	return (*T)(e.Component(ct))
}

// Has reports whether e carries a live component of type T.
func Has[T any](e *Entity) bool {
	ct, ok := e.world.registry.typeFor(reflect.TypeFor[T]())
	return ok && e.Has(ct)
}

// Remove detaches the component of type T.
func Remove[T any](e *Entity) bool {
	ct, ok := e.world.registry.typeFor(reflect.TypeFor[T]())
	return ok && e.RemoveComponentById(ct)
}
