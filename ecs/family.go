package ecs

import (
	"slices"
	"unsafe"

	"github.com/kamstrup/intmap"
)

// FamilyKey identifies a family by the full signature requested by its bindings:
// the required components, the subset requested for writing and the optional ones.
type FamilyKey struct {
	Include  MaskHandle
	Write    MaskHandle
	Optional MaskHandle
}

// Family is the dense index of every live entity whose mask includes the family's
// inclusion mask. Each record is an entity id followed by one component pointer per
// column; columns are the required and optional types sorted by id.
type Family struct {
	id      int
	key     FamilyKey
	types   []ComponentType
	columns [MaxComponentTypes]int16
	stride  int

	ids   []EntityId
	slots []unsafe.Pointer
	rows  *intmap.Map[EntityId, int]

	pendingRemoval []EntityId
}

func newFamily(id int, key FamilyKey, include, optional Mask) *Family {
	f := &Family{
		id:    id,
		key:   key,
		types: include.Or(optional).Types(),
		rows:  intmap.New[EntityId, int](256),
	}
	f.stride = len(f.types)
	for i := range f.columns {
		f.columns[i] = -1
	}
	for col, ct := range f.types {
		f.columns[ct] = int16(col)
	}
	return f
}

// ID returns the family's creation index within its world.
func (f *Family) ID() int { return f.id }

// Key returns the signature the family was created for.
func (f *Family) Key() FamilyKey { return f.key }

// Types returns the column layout.
func (f *Family) Types() []ComponentType { return f.types }

// Count returns the number of records. It is stable for the duration of a system
// update but must not be cached across frames.
func (f *Family) Count() int { return len(f.ids) }

// EntityID returns the entity id stored in record i.
func (f *Family) EntityID(i int) EntityId { return f.ids[i] }

// Column returns the column of ct, or -1 if the family does not carry it.
func (f *Family) Column(ct ComponentType) int { return int(f.columns[ct]) }

// Component returns the pointer stored for column col of record i. Optional columns
// hold nil when the entity lacks the component.
func (f *Family) Component(i, col int) unsafe.Pointer {
	return f.slots[i*f.stride+col]
}

// Index returns the record index of id.
func (f *Family) Index(id EntityId) (int, bool) {
	return f.rows.Get(id)
}

// Contains reports whether id has a record.
func (f *Family) Contains(id EntityId) bool {
	_, ok := f.rows.Get(id)
	return ok
}

// PendingRemovals returns how many removals wait for the next sweep.
func (f *Family) PendingRemovals() int { return len(f.pendingRemoval) }

// addEntity appends a record, copying the component pointers off the entity.
func (f *Family) addEntity(e *Entity) {
	if i, ok := f.rows.Get(e.id); ok {
		f.fill(i, e)
		return
	}
	i := len(f.ids)
	f.ids = append(f.ids, e.id)
	f.slots = append(f.slots, make([]unsafe.Pointer, f.stride)...)
	f.rows.Put(e.id, i)
	f.fill(i, e)
}

// refreshEntity re-reads the component pointers of an entity that stays a member
// but whose component set changed.
func (f *Family) refreshEntity(e *Entity) {
	if i, ok := f.rows.Get(e.id); ok {
		f.fill(i, e)
	}
}

func (f *Family) fill(i int, e *Entity) {
	row := f.slots[i*f.stride : (i+1)*f.stride]
	for col, ct := range f.types {
		row[col] = e.componentAt(ct)
	}
}

// removeEntity queues id for the next removeDeadEntities pass.
func (f *Family) removeEntity(id EntityId) {
	f.pendingRemoval = append(f.pendingRemoval, id)
}

// removeDeadEntities drops every queued record in one pass: the queue is sorted,
// each record is looked up by binary search and swap-removed, and the scan index
// steps back to examine the record swapped into its place.
func (f *Family) removeDeadEntities() {
	if len(f.pendingRemoval) == 0 {
		return
	}

	slices.Sort(f.pendingRemoval)
	f.pendingRemoval = slices.Compact(f.pendingRemoval)

	for i := 0; i < len(f.ids) && len(f.pendingRemoval) > 0; i++ {
		j, found := slices.BinarySearch(f.pendingRemoval, f.ids[i])
		if !found {
			continue
		}
		f.pendingRemoval = slices.Delete(f.pendingRemoval, j, j+1)
		f.swapRemove(i)
		i--
	}

	f.pendingRemoval = f.pendingRemoval[:0]
}

func (f *Family) swapRemove(i int) {
	last := len(f.ids) - 1
	f.rows.Del(f.ids[i])
	if i != last {
		f.ids[i] = f.ids[last]
		copy(f.slots[i*f.stride:(i+1)*f.stride], f.slots[last*f.stride:])
		f.rows.Put(f.ids[i], i)
	}
	clear(f.slots[last*f.stride:])
	f.ids = f.ids[:last]
	f.slots = f.slots[:last*f.stride]
}
