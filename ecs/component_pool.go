package ecs

import "unsafe"

// Dropper is implemented by components that own something beyond plain data.
// Drop runs right before the component's slot is reclaimed.
type Dropper interface {
	Drop()
}

// componentPool is the type-erased storage for one component type inside a World.
type componentPool interface {
	// alloc copies value (T or *T) into a free slot.
	alloc(value any) (unsafe.Pointer, int32, bool)
	allocZero() (unsafe.Pointer, int32)
	free(slot int32)
	boxed(ptr unsafe.Pointer) any
	len() int
}

const (
	blockSize = 64
)

// blockPool stores components of type T in fixed blocks. Blocks are held by pointer,
// so a component's address never moves while its slot is allocated.
type blockPool[T any] struct {
	blocks    []*[blockSize]T
	filled    []*[blockSize]bool
	freeSlots []int32
	nextIndex int32
	count     int
}

func (p *blockPool[T]) alloc(value any) (unsafe.Pointer, int32, bool) {
	var concrete T
	if ptr, ok := value.(*T); ok {
		if ptr != nil {
			concrete = *ptr
		}
	} else if val, ok := value.(T); ok {
		concrete = val
	} else {
		return nil, -1, false
	}

	ptr, slot := p.allocZero()
	*(*T)(ptr) = concrete
	return ptr, slot, true
}

func (p *blockPool[T]) allocZero() (unsafe.Pointer, int32) {
	var index int32
	if n := len(p.freeSlots); n > 0 {
		index = p.freeSlots[n-1]
		p.freeSlots = p.freeSlots[:n-1]
	} else {
		index = p.nextIndex
		p.nextIndex++
	}

	blockIdx := index / blockSize
	slotIdx := index % blockSize
	if int(blockIdx) >= len(p.blocks) {
		p.blocks = append(p.blocks, new([blockSize]T))
		p.filled = append(p.filled, new([blockSize]bool))
	}

	p.filled[blockIdx][slotIdx] = true
	p.count++
	return unsafe.Pointer(&p.blocks[blockIdx][slotIdx]), index
}

func (p *blockPool[T]) free(index int32) {
	if index < 0 || index >= p.nextIndex {
		return
	}

	blockIdx := index / blockSize
	slotIdx := index % blockSize
	if !p.filled[blockIdx][slotIdx] {
		return
	}

	item := &p.blocks[blockIdx][slotIdx]
	if d, ok := any(item).(Dropper); ok {
		d.Drop()
	}

	var zero T
	*item = zero
	p.filled[blockIdx][slotIdx] = false
	p.freeSlots = append(p.freeSlots, index)
	p.count--
}

func (p *blockPool[T]) boxed(ptr unsafe.Pointer) any {
	if ptr == nil {
		return nil
	}
	return (*T)(ptr)
}

func (p *blockPool[T]) len() int {
	return p.count
}
