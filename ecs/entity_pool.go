package ecs

import "github.com/rotisserie/eris"

// entityPool is the arena backing every Entity of a World. Slots are addressed by
// EntityId index; the generation stored with the slot detects stale ids. Entity
// structs live in blocks held by pointer so *Entity stays stable.
type entityPool struct {
	blocks      []*[blockSize]Entity
	generations []uint32
	inUse       []bool
	freeList    []uint32
	limit       int
	count       int
}

func newEntityPool(limit int) *entityPool {
	return &entityPool{
		generations: make([]uint32, 0, blockSize),
		freeList:    make([]uint32, 0, blockSize),
		limit:       limit,
	}
}

// alloc reserves a slot and returns its zeroed entity with the id assigned.
func (p *entityPool) alloc() *Entity {
	var idx uint32
	if n := len(p.freeList); n > 0 {
		idx = p.freeList[n-1]
		p.freeList = p.freeList[:n-1]
	} else {
		if len(p.generations) >= p.limit {
			panic(eris.Wrapf(ErrPoolExhausted, "limit %d", p.limit))
		}
		idx = uint32(len(p.generations))
		p.generations = append(p.generations, 1)
		p.inUse = append(p.inUse, false)
		if int(idx/blockSize) >= len(p.blocks) {
			p.blocks = append(p.blocks, new([blockSize]Entity))
		}
	}

	p.inUse[idx] = true
	p.count++

	e := &p.blocks[idx/blockSize][idx%blockSize]
	e.id = NewEntityId(idx, p.generations[idx])
	return e
}

// release returns the slot to the free list and bumps its generation so the old id
// no longer resolves.
func (p *entityPool) release(e *Entity) {
	idx := e.id.Index()
	if int(idx) >= len(p.generations) || !p.inUse[idx] || p.generations[idx] != e.id.Generation() {
		return
	}

	p.generations[idx]++
	if p.generations[idx] == 0 {
		p.generations[idx] = 1
	}
	p.inUse[idx] = false
	p.count--
	e.reset()
	p.freeList = append(p.freeList, idx)
}

// get resolves an id to its entity, or nil if the id is stale.
func (p *entityPool) get(id EntityId) *Entity {
	if !id.IsValid() {
		return nil
	}
	idx := id.Index()
	if int(idx) >= len(p.generations) || !p.inUse[idx] || p.generations[idx] != id.Generation() {
		return nil
	}
	return &p.blocks[idx/blockSize][idx%blockSize]
}

func (p *entityPool) len() int {
	return p.count
}
