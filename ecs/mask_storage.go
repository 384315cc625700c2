package ecs

import (
	"encoding/binary"
	"sync"

	"github.com/cespare/xxhash/v2"
	"github.com/kamstrup/intmap"
	"github.com/rotisserie/eris"
)

// MaskHandle is an interned Mask. Equal masks always share a handle.
type MaskHandle uint32

const (
	// EmptyMask is the handle of the mask with no bits set.
	EmptyMask MaskHandle = 0

	// MaxMaskHandles bounds the interning table.
	MaxMaskHandles = 1 << 24

	noHandle = ^MaskHandle(0)
)

// MaskStorage canonicalizes masks into small handles so equality is a handle
// comparison. The table is append-only: handles stay valid for the storage's lifetime.
type MaskStorage struct {
	mu       sync.RWMutex
	masks    []Mask
	chain    []MaskHandle
	buckets  *intmap.Map[uint64, MaskHandle]
	includes *intmap.Map[uint64, bool]
	limit    int
}

// NewMaskStorage creates an interning table holding only EmptyMask.
func NewMaskStorage() *MaskStorage {
	s := &MaskStorage{
		buckets:  intmap.New[uint64, MaskHandle](64),
		includes: intmap.New[uint64, bool](256),
		limit:    MaxMaskHandles,
	}
	s.insert(Mask{}, hashMask(Mask{}))
	return s
}

// Intern returns the handle for m, allocating one the first time m is seen.
func (s *MaskStorage) Intern(m Mask) MaskHandle {
	h := hashMask(m)

	s.mu.RLock()
	handle, ok := s.find(m, h)
	s.mu.RUnlock()
	if ok {
		return handle
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if handle, ok := s.find(m, h); ok {
		return handle
	}
	return s.insert(m, h)
}

// Mask returns the bits behind a handle.
func (s *MaskStorage) Mask(handle MaskHandle) Mask {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.masks[handle]
}

// Includes reports whether every bit of sub is present in handle. Results are
// memoized per handle pair.
func (s *MaskStorage) Includes(handle, sub MaskHandle) bool {
	if handle == sub || sub == EmptyMask {
		return true
	}
	if handle == EmptyMask {
		return false
	}

	key := uint64(handle)<<32 | uint64(sub)
	s.mu.RLock()
	res, ok := s.includes.Get(key)
	if !ok {
		res = s.masks[handle].Contains(s.masks[sub])
	}
	s.mu.RUnlock()

	if !ok {
		s.mu.Lock()
		s.includes.Put(key, res)
		s.mu.Unlock()
	}
	return res
}

// Len returns the number of interned masks.
func (s *MaskStorage) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.masks)
}

func (s *MaskStorage) find(m Mask, h uint64) (MaskHandle, bool) {
	handle, ok := s.buckets.Get(h)
	if !ok {
		return 0, false
	}
	for handle != noHandle {
		if s.masks[handle] == m {
			return handle, true
		}
		handle = s.chain[handle]
	}
	return 0, false
}

// insert must be called with the write lock held.
func (s *MaskStorage) insert(m Mask, h uint64) MaskHandle {
	if len(s.masks) >= s.limit {
		panic(eris.Wrapf(ErrMaskSpaceExhausted, "%d masks interned", len(s.masks)))
	}

	handle := MaskHandle(len(s.masks))
	next, ok := s.buckets.Get(h)
	if !ok {
		next = noHandle
	}
	s.masks = append(s.masks, m)
	s.chain = append(s.chain, next)
	s.buckets.Put(h, handle)
	return handle
}

func hashMask(m Mask) uint64 {
	var buf [maskWords * 8]byte
	for i, w := range m {
		binary.LittleEndian.PutUint64(buf[i*8:], w)
	}
	return xxhash.Sum64(buf[:])
}
