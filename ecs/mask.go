package ecs

import (
	"math/bits"
	"strconv"
	"strings"
)

const (
	maskWords   = 4
	bitsPerWord = 64

	// MaxComponentTypes is the number of distinct component types a registry can hold.
	MaxComponentTypes = maskWords * bitsPerWord
)

// Mask is a set of component types, one bit per ComponentType.
type Mask [maskWords]uint64

// MaskOf builds a mask from the given component types.
func MaskOf(types ...ComponentType) Mask {
	var m Mask
	for _, ct := range types {
		m[ct>>6] |= 1 << (ct & 63)
	}
	return m
}

// Has reports whether ct is in the mask.
func (m Mask) Has(ct ComponentType) bool {
	return m[ct>>6]&(1<<(ct&63)) != 0
}

// With returns a copy of the mask with ct set.
func (m Mask) With(ct ComponentType) Mask {
	m[ct>>6] |= 1 << (ct & 63)
	return m
}

// Without returns a copy of the mask with ct cleared.
func (m Mask) Without(ct ComponentType) Mask {
	m[ct>>6] &^= 1 << (ct & 63)
	return m
}

// Or returns the union of both masks.
func (m Mask) Or(o Mask) Mask {
	for i := range m {
		m[i] |= o[i]
	}
	return m
}

// Contains checks if every bit set in sub is also set in m.
func (m Mask) Contains(sub Mask) bool {
	return m[0]&sub[0] == sub[0] &&
		m[1]&sub[1] == sub[1] &&
		m[2]&sub[2] == sub[2] &&
		m[3]&sub[3] == sub[3]
}

// IsEmpty reports whether no bit is set.
func (m Mask) IsEmpty() bool {
	return m[0]|m[1]|m[2]|m[3] == 0
}

// Count returns the number of component types in the mask.
func (m Mask) Count() int {
	n := 0
	for _, w := range m {
		n += bits.OnesCount64(w)
	}
	return n
}

// Types returns the component types in the mask in ascending order.
func (m Mask) Types() []ComponentType {
	types := make([]ComponentType, 0, m.Count())
	for word, w := range m {
		for w != 0 {
			bit := bits.TrailingZeros64(w)
			types = append(types, ComponentType(word*bitsPerWord+bit))
			w &= w - 1
		}
	}
	return types
}

func (m Mask) String() string {
	types := m.Types()
	parts := make([]string, len(types))
	for i, ct := range types {
		parts[i] = strconv.Itoa(int(ct))
	}
	return "{" + strings.Join(parts, ",") + "}"
}
