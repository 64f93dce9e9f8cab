package event

import (
	"math/bits"
	"strings"
)

// Mask is a set of kinds the dispatcher wants delivered.
type Mask uint64

// MaskOf builds a mask from the given kinds. Invalid kinds are ignored.
func MaskOf(kinds ...Kind) Mask {
	var m Mask
	for _, k := range kinds {
		m = m.With(k)
	}
	return m
}

// With returns m plus k.
func (m Mask) With(k Kind) Mask {
	if !k.Valid() {
		return m
	}
	return m | 1<<k
}

// Has reports whether k is in m.
func (m Mask) Has(k Kind) bool {
	return k.Valid() && m&(1<<k) != 0
}

// Len returns the number of kinds in m.
func (m Mask) Len() int {
	return bits.OnesCount64(uint64(m))
}

// Empty reports whether m holds no kinds.
func (m Mask) Empty() bool {
	return m == 0
}

// Kinds returns the members of m in catalog order.
func (m Mask) Kinds() []Kind {
	kinds := make([]Kind, 0, m.Len())
	for k := range NumKinds {
		if m.Has(k) {
			kinds = append(kinds, k)
		}
	}
	return kinds
}

// WireNames returns the host callback names of the members of m.
func (m Mask) WireNames() []string {
	names := make([]string, 0, m.Len())
	for _, k := range m.Kinds() {
		if w := k.WireName(); w != "" {
			names = append(names, w)
		}
	}
	return names
}

func (m Mask) String() string {
	names := make([]string, 0, m.Len())
	for _, k := range m.Kinds() {
		names = append(names, k.String())
	}
	return "{" + strings.Join(names, ", ") + "}"
}
