package roomlog

import (
	"sync"

	"github.com/segmentio/fasthash/fnv1a"
)

const lockStripes = 64

// Locks serialises work per room with a fixed set of striped mutexes.
type Locks struct {
	stripes [lockStripes]sync.Mutex
}

// Lock locks the stripe of room and returns its unlock function.
func (l *Locks) Lock(room string) func() {
	m := &l.stripes[fnv1a.HashString32(room)%lockStripes]
	m.Lock()
	return m.Unlock
}
