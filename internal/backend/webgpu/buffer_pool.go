package webgpu

import (
	"math/bits"
	"sync"
)

const (
	minPoolClass = 256 // bytes
	maxPoolSize  = 16  // buffers kept per class
)

// releaser is a device buffer.
type releaser interface {
	Release()
}

type poolKey[U comparable] struct {
	class uint64
	usage U
}

// PoolStats counts buffer pool activity.
type PoolStats struct {
	Allocated uint64
	Released  uint64
	Hits      uint64
	Misses    uint64
	Pooled    int
}

// BufferPool recycles device buffers. Buffers are grouped by usage and by
// size class, a power of two no smaller than 256 bytes, so a released buffer
// serves any later request of the same class.
type BufferPool[B releaser, U comparable] struct {
	create func(size uint64, usage U) B

	mu    sync.Mutex
	free  map[poolKey[U]][]B
	stats PoolStats
}

// NewBufferPool returns an empty pool allocating through create.
func NewBufferPool[B releaser, U comparable](create func(size uint64, usage U) B) *BufferPool[B, U] {
	return &BufferPool[B, U]{create: create, free: make(map[poolKey[U]][]B)}
}

// Acquire returns a buffer of at least size bytes with the given usage and
// the size it was allocated with, which must be passed back to Release.
func (p *BufferPool[B, U]) Acquire(size uint64, usage U) (B, uint64) {
	key := poolKey[U]{class: sizeClass(size), usage: usage}

	p.mu.Lock()
	defer p.mu.Unlock()
	if free := p.free[key]; len(free) > 0 {
		buf := free[len(free)-1]
		p.free[key] = free[:len(free)-1]
		p.stats.Hits++
		return buf, key.class
	}
	p.stats.Misses++
	p.stats.Allocated++
	return p.create(key.class, usage), key.class
}

// Release returns buf to the pool, or releases it when its class is full.
func (p *BufferPool[B, U]) Release(buf B, class uint64, usage U) {
	key := poolKey[U]{class: class, usage: usage}

	p.mu.Lock()
	defer p.mu.Unlock()
	p.stats.Released++
	if len(p.free[key]) >= maxPoolSize {
		buf.Release()
		return
	}
	p.free[key] = append(p.free[key], buf)
}

// Clear releases every pooled buffer.
func (p *BufferPool[B, U]) Clear() {
	p.mu.Lock()
	defer p.mu.Unlock()
	for key, free := range p.free {
		for _, buf := range free {
			buf.Release()
		}
		delete(p.free, key)
	}
}

// Stats returns the pool counters.
func (p *BufferPool[B, U]) Stats() PoolStats {
	p.mu.Lock()
	defer p.mu.Unlock()
	s := p.stats
	for _, free := range p.free {
		s.Pooled += len(free)
	}
	return s
}

func sizeClass(size uint64) uint64 {
	if size <= minPoolClass {
		return minPoolClass
	}
	return 1 << bits.Len64(size-1)
}
