package webgpu

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

type fakeBuffer struct {
	size     uint64
	released bool
}

func (b *fakeBuffer) Release() { b.released = true }

func newFakePool() *BufferPool[*fakeBuffer, string] {
	return NewBufferPool(func(size uint64, _ string) *fakeBuffer {
		return &fakeBuffer{size: size}
	})
}

func TestSizeClass(t *testing.T) {
	for size, want := range map[uint64]uint64{
		0:       256,
		1:       256,
		256:     256,
		257:     512,
		1000:    1024,
		1024:    1024,
		1 << 20: 1 << 20,
	} {
		assert.Equal(t, want, sizeClass(size), "size %d", size)
	}
}

func TestBufferPoolReuse(t *testing.T) {
	pool := newFakePool()

	buf, class := pool.Acquire(1000, "storage")
	assert.Equal(t, uint64(1024), class)
	assert.Equal(t, uint64(1024), buf.size)
	assert.Equal(t, PoolStats{Allocated: 1, Misses: 1}, pool.Stats())

	pool.Release(buf, class, "storage")
	assert.Equal(t, 1, pool.Stats().Pooled)
	assert.False(t, buf.released)

	// Same class, same usage: reused.
	again, _ := pool.Acquire(700, "storage")
	assert.Same(t, buf, again)
	assert.Equal(t, uint64(1), pool.Stats().Hits)

	// Other usage: allocated.
	pool.Release(again, class, "storage")
	other, _ := pool.Acquire(700, "staging")
	assert.NotSame(t, buf, other)
	assert.Equal(t, PoolStats{Allocated: 2, Released: 2, Hits: 1, Misses: 2, Pooled: 1}, pool.Stats())
}

func TestBufferPoolFullClassReleases(t *testing.T) {
	pool := newFakePool()
	bufs := make([]*fakeBuffer, maxPoolSize+1)
	for i := range bufs {
		bufs[i], _ = pool.Acquire(64, "storage")
	}
	for _, b := range bufs {
		pool.Release(b, minPoolClass, "storage")
	}
	assert.Equal(t, maxPoolSize, pool.Stats().Pooled)
	assert.True(t, bufs[maxPoolSize].released)

	pool.Clear()
	assert.Zero(t, pool.Stats().Pooled)
	for _, b := range bufs {
		assert.True(t, b.released)
	}
}
