// Package pool provides a wrapper around sync.Pool with added metrics.
package pool

import (
	"sync"

	"github.com/linchenxuan/strixwire/metrics"
)

// Pool is a wrapper around sync.Pool that counts objects created because the pool was empty.
type Pool struct {
	Name string     // Name is the name of the pool, used as a dimension in metrics.
	Pool *sync.Pool // Pool is the underlying sync.Pool instance.
}

// NewPool creates a new instrumented pool.
func NewPool(name string, newFunc func() any) *Pool {
	p := &Pool{
		Name: name,
	}

	p.Pool = &sync.Pool{
		New: func() any {
			metrics.IncrCounterWithDimGroup(metrics.NamePoolCreateTotal, metrics.GroupWire, 1, metrics.Dimension{
				metrics.DimPoolName: name,
			})
			return newFunc()
		},
	}
	return p
}

// Put adds x back to the pool for reuse.
func (p *Pool) Put(x any) {
	p.Pool.Put(x)
}

// Get retrieves an item from the pool, creating one if the pool is empty.
func (p *Pool) Get() any {
	return p.Pool.Get()
}

// BufferPool recycles byte slices used as encode scratch space.
type BufferPool struct {
	pool   *Pool
	maxCap int
}

// NewBufferPool creates a pool of buffers with initCap capacity. Buffers that
// grew beyond maxCap are dropped on Put instead of being kept alive.
func NewBufferPool(name string, initCap, maxCap int) *BufferPool {
	return &BufferPool{
		pool: NewPool(name, func() any {
			b := make([]byte, 0, initCap)
			return &b
		}),
		maxCap: maxCap,
	}
}

// Get returns an empty buffer.
func (b *BufferPool) Get() *[]byte {
	buf := b.pool.Get().(*[]byte)
	*buf = (*buf)[:0]
	return buf
}

// Put returns buf to the pool. buf must not be used afterwards.
func (b *BufferPool) Put(buf *[]byte) {
	if buf == nil || cap(*buf) > b.maxCap {
		return
	}
	b.pool.Put(buf)
}
