package util

import (
	"bytes"
	"sync"
)

// Pool is a typed wrapper around sync.Pool.
type Pool[T any] struct {
	p     sync.Pool
	reset func(T)
}

// NewPool returns a pool that creates values with newFn.  reset, if
// non-nil, runs on every value handed back with Put.
func NewPool[T any](newFn func() T, reset func(T)) *Pool[T] {
	return &Pool[T]{
		p:     sync.Pool{New: func() any { return newFn() }},
		reset: reset,
	}
}

// Get returns a pooled value or a new one.
func (p *Pool[T]) Get() T { return p.p.Get().(T) }

// Put returns v to the pool.
func (p *Pool[T]) Put(v T) {
	if p.reset != nil {
		p.reset(v)
	}
	p.p.Put(v)
}

// copyBufs backs the relay copy loops.
var copyBufs = NewPool(func() *[]byte { //nolint:gochecknoglobals
	buf := make([]byte, DefaultBufSize)
	return &buf
}, nil)

// lineBufs backs LineHandler formatting.
var lineBufs = NewPool(func() *bytes.Buffer { //nolint:gochecknoglobals
	return new(bytes.Buffer)
}, (*bytes.Buffer).Reset)

// GetBuf retrieves a copy buffer.  Callers must return it with [PutBuf]
// when finished.
func GetBuf() *[]byte {
	return copyBufs.Get()
}

// PutBuf returns a buffer to the pool for reuse.
func PutBuf(buf *[]byte) {
	if buf == nil {
		return
	}
	copyBufs.Put(buf)
}
