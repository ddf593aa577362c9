// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

// Package pool provides a keyed freelist of device buffers. Acquiring with
// a descriptor equal to one of a previously released buffer reuses that
// buffer instead of allocating; shapes never change in place.
package pool

import (
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"

	"github.com/gogpu/framefx/device"
)

// Pool is a keyed freelist of device buffers.
//
// Pool is safe for concurrent use, but the buffers it hands out follow the
// single-stream-per-frame discipline: a buffer must be acquired before use
// and released exactly once after its last read in the stream. Releasing a
// buffer a later stage still reads is prevented by pipeline ordering, not
// by the pool.
type Pool struct {
	dev    device.Device
	logger *slog.Logger

	mu    sync.Mutex
	free  map[device.Descriptor][]device.Buffer
	inUse map[device.Buffer]struct{}

	hits   atomic.Uint64
	misses atomic.Uint64
}

// Option configures a Pool.
type Option func(*Pool)

// WithLogger sets the logger used for pool diagnostics. The default
// discards all output.
func WithLogger(l *slog.Logger) Option {
	return func(p *Pool) {
		if l != nil {
			p.logger = l
		}
	}
}

// New creates a pool allocating from dev.
func New(dev device.Device, opts ...Option) *Pool {
	p := &Pool{
		dev:    dev,
		logger: slog.New(slog.DiscardHandler),
		free:   make(map[device.Descriptor][]device.Buffer),
		inUse:  make(map[device.Buffer]struct{}),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Acquire returns a free buffer matching the descriptor, allocating a new
// one when none is free. Callers treat an error as "effect skipped, pass
// through unchanged"; it is never fatal to the frame.
func (p *Pool) Acquire(desc device.Descriptor) (device.Buffer, error) {
	p.mu.Lock()
	if list := p.free[desc]; len(list) > 0 {
		b := list[len(list)-1]
		p.free[desc] = list[:len(list)-1]
		p.inUse[b] = struct{}{}
		p.mu.Unlock()
		p.hits.Add(1)
		return b, nil
	}
	p.mu.Unlock()

	p.misses.Add(1)
	label := fmt.Sprintf("pool_%dx%d_%d", desc.Width, desc.Height, desc.Format)
	b, err := p.dev.CreateBuffer(desc, label)
	if err != nil {
		return nil, fmt.Errorf("pool: acquire %dx%d: %w", desc.Width, desc.Height, err)
	}

	p.mu.Lock()
	p.inUse[b] = struct{}{}
	p.mu.Unlock()

	p.logger.Debug("pool: allocated buffer",
		"width", desc.Width, "height", desc.Height, "format", desc.Format)
	return b, nil
}

// Release returns a buffer to the freelist. Releasing a buffer the pool
// does not consider in use (double release, or a caller-owned buffer) is
// ignored with a warning.
func (p *Pool) Release(b device.Buffer) {
	if b == nil {
		return
	}

	p.mu.Lock()
	if _, ok := p.inUse[b]; !ok {
		p.mu.Unlock()
		p.logger.Warn("pool: release of buffer not in use", "label", b.Label())
		return
	}
	delete(p.inUse, b)
	desc := b.Descriptor()
	p.free[desc] = append(p.free[desc], b)
	p.mu.Unlock()
}

// Drain destroys every free buffer. In-use buffers are unaffected.
func (p *Pool) Drain() {
	p.mu.Lock()
	free := p.free
	p.free = make(map[device.Descriptor][]device.Buffer)
	p.mu.Unlock()

	for _, list := range free {
		for _, b := range list {
			p.dev.DestroyBuffer(b)
		}
	}
}

// Stats reports pool counters.
type Stats struct {
	// Hits is the number of acquisitions served from the freelist.
	Hits uint64

	// Misses is the number of acquisitions that allocated.
	Misses uint64

	// InUse is the number of currently acquired buffers.
	InUse int

	// Free is the number of buffers parked in the freelist.
	Free int
}

// Stats returns current pool counters.
func (p *Pool) Stats() Stats {
	p.mu.Lock()
	free := 0
	for _, list := range p.free {
		free += len(list)
	}
	inUse := len(p.inUse)
	p.mu.Unlock()

	return Stats{
		Hits:   p.hits.Load(),
		Misses: p.misses.Load(),
		InUse:  inUse,
		Free:   free,
	}
}
