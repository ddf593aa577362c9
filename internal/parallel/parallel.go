// Copyright 2026 The gogpu Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package parallel splits per-row image work across a shared pool of
// worker goroutines. The CPU kernels operate row by row with no
// cross-row dependencies, so row ranges can be chunked freely.
package parallel

import (
	"runtime"
	"sync"
	"sync/atomic"
)

// serialCutoff is the row count below which work runs on the calling
// goroutine. Small frames and the deep mips of a pyramid are cheaper
// to process inline than to schedule.
const serialCutoff = 64

// minChunk is the smallest row range handed to a worker.
const minChunk = 16

// job is one contiguous row range plus the completion group for the
// Rows call that produced it.
type job struct {
	y0, y1 int
	fn     func(y0, y1 int)
	wg     *sync.WaitGroup
}

// Pool runs row-range jobs on a fixed set of worker goroutines.
//
// Thread safety: Pool is safe for concurrent use. Concurrent Rows
// calls interleave their chunks on the same workers.
type Pool struct {
	workers int
	jobs    chan job
	running atomic.Bool
	wg      sync.WaitGroup
}

// NewPool creates a pool with the given number of workers. If workers
// is zero or negative, GOMAXPROCS is used. Workers start immediately.
func NewPool(workers int) *Pool {
	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}

	p := &Pool{
		workers: workers,
		jobs:    make(chan job, workers*4),
	}
	p.running.Store(true)

	p.wg.Add(workers)
	for i := 0; i < workers; i++ {
		go p.worker()
	}
	return p
}

func (p *Pool) worker() {
	defer p.wg.Done()
	for j := range p.jobs {
		j.fn(j.y0, j.y1)
		j.wg.Done()
	}
}

// Rows splits [0, h) into chunks, runs fn on each chunk across the
// workers and waits for all chunks to finish. fn must not touch rows
// outside its range. Small row counts run inline on the caller.
func (p *Pool) Rows(h int, fn func(y0, y1 int)) {
	if h <= 0 {
		return
	}
	if h < serialCutoff || p.workers == 1 || !p.running.Load() {
		fn(0, h)
		return
	}

	chunk := (h + p.workers*4 - 1) / (p.workers * 4)
	if chunk < minChunk {
		chunk = minChunk
	}

	var wg sync.WaitGroup
	for y0 := 0; y0 < h; y0 += chunk {
		y1 := y0 + chunk
		if y1 > h {
			y1 = h
		}
		wg.Add(1)
		p.jobs <- job{y0: y0, y1: y1, fn: fn, wg: &wg}
	}
	wg.Wait()
}

// Workers returns the number of worker goroutines.
func (p *Pool) Workers() int {
	return p.workers
}

// Close stops the workers after any queued jobs finish. After Close,
// Rows runs its work inline. Close is safe to call multiple times.
func (p *Pool) Close() {
	if !p.running.CompareAndSwap(true, false) {
		return
	}
	close(p.jobs)
	p.wg.Wait()
}

// shared is the process-wide pool used by the kernels.
var shared = NewPool(0)

// Rows runs fn over [0, h) on the shared pool.
func Rows(h int, fn func(y0, y1 int)) {
	shared.Rows(h, fn)
}
