// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package vision

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/gogpu/framefx/cache"
	"github.com/gogpu/framefx/device"
)

// Default bridge timing. Face positions move quickly, so their cache
// window is short; segmentation masks change slowly and tolerate a longer
// one. The wait timeout bounds how long a frame can stall on inference.
const (
	DefaultFaceTTL     = 100 * time.Millisecond
	DefaultSegmentTTL  = 500 * time.Millisecond
	DefaultWaitTimeout = 200 * time.Millisecond
	DefaultMaskFeather = 0.35
	DefaultRectExpand  = 0.25
)

// Bridge reconciles the asynchronous inference providers with the
// synchronous per-frame pipeline.
//
// On each request the bridge returns a valid cached result without
// contacting the provider. Otherwise it starts (or joins) a single
// in-flight provider call and blocks the calling frame until the call
// completes or the wait timeout elapses. On timeout or provider failure it
// falls back to the previous, now stale, result if one exists, else an
// empty no-effect result. An in-flight call is never cancelled; a late
// result refreshes the cache for the next frame.
//
// A Bridge instance persists across pipeline invocations. It is safe for
// concurrent use, though per-frame callers are expected to be serialized
// by the pipeline itself.
type Bridge struct {
	detector  FaceDetector
	segmenter PersonSegmenter
	timeout   time.Duration
	logger    *slog.Logger
	now       func() time.Time

	faces *consumer[[]FaceObservation]
	seg   *consumer[SegmentationResult]
}

// BridgeOption configures a Bridge.
type BridgeOption func(*Bridge)

// WithTimeout sets the bounded wait applied while blocking on inference.
func WithTimeout(d time.Duration) BridgeOption {
	return func(b *Bridge) {
		if d > 0 {
			b.timeout = d
		}
	}
}

// WithFaceTTL sets the face cache validity window.
func WithFaceTTL(d time.Duration) BridgeOption {
	return func(b *Bridge) {
		if d > 0 {
			b.faces.cache = cache.NewTTL[[]FaceObservation](d)
		}
	}
}

// WithSegmentTTL sets the segmentation cache validity window.
func WithSegmentTTL(d time.Duration) BridgeOption {
	return func(b *Bridge) {
		if d > 0 {
			b.seg.cache = cache.NewTTL[SegmentationResult](d)
		}
	}
}

// WithBridgeLogger sets the bridge logger. The default discards output.
func WithBridgeLogger(l *slog.Logger) BridgeOption {
	return func(b *Bridge) {
		if l != nil {
			b.logger = l
		}
	}
}

// WithClock overrides the bridge's time source. Intended for tests.
func WithClock(now func() time.Time) BridgeOption {
	return func(b *Bridge) {
		if now != nil {
			b.now = now
		}
	}
}

// NewBridge creates a bridge over the given providers. Either provider may
// be nil, in which case its consumer always reports an empty result.
func NewBridge(detector FaceDetector, segmenter PersonSegmenter, opts ...BridgeOption) *Bridge {
	b := &Bridge{
		detector:  detector,
		segmenter: segmenter,
		timeout:   DefaultWaitTimeout,
		logger:    slog.New(slog.DiscardHandler),
		now:       time.Now,
		faces:     &consumer[[]FaceObservation]{cache: cache.NewTTL[[]FaceObservation](DefaultFaceTTL)},
		seg:       &consumer[SegmentationResult]{cache: cache.NewTTL[SegmentationResult](DefaultSegmentTTL)},
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// Faces returns the face observations for the frame, consulting the cache
// first and blocking on the detector for at most the bridge timeout.
// A nil detector or total miss yields an empty slice.
func (b *Bridge) Faces(frame device.Buffer, wantLandmarks bool) []FaceObservation {
	if b.detector == nil {
		return nil
	}
	return resolve(b, b.faces, "faces", func(ctx context.Context) ([]FaceObservation, error) {
		return b.detector.DetectFaces(ctx, frame, wantLandmarks)
	})
}

// Segmentation returns the person mask for the frame under the same cache
// and timeout rules as Faces.
func (b *Bridge) Segmentation(frame device.Buffer, quality SegmentationQuality) SegmentationResult {
	if b.segmenter == nil {
		return SegmentationResult{}
	}
	return resolve(b, b.seg, "segmentation", func(ctx context.Context) (SegmentationResult, error) {
		return b.segmenter.SegmentPeople(ctx, frame, quality)
	})
}

// Clear discards both caches. In-flight requests are unaffected and will
// repopulate the caches when they complete.
func (b *Bridge) Clear() {
	b.faces.cache.Clear()
	b.seg.cache.Clear()
}

// consumer tracks one cache slot and its single in-flight provider call.
type consumer[V any] struct {
	cache *cache.TTL[V]

	mu      sync.Mutex
	pending *flight[V]
}

// flight is one provider call in progress.
type flight[V any] struct {
	done chan struct{}
	val  V
	err  error
}

// resolve implements the bridge state machine for one consumer:
// {no cache, valid cache, expired cache, pending} per spec of the
// provider contract. Generic standalone function because methods cannot
// introduce type parameters.
func resolve[V any](b *Bridge, c *consumer[V], what string, invoke func(context.Context) (V, error)) V {
	if v, st := c.cache.Get(b.now()); st == cache.StateValid {
		return v
	}

	// Join the in-flight call if one exists, else start it. The call gets
	// a background context: timing out the wait must not cancel inference,
	// the late result still feeds the next frame.
	c.mu.Lock()
	f := c.pending
	if f == nil {
		f = &flight[V]{done: make(chan struct{})}
		c.pending = f
		go func() {
			f.val, f.err = invoke(context.Background())
			if f.err == nil {
				c.cache.Put(f.val, b.now())
			}
			c.mu.Lock()
			if c.pending == f {
				c.pending = nil
			}
			c.mu.Unlock()
			close(f.done)
		}()
	}
	c.mu.Unlock()

	timer := time.NewTimer(b.timeout)
	defer timer.Stop()

	select {
	case <-f.done:
		if f.err == nil {
			return f.val
		}
		b.logger.Warn("vision: provider failed, using fallback", "consumer", what, "err", f.err)
	case <-timer.C:
		b.logger.Warn("vision: inference wait timed out, using fallback",
			"consumer", what, "timeout", b.timeout)
	}

	// Stale-or-empty fallback.
	if v, st := c.cache.Get(b.now()); st != cache.StateEmpty {
		return v
	}
	var zero V
	return zero
}
