// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

// Package vision bridges the synchronous per-frame pipeline with an
// externally supplied asynchronous inference provider. The bridge owns a
// short-TTL cache per consumer and blocks the pipeline with a bounded
// timeout instead of skipping a frame of AI-driven effects.
package vision

import (
	"context"
	"fmt"

	"github.com/gogpu/framefx/device"
)

// Point is a normalized [0,1] frame coordinate.
type Point struct {
	X, Y float32
}

// FaceObservation is one detected face in normalized frame coordinates.
type FaceObservation struct {
	// Rect is the face bounding box.
	Rect device.FaceRect

	// Confidence is the detector's score in [0,1].
	Confidence float32

	// Landmarks holds optional facial landmarks, present only when the
	// detection was requested with landmarks.
	Landmarks []Point
}

// SegmentationQuality selects the person segmenter's speed/quality point.
type SegmentationQuality int

const (
	// QualityFast prefers latency over mask fidelity.
	QualityFast SegmentationQuality = iota

	// QualityBalanced is the default trade-off.
	QualityBalanced

	// QualityAccurate prefers mask fidelity over latency.
	QualityAccurate
)

// String returns the string representation of SegmentationQuality.
func (q SegmentationQuality) String() string {
	switch q {
	case QualityFast:
		return "Fast"
	case QualityBalanced:
		return "Balanced"
	case QualityAccurate:
		return "Accurate"
	default:
		return fmt.Sprintf("Unknown(%d)", int(q))
	}
}

// SegmentationResult is a single-channel "is person" mask. The mask may be
// produced at a lower resolution than the frame; Resample scales it up.
type SegmentationResult struct {
	// Mask holds Width*Height coverage values in [0,1], scanline order.
	Mask []float32

	// Width and Height are the mask dimensions.
	Width  int
	Height int
}

// Empty reports whether the result carries no mask.
func (r SegmentationResult) Empty() bool {
	return len(r.Mask) == 0 || r.Width <= 0 || r.Height <= 0
}

// Resample returns the mask scaled to w x h with bilinear filtering.
// An empty result yields an all-zero mask.
func (r SegmentationResult) Resample(w, h int) []float32 {
	out := make([]float32, w*h)
	if r.Empty() {
		return out
	}

	sx := float32(r.Width) / float32(w)
	sy := float32(r.Height) / float32(h)

	for y := 0; y < h; y++ {
		fy := (float32(y)+0.5)*sy - 0.5
		y0 := int(fy)
		if y0 < 0 {
			y0 = 0
		}
		y1 := y0 + 1
		if y1 >= r.Height {
			y1 = r.Height - 1
		}
		ty := fy - float32(y0)
		if ty < 0 {
			ty = 0
		}

		for x := 0; x < w; x++ {
			fx := (float32(x)+0.5)*sx - 0.5
			x0 := int(fx)
			if x0 < 0 {
				x0 = 0
			}
			x1 := x0 + 1
			if x1 >= r.Width {
				x1 = r.Width - 1
			}
			tx := fx - float32(x0)
			if tx < 0 {
				tx = 0
			}

			top := r.Mask[y0*r.Width+x0] + (r.Mask[y0*r.Width+x1]-r.Mask[y0*r.Width+x0])*tx
			bot := r.Mask[y1*r.Width+x0] + (r.Mask[y1*r.Width+x1]-r.Mask[y1*r.Width+x0])*tx
			out[y*w+x] = top + (bot-top)*ty
		}
	}
	return out
}

// FaceDetector is the external face detection provider. Implementations
// run inference on their own schedule; the bridge blocks on the result
// with a bounded timeout and never cancels an in-flight request.
type FaceDetector interface {
	DetectFaces(ctx context.Context, frame device.Buffer, wantLandmarks bool) ([]FaceObservation, error)
}

// PersonSegmenter is the external person segmentation provider.
type PersonSegmenter interface {
	SegmentPeople(ctx context.Context, frame device.Buffer, quality SegmentationQuality) (SegmentationResult, error)
}

// FaceRects converts observations to mask-generation rects, expanding each
// box by the given fraction so the elliptical mask covers hairline and
// chin. Boxes are clamped to the frame.
func FaceRects(obs []FaceObservation, expand float32) []device.FaceRect {
	rects := make([]device.FaceRect, 0, len(obs))
	for _, o := range obs {
		r := o.Rect
		dw := r.W * expand
		dh := r.H * expand
		r.X -= dw / 2
		r.Y -= dh / 2
		r.W += dw
		r.H += dh

		if r.X < 0 {
			r.W += r.X
			r.X = 0
		}
		if r.Y < 0 {
			r.H += r.Y
			r.Y = 0
		}
		if r.X+r.W > 1 {
			r.W = 1 - r.X
		}
		if r.Y+r.H > 1 {
			r.H = 1 - r.Y
		}
		if r.W > 0 && r.H > 0 {
			rects = append(rects, r)
		}
	}
	return rects
}
