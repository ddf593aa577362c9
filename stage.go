// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package framefx

// Stage identifies one pipeline stage in the fixed processing order.
type Stage int

// Pipeline stages, in execution order.
const (
	StageLens Stage = iota
	StageFaceEnhance
	StageBackgroundBlur
	StageBloom
	StageHalation
	StageAnamorphic
	StageDispersion
	StageLightLeak
	StageDiffusion
	StageToneMap
	StageLUT
	StageVignette
	StageGrain

	stageCount
)

// String returns the stage name.
func (s Stage) String() string {
	switch s {
	case StageLens:
		return "lens"
	case StageFaceEnhance:
		return "face_enhance"
	case StageBackgroundBlur:
		return "background_blur"
	case StageBloom:
		return "bloom"
	case StageHalation:
		return "halation"
	case StageAnamorphic:
		return "anamorphic"
	case StageDispersion:
		return "dispersion"
	case StageLightLeak:
		return "light_leak"
	case StageDiffusion:
		return "diffusion"
	case StageToneMap:
		return "tone_map"
	case StageLUT:
		return "lut"
	case StageVignette:
		return "vignette"
	case StageGrain:
		return "grain"
	default:
		return "unknown"
	}
}

// StageStatus reports what happened to a stage during one frame.
type StageStatus int

const (
	// StageSkipped means the stage passed the frame through unchanged.
	StageSkipped StageStatus = iota

	// StageApplied means the stage ran and advanced the current buffer.
	StageApplied
)

// String returns the status name.
func (s StageStatus) String() string {
	if s == StageApplied {
		return "applied"
	}
	return "skipped"
}

// StageResult records the outcome of one stage for one frame. For a
// skipped stage, Reason names the cause (disabled effect, zero intensity,
// kernel unavailable, allocation failure, empty inference result). An
// applied stage normally has an empty Reason; it is non-empty when an
// optional sub-step of the stage was skipped.
type StageResult struct {
	Stage  Stage
	Status StageStatus
	Reason string
}

// Report collects the per-stage outcomes of one Process call. Stages
// appear in execution order.
type Report struct {
	Stages []StageResult
}

// Applied reports whether the given stage ran during the frame.
func (r *Report) Applied(s Stage) bool {
	for _, sr := range r.Stages {
		if sr.Stage == s {
			return sr.Status == StageApplied
		}
	}
	return false
}

// Result returns the recorded outcome for a stage, if present.
func (r *Report) Result(s Stage) (StageResult, bool) {
	for _, sr := range r.Stages {
		if sr.Stage == s {
			return sr, true
		}
	}
	return StageResult{}, false
}

func (r *Report) record(s Stage, status StageStatus, reason string) {
	r.Stages = append(r.Stages, StageResult{Stage: s, Status: status, Reason: reason})
}

// annotate adds a note to an already recorded stage, used when an applied
// stage skips an optional sub-step.
func (r *Report) annotate(s Stage, note string) {
	for i := range r.Stages {
		if r.Stages[i].Stage != s {
			continue
		}
		if r.Stages[i].Reason == "" {
			r.Stages[i].Reason = note
		} else {
			r.Stages[i].Reason += "; " + note
		}
		return
	}
}
