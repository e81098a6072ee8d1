// Package provider implements the generation provider orchestration core:
// a static backend catalog, startup availability probing, capability
// filtering, model resolution, and sequential fallback dispatch across
// heterogeneous image/video generation backends.
package provider

// MediaKind distinguishes image from video generation.
type MediaKind string

const (
	MediaImage MediaKind = "image"
	MediaVideo MediaKind = "video"
)

// VideoMode selects the video generation mode.
type VideoMode string

const (
	VideoTextToVideo  VideoMode = "text-to-video"
	VideoImageToVideo VideoMode = "image-to-video"
	VideoInterpolate  VideoMode = "interpolate"
	VideoExtend       VideoMode = "extend"
)

// StyleAdapter references a LoRA-style supplementary model applied during
// generation. Only some backends can apply these.
type StyleAdapter struct {
	Path     string  `json:"path"`
	Strength float64 `json:"strength,omitempty"`
}

// GenerationRequest describes one logical generation call. Model is an
// abstract identifier; Engine is an explicit backend override.
type GenerationRequest struct {
	Prompt         string         `json:"prompt"`
	NegativePrompt string         `json:"negative_prompt,omitempty"`
	Width          int            `json:"width,omitempty"`
	Height         int            `json:"height,omitempty"`
	AspectRatio    string         `json:"aspect_ratio,omitempty"`
	Steps          int            `json:"steps,omitempty"`
	Guidance       float64        `json:"guidance,omitempty"`
	Seed           int64          `json:"seed,omitempty"`
	Model          string         `json:"model,omitempty"`
	Engine         string         `json:"engine,omitempty"`
	StyleAdapters  []StyleAdapter `json:"style_adapters,omitempty"`
	SourceImages   []string       `json:"source_images,omitempty"`
	Count          int            `json:"count,omitempty"`
	Sampler        string         `json:"sampler,omitempty"`
	Scheduler      string         `json:"scheduler,omitempty"`
	Mode           VideoMode      `json:"mode,omitempty"`
}

// EffectiveCount returns the requested output count, defaulting to 1.
func (r *GenerationRequest) EffectiveCount() int {
	if r.Count < 1 {
		return 1
	}
	return r.Count
}

// GenerationStatus is the lifecycle state of a generation.
type GenerationStatus string

const (
	StatusQueued    GenerationStatus = "queued"
	StatusRunning   GenerationStatus = "running"
	StatusSucceeded GenerationStatus = "succeeded"
	StatusFailed    GenerationStatus = "failed"
)

// Terminal reports whether the status is final.
func (s GenerationStatus) Terminal() bool {
	return s == StatusSucceeded || s == StatusFailed
}

// GenerationResult is the outcome of one generation call. For terminal
// states exactly one of Outputs or Error is populated.
type GenerationResult struct {
	ID       string           `json:"id"`
	Status   GenerationStatus `json:"status"`
	Outputs  []string         `json:"outputs,omitempty"`
	Error    string           `json:"error,omitempty"`
	Provider Kind             `json:"provider,omitempty"`
	Seed     int64            `json:"seed,omitempty"`
}

// Succeeded reports whether the result is a terminal success.
func (r *GenerationResult) Succeeded() bool {
	return r != nil && r.Status == StatusSucceeded
}
