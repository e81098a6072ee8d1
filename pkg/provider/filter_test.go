package provider

import (
	"testing"

	vberrors "github.com/mattyatplay-coder/vibeboard/pkg/errors"
)

func TestFilterPassesThroughWithoutStyleAdapters(t *testing.T) {
	candidates := candidatesOf(KindComfy, KindFal, KindOpenAI)
	out, err := FilterCandidates(candidates, &GenerationRequest{Prompt: "x"}, MediaImage)
	if err != nil {
		t.Fatalf("FilterCandidates() error = %v", err)
	}
	if len(out) != 3 {
		t.Fatalf("filtered %d candidates, want 3", len(out))
	}
}

func TestFilterNarrowsToStyleAdapterCapable(t *testing.T) {
	candidates := candidatesOf(KindComfy, KindFal, KindReplicate, KindOpenAI)
	req := &GenerationRequest{StyleAdapters: []StyleAdapter{{Path: "style.safetensors"}}}
	out, err := FilterCandidates(candidates, req, MediaImage)
	if err != nil {
		t.Fatalf("FilterCandidates() error = %v", err)
	}
	if len(out) != 2 {
		t.Fatalf("filtered %d candidates, want 2 (comfy, replicate)", len(out))
	}
	for _, ub := range out {
		if !ub.Descriptor.SupportsStyleAdapters {
			t.Errorf("%s passed the filter without style adapter support", ub.Descriptor.Kind)
		}
	}
}

func TestFilterFailsFastWhenNoStyleAdapterCapable(t *testing.T) {
	candidates := candidatesOf(KindFal, KindOpenAI)
	req := &GenerationRequest{StyleAdapters: []StyleAdapter{{Path: "style.safetensors"}}}
	_, err := FilterCandidates(candidates, req, MediaImage)
	if err == nil {
		t.Fatal("expected capability error")
	}
	if !vberrors.IsCode(err, vberrors.ErrCodeCapabilityUnavailable) {
		t.Errorf("error code = %v, want capability-unavailable", vberrors.GetCode(err))
	}
}

func TestFilterDropsMediaIncapableBackends(t *testing.T) {
	candidates := candidatesOf(KindComfy, KindOpenAI, KindRunway)

	out, err := FilterCandidates(candidates, &GenerationRequest{Mode: VideoTextToVideo}, MediaVideo)
	if err != nil {
		t.Fatalf("FilterCandidates() error = %v", err)
	}
	for _, ub := range out {
		if ub.Descriptor.Kind == KindOpenAI {
			t.Error("image-only backend survived video filtering")
		}
	}

	out, err = FilterCandidates(candidates, &GenerationRequest{}, MediaImage)
	if err != nil {
		t.Fatalf("FilterCandidates() error = %v", err)
	}
	for _, ub := range out {
		if ub.Descriptor.Kind == KindRunway {
			t.Error("video-only backend survived image filtering")
		}
	}
}

func TestMediaKindOf(t *testing.T) {
	if got := mediaKindOf(&GenerationRequest{}); got != MediaImage {
		t.Errorf("mediaKindOf(no mode) = %s, want image", got)
	}
	if got := mediaKindOf(&GenerationRequest{Mode: VideoImageToVideo}); got != MediaVideo {
		t.Errorf("mediaKindOf(image-to-video) = %s, want video", got)
	}
}
