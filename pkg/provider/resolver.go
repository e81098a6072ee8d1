package provider

import (
	"strings"

	"github.com/mattyatplay-coder/vibeboard/pkg/logging"
)

// Resolver maps abstract model identifiers to backends and normalizes
// identifiers into backend-native form.
type Resolver struct {
	logger *logging.Logger
}

// NewResolver creates a resolver. The logger may be nil.
func NewResolver(logger *logging.Logger) *Resolver {
	return &Resolver{logger: logger}
}

// Resolve maps an abstract model id to a backend kind, restricted to the
// given candidate set. Route-table hits pointing at a backend outside the
// candidates return no preference (logged, not an error). Unmapped ids fall
// back to a verbatim scan of the candidates' advertised model lists. A miss
// means: try candidates in default order with per-candidate normalization.
func (rs *Resolver) Resolve(modelID string, media MediaKind, candidates []UsableBackend) (Kind, bool) {
	if modelID == "" {
		return "", false
	}

	if kind, ok := RouteFor(modelID); ok {
		for _, ub := range candidates {
			if ub.Descriptor.Kind == kind {
				return kind, true
			}
		}
		if rs.logger != nil {
			rs.logger.Info(logging.CategoryProvider, "route_excluded",
				"preferred provider for model not in candidate set",
				map[string]any{"model": modelID, "provider": string(kind)})
		}
		return "", false
	}

	for _, ub := range candidates {
		if ub.Descriptor.HasModel(modelID, media) {
			return ub.Descriptor.Kind, true
		}
	}

	return "", false
}

// Normalize converts an abstract model id into the given backend's native
// identifier. Ids the backend already advertises are returned unchanged.
// Unrecognized ids return ("", false), meaning: use the backend's default.
// Pure and total so it can be table-tested exhaustively.
func Normalize(modelID string, kind Kind, media MediaKind) (string, bool) {
	if modelID == "" {
		return "", false
	}

	desc, ok := DescriptorFor(kind)
	if !ok {
		return "", false
	}

	if desc.HasModel(modelID, media) {
		return modelID, true
	}

	lower := strings.ToLower(modelID)

	switch kind {
	case KindComfy:
		return normalizeComfy(lower, media)
	case KindFal:
		return normalizeFal(lower, media)
	case KindReplicate:
		return normalizeReplicate(lower, media)
	case KindOpenAI:
		return normalizeOpenAI(lower)
	case KindRunway:
		return normalizeRunway(lower)
	}

	return "", false
}

func normalizeComfy(id string, media MediaKind) (string, bool) {
	if media == MediaVideo {
		switch {
		case strings.Contains(id, "wan"):
			return "wan2.2_t2v_14B.safetensors", true
		case strings.Contains(id, "svd"):
			return "svd_xt.safetensors", true
		}
		return "", false
	}
	switch {
	case strings.Contains(id, "fill") || strings.Contains(id, "inpaint"):
		return "flux-fill-dev.safetensors", true
	case strings.Contains(id, "flux"):
		return "flux1-dev.safetensors", true
	case strings.Contains(id, "xl"):
		return "sd_xl_base_1.0.safetensors", true
	case strings.Contains(id, "sd") || strings.Contains(id, "1.5"):
		return "v1-5-pruned-emaonly.safetensors", true
	}
	return "", false
}

func normalizeFal(id string, media MediaKind) (string, bool) {
	if media == MediaVideo {
		switch {
		case strings.Contains(id, "kling"):
			return "fal-ai/kling-video/v2/master", true
		case strings.Contains(id, "minimax"):
			return "fal-ai/minimax-video", true
		}
		return "", false
	}
	switch {
	case strings.Contains(id, "schnell"):
		return "fal-ai/flux/schnell", true
	case strings.Contains(id, "flux"):
		return "fal-ai/flux/dev", true
	case strings.Contains(id, "sdxl") || strings.Contains(id, "xl"):
		return "fal-ai/fast-sdxl", true
	}
	return "", false
}

func normalizeReplicate(id string, media MediaKind) (string, bool) {
	if media == MediaVideo {
		if strings.Contains(id, "minimax") || strings.Contains(id, "video-01") {
			return "minimax/video-01", true
		}
		return "", false
	}
	switch {
	case strings.Contains(id, "schnell"):
		return "black-forest-labs/flux-schnell", true
	case strings.Contains(id, "flux"):
		return "black-forest-labs/flux-dev", true
	case strings.Contains(id, "sdxl") || strings.Contains(id, "xl"):
		return "stability-ai/sdxl", true
	}
	return "", false
}

func normalizeOpenAI(id string) (string, bool) {
	switch {
	case strings.Contains(id, "dall-e") || strings.Contains(id, "dalle"):
		return "dall-e-3", true
	case strings.Contains(id, "gpt-image") || strings.Contains(id, "gpt image"):
		return "gpt-image-1", true
	}
	return "", false
}

func normalizeRunway(id string) (string, bool) {
	switch {
	case strings.Contains(id, "gen4") || strings.Contains(id, "gen-4"):
		return "gen4_turbo", true
	case strings.Contains(id, "gen3") || strings.Contains(id, "gen-3"):
		return "gen3a_turbo", true
	}
	return "", false
}
