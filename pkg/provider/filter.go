package provider

import (
	vberrors "github.com/mattyatplay-coder/vibeboard/pkg/errors"
)

// mediaKindOf derives the media kind a request targets.
func mediaKindOf(req *GenerationRequest) MediaKind {
	if req.Mode != "" {
		return MediaVideo
	}
	return MediaImage
}

// FilterCandidates narrows the candidate list to backends that can legally
// serve the request. Rules apply in fixed order: style-adapter capability
// first, then media-kind support. An empty result after the style-adapter
// rule is an error — the dispatcher must fail fast rather than silently
// falling through to unfiltered candidates. Explicit overrides are the
// dispatcher's concern, not handled here, so this stays pure and
// independently testable.
func FilterCandidates(candidates []UsableBackend, req *GenerationRequest, media MediaKind) ([]UsableBackend, error) {
	if len(req.StyleAdapters) > 0 {
		var capable []UsableBackend
		for _, ub := range candidates {
			if ub.Descriptor.SupportsStyleAdapters {
				capable = append(capable, ub)
			}
		}
		if len(capable) == 0 {
			return nil, vberrors.New(vberrors.ErrCodeCapabilityUnavailable,
				"no usable provider supports style adapters").
				WithContext("capability", "style-adapters").
				WithUserMessage("None of the available providers can apply LoRA style adapters.").
				WithRemediation("Start the local ComfyUI engine or set REPLICATE_API_TOKEN.")
		}
		candidates = capable
	}

	var out []UsableBackend
	for _, ub := range candidates {
		if ub.Descriptor.SupportsMedia(media) {
			out = append(out, ub)
		}
	}
	return out, nil
}
