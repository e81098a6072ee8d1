package provider

// modelRoutes maps abstract caller model identifiers to the backend that
// should serve them. Absence means "no preference" — the candidate list
// decides. Plain data so it can be diffed and table-tested independently
// of control flow.
var modelRoutes = map[string]Kind{
	// OpenAI-native models
	"dall-e-3":    KindOpenAI,
	"gpt-image-1": KindOpenAI,

	// Flux family: dev runs locally, schnell is cheapest hosted on fal
	"flux-dev":     KindComfy,
	"flux-schnell": KindFal,

	// Stable Diffusion family
	"sdxl":   KindReplicate,
	"sd-1.5": KindComfy,

	// Video models
	"kling-v2":      KindFal,
	"minimax-video": KindFal,
	"gen4-turbo":    KindRunway,
	"gen3a-turbo":   KindRunway,
	"wan-2.2":       KindComfy,
	"svd":           KindComfy,
}

// forcedRoutes hard-pins caller model identifiers to a single backend,
// checked before general resolution. Inpainting workflows are only
// implemented by the local engine.
var forcedRoutes = map[string]Kind{
	"flux-fill-dev": KindComfy,
	"sd-inpainting": KindComfy,
}

// RouteFor returns the preferred backend for an abstract model id.
func RouteFor(modelID string) (Kind, bool) {
	kind, ok := modelRoutes[modelID]
	return kind, ok
}

// ForcedRouteFor returns the pinned backend for model ids that only one
// backend implements.
func ForcedRouteFor(modelID string) (Kind, bool) {
	kind, ok := forcedRoutes[modelID]
	return kind, ok
}
