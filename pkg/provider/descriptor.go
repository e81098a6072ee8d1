package provider

// Kind identifies a generation backend.
type Kind string

const (
	KindComfy     Kind = "comfy"
	KindReplicate Kind = "replicate"
	KindFal       Kind = "fal"
	KindOpenAI    Kind = "openai"
	KindRunway    Kind = "runway"
)

// Category distinguishes local engines from paid cloud APIs. Informational
// only; routing never branches on it.
type Category string

const (
	CategoryLocal Category = "local"
	CategoryCloud Category = "cloud"
)

// CostUnsupported marks a media kind a backend cannot produce.
const CostUnsupported = 9999.0

// BackendDescriptor is the static description of one known backend.
// Descriptors are compiled-in constants and never mutated.
type BackendDescriptor struct {
	Kind        Kind
	DisplayName string

	// Priority orders fallback attempts; lower is tried first.
	Priority int

	// Costs are USD per output. CostUnsupported marks unsupported media.
	CostPerImage float64
	CostPerVideo float64

	SupportsImage bool
	SupportsVideo bool

	// SupportsStyleAdapters is an explicit capability flag, never inferred.
	SupportsStyleAdapters bool

	RequiresCredential bool
	CredentialEnv      string

	Category Category

	// Backend-native model identifiers, advertised for exact-match
	// resolution and normalization idempotence.
	ImageModels []string
	VideoModels []string
}

// SupportsMedia reports whether the backend can produce the media kind.
func (d BackendDescriptor) SupportsMedia(kind MediaKind) bool {
	if kind == MediaVideo {
		return d.SupportsVideo
	}
	return d.SupportsImage
}

// CostFor returns the per-output cost for a media kind.
func (d BackendDescriptor) CostFor(kind MediaKind) float64 {
	if kind == MediaVideo {
		return d.CostPerVideo
	}
	return d.CostPerImage
}

// ModelsFor returns the advertised native model list for a media kind.
func (d BackendDescriptor) ModelsFor(kind MediaKind) []string {
	if kind == MediaVideo {
		return d.VideoModels
	}
	return d.ImageModels
}

// HasModel reports whether the backend advertises the identifier verbatim
// for the given media kind.
func (d BackendDescriptor) HasModel(modelID string, kind MediaKind) bool {
	for _, m := range d.ModelsFor(kind) {
		if m == modelID {
			return true
		}
	}
	return false
}

// Catalog is the static table of all known backends, ordered by priority.
// The local engine comes first: it is free, so it is always worth trying
// before any paid API.
var Catalog = []BackendDescriptor{
	{
		Kind:                  KindComfy,
		DisplayName:           "ComfyUI (local)",
		Priority:              0,
		CostPerImage:          0,
		CostPerVideo:          0,
		SupportsImage:         true,
		SupportsVideo:         true,
		SupportsStyleAdapters: true,
		RequiresCredential:    false,
		Category:              CategoryLocal,
		ImageModels: []string{
			"flux1-dev.safetensors",
			"flux-fill-dev.safetensors",
			"sd_xl_base_1.0.safetensors",
			"v1-5-pruned-emaonly.safetensors",
		},
		VideoModels: []string{
			"wan2.2_t2v_14B.safetensors",
			"svd_xt.safetensors",
		},
	},
	{
		Kind:                  KindFal,
		DisplayName:           "fal.ai",
		Priority:              10,
		CostPerImage:          0.01,
		CostPerVideo:          0.35,
		SupportsImage:         true,
		SupportsVideo:         true,
		SupportsStyleAdapters: false,
		RequiresCredential:    true,
		CredentialEnv:         "FAL_KEY",
		Category:              CategoryCloud,
		ImageModels: []string{
			"fal-ai/flux/dev",
			"fal-ai/flux/schnell",
			"fal-ai/fast-sdxl",
		},
		VideoModels: []string{
			"fal-ai/kling-video/v2/master",
			"fal-ai/minimax-video",
		},
	},
	{
		Kind:                  KindReplicate,
		DisplayName:           "Replicate",
		Priority:              20,
		CostPerImage:          0.0095,
		CostPerVideo:          0.25,
		SupportsImage:         true,
		SupportsVideo:         true,
		SupportsStyleAdapters: true,
		RequiresCredential:    true,
		CredentialEnv:         "REPLICATE_API_TOKEN",
		Category:              CategoryCloud,
		ImageModels: []string{
			"black-forest-labs/flux-dev",
			"black-forest-labs/flux-schnell",
			"stability-ai/sdxl",
		},
		VideoModels: []string{
			"minimax/video-01",
		},
	},
	{
		Kind:                  KindOpenAI,
		DisplayName:           "OpenAI Images",
		Priority:              30,
		CostPerImage:          0.04,
		CostPerVideo:          CostUnsupported,
		SupportsImage:         true,
		SupportsVideo:         false,
		SupportsStyleAdapters: false,
		RequiresCredential:    true,
		CredentialEnv:         "OPENAI_API_KEY",
		Category:              CategoryCloud,
		ImageModels: []string{
			"gpt-image-1",
			"dall-e-3",
		},
	},
	{
		Kind:                  KindRunway,
		DisplayName:           "Runway",
		Priority:              40,
		CostPerImage:          CostUnsupported,
		CostPerVideo:          0.50,
		SupportsImage:         false,
		SupportsVideo:         true,
		SupportsStyleAdapters: false,
		RequiresCredential:    true,
		CredentialEnv:         "RUNWAY_API_KEY",
		Category:              CategoryCloud,
		VideoModels: []string{
			"gen4_turbo",
			"gen3a_turbo",
		},
	},
}

// DescriptorFor returns the catalog entry for a kind.
func DescriptorFor(kind Kind) (BackendDescriptor, bool) {
	for _, d := range Catalog {
		if d.Kind == kind {
			return d, true
		}
	}
	return BackendDescriptor{}, false
}

// EstimateCost returns the catalog cost of generating count outputs of the
// given media kind on the given backend. Pure lookup, exposed for display.
func EstimateCost(kind Kind, media MediaKind, count int) float64 {
	d, ok := DescriptorFor(kind)
	if !ok {
		return 0
	}
	if count < 1 {
		count = 1
	}
	cost := d.CostFor(media)
	if cost >= CostUnsupported {
		return CostUnsupported
	}
	return cost * float64(count)
}
