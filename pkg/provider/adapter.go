package provider

import "context"

// Adapter is implemented once per backend kind. Each adapter owns its own
// HTTP/SDK calls, authentication, response parsing, and internal poll loop;
// the core treats every call as a single opaque operation that eventually
// returns a GenerationResult or an error.
type Adapter interface {
	Kind() Kind

	GenerateImage(ctx context.Context, req *GenerationRequest) (*GenerationResult, error)

	// GenerateVideo reads the source image, when the mode needs one, from
	// req.SourceImages.
	GenerateVideo(ctx context.Context, req *GenerationRequest) (*GenerationResult, error)

	// CheckStatus returns the current status of a previously submitted
	// generation. Adapters return a failed result with an "unknown id"
	// error for ids they did not issue.
	CheckStatus(ctx context.Context, id string) (*GenerationResult, error)
}

// AdapterFactory constructs the adapter for one backend kind. Construction
// failure is non-fatal to the process; the prober skips the backend.
type AdapterFactory func(desc BackendDescriptor) (Adapter, error)
