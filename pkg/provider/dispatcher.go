package provider

import (
	"context"
	"encoding/json"
	"fmt"
	"math/rand"
	"time"

	"github.com/google/uuid"

	"github.com/mattyatplay-coder/vibeboard/pkg/bus"
	vberrors "github.com/mattyatplay-coder/vibeboard/pkg/errors"
	"github.com/mattyatplay-coder/vibeboard/pkg/logging"
	"github.com/mattyatplay-coder/vibeboard/pkg/storage"
)

// Dispatcher is the entry point for generation calls. It applies explicit
// overrides, consults the resolver and capability filter, and drives the
// sequential fallback executor. It holds no request-scoped mutable state;
// the registry it reads is immutable after startup, so concurrent calls
// need no locking.
type Dispatcher struct {
	registry  *Registry
	resolver  *Resolver
	logger    *logging.Logger
	events    bus.MessageBus
	store     *storage.Store
	sessionID string
}

// DispatcherOptions wires optional collaborators.
type DispatcherOptions struct {
	Logger    *logging.Logger
	Events    bus.MessageBus
	Store     *storage.Store
	SessionID string
}

// NewDispatcher creates a dispatcher over a probed registry.
func NewDispatcher(registry *Registry, opts DispatcherOptions) *Dispatcher {
	return &Dispatcher{
		registry:  registry,
		resolver:  NewResolver(opts.Logger),
		logger:    opts.Logger,
		events:    opts.Events,
		store:     opts.Store,
		sessionID: opts.SessionID,
	}
}

// Registry exposes the underlying registry for read-only projections.
func (d *Dispatcher) Registry() *Registry {
	return d.registry
}

// GenerateImage routes an image request to the best backend, falling back
// across candidates until one succeeds.
func (d *Dispatcher) GenerateImage(ctx context.Context, req *GenerationRequest) (*GenerationResult, error) {
	return d.generate(ctx, req, MediaImage)
}

// GenerateVideo routes a video request. The source image for image-to-video
// modes travels in req.SourceImages.
func (d *Dispatcher) GenerateVideo(ctx context.Context, req *GenerationRequest) (*GenerationResult, error) {
	if req.Mode == "" {
		req.Mode = VideoTextToVideo
	}
	return d.generate(ctx, req, MediaVideo)
}

// GenerateWithProvider calls one named backend directly with no fallback.
// The result, success or failure, is returned verbatim apart from the
// provider tag: an explicit choice is a promise to the caller, not a hint.
func (d *Dispatcher) GenerateWithProvider(ctx context.Context, kind Kind, req *GenerationRequest) (*GenerationResult, error) {
	ub, ok := d.registry.Get(kind)
	if !ok {
		return nil, vberrors.New(vberrors.ErrCodeProviderSkipped,
			fmt.Sprintf("provider %s is not available", kind)).
			WithContext("provider", string(kind)).
			WithRemediation("Check that its credential is set and the provider is enabled.")
	}

	media := mediaKindOf(req)
	d.prepare(req)
	d.publishEvent(bus.SubjectGenerationStarted, "", kind, media, "")
	metricGenerationsStarted.WithLabelValues(string(media)).Inc()

	result, err := d.callCandidate(ctx, ub, req, media)
	if err != nil || result == nil {
		result = &GenerationResult{
			Status: StatusFailed,
			Error:  fmt.Sprintf("%s: %s", kind, resultErrorMessage(result, err)),
		}
	}
	result.Provider = kind
	d.finish(req, result, media)
	return result, nil
}

// generate runs the routing state machine. Terminal on the first branch
// reached:
//
//  1. explicit engine override — direct call, no fallback
//  2. forced routing for models only one backend implements
//  3. capability filtering
//  4. resolution — resolved backend tried first, alone
//  5. ordered fallback over the remaining candidates
//  6. aggregate failure when every candidate fails
func (d *Dispatcher) generate(ctx context.Context, req *GenerationRequest, media MediaKind) (*GenerationResult, error) {
	d.prepare(req)

	if req.Engine != "" {
		return d.GenerateWithProvider(ctx, Kind(req.Engine), req)
	}

	if kind, ok := ForcedRouteFor(req.Model); ok {
		return d.GenerateWithProvider(ctx, kind, req)
	}

	candidates, err := FilterCandidates(d.registry.ListUsable(), req, media)
	if err != nil {
		metricCapabilityRejections.WithLabelValues("style-adapters").Inc()
		return nil, err
	}

	metricGenerationsStarted.WithLabelValues(string(media)).Inc()
	d.publishEvent(bus.SubjectGenerationStarted, "", "", media, "")

	if kind, ok := d.resolver.Resolve(req.Model, media, candidates); ok {
		if ub, found := d.registry.Get(kind); found {
			result, callErr := d.callCandidate(ctx, ub, req, media)
			if callErr == nil && result != nil && result.Status != StatusFailed {
				result.Provider = kind
				d.finish(req, result, media)
				return result, nil
			}

			msg := resultErrorMessage(result, callErr)
			if d.logger != nil {
				d.logger.Warn(logging.CategoryGeneration, "resolved_provider_failed", msg,
					map[string]any{"provider": string(kind), "model": req.Model})
			}
			// Resolved backend failed; fall through with it excluded.
			candidates = excludeKind(candidates, kind)
			result = d.fallback(ctx, candidates, req, media, fmt.Sprintf("%s: %s", kind, msg))
			d.finish(req, result, media)
			return result, nil
		}
	}

	result := d.fallback(ctx, candidates, req, media, "")
	d.finish(req, result, media)
	return result, nil
}

// CheckStatus asks each usable backend for the status of a generation id
// until one returns a non-running answer. Polling cadence and timeouts are
// adapter-internal.
func (d *Dispatcher) CheckStatus(ctx context.Context, id string) (*GenerationResult, error) {
	var lastErr error
	for _, ub := range d.registry.ListUsable() {
		result, err := ub.Adapter.CheckStatus(ctx, id)
		if err != nil {
			lastErr = err
			continue
		}
		if result != nil && result.Status != StatusRunning {
			result.Provider = ub.Descriptor.Kind
			return result, nil
		}
	}
	if lastErr != nil {
		return nil, vberrors.Wrap(lastErr, vberrors.ErrCodeProviderCallFailed,
			"no provider recognized generation id").WithContext("id", id)
	}
	return &GenerationResult{ID: id, Status: StatusRunning}, nil
}

// fallback runs the sequential executor, optionally seeding the failure
// list with an already-failed resolved attempt.
func (d *Dispatcher) fallback(ctx context.Context, candidates []UsableBackend, req *GenerationRequest, media MediaKind, priorFailure string) *GenerationResult {
	result := tryInOrder(ctx, candidates, media, d.logger, func(ctx context.Context, candidate UsableBackend) (*GenerationResult, error) {
		return d.callCandidate(ctx, candidate, req, media)
	})

	if result.Status == StatusFailed && priorFailure != "" {
		result.Error = priorFailure + "\n" + result.Error
	}
	return result
}

// callCandidate normalizes the model identifier for one backend and invokes
// its adapter, timing the call.
func (d *Dispatcher) callCandidate(ctx context.Context, ub UsableBackend, req *GenerationRequest, media MediaKind) (*GenerationResult, error) {
	kind := ub.Descriptor.Kind

	normalized := *req
	if native, ok := Normalize(req.Model, kind, media); ok {
		normalized.Model = native
	} else {
		// Unmappable id: let the backend use its own default model.
		normalized.Model = ""
	}

	start := time.Now()
	var result *GenerationResult
	var err error
	if media == MediaVideo {
		result, err = ub.Adapter.GenerateVideo(ctx, &normalized)
	} else {
		result, err = ub.Adapter.GenerateImage(ctx, &normalized)
	}
	metricCallDuration.WithLabelValues(string(kind), string(media)).Observe(time.Since(start).Seconds())

	if err == nil && result != nil {
		if result.ID == "" {
			result.ID = uuid.NewString()
		}
		if result.Seed == 0 {
			result.Seed = req.Seed
		}
	}
	return result, err
}

// prepare fills request defaults shared by every branch.
func (d *Dispatcher) prepare(req *GenerationRequest) {
	req.Count = req.EffectiveCount()
	if req.Seed == 0 {
		// Resolve the seed once so every fallback candidate renders the
		// same variation.
		req.Seed = rand.Int63()
	}
}

// finish records terminal results: metrics, history, lifecycle events.
func (d *Dispatcher) finish(req *GenerationRequest, result *GenerationResult, media MediaKind) {
	if result == nil || !result.Status.Terminal() {
		return
	}

	if result.ID == "" {
		result.ID = uuid.NewString()
	}

	cost := 0.0
	if result.Status == StatusSucceeded {
		metricGenerationsSucceeded.WithLabelValues(string(result.Provider), string(media)).Inc()
		cost = EstimateCost(result.Provider, media, req.Count)
		if cost >= CostUnsupported {
			cost = 0
		}
		d.publishEvent(bus.SubjectGenerationCompleted, result.ID, result.Provider, media, "")
	} else {
		metricGenerationsFailed.WithLabelValues(string(media)).Inc()
		d.publishEvent(bus.SubjectGenerationFailed, result.ID, result.Provider, media, result.Error)
	}

	if d.store != nil {
		rec := &storage.GenerationRecord{
			ID:        result.ID,
			SessionID: d.sessionID,
			Provider:  string(result.Provider),
			MediaKind: string(media),
			Model:     req.Model,
			Prompt:    req.Prompt,
			Status:    string(result.Status),
			Error:     result.Error,
			Outputs:   result.Outputs,
			Seed:      result.Seed,
			Cost:      cost,
		}
		if err := d.store.SaveGeneration(rec); err != nil && d.logger != nil {
			d.logger.Error(logging.CategoryStorage, "generation_save_failed", err.Error(),
				map[string]any{"id": result.ID})
		}
	}

	if cost > 0 && d.logger != nil {
		d.logger.Info(logging.CategoryCost, "generation_cost", "estimated generation cost",
			map[string]any{"provider": string(result.Provider), "usd": cost, "count": req.Count})
	}
}

type generationEvent struct {
	ID       string `json:"id,omitempty"`
	Provider string `json:"provider,omitempty"`
	Media    string `json:"media"`
	Error    string `json:"error,omitempty"`
}

func (d *Dispatcher) publishEvent(subject, id string, kind Kind, media MediaKind, errMsg string) {
	if d.events == nil {
		return
	}
	payload, err := json.Marshal(generationEvent{
		ID:       id,
		Provider: string(kind),
		Media:    string(media),
		Error:    errMsg,
	})
	if err != nil {
		return
	}
	_ = d.events.Publish(context.Background(), subject, payload)
}

func excludeKind(candidates []UsableBackend, kind Kind) []UsableBackend {
	var out []UsableBackend
	for _, ub := range candidates {
		if ub.Descriptor.Kind != kind {
			out = append(out, ub)
		}
	}
	return out
}
