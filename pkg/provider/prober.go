package provider

import (
	"context"
	"encoding/json"
	"sort"

	"github.com/mattyatplay-coder/vibeboard/pkg/bus"
	"github.com/mattyatplay-coder/vibeboard/pkg/config"
	"github.com/mattyatplay-coder/vibeboard/pkg/logging"
)

// UsableBackend pairs a catalog descriptor with a live adapter. It exists
// only when the credential check passed (or none was required) and the
// adapter constructed successfully.
type UsableBackend struct {
	Descriptor BackendDescriptor
	Adapter    Adapter
}

// Registry holds the usable-backend list computed once at process start.
// It is read-only after construction and safe for concurrent reads without
// locking; picking up newly supplied credentials requires a restart.
type Registry struct {
	ordered []UsableBackend
	byKind  map[Kind]UsableBackend
}

// ProbeOptions configures registry construction.
type ProbeOptions struct {
	// Preferred promotes one usable backend to the front of the order.
	// Membership is unchanged.
	Preferred Kind

	// Enabled reports whether a backend is enabled in configuration.
	// Nil means all enabled.
	Enabled func(kind Kind) bool

	// HasCredential checks credential presence (never values). Defaults
	// to config.HasCredential.
	HasCredential func(envName string) bool

	Logger *logging.Logger

	// Events, when set, receives a provider.skipped message for every
	// backend left out of the usable set.
	Events bus.MessageBus
}

// BuildUsable probes every catalog descriptor in priority order and returns
// the registry of usable backends. A backend whose credential is absent or
// whose adapter fails to construct is skipped, not fatal: the system
// degrades to fewer backends. An empty registry is valid; every generation
// call will then terminate in an all-providers-failed result.
func BuildUsable(descriptors []BackendDescriptor, factory AdapterFactory, opts ProbeOptions) *Registry {
	hasCredential := opts.HasCredential
	if hasCredential == nil {
		hasCredential = config.HasCredential
	}

	sorted := append([]BackendDescriptor(nil), descriptors...)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Priority < sorted[j].Priority
	})

	reg := &Registry{byKind: make(map[Kind]UsableBackend)}

	for _, desc := range sorted {
		if opts.Enabled != nil && !opts.Enabled(desc.Kind) {
			logProbe(opts.Logger, logging.LevelInfo, "provider_disabled", desc, "disabled in config")
			publishSkip(opts.Events, desc, "disabled in config")
			continue
		}

		if desc.RequiresCredential && !hasCredential(desc.CredentialEnv) {
			logProbe(opts.Logger, logging.LevelInfo, "provider_skipped", desc, "credential absent: "+desc.CredentialEnv)
			publishSkip(opts.Events, desc, "credential absent: "+desc.CredentialEnv)
			continue
		}

		adapter, err := factory(desc)
		if err != nil {
			logProbe(opts.Logger, logging.LevelWarn, "provider_construct_failed", desc, err.Error())
			publishSkip(opts.Events, desc, err.Error())
			continue
		}

		ub := UsableBackend{Descriptor: desc, Adapter: adapter}
		reg.ordered = append(reg.ordered, ub)
		reg.byKind[desc.Kind] = ub
		logProbe(opts.Logger, logging.LevelInfo, "provider_available", desc, "")
	}

	if opts.Preferred != "" {
		reg.promote(opts.Preferred)
	}

	return reg
}

func logProbe(logger *logging.Logger, level logging.Level, eventType string, desc BackendDescriptor, detail string) {
	if logger == nil {
		return
	}
	details := map[string]any{"provider": string(desc.Kind)}
	if detail != "" {
		details["reason"] = detail
	}
	logger.Log(logging.Event{
		Level:     level,
		Category:  logging.CategoryProvider,
		EventType: eventType,
		Provider:  string(desc.Kind),
		Message:   desc.DisplayName,
		Details:   details,
	})
}

func publishSkip(events bus.MessageBus, desc BackendDescriptor, reason string) {
	if events == nil {
		return
	}
	payload, err := json.Marshal(map[string]string{
		"provider": string(desc.Kind),
		"reason":   reason,
	})
	if err != nil {
		return
	}
	_ = events.Publish(context.Background(), bus.SubjectProviderSkipped, payload)
}

// promote moves kind to the front of the order when present.
func (r *Registry) promote(kind Kind) {
	for i, ub := range r.ordered {
		if ub.Descriptor.Kind == kind {
			if i > 0 {
				promoted := ub
				copy(r.ordered[1:i+1], r.ordered[:i])
				r.ordered[0] = promoted
			}
			return
		}
	}
}

// Get returns the usable backend for a kind.
func (r *Registry) Get(kind Kind) (UsableBackend, bool) {
	ub, ok := r.byKind[kind]
	return ub, ok
}

// ListUsable returns all usable backends in fallback order.
func (r *Registry) ListUsable() []UsableBackend {
	return append([]UsableBackend(nil), r.ordered...)
}

// ListCapable returns the usable backends that support a media kind,
// preserving fallback order.
func (r *Registry) ListCapable(media MediaKind) []UsableBackend {
	var out []UsableBackend
	for _, ub := range r.ordered {
		if ub.Descriptor.SupportsMedia(media) {
			out = append(out, ub)
		}
	}
	return out
}

// ListCloudVideoCapable returns the usable cloud backends that can produce
// video. Consumed by presentation layers.
func (r *Registry) ListCloudVideoCapable() []UsableBackend {
	var out []UsableBackend
	for _, ub := range r.ordered {
		if ub.Descriptor.Category == CategoryCloud && ub.Descriptor.SupportsVideo {
			out = append(out, ub)
		}
	}
	return out
}

// Cheapest returns the usable-and-capable backend with the lowest cost for
// the media kind, ties broken by ascending catalog priority.
func (r *Registry) Cheapest(media MediaKind) (UsableBackend, bool) {
	var best UsableBackend
	found := false
	for _, ub := range r.ordered {
		if !ub.Descriptor.SupportsMedia(media) {
			continue
		}
		cost := ub.Descriptor.CostFor(media)
		if cost >= CostUnsupported {
			continue
		}
		if !found ||
			cost < best.Descriptor.CostFor(media) ||
			(cost == best.Descriptor.CostFor(media) && ub.Descriptor.Priority < best.Descriptor.Priority) {
			best = ub
			found = true
		}
	}
	return best, found
}

// Len returns the number of usable backends.
func (r *Registry) Len() int {
	return len(r.ordered)
}
