package provider

import (
	"context"
	"fmt"
	"strings"

	vberrors "github.com/mattyatplay-coder/vibeboard/pkg/errors"
	"github.com/mattyatplay-coder/vibeboard/pkg/logging"
)

// attemptFunc invokes one candidate backend with a request already
// normalized for it.
type attemptFunc func(ctx context.Context, candidate UsableBackend) (*GenerationResult, error)

// tryInOrder attempts candidates sequentially, short-circuiting on the
// first success. Sequential on purpose: racing backends in parallel would
// bill multiple paid providers for one logical request. Each failure is
// recorded as "<kind>: <message>"; exhaustion returns a failed result whose
// error joins all per-candidate failures, one per line, so callers can see
// exactly which backends were tried and why each failed.
func tryInOrder(ctx context.Context, candidates []UsableBackend, media MediaKind, logger *logging.Logger, call attemptFunc) *GenerationResult {
	var failures []string

	for _, candidate := range candidates {
		kind := candidate.Descriptor.Kind
		metricFallbackAttempts.WithLabelValues(string(kind), string(media)).Inc()

		result, err := call(ctx, candidate)
		if err == nil && result != nil && result.Status != StatusFailed {
			// Succeeded, or still in flight with an id the caller can
			// poll. Either way this candidate accepted the work.
			result.Provider = kind
			return result
		}

		msg := resultErrorMessage(result, err)
		failures = append(failures, fmt.Sprintf("%s: %s", kind, msg))

		if logger != nil {
			logger.Warn(logging.CategoryGeneration, "provider_attempt_failed", msg,
				map[string]any{"provider": string(kind), "media": string(media)})
		}

		if ctx.Err() != nil {
			failures = append(failures, fmt.Sprintf("aborted: %v", ctx.Err()))
			break
		}
	}

	if len(failures) == 0 {
		failures = append(failures, "no candidate providers")
	}

	return &GenerationResult{
		Status: StatusFailed,
		Error:  strings.Join(failures, "\n"),
	}
}

// AggregateError converts an exhausted fallback result into a structured
// all-providers-failed error.
func AggregateError(result *GenerationResult) error {
	if result == nil || result.Status != StatusFailed {
		return nil
	}
	return vberrors.New(vberrors.ErrCodeAllProvidersFailed, result.Error).
		WithUserMessage("Every available provider failed to serve the request.")
}

func resultErrorMessage(result *GenerationResult, err error) string {
	if err != nil {
		return err.Error()
	}
	if result != nil && result.Error != "" {
		return result.Error
	}
	return "generation failed with no error detail"
}
