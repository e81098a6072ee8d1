package provider

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"

	vberrors "github.com/mattyatplay-coder/vibeboard/pkg/errors"
)

func TestTryInOrderStopsAtFirstSuccess(t *testing.T) {
	calls := []Kind{}
	result := tryInOrder(context.Background(), candidatesOf(KindComfy, KindFal, KindReplicate), MediaImage, nil,
		func(ctx context.Context, c UsableBackend) (*GenerationResult, error) {
			calls = append(calls, c.Descriptor.Kind)
			if c.Descriptor.Kind == KindFal {
				return &GenerationResult{Status: StatusSucceeded, Outputs: []string{"x.png"}}, nil
			}
			return nil, errors.New("down")
		})

	if !result.Succeeded() {
		t.Fatalf("status = %s, want succeeded", result.Status)
	}
	if result.Provider != KindFal {
		t.Errorf("provider = %s, want fal", result.Provider)
	}
	if len(calls) != 2 {
		t.Errorf("attempted %v, want [comfy fal]", calls)
	}
}

func TestTryInOrderAggregatesTaggedFailures(t *testing.T) {
	result := tryInOrder(context.Background(), candidatesOf(KindComfy, KindFal, KindReplicate), MediaImage, nil,
		func(ctx context.Context, c UsableBackend) (*GenerationResult, error) {
			return nil, fmt.Errorf("%s is down", c.Descriptor.Kind)
		})

	if result.Status != StatusFailed {
		t.Fatalf("status = %s, want failed", result.Status)
	}
	lines := strings.Split(result.Error, "\n")
	if len(lines) != 3 {
		t.Fatalf("aggregate has %d lines, want 3:\n%s", len(lines), result.Error)
	}
	wantPrefixes := []string{"comfy: ", "fal: ", "replicate: "}
	for i, prefix := range wantPrefixes {
		if !strings.HasPrefix(lines[i], prefix) {
			t.Errorf("line %d = %q, want prefix %q", i, lines[i], prefix)
		}
	}
}

func TestTryInOrderFailedResultWithoutError(t *testing.T) {
	result := tryInOrder(context.Background(), candidatesOf(KindComfy), MediaImage, nil,
		func(ctx context.Context, c UsableBackend) (*GenerationResult, error) {
			return &GenerationResult{Status: StatusFailed, Error: "NSFW content rejected"}, nil
		})

	if result.Status != StatusFailed {
		t.Fatalf("status = %s, want failed", result.Status)
	}
	if result.Error != "comfy: NSFW content rejected" {
		t.Errorf("error = %q", result.Error)
	}
}

func TestTryInOrderEmptyCandidates(t *testing.T) {
	result := tryInOrder(context.Background(), nil, MediaImage, nil,
		func(ctx context.Context, c UsableBackend) (*GenerationResult, error) {
			t.Fatal("call must not run with no candidates")
			return nil, nil
		})

	if result.Status != StatusFailed || result.Error != "no candidate providers" {
		t.Fatalf("result = %+v", result)
	}
}

func TestTryInOrderAbortsOnContextCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	attempts := 0
	result := tryInOrder(ctx, candidatesOf(KindComfy, KindFal, KindReplicate), MediaImage, nil,
		func(ctx context.Context, c UsableBackend) (*GenerationResult, error) {
			attempts++
			cancel()
			return nil, errors.New("interrupted")
		})

	if attempts != 1 {
		t.Fatalf("attempts = %d, want 1 after cancellation", attempts)
	}
	if !strings.Contains(result.Error, "aborted") {
		t.Errorf("aggregate missing abort marker:\n%s", result.Error)
	}
}

func TestAggregateError(t *testing.T) {
	if err := AggregateError(&GenerationResult{Status: StatusSucceeded}); err != nil {
		t.Fatalf("AggregateError(success) = %v, want nil", err)
	}
	err := AggregateError(&GenerationResult{Status: StatusFailed, Error: "comfy: down"})
	if !vberrors.IsCode(err, vberrors.ErrCodeAllProvidersFailed) {
		t.Errorf("error code = %v, want all-providers-failed", vberrors.GetCode(err))
	}
}
