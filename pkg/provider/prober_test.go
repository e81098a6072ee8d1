package provider

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/mattyatplay-coder/vibeboard/pkg/bus"
)

func stubFactory(t *testing.T) AdapterFactory {
	t.Helper()
	return func(desc BackendDescriptor) (Adapter, error) {
		return &stubAdapter{kind: desc.Kind}, nil
	}
}

func TestBuildUsableSkipsAbsentCredentials(t *testing.T) {
	reg := BuildUsable(Catalog, stubFactory(t), ProbeOptions{
		HasCredential: func(env string) bool { return env == "FAL_KEY" },
	})

	// comfy (no credential needed) and fal survive.
	if reg.Len() != 2 {
		t.Fatalf("usable count = %d, want 2", reg.Len())
	}
	if _, ok := reg.Get(KindComfy); !ok {
		t.Error("credential-free local engine missing")
	}
	if _, ok := reg.Get(KindFal); !ok {
		t.Error("fal missing despite credential")
	}
	if _, ok := reg.Get(KindOpenAI); ok {
		t.Error("openai usable without credential")
	}
}

func TestBuildUsableOrderedByPriority(t *testing.T) {
	reg := BuildUsable(Catalog, stubFactory(t), ProbeOptions{
		HasCredential: func(string) bool { return true },
	})
	order := reg.ListUsable()
	if len(order) != len(Catalog) {
		t.Fatalf("usable count = %d, want %d", len(order), len(Catalog))
	}
	for i := 1; i < len(order); i++ {
		if order[i-1].Descriptor.Priority > order[i].Descriptor.Priority {
			t.Fatalf("order not by priority: %s before %s",
				order[i-1].Descriptor.Kind, order[i].Descriptor.Kind)
		}
	}
}

func TestBuildUsablePreferredPromotion(t *testing.T) {
	reg := BuildUsable(Catalog, stubFactory(t), ProbeOptions{
		Preferred:     KindReplicate,
		HasCredential: func(string) bool { return true },
	})
	order := reg.ListUsable()
	if order[0].Descriptor.Kind != KindReplicate {
		t.Fatalf("first usable = %s, want promoted replicate", order[0].Descriptor.Kind)
	}
	// Relative order of the rest is unchanged.
	if order[1].Descriptor.Kind != KindComfy || order[2].Descriptor.Kind != KindFal {
		t.Errorf("remainder order = %s, %s; want comfy, fal",
			order[1].Descriptor.Kind, order[2].Descriptor.Kind)
	}
}

func TestBuildUsablePreferredAbsentCredentialStillSkipped(t *testing.T) {
	reg := BuildUsable(Catalog, stubFactory(t), ProbeOptions{
		Preferred:     KindRunway,
		HasCredential: func(env string) bool { return env == "" },
	})
	if _, ok := reg.Get(KindRunway); ok {
		t.Fatal("preference must not override a failed credential probe")
	}
}

func TestBuildUsableConstructFailureIsSkippedNotFatal(t *testing.T) {
	factory := func(desc BackendDescriptor) (Adapter, error) {
		if desc.Kind == KindFal {
			return nil, errors.New("bad base url")
		}
		return &stubAdapter{kind: desc.Kind}, nil
	}
	reg := BuildUsable(Catalog, factory, ProbeOptions{
		HasCredential: func(string) bool { return true },
	})
	if _, ok := reg.Get(KindFal); ok {
		t.Error("backend usable despite construction failure")
	}
	if reg.Len() != len(Catalog)-1 {
		t.Errorf("usable count = %d, want %d", reg.Len(), len(Catalog)-1)
	}
}

func TestBuildUsableDisabledProvider(t *testing.T) {
	reg := BuildUsable(Catalog, stubFactory(t), ProbeOptions{
		Enabled:       func(kind Kind) bool { return kind != KindComfy },
		HasCredential: func(string) bool { return true },
	})
	if _, ok := reg.Get(KindComfy); ok {
		t.Error("disabled provider is usable")
	}
}

func TestBuildUsablePublishesSkipEvents(t *testing.T) {
	events := bus.NewMemoryBus()
	defer events.Close()

	skipped := make(chan map[string]string, len(Catalog))
	if _, err := events.Subscribe(context.Background(), bus.SubjectProviderSkipped, func(msg *bus.Message) {
		var skip map[string]string
		if json.Unmarshal(msg.Data, &skip) == nil {
			skipped <- skip
		}
	}); err != nil {
		t.Fatalf("Subscribe: %v", err)
	}

	// Every credentialed backend is skipped; only comfy survives.
	reg := BuildUsable(Catalog, stubFactory(t), ProbeOptions{
		HasCredential: func(string) bool { return false },
		Events:        events,
	})
	if reg.Len() != 1 {
		t.Fatalf("usable count = %d, want 1", reg.Len())
	}

	want := len(Catalog) - 1
	got := make(map[string]string)
	for len(got) < want {
		select {
		case skip := <-skipped:
			got[skip["provider"]] = skip["reason"]
		case <-time.After(2 * time.Second):
			t.Fatalf("received %d skip events, want %d", len(got), want)
		}
	}
	if _, ok := got["comfy"]; ok {
		t.Error("credential-free local engine reported as skipped")
	}
	if reason := got["openai"]; reason != "credential absent: OPENAI_API_KEY" {
		t.Errorf("openai skip reason = %q", reason)
	}
}

func TestListCapable(t *testing.T) {
	reg := BuildUsable(Catalog, stubFactory(t), ProbeOptions{
		HasCredential: func(string) bool { return true },
	})
	for _, ub := range reg.ListCapable(MediaVideo) {
		if !ub.Descriptor.SupportsVideo {
			t.Errorf("%s listed as video-capable", ub.Descriptor.Kind)
		}
	}
	for _, ub := range reg.ListCloudVideoCapable() {
		if ub.Descriptor.Category != CategoryCloud || !ub.Descriptor.SupportsVideo {
			t.Errorf("%s listed as cloud-video-capable", ub.Descriptor.Kind)
		}
	}
}

func TestCheapestSkipsSentinelCosts(t *testing.T) {
	reg := BuildUsable(Catalog, stubFactory(t), ProbeOptions{
		HasCredential: func(string) bool { return true },
	})
	best, ok := reg.Cheapest(MediaImage)
	if !ok {
		t.Fatal("no cheapest image backend")
	}
	if best.Descriptor.Kind != KindComfy {
		t.Errorf("cheapest image = %s, want free comfy", best.Descriptor.Kind)
	}

	// Without the local engine, replicate undercuts fal for images.
	cloudOnly := Catalog[1:]
	reg = BuildUsable(cloudOnly, stubFactory(t), ProbeOptions{
		HasCredential: func(string) bool { return true },
	})
	best, ok = reg.Cheapest(MediaImage)
	if !ok || best.Descriptor.Kind != KindReplicate {
		t.Errorf("cheapest cloud image = %s, want replicate", best.Descriptor.Kind)
	}
	best, ok = reg.Cheapest(MediaVideo)
	if !ok || best.Descriptor.Kind != KindReplicate {
		t.Errorf("cheapest cloud video = %s, want replicate at 0.25", best.Descriptor.Kind)
	}
}

func TestEmptyRegistryIsValid(t *testing.T) {
	reg := BuildUsable(Catalog, stubFactory(t), ProbeOptions{
		HasCredential: func(string) bool { return false },
		Enabled:       func(kind Kind) bool { return kind != KindComfy },
	})
	if reg.Len() != 0 {
		t.Fatalf("usable count = %d, want 0", reg.Len())
	}
	if _, ok := reg.Cheapest(MediaImage); ok {
		t.Error("Cheapest returned a backend from an empty registry")
	}
}
