package provider

import "testing"

func TestCatalogOrderedByPriority(t *testing.T) {
	seen := make(map[Kind]bool)
	last := -1
	for _, d := range Catalog {
		if seen[d.Kind] {
			t.Fatalf("duplicate catalog entry for %s", d.Kind)
		}
		seen[d.Kind] = true
		if d.Priority <= last {
			t.Errorf("%s priority %d not strictly increasing (previous %d)", d.Kind, d.Priority, last)
		}
		last = d.Priority
	}
	if Catalog[0].Kind != KindComfy {
		t.Errorf("first catalog entry = %s, want comfy (free local engine)", Catalog[0].Kind)
	}
}

func TestCatalogCapabilityFlags(t *testing.T) {
	tests := []struct {
		kind          Kind
		image, video  bool
		styleAdapters bool
		credential    string
	}{
		{KindComfy, true, true, true, ""},
		{KindFal, true, true, false, "FAL_KEY"},
		{KindReplicate, true, true, true, "REPLICATE_API_TOKEN"},
		{KindOpenAI, true, false, false, "OPENAI_API_KEY"},
		{KindRunway, false, true, false, "RUNWAY_API_KEY"},
	}
	for _, tt := range tests {
		d, ok := DescriptorFor(tt.kind)
		if !ok {
			t.Fatalf("DescriptorFor(%s) missing", tt.kind)
		}
		if d.SupportsImage != tt.image || d.SupportsVideo != tt.video {
			t.Errorf("%s media support image=%v video=%v, want %v/%v",
				tt.kind, d.SupportsImage, d.SupportsVideo, tt.image, tt.video)
		}
		if d.SupportsStyleAdapters != tt.styleAdapters {
			t.Errorf("%s style adapter flag = %v, want %v", tt.kind, d.SupportsStyleAdapters, tt.styleAdapters)
		}
		if d.CredentialEnv != tt.credential {
			t.Errorf("%s credential env = %q, want %q", tt.kind, d.CredentialEnv, tt.credential)
		}
		if d.RequiresCredential != (tt.credential != "") {
			t.Errorf("%s RequiresCredential inconsistent with CredentialEnv", tt.kind)
		}
	}
}

func TestUnsupportedMediaCostIsSentinel(t *testing.T) {
	openai, _ := DescriptorFor(KindOpenAI)
	if openai.CostFor(MediaVideo) != CostUnsupported {
		t.Errorf("openai video cost = %v, want sentinel", openai.CostFor(MediaVideo))
	}
	runway, _ := DescriptorFor(KindRunway)
	if runway.CostFor(MediaImage) != CostUnsupported {
		t.Errorf("runway image cost = %v, want sentinel", runway.CostFor(MediaImage))
	}
}

func TestEstimateCost(t *testing.T) {
	if got := EstimateCost(KindComfy, MediaImage, 4); got != 0 {
		t.Errorf("comfy cost = %v, want 0", got)
	}
	if got := EstimateCost(KindOpenAI, MediaImage, 3); got != 0.12 {
		t.Errorf("openai 3-image cost = %v, want 0.12", got)
	}
	// Count never multiplies the sentinel.
	if got := EstimateCost(KindRunway, MediaImage, 5); got != CostUnsupported {
		t.Errorf("runway image cost = %v, want sentinel", got)
	}
	if got := EstimateCost(KindFal, MediaImage, 0); got != 0.01 {
		t.Errorf("zero count cost = %v, want single-output 0.01", got)
	}
}

func TestHasModelVerbatimOnly(t *testing.T) {
	comfy, _ := DescriptorFor(KindComfy)
	if !comfy.HasModel("flux1-dev.safetensors", MediaImage) {
		t.Error("advertised model not found verbatim")
	}
	if comfy.HasModel("flux1-dev", MediaImage) {
		t.Error("HasModel matched a non-verbatim id")
	}
	if comfy.HasModel("flux1-dev.safetensors", MediaVideo) {
		t.Error("image model matched under video media kind")
	}
}

func TestForcedRoutesPointAtCatalogBackends(t *testing.T) {
	for model := range forcedRoutes {
		kind, ok := ForcedRouteFor(model)
		if !ok {
			t.Fatalf("ForcedRouteFor(%q) lost its entry", model)
		}
		if _, ok := DescriptorFor(kind); !ok {
			t.Errorf("forced route %q points at unknown backend %s", model, kind)
		}
	}
}

func TestRouteTargetsExistInCatalog(t *testing.T) {
	for model := range modelRoutes {
		kind, _ := RouteFor(model)
		d, ok := DescriptorFor(kind)
		if !ok {
			t.Fatalf("route %q points at unknown backend %s", model, kind)
		}
		// Every routed abstract id must normalize to something the target
		// backend can actually run.
		if _, ok := Normalize(model, kind, MediaImage); !ok {
			if _, ok := Normalize(model, kind, MediaVideo); !ok {
				t.Errorf("route %q -> %s has no native mapping", model, d.Kind)
			}
		}
	}
}
