package provider

import "testing"

func findNode(t *testing.T, graph map[string]any, classType string) (string, map[string]any) {
	t.Helper()
	for id, raw := range graph {
		node, ok := raw.(map[string]any)
		if !ok {
			continue
		}
		if node["class_type"] == classType {
			return id, node["inputs"].(map[string]any)
		}
	}
	return "", nil
}

func nodeRef(t *testing.T, inputs map[string]any, input string) string {
	t.Helper()
	ref, ok := inputs[input].([]any)
	if !ok || len(ref) != 2 {
		t.Fatalf("input %q is not a node reference: %v", input, inputs[input])
	}
	return ref[0].(string)
}

func TestVideoGraphImageToVideoSamplesFromSourceFrame(t *testing.T) {
	adapter := newComfyAdapter("", nil)
	graph := adapter.buildVideoGraph(&GenerationRequest{
		Prompt:       "slow pan across the harbor",
		Mode:         VideoImageToVideo,
		SourceImages: []string{"harbor.png"},
		Seed:         7,
	}, comfyDefaultVideoModel)

	loadID, loadInputs := findNode(t, graph, "LoadImage")
	if loadID == "" {
		t.Fatal("no LoadImage node for the source frame")
	}
	if loadInputs["image"] != "harbor.png" {
		t.Errorf("LoadImage image = %v, want harbor.png", loadInputs["image"])
	}

	encodeID, encodeInputs := findNode(t, graph, "VAEEncode")
	if encodeID == "" {
		t.Fatal("no VAEEncode node; source frame never enters the latent space")
	}
	if got := nodeRef(t, encodeInputs, "pixels"); got != loadID {
		t.Errorf("VAEEncode pixels reference %q, want LoadImage node %q", got, loadID)
	}

	_, samplerInputs := findNode(t, graph, "KSampler")
	if samplerInputs == nil {
		t.Fatal("no KSampler node")
	}
	if got := nodeRef(t, samplerInputs, "latent_image"); got != encodeID {
		t.Errorf("KSampler latent_image reference %q, want VAEEncode node %q", got, encodeID)
	}
	if denoise, ok := samplerInputs["denoise"].(float64); !ok || denoise >= 1.0 {
		t.Errorf("denoise = %v, want partial (< 1.0) so the source frame survives", samplerInputs["denoise"])
	}

	if id, _ := findNode(t, graph, "EmptyLatentImage"); id != "" {
		t.Errorf("EmptyLatentImage node %q still present; source latent should replace it", id)
	}
}

func TestVideoGraphTextToVideoUsesEmptyLatent(t *testing.T) {
	adapter := newComfyAdapter("", nil)
	graph := adapter.buildVideoGraph(&GenerationRequest{
		Prompt: "a storm rolling in",
		Mode:   VideoTextToVideo,
	}, comfyDefaultVideoModel)

	latentID, _ := findNode(t, graph, "EmptyLatentImage")
	if latentID == "" {
		t.Fatal("text-to-video lost its EmptyLatentImage node")
	}
	_, samplerInputs := findNode(t, graph, "KSampler")
	if got := nodeRef(t, samplerInputs, "latent_image"); got != latentID {
		t.Errorf("KSampler latent_image reference %q, want EmptyLatentImage node %q", got, latentID)
	}
	if id, _ := findNode(t, graph, "LoadImage"); id != "" {
		t.Error("LoadImage node present without a source image")
	}
	if id, _ := findNode(t, graph, "SaveAnimatedWEBP"); id == "" {
		t.Error("video graph kept the still-image writer")
	}
}
