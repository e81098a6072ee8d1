package provider

import (
	"context"
	"fmt"
	"net/url"
	"strconv"
	"time"

	"github.com/google/uuid"

	"github.com/mattyatplay-coder/vibeboard/pkg/config"
	"github.com/mattyatplay-coder/vibeboard/pkg/logging"
)

const (
	comfyPollInterval = 2 * time.Second
	comfyMaxWait      = 10 * time.Minute

	comfyDefaultImageModel = "flux1-dev.safetensors"
	comfyDefaultVideoModel = "wan2.2_t2v_14B.safetensors"
)

// comfyAdapter drives a local ComfyUI engine through its prompt-queue API:
// submit a workflow graph to /prompt, poll /history/{id} until the graph
// finishes, then collect output file references as /view URLs.
type comfyAdapter struct {
	client   *apiClient
	clientID string
}

func newComfyAdapter(baseURL string, logger *logging.Logger) *comfyAdapter {
	if baseURL == "" {
		baseURL = config.DefaultComfyBaseURL
	}
	return &comfyAdapter{
		client:   newAPIClient(KindComfy, baseURL, nil, logger),
		clientID: uuid.NewString(),
	}
}

func (a *comfyAdapter) Kind() Kind { return KindComfy }

type comfyQueueResponse struct {
	PromptID string `json:"prompt_id"`
}

type comfyHistoryEntry struct {
	Status struct {
		Completed bool   `json:"completed"`
		StatusStr string `json:"status_str"`
	} `json:"status"`
	Outputs map[string]struct {
		Images []struct {
			Filename  string `json:"filename"`
			Subfolder string `json:"subfolder"`
			Type      string `json:"type"`
		} `json:"images"`
	} `json:"outputs"`
}

func (a *comfyAdapter) GenerateImage(ctx context.Context, req *GenerationRequest) (*GenerationResult, error) {
	model := req.Model
	if model == "" {
		model = comfyDefaultImageModel
	}
	graph := a.buildImageGraph(req, model)
	return a.submitAndWait(ctx, graph)
}

func (a *comfyAdapter) GenerateVideo(ctx context.Context, req *GenerationRequest) (*GenerationResult, error) {
	model := req.Model
	if model == "" {
		model = comfyDefaultVideoModel
	}
	graph := a.buildVideoGraph(req, model)
	return a.submitAndWait(ctx, graph)
}

func (a *comfyAdapter) CheckStatus(ctx context.Context, id string) (*GenerationResult, error) {
	var history map[string]comfyHistoryEntry
	if err := a.client.getJSON(ctx, "/history/"+id, &history); err != nil {
		return nil, err
	}
	entry, ok := history[id]
	if !ok {
		return nil, fmt.Errorf("unknown prompt id: %s", id)
	}
	return a.resultFromHistory(id, entry), nil
}

func (a *comfyAdapter) submitAndWait(ctx context.Context, graph map[string]any) (*GenerationResult, error) {
	payload := map[string]any{
		"prompt":    graph,
		"client_id": a.clientID,
	}
	var queued comfyQueueResponse
	if err := a.client.postJSON(ctx, "/prompt", payload, &queued); err != nil {
		return nil, err
	}
	if queued.PromptID == "" {
		return nil, fmt.Errorf("engine returned no prompt id")
	}

	deadline := time.Now().Add(comfyMaxWait)
	ticker := time.NewTicker(comfyPollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			// Still running; the caller can resume via CheckStatus.
			return &GenerationResult{ID: queued.PromptID, Status: StatusRunning}, nil
		case <-ticker.C:
		}

		result, err := a.CheckStatus(ctx, queued.PromptID)
		if err == nil && result.Status.Terminal() {
			return result, nil
		}
		if time.Now().After(deadline) {
			return &GenerationResult{
				ID:     queued.PromptID,
				Status: StatusFailed,
				Error:  fmt.Sprintf("timed out after %v waiting for workflow", comfyMaxWait),
			}, nil
		}
	}
}

func (a *comfyAdapter) resultFromHistory(id string, entry comfyHistoryEntry) *GenerationResult {
	if !entry.Status.Completed {
		if entry.Status.StatusStr == "error" {
			return &GenerationResult{ID: id, Status: StatusFailed, Error: "workflow execution failed"}
		}
		return &GenerationResult{ID: id, Status: StatusRunning}
	}

	var outputs []string
	for _, node := range entry.Outputs {
		for _, img := range node.Images {
			q := url.Values{}
			q.Set("filename", img.Filename)
			q.Set("subfolder", img.Subfolder)
			q.Set("type", img.Type)
			outputs = append(outputs, a.client.baseURL+"/view?"+q.Encode())
		}
	}
	if len(outputs) == 0 {
		return &GenerationResult{ID: id, Status: StatusFailed, Error: "workflow completed with no outputs"}
	}
	return &GenerationResult{ID: id, Status: StatusSucceeded, Outputs: outputs}
}

// buildImageGraph assembles the standard txt2img node graph. Style adapters
// are chained as LoraLoader nodes between the checkpoint and the samplers.
func (a *comfyAdapter) buildImageGraph(req *GenerationRequest, model string) map[string]any {
	width, height := req.Width, req.Height
	if width <= 0 {
		width = config.DefaultImageWidth
	}
	if height <= 0 {
		height = config.DefaultImageHeight
	}
	steps := req.Steps
	if steps <= 0 {
		steps = config.DefaultSteps
	}
	guidance := req.Guidance
	if guidance <= 0 {
		guidance = config.DefaultGuidance
	}
	sampler := req.Sampler
	if sampler == "" {
		sampler = "euler"
	}
	scheduler := req.Scheduler
	if scheduler == "" {
		scheduler = "normal"
	}

	graph := map[string]any{
		"1": map[string]any{
			"class_type": "CheckpointLoaderSimple",
			"inputs":     map[string]any{"ckpt_name": model},
		},
	}

	// modelRef/clipRef track the tail of the LoRA chain.
	modelRef := []any{"1", 0}
	clipRef := []any{"1", 1}
	nodeID := 2
	for _, adapter := range req.StyleAdapters {
		strength := adapter.Strength
		if strength == 0 {
			strength = 1.0
		}
		id := strconv.Itoa(nodeID)
		graph[id] = map[string]any{
			"class_type": "LoraLoader",
			"inputs": map[string]any{
				"lora_name":      adapter.Path,
				"strength_model": strength,
				"strength_clip":  strength,
				"model":          modelRef,
				"clip":           clipRef,
			},
		}
		modelRef = []any{id, 0}
		clipRef = []any{id, 1}
		nodeID++
	}

	positive := strconv.Itoa(nodeID)
	negative := strconv.Itoa(nodeID + 1)
	latent := strconv.Itoa(nodeID + 2)
	sampler2 := strconv.Itoa(nodeID + 3)
	decode := strconv.Itoa(nodeID + 4)
	save := strconv.Itoa(nodeID + 5)

	graph[positive] = map[string]any{
		"class_type": "CLIPTextEncode",
		"inputs":     map[string]any{"text": req.Prompt, "clip": clipRef},
	}
	graph[negative] = map[string]any{
		"class_type": "CLIPTextEncode",
		"inputs":     map[string]any{"text": req.NegativePrompt, "clip": clipRef},
	}
	graph[latent] = map[string]any{
		"class_type": "EmptyLatentImage",
		"inputs": map[string]any{
			"width":      width,
			"height":     height,
			"batch_size": req.EffectiveCount(),
		},
	}
	graph[sampler2] = map[string]any{
		"class_type": "KSampler",
		"inputs": map[string]any{
			"model":        modelRef,
			"positive":     []any{positive, 0},
			"negative":     []any{negative, 0},
			"latent_image": []any{latent, 0},
			"seed":         req.Seed,
			"steps":        steps,
			"cfg":          guidance,
			"sampler_name": sampler,
			"scheduler":    scheduler,
			"denoise":      1.0,
		},
	}
	graph[decode] = map[string]any{
		"class_type": "VAEDecode",
		"inputs":     map[string]any{"samples": []any{sampler2, 0}, "vae": []any{"1", 2}},
	}
	graph[save] = map[string]any{
		"class_type": "SaveImage",
		"inputs":     map[string]any{"images": []any{decode, 0}, "filename_prefix": "vibeboard"},
	}

	return graph
}

// buildVideoGraph reuses the txt2img skeleton with a video checkpoint and a
// WEBP writer. Image-to-video modes VAE-encode the first source image and
// sample from that latent instead of the empty one.
func (a *comfyAdapter) buildVideoGraph(req *GenerationRequest, model string) map[string]any {
	graph := a.buildImageGraph(req, model)

	// Replace the SaveImage sink with an animated writer.
	for id, raw := range graph {
		node, ok := raw.(map[string]any)
		if !ok || node["class_type"] != "SaveImage" {
			continue
		}
		inputs := node["inputs"].(map[string]any)
		graph[id] = map[string]any{
			"class_type": "SaveAnimatedWEBP",
			"inputs": map[string]any{
				"images":          inputs["images"],
				"filename_prefix": "vibeboard",
				"fps":             16,
				"lossless":        false,
				"quality":         90,
			},
		}
	}

	if req.Mode == VideoImageToVideo && len(req.SourceImages) > 0 {
		graph["img2vid_source"] = map[string]any{
			"class_type": "LoadImage",
			"inputs":     map[string]any{"image": req.SourceImages[0]},
		}
		graph["img2vid_latent"] = map[string]any{
			"class_type": "VAEEncode",
			"inputs": map[string]any{
				"pixels": []any{"img2vid_source", 0},
				"vae":    []any{"1", 2},
			},
		}
		for id, raw := range graph {
			node, ok := raw.(map[string]any)
			if !ok {
				continue
			}
			switch node["class_type"] {
			case "KSampler":
				inputs := node["inputs"].(map[string]any)
				inputs["latent_image"] = []any{"img2vid_latent", 0}
				// Partial denoise so the sampler animates the source frame
				// instead of repainting it from scratch.
				inputs["denoise"] = 0.85
			case "EmptyLatentImage":
				delete(graph, id)
			}
		}
	}

	return graph
}
