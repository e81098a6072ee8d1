package provider

import (
	"context"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/mattyatplay-coder/vibeboard/pkg/logging"
)

const (
	falDefaultBaseURL    = "https://queue.fal.run"
	falDefaultImageModel = "fal-ai/flux/dev"
	falDefaultVideoModel = "fal-ai/kling-video/v2/master"

	falPollInterval = 2 * time.Second
	falMaxWait      = 10 * time.Minute
)

// falAdapter drives the fal.ai queue API: submit to /{model}, poll the
// request's status endpoint, fetch the response when complete. Status checks
// need the model path, so the adapter remembers which model each request id
// was submitted under.
type falAdapter struct {
	client *apiClient

	mu       sync.Mutex
	requests map[string]string // request id -> model path
}

func newFalAdapter(apiKey, baseURL string, logger *logging.Logger) *falAdapter {
	if baseURL == "" {
		baseURL = falDefaultBaseURL
	}
	setAuth := func(req *http.Request) {
		req.Header.Set("Authorization", "Key "+apiKey)
	}
	return &falAdapter{
		client:   newAPIClient(KindFal, baseURL, setAuth, logger),
		requests: make(map[string]string),
	}
}

func (a *falAdapter) Kind() Kind { return KindFal }

type falQueueResponse struct {
	RequestID string `json:"request_id"`
}

type falStatusResponse struct {
	Status string `json:"status"`
}

type falResultResponse struct {
	Images []struct {
		URL string `json:"url"`
	} `json:"images"`
	Video struct {
		URL string `json:"url"`
	} `json:"video"`
	Seed  int64 `json:"seed"`
	Error any   `json:"error"`
}

func (a *falAdapter) GenerateImage(ctx context.Context, req *GenerationRequest) (*GenerationResult, error) {
	model := req.Model
	if model == "" {
		model = falDefaultImageModel
	}
	payload := map[string]any{
		"prompt":     req.Prompt,
		"num_images": req.EffectiveCount(),
	}
	if req.NegativePrompt != "" {
		payload["negative_prompt"] = req.NegativePrompt
	}
	if req.Width > 0 && req.Height > 0 {
		payload["image_size"] = map[string]int{"width": req.Width, "height": req.Height}
	}
	if req.Seed != 0 {
		payload["seed"] = req.Seed
	}
	if req.Steps > 0 {
		payload["num_inference_steps"] = req.Steps
	}
	if req.Guidance > 0 {
		payload["guidance_scale"] = req.Guidance
	}
	return a.submitAndWait(ctx, model, payload)
}

func (a *falAdapter) GenerateVideo(ctx context.Context, req *GenerationRequest) (*GenerationResult, error) {
	model := req.Model
	if model == "" {
		model = falDefaultVideoModel
	}
	payload := map[string]any{
		"prompt": req.Prompt,
	}
	if req.Mode == VideoImageToVideo && len(req.SourceImages) > 0 {
		payload["image_url"] = req.SourceImages[0]
	}
	if req.AspectRatio != "" {
		payload["aspect_ratio"] = req.AspectRatio
	}
	return a.submitAndWait(ctx, model, payload)
}

func (a *falAdapter) CheckStatus(ctx context.Context, id string) (*GenerationResult, error) {
	a.mu.Lock()
	model, ok := a.requests[id]
	a.mu.Unlock()
	if !ok {
		return nil, fmt.Errorf("unknown request id: %s", id)
	}
	return a.poll(ctx, model, id)
}

func (a *falAdapter) submitAndWait(ctx context.Context, model string, payload map[string]any) (*GenerationResult, error) {
	var queued falQueueResponse
	if err := a.client.postJSON(ctx, "/"+model, payload, &queued); err != nil {
		return nil, err
	}
	if queued.RequestID == "" {
		return nil, fmt.Errorf("queue returned no request id")
	}

	a.mu.Lock()
	a.requests[queued.RequestID] = model
	a.mu.Unlock()

	deadline := time.Now().Add(falMaxWait)
	ticker := time.NewTicker(falPollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return &GenerationResult{ID: queued.RequestID, Status: StatusRunning}, nil
		case <-ticker.C:
		}

		result, err := a.poll(ctx, model, queued.RequestID)
		if err == nil && result.Status.Terminal() {
			return result, nil
		}
		if time.Now().After(deadline) {
			return &GenerationResult{
				ID:     queued.RequestID,
				Status: StatusFailed,
				Error:  fmt.Sprintf("timed out after %v waiting for queue", falMaxWait),
			}, nil
		}
	}
}

func (a *falAdapter) poll(ctx context.Context, model, id string) (*GenerationResult, error) {
	var status falStatusResponse
	statusPath := fmt.Sprintf("/%s/requests/%s/status", model, id)
	if err := a.client.getJSON(ctx, statusPath, &status); err != nil {
		return nil, err
	}

	switch status.Status {
	case "IN_QUEUE":
		return &GenerationResult{ID: id, Status: StatusQueued}, nil
	case "IN_PROGRESS":
		return &GenerationResult{ID: id, Status: StatusRunning}, nil
	case "COMPLETED":
	default:
		return &GenerationResult{
			ID:     id,
			Status: StatusFailed,
			Error:  fmt.Sprintf("queue reported status %q", status.Status),
		}, nil
	}

	var result falResultResponse
	resultPath := fmt.Sprintf("/%s/requests/%s", model, id)
	if err := a.client.getJSON(ctx, resultPath, &result); err != nil {
		return nil, err
	}

	var outputs []string
	for _, img := range result.Images {
		if img.URL != "" {
			outputs = append(outputs, img.URL)
		}
	}
	if result.Video.URL != "" {
		outputs = append(outputs, result.Video.URL)
	}
	if len(outputs) == 0 {
		return &GenerationResult{ID: id, Status: StatusFailed, Error: "completed with no outputs"}, nil
	}
	return &GenerationResult{ID: id, Status: StatusSucceeded, Outputs: outputs, Seed: result.Seed}, nil
}
