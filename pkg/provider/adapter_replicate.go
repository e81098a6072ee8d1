package provider

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/mattyatplay-coder/vibeboard/pkg/logging"
)

const (
	replicateDefaultBaseURL    = "https://api.replicate.com/v1"
	replicateDefaultImageModel = "black-forest-labs/flux-dev"
	replicateDefaultVideoModel = "minimax/video-01"

	replicatePollInterval = 2 * time.Second
	replicateMaxWait      = 10 * time.Minute
)

// replicateAdapter drives the Replicate predictions API: create a prediction
// under /models/{model}/predictions and poll /predictions/{id} until it
// reaches a terminal state. Prediction ids are globally unique, so status
// checks need no bookkeeping.
type replicateAdapter struct {
	client *apiClient
}

func newReplicateAdapter(token, baseURL string, logger *logging.Logger) *replicateAdapter {
	if baseURL == "" {
		baseURL = replicateDefaultBaseURL
	}
	setAuth := func(req *http.Request) {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	return &replicateAdapter{client: newAPIClient(KindReplicate, baseURL, setAuth, logger)}
}

func (a *replicateAdapter) Kind() Kind { return KindReplicate }

type replicatePrediction struct {
	ID     string          `json:"id"`
	Status string          `json:"status"`
	Output json.RawMessage `json:"output"`
	Error  string          `json:"error"`
}

func (a *replicateAdapter) GenerateImage(ctx context.Context, req *GenerationRequest) (*GenerationResult, error) {
	model := req.Model
	if model == "" {
		model = replicateDefaultImageModel
	}
	input := map[string]any{
		"prompt":      req.Prompt,
		"num_outputs": req.EffectiveCount(),
	}
	if req.NegativePrompt != "" {
		input["negative_prompt"] = req.NegativePrompt
	}
	if req.AspectRatio != "" {
		input["aspect_ratio"] = req.AspectRatio
	} else if req.Width > 0 && req.Height > 0 {
		input["width"] = req.Width
		input["height"] = req.Height
	}
	if req.Seed != 0 {
		input["seed"] = req.Seed
	}
	if req.Steps > 0 {
		input["num_inference_steps"] = req.Steps
	}
	if req.Guidance > 0 {
		input["guidance"] = req.Guidance
	}
	// Only the first adapter maps; the API takes a single weights reference.
	if len(req.StyleAdapters) > 0 {
		input["lora_weights"] = req.StyleAdapters[0].Path
		if req.StyleAdapters[0].Strength > 0 {
			input["lora_scale"] = req.StyleAdapters[0].Strength
		}
	}
	return a.submitAndWait(ctx, model, input)
}

func (a *replicateAdapter) GenerateVideo(ctx context.Context, req *GenerationRequest) (*GenerationResult, error) {
	model := req.Model
	if model == "" {
		model = replicateDefaultVideoModel
	}
	input := map[string]any{
		"prompt": req.Prompt,
	}
	if req.Mode == VideoImageToVideo && len(req.SourceImages) > 0 {
		input["first_frame_image"] = req.SourceImages[0]
	}
	return a.submitAndWait(ctx, model, input)
}

func (a *replicateAdapter) CheckStatus(ctx context.Context, id string) (*GenerationResult, error) {
	var pred replicatePrediction
	if err := a.client.getJSON(ctx, "/predictions/"+id, &pred); err != nil {
		return nil, err
	}
	return a.resultFromPrediction(&pred), nil
}

func (a *replicateAdapter) submitAndWait(ctx context.Context, model string, input map[string]any) (*GenerationResult, error) {
	payload := map[string]any{"input": input}
	var pred replicatePrediction
	if err := a.client.postJSON(ctx, "/models/"+model+"/predictions", payload, &pred); err != nil {
		return nil, err
	}
	if pred.ID == "" {
		return nil, fmt.Errorf("prediction created with no id")
	}

	deadline := time.Now().Add(replicateMaxWait)
	ticker := time.NewTicker(replicatePollInterval)
	defer ticker.Stop()

	for {
		result := a.resultFromPrediction(&pred)
		if result.Status.Terminal() {
			return result, nil
		}
		if time.Now().After(deadline) {
			return &GenerationResult{
				ID:     pred.ID,
				Status: StatusFailed,
				Error:  fmt.Sprintf("timed out after %v waiting for prediction", replicateMaxWait),
			}, nil
		}

		select {
		case <-ctx.Done():
			return &GenerationResult{ID: pred.ID, Status: StatusRunning}, nil
		case <-ticker.C:
		}

		if err := a.client.getJSON(ctx, "/predictions/"+pred.ID, &pred); err != nil {
			return nil, err
		}
	}
}

func (a *replicateAdapter) resultFromPrediction(pred *replicatePrediction) *GenerationResult {
	switch pred.Status {
	case "starting":
		return &GenerationResult{ID: pred.ID, Status: StatusQueued}
	case "processing":
		return &GenerationResult{ID: pred.ID, Status: StatusRunning}
	case "succeeded":
		outputs := parseReplicateOutput(pred.Output)
		if len(outputs) == 0 {
			return &GenerationResult{ID: pred.ID, Status: StatusFailed, Error: "prediction succeeded with no outputs"}
		}
		return &GenerationResult{ID: pred.ID, Status: StatusSucceeded, Outputs: outputs}
	default:
		msg := pred.Error
		if msg == "" {
			msg = fmt.Sprintf("prediction ended with status %q", pred.Status)
		}
		return &GenerationResult{ID: pred.ID, Status: StatusFailed, Error: msg}
	}
}

// parseReplicateOutput handles the two output shapes the API produces: a
// single URL string or an array of URL strings.
func parseReplicateOutput(raw json.RawMessage) []string {
	if len(raw) == 0 {
		return nil
	}
	var single string
	if err := json.Unmarshal(raw, &single); err == nil && single != "" {
		return []string{single}
	}
	var many []string
	if err := json.Unmarshal(raw, &many); err == nil {
		return many
	}
	return nil
}
