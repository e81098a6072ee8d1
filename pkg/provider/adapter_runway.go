package provider

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/mattyatplay-coder/vibeboard/pkg/logging"
)

const (
	runwayDefaultBaseURL = "https://api.dev.runwayml.com/v1"
	runwayDefaultModel   = "gen4_turbo"
	runwayAPIVersion     = "2024-11-06"

	runwayPollInterval = 3 * time.Second
	runwayMaxWait      = 10 * time.Minute
)

// runwayAdapter drives the Runway task API: create an image_to_video task,
// poll /tasks/{id} until it settles. Text-to-video without a source frame is
// served through the same endpoint with a prompt only.
type runwayAdapter struct {
	client *apiClient
}

func newRunwayAdapter(apiKey, baseURL string, logger *logging.Logger) *runwayAdapter {
	if baseURL == "" {
		baseURL = runwayDefaultBaseURL
	}
	setAuth := func(req *http.Request) {
		req.Header.Set("Authorization", "Bearer "+apiKey)
		req.Header.Set("X-Runway-Version", runwayAPIVersion)
	}
	return &runwayAdapter{client: newAPIClient(KindRunway, baseURL, setAuth, logger)}
}

func (a *runwayAdapter) Kind() Kind { return KindRunway }

type runwayTask struct {
	ID      string   `json:"id"`
	Status  string   `json:"status"`
	Output  []string `json:"output"`
	Failure string   `json:"failure"`
}

func (a *runwayAdapter) GenerateImage(ctx context.Context, req *GenerationRequest) (*GenerationResult, error) {
	return nil, fmt.Errorf("image generation is not supported")
}

func (a *runwayAdapter) GenerateVideo(ctx context.Context, req *GenerationRequest) (*GenerationResult, error) {
	model := req.Model
	if model == "" {
		model = runwayDefaultModel
	}

	payload := map[string]any{
		"model":      model,
		"promptText": req.Prompt,
	}
	if len(req.SourceImages) > 0 {
		payload["promptImage"] = req.SourceImages[0]
	}
	if req.AspectRatio != "" {
		payload["ratio"] = req.AspectRatio
	}
	if req.Seed != 0 {
		payload["seed"] = req.Seed
	}

	var task runwayTask
	if err := a.client.postJSON(ctx, "/image_to_video", payload, &task); err != nil {
		return nil, err
	}
	if task.ID == "" {
		return nil, fmt.Errorf("task created with no id")
	}

	deadline := time.Now().Add(runwayMaxWait)
	ticker := time.NewTicker(runwayPollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return &GenerationResult{ID: task.ID, Status: StatusRunning}, nil
		case <-ticker.C:
		}

		result, err := a.CheckStatus(ctx, task.ID)
		if err == nil && result.Status.Terminal() {
			return result, nil
		}
		if time.Now().After(deadline) {
			return &GenerationResult{
				ID:     task.ID,
				Status: StatusFailed,
				Error:  fmt.Sprintf("timed out after %v waiting for task", runwayMaxWait),
			}, nil
		}
	}
}

func (a *runwayAdapter) CheckStatus(ctx context.Context, id string) (*GenerationResult, error) {
	var task runwayTask
	if err := a.client.getJSON(ctx, "/tasks/"+id, &task); err != nil {
		return nil, err
	}
	return a.resultFromTask(&task), nil
}

func (a *runwayAdapter) resultFromTask(task *runwayTask) *GenerationResult {
	switch task.Status {
	case "PENDING", "THROTTLED":
		return &GenerationResult{ID: task.ID, Status: StatusQueued}
	case "RUNNING":
		return &GenerationResult{ID: task.ID, Status: StatusRunning}
	case "SUCCEEDED":
		if len(task.Output) == 0 {
			return &GenerationResult{ID: task.ID, Status: StatusFailed, Error: "task succeeded with no outputs"}
		}
		return &GenerationResult{ID: task.ID, Status: StatusSucceeded, Outputs: task.Output}
	default:
		msg := task.Failure
		if msg == "" {
			msg = fmt.Sprintf("task ended with status %q", task.Status)
		}
		return &GenerationResult{ID: task.ID, Status: StatusFailed, Error: msg}
	}
}
