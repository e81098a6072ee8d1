package provider

import (
	"context"
	"fmt"
	"net/http"

	"github.com/mattyatplay-coder/vibeboard/pkg/logging"
)

const (
	openaiDefaultBaseURL = "https://api.openai.com/v1"
	openaiDefaultModel   = "gpt-image-1"
)

// openaiAdapter drives the OpenAI Images API. Generation is synchronous:
// the response carries the finished outputs, so there is nothing to poll.
type openaiAdapter struct {
	client *apiClient
}

func newOpenAIAdapter(apiKey, baseURL string, logger *logging.Logger) *openaiAdapter {
	if baseURL == "" {
		baseURL = openaiDefaultBaseURL
	}
	setAuth := func(req *http.Request) {
		req.Header.Set("Authorization", "Bearer "+apiKey)
	}
	return &openaiAdapter{client: newAPIClient(KindOpenAI, baseURL, setAuth, logger)}
}

func (a *openaiAdapter) Kind() Kind { return KindOpenAI }

type openaiImageResponse struct {
	Data []struct {
		URL     string `json:"url"`
		B64JSON string `json:"b64_json"`
	} `json:"data"`
}

func (a *openaiAdapter) GenerateImage(ctx context.Context, req *GenerationRequest) (*GenerationResult, error) {
	model := req.Model
	if model == "" {
		model = openaiDefaultModel
	}

	payload := map[string]any{
		"model":  model,
		"prompt": req.Prompt,
		"n":      req.EffectiveCount(),
	}
	if size := openaiSize(req); size != "" {
		payload["size"] = size
	}
	// dall-e-3 only generates one image per request.
	if model == "dall-e-3" {
		payload["n"] = 1
	}

	var resp openaiImageResponse
	if err := a.client.postJSON(ctx, "/images/generations", payload, &resp); err != nil {
		return nil, err
	}

	var outputs []string
	for _, item := range resp.Data {
		switch {
		case item.URL != "":
			outputs = append(outputs, item.URL)
		case item.B64JSON != "":
			outputs = append(outputs, "data:image/png;base64,"+item.B64JSON)
		}
	}
	if len(outputs) == 0 {
		return &GenerationResult{Status: StatusFailed, Error: "response carried no images"}, nil
	}
	return &GenerationResult{Status: StatusSucceeded, Outputs: outputs}, nil
}

func (a *openaiAdapter) GenerateVideo(ctx context.Context, req *GenerationRequest) (*GenerationResult, error) {
	return nil, fmt.Errorf("video generation is not supported")
}

func (a *openaiAdapter) CheckStatus(ctx context.Context, id string) (*GenerationResult, error) {
	// Image generation is synchronous; no id ever belongs to this backend.
	return nil, fmt.Errorf("unknown generation id: %s", id)
}

// openaiSize maps requested dimensions onto the API's supported size grid.
func openaiSize(req *GenerationRequest) string {
	w, h := req.Width, req.Height
	switch {
	case w == 0 && h == 0:
		return ""
	case w > h:
		return "1792x1024"
	case h > w:
		return "1024x1792"
	default:
		return "1024x1024"
	}
}
