package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	vberrors "github.com/mattyatplay-coder/vibeboard/pkg/errors"
	"github.com/mattyatplay-coder/vibeboard/pkg/provider"
	"github.com/mattyatplay-coder/vibeboard/pkg/storage"
)

// GenerateResponse is the response body for generation calls.
type GenerateResponse struct {
	Result        *provider.GenerationResult `json:"result"`
	EstimatedCost float64                    `json:"estimated_cost"`
	BudgetWarning string                     `json:"budget_warning,omitempty"`
}

func (s *Server) handleGenerateImage(w http.ResponseWriter, r *http.Request) {
	s.handleGenerate(w, r, provider.MediaImage)
}

func (s *Server) handleGenerateVideo(w http.ResponseWriter, r *http.Request) {
	s.handleGenerate(w, r, provider.MediaVideo)
}

func (s *Server) handleGenerate(w http.ResponseWriter, r *http.Request, media provider.MediaKind) {
	var req provider.GenerationRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}
	if req.Prompt == "" && req.Mode != provider.VideoImageToVideo {
		writeError(w, http.StatusBadRequest, "prompt is required")
		return
	}
	s.applyDefaults(&req)

	var result *provider.GenerationResult
	var err error
	if media == provider.MediaVideo {
		result, err = s.dispatcher.GenerateVideo(r.Context(), &req)
	} else {
		result, err = s.dispatcher.GenerateImage(r.Context(), &req)
	}
	if err != nil {
		writeDomainError(w, err)
		return
	}
	if result.Status == provider.StatusFailed {
		writeDomainError(w, provider.AggregateError(result))
		return
	}

	resp := GenerateResponse{Result: result}
	if result.Succeeded() && result.Provider != "" {
		resp.EstimatedCost = provider.EstimateCost(result.Provider, media, req.Count)
		if resp.EstimatedCost >= provider.CostUnsupported {
			resp.EstimatedCost = 0
		}
		if s.tracker != nil {
			s.tracker.Record(resp.EstimatedCost)
			status := s.tracker.CheckBudget()
			resp.BudgetWarning = status.GetWarningMessage()
			s.notifier.Check(status)
		}
	}

	status := http.StatusOK
	if !result.Status.Terminal() {
		status = http.StatusAccepted
	}
	writeJSON(w, status, resp)
}

// applyDefaults fills omitted request fields from configuration.
func (s *Server) applyDefaults(req *provider.GenerationRequest) {
	if s.cfg == nil {
		return
	}
	gen := s.cfg.Generation
	if req.Width == 0 && req.AspectRatio == "" {
		req.Width = gen.Width
	}
	if req.Height == 0 && req.AspectRatio == "" {
		req.Height = gen.Height
	}
	if req.Steps == 0 {
		req.Steps = gen.Steps
	}
	if req.Guidance == 0 {
		req.Guidance = gen.Guidance
	}
	if req.Count == 0 {
		req.Count = gen.Count
	}
}

func (s *Server) handleGetGeneration(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	if s.store != nil {
		rec, err := s.store.GetGeneration(id)
		if err == nil {
			writeJSON(w, http.StatusOK, rec)
			return
		}
		if !errors.Is(err, storage.ErrNotFound) {
			writeError(w, http.StatusInternalServerError, err.Error())
			return
		}
	}

	// Not in history yet; ask the live backends.
	result, err := s.dispatcher.CheckStatus(r.Context(), id)
	if err != nil {
		writeError(w, http.StatusNotFound, "generation not found: "+id)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func (s *Server) handleListGenerations(w http.ResponseWriter, r *http.Request) {
	if s.store == nil {
		writeJSON(w, http.StatusOK, []any{})
		return
	}
	limit := 50
	if v := r.URL.Query().Get("limit"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 && n <= 500 {
			limit = n
		}
	}
	recs, err := s.store.ListRecent(limit)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, recs)
}

type providerInfo struct {
	Kind                  string   `json:"kind"`
	DisplayName           string   `json:"display_name"`
	Category              string   `json:"category"`
	Priority              int      `json:"priority"`
	SupportsImage         bool     `json:"supports_image"`
	SupportsVideo         bool     `json:"supports_video"`
	SupportsStyleAdapters bool     `json:"supports_style_adapters"`
	CostPerImage          float64  `json:"cost_per_image,omitempty"`
	CostPerVideo          float64  `json:"cost_per_video,omitempty"`
	ImageModels           []string `json:"image_models,omitempty"`
	VideoModels           []string `json:"video_models,omitempty"`
}

func (s *Server) handleListProviders(w http.ResponseWriter, r *http.Request) {
	usable := s.dispatcher.Registry().ListUsable()
	if media := provider.MediaKind(r.URL.Query().Get("media")); media != "" {
		usable = s.dispatcher.Registry().ListCapable(media)
	}
	out := make([]providerInfo, 0, len(usable))
	for _, ub := range usable {
		d := ub.Descriptor
		info := providerInfo{
			Kind:                  string(d.Kind),
			DisplayName:           d.DisplayName,
			Category:              string(d.Category),
			Priority:              d.Priority,
			SupportsImage:         d.SupportsImage,
			SupportsVideo:         d.SupportsVideo,
			SupportsStyleAdapters: d.SupportsStyleAdapters,
			ImageModels:           d.ImageModels,
			VideoModels:           d.VideoModels,
		}
		if d.CostPerImage < provider.CostUnsupported {
			info.CostPerImage = d.CostPerImage
		}
		if d.CostPerVideo < provider.CostUnsupported {
			info.CostPerVideo = d.CostPerVideo
		}
		out = append(out, info)
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleListModels(w http.ResponseWriter, r *http.Request) {
	media := provider.MediaKind(r.URL.Query().Get("media"))
	if media == "" {
		media = provider.MediaImage
	}
	type modelInfo struct {
		Provider string `json:"provider"`
		Model    string `json:"model"`
	}
	var out []modelInfo
	for _, ub := range s.dispatcher.Registry().ListCapable(media) {
		for _, m := range ub.Descriptor.ModelsFor(media) {
			out = append(out, modelInfo{Provider: string(ub.Descriptor.Kind), Model: m})
		}
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleCostSummary(w http.ResponseWriter, r *http.Request) {
	if s.tracker == nil {
		writeError(w, http.StatusServiceUnavailable, "cost tracking not configured")
		return
	}
	writeJSON(w, http.StatusOK, s.tracker.CheckBudget())
}

func (s *Server) handleCostEstimate(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	kind := provider.Kind(q.Get("provider"))
	media := provider.MediaKind(q.Get("media"))
	if media == "" {
		media = provider.MediaImage
	}
	count := 1
	if v := q.Get("count"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			count = n
		}
	}

	if _, ok := provider.DescriptorFor(kind); !ok {
		writeError(w, http.StatusBadRequest, "unknown provider: "+string(kind))
		return
	}
	estimate := provider.EstimateCost(kind, media, count)
	if estimate >= provider.CostUnsupported {
		writeError(w, http.StatusBadRequest, "provider does not support "+string(media))
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"provider": kind,
		"media":    media,
		"count":    count,
		"usd":      estimate,
	})
}

// writeDomainError maps typed errors onto HTTP statuses.
func writeDomainError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	switch vberrors.GetCode(err) {
	case vberrors.ErrCodeCapabilityUnavailable, vberrors.ErrCodeProviderSkipped:
		status = http.StatusConflict
	case vberrors.ErrCodeInvalidInput:
		status = http.StatusBadRequest
	case vberrors.ErrCodeAllProvidersFailed:
		status = http.StatusBadGateway
	}
	writeError(w, status, err.Error())
}

// Helpers
func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}
