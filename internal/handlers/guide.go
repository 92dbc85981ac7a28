package handlers

import (
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/lehigh-university-libraries/tourlens/internal/guide"
	"github.com/lehigh-university-libraries/tourlens/internal/images"
	"github.com/lehigh-university-libraries/tourlens/internal/models"
)

type analyzeRequest struct {
	Image        string   `json:"image"`
	SessionID    string   `json:"session_id"`
	LocationHint string   `json:"location_hint"`
	Interests    []string `json:"interests"`
}

type askRequest struct {
	Question     string `json:"question"`
	Image        string `json:"image"`
	SessionID    string `json:"session_id"`
	SceneContext string `json:"scene_context"`
}

// askResponse always carries updated_pois, null when nothing changed
type askResponse struct {
	Answer              string       `json:"answer"`
	UpdatedPOIs         []models.POI `json:"updated_pois"`
	FollowUpSuggestions []string     `json:"follow_up_suggestions"`
}

func (h *Handler) HandleAnalyze(w http.ResponseWriter, r *http.Request) {
	if !h.allowPost(w, r) {
		return
	}

	var req analyzeRequest
	if !h.decodeJSON(w, r, &req) {
		return
	}
	h.analyze(w, r, req)
}

func (h *Handler) analyze(w http.ResponseWriter, r *http.Request, req analyzeRequest) {
	if strings.TrimSpace(req.Image) == "" {
		h.writeError(w, r, "No image provided", http.StatusBadRequest)
		return
	}
	if strings.TrimSpace(req.SessionID) == "" {
		h.writeError(w, r, "No session_id provided", http.StatusBadRequest)
		return
	}

	scene, err := h.guide.Analyze(r.Context(), guide.AnalyzeRequest{
		Image:        req.Image,
		SessionID:    req.SessionID,
		LocationHint: req.LocationHint,
		Interests:    req.Interests,
	})
	if err != nil {
		h.writeGuideError(w, r, err, "Failed to analyze image")
		return
	}

	h.writeJSON(w, http.StatusOK, scene)
}

func (h *Handler) HandleAsk(w http.ResponseWriter, r *http.Request) {
	if !h.allowPost(w, r) {
		return
	}

	var req askRequest
	if !h.decodeJSON(w, r, &req) {
		return
	}
	if strings.TrimSpace(req.Question) == "" {
		h.writeError(w, r, "No question provided", http.StatusBadRequest)
		return
	}
	if strings.TrimSpace(req.SessionID) == "" {
		h.writeError(w, r, "No session_id provided", http.StatusBadRequest)
		return
	}

	result, err := h.guide.Ask(r.Context(), guide.AskRequest{
		Question:     req.Question,
		SessionID:    req.SessionID,
		SceneContext: req.SceneContext,
		Image:        req.Image,
	})
	if err != nil {
		h.writeGuideError(w, r, err, "Failed to process question")
		return
	}

	h.writeJSON(w, http.StatusOK, askResponse{
		Answer:              result.Answer,
		UpdatedPOIs:         result.UpdatedPOIs,
		FollowUpSuggestions: result.FollowUpSuggestions,
	})
}

// writeGuideError logs the internal category and answers with a stable message.
// Oracle failures never leak detail to the caller.
func (h *Handler) writeGuideError(w http.ResponseWriter, r *http.Request, err error, failure string) {
	category := guide.Category(err)
	switch {
	case errors.Is(err, images.ErrInvalidImage):
		h.writeError(w, r, "Invalid image provided", http.StatusBadRequest)
	case errors.Is(err, guide.ErrInvalidRequest):
		h.writeError(w, r, "Invalid request", http.StatusBadRequest)
	default:
		slog.Error(failure, "request_id", requestID(r.Context()), "category", category, "err", err)
		h.writeJSON(w, http.StatusInternalServerError, errorResponse{Error: failure})
	}
}
