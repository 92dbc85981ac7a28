package handlers

import (
	"encoding/base64"
	"errors"
	"io"
	"net/http"
	"strings"
)

// HandleAnalyzeUpload accepts a frame as a multipart file instead of a data
// URL. Form fields mirror the JSON body; interests may repeat.
func (h *Handler) HandleAnalyzeUpload(w http.ResponseWriter, r *http.Request) {
	if !h.allowPost(w, r) {
		return
	}

	if err := r.ParseMultipartForm(h.maxBodyBytes); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			h.writeError(w, r, "Request body too large", http.StatusRequestEntityTooLarge)
			return
		}
		h.writeError(w, r, "Invalid multipart form", http.StatusBadRequest)
		return
	}

	file, _, err := r.FormFile("file")
	if err != nil {
		file, _, err = r.FormFile("image")
		if err != nil {
			h.writeError(w, r, "No image provided", http.StatusBadRequest)
			return
		}
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		h.writeError(w, r, "Failed to read file contents", http.StatusBadRequest)
		return
	}
	if len(data) == 0 {
		h.writeError(w, r, "No image provided", http.StatusBadRequest)
		return
	}

	var interests []string
	for _, v := range r.MultipartForm.Value["interests"] {
		for _, interest := range strings.Split(v, ",") {
			if interest = strings.TrimSpace(interest); interest != "" {
				interests = append(interests, interest)
			}
		}
	}

	h.analyze(w, r, analyzeRequest{
		Image:        base64.StdEncoding.EncodeToString(data),
		SessionID:    r.FormValue("session_id"),
		LocationHint: r.FormValue("location_hint"),
		Interests:    interests,
	})
}
