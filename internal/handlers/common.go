package handlers

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/lehigh-university-libraries/tourlens/internal/guide"
	"github.com/lehigh-university-libraries/tourlens/internal/storage"
)

// DefaultMaxBodyBytes caps request bodies when no limit is configured
const DefaultMaxBodyBytes = 10 << 20

type Handler struct {
	sessionStore storage.Store
	guide        *guide.Service
	staticDir    string
	maxBodyBytes int64
}

// Options configures the HTTP surface
type Options struct {
	StaticDir    string
	MaxBodyBytes int64
}

func New(store storage.Store, svc *guide.Service, opts Options) *Handler {
	if opts.MaxBodyBytes <= 0 {
		opts.MaxBodyBytes = DefaultMaxBodyBytes
	}
	return &Handler{
		sessionStore: store,
		guide:        svc,
		staticDir:    opts.StaticDir,
		maxBodyBytes: opts.MaxBodyBytes,
	}
}

// Routes returns the full route table wrapped in the request middleware
func (h *Handler) Routes() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/analyze", h.HandleAnalyze)
	mux.HandleFunc("/api/analyze", h.HandleAnalyze)
	mux.HandleFunc("/api/analyze/upload", h.HandleAnalyzeUpload)
	mux.HandleFunc("/ask", h.HandleAsk)
	mux.HandleFunc("/api/ask", h.HandleAsk)
	mux.HandleFunc("/api/sessions", h.HandleSessions)
	mux.HandleFunc("/api/sessions/", h.HandleSessionDetail)
	mux.HandleFunc("/healthcheck", func(w http.ResponseWriter, r *http.Request) {
		if _, err := w.Write([]byte("OK")); err != nil {
			slog.Error("Unable to write healthcheck", "err", err)
		}
	})
	mux.HandleFunc("/", h.HandleStatic)
	return h.middleware(mux)
}

// Response helpers
func (h *Handler) writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		slog.Error("Unable to encode JSON response", "err", err)
	}
}

type errorResponse struct {
	Error string `json:"error"`
}

func (h *Handler) writeError(w http.ResponseWriter, r *http.Request, message string, code int) {
	slog.Warn(message, "request_id", requestID(r.Context()), "path", r.URL.Path, "status", code)
	h.writeJSON(w, code, errorResponse{Error: message})
}

// decodeJSON reads a bounded JSON body into dst, answering 400 itself on failure
func (h *Handler) decodeJSON(w http.ResponseWriter, r *http.Request, dst any) bool {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			h.writeError(w, r, "Request body too large", http.StatusRequestEntityTooLarge)
			return false
		}
		h.writeError(w, r, "Invalid JSON body", http.StatusBadRequest)
		return false
	}
	return true
}

// allowPost rejects every method but POST
func (h *Handler) allowPost(w http.ResponseWriter, r *http.Request) bool {
	if r.Method != http.MethodPost {
		w.Header().Set("Allow", http.MethodPost)
		h.writeError(w, r, "Method not allowed", http.StatusMethodNotAllowed)
		return false
	}
	return true
}
