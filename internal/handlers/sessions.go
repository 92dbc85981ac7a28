package handlers

import (
	"net/http"
	"strings"
	"time"
)

// sessionSummary is one row of the session listing
type sessionSummary struct {
	ID            string    `json:"id"`
	MemoryEntries int       `json:"memory_entries"`
	HasScene      bool      `json:"has_scene"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}

func (h *Handler) HandleSessions(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		sessions := h.sessionStore.List()
		sessionList := make([]sessionSummary, 0, len(sessions))
		for _, session := range sessions {
			sessionList = append(sessionList, sessionSummary{
				ID:            session.ID,
				MemoryEntries: len(session.Memory),
				HasScene:      session.LastScene != nil,
				CreatedAt:     session.CreatedAt,
				UpdatedAt:     session.UpdatedAt,
			})
		}
		h.writeJSON(w, http.StatusOK, sessionList)
	default:
		h.writeError(w, r, "Method not allowed", http.StatusMethodNotAllowed)
	}
}

// HandleSessionDetail returns one session snapshot. Lookups never create.
func (h *Handler) HandleSessionDetail(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		h.writeError(w, r, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	sessionID := strings.TrimPrefix(r.URL.Path, "/api/sessions/")
	session, ok := h.sessionStore.Get(sessionID)
	if sessionID == "" || !ok {
		h.writeError(w, r, "Session not found", http.StatusNotFound)
		return
	}

	h.writeJSON(w, http.StatusOK, session)
}
