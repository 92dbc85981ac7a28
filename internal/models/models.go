package models

import "time"

// Session represents one user's continuous tour
type Session struct {
	ID        string         `json:"id"`
	Memory    []string       `json:"memory"`
	LastScene *SceneAnalysis `json:"last_scene"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`

	// Generation counts analyze calls issued for this session.
	// SceneGeneration is the generation that produced LastScene.
	Generation      uint64 `json:"generation"`
	SceneGeneration uint64 `json:"scene_generation"`
}

// NewSession returns an empty session stamped with now
func NewSession(id string, now time.Time) Session {
	return Session{
		ID:        id,
		Memory:    []string{},
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// Clone returns a deep copy that shares no slices with s
func (s Session) Clone() Session {
	out := s
	out.Memory = append([]string{}, s.Memory...)
	if s.LastScene != nil {
		scene := s.LastScene.Clone()
		out.LastScene = &scene
	}
	return out
}

// MemoryWindow returns at most the last n memory entries
func (s Session) MemoryWindow(n int) []string {
	if n <= 0 || len(s.Memory) == 0 {
		return nil
	}
	if len(s.Memory) <= n {
		return append([]string{}, s.Memory...)
	}
	return append([]string{}, s.Memory[len(s.Memory)-n:]...)
}

// SceneAnalysis is the structured description of one camera frame
type SceneAnalysis struct {
	SceneTitle         string   `json:"scene_title" yaml:"scene_title"`
	SceneSummary       string   `json:"scene_summary" yaml:"scene_summary"`
	Narration          string   `json:"narration" yaml:"narration"`
	POIs               []POI    `json:"pois" yaml:"pois"`
	SuggestedQuestions []string `json:"suggested_questions" yaml:"suggested_questions"`
	SafetyNotes        []string `json:"safety_notes" yaml:"safety_notes"`
}

// Clone returns a deep copy of the scene
func (a SceneAnalysis) Clone() SceneAnalysis {
	out := a
	out.POIs = append([]POI{}, a.POIs...)
	out.SuggestedQuestions = append([]string{}, a.SuggestedQuestions...)
	out.SafetyNotes = append([]string{}, a.SafetyNotes...)
	return out
}

// POI is a point of interest anchored to a position in the frame
type POI struct {
	ID           string       `json:"id" yaml:"id"`
	Label        string       `json:"label" yaml:"label"`
	WhyItMatters string       `json:"why_it_matters" yaml:"why_it_matters"`
	ScreenAnchor ScreenAnchor `json:"screen_anchor" yaml:"screen_anchor"`
	Confidence   float64      `json:"confidence" yaml:"confidence"`
}

// ScreenAnchor is a fractional frame position, (0,0) top-left and (1,1) bottom-right
type ScreenAnchor struct {
	X float64 `json:"x" yaml:"x"`
	Y float64 `json:"y" yaml:"y"`
}

// AskResult is the answer to a follow-up question.
// A nil UpdatedPOIs means the POIs did not change.
type AskResult struct {
	Answer              string   `json:"answer" yaml:"answer"`
	UpdatedPOIs         []POI    `json:"updated_pois" yaml:"updated_pois"`
	FollowUpSuggestions []string `json:"follow_up_suggestions" yaml:"follow_up_suggestions"`
}

// MergePOIs folds updates into current by POI id. A matching id replaces the
// existing POI in place, unknown ids are appended in the order given, and
// POIs not mentioned in updates are kept.
func MergePOIs(current, updates []POI) []POI {
	merged := append([]POI{}, current...)
	index := make(map[string]int, len(merged))
	for i, p := range merged {
		index[p.ID] = i
	}
	for _, u := range updates {
		if i, ok := index[u.ID]; ok {
			merged[i] = u
			continue
		}
		index[u.ID] = len(merged)
		merged = append(merged, u)
	}
	return merged
}
