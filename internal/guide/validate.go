package guide

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"strings"

	"github.com/lehigh-university-libraries/tourlens/internal/models"
)

// ParseSceneAnalysis turns a raw oracle reply into a trusted SceneAnalysis.
// Missing keys, wrong types and malformed JSON are contract violations; out of
// range confidences and anchors are clamped into [0,1].
func ParseSceneAnalysis(raw string) (models.SceneAnalysis, error) {
	fields, err := decodeObject(raw)
	if err != nil {
		return models.SceneAnalysis{}, err
	}

	var scene models.SceneAnalysis
	if scene.SceneTitle, err = requiredString(fields, "scene_title", false); err != nil {
		return models.SceneAnalysis{}, err
	}
	if scene.SceneSummary, err = requiredString(fields, "scene_summary", true); err != nil {
		return models.SceneAnalysis{}, err
	}
	if scene.Narration, err = requiredString(fields, "narration", false); err != nil {
		return models.SceneAnalysis{}, err
	}
	if scene.POIs, err = poiList(fields, "pois", true); err != nil {
		return models.SceneAnalysis{}, err
	}
	if scene.SuggestedQuestions, err = stringList(fields, "suggested_questions", true); err != nil {
		return models.SceneAnalysis{}, err
	}
	if scene.SafetyNotes, err = stringList(fields, "safety_notes", true); err != nil {
		return models.SceneAnalysis{}, err
	}

	return scene, nil
}

// ParseAskResult turns a raw oracle reply into a trusted AskResult.
// updated_pois is optional; absent or null means no change.
func ParseAskResult(raw string) (models.AskResult, error) {
	fields, err := decodeObject(raw)
	if err != nil {
		return models.AskResult{}, err
	}

	var result models.AskResult
	if result.Answer, err = requiredString(fields, "answer", false); err != nil {
		return models.AskResult{}, err
	}
	if result.FollowUpSuggestions, err = stringList(fields, "follow_up_suggestions", true); err != nil {
		return models.AskResult{}, err
	}
	if result.UpdatedPOIs, err = poiList(fields, "updated_pois", false); err != nil {
		return models.AskResult{}, err
	}

	return result, nil
}

func violation(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrContractViolation, fmt.Sprintf(format, args...))
}

// stripFences removes a surrounding markdown code block, which some models
// emit even in JSON mode.
func stripFences(raw string) string {
	raw = strings.TrimSpace(raw)
	raw = strings.TrimPrefix(raw, "```json")
	raw = strings.TrimPrefix(raw, "```")
	raw = strings.TrimSuffix(raw, "```")
	return strings.TrimSpace(raw)
}

func decodeObject(raw string) (map[string]json.RawMessage, error) {
	body := stripFences(raw)
	if body == "" {
		return nil, violation("empty response")
	}

	var fields map[string]json.RawMessage
	if err := json.Unmarshal([]byte(body), &fields); err != nil {
		return nil, violation("response is not a JSON object: %v", err)
	}
	if fields == nil {
		return nil, violation("response is null")
	}
	return fields, nil
}

func isNull(msg json.RawMessage) bool {
	return bytes.Equal(bytes.TrimSpace(msg), []byte("null"))
}

func requiredString(fields map[string]json.RawMessage, key string, allowEmpty bool) (string, error) {
	msg, ok := fields[key]
	if !ok || isNull(msg) {
		return "", violation("missing %q", key)
	}
	var s string
	if err := json.Unmarshal(msg, &s); err != nil {
		return "", violation("%q must be a string", key)
	}
	s = strings.TrimSpace(s)
	if s == "" && !allowEmpty {
		return "", violation("%q must not be empty", key)
	}
	return s, nil
}

// stringList decodes an array of strings. A null value normalizes to an
// empty list; blank entries are dropped.
func stringList(fields map[string]json.RawMessage, key string, required bool) ([]string, error) {
	msg, ok := fields[key]
	if !ok {
		if required {
			return nil, violation("missing %q", key)
		}
		return nil, nil
	}
	if isNull(msg) {
		return []string{}, nil
	}

	var items []string
	if err := json.Unmarshal(msg, &items); err != nil {
		return nil, violation("%q must be an array of strings", key)
	}

	out := make([]string, 0, len(items))
	for _, item := range items {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	return out, nil
}

type rawPOI struct {
	ID           *string `json:"id"`
	Label        *string `json:"label"`
	WhyItMatters *string `json:"why_it_matters"`
	ScreenAnchor *struct {
		X *float64 `json:"x"`
		Y *float64 `json:"y"`
	} `json:"screen_anchor"`
	Confidence *float64 `json:"confidence"`
}

// poiList decodes and validates a POI array. When required is false an
// absent or null value yields nil, meaning "no change".
func poiList(fields map[string]json.RawMessage, key string, required bool) ([]models.POI, error) {
	msg, ok := fields[key]
	switch {
	case !ok && required:
		return nil, violation("missing %q", key)
	case !ok || isNull(msg):
		if required {
			return []models.POI{}, nil
		}
		return nil, nil
	}

	var raws []rawPOI
	if err := json.Unmarshal(msg, &raws); err != nil {
		return nil, violation("%q must be an array of objects: %v", key, err)
	}

	pois := make([]models.POI, 0, len(raws))
	seen := make(map[string]bool, len(raws))
	for i, r := range raws {
		poi, err := validatePOI(r)
		if err != nil {
			return nil, violation("%s[%d]: %v", key, i, err)
		}
		if seen[poi.ID] {
			return nil, violation("%s[%d]: duplicate id %q", key, i, poi.ID)
		}
		seen[poi.ID] = true
		pois = append(pois, poi)
	}
	return pois, nil
}

func validatePOI(r rawPOI) (models.POI, error) {
	if r.ID == nil || strings.TrimSpace(*r.ID) == "" {
		return models.POI{}, fmt.Errorf("missing id")
	}
	if r.Label == nil || strings.TrimSpace(*r.Label) == "" {
		return models.POI{}, fmt.Errorf("missing label")
	}
	if r.WhyItMatters == nil {
		return models.POI{}, fmt.Errorf("missing why_it_matters")
	}
	if r.ScreenAnchor == nil || r.ScreenAnchor.X == nil || r.ScreenAnchor.Y == nil {
		return models.POI{}, fmt.Errorf("missing screen_anchor")
	}
	if r.Confidence == nil {
		return models.POI{}, fmt.Errorf("missing confidence")
	}

	poi := models.POI{
		ID:           strings.TrimSpace(*r.ID),
		Label:        strings.TrimSpace(*r.Label),
		WhyItMatters: strings.TrimSpace(*r.WhyItMatters),
		ScreenAnchor: models.ScreenAnchor{
			X: clampUnit(*r.ScreenAnchor.X),
			Y: clampUnit(*r.ScreenAnchor.Y),
		},
		Confidence: clampUnit(*r.Confidence),
	}
	return poi, nil
}

func clampUnit(v float64) float64 {
	if math.IsNaN(v) {
		return 0
	}
	return math.Min(1, math.Max(0, v))
}
