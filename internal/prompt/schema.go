package prompt

import "github.com/lehigh-university-libraries/tourlens/internal/providers"

func poiSchema() *providers.Schema {
	return providers.Object("A point of interest identified in the image", map[string]*providers.Schema{
		"id":             providers.String("Unique identifier for this POI"),
		"label":          providers.String("Short label for the POI (1-3 words)"),
		"why_it_matters": providers.String("Brief explanation of why this is interesting or significant"),
		"screen_anchor": providers.Object("Approximate position on screen where this POI appears", map[string]*providers.Schema{
			"x": providers.Number("X position (0.0 = left edge, 1.0 = right edge)"),
			"y": providers.Number("Y position (0.0 = top edge, 1.0 = bottom edge)"),
		}, "x", "y"),
		"confidence": providers.Number("Confidence score from 0.0 to 1.0"),
	}, "id", "label", "why_it_matters", "screen_anchor", "confidence")
}

// SceneSchema is the response schema for a scene analysis
func SceneSchema() *providers.Schema {
	return providers.Object("", map[string]*providers.Schema{
		"scene_title":   providers.String("A short, descriptive title for the scene"),
		"scene_summary": providers.String("A brief summary of what is in the scene"),
		"narration":     providers.String("A conversational tour guide narration about the scene (2-3 sentences)"),
		"pois":          providers.ArrayOf("Points of interest identified in the image", poiSchema()),
		"suggested_questions": providers.ArrayOf("Follow-up questions the user might want to ask",
			providers.String("")),
		"safety_notes": providers.ArrayOf(`Any safety or accuracy notes (e.g., "I might be wrong about...")`,
			providers.String("")),
	}, "scene_title", "scene_summary", "narration", "pois", "suggested_questions", "safety_notes")
}

// AskSchema is the response schema for a follow-up answer.
// updated_pois is optional so providers may omit it.
func AskSchema() *providers.Schema {
	return providers.Object("", map[string]*providers.Schema{
		"answer":                providers.String("The answer to the user's question"),
		"follow_up_suggestions": providers.ArrayOf("Follow-up questions", providers.String("")),
		"updated_pois":          providers.ArrayOf("Points of interest to add or replace, if any", poiSchema()),
	}, "answer", "follow_up_suggestions")
}
