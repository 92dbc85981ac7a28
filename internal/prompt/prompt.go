// Package prompt composes the instructions sent to the vision oracle.
//
// Every function here is pure: the same inputs always produce the same
// prompt, independent of which provider carries it.
package prompt

import (
	"strings"
)

const (
	// SceneResponseName names the scene analysis response shape.
	SceneResponseName = "scene_analysis"
	// AskResponseName names the follow-up answer response shape.
	AskResponseName = "ask_result"
)

const sceneTemplate = `You are an expert tour guide with deep knowledge of landmarks, art, architecture, history, nature, and everyday objects.

Analyze the image and provide helpful, engaging information about what you see.

Guidelines:
- Be conversational and engaging in the narration
- Identify the most interesting or notable elements as POIs
- Place POI screen anchors where the object actually appears in the image (0,0 is top-left, 1,1 is bottom-right)
- Be honest about uncertainty - use lower confidence scores when unsure
- Suggest natural follow-up questions the user might want to ask
- Include safety notes if you're uncertain about any identification

If you cannot identify anything meaningful in the image, still provide a response with an empty POIs array and a helpful narration explaining what you see.

You MUST respond with valid JSON in this exact format:
{
  "scene_title": "string - A short, descriptive title for the scene",
  "scene_summary": "string - A brief summary of what is in the scene",
  "narration": "string - A conversational tour guide narration (2-3 sentences)",
  "pois": [
    {
      "id": "string - unique identifier",
      "label": "string - short label (1-3 words)",
      "why_it_matters": "string - brief explanation",
      "screen_anchor": { "x": 0.0-1.0, "y": 0.0-1.0 },
      "confidence": 0.0-1.0
    }
  ],
  "suggested_questions": ["string array of follow-up questions"],
  "safety_notes": ["string array of accuracy notes"]
}`

const askTemplate = `You are an expert tour guide assistant. The user is looking at a scene through their camera and has asked a follow-up question.

You have context about what they're viewing. Answer their question helpfully and conversationally.

Guidelines:
- Be concise but informative (2-4 sentences)
- If the question is about something in the scene, reference it specifically
- Suggest 2 natural follow-up questions they might want to ask
- If the answer changes what should be highlighted, return the affected points of interest in "updated_pois", otherwise return null
- If you're unsure, be honest about it

Respond with valid JSON in this format:
{
  "answer": "Your helpful answer here",
  "follow_up_suggestions": ["Follow-up question 1", "Follow-up question 2"],
  "updated_pois": null
}`

// SceneInput carries the optional context for a scene analysis prompt
type SceneInput struct {
	LocationHint string
	Interests    []string
	// Memory is the already-windowed transcript, oldest first.
	Memory []string
}

// ComposeScene builds the scene analysis prompt
func ComposeScene(in SceneInput) string {
	var b strings.Builder
	b.WriteString(sceneTemplate)

	if hint := strings.TrimSpace(in.LocationHint); hint != "" {
		b.WriteString("\n\nLocation hint: ")
		b.WriteString(hint)
	}

	if interests := cleanList(in.Interests); len(interests) > 0 {
		b.WriteString("\n\nUser interests: ")
		b.WriteString(strings.Join(interests, ", "))
	}

	if len(in.Memory) > 0 {
		b.WriteString("\n\nPrevious context from this tour:\n")
		b.WriteString(strings.Join(in.Memory, "\n"))
	}

	return b.String()
}

// AskInput carries the context for a follow-up question
type AskInput struct {
	SceneContext string
	Memory       []string
}

// ComposeAsk builds the system prompt for a follow-up question.
// The question itself travels as the user message.
func ComposeAsk(in AskInput) string {
	var b strings.Builder
	b.WriteString(askTemplate)

	if sc := strings.TrimSpace(in.SceneContext); sc != "" {
		b.WriteString("\n\nCurrent scene context:\n")
		b.WriteString(sc)
	}

	if len(in.Memory) > 0 {
		b.WriteString("\n\nConversation history:\n")
		b.WriteString(strings.Join(in.Memory, "\n"))
	}

	return b.String()
}

// SceneContext condenses a scene into the context line sent with questions
func SceneContext(title, summary string) string {
	title = strings.TrimSpace(title)
	summary = strings.TrimSpace(summary)
	switch {
	case title == "":
		return summary
	case summary == "":
		return title
	default:
		return title + ": " + summary
	}
}

// SawEntry is the memory line recorded after a successful scan
func SawEntry(title, summary string) string {
	return "Saw: " + title + " - " + summary
}

// UserEntry is the memory line recorded for an asked question
func UserEntry(question string) string {
	return "User asked: " + question
}

// AssistantEntry is the memory line recorded for an answer
func AssistantEntry(answer string) string {
	return "Assistant: " + answer
}

func cleanList(items []string) []string {
	out := make([]string, 0, len(items))
	for _, item := range items {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	return out
}
