// Package demo is a vision oracle that answers with fixed placeholder
// documents, for running the guide without vendor credentials.
package demo

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/lehigh-university-libraries/tourlens/internal/models"
	"github.com/lehigh-university-libraries/tourlens/internal/prompt"
	"github.com/lehigh-university-libraries/tourlens/internal/providers"
)

type Provider struct{}

func New() *Provider {
	return &Provider{}
}

func (p *Provider) Name() string {
	return "demo"
}

func (p *Provider) Complete(ctx context.Context, req providers.Request) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", fmt.Errorf("%w: %v", providers.ErrUnavailable, err)
	}

	var doc any
	switch req.Name {
	case prompt.SceneResponseName:
		doc = Scene()
	case prompt.AskResponseName:
		doc = Answer(req.Prompt)
	default:
		return "", fmt.Errorf("%w: demo has no reply for %q", providers.ErrUnavailable, req.Name)
	}

	data, err := json.Marshal(doc)
	if err != nil {
		return "", err
	}
	return string(data), nil
}

// Scene is the placeholder analysis returned for every frame
func Scene() models.SceneAnalysis {
	return models.SceneAnalysis{
		SceneTitle:   "Demo Scene",
		SceneSummary: "This is a placeholder response from the demo provider.",
		Narration:    "Point your camera at a landmark to see the AI analysis.",
		POIs: []models.POI{
			{
				ID:           "demo_poi_1",
				Label:        "Sample Point",
				WhyItMatters: "This is where a real point of interest would appear.",
				ScreenAnchor: models.ScreenAnchor{X: 0.5, Y: 0.3},
				Confidence:   0.85,
			},
		},
		SuggestedQuestions: []string{
			"What is this place?",
			"When was it built?",
			"What makes it significant?",
		},
		SafetyNotes: []string{"This is a demo response. Configure a vision provider for real analysis."},
	}
}

// Answer echoes the question back inside a placeholder reply
func Answer(question string) models.AskResult {
	return models.AskResult{
		Answer: fmt.Sprintf("You asked: %q. This is a placeholder response from the demo provider.", question),
		FollowUpSuggestions: []string{
			"Tell me more about this",
			"What else is interesting here?",
		},
	}
}
