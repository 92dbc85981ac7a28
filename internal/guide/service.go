// Package guide orchestrates scene analysis and follow-up questions against
// a vision oracle, carrying conversational memory in the session store.
package guide

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/lehigh-university-libraries/tourlens/internal/images"
	"github.com/lehigh-university-libraries/tourlens/internal/models"
	"github.com/lehigh-university-libraries/tourlens/internal/prompt"
	"github.com/lehigh-university-libraries/tourlens/internal/providers"
	"github.com/lehigh-university-libraries/tourlens/internal/storage"
)

// Options tunes prompt windows, output caps and the oracle deadline
type Options struct {
	Timeout           time.Duration
	SceneMemoryWindow int
	AskMemoryWindow   int
	SceneMaxTokens    int
	AskMaxTokens      int
	AskImageMaxDim    int
	Temperature       float64
}

// DefaultOptions mirrors the limits the browser client was built around
func DefaultOptions() Options {
	return Options{
		Timeout:           30 * time.Second,
		SceneMemoryWindow: 3,
		AskMemoryWindow:   5,
		SceneMaxTokens:    1000,
		AskMaxTokens:      500,
		AskImageMaxDim:    512,
		Temperature:       0.4,
	}
}

// AnalyzeRequest is one scan of a camera frame
type AnalyzeRequest struct {
	// Image is a data URL or bare base64 payload.
	Image        string
	SessionID    string
	LocationHint string
	Interests    []string
}

// AskRequest is one follow-up question
type AskRequest struct {
	Question     string
	SessionID    string
	SceneContext string
	// Image is optional auxiliary context.
	Image string
}

type Service struct {
	store  storage.Store
	oracle providers.Provider
	opts   Options
}

func NewService(store storage.Store, oracle providers.Provider, opts Options) *Service {
	defaults := DefaultOptions()
	if opts.Timeout <= 0 {
		opts.Timeout = defaults.Timeout
	}
	if opts.SceneMemoryWindow <= 0 {
		opts.SceneMemoryWindow = defaults.SceneMemoryWindow
	}
	if opts.AskMemoryWindow <= 0 {
		opts.AskMemoryWindow = defaults.AskMemoryWindow
	}
	if opts.SceneMaxTokens <= 0 {
		opts.SceneMaxTokens = defaults.SceneMaxTokens
	}
	if opts.AskMaxTokens <= 0 {
		opts.AskMaxTokens = defaults.AskMaxTokens
	}
	if opts.AskImageMaxDim <= 0 {
		opts.AskImageMaxDim = defaults.AskImageMaxDim
	}
	return &Service{store: store, oracle: oracle, opts: opts}
}

// Analyze describes one frame and records it in the session's memory.
// Memory and last scene change only when a fully valid scene comes back.
func (s *Service) Analyze(ctx context.Context, req AnalyzeRequest) (models.SceneAnalysis, error) {
	if strings.TrimSpace(req.Image) == "" {
		return models.SceneAnalysis{}, fmt.Errorf("%w: no image provided", ErrInvalidRequest)
	}
	if strings.TrimSpace(req.SessionID) == "" {
		return models.SceneAnalysis{}, fmt.Errorf("%w: no session_id provided", ErrInvalidRequest)
	}

	frame, err := images.Decode(req.Image)
	if err != nil {
		return models.SceneAnalysis{}, fmt.Errorf("%w: %w", ErrInvalidRequest, err)
	}

	session := s.store.GetOrCreate(req.SessionID)
	generation := s.store.NextGeneration(req.SessionID)

	text := prompt.ComposeScene(prompt.SceneInput{
		LocationHint: req.LocationHint,
		Interests:    req.Interests,
		Memory:       session.MemoryWindow(s.opts.SceneMemoryWindow),
	})

	image := frame.Image
	image.Detail = providers.DetailHigh
	raw, err := s.complete(ctx, providers.Request{
		Name:        prompt.SceneResponseName,
		Prompt:      text,
		Image:       &image,
		Schema:      prompt.SceneSchema(),
		MaxTokens:   s.opts.SceneMaxTokens,
		Temperature: s.opts.Temperature,
	})
	if err != nil {
		return models.SceneAnalysis{}, err
	}

	scene, err := ParseSceneAnalysis(raw)
	if err != nil {
		slog.Warn("Scene analysis rejected", "session_id", req.SessionID, "provider", s.oracle.Name(), "err", err)
		return models.SceneAnalysis{}, err
	}

	stale := false
	s.store.Update(req.SessionID, func(sess *models.Session) {
		sess.Memory = append(sess.Memory, prompt.SawEntry(scene.SceneTitle, scene.SceneSummary))
		if generation > sess.SceneGeneration {
			stored := scene.Clone()
			sess.LastScene = &stored
			sess.SceneGeneration = generation
		} else {
			stale = true
		}
	})
	if stale {
		slog.Debug("Kept newer scene over late response", "session_id", req.SessionID, "generation", generation)
	}

	slog.Info("Scene analyzed", "session_id", req.SessionID, "title", scene.SceneTitle, "pois", len(scene.POIs))
	return scene, nil
}

// Ask answers a follow-up question using the session's memory and scene.
// An unknown session is not an error; it starts with empty memory.
func (s *Service) Ask(ctx context.Context, req AskRequest) (models.AskResult, error) {
	question := strings.TrimSpace(req.Question)
	if question == "" {
		return models.AskResult{}, fmt.Errorf("%w: no question provided", ErrInvalidRequest)
	}
	if strings.TrimSpace(req.SessionID) == "" {
		return models.AskResult{}, fmt.Errorf("%w: no session_id provided", ErrInvalidRequest)
	}

	var image *providers.Image
	if strings.TrimSpace(req.Image) != "" {
		frame, err := images.Decode(req.Image)
		if err != nil {
			return models.AskResult{}, fmt.Errorf("%w: %w", ErrInvalidRequest, err)
		}
		// Text carries this call; a smaller frame is enough context.
		small, err := images.Downscale(frame, s.opts.AskImageMaxDim, 80)
		if err != nil {
			return models.AskResult{}, fmt.Errorf("%w: %w", ErrInvalidRequest, err)
		}
		small.Detail = providers.DetailLow
		image = &small.Image
	}

	session := s.store.GetOrCreate(req.SessionID)

	sceneContext := req.SceneContext
	if strings.TrimSpace(sceneContext) == "" && session.LastScene != nil {
		sceneContext = prompt.SceneContext(session.LastScene.SceneTitle, session.LastScene.SceneSummary)
	}

	system := prompt.ComposeAsk(prompt.AskInput{
		SceneContext: sceneContext,
		Memory:       session.MemoryWindow(s.opts.AskMemoryWindow),
	})

	raw, err := s.complete(ctx, providers.Request{
		Name:        prompt.AskResponseName,
		System:      system,
		Prompt:      question,
		Image:       image,
		Schema:      prompt.AskSchema(),
		MaxTokens:   s.opts.AskMaxTokens,
		Temperature: s.opts.Temperature,
	})
	if err != nil {
		return models.AskResult{}, err
	}

	result, err := ParseAskResult(raw)
	if err != nil {
		slog.Warn("Answer rejected", "session_id", req.SessionID, "provider", s.oracle.Name(), "err", err)
		return models.AskResult{}, err
	}

	s.store.Update(req.SessionID, func(sess *models.Session) {
		sess.Memory = append(sess.Memory, prompt.UserEntry(question), prompt.AssistantEntry(result.Answer))
		if result.UpdatedPOIs != nil && sess.LastScene != nil {
			sess.LastScene.POIs = models.MergePOIs(sess.LastScene.POIs, result.UpdatedPOIs)
		}
	})

	slog.Info("Question answered", "session_id", req.SessionID, "updated_pois", result.UpdatedPOIs != nil)
	return result, nil
}

// complete runs one bounded oracle call and maps its failures
func (s *Service) complete(ctx context.Context, req providers.Request) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, s.opts.Timeout)
	defer cancel()

	start := time.Now()
	raw, err := s.oracle.Complete(ctx, req)
	duration := time.Since(start)
	if err != nil {
		slog.Error("Vision oracle call failed", "provider", s.oracle.Name(), "request", req.Name, "duration", duration, "err", err)
		if errors.Is(err, context.DeadlineExceeded) || errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return "", fmt.Errorf("%w: timed out after %s", ErrOracleUnavailable, s.opts.Timeout)
		}
		return "", fmt.Errorf("%w: %v", ErrOracleUnavailable, err)
	}

	slog.Debug("Vision oracle call finished", "provider", s.oracle.Name(), "request", req.Name, "duration", duration, "length", len(raw))
	return raw, nil
}
