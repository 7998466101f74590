package visual

import (
	"context"
	"fmt"

	"google.golang.org/genai"

	"github.com/bobarin/scenecast/internal/models"
)

// SlideRenderer generates a presentation-style slide image via the
// Gemini image-generation model. The SDK wiring is grounded on the
// teacher's internal/services/veo.go (genai.NewClient/GenerateContent);
// the prompt composition follows internal/services/gemini.go's
// structured-prompt style, retargeted from "photoreal clip still" to
// "presentation slide".
type SlideRenderer struct {
	client *genai.Client
	model  string
}

// NewSlideRenderer builds a SlideRenderer backed by the given API key.
func NewSlideRenderer(ctx context.Context, apiKey, model string) (*SlideRenderer, error) {
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("visual: slide: create genai client: %w", err)
	}
	if model == "" {
		model = "gemini-2.5-flash-image"
	}
	return &SlideRenderer{client: client, model: model}, nil
}

func (s *SlideRenderer) Render(ctx context.Context, scene *models.Scene) ([]byte, error) {
	prompt := composeSlidePrompt(scene)

	resp, err := s.client.Models.GenerateContent(ctx, s.model, genai.Text(prompt), nil)
	if err != nil {
		return nil, fmt.Errorf("visual: slide: generate content: %w", err)
	}
	if len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return nil, fmt.Errorf("visual: slide: empty response")
	}

	for _, part := range resp.Candidates[0].Content.Parts {
		if part.InlineData != nil && len(part.InlineData.Data) > 0 {
			return part.InlineData.Data, nil
		}
	}
	return nil, fmt.Errorf("visual: slide: no inline image data in response")
}

// composeSlidePrompt builds a structured prompt describing a clean,
// minimal slide: a title derived from the scene's narration plus the
// scene's own visual prompt as supporting detail.
func composeSlidePrompt(scene *models.Scene) string {
	return fmt.Sprintf(
		"Design a clean, minimal presentation slide (16:9) for a short "+
			"explainer video. The slide should visually support this "+
			"narration: %q. Specific content to depict: %s. Use a simple, "+
			"high-contrast layout suitable for a video overlay; avoid dense "+
			"text blocks.",
		scene.NarrationText, scene.VisualPrompt,
	)
}
