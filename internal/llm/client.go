// Package llm generates a scene-by-scene Script from a source document's
// extracted text, via a JSON-mode chat completion. Adapted from the
// teacher's internal/services/openai.go GeneratePlan: same system/user
// prompt composition and JSON-mode call shape, different output schema
// (scenes with narration_text/visual_type/visual_prompt instead of
// ClipPlan's video-clip fields).
package llm

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"regexp"
	"strings"
	"unicode/utf8"

	openai "github.com/sashabaranov/go-openai"

	"github.com/bobarin/scenecast/internal/models"
)

const (
	minScenes = 3
	maxScenes = 7

	minNarrationChars = 10
	maxNarrationChars = 1000
)

// Client wraps an OpenAI-compatible chat completion endpoint.
type Client struct {
	api   *openai.Client
	model string
}

// New builds a Client for the given API key and model name.
func New(apiKey, model string) *Client {
	return &Client{api: openai.NewClient(apiKey), model: model}
}

// sceneJSON mirrors the wire shape the model is asked to produce.
type sceneJSON struct {
	NarrationText string `json:"narration_text"`
	VisualType    string `json:"visual_type"`
	VisualPrompt  string `json:"visual_prompt"`
}

type scriptJSON struct {
	Scenes []sceneJSON `json:"scenes"`
}

// GenerateScript calls the LLM to split sourceText into 3-7 scenes. When
// the response cannot be parsed into a valid script it returns
// models.ErrInvalidScript; a failed request or an empty response is
// returned as a different error. Either way the caller can fall back to
// the deterministic splitter.
func (c *Client) GenerateScript(ctx context.Context, sourceText string) (*models.Script, error) {
	resp, err := c.api.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: c.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: buildSystemPrompt()},
			{Role: openai.ChatMessageRoleUser, Content: buildUserPrompt(sourceText)},
		},
		ResponseFormat: &openai.ChatCompletionResponseFormat{
			Type: openai.ChatCompletionResponseFormatTypeJSONObject,
		},
		Temperature: 0.4,
	})
	if err != nil {
		return nil, fmt.Errorf("llm: chat completion failed: %w", err)
	}
	if len(resp.Choices) == 0 {
		return nil, fmt.Errorf("llm: empty response")
	}

	raw := resp.Choices[0].Message.Content
	script, err := parseScript(raw)
	if err != nil {
		log.Printf("llm: failed to parse script (len=%d): %v", len(raw), err)
		return nil, models.ErrInvalidScript
	}
	return script, nil
}

// parseScript unmarshals the model's JSON, with a regex-based fallback
// for responses that wrap the JSON in prose or code fences.
func parseScript(raw string) (*models.Script, error) {
	var sj scriptJSON
	if err := json.Unmarshal([]byte(raw), &sj); err != nil {
		extracted, ok := extractJSONObject(raw)
		if !ok {
			return nil, fmt.Errorf("no JSON object found in response: %w", err)
		}
		if err := json.Unmarshal([]byte(extracted), &sj); err != nil {
			return nil, fmt.Errorf("failed to parse extracted JSON: %w", err)
		}
	}

	if len(sj.Scenes) < minScenes || len(sj.Scenes) > maxScenes {
		return nil, fmt.Errorf("%w: got %d scenes", models.ErrInvalidScript, len(sj.Scenes))
	}

	scenes := make([]*models.Scene, 0, len(sj.Scenes))
	for i, s := range sj.Scenes {
		narration := strings.TrimSpace(s.NarrationText)
		vt := models.VisualType(s.VisualType)
		if !validVisualType(vt) {
			vt = models.VisualSlide
		}

		scene := &models.Scene{
			ID:            fmt.Sprintf("scene-%d", i+1),
			Index:         i,
			NarrationText: narration,
			VisualType:    vt,
			VisualPrompt:  strings.TrimSpace(s.VisualPrompt),
			Status:        models.SceneStatusPending,
		}
		// A scene whose narration falls outside the allowed bound is a
		// scene-level failure, not a reason to discard the whole script.
		if n := utf8.RuneCountInString(narration); n < minNarrationChars || n > maxNarrationChars {
			scene.Status = models.SceneStatusFailed
		}
		scenes = append(scenes, scene)
	}

	return &models.Script{Scenes: scenes}, nil
}

var jsonObjectPattern = regexp.MustCompile(`(?s)\{.*\}`)

func extractJSONObject(raw string) (string, bool) {
	match := jsonObjectPattern.FindString(raw)
	return match, match != ""
}

func validVisualType(vt models.VisualType) bool {
	switch vt {
	case models.VisualSlide, models.VisualDiagram, models.VisualGraph, models.VisualFormula, models.VisualCode:
		return true
	default:
		return false
	}
}

func buildSystemPrompt() string {
	return "You are a video scriptwriter. Given source material, split it into " +
		"3 to 7 scenes. Respond with a JSON object of the form " +
		`{"scenes": [{"narration_text": "...", "visual_type": "slide|diagram|graph|formula|code", "visual_prompt": "..."}]}. ` +
		"Keep narration_text concise (2-4 sentences) and make visual_prompt a concrete " +
		"description of what the visual should show."
}

func buildUserPrompt(sourceText string) string {
	const maxChars = 12000
	if len(sourceText) > maxChars {
		sourceText = sourceText[:maxChars]
	}
	return fmt.Sprintf("Source material:\n\n%s", sourceText)
}
