package llm

import (
	"fmt"
	"strings"

	"github.com/bobarin/scenecast/internal/models"
)

// Fallback deterministically splits sourceText into scenes when the LLM
// is unavailable or returns an invalid script (fewer than 3 or more than
// 7 scenes). Padding the LLM's own output with synthetic scenes would put
// invented narration in front of a viewer; a mechanical split the caller
// can flag as degraded is the safer default.
func Fallback(sourceText string) *models.Script {
	paragraphs := splitParagraphs(sourceText)
	chunks := chunkInto(paragraphs, targetSceneCount(len(paragraphs)))

	scenes := make([]*models.Scene, 0, len(chunks))
	for i, chunk := range chunks {
		scenes = append(scenes, &models.Scene{
			ID:            fmt.Sprintf("scene-%d", i+1),
			Index:         i,
			NarrationText: chunk,
			VisualType:    models.VisualSlide,
			VisualPrompt:  fmt.Sprintf("A slide summarizing: %s", truncate(chunk, 160)),
			Status:        models.SceneStatusPending,
		})
	}

	return &models.Script{Scenes: scenes, Fallback: true}
}

func splitParagraphs(text string) []string {
	raw := strings.Split(strings.ReplaceAll(text, "\r\n", "\n"), "\n\n")
	out := make([]string, 0, len(raw))
	for _, p := range raw {
		p = strings.TrimSpace(p)
		if p != "" {
			out = append(out, p)
		}
	}
	if len(out) == 0 {
		out = []string{strings.TrimSpace(text)}
	}
	return out
}

func targetSceneCount(paragraphCount int) int {
	switch {
	case paragraphCount <= minScenes:
		return minScenes
	case paragraphCount >= maxScenes:
		return maxScenes
	default:
		return paragraphCount
	}
}

// chunkInto groups paragraphs into exactly n roughly-equal chunks,
// joining paragraphs with a space where a group spans more than one.
// With fewer paragraphs than n, the words are spread over the chunks
// instead; with fewer words than n, the trailing chunks are empty.
func chunkInto(paragraphs []string, n int) []string {
	if len(paragraphs) == 0 {
		return nil
	}
	if n < 1 {
		n = 1
	}
	if n > len(paragraphs) {
		if words := strings.Fields(strings.Join(paragraphs, " ")); len(words) > len(paragraphs) {
			paragraphs = words
		}
	}

	chunks := make([]string, 0, n)
	base := len(paragraphs) / n
	rem := len(paragraphs) % n

	idx := 0
	for i := 0; i < n; i++ {
		size := base
		if i < rem {
			size++
		}
		if size == 0 {
			size = 1
		}
		end := idx + size
		if end > len(paragraphs) {
			end = len(paragraphs)
		}
		chunks = append(chunks, strings.Join(paragraphs[idx:end], " "))
		idx = end
	}
	return chunks
}

func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max] + "..."
}
