package visual

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/bobarin/scenecast/internal/models"
)

const visualHTTPTimeout = 60 * time.Second

// httpRenderer is the shared shape behind the diagram/chart/formula/code
// renderers: POST a JSON payload built from the scene, read back the
// raw image bytes. Grounded on the teacher's internal/services/
// xai_video.go and cartesia.go submit/POST-JSON idiom.
type httpRenderer struct {
	baseURL string
	path    string
	client  *http.Client
	build   func(scene *models.Scene) interface{}
}

func newHTTPRenderer(baseURL, path string, build func(scene *models.Scene) interface{}) *httpRenderer {
	return &httpRenderer{
		baseURL: baseURL,
		path:    path,
		client:  &http.Client{Timeout: visualHTTPTimeout},
		build:   build,
	}
}

func (h *httpRenderer) Render(ctx context.Context, scene *models.Scene) ([]byte, error) {
	payload, err := json.Marshal(h.build(scene))
	if err != nil {
		return nil, fmt.Errorf("visual: marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, h.baseURL+h.path, bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("visual: build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := h.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("visual: request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		data, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
		return nil, fmt.Errorf("visual: unexpected status %d: %s", resp.StatusCode, string(data))
	}

	return io.ReadAll(resp.Body)
}

// DiagramRenderer posts a node/edge graph (parsed from the scene's
// visual prompt, one "A -> B" relation per line) to a diagram-rendering
// service and gets back an SVG.
type DiagramRenderer struct{ *httpRenderer }

func NewDiagramRenderer(baseURL string) *DiagramRenderer {
	return &DiagramRenderer{newHTTPRenderer(baseURL, "/v1/diagram", func(scene *models.Scene) interface{} {
		return map[string]interface{}{
			"edges": parseEdges(scene.VisualPrompt),
			"title": scene.NarrationText,
		}
	})}
}

func parseEdges(prompt string) []map[string]string {
	var edges []map[string]string
	for _, line := range strings.Split(prompt, "\n") {
		parts := strings.SplitN(line, "->", 2)
		if len(parts) != 2 {
			continue
		}
		edges = append(edges, map[string]string{
			"from": strings.TrimSpace(parts[0]),
			"to":   strings.TrimSpace(parts[1]),
		})
	}
	return edges
}

// ChartRenderer infers a chart kind (bar/line/pie) from the scene's
// visual prompt and posts a chart spec to a charting service.
type ChartRenderer struct{ *httpRenderer }

func NewChartRenderer(baseURL string) *ChartRenderer {
	return &ChartRenderer{newHTTPRenderer(baseURL, "/v1/chart", func(scene *models.Scene) interface{} {
		return map[string]interface{}{
			"kind":   inferChartKind(scene.VisualPrompt),
			"prompt": scene.VisualPrompt,
			"title":  scene.NarrationText,
		}
	})}
}

func inferChartKind(prompt string) string {
	lower := strings.ToLower(prompt)
	switch {
	case strings.Contains(lower, "pie"):
		return "pie"
	case strings.Contains(lower, "line") || strings.Contains(lower, "trend") || strings.Contains(lower, "over time"):
		return "line"
	default:
		return "bar"
	}
}

// FormulaRenderer renders LaTeX markup to an image via an external
// typesetting service.
type FormulaRenderer struct{ *httpRenderer }

func NewFormulaRenderer(baseURL string) *FormulaRenderer {
	return &FormulaRenderer{newHTTPRenderer(baseURL, "/v1/formula", func(scene *models.Scene) interface{} {
		return map[string]interface{}{"latex": scene.VisualPrompt}
	})}
}

// CodeRenderer renders a syntax-highlighted source snippet to an image
// via an external highlighting service.
type CodeRenderer struct{ *httpRenderer }

func NewCodeRenderer(baseURL string) *CodeRenderer {
	return &CodeRenderer{newHTTPRenderer(baseURL, "/v1/code", func(scene *models.Scene) interface{} {
		return map[string]interface{}{
			"source":   scene.VisualPrompt,
			"language": inferLanguage(scene.VisualPrompt),
		}
	})}
}

func inferLanguage(source string) string {
	switch {
	case strings.Contains(source, "func ") && strings.Contains(source, "package "):
		return "go"
	case strings.Contains(source, "def ") && strings.Contains(source, ":"):
		return "python"
	case strings.Contains(source, "function ") || strings.Contains(source, "const "):
		return "javascript"
	default:
		return "text"
	}
}
