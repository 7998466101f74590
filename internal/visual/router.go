// Package visual implements the asset router: dispatching each scene's
// VisualType to a renderer, wrapped cache -> circuit breaker -> retry ->
// resource governor -> raw renderer, per spec.md §4.5. The governor
// permit is acquired innermost, around the raw render call only, so it
// never sits held across a breaker fast-fail or a retry backoff sleep.
// Dispatch is a lookup in a fixed renderer table keyed by VisualType,
// built once in New.
package visual

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/bobarin/scenecast/internal/breaker"
	"github.com/bobarin/scenecast/internal/cache"
	"github.com/bobarin/scenecast/internal/fingerprint"
	"github.com/bobarin/scenecast/internal/models"
	"github.com/bobarin/scenecast/internal/resource"
	"github.com/bobarin/scenecast/internal/retry"
)

// Renderer produces the raw bytes of a scene's visual. Every renderer for
// a given VisualType always emits the same file extension, so the Router
// tracks extensions itself rather than threading them through the cache.
type Renderer interface {
	Render(ctx context.Context, scene *models.Scene) ([]byte, error)
}

// extensions maps each dispatchable type (plus the placeholder) to the
// file extension its renderer produces.
var extensions = map[models.VisualType]string{
	models.VisualSlide:   "png",
	models.VisualDiagram: "svg",
	models.VisualGraph:   "png",
	models.VisualFormula: "png",
	models.VisualCode:    "png",
}

const placeholderExt = "png"

// Router dispatches to one Renderer per models.VisualType and wraps
// every call in the cache/breaker/retry/governor stack.
type Router struct {
	renderers   map[models.VisualType]Renderer
	placeholder Renderer

	cache       *cache.Cache
	breakers    *breaker.Manager
	governor    *resource.Governor
	retryPolicy retry.Policy

	outputDir string
}

// New builds a Router with the five concrete renderers, plus the
// placeholder renderer used for unknown or exhausted-retry types.
func New(
	outputDir string,
	slide, diagram, chart, formula, code Renderer,
	placeholder Renderer,
	c *cache.Cache,
	breakers *breaker.Manager,
	governor *resource.Governor,
	retryPolicy retry.Policy,
) *Router {
	return &Router{
		renderers: map[models.VisualType]Renderer{
			models.VisualSlide:   slide,
			models.VisualDiagram: diagram,
			models.VisualGraph:   chart,
			models.VisualFormula: formula,
			models.VisualCode:    code,
		},
		placeholder: placeholder,
		cache:       c,
		breakers:    breakers,
		governor:    governor,
		retryPolicy: retryPolicy,
		outputDir:   outputDir,
	}
}

// Render produces and persists the visual asset for scene, applying the
// full wrap order and falling back to the placeholder renderer when the
// type is unknown or every retry is exhausted.
func (r *Router) Render(ctx context.Context, jobID string, scene *models.Scene) (*models.VisualAsset, error) {
	renderer, ok := r.renderers[scene.VisualType]
	ext := extensions[scene.VisualType]
	if !ok {
		renderer = r.placeholder
		ext = placeholderExt
	}

	key := fingerprint.Key("visual", string(scene.VisualType), scene.VisualPrompt)
	serviceName := "visual:" + string(scene.VisualType)

	data, err := r.cache.GetOrCompute(ctx, cache.NamespaceVisual, key, func(ctx context.Context) ([]byte, error) {
		var result []byte
		callErr := r.breakers.Call(ctx, serviceName, func(ctx context.Context) error {
			return retry.Do(ctx, r.retryPolicy, func(ctx context.Context) error {
				release, acqErr := r.governor.Acquire(ctx, resource.KindVisual)
				if acqErr != nil {
					return acqErr
				}
				defer release()

				d, rendErr := renderer.Render(ctx, scene)
				if rendErr != nil {
					return rendErr
				}
				result = d
				return nil
			})
		})
		if callErr != nil {
			return nil, callErr
		}
		return result, nil
	})

	if err != nil {
		// Every layer exhausted: fall back to the local placeholder,
		// which never calls out and so cannot itself fail this way.
		d, phErr := r.placeholder.Render(ctx, scene)
		if phErr != nil {
			return nil, fmt.Errorf("visual: placeholder fallback failed: %w", phErr)
		}
		return r.persist(jobID, scene.ID, d, placeholderExt)
	}

	return r.persist(jobID, scene.ID, data, ext)
}

func (r *Router) persist(jobID, sceneID string, data []byte, ext string) (*models.VisualAsset, error) {
	dir := filepath.Join(r.outputDir, jobID, "visual")
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("visual: mkdir: %w", err)
	}
	path := filepath.Join(dir, sceneID+"."+ext)
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return nil, fmt.Errorf("visual: write asset: %w", err)
	}
	return &models.VisualAsset{
		Path:      path,
		Format:    ext,
		CreatedAt: time.Now(),
	}, nil
}
