package visual

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/bobarin/scenecast/internal/breaker"
	"github.com/bobarin/scenecast/internal/cache"
	"github.com/bobarin/scenecast/internal/models"
	"github.com/bobarin/scenecast/internal/resource"
	"github.com/bobarin/scenecast/internal/retry"
)

type fakeRenderer struct {
	calls int
	err   error
	data  []byte
}

func (f *fakeRenderer) Render(ctx context.Context, scene *models.Scene) ([]byte, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	return f.data, nil
}

func newTestRouter(t *testing.T, slide Renderer) *Router {
	t.Helper()
	c, err := cache.New(10, time.Minute, nil)
	if err != nil {
		t.Fatalf("cache: %v", err)
	}
	g := resource.New(2, 2, 2, resource.Ceilings{}, nil)
	b := breaker.NewManager(breaker.Settings{FailureThreshold: 5, Cooldown: time.Second, HalfOpenMax: 1})
	policy := retry.Policy{MaxAttempts: 2, BaseDelay: time.Millisecond}

	return New(t.TempDir(), slide, slide, slide, slide, slide, NewPlaceholderRenderer(), c, b, g, policy)
}

func TestRenderPersistsAsset(t *testing.T) {
	fr := &fakeRenderer{data: []byte("pngdata")}
	r := newTestRouter(t, fr)

	scene := &models.Scene{ID: "scene-1", VisualType: models.VisualSlide, VisualPrompt: "a chart"}
	asset, err := r.Render(context.Background(), "job-1", scene)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if filepath.Ext(asset.Path) != ".png" {
		t.Errorf("expected .png extension, got %s", asset.Path)
	}
	if fr.calls != 1 {
		t.Errorf("expected renderer called once, got %d", fr.calls)
	}
}

func TestRenderFallsBackToPlaceholderOnPersistentFailure(t *testing.T) {
	fr := &fakeRenderer{err: errors.New("always fails")}
	r := newTestRouter(t, fr)

	scene := &models.Scene{ID: "scene-1", VisualType: models.VisualSlide, VisualPrompt: "x"}
	asset, err := r.Render(context.Background(), "job-1", scene)
	if err != nil {
		t.Fatalf("expected placeholder fallback to succeed, got error: %v", err)
	}
	if asset == nil {
		t.Fatal("expected a placeholder asset")
	}
}

func TestRenderUnknownTypeUsesPlaceholder(t *testing.T) {
	fr := &fakeRenderer{data: []byte("should not be called")}
	r := newTestRouter(t, fr)

	scene := &models.Scene{ID: "scene-1", VisualType: models.VisualType("unknown"), VisualPrompt: "x"}
	_, err := r.Render(context.Background(), "job-1", scene)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if fr.calls != 0 {
		t.Errorf("expected configured renderer not called for unknown type, got %d calls", fr.calls)
	}
}

func TestParseEdges(t *testing.T) {
	edges := parseEdges("A -> B\nB -> C\nnot an edge")
	if len(edges) != 2 {
		t.Fatalf("expected 2 edges, got %d", len(edges))
	}
	if edges[0]["from"] != "A" || edges[0]["to"] != "B" {
		t.Errorf("unexpected first edge: %v", edges[0])
	}
}

func TestInferChartKind(t *testing.T) {
	if inferChartKind("show a pie breakdown") != "pie" {
		t.Error("expected pie")
	}
	if inferChartKind("trend over time") != "line" {
		t.Error("expected line")
	}
	if inferChartKind("compare totals") != "bar" {
		t.Error("expected bar default")
	}
}
