package models

import "time"

// AudioAsset is the synthesized narration for one scene.
type AudioAsset struct {
	Path       string    `json:"path"`
	Format     string    `json:"format"`
	DurationMs int       `json:"duration_ms"`
	CacheKey   string    `json:"cache_key,omitempty"`
	CreatedAt  time.Time `json:"created_at"`
}

// VisualAsset is the rendered visual for one scene.
type VisualAsset struct {
	Path      string    `json:"path"`
	Format    string    `json:"format"`
	Width     int       `json:"width,omitempty"`
	Height    int       `json:"height,omitempty"`
	CacheKey  string    `json:"cache_key,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// Video is the final composed output for a job.
type Video struct {
	Path       string    `json:"path"`
	DurationMs int       `json:"duration_ms"`
	SceneCount int       `json:"scene_count"`
	ComposedAt time.Time `json:"composed_at"`
}
