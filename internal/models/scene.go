package models

import "time"

// VisualType selects which renderer in the asset router produces a
// scene's visual.
type VisualType string

const (
	VisualSlide   VisualType = "slide"
	VisualDiagram VisualType = "diagram"
	VisualGraph   VisualType = "graph"
	VisualFormula VisualType = "formula"
	VisualCode    VisualType = "code"
)

// SceneStatus tracks an individual scene's progress through asset
// generation. A scene is Complete only once both its audio and visual
// assets are present.
type SceneStatus string

const (
	SceneStatusPending SceneStatus = "pending"
	SceneStatusPartial SceneStatus = "partial"
	SceneStatusComplete SceneStatus = "complete"
	SceneStatusFailed   SceneStatus = "failed"
)

// Script is the LLM-produced (or fallback-generated) breakdown of the
// source document into 3-7 scenes.
type Script struct {
	Scenes    []*Scene `json:"scenes"`
	Fallback  bool     `json:"fallback"`
	GeneratedAt time.Time `json:"generated_at"`
}

// Scene is one beat of the script: narration text plus a description of
// the visual that should accompany it.
type Scene struct {
	ID            string      `json:"id"`
	Index         int         `json:"index"`
	NarrationText string      `json:"narration_text"`
	VisualType    VisualType  `json:"visual_type"`
	VisualPrompt  string      `json:"visual_prompt"`
	Status        SceneStatus `json:"status"`
	Audio         *AudioAsset `json:"audio,omitempty"`
	Visual        *VisualAsset `json:"visual,omitempty"`
}

// Complete reports whether the scene has both of its required assets.
func (s *Scene) Complete() bool {
	return s.Audio != nil && s.Visual != nil
}
