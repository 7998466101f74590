package llm

import (
	"strings"
	"testing"

	"github.com/bobarin/scenecast/internal/models"
)

func sceneJSONPayload(narrations []string) string {
	var sb strings.Builder
	sb.WriteString(`{"scenes":[`)
	for i, n := range narrations {
		if i > 0 {
			sb.WriteString(",")
		}
		sb.WriteString(`{"narration_text":"` + n + `","visual_type":"slide","visual_prompt":"a slide"}`)
	}
	sb.WriteString(`]}`)
	return sb.String()
}

func TestParseScriptAcceptsNarrationWithinBounds(t *testing.T) {
	script, err := parseScript(sceneJSONPayload([]string{
		"this narration is exactly long enough to pass",
		"so is this one, also comfortably within bounds",
		"and a third scene with plenty of narration text",
	}))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	for _, scene := range script.Scenes {
		if scene.Status != models.SceneStatusPending {
			t.Errorf("expected scene %s to stay pending, got %s", scene.ID, scene.Status)
		}
	}
}

func TestParseScriptFailsScenesOutsideNarrationBounds(t *testing.T) {
	tooShort := strings.Repeat("a", minNarrationChars-1)
	tooLong := strings.Repeat("a", maxNarrationChars+1)
	okLength := strings.Repeat("a", minNarrationChars)

	script, err := parseScript(sceneJSONPayload([]string{tooShort, okLength, tooLong}))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(script.Scenes) != 3 {
		t.Fatalf("expected 3 scenes, got %d", len(script.Scenes))
	}
	if script.Scenes[0].Status != models.SceneStatusFailed {
		t.Errorf("expected too-short narration to fail the scene, got %s", script.Scenes[0].Status)
	}
	if script.Scenes[1].Status != models.SceneStatusPending {
		t.Errorf("expected boundary-length narration to pass, got %s", script.Scenes[1].Status)
	}
	if script.Scenes[2].Status != models.SceneStatusFailed {
		t.Errorf("expected too-long narration to fail the scene, got %s", script.Scenes[2].Status)
	}
}

func TestParseScriptRejectsOutOfRangeSceneCount(t *testing.T) {
	if _, err := parseScript(sceneJSONPayload([]string{"only one scene here, far too few for a script"})); err == nil {
		t.Fatal("expected error for too few scenes")
	}
}
