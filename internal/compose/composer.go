// Package compose turns a job's per-scene audio+visual assets into a
// single MP4, shelling out to ffmpeg/ffprobe exactly as the teacher's
// internal/services/ffmpeg.go does. The Ken-Burns/zoompan motion-filter
// logic is dropped since scenes here are static visuals, not generated
// video clips; what's kept is the concat-list and ffprobe-duration idiom.
package compose

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"

	"github.com/bobarin/scenecast/internal/models"
)

// Composer shells out to ffmpeg/ffprobe to render each scene's still
// image + narration audio into a clip, then concatenates the clips.
type Composer struct {
	ffmpegPath  string
	ffprobePath string
	tempDir     string
}

// New builds a Composer; tempDir is created if missing, matching the
// teacher's NewFFmpegService behavior.
func New(ffmpegPath, ffprobePath, tempDir string) (*Composer, error) {
	if err := os.MkdirAll(tempDir, 0o755); err != nil {
		return nil, fmt.Errorf("compose: create temp dir: %w", err)
	}
	return &Composer{ffmpegPath: ffmpegPath, ffprobePath: ffprobePath, tempDir: tempDir}, nil
}

// Compose renders one clip per scene (static image held for the
// narration's duration) and concatenates them into outputPath. Scenes
// must already be Complete (both assets present); incomplete scenes are
// the caller's responsibility to have excluded beforehand.
func (c *Composer) Compose(ctx context.Context, jobID string, scenes []*models.Scene, outputPath string) (*models.Video, error) {
	if len(scenes) == 0 {
		return nil, fmt.Errorf("compose: no scenes to compose")
	}

	clipDir := filepath.Join(c.tempDir, jobID, "clips")
	if err := os.MkdirAll(clipDir, 0o755); err != nil {
		return nil, fmt.Errorf("compose: create clip dir: %w", err)
	}

	clipPaths := make([]string, 0, len(scenes))
	for _, scene := range scenes {
		clipPath := filepath.Join(clipDir, scene.ID+".mp4")
		if err := c.renderSceneClip(ctx, scene, clipPath); err != nil {
			return nil, fmt.Errorf("compose: scene %s: %w", scene.ID, err)
		}
		clipPaths = append(clipPaths, clipPath)
	}

	if err := os.MkdirAll(filepath.Dir(outputPath), 0o755); err != nil {
		return nil, fmt.Errorf("compose: create output dir: %w", err)
	}
	if err := c.concatenate(ctx, clipPaths, outputPath); err != nil {
		return nil, fmt.Errorf("compose: concatenate clips: %w", err)
	}

	duration, err := c.videoDuration(ctx, outputPath)
	if err != nil {
		duration = 0
	}

	return &models.Video{
		Path:       outputPath,
		DurationMs: duration,
		SceneCount: len(scenes),
		ComposedAt: time.Now(),
	}, nil
}

// renderSceneClip holds the scene's still image for the duration of its
// narration audio, muxing the two together.
func (c *Composer) renderSceneClip(ctx context.Context, scene *models.Scene, clipPath string) error {
	if scene.Audio == nil || scene.Visual == nil {
		return fmt.Errorf("scene missing audio or visual asset")
	}

	args := []string{
		"-y",
		"-loop", "1",
		"-i", scene.Visual.Path,
		"-i", scene.Audio.Path,
		"-c:v", "libx264",
		"-tune", "stillimage",
		"-c:a", "aac",
		"-b:a", "192k",
		"-pix_fmt", "yuv420p",
		"-shortest",
		"-vf", "scale=1920:1080:force_original_aspect_ratio=decrease,pad=1920:1080:(ow-iw)/2:(oh-ih)/2",
		clipPath,
	}
	cmd := exec.CommandContext(ctx, c.ffmpegPath, args...)
	if out, err := cmd.CombinedOutput(); err != nil {
		return fmt.Errorf("ffmpeg failed: %w: %s", err, truncateOutput(out))
	}
	return nil
}

// concatenate writes an ffmpeg concat-format list file and runs the
// concat demuxer with stream copy, matching the teacher's ConcatenateClips.
func (c *Composer) concatenate(ctx context.Context, clipPaths []string, outputPath string) error {
	listPath := filepath.Join(filepath.Dir(outputPath), "concat_list.txt")
	var sb strings.Builder
	for _, p := range clipPaths {
		sb.WriteString(fmt.Sprintf("file '%s'\n", escapeForConcat(p)))
	}
	if err := os.WriteFile(listPath, []byte(sb.String()), 0o644); err != nil {
		return fmt.Errorf("write concat list: %w", err)
	}
	defer os.Remove(listPath)

	cmd := exec.CommandContext(ctx, c.ffmpegPath,
		"-y", "-f", "concat", "-safe", "0", "-i", listPath, "-c", "copy", outputPath)
	if out, err := cmd.CombinedOutput(); err != nil {
		return fmt.Errorf("ffmpeg concat failed: %w: %s", err, truncateOutput(out))
	}
	return nil
}

// videoDuration reads the output duration via ffprobe, matching the
// teacher's GetVideoDuration.
func (c *Composer) videoDuration(ctx context.Context, path string) (int, error) {
	cmd := exec.CommandContext(ctx, c.ffprobePath,
		"-v", "error",
		"-show_entries", "format=duration",
		"-of", "default=noprint_wrappers=1:nokey=1",
		path)
	out, err := cmd.Output()
	if err != nil {
		return 0, fmt.Errorf("ffprobe failed: %w", err)
	}

	var seconds float64
	if _, err := fmt.Sscanf(strings.TrimSpace(string(out)), "%f", &seconds); err != nil {
		return 0, fmt.Errorf("parse ffprobe duration: %w", err)
	}
	return int(seconds * 1000), nil
}

func escapeForConcat(path string) string {
	return strings.ReplaceAll(path, "'", "'\\''")
}

func truncateOutput(out []byte) string {
	const max = 1024
	if len(out) > max {
		return string(out[len(out)-max:])
	}
	return string(out)
}
