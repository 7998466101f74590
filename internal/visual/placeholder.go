package visual

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"image/png"

	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"

	"github.com/bobarin/scenecast/internal/models"
)

const (
	placeholderWidth  = 1280
	placeholderHeight = 720
)

// PlaceholderRenderer draws the scene's visual type (and a short hint)
// onto a flat image, entirely locally. It is used for unrecognized
// VisualType values and as the last-resort fallback when every other
// renderer exhausts its retries, so it must never itself make a network
// call that could fail.
type PlaceholderRenderer struct{}

func NewPlaceholderRenderer() *PlaceholderRenderer {
	return &PlaceholderRenderer{}
}

func (PlaceholderRenderer) Render(ctx context.Context, scene *models.Scene) ([]byte, error) {
	img := image.NewRGBA(image.Rect(0, 0, placeholderWidth, placeholderHeight))
	draw.Draw(img, img.Bounds(), &image.Uniform{C: color.RGBA{R: 30, G: 30, B: 36, A: 255}}, image.Point{}, draw.Src)

	label := fmt.Sprintf("[%s]", scene.VisualType)
	drawCenteredText(img, label, placeholderHeight/2-20)
	drawCenteredText(img, truncateForLabel(scene.VisualPrompt, 60), placeholderHeight/2+20)

	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return nil, fmt.Errorf("visual: placeholder: encode png: %w", err)
	}
	return buf.Bytes(), nil
}

func drawCenteredText(img *image.RGBA, text string, y int) {
	face := basicfont.Face7x13
	width := font.MeasureString(face, text).Ceil()
	x := (placeholderWidth - width) / 2
	if x < 0 {
		x = 0
	}

	d := &font.Drawer{
		Dst:  img,
		Src:  image.NewUniform(color.White),
		Face: face,
		Dot:  fixed.P(x, y),
	}
	d.DrawString(text)
}

func truncateForLabel(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max] + "..."
}
