package imaging

import (
	"image"
	"image/color"
	"image/draw"
	"testing"

	"github.com/stretchr/testify/assert"
)

func rgba(w, h int, c color.Color) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	draw.Draw(img, img.Bounds(), image.NewUniform(c), image.Point{}, draw.Src)
	return img
}

func TestQuality_Good(t *testing.T) {
	r := Quality(rgba(200, 200, color.Gray{Y: 128}))
	assert.InDelta(t, 1.0, r.Score, 1e-9)
	assert.Empty(t, r.Issues)
	assert.NotNil(t, r.Issues)
}

func TestQuality_LowResolution(t *testing.T) {
	r := Quality(rgba(99, 200, color.Gray{Y: 128}))
	assert.InDelta(t, 0.6, r.Score, 1e-9)
	assert.Equal(t, []string{IssueLowResolution}, r.Issues)
}

func TestQuality_Exposure(t *testing.T) {
	dark := Quality(rgba(120, 120, color.Gray{Y: 5}))
	assert.InDelta(t, 0.7, dark.Score, 1e-9)
	assert.Equal(t, []string{IssueExposure}, dark.Issues)

	bright := Quality(rgba(120, 120, color.White))
	assert.InDelta(t, 0.7, bright.Score, 1e-9)
}

func TestQuality_Both(t *testing.T) {
	r := Quality(rgba(10, 10, color.Black))
	assert.InDelta(t, 0.3, r.Score, 1e-9)
	assert.Equal(t, []string{IssueLowResolution, IssueExposure}, r.Issues)
}

func TestMeanLuma(t *testing.T) {
	assert.InDelta(t, 255.0, meanLuma(rgba(4, 4, color.White)), 1e-9)
	assert.InDelta(t, 0.0, meanLuma(rgba(4, 4, color.Black)), 1e-9)
	// 0.299*255 truncated.
	assert.InDelta(t, 76.0, meanLuma(rgba(4, 4, color.RGBA{R: 255, A: 255})), 1e-9)
}
