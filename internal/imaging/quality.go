package imaging

import (
	"image"

	"github.com/kailas-cloud/facematch/internal/domain"
)

// Quality heuristics: small images and badly exposed images lose score.
const (
	MinSide          = 100
	MinBrightness    = 20.0
	MaxBrightness    = 235.0
	resolutionDeduct = 0.4
	exposureDeduct   = 0.3
)

// Issue descriptions reported in QualityReport.Issues.
const (
	IssueLowResolution = "resolution too low"
	IssueExposure      = "brightness out of range"
)

// Quality scores a picture between 0 and 1.
func Quality(img *image.RGBA) domain.QualityReport {
	report := domain.QualityReport{Score: 1.0, Issues: []string{}}

	b := img.Bounds()
	if b.Dx() < MinSide || b.Dy() < MinSide {
		report.Issues = append(report.Issues, IssueLowResolution)
		report.Score -= resolutionDeduct
	}

	if avg := meanLuma(img); avg < MinBrightness || avg > MaxBrightness {
		report.Issues = append(report.Issues, IssueExposure)
		report.Score -= exposureDeduct
	}

	if report.Score < 0 {
		report.Score = 0
	}
	return report
}

// meanLuma averages ITU-R 601 luma over all pixels.
func meanLuma(img *image.RGBA) float64 {
	b := img.Bounds()
	n := b.Dx() * b.Dy()
	if n == 0 {
		return 0
	}

	var sum uint64
	for y := b.Min.Y; y < b.Max.Y; y++ {
		row := img.Pix[img.PixOffset(b.Min.X, y):]
		for x := 0; x < b.Dx(); x++ {
			p := row[x*4 : x*4+3]
			sum += (299*uint64(p[0]) + 587*uint64(p[1]) + 114*uint64(p[2])) / 1000
		}
	}
	return float64(sum) / float64(n)
}
