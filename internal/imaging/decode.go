// Package imaging turns caller-supplied image payloads into the canonical RGB form
// the embedding backends consume.
package imaging

import (
	"bytes"
	"encoding/base64"
	"fmt"
	"image"
	"image/color"
	"image/draw"
	_ "image/gif"  // register decoder
	_ "image/jpeg" // register decoder
	"image/png"
	"strings"

	_ "golang.org/x/image/bmp"  // register decoder
	_ "golang.org/x/image/tiff" // register decoder
	_ "golang.org/x/image/webp" // register decoder

	"github.com/kailas-cloud/facematch/internal/domain"
)

const (
	// DefaultMaxBytes caps the decoded payload size.
	DefaultMaxBytes = 10 << 20
	// DefaultMaxPixels caps width*height to refuse decompression bombs.
	DefaultMaxPixels = 40_000_000
)

// Decoder validates and decodes image payloads.
type Decoder struct {
	maxBytes  int
	maxPixels int
}

// NewDecoder creates a decoder. Non-positive limits fall back to defaults.
func NewDecoder(maxBytes, maxPixels int) *Decoder {
	if maxBytes <= 0 {
		maxBytes = DefaultMaxBytes
	}
	if maxPixels <= 0 {
		maxPixels = DefaultMaxPixels
	}
	return &Decoder{maxBytes: maxBytes, maxPixels: maxPixels}
}

// Picture is a decoded image flattened onto an opaque canvas.
type Picture struct {
	Format string
	RGBA   *image.RGBA
}

// Decode strips an optional data-URL header, base64-decodes the payload,
// sniffs the format and flattens the pixels to opaque RGB.
// Every failure wraps domain.ErrInvalidImageData.
func (d *Decoder) Decode(payload string) (*Picture, error) {
	raw, err := d.decodeBase64(payload)
	if err != nil {
		return nil, err
	}

	cfg, format, err := image.DecodeConfig(bytes.NewReader(raw))
	if err != nil {
		return nil, invalid("unrecognized image format: %v", err)
	}
	if cfg.Width <= 0 || cfg.Height <= 0 {
		return nil, invalid("empty image %dx%d", cfg.Width, cfg.Height)
	}
	if cfg.Width*cfg.Height > d.maxPixels {
		return nil, invalid("image %dx%d exceeds %d pixels", cfg.Width, cfg.Height, d.maxPixels)
	}

	src, _, err := image.Decode(bytes.NewReader(raw))
	if err != nil {
		return nil, invalid("decode %s: %v", format, err)
	}

	return &Picture{Format: format, RGBA: flatten(src)}, nil
}

// Normalize encodes the picture as an opaque PNG for backends.
func (p *Picture) Normalize() (domain.Image, error) {
	var buf bytes.Buffer
	enc := png.Encoder{CompressionLevel: png.BestSpeed}
	if err := enc.Encode(&buf, p.RGBA); err != nil {
		return domain.Image{}, fmt.Errorf("encode png: %w", err)
	}
	b := p.RGBA.Bounds()
	return domain.Image{
		Format:  p.Format,
		Width:   b.Dx(),
		Height:  b.Dy(),
		Encoded: buf.Bytes(),
	}, nil
}

// StripDataURL removes a "<mime-type-info>," prefix if present.
func StripDataURL(payload string) string {
	if _, after, found := strings.Cut(payload, ","); found {
		return after
	}
	return payload
}

func (d *Decoder) decodeBase64(payload string) ([]byte, error) {
	s := strings.Map(func(r rune) rune {
		switch r {
		case ' ', '\n', '\r', '\t':
			return -1
		}
		return r
	}, StripDataURL(payload))

	if s == "" {
		return nil, invalid("empty image payload")
	}
	if base64.StdEncoding.DecodedLen(len(s)) > d.maxBytes+3 {
		return nil, invalid("image payload exceeds %d bytes", d.maxBytes)
	}

	var firstErr error
	for _, enc := range []*base64.Encoding{
		base64.StdEncoding, base64.RawStdEncoding,
		base64.URLEncoding, base64.RawURLEncoding,
	} {
		raw, err := enc.DecodeString(s)
		if err == nil {
			if len(raw) > d.maxBytes {
				return nil, invalid("image payload exceeds %d bytes", d.maxBytes)
			}
			return raw, nil
		}
		if firstErr == nil {
			firstErr = err
		}
	}
	return nil, invalid("decode base64: %v", firstErr)
}

// flatten draws src over an opaque white canvas anchored at the origin.
func flatten(src image.Image) *image.RGBA {
	b := src.Bounds()
	dst := image.NewRGBA(image.Rect(0, 0, b.Dx(), b.Dy()))
	draw.Draw(dst, dst.Bounds(), image.NewUniform(color.White), image.Point{}, draw.Src)
	draw.Draw(dst, dst.Bounds(), src, b.Min, draw.Over)
	return dst
}

func invalid(format string, args ...any) error {
	return fmt.Errorf("%w: %s", domain.ErrInvalidImageData, fmt.Sprintf(format, args...))
}
