package main

import (
	"fmt"

	"go.uber.org/zap"

	"github.com/kailas-cloud/facematch/internal/config"
	"github.com/kailas-cloud/facematch/internal/domain"
	"github.com/kailas-cloud/facematch/internal/imaging"
	"github.com/kailas-cloud/facematch/internal/transport/command"
	"github.com/kailas-cloud/facematch/internal/transport/deepface"
	openaiExt "github.com/kailas-cloud/facematch/internal/transport/openai"
	"github.com/kailas-cloud/facematch/internal/usecase/extraction"
	"github.com/kailas-cloud/facematch/internal/usecase/matching"
)

// buildBackend creates the raw extractor for the configured backend.
func buildBackend(cfg config.Config, logger *zap.Logger) (domain.Extractor, error) {
	ext := cfg.Extractor
	switch ext.Backend {
	case config.BackendDeepFace:
		return deepface.NewExtractor(&deepface.Config{
			BaseURL:          ext.BaseURL,
			Model:            cfg.Model.Name,
			Detector:         cfg.Model.Detector,
			EnforceDetection: *ext.EnforceDetection,
			Align:            *ext.Align,
			Timeout:          cfg.Timeout(),
			Logger:           logger,
		}), nil
	case config.BackendOpenAI:
		return openaiExt.NewExtractor(&openaiExt.Config{
			APIKey:     ext.APIKey,
			BaseURL:    ext.BaseURL,
			Model:      cfg.Model.Name,
			Dimensions: cfg.Model.Dimensions,
			Logger:     logger,
		}), nil
	case config.BackendCommand:
		return command.NewExtractor(&command.Config{
			Command:          ext.Command,
			Args:             ext.Args,
			Model:            cfg.Model.Name,
			Detector:         cfg.Model.Detector,
			EnforceDetection: *ext.EnforceDetection,
			Timeout:          cfg.Timeout(),
			Logger:           logger,
		}), nil
	default:
		return nil, fmt.Errorf("unknown extractor backend %q", ext.Backend)
	}
}

// buildExtraction assembles decoder -> instrumented backend -> extraction service.
func buildExtraction(cfg config.Config, logger *zap.Logger) (*extraction.Service, error) {
	backend, err := buildBackend(cfg, logger)
	if err != nil {
		return nil, err
	}

	instrumented := extraction.NewInstrumentedExtractor(backend, cfg.Extractor.Backend, cfg.Model.Name, logger)
	decoder := imaging.NewDecoder(cfg.Image.MaxBytes, cfg.Image.MaxPixels)

	return extraction.New(decoder, instrumented, extraction.Config{
		Backend:    cfg.Extractor.Backend,
		Policy:     cfg.SelectionPolicy(),
		Dimensions: cfg.Model.Dimensions,
		MinQuality: cfg.Image.MinQualityScore,
	}), nil
}

func newEngine(cfg domain.MatchConfig, logger *zap.Logger) *matching.Engine {
	return matching.New(cfg, logger)
}
