package domain

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrInvalidImageData signals a payload that cannot be decoded as an image.
	ErrInvalidImageData = errors.New("invalid image data")
	// ErrNoFaceDetected signals a decodable image without a usable face.
	ErrNoFaceDetected = errors.New("no face detected")
	// ErrDimensionMismatch signals a comparison between embeddings of different length.
	ErrDimensionMismatch = errors.New("embedding dimension mismatch")
	// ErrUnknownOperation signals a request type without a handler.
	ErrUnknownOperation = errors.New("unknown operation")
	// ErrInvalidRequest signals a malformed envelope or missing fields.
	ErrInvalidRequest = errors.New("invalid request")
	// ErrExtractorFailure signals an embedding backend failure.
	ErrExtractorFailure = errors.New("extractor failure")
	// ErrImageQuality signals an image rejected by the quality gate.
	ErrImageQuality = errors.New("image quality too low")
	// ErrUnhandledFault signals an unexpected internal fault caught at the boundary.
	ErrUnhandledFault = errors.New("unhandled fault")
)

// DimensionMismatchError wraps ErrDimensionMismatch with both lengths.
type DimensionMismatchError struct {
	Want int
	Got  int
}

func (e *DimensionMismatchError) Error() string {
	return fmt.Sprintf("%s: %d != %d", ErrDimensionMismatch.Error(), e.Want, e.Got)
}

func (e *DimensionMismatchError) Unwrap() error { return ErrDimensionMismatch }

// NewDimensionMismatch creates a dimension mismatch error.
func NewDimensionMismatch(want, got int) error {
	return &DimensionMismatchError{Want: want, Got: got}
}

// UnknownOperationError wraps ErrUnknownOperation with the rejected type name.
type UnknownOperationError struct {
	Type string
}

func (e *UnknownOperationError) Error() string {
	return fmt.Sprintf("Unknown request type: %s", e.Type)
}

func (e *UnknownOperationError) Unwrap() error { return ErrUnknownOperation }

// QualityError wraps ErrImageQuality with the report that failed the gate.
type QualityError struct {
	Report QualityReport
	Min    float64
}

func (e *QualityError) Error() string {
	msg := fmt.Sprintf("%s: score %.2f < %.2f", ErrImageQuality.Error(), e.Report.Score, e.Min)
	if len(e.Report.Issues) > 0 {
		msg += " (" + strings.Join(e.Report.Issues, ", ") + ")"
	}
	return msg
}

func (e *QualityError) Unwrap() error { return ErrImageQuality }

// QualityReport is a cheap heuristic assessment of an input image.
type QualityReport struct {
	Score  float64  `json:"score"`
	Issues []string `json:"issues"`
}
