package stdio

import (
	"errors"

	"github.com/kailas-cloud/facematch/internal/domain"
)

// Stable error codes reported next to the human-readable message.
const (
	CodeInvalidImageData  = "invalid_image_data"
	CodeNoFaceDetected    = "no_face_detected"
	CodeDimensionMismatch = "dimension_mismatch"
	CodeUnknownOperation  = "unknown_operation"
	CodeInvalidRequest    = "invalid_request"
	CodeExtractorError    = "extractor_error"
	CodeLowImageQuality   = "low_image_quality"
	CodeInternalError     = "internal_error"
)

const (
	internalErrorMessage  = "Internal error"
	extractorErrorMessage = "Embedding extraction failed"
)

// errorClass maps a sentinel to its code. Order matters: extractor failures may
// wrap a dimension mismatch and must be reported as extractor errors.
type errorClass struct {
	sentinel error
	code     string
}

var errorClasses = []errorClass{
	{domain.ErrUnknownOperation, CodeUnknownOperation},
	{domain.ErrInvalidRequest, CodeInvalidRequest},
	{domain.ErrInvalidImageData, CodeInvalidImageData},
	{domain.ErrImageQuality, CodeLowImageQuality},
	{domain.ErrNoFaceDetected, CodeNoFaceDetected},
	{domain.ErrExtractorFailure, CodeExtractorError},
	{domain.ErrDimensionMismatch, CodeDimensionMismatch},
}

// Classify returns the error code and caller-facing message for err.
// Backend faults and unclassified errors get a fixed message; the detail is logged only.
func Classify(err error) (code, message string) {
	for _, c := range errorClasses {
		if errors.Is(err, c.sentinel) {
			if c.code == CodeExtractorError {
				return c.code, extractorErrorMessage
			}
			return c.code, err.Error()
		}
	}
	return CodeInternalError, internalErrorMessage
}

// Failure builds the failure envelope for err.
func Failure(err error) FailureResponse {
	code, msg := Classify(err)
	return FailureResponse{Envelope{Success: false, Error: msg, ErrorCode: code}}
}
