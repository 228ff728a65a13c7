package domain

import "errors"

// Sentinel errors for the pipeline. Wrap with fmt.Errorf("%w: ...") so
// callers can classify with errors.Is while keeping the diagnostic detail.
var (
	// ErrInvalidConfiguration indicates caller-supplied configuration
	// violates a contract (bad chunk sizes, unknown metric). Never retried.
	ErrInvalidConfiguration = errors.New("invalid configuration")

	// ErrInvalidArgument indicates a malformed request parameter
	// (empty question, non-positive k). Never retried.
	ErrInvalidArgument = errors.New("invalid argument")

	// ErrEmptyDocument indicates a source document with no usable text.
	ErrEmptyDocument = errors.New("empty document")

	// ErrCollectionExists indicates a create without the recreate flag hit
	// an existing collection.
	ErrCollectionExists = errors.New("collection already exists")

	// ErrCollectionNotFound indicates an operation on a missing collection.
	ErrCollectionNotFound = errors.New("collection not found")

	// ErrDimensionMismatch indicates a vector whose length differs from the
	// collection's declared dimension. Never truncated or padded.
	ErrDimensionMismatch = errors.New("vector dimension mismatch")

	// ErrEmbeddingProvider indicates a terminal embedding provider failure
	// after bounded retries.
	ErrEmbeddingProvider = errors.New("embedding provider error")

	// ErrGenerationFailed indicates a terminal language model failure after
	// bounded retries.
	ErrGenerationFailed = errors.New("generation failed")
)

// ErrorKind maps an error to the stable kind string exposed in API error
// payloads. Unrecognized errors report as "internal".
func ErrorKind(err error) string {
	switch {
	case errors.Is(err, ErrInvalidConfiguration):
		return "invalid_configuration"
	case errors.Is(err, ErrInvalidArgument):
		return "invalid_argument"
	case errors.Is(err, ErrEmptyDocument):
		return "empty_document"
	case errors.Is(err, ErrCollectionExists):
		return "collection_exists"
	case errors.Is(err, ErrCollectionNotFound):
		return "collection_not_found"
	case errors.Is(err, ErrDimensionMismatch):
		return "dimension_mismatch"
	case errors.Is(err, ErrEmbeddingProvider):
		return "embedding_provider_error"
	case errors.Is(err, ErrGenerationFailed):
		return "generation_failed"
	}
	return "internal"
}
