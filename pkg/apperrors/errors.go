package apperrors

import "errors"

var (
	ErrNotFound          = errors.New("not found")
	ErrNotSupported      = errors.New("not supported by datasource")
	ErrSourceUnavailable = errors.New("data source unavailable")
	ErrMalformedName     = errors.New("malformed qualified table name")
	ErrInsufficientData  = errors.New("insufficient data")
	ErrFilteredAggregate = errors.New("ranking requires the unfiltered aggregate")
	ErrUnsafeIdentifier  = errors.New("unsafe identifier")
	ErrLLMNotConfigured  = errors.New("llm not configured")
	ErrEmbeddingSize     = errors.New("embedding dimension mismatch")
)
