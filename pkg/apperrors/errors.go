package apperrors

import "errors"

var (
	ErrJobNotFound       = errors.New("job not found")
	ErrNoIndex           = errors.New("no vector index for connection")
	ErrEmbeddingFailed   = errors.New("embedding request failed")
	ErrDimensionMismatch = errors.New("embedding dimension mismatch")
	ErrUnsupportedFamily = errors.New("unsupported database family")
	ErrEmptyQuestion     = errors.New("question is empty")
)
