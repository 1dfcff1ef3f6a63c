package domain

import "errors"

// Domain errors - used across all layers
var (
	// ErrNotFound indicates the requested resource was not found
	ErrNotFound = errors.New("not found")

	// ErrAlreadyExists indicates the resource already exists
	ErrAlreadyExists = errors.New("already exists")

	// ErrInvalidInput indicates the input is invalid
	ErrInvalidInput = errors.New("invalid input")

	// ErrFetch indicates a page could not be fetched or rendered
	ErrFetch = errors.New("fetch failed")

	// ErrRobotsDisallowed indicates robots.txt forbids fetching the URL
	ErrRobotsDisallowed = errors.New("disallowed by robots.txt")

	// ErrEmbeddingProvider indicates the embedding provider failed
	// (auth, rate limit, network). The whole batch is aborted.
	ErrEmbeddingProvider = errors.New("embedding provider error")

	// ErrInvalidProvider indicates an unknown embedding provider was specified
	ErrInvalidProvider = errors.New("invalid provider")

	// ErrStorage indicates the underlying persistence layer failed
	ErrStorage = errors.New("storage error")

	// ErrIngestInProgress indicates another ingestion of the same URL holds the lock
	ErrIngestInProgress = errors.New("ingestion already in progress")
)
