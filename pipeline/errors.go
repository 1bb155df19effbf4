package pipeline

import "errors"

var (
	// ErrRepositoriesRequired is returned when any storage repository is not provided.
	ErrRepositoriesRequired = errors.New("storage repositories required")

	// ErrBlobStoreRequired is returned when a blob store is not provided.
	ErrBlobStoreRequired = errors.New("blob store required")

	// ErrAIProviderRequired is returned when an AI provider is not provided.
	ErrAIProviderRequired = errors.New("AI provider required")

	// ErrWrongKind is returned when a trigger names a document of the wrong kind,
	// e.g. policy processing requested for an audit document.
	ErrWrongKind = errors.New("document kind does not match requested processing")
)
