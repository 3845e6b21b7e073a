// Package groveerr implements the error taxonomy of spec.md §7. It
// follows the teacher's own error style (fmt.Errorf("...: %w", err)
// wrapping, no third-party errors library) but adds the typed Kind so
// callers can branch on failure class with errors.Is/errors.As, the way
// spec.md's Error Handling Design requires.
package groveerr

import (
	"errors"
	"fmt"
)

// Kind is the taxonomy named in spec.md §7.
type Kind string

const (
	InvalidInput            Kind = "invalid_input"
	InvalidOperation        Kind = "invalid_operation"
	PathKeyNotFound         Kind = "path_key_not_found"
	PathParentLayerNotFound Kind = "path_parent_layer_not_found"
	InvalidProof            Kind = "invalid_proof"
	ChunkingError           Kind = "chunking_error"
	CorruptedData           Kind = "corrupted_data"
	CorruptedPath           Kind = "corrupted_path"
	CorruptedCodeExecution  Kind = "corrupted_code_execution"
	ClientCorruption        Kind = "client_corruption"
	StorageError            Kind = "storage_error"
	NotSupported            Kind = "not_supported"
)

// ChunkingReason further classifies a ChunkingError per spec.md §7.
type ChunkingReason string

const (
	ChunkEmptyTree             ChunkingReason = "empty_tree"
	ChunkOutOfBounds           ChunkingReason = "out_of_bounds"
	ChunkLimitTooSmall         ChunkingReason = "limit_too_small"
	ChunkBadTraversalInstruction ChunkingReason = "bad_traversal_instruction"
	ChunkInternalError         ChunkingReason = "internal_error"
)

// Error is the wrapper type every GroveDB primitive returns. Context is a
// short human-readable description of what was being attempted (e.g. a
// path or query), mirroring InvalidProof{context, reason} in spec.md §7.
type Error struct {
	Kind    Kind
	Context string
	Reason  string
	Err     error
}

func (e *Error) Error() string {
	switch {
	case e.Context != "" && e.Reason != "":
		return fmt.Sprintf("%s: %s (%s)", e.Kind, e.Context, e.Reason)
	case e.Context != "":
		return fmt.Sprintf("%s: %s", e.Kind, e.Context)
	case e.Err != nil:
		return fmt.Sprintf("%s: %v", e.Kind, e.Err)
	default:
		return string(e.Kind)
	}
}

func (e *Error) Unwrap() error { return e.Err }

// Is lets errors.Is match on Kind alone, so callers can do
// errors.Is(err, groveerr.ErrInvalidInput) without needing an exact Error
// value.
func (e *Error) Is(target error) bool {
	var other *Error
	if errors.As(target, &other) {
		return other.Kind == e.Kind
	}
	return false
}

// New constructs a bare Error of the given kind.
func New(kind Kind, context string) *Error {
	return &Error{Kind: kind, Context: context}
}

// Wrap constructs an Error of the given kind wrapping an underlying error.
func Wrap(kind Kind, context string, err error) *Error {
	return &Error{Kind: kind, Context: context, Err: err}
}

// Chunking constructs a ChunkingError with the given sub-reason.
func Chunking(reason ChunkingReason, context string) *Error {
	return &Error{Kind: ChunkingError, Context: context, Reason: string(reason)}
}

// Proof constructs an InvalidProof{context, reason} error.
func Proof(context, reason string) *Error {
	return &Error{Kind: InvalidProof, Context: context, Reason: reason}
}

// sentinel kinds for errors.Is(err, groveerr.ErrXxx) convenience.
var (
	ErrInvalidInput            = New(InvalidInput, "")
	ErrInvalidOperation        = New(InvalidOperation, "")
	ErrPathKeyNotFound         = New(PathKeyNotFound, "")
	ErrPathParentLayerNotFound = New(PathParentLayerNotFound, "")
	ErrCorruptedData           = New(CorruptedData, "")
	ErrCorruptedPath           = New(CorruptedPath, "")
	ErrCorruptedCodeExecution  = New(CorruptedCodeExecution, "")
	ErrClientCorruption        = New(ClientCorruption, "")
	ErrStorageError            = New(StorageError, "")
	ErrNotSupported            = New(NotSupported, "")
)
