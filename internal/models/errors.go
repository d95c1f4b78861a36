package models

import (
	"errors"
	"fmt"
)

// Kind classifies search subsystem failures.
type Kind int

const (
	// KindIO covers filesystem failures while chunking or indexing.
	KindIO Kind = iota + 1
	// KindIndex covers storage-engine failures (mapping mismatch, corrupt segment).
	KindIndex
	// KindSerialization covers malformed or unsupported manifest and index documents.
	KindSerialization
	// KindNetwork covers fetch transport failures and non-success HTTP statuses.
	KindNetwork
	// KindNotFound covers names missing from a manifest and out-of-bounds ranges.
	KindNotFound
	// KindParse covers malformed input records.
	KindParse
)

// String returns the kind name.
func (k Kind) String() string {
	switch k {
	case KindIO:
		return "io"
	case KindIndex:
		return "index"
	case KindSerialization:
		return "serialization"
	case KindNetwork:
		return "network"
	case KindNotFound:
		return "not found"
	case KindParse:
		return "parse"
	default:
		return "unknown"
	}
}

// Sentinels for errors.Is. A *SearchError matches the sentinel of its kind.
var (
	ErrIO            = errors.New("io error")
	ErrIndex         = errors.New("index error")
	ErrSerialization = errors.New("serialization error")
	ErrNetwork       = errors.New("network error")
	ErrNotFound      = errors.New("not found")
	ErrParse         = errors.New("parse error")
)

var sentinels = map[Kind]error{
	KindIO:            ErrIO,
	KindIndex:         ErrIndex,
	KindSerialization: ErrSerialization,
	KindNetwork:       ErrNetwork,
	KindNotFound:      ErrNotFound,
	KindParse:         ErrParse,
}

// SearchError is the typed error returned by the indexers, the chunker, and the loader.
type SearchError struct {
	Kind Kind
	// Op is the operation that failed, e.g. "chunk file" or "load range".
	Op string
	// Path is the file, chunk, or URL involved, if any.
	Path string
	Err  error
}

// NewError builds a SearchError.
func NewError(kind Kind, op, path string, err error) *SearchError {
	return &SearchError{Kind: kind, Op: op, Path: path, Err: err}
}

// Errorf builds a SearchError whose cause is a formatted message.
func Errorf(kind Kind, op, path, format string, args ...interface{}) *SearchError {
	return &SearchError{Kind: kind, Op: op, Path: path, Err: fmt.Errorf(format, args...)}
}

// Error implements the error interface.
func (e *SearchError) Error() string {
	msg := e.Kind.String()
	if e.Op != "" {
		msg = e.Op + ": " + msg
	}
	if e.Path != "" {
		msg += " (" + e.Path + ")"
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

// Unwrap returns the underlying cause.
func (e *SearchError) Unwrap() error {
	return e.Err
}

// Is matches the sentinel for the error's kind, or another SearchError of the same kind.
func (e *SearchError) Is(target error) bool {
	if t, ok := target.(*SearchError); ok {
		return e.Kind == t.Kind
	}
	return sentinels[e.Kind] == target
}

// IsKind reports whether any error in err's chain is a SearchError of kind.
func IsKind(err error, kind Kind) bool {
	var se *SearchError
	if errors.As(err, &se) {
		return se.Kind == kind
	}
	return false
}
