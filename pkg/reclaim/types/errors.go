package types

import (
	"errors"
	"fmt"
)

// ErrorKind classifies engine failures for callers and the daemon wire.
type ErrorKind int

// Error kinds surfaced by the engine.
const (
	KindUnknown ErrorKind = iota
	KindInvalidPath
	KindPathNotReadable
	KindOperationInProgress
	KindRestoreConflict
	KindManifestNotFound
	KindNoManifests
)

// Sentinel errors, one per kind. An *OpError matches its kind's sentinel
// with errors.Is.
var (
	ErrInvalidPath         = errors.New("invalid path")
	ErrPathNotReadable     = errors.New("path not readable")
	ErrOperationInProgress = errors.New("operation in progress")
	ErrRestoreConflict     = errors.New("restore conflict")
	ErrManifestNotFound    = errors.New("manifest not found")
	ErrNoManifests         = errors.New("no manifests")
)

var kindSentinels = map[ErrorKind]error{
	KindInvalidPath:         ErrInvalidPath,
	KindPathNotReadable:     ErrPathNotReadable,
	KindOperationInProgress: ErrOperationInProgress,
	KindRestoreConflict:     ErrRestoreConflict,
	KindManifestNotFound:    ErrManifestNotFound,
	KindNoManifests:         ErrNoManifests,
}

// String returns the name of the kind.
func (k ErrorKind) String() string {
	switch k {
	case KindInvalidPath:
		return "InvalidPath"
	case KindPathNotReadable:
		return "PathNotReadable"
	case KindOperationInProgress:
		return "OperationInProgress"
	case KindRestoreConflict:
		return "RestoreConflict"
	case KindManifestNotFound:
		return "ManifestNotFound"
	case KindNoManifests:
		return "NoManifests"
	default:
		return "Unknown"
	}
}

// OpError records a failed engine operation and the path it concerned.
type OpError struct {
	Kind ErrorKind
	Path string
	Err  error
}

// ParseErrorKind returns the kind named s, or KindUnknown.
func ParseErrorKind(s string) ErrorKind {
	for kind := range kindSentinels {
		if kind.String() == s {
			return kind
		}
	}
	return KindUnknown
}

// NewOpError builds an OpError. err may be nil.
func NewOpError(kind ErrorKind, path string, err error) *OpError {
	return &OpError{Kind: kind, Path: path, Err: err}
}

func (e *OpError) Error() string {
	msg := kindSentinels[e.Kind]
	text := "operation failed"
	if msg != nil {
		text = msg.Error()
	}
	if e.Path != "" {
		text = fmt.Sprintf("%s: %s", text, e.Path)
	}
	if e.Err != nil {
		text = fmt.Sprintf("%s: %v", text, e.Err)
	}
	return text
}

func (e *OpError) Unwrap() error { return e.Err }

// Is reports whether target is the sentinel for e's kind.
func (e *OpError) Is(target error) bool {
	s, ok := kindSentinels[e.Kind]
	return ok && s == target
}

// KindOf returns the kind of the first OpError in err's chain, or the kind
// of a bare sentinel. It returns KindUnknown otherwise.
func KindOf(err error) ErrorKind {
	var op *OpError
	if errors.As(err, &op) {
		return op.Kind
	}
	for kind, sentinel := range kindSentinels {
		if errors.Is(err, sentinel) {
			return kind
		}
	}
	return KindUnknown
}
