package sqliteengine

import (
	"fmt"
	"strings"

	"github.com/AntonStoeckl/provider-directory-go/directory"
	"github.com/AntonStoeckl/provider-directory-go/directory/blobstore"
)

// Mode names a backend variant.
type Mode string

// Supported backend variants.
const (
	ModeNoop     Mode = "noop"
	ModeSnapshot Mode = "snapshot"
	ModeWorker   Mode = "worker"
	ModePartial  Mode = "partial"
)

// ClosableBackend is a directory.Backend that holds releasable resources.
type ClosableBackend interface {
	directory.Backend
	Close() error
}

// ParseMode maps a configuration value to a Mode.
func ParseMode(s string) (Mode, error) {
	switch m := Mode(strings.ToLower(strings.TrimSpace(s))); m {
	case ModeNoop, ModeSnapshot, ModeWorker, ModePartial:
		return m, nil
	default:
		return "", fmt.Errorf("%w: backend mode %q", directory.ErrInvalidOption, s)
	}
}

// New creates the backend variant named by mode.
func New(mode Mode, store blobstore.Store, options ...Option) (ClosableBackend, error) {
	var (
		backend ClosableBackend
		err     error
	)

	switch mode {
	case ModeNoop:
		return NewNoopBackend(), nil
	case ModeSnapshot:
		backend, err = NewSnapshotBackend(store, options...)
	case ModeWorker:
		backend, err = NewWorkerBackend(store, options...)
	case ModePartial:
		backend, err = NewPartialFetchBackend(store, options...)
	default:
		return nil, fmt.Errorf("%w: backend mode %q", directory.ErrInvalidOption, mode)
	}

	if err != nil {
		return nil, err
	}

	return backend, nil
}
