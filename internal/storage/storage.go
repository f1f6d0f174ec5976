package storage

import (
	"fmt"
	"strings"
	"time"

	"github.com/samvad-hq/go-wms/internal/domain"
)

// Package storage archives the latest capabilities snapshot per endpoint.

// Store keeps the most recent snapshot of each endpoint.
type Store interface {
	Close() error
	Latest(endpointID string) (domain.Snapshot, bool, error)
	Save(snap domain.Snapshot) error
}

// Options controls retention characteristics for concrete store implementations.
type Options struct {
	SnapshotTTL     time.Duration
	CleanupInterval time.Duration
}

const (
	defaultSnapshotTTL     = 30 * 24 * time.Hour
	defaultCleanupInterval = 12 * time.Hour
)

// NewStore creates the configured storage backend.
func NewStore(typ, path string, opts Options) (Store, error) {
	typ = strings.TrimSpace(strings.ToLower(typ))
	opts = normalizeOptions(opts)

	switch typ {
	case "", "none", "disabled":
		return noopStore{}, nil
	case "bbolt":
		if strings.TrimSpace(path) == "" {
			return nil, fmt.Errorf("bbolt storage requires a path")
		}
		return openBolt(path, opts)
	default:
		return nil, fmt.Errorf("unsupported storage type %q", typ)
	}
}

func normalizeOptions(opts Options) Options {
	if opts.SnapshotTTL <= 0 {
		opts.SnapshotTTL = defaultSnapshotTTL
	}
	if opts.CleanupInterval <= 0 {
		opts.CleanupInterval = defaultCleanupInterval
	}
	return opts
}

type noopStore struct{}

func (noopStore) Close() error                                  { return nil }
func (noopStore) Latest(string) (domain.Snapshot, bool, error) { return domain.Snapshot{}, false, nil }
func (noopStore) Save(domain.Snapshot) error                    { return nil }
