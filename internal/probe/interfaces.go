package probe

import (
	"context"

	"github.com/samvad-hq/go-wms/internal/domain"
	"github.com/samvad-hq/go-wms/pkg/publishers"
)

// EventPublisher delivers probe events downstream.
type EventPublisher interface {
	Publish(ctx context.Context, evt publishers.Event) (int, error)
}

// SnapshotStore keeps the last known service identity per endpoint.
type SnapshotStore interface {
	Latest(endpointID string) (domain.Snapshot, bool, error)
	Save(snap domain.Snapshot) error
}
