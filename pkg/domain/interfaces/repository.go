package interfaces

import (
	"context"

	"github.com/m-mizutani/herald/pkg/domain/model"
)

// Repository persists release events keyed by app ID and version
type Repository interface {
	// GetRelease returns nil without error when the release is not recorded
	GetRelease(ctx context.Context, appID string, version int) (*model.ReleaseEvent, error)
	PutRelease(ctx context.Context, release *model.ReleaseEvent) error

	// FindParent returns the latest deployment of the app with a lower version, or nil
	FindParent(ctx context.Context, appID string, version int) (*model.ReleaseEvent, error)

	// ListReleases returns up to limit releases of the app, newest first
	ListReleases(ctx context.Context, appID string, limit int) ([]*model.ReleaseEvent, error)
}
