package interfaces

import (
	"context"

	"github.com/m-mizutani/herald/pkg/domain/model"
)

// HerokuClient defines the Heroku Platform API calls used to fill in release details
type HerokuClient interface {
	GetRelease(ctx context.Context, app string, version int) (*model.HerokuRelease, error)
	GetSlug(ctx context.Context, app, slugID string) (*model.HerokuSlug, error)

	// ListReleases returns up to max releases, newest first
	ListReleases(ctx context.Context, app string, max int) ([]*model.HerokuRelease, error)
}
