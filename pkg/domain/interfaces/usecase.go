package interfaces

import (
	"context"

	"github.com/m-mizutani/herald/pkg/domain/model"
)

// ReleaseUseCase defines operations for release event processing
type ReleaseUseCase interface {
	// HandleRelease records a release event and creates the GitHub release when it succeeded
	HandleRelease(ctx context.Context, event *model.ReleaseEvent) (*model.SyncResult, error)

	// SyncReleases pulls recent releases of the app from Heroku and handles each of them
	SyncReleases(ctx context.Context, appName string, opts model.SyncOptions) (*model.BatchResult, error)

	// StashRelease handles the release described by dyno metadata
	StashRelease(ctx context.Context, event *model.ReleaseEvent) (*model.SyncResult, error)

	// UpdateRelease regenerates name and notes of a pushed GitHub release
	UpdateRelease(ctx context.Context, appID string, version int) (*model.SyncResult, error)

	// UpdateReleases runs UpdateRelease for recorded releases of the app
	UpdateReleases(ctx context.Context, appID string, opts model.SyncOptions) (*model.BatchResult, error)

	// DeleteRelease deletes the GitHub release and marks the record as not pushed
	DeleteRelease(ctx context.Context, appID string, version int) (*model.SyncResult, error)
}

// WebhookProcessor processes parsed Heroku webhooks
type WebhookProcessor interface {
	ProcessEvent(ctx context.Context, hook *model.HerokuWebhook) (*model.SyncResult, error)
}
