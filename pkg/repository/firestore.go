package repository

import (
	"context"
	"strconv"

	"cloud.google.com/go/firestore"
	"github.com/m-mizutani/goerr/v2"
	"github.com/m-mizutani/herald/pkg/domain/interfaces"
	"github.com/m-mizutani/herald/pkg/domain/model"
	"google.golang.org/api/iterator"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

const (
	collectionApps     = "apps"
	collectionReleases = "releases"
)

// Firestore stores releases under apps/{appID}/releases/{version}
type Firestore struct {
	client *firestore.Client
}

var _ interfaces.Repository = (*Firestore)(nil)

// NewFirestore connects to the Firestore database of the project
func NewFirestore(ctx context.Context, projectID, databaseID string) (*Firestore, error) {
	if databaseID == "" {
		databaseID = firestore.DefaultDatabaseID
	}
	client, err := firestore.NewClientWithDatabase(ctx, projectID, databaseID)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to create Firestore client",
			goerr.V("project_id", projectID),
			goerr.V("database_id", databaseID),
		)
	}
	return &Firestore{client: client}, nil
}

// Close releases the underlying client
func (f *Firestore) Close() error {
	return f.client.Close()
}

func (f *Firestore) releases(appID string) *firestore.CollectionRef {
	return f.client.Collection(collectionApps).Doc(appID).Collection(collectionReleases)
}

// GetRelease reads the release document, returning nil when it does not exist
func (f *Firestore) GetRelease(ctx context.Context, appID string, version int) (*model.ReleaseEvent, error) {
	doc, err := f.releases(appID).Doc(strconv.Itoa(version)).Get(ctx)
	if err != nil {
		if status.Code(err) == codes.NotFound {
			return nil, nil
		}
		return nil, goerr.Wrap(err, "failed to get release",
			goerr.V("app_id", appID),
			goerr.V("version", version),
		)
	}

	var release model.ReleaseEvent
	if err := doc.DataTo(&release); err != nil {
		return nil, goerr.Wrap(err, "failed to decode release",
			goerr.V("app_id", appID),
			goerr.V("version", version),
		)
	}
	return &release, nil
}

// PutRelease overwrites the release document
func (f *Firestore) PutRelease(ctx context.Context, release *model.ReleaseEvent) error {
	ref := f.releases(release.AppID).Doc(strconv.Itoa(release.Version))
	if _, err := ref.Set(ctx, release); err != nil {
		return goerr.Wrap(err, "failed to put release",
			goerr.V("app_id", release.AppID),
			goerr.V("version", release.Version),
		)
	}
	return nil
}

// FindParent walks older releases newest first and returns the first deployment.
// Filtering the type in code avoids a composite index.
func (f *Firestore) FindParent(ctx context.Context, appID string, version int) (*model.ReleaseEvent, error) {
	iter := f.releases(appID).
		Where("version", "<", version).
		OrderBy("version", firestore.Desc).
		Documents(ctx)
	defer iter.Stop()

	for {
		doc, err := iter.Next()
		if err == iterator.Done {
			return nil, nil
		}
		if err != nil {
			return nil, goerr.Wrap(err, "failed to iterate releases",
				goerr.V("app_id", appID),
				goerr.V("version", version),
			)
		}

		var release model.ReleaseEvent
		if err := doc.DataTo(&release); err != nil {
			return nil, goerr.Wrap(err, "failed to decode release", goerr.V("doc_id", doc.Ref.ID))
		}
		if release.IsDeployment() {
			return &release, nil
		}
	}
}

// ListReleases queries releases of the app ordered by version, newest first
func (f *Firestore) ListReleases(ctx context.Context, appID string, limit int) ([]*model.ReleaseEvent, error) {
	query := f.releases(appID).OrderBy("version", firestore.Desc)
	if limit > 0 {
		query = query.Limit(limit)
	}

	iter := query.Documents(ctx)
	defer iter.Stop()

	var result []*model.ReleaseEvent
	for {
		doc, err := iter.Next()
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, goerr.Wrap(err, "failed to iterate releases", goerr.V("app_id", appID))
		}

		var release model.ReleaseEvent
		if err := doc.DataTo(&release); err != nil {
			return nil, goerr.Wrap(err, "failed to decode release", goerr.V("doc_id", doc.Ref.ID))
		}
		result = append(result, &release)
	}
	return result, nil
}
