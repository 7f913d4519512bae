package config

import (
	"context"

	"github.com/m-mizutani/ctxlog"
	"github.com/m-mizutani/goerr/v2"
	"github.com/m-mizutani/herald/pkg/domain/interfaces"
	"github.com/m-mizutani/herald/pkg/repository"
	"github.com/urfave/cli/v3"
)

// Firestore holds Firestore configuration
type Firestore struct {
	ProjectID  string
	DatabaseID string
}

// Flags returns CLI flags for Firestore configuration
func (c *Firestore) Flags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:        "firestore-project-id",
			Usage:       "Google Cloud project of the Firestore database. Releases are kept in memory when empty",
			Destination: &c.ProjectID,
			Sources:     cli.EnvVars("HERALD_FIRESTORE_PROJECT_ID"),
		},
		&cli.StringFlag{
			Name:        "firestore-database-id",
			Usage:       "Firestore database ID",
			Value:       "(default)",
			Destination: &c.DatabaseID,
			Sources:     cli.EnvVars("HERALD_FIRESTORE_DATABASE_ID"),
		},
	}
}

// NewRepository returns the Firestore repository, or an in-memory one when no project
// is configured. The returned function closes the underlying client.
func (c *Firestore) NewRepository(ctx context.Context) (interfaces.Repository, func(), error) {
	if c.ProjectID == "" {
		ctxlog.From(ctx).Warn("Firestore is not configured, releases are kept in memory")
		return repository.NewMemory(), func() {}, nil
	}

	repo, err := repository.NewFirestore(ctx, c.ProjectID, c.DatabaseID)
	if err != nil {
		return nil, nil, goerr.Wrap(err, "failed to create Firestore repository")
	}

	return repo, func() {
		if err := repo.Close(); err != nil {
			ctxlog.From(ctx).Warn("Failed to close Firestore client", "error", err)
		}
	}, nil
}
