package config

import (
	"context"

	"github.com/m-mizutani/goerr/v2"
	"github.com/m-mizutani/herald/pkg/domain/interfaces"
	"github.com/m-mizutani/herald/pkg/infra/storage"
	"github.com/urfave/cli/v3"
)

// Storage holds payload archive configuration
type Storage struct {
	Bucket string
	Prefix string
}

// Flags returns CLI flags for Cloud Storage configuration
func (c *Storage) Flags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:        "archive-bucket",
			Usage:       "Cloud Storage bucket to archive webhook payloads in",
			Destination: &c.Bucket,
			Sources:     cli.EnvVars("HERALD_ARCHIVE_BUCKET"),
		},
		&cli.StringFlag{
			Name:        "archive-prefix",
			Usage:       "Object name prefix of archived payloads",
			Destination: &c.Prefix,
			Sources:     cli.EnvVars("HERALD_ARCHIVE_PREFIX"),
		},
	}
}

// NewArchiver returns nil when no bucket is configured
func (c *Storage) NewArchiver(ctx context.Context) (interfaces.PayloadArchiver, error) {
	if c.Bucket == "" {
		return nil, nil
	}

	archiver, err := storage.NewArchiver(ctx, c.Bucket, c.Prefix)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to create payload archiver")
	}
	return archiver, nil
}
