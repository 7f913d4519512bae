package config

import (
	"strconv"
	"strings"
	"time"

	"github.com/m-mizutani/goerr/v2"
	"github.com/m-mizutani/herald/pkg/domain/model"
	"github.com/m-mizutani/herald/pkg/domain/types"
	"github.com/urfave/cli/v3"
)

// Dyno holds the release metadata Heroku exposes to dynos when the runtime-dyno-metadata
// feature is enabled
type Dyno struct {
	AppID           string
	AppName         string
	ReleaseVersion  string
	CreatedAt       string
	SlugCommit      string
	SlugDescription string
}

// Flags returns CLI flags for dyno metadata
func (c *Dyno) Flags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:        "app-id",
			Usage:       "Heroku app ID",
			Required:    true,
			Destination: &c.AppID,
			Sources:     cli.EnvVars("HEROKU_APP_ID"),
		},
		&cli.StringFlag{
			Name:        "app-name",
			Usage:       "Heroku app name",
			Required:    true,
			Destination: &c.AppName,
			Sources:     cli.EnvVars("HEROKU_APP_NAME"),
		},
		&cli.StringFlag{
			Name:        "release-version",
			Usage:       "Release version, e.g. v42",
			Required:    true,
			Destination: &c.ReleaseVersion,
			Sources:     cli.EnvVars("HEROKU_RELEASE_VERSION"),
		},
		&cli.StringFlag{
			Name:        "release-created-at",
			Usage:       "Release creation time in RFC 3339",
			Destination: &c.CreatedAt,
			Sources:     cli.EnvVars("HEROKU_RELEASE_CREATED_AT"),
		},
		&cli.StringFlag{
			Name:        "slug-commit",
			Usage:       "Commit hash of the slug",
			Destination: &c.SlugCommit,
			Sources:     cli.EnvVars("HEROKU_SLUG_COMMIT"),
		},
		&cli.StringFlag{
			Name:        "slug-description",
			Usage:       "Description of the slug",
			Destination: &c.SlugDescription,
			Sources:     cli.EnvVars("HEROKU_SLUG_DESCRIPTION"),
		},
	}
}

// ReleaseEvent builds the event of the release the dyno runs. A running dyno implies
// the release succeeded.
func (c *Dyno) ReleaseEvent() (*model.ReleaseEvent, error) {
	version, err := strconv.Atoi(strings.TrimPrefix(c.ReleaseVersion, "v"))
	if err != nil {
		return nil, goerr.Wrap(err, "invalid release version",
			goerr.V("release_version", c.ReleaseVersion),
			goerr.T(types.ErrTagInvalidPayload),
		)
	}

	event := &model.ReleaseEvent{
		AppID:       c.AppID,
		AppName:     c.AppName,
		Version:     version,
		Commit:      c.SlugCommit,
		Description: c.SlugDescription,
		Status:      model.ReleaseStatusSucceeded,
		ReleaseType: model.ReleaseTypeDeployment,
	}
	if event.Description == "" && event.Commit != "" {
		event.Description = "Deploy " + event.ShortCommit()
	}

	if c.CreatedAt != "" {
		createdAt, err := time.Parse(time.RFC3339, c.CreatedAt)
		if err != nil {
			return nil, goerr.Wrap(err, "invalid release creation time",
				goerr.V("release_created_at", c.CreatedAt),
				goerr.T(types.ErrTagInvalidPayload),
			)
		}
		event.CreatedAt = createdAt
		event.UpdatedAt = createdAt
	}

	if err := event.Validate(); err != nil {
		return nil, err
	}
	return event, nil
}
