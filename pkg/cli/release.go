package cli

import (
	"context"
	"log/slog"

	"github.com/m-mizutani/ctxlog"
	"github.com/m-mizutani/goerr/v2"
	"github.com/m-mizutani/herald/pkg/cli/config"
	"github.com/m-mizutani/herald/pkg/domain/interfaces"
	"github.com/m-mizutani/herald/pkg/usecase"
	"github.com/urfave/cli/v3"
)

// releaseConfig is the configuration shared by commands handling releases
type releaseConfig struct {
	github    config.GitHub
	heroku    config.Heroku
	firestore config.Firestore
	slack     config.Slack
	sentry    config.Sentry
}

func (c *releaseConfig) Flags() []cli.Flag {
	var flags []cli.Flag
	flags = append(flags, c.github.Flags()...)
	flags = append(flags, c.heroku.Flags()...)
	flags = append(flags, c.firestore.Flags()...)
	flags = append(flags, c.slack.Flags()...)
	flags = append(flags, c.sentry.Flags()...)
	return flags
}

// build wires the release use case. The returned function releases clients and
// flushes error reports.
func (c *releaseConfig) build(ctx context.Context) (interfaces.ReleaseUseCase, func(), error) {
	logger := ctxlog.From(ctx)

	logger.Debug("Release configuration",
		slog.Any("github", c.github),
		slog.Any("heroku", c.heroku),
		slog.Any("firestore", c.firestore),
		slog.Any("slack", c.slack),
	)

	flush, err := c.sentry.Configure()
	if err != nil {
		return nil, nil, err
	}

	githubClient, err := c.github.NewClient()
	if err != nil {
		flush()
		return nil, nil, err
	}

	repos, err := c.github.RepoMapping()
	if err != nil {
		flush()
		return nil, nil, err
	}

	repo, closeRepo, err := c.firestore.NewRepository(ctx)
	if err != nil {
		flush()
		return nil, nil, err
	}
	cleanup := func() {
		closeRepo()
		flush()
	}

	var opts []usecase.ReleaseOption

	herokuClient, err := c.heroku.NewClient()
	if err != nil {
		cleanup()
		return nil, nil, err
	}
	if herokuClient != nil {
		opts = append(opts, usecase.WithHerokuClient(herokuClient))
	} else {
		logger.Info("Heroku API token is not set, short commit hashes are used as they are")
	}

	notifier, err := c.slack.NewNotifier()
	if err != nil {
		cleanup()
		return nil, nil, goerr.Wrap(err, "failed to configure notification")
	}
	if notifier != nil {
		opts = append(opts, usecase.WithNotifier(notifier))
	}

	return usecase.NewRelease(repo, githubClient, repos, opts...), cleanup, nil
}
