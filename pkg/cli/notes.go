package cli

import (
	"context"
	"os"

	"github.com/m-mizutani/goerr/v2"
	"github.com/m-mizutani/herald/pkg/domain/model"
	"github.com/urfave/cli/v3"
)

func cmdNotes() *cli.Command {
	var (
		releaseCfg releaseConfig
		version    int
		maxCount   int
	)

	flags := append(releaseCfg.Flags(), releaseCfg.heroku.AppIDFlags()...)
	flags = append(flags,
		&cli.IntFlag{
			Name:        "version",
			Usage:       "Release version to update. Recent recorded releases are updated when omitted",
			Destination: &version,
		},
		&cli.IntFlag{
			Name:        "max-count",
			Aliases:     []string{"n"},
			Usage:       "Number of recent recorded releases to update",
			Value:       model.DefaultSyncMaxCount,
			Destination: &maxCount,
		},
	)

	return &cli.Command{
		Name:  "notes",
		Usage: "Regenerate name and notes of GitHub releases already created",
		Flags: flags,
		Action: func(ctx context.Context, c *cli.Command) error {
			releaseUC, cleanup, err := releaseCfg.build(ctx)
			if err != nil {
				return err
			}
			defer cleanup()

			appID := releaseCfg.heroku.AppID
			if version > 0 {
				result, err := releaseUC.UpdateRelease(ctx, appID, version)
				if err != nil {
					return goerr.Wrap(err, "failed to update release", goerr.V("version", version))
				}
				printSyncResult(os.Stdout, result)
				return nil
			}

			result, err := releaseUC.UpdateReleases(ctx, appID, model.SyncOptions{MaxCount: maxCount})
			if err != nil {
				return goerr.Wrap(err, "failed to update releases")
			}

			printBatchResult(os.Stdout, "Updated", appID, result)
			if result.Failed > 0 {
				return goerr.New("some releases could not be updated", goerr.V("failed", result.Failed))
			}
			return nil
		},
	}
}
