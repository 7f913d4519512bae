package cli

import (
	"context"
	"os"

	"github.com/m-mizutani/goerr/v2"
	"github.com/urfave/cli/v3"
)

func cmdDelete() *cli.Command {
	var (
		releaseCfg releaseConfig
		version    int
	)

	flags := append(releaseCfg.Flags(), releaseCfg.heroku.AppIDFlags()...)
	flags = append(flags,
		&cli.IntFlag{
			Name:        "version",
			Usage:       "Release version whose GitHub release is deleted",
			Required:    true,
			Destination: &version,
		},
	)

	return &cli.Command{
		Name:  "delete",
		Usage: "Delete a GitHub release and mark the Heroku release as not pushed",
		Flags: flags,
		Action: func(ctx context.Context, c *cli.Command) error {
			releaseUC, cleanup, err := releaseCfg.build(ctx)
			if err != nil {
				return err
			}
			defer cleanup()

			result, err := releaseUC.DeleteRelease(ctx, releaseCfg.heroku.AppID, version)
			if err != nil {
				return goerr.Wrap(err, "failed to delete release", goerr.V("version", version))
			}

			printSyncResult(os.Stdout, result)
			return nil
		},
	}
}
