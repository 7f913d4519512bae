package cli

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/fatih/color"
	"github.com/m-mizutani/goerr/v2"
	"github.com/m-mizutani/herald/pkg/domain/model"
	"github.com/urfave/cli/v3"
)

func cmdSync() *cli.Command {
	var (
		releaseCfg releaseConfig
		maxCount   int
		force      bool
	)

	flags := append(releaseCfg.Flags(), releaseCfg.heroku.AppFlags()...)
	flags = append(flags,
		&cli.IntFlag{
			Name:        "max-count",
			Aliases:     []string{"n"},
			Usage:       "Number of recent releases to crawl",
			Value:       model.DefaultSyncMaxCount,
			Destination: &maxCount,
			Sources:     cli.EnvVars("HERALD_SYNC_MAX_COUNT"),
		},
		&cli.BoolFlag{
			Name:        "force",
			Usage:       "Look up GitHub again for releases already pushed",
			Destination: &force,
		},
	)

	return &cli.Command{
		Name:  "sync",
		Usage: "Crawl recent Heroku releases and create missing GitHub releases",
		Flags: flags,
		Action: func(ctx context.Context, c *cli.Command) error {
			if releaseCfg.heroku.Token == "" {
				return goerr.New("Heroku API token is required to crawl releases")
			}

			releaseUC, cleanup, err := releaseCfg.build(ctx)
			if err != nil {
				return err
			}
			defer cleanup()

			result, err := releaseUC.SyncReleases(ctx, releaseCfg.heroku.AppName, model.SyncOptions{
				MaxCount: maxCount,
				Force:    force,
			})
			if err != nil {
				return goerr.Wrap(err, "failed to sync releases")
			}

			printBatchResult(os.Stdout, "Synced", releaseCfg.heroku.AppName, result)
			if result.Failed > 0 {
				return goerr.New("some releases could not be synced", goerr.V("failed", result.Failed))
			}
			return nil
		},
	}
}

func printBatchResult(w io.Writer, title, app string, result *model.BatchResult) {
	fmt.Fprintf(w, "%s %s\n", color.New(color.Bold).Sprint(title), app)
	fmt.Fprintf(w, "  %s %d\n", color.GreenString("succeeded:"), result.Succeeded)
	fmt.Fprintf(w, "  %s %d\n", color.RedString("failed:   "), result.Failed)
	fmt.Fprintf(w, "  %s %d\n", color.YellowString("ignored:  "), result.Ignored)
}
