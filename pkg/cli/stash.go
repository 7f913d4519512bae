package cli

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/fatih/color"
	"github.com/m-mizutani/ctxlog"
	"github.com/m-mizutani/herald/pkg/cli/config"
	"github.com/m-mizutani/herald/pkg/domain/model"
	"github.com/urfave/cli/v3"
)

func cmdStash() *cli.Command {
	var (
		releaseCfg releaseConfig
		dynoCfg    config.Dyno
	)

	flags := append(releaseCfg.Flags(), dynoCfg.Flags()...)

	return &cli.Command{
		Name:  "stash",
		Usage: "Create the GitHub release of the running dyno from dyno metadata",
		Flags: flags,
		Action: func(ctx context.Context, c *cli.Command) error {
			event, err := dynoCfg.ReleaseEvent()
			if err != nil {
				return err
			}

			releaseUC, cleanup, err := releaseCfg.build(ctx)
			if err != nil {
				return err
			}
			defer cleanup()

			ctxlog.From(ctx).Info("Stashing release",
				"app", event.AppName,
				"version", event.Version,
				"commit", event.Commit,
			)

			result, err := releaseUC.StashRelease(ctx, event)
			if err != nil {
				return err
			}

			printSyncResult(os.Stdout, result)
			return nil
		},
	}
}

func printSyncResult(w io.Writer, result *model.SyncResult) {
	var action string
	switch result.Action {
	case model.SyncActionCreated, model.SyncActionUpdated, model.SyncActionDeleted:
		action = color.GreenString(string(result.Action))
	case model.SyncActionFailed:
		action = color.RedString(string(result.Action))
	default:
		action = color.YellowString(string(result.Action))
	}

	line := fmt.Sprintf("%s %s", action, result.TagName)
	if result.URL != "" {
		line += " " + result.URL
	}
	if result.Reason != "" {
		line += " (" + result.Reason + ")"
	}
	fmt.Fprintln(w, line)
}
