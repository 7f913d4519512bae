package config

import (
	"github.com/m-mizutani/goerr/v2"
	"github.com/m-mizutani/herald/pkg/domain/interfaces"
	slackinfra "github.com/m-mizutani/herald/pkg/infra/slack"
	"github.com/urfave/cli/v3"
)

// Slack holds Slack notification configuration
type Slack struct {
	Token   string `masq:"secret"`
	Channel string
}

// Flags returns CLI flags for Slack configuration
func (c *Slack) Flags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:        "slack-token",
			Usage:       "Slack bot token to announce created releases",
			Destination: &c.Token,
			Sources:     cli.EnvVars("HERALD_SLACK_TOKEN"),
		},
		&cli.StringFlag{
			Name:        "slack-channel",
			Usage:       "Slack channel ID to post to",
			Destination: &c.Channel,
			Sources:     cli.EnvVars("HERALD_SLACK_CHANNEL"),
		},
	}
}

// NewNotifier returns nil when Slack is not configured
func (c *Slack) NewNotifier() (interfaces.Notifier, error) {
	if c.Token == "" && c.Channel == "" {
		return nil, nil
	}

	notifier, err := slackinfra.NewNotifier(c.Token, c.Channel)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to create Slack notifier")
	}
	return notifier, nil
}
