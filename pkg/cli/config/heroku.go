package config

import (
	"github.com/m-mizutani/goerr/v2"
	"github.com/m-mizutani/herald/pkg/domain/interfaces"
	herokuinfra "github.com/m-mizutani/herald/pkg/infra/heroku"
	"github.com/urfave/cli/v3"
)

// Heroku holds Heroku configuration
type Heroku struct {
	Token         string `masq:"secret"`
	AppName       string
	AppID         string
	APIURL        string
	WebhookSecret string `masq:"secret"`
}

// Flags returns CLI flags for the Platform API client
func (c *Heroku) Flags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:        "heroku-token",
			Usage:       "Heroku API token, used to resolve slug commits and to crawl releases",
			Destination: &c.Token,
			Sources:     cli.EnvVars("HERALD_HEROKU_TOKEN", "HEROKU_API_TOKEN"),
		},
		&cli.StringFlag{
			Name:        "heroku-api-url",
			Usage:       "Heroku Platform API endpoint",
			Destination: &c.APIURL,
			Sources:     cli.EnvVars("HERALD_HEROKU_API_URL"),
		},
	}
}

// WebhookFlags returns CLI flags for receiving app webhooks
func (c *Heroku) WebhookFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:        "heroku-webhook-secret",
			Usage:       "Secret of the Heroku app webhook. Signatures are not verified when empty",
			Destination: &c.WebhookSecret,
			Sources:     cli.EnvVars("HERALD_HEROKU_WEBHOOK_SECRET"),
		},
	}
}

// AppFlags returns CLI flags selecting the Heroku app
func (c *Heroku) AppFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:        "app",
			Aliases:     []string{"a"},
			Usage:       "Heroku app name",
			Required:    true,
			Destination: &c.AppName,
			Sources:     cli.EnvVars("HERALD_HEROKU_APP", "HEROKU_APP_NAME"),
		},
	}
}

// AppIDFlags returns CLI flags selecting the Heroku app by the ID releases are recorded with
func (c *Heroku) AppIDFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:        "app-id",
			Usage:       "Heroku app ID",
			Required:    true,
			Destination: &c.AppID,
			Sources:     cli.EnvVars("HERALD_HEROKU_APP_ID", "HEROKU_APP_ID"),
		},
	}
}

// NewClient creates a Platform API client. It returns nil when no token is configured.
func (c *Heroku) NewClient() (interfaces.HerokuClient, error) {
	if c.Token == "" {
		return nil, nil
	}

	var opts []herokuinfra.Option
	if c.APIURL != "" {
		opts = append(opts, herokuinfra.WithBaseURL(c.APIURL))
	}

	client, err := herokuinfra.NewClient(c.Token, opts...)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to create Heroku client")
	}
	return client, nil
}
