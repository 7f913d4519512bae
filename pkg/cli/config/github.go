package config

import (
	"os"

	"github.com/m-mizutani/goerr/v2"
	"github.com/m-mizutani/herald/pkg/domain/interfaces"
	"github.com/m-mizutani/herald/pkg/domain/model"
	githubinfra "github.com/m-mizutani/herald/pkg/infra/github"
	"github.com/pelletier/go-toml/v2"
	"github.com/urfave/cli/v3"
)

// GitHub holds GitHub configuration
type GitHub struct {
	Token  string `masq:"secret"`
	User   string
	Org    string
	Repo   string
	APIURL string
	AppMap string
}

// Flags returns CLI flags for GitHub configuration
func (c *GitHub) Flags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:        "github-token",
			Usage:       "GitHub personal access token",
			Required:    true,
			Destination: &c.Token,
			Sources:     cli.EnvVars("HERALD_GITHUB_TOKEN", "GITHUB_API_TOKEN"),
		},
		&cli.StringFlag{
			Name:        "github-user",
			Usage:       "Owner of the token. Enables basic authentication and is the default repository owner",
			Destination: &c.User,
			Sources:     cli.EnvVars("HERALD_GITHUB_USER", "GITHUB_USER_NAME"),
		},
		&cli.StringFlag{
			Name:        "github-org",
			Usage:       "Organization owning the repository, takes precedence over github-user",
			Destination: &c.Org,
			Sources:     cli.EnvVars("HERALD_GITHUB_ORG", "GITHUB_ORG_NAME"),
		},
		&cli.StringFlag{
			Name:        "github-repo",
			Usage:       "Repository releases are created in",
			Destination: &c.Repo,
			Sources:     cli.EnvVars("HERALD_GITHUB_REPO", "GITHUB_REPO_NAME"),
		},
		&cli.StringFlag{
			Name:        "github-api-url",
			Usage:       "GitHub REST API endpoint for GitHub Enterprise",
			Destination: &c.APIURL,
			Sources:     cli.EnvVars("HERALD_GITHUB_API_URL"),
		},
		&cli.StringFlag{
			Name:        "app-map",
			Usage:       "TOML file mapping Heroku app names to GitHub repositories",
			Destination: &c.AppMap,
			Sources:     cli.EnvVars("HERALD_APP_MAP"),
		},
	}
}

// NewClient creates a GitHub API client
func (c *GitHub) NewClient() (interfaces.GitHubClient, error) {
	var opts []githubinfra.Option
	if c.User != "" {
		opts = append(opts, githubinfra.WithUsername(c.User))
	}
	if c.APIURL != "" {
		opts = append(opts, githubinfra.WithBaseURL(c.APIURL))
	}

	client, err := githubinfra.NewClient(c.Token, opts...)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to create GitHub client")
	}
	return client, nil
}

// appMapFile is the layout of the app map file:
//
//	[default]
//	owner = "acme"
//	repo = "web"
//
//	[[app]]
//	name = "acme-api"
//	owner = "acme"
//	repo = "api"
type appMapFile struct {
	Default *model.GitHubRepo `toml:"default"`
	Apps    []struct {
		Name  string `toml:"name"`
		Owner string `toml:"owner"`
		Repo  string `toml:"repo"`
	} `toml:"app"`
}

// RepoMapping builds the app to repository mapping from the flags and the app map file.
// Entries of the file override the flags.
func (c *GitHub) RepoMapping() (*model.RepoMapping, error) {
	owner := c.Org
	if owner == "" {
		owner = c.User
	}

	mapping := &model.RepoMapping{
		Default: model.GitHubRepo{Owner: owner, Repo: c.Repo},
		Apps:    map[string]model.GitHubRepo{},
	}

	if c.AppMap == "" {
		return mapping, nil
	}

	raw, err := os.ReadFile(c.AppMap)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to read app map", goerr.V("path", c.AppMap))
	}

	var file appMapFile
	if err := toml.Unmarshal(raw, &file); err != nil {
		return nil, goerr.Wrap(err, "failed to parse app map", goerr.V("path", c.AppMap))
	}

	if file.Default != nil {
		mapping.Default = *file.Default
	}
	for _, app := range file.Apps {
		repo := model.GitHubRepo{Owner: app.Owner, Repo: app.Repo}
		if app.Name == "" || repo.IsZero() {
			return nil, goerr.New("incomplete app map entry",
				goerr.V("path", c.AppMap),
				goerr.V("name", app.Name),
				goerr.V("repo", repo.String()),
			)
		}
		mapping.Apps[app.Name] = repo
	}

	return mapping, nil
}
