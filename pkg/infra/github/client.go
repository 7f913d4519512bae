package github

import (
	"context"
	"errors"
	"net/http"
	"net/url"
	"strings"

	"github.com/google/go-github/v75/github"
	"github.com/m-mizutani/goerr/v2"
	"github.com/m-mizutani/herald/pkg/domain/interfaces"
	"github.com/m-mizutani/herald/pkg/domain/types"
)

type client struct {
	githubClient *github.Client
}

type config struct {
	username   string
	baseURL    string
	httpClient *http.Client
}

// Option configures the GitHub client
type Option func(*config)

// WithUsername switches to basic authentication with the owner of the token
func WithUsername(username string) Option {
	return func(c *config) {
		c.username = username
	}
}

// WithBaseURL sets the REST API endpoint, e.g. https://ghe.example.com/api/v3/
func WithBaseURL(baseURL string) Option {
	return func(c *config) {
		c.baseURL = baseURL
	}
}

// WithHTTPClient replaces the underlying HTTP client. Authentication is added on top of its transport.
func WithHTTPClient(httpClient *http.Client) Option {
	return func(c *config) {
		c.httpClient = httpClient
	}
}

// NewClient creates a new GitHub client authenticated with a personal access token
func NewClient(token string, opts ...Option) (interfaces.GitHubClient, error) {
	if token == "" {
		return nil, goerr.New("GitHub token is required")
	}

	cfg := &config{}
	for _, opt := range opts {
		opt(cfg)
	}

	base := http.DefaultTransport
	if cfg.httpClient != nil && cfg.httpClient.Transport != nil {
		base = cfg.httpClient.Transport
	}

	var githubClient *github.Client
	if cfg.username != "" {
		transport := &github.BasicAuthTransport{
			Username:  cfg.username,
			Password:  token,
			Transport: base,
		}
		githubClient = github.NewClient(transport.Client())
	} else {
		githubClient = github.NewClient(&http.Client{Transport: base}).WithAuthToken(token)
	}

	if cfg.baseURL != "" {
		baseURL, err := url.Parse(strings.TrimSuffix(cfg.baseURL, "/") + "/")
		if err != nil {
			return nil, goerr.Wrap(err, "failed to parse GitHub API base URL", goerr.V("base_url", cfg.baseURL))
		}
		githubClient.BaseURL = baseURL
	}

	return &client{
		githubClient: githubClient,
	}, nil
}

// GetReleaseByTag fetches the release published for the tag
func (c *client) GetReleaseByTag(ctx context.Context, owner, repo, tag string) (*github.RepositoryRelease, error) {
	release, resp, err := c.githubClient.Repositories.GetReleaseByTag(ctx, owner, repo, tag)
	if err != nil {
		if resp != nil && resp.StatusCode == http.StatusNotFound {
			return nil, nil
		}
		return nil, goerr.Wrap(err, "failed to get release by tag",
			goerr.V("owner", owner),
			goerr.V("repo", repo),
			goerr.V("tag", tag),
			goerr.T(types.ErrTagGitHub),
		)
	}

	return release, nil
}

// CreateRelease creates a new release
func (c *client) CreateRelease(ctx context.Context, owner, repo string, release *github.RepositoryRelease) (*github.RepositoryRelease, error) {
	created, resp, err := c.githubClient.Repositories.CreateRelease(ctx, owner, repo, release)
	if err != nil {
		opts := []goerr.Option{
			goerr.V("owner", owner),
			goerr.V("repo", repo),
			goerr.V("tag", release.GetTagName()),
			goerr.T(types.ErrTagGitHub),
		}
		if resp != nil && resp.StatusCode == http.StatusUnprocessableEntity && isAlreadyExists(err) {
			opts = append(opts, goerr.T(types.ErrTagAlreadyExists))
		}
		if msg := formatAPIError(err); msg != "" {
			opts = append(opts, goerr.V("api_error", msg))
		}
		return nil, goerr.Wrap(err, "failed to create release", opts...)
	}

	return created, nil
}

// CompareCommits lists the commits in the base...head range
func (c *client) CompareCommits(ctx context.Context, owner, repo, base, head string) ([]*github.RepositoryCommit, error) {
	comparison, _, err := c.githubClient.Repositories.CompareCommits(ctx, owner, repo, base, head, nil)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to compare commits",
			goerr.V("owner", owner),
			goerr.V("repo", repo),
			goerr.V("base", base),
			goerr.V("head", head),
			goerr.T(types.ErrTagGitHub),
		)
	}

	return comparison.Commits, nil
}

// EditRelease updates the release with the non-nil fields of release
func (c *client) EditRelease(ctx context.Context, owner, repo string, id int64, release *github.RepositoryRelease) (*github.RepositoryRelease, error) {
	edited, _, err := c.githubClient.Repositories.EditRelease(ctx, owner, repo, id, release)
	if err != nil {
		opts := []goerr.Option{
			goerr.V("owner", owner),
			goerr.V("repo", repo),
			goerr.V("release_id", id),
			goerr.T(types.ErrTagGitHub),
		}
		if msg := formatAPIError(err); msg != "" {
			opts = append(opts, goerr.V("api_error", msg))
		}
		return nil, goerr.Wrap(err, "failed to edit release", opts...)
	}

	return edited, nil
}

// DeleteRelease deletes the release. A release that is already gone is not an error.
func (c *client) DeleteRelease(ctx context.Context, owner, repo string, id int64) error {
	resp, err := c.githubClient.Repositories.DeleteRelease(ctx, owner, repo, id)
	if err != nil {
		if resp != nil && resp.StatusCode == http.StatusNotFound {
			return nil
		}
		return goerr.Wrap(err, "failed to delete release",
			goerr.V("owner", owner),
			goerr.V("repo", repo),
			goerr.V("release_id", id),
			goerr.T(types.ErrTagGitHub),
		)
	}

	return nil
}

// GenerateReleaseNotes returns the body GitHub would generate for the tag
func (c *client) GenerateReleaseNotes(ctx context.Context, owner, repo string, opts *github.GenerateNotesOptions) (string, error) {
	notes, _, err := c.githubClient.Repositories.GenerateReleaseNotes(ctx, owner, repo, opts)
	if err != nil {
		return "", goerr.Wrap(err, "failed to generate release notes",
			goerr.V("owner", owner),
			goerr.V("repo", repo),
			goerr.V("tag", opts.TagName),
			goerr.T(types.ErrTagGitHub),
		)
	}

	return notes.Body, nil
}

func isAlreadyExists(err error) bool {
	var errResp *github.ErrorResponse
	if !errors.As(err, &errResp) {
		return false
	}
	for _, e := range errResp.Errors {
		if e.Code == "already_exists" {
			return true
		}
	}
	return false
}

// formatAPIError flattens validation errors into "resource.field: code" lines
func formatAPIError(err error) string {
	var errResp *github.ErrorResponse
	if !errors.As(err, &errResp) {
		return ""
	}
	if len(errResp.Errors) == 0 {
		return errResp.Message
	}

	lines := make([]string, 0, len(errResp.Errors))
	for _, e := range errResp.Errors {
		lines = append(lines, e.Resource+"."+e.Field+": "+e.Code)
	}
	return strings.Join(lines, "\n")
}
