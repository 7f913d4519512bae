package heroku

import (
	"context"
	"errors"
	"net/http"
	"strconv"

	heroku "github.com/heroku/heroku-go/v5"
	"github.com/m-mizutani/goerr/v2"
	"github.com/m-mizutani/herald/pkg/domain/interfaces"
	"github.com/m-mizutani/herald/pkg/domain/model"
	"github.com/m-mizutani/herald/pkg/domain/types"
)

type client struct {
	service *heroku.Service
}

type config struct {
	baseURL   string
	transport http.RoundTripper
}

// Option configures the Heroku client
type Option func(*config)

// WithBaseURL overrides the Platform API endpoint
func WithBaseURL(baseURL string) Option {
	return func(c *config) {
		c.baseURL = baseURL
	}
}

// WithTransport sets the transport the bearer token is added on top of
func WithTransport(transport http.RoundTripper) Option {
	return func(c *config) {
		c.transport = transport
	}
}

// NewClient creates a Heroku Platform API client authenticated with an API token
func NewClient(token string, opts ...Option) (interfaces.HerokuClient, error) {
	if token == "" {
		return nil, goerr.New("Heroku API token is required")
	}

	cfg := &config{}
	for _, opt := range opts {
		opt(cfg)
	}

	transport := &heroku.Transport{
		BearerToken: token,
		Transport:   cfg.transport,
	}
	service := heroku.NewService(&http.Client{Transport: transport})
	if cfg.baseURL != "" {
		service.URL = cfg.baseURL
	}

	return &client{service: service}, nil
}

func (c *client) GetRelease(ctx context.Context, app string, version int) (*model.HerokuRelease, error) {
	release, err := c.service.ReleaseInfo(ctx, app, strconv.Itoa(version))
	if err != nil {
		return nil, goerr.Wrap(err, "failed to get Heroku release",
			append(errorOptions(err),
				goerr.V("app", app),
				goerr.V("version", version),
			)...,
		)
	}
	return toRelease(release), nil
}

func (c *client) GetSlug(ctx context.Context, app, slugID string) (*model.HerokuSlug, error) {
	slug, err := c.service.SlugInfo(ctx, app, slugID)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to get Heroku slug",
			append(errorOptions(err),
				goerr.V("app", app),
				goerr.V("slug_id", slugID),
			)...,
		)
	}

	result := &model.HerokuSlug{ID: slug.ID}
	if slug.Commit != nil {
		result.Commit = *slug.Commit
	}
	if slug.CommitDescription != nil {
		result.CommitDescription = *slug.CommitDescription
	}
	return result, nil
}

func (c *client) ListReleases(ctx context.Context, app string, max int) ([]*model.HerokuRelease, error) {
	releases, err := c.service.ReleaseList(ctx, app, &heroku.ListRange{
		Field:      "version",
		Max:        max,
		Descending: true,
	})
	if err != nil {
		return nil, goerr.Wrap(err, "failed to list Heroku releases",
			append(errorOptions(err),
				goerr.V("app", app),
				goerr.V("max", max),
			)...,
		)
	}

	result := make([]*model.HerokuRelease, 0, len(releases))
	for i := range releases {
		result = append(result, toRelease(&releases[i]))
	}
	return result, nil
}

// errorOptions carries the Platform API error id and tags 404 responses
func errorOptions(err error) []goerr.Option {
	var apiErr heroku.Error
	if !errors.As(err, &apiErr) {
		return nil
	}

	opts := []goerr.Option{
		goerr.V("status_code", apiErr.StatusCode),
		goerr.V("api_error_id", apiErr.ID),
	}
	if apiErr.StatusCode == http.StatusNotFound {
		opts = append(opts, goerr.T(types.ErrTagNotFound))
	}
	return opts
}

func toRelease(r *heroku.Release) *model.HerokuRelease {
	release := &model.HerokuRelease{
		ID:          r.ID,
		Version:     r.Version,
		Status:      r.Status,
		Description: r.Description,
		Current:     r.Current,
		App: model.HerokuApp{
			ID:   r.App.ID,
			Name: r.App.Name,
		},
		CreatedAt: r.CreatedAt,
		UpdatedAt: r.UpdatedAt,
	}
	if r.Slug != nil {
		release.Slug = &model.HerokuSlug{ID: r.Slug.ID}
	}
	return release
}
