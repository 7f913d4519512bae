package usecase

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/go-github/v75/github"
	"github.com/m-mizutani/ctxlog"
	"github.com/m-mizutani/goerr/v2"
	"github.com/m-mizutani/herald/pkg/domain/interfaces"
	"github.com/m-mizutani/herald/pkg/domain/model"
	"github.com/m-mizutani/herald/pkg/domain/types"
	"github.com/m-mizutani/herald/pkg/utils/async"
	"github.com/m-mizutani/herald/pkg/utils/errs"
)

type releaseUseCase struct {
	repo     interfaces.Repository
	github   interfaces.GitHubClient
	heroku   interfaces.HerokuClient
	notifier interfaces.Notifier
	repos    *model.RepoMapping
	now      func() time.Time

	// serializes HandleRelease so duplicate deliveries cannot race on the same tag
	mu sync.Mutex
}

// ReleaseOption configures the release use case
type ReleaseOption func(*releaseUseCase)

// WithHerokuClient enables commit resolution through the Platform API and SyncReleases
func WithHerokuClient(client interfaces.HerokuClient) ReleaseOption {
	return func(uc *releaseUseCase) {
		uc.heroku = client
	}
}

// WithNotifier announces created releases
func WithNotifier(notifier interfaces.Notifier) ReleaseOption {
	return func(uc *releaseUseCase) {
		uc.notifier = notifier
	}
}

// WithClock replaces time.Now
func WithClock(now func() time.Time) ReleaseOption {
	return func(uc *releaseUseCase) {
		uc.now = now
	}
}

// NewRelease creates a new instance of ReleaseUseCase
func NewRelease(
	repo interfaces.Repository,
	githubClient interfaces.GitHubClient,
	repos *model.RepoMapping,
	opts ...ReleaseOption,
) *releaseUseCase {
	uc := &releaseUseCase{
		repo:   repo,
		github: githubClient,
		repos:  repos,
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(uc)
	}
	return uc
}

// HandleRelease records the event and creates the GitHub release once it succeeded
func (uc *releaseUseCase) HandleRelease(ctx context.Context, event *model.ReleaseEvent) (*model.SyncResult, error) {
	return uc.handle(ctx, event, false)
}

// SyncReleases pulls recent releases from Heroku and handles them oldest first
func (uc *releaseUseCase) SyncReleases(ctx context.Context, appName string, opts model.SyncOptions) (*model.BatchResult, error) {
	logger := ctxlog.From(ctx)

	if uc.heroku == nil {
		return nil, goerr.New("Heroku client is not configured")
	}
	if opts.MaxCount <= 0 {
		opts.MaxCount = model.DefaultSyncMaxCount
	}

	releases, err := uc.heroku.ListReleases(ctx, appName, opts.MaxCount)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to list releases", goerr.V("app", appName))
	}

	// parents must be recorded before their children
	sort.Slice(releases, func(i, j int) bool {
		return releases[i].Version < releases[j].Version
	})

	var batch model.BatchResult
	for _, release := range releases {
		event := release.ReleaseEvent()
		event.ReceivedAt = uc.now()

		result, err := uc.handle(ctx, event, opts.Force)
		if err != nil {
			errs.Handle(ctx, goerr.Wrap(err, "failed to sync release",
				goerr.V("app", appName),
				goerr.V("version", release.Version),
			))
			batch.Failed++
			continue
		}
		batch.Add(result)
	}

	logger.Info("Synced releases",
		"app", appName,
		"succeeded", batch.Succeeded,
		"failed", batch.Failed,
		"ignored", batch.Ignored,
	)
	return &batch, nil
}

// StashRelease handles the release the running dyno was started from. When a Heroku
// client is configured the release is looked up so that the slug and the final status
// come from the Platform API rather than from dyno metadata.
func (uc *releaseUseCase) StashRelease(ctx context.Context, event *model.ReleaseEvent) (*model.SyncResult, error) {
	if uc.heroku != nil && event.AppName != "" && event.Version > 0 {
		release, err := uc.heroku.GetRelease(ctx, event.AppName, event.Version)
		switch {
		case goerr.HasTag(err, types.ErrTagNotFound):
			ctxlog.From(ctx).Warn("Stashed release is unknown to Heroku, using dyno metadata",
				"app", event.AppName,
				"version", event.Version,
			)
		case err != nil:
			errs.Handle(ctx, goerr.Wrap(err, "failed to look up stashed release",
				goerr.V("app", event.AppName),
				goerr.V("version", event.Version),
			))
		default:
			fetched := release.ReleaseEvent()
			fetched.Merge(event)
			if fetched.AppName == "" {
				fetched.AppName = event.AppName
			}
			event = fetched
		}
	}

	if event.ReceivedAt.IsZero() {
		event.ReceivedAt = uc.now()
	}
	return uc.handle(ctx, event, false)
}

func (uc *releaseUseCase) handle(ctx context.Context, event *model.ReleaseEvent, force bool) (*model.SyncResult, error) {
	logger := ctxlog.From(ctx)

	if err := event.Validate(); err != nil {
		return nil, err
	}

	uc.mu.Lock()
	defer uc.mu.Unlock()

	record, err := uc.record(ctx, event)
	if err != nil {
		return nil, err
	}

	logger.Info("Recorded release event",
		"app", record.AppName,
		"version", record.Version,
		"status", record.Status,
		"release_type", record.ReleaseType,
		"commit", record.Commit,
	)

	if reason := skipReason(record, force); reason != "" {
		logger.Info("Skipping GitHub release", "app", record.AppName, "version", record.Version, "reason", reason)
		return &model.SyncResult{Action: model.SyncActionSkipped, Reason: reason, TagName: record.TagName()}, nil
	}

	target, ok := uc.repos.Lookup(record.AppName)
	if !ok {
		logger.Warn("No GitHub repository mapped to app", "app", record.AppName)
		return &model.SyncResult{Action: model.SyncActionSkipped, Reason: "no repository mapped", TagName: record.TagName()}, nil
	}

	action, err := uc.push(ctx, record, target)
	if err != nil {
		if goerr.HasTag(err, types.ErrTagGitHub) {
			errs.Handle(ctx, err)
			return &model.SyncResult{Action: model.SyncActionFailed, Reason: "GitHub API error", TagName: record.TagName()}, nil
		}
		return nil, err
	}

	if action == model.SyncActionCreated && uc.notifier != nil {
		notified := *record
		async.Dispatch(ctx, func(ctx context.Context) error {
			return uc.notifier.NotifyRelease(ctx, &notified)
		})
	}

	return &model.SyncResult{
		Action:  action,
		TagName: record.TagName(),
		URL:     record.GitHubReleaseURL,
	}, nil
}

// record merges the event into the stored release, fills in derived fields and persists it
func (uc *releaseUseCase) record(ctx context.Context, event *model.ReleaseEvent) (*model.ReleaseEvent, error) {
	stored, err := uc.repo.GetRelease(ctx, event.AppID, event.Version)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to get stored release")
	}

	record := event
	if stored != nil {
		if stored.Status.IsTerminal() && stored.Status != event.Status {
			ctxlog.From(ctx).Info("Ignoring status change of finished release",
				"app", stored.AppName,
				"version", stored.Version,
				"stored", stored.Status,
				"received", event.Status,
			)
		}
		stored.Merge(event)
		record = stored
	}
	if record.ReleaseType == "" {
		record.ReleaseType = model.ReleaseTypeFromDescription(record.Description)
	}
	if record.ReceivedAt.IsZero() {
		record.ReceivedAt = uc.now()
	}

	if record.IsDeployment() {
		uc.resolveCommit(ctx, record)

		parent, err := uc.repo.FindParent(ctx, record.AppID, record.Version)
		if err != nil {
			return nil, goerr.Wrap(err, "failed to find parent release")
		}
		record.SetParent(parent)
	}

	if err := uc.repo.PutRelease(ctx, record); err != nil {
		return nil, goerr.Wrap(err, "failed to put release")
	}
	return record, nil
}

// resolveCommit replaces the short hash from the description with the full hash of the
// slug, which GitHub needs as target_commitish.
func (uc *releaseUseCase) resolveCommit(ctx context.Context, record *model.ReleaseEvent) {
	if len(record.Commit) == 40 {
		return
	}

	if uc.heroku != nil && record.SlugID != "" {
		slug, err := uc.heroku.GetSlug(ctx, record.AppID, record.SlugID)
		if err != nil {
			errs.Handle(ctx, goerr.Wrap(err, "failed to resolve slug commit"))
		} else if slug.Commit != "" {
			record.Commit = slug.Commit
			if record.CommitDescription == "" {
				record.CommitDescription = slug.CommitDescription
			}
			return
		}
	}

	if record.Commit == "" {
		record.Commit = model.CommitFromDescription(record.Description)
	}
}

func skipReason(record *model.ReleaseEvent, force bool) string {
	switch {
	case record.Status != model.ReleaseStatusSucceeded:
		return "status is " + string(record.Status)
	case !record.IsDeployment():
		return "not a deployment"
	case record.Commit == "":
		return "commit is unknown"
	case record.IsPushed() && !force:
		return "already pushed"
	default:
		return ""
	}
}

// push creates the GitHub release unless one already exists for the tag
func (uc *releaseUseCase) push(ctx context.Context, record *model.ReleaseEvent, target model.GitHubRepo) (model.SyncAction, error) {
	logger := ctxlog.From(ctx)
	tag := record.TagName()

	action := model.SyncActionExisting
	release, err := uc.github.GetReleaseByTag(ctx, target.Owner, target.Repo, tag)
	if err != nil {
		return "", err
	}

	if release == nil {
		input := &github.RepositoryRelease{
			TagName:         github.Ptr(tag),
			Name:            github.Ptr(record.ReleaseName()),
			TargetCommitish: github.Ptr(record.Commit),
		}
		// without a pushed parent, generated notes would list the whole history
		if record.ParentPushed {
			input.GenerateReleaseNotes = github.Ptr(true)
		} else if body := uc.releaseNote(ctx, record, target); body != "" {
			input.Body = github.Ptr(body)
		}

		created, err := uc.github.CreateRelease(ctx, target.Owner, target.Repo, input)
		switch {
		case err == nil:
			release = created
			action = model.SyncActionCreated
			logger.Info("Created GitHub release",
				"repo", target.String(),
				"tag", tag,
				"commit", record.Commit,
				"url", created.GetHTMLURL(),
			)
		case goerr.HasTag(err, types.ErrTagAlreadyExists):
			logger.Info("GitHub release was created concurrently", "repo", target.String(), "tag", tag)
			release, err = uc.github.GetReleaseByTag(ctx, target.Owner, target.Repo, tag)
			if err != nil {
				return "", err
			}
			if release == nil {
				return "", goerr.New("release reported as existing but not found",
					goerr.V("repo", target.String()),
					goerr.V("tag", tag),
					goerr.T(types.ErrTagGitHub),
				)
			}
		default:
			return "", err
		}
	} else {
		logger.Info("GitHub release already exists", "repo", target.String(), "tag", tag)
	}

	record.GitHubReleaseID = release.GetID()
	record.GitHubReleaseURL = release.GetHTMLURL()
	record.PushedAt = uc.now()
	if err := uc.repo.PutRelease(ctx, record); err != nil {
		return "", goerr.Wrap(err, "failed to record pushed release")
	}

	return action, nil
}

// releaseNote lists the first line of each non-merge commit since the parent deployment
func (uc *releaseUseCase) releaseNote(ctx context.Context, record *model.ReleaseEvent, target model.GitHubRepo) string {
	if record.ParentCommit == "" {
		return ""
	}

	commits, err := uc.github.CompareCommits(ctx, target.Owner, target.Repo, record.ParentCommit, record.Commit)
	if err != nil {
		errs.Handle(ctx, goerr.Wrap(err, "failed to build release note"))
		return ""
	}

	var lines []string
	for _, c := range commits {
		if len(c.Parents) > 1 {
			continue
		}
		message, _, _ := strings.Cut(c.GetCommit().GetMessage(), "\n")
		lines = append(lines, "* "+message)
	}
	if len(lines) == 0 {
		return ""
	}
	if baseHead := record.BaseHead(); baseHead != "" {
		lines = append(lines, "", "**Full Changelog**: https://github.com/"+target.String()+"/compare/"+baseHead)
	}
	return strings.Join(lines, "\n")
}
