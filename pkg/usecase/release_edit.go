package usecase

import (
	"context"
	"sort"
	"time"

	"github.com/google/go-github/v75/github"
	"github.com/m-mizutani/ctxlog"
	"github.com/m-mizutani/goerr/v2"
	"github.com/m-mizutani/herald/pkg/domain/model"
	"github.com/m-mizutani/herald/pkg/domain/types"
	"github.com/m-mizutani/herald/pkg/utils/errs"
)

// UpdateRelease regenerates name and notes of a release that was already pushed
func (uc *releaseUseCase) UpdateRelease(ctx context.Context, appID string, version int) (*model.SyncResult, error) {
	logger := ctxlog.From(ctx)

	uc.mu.Lock()
	defer uc.mu.Unlock()

	record, target, result, err := uc.pushedRecord(ctx, appID, version)
	if err != nil || result != nil {
		return result, err
	}

	// the parent may have been pushed after this record was stored
	parent, err := uc.repo.FindParent(ctx, record.AppID, record.Version)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to find parent release")
	}
	record.SetParent(parent)

	body, err := uc.regenerateNote(ctx, record, target)
	if err != nil {
		return nil, err
	}

	edited, err := uc.github.EditRelease(ctx, target.Owner, target.Repo, record.GitHubReleaseID, &github.RepositoryRelease{
		Name: github.Ptr(record.ReleaseName()),
		Body: github.Ptr(body),
	})
	if err != nil {
		return nil, err
	}

	if url := edited.GetHTMLURL(); url != "" {
		record.GitHubReleaseURL = url
	}
	if err := uc.repo.PutRelease(ctx, record); err != nil {
		return nil, goerr.Wrap(err, "failed to put release")
	}

	logger.Info("Updated GitHub release",
		"repo", target.String(),
		"tag", record.TagName(),
		"release_id", record.GitHubReleaseID,
	)
	return &model.SyncResult{
		Action:  model.SyncActionUpdated,
		TagName: record.TagName(),
		URL:     record.GitHubReleaseURL,
	}, nil
}

// UpdateReleases regenerates the GitHub releases of recorded deployments, oldest first
func (uc *releaseUseCase) UpdateReleases(ctx context.Context, appID string, opts model.SyncOptions) (*model.BatchResult, error) {
	if opts.MaxCount <= 0 {
		opts.MaxCount = model.DefaultSyncMaxCount
	}

	records, err := uc.repo.ListReleases(ctx, appID, opts.MaxCount)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to list recorded releases", goerr.V("app_id", appID))
	}
	sort.Slice(records, func(i, j int) bool {
		return records[i].Version < records[j].Version
	})

	var batch model.BatchResult
	for _, record := range records {
		result, err := uc.UpdateRelease(ctx, appID, record.Version)
		if err != nil {
			errs.Handle(ctx, goerr.Wrap(err, "failed to update release",
				goerr.V("app_id", appID),
				goerr.V("version", record.Version),
			))
			batch.Failed++
			continue
		}
		batch.Add(result)
	}

	ctxlog.From(ctx).Info("Updated releases",
		"app_id", appID,
		"succeeded", batch.Succeeded,
		"failed", batch.Failed,
		"ignored", batch.Ignored,
	)
	return &batch, nil
}

// DeleteRelease removes the GitHub release and resets the record so it can be pushed again
func (uc *releaseUseCase) DeleteRelease(ctx context.Context, appID string, version int) (*model.SyncResult, error) {
	uc.mu.Lock()
	defer uc.mu.Unlock()

	record, target, result, err := uc.pushedRecord(ctx, appID, version)
	if err != nil || result != nil {
		return result, err
	}

	if err := uc.github.DeleteRelease(ctx, target.Owner, target.Repo, record.GitHubReleaseID); err != nil {
		return nil, err
	}

	record.GitHubReleaseID = 0
	record.GitHubReleaseURL = ""
	record.PushedAt = time.Time{}
	if err := uc.repo.PutRelease(ctx, record); err != nil {
		return nil, goerr.Wrap(err, "failed to put release")
	}

	ctxlog.From(ctx).Info("Deleted GitHub release", "repo", target.String(), "tag", record.TagName())
	return &model.SyncResult{Action: model.SyncActionDeleted, TagName: record.TagName()}, nil
}

// pushedRecord loads a record that has a GitHub release. A result is returned instead
// when the record is not eligible.
func (uc *releaseUseCase) pushedRecord(ctx context.Context, appID string, version int) (*model.ReleaseEvent, model.GitHubRepo, *model.SyncResult, error) {
	record, err := uc.repo.GetRelease(ctx, appID, version)
	if err != nil {
		return nil, model.GitHubRepo{}, nil, goerr.Wrap(err, "failed to get stored release")
	}
	if record == nil {
		return nil, model.GitHubRepo{}, nil, goerr.New("release is not recorded",
			goerr.V("app_id", appID),
			goerr.V("version", version),
			goerr.T(types.ErrTagNotFound),
		)
	}

	skipped := func(reason string) *model.SyncResult {
		return &model.SyncResult{Action: model.SyncActionSkipped, Reason: reason, TagName: record.TagName()}
	}
	if !record.IsDeployment() {
		return nil, model.GitHubRepo{}, skipped("not a deployment"), nil
	}
	if !record.IsPushed() || record.GitHubReleaseID == 0 {
		return nil, model.GitHubRepo{}, skipped("not pushed"), nil
	}

	target, ok := uc.repos.Lookup(record.AppName)
	if !ok {
		return nil, model.GitHubRepo{}, skipped("no repository mapped"), nil
	}
	return record, target, nil, nil
}

// regenerateNote builds the release body the same way push would have
func (uc *releaseUseCase) regenerateNote(ctx context.Context, record *model.ReleaseEvent, target model.GitHubRepo) (string, error) {
	if !record.ParentPushed {
		return uc.releaseNote(ctx, record, target), nil
	}

	opts := &github.GenerateNotesOptions{
		TagName:         record.TagName(),
		TargetCommitish: github.Ptr(record.Commit),
	}
	if prev := record.ParentTagName(); prev != "" {
		opts.PreviousTagName = github.Ptr(prev)
	}
	return uc.github.GenerateReleaseNotes(ctx, target.Owner, target.Repo, opts)
}
