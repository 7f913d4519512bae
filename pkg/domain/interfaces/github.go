package interfaces

import (
	"context"

	"github.com/google/go-github/v75/github"
)

// GitHubClient defines operations for interacting with GitHub API
type GitHubClient interface {
	// GetReleaseByTag returns the release for the tag, or nil if there is none
	GetReleaseByTag(ctx context.Context, owner, repo, tag string) (*github.RepositoryRelease, error)

	// CreateRelease creates a release. An error tagged with types.ErrTagAlreadyExists
	// is returned when the tag is already used by another release.
	CreateRelease(ctx context.Context, owner, repo string, release *github.RepositoryRelease) (*github.RepositoryRelease, error)

	// CompareCommits lists commits reachable from head but not from base
	CompareCommits(ctx context.Context, owner, repo, base, head string) ([]*github.RepositoryCommit, error)

	// EditRelease updates name and body of an existing release
	EditRelease(ctx context.Context, owner, repo string, id int64, release *github.RepositoryRelease) (*github.RepositoryRelease, error)

	// DeleteRelease removes a release. A release that no longer exists is not an error.
	DeleteRelease(ctx context.Context, owner, repo string, id int64) error

	// GenerateReleaseNotes returns the notes GitHub generates for a tag
	GenerateReleaseNotes(ctx context.Context, owner, repo string, opts *github.GenerateNotesOptions) (string, error)
}
