package model

import (
	"fmt"
	"strings"
	"time"

	"github.com/m-mizutani/goerr/v2"
	"github.com/m-mizutani/herald/pkg/domain/types"
)

// ReleaseStatus is the status of a Heroku release
type ReleaseStatus string

const (
	ReleaseStatusPending   ReleaseStatus = "pending"
	ReleaseStatusSucceeded ReleaseStatus = "succeeded"
	ReleaseStatusFailed    ReleaseStatus = "failed"
)

// Validate returns an error if the status is not one Heroku emits
func (s ReleaseStatus) Validate() error {
	switch s {
	case ReleaseStatusPending, ReleaseStatusSucceeded, ReleaseStatusFailed:
		return nil
	default:
		return goerr.New("unknown release status", goerr.V("status", s), goerr.T(types.ErrTagInvalidPayload))
	}
}

// IsTerminal reports whether no further status transition is expected
func (s ReleaseStatus) IsTerminal() bool {
	return s == ReleaseStatusSucceeded || s == ReleaseStatusFailed
}

// ReleaseType classifies a release by what changed in it
type ReleaseType string

const (
	ReleaseTypeDeployment ReleaseType = "DEPLOYMENT"
	ReleaseTypePromotion  ReleaseType = "PROMOTION"
	ReleaseTypeRollback   ReleaseType = "ROLLBACK"
	ReleaseTypeAddOn      ReleaseType = "ADD_ON"
	ReleaseTypeEnvVars    ReleaseType = "ENV_VARS"
	ReleaseTypeOther      ReleaseType = "OTHER"
)

// IsDeployment reports whether the release ships new code
func (t ReleaseType) IsDeployment() bool {
	return t == ReleaseTypeDeployment || t == ReleaseTypePromotion
}

// ReleaseTypeFromDescription derives the release type from the description Heroku
// generates, e.g. "Deploy 1a2b3c4d" or "Set FOO config vars".
func ReleaseTypeFromDescription(description string) ReleaseType {
	d := strings.ToLower(strings.TrimSpace(description))
	switch {
	case d == "":
		return ReleaseTypeOther
	case strings.HasPrefix(d, "deploy"):
		return ReleaseTypeDeployment
	case strings.HasPrefix(d, "promote"):
		return ReleaseTypePromotion
	case strings.HasPrefix(d, "rollback"):
		return ReleaseTypeRollback
	case strings.HasSuffix(d, "config vars"), strings.HasPrefix(d, "update"):
		return ReleaseTypeEnvVars
	case strings.HasPrefix(d, "add"), strings.HasPrefix(d, "attach"), strings.HasPrefix(d, "detach"):
		return ReleaseTypeAddOn
	case strings.HasSuffix(d, "add-on"):
		return ReleaseTypeAddOn
	default:
		return ReleaseTypeOther
	}
}

// CommitFromDescription extracts the commit from a "Deploy <commit>" description.
// Heroku only puts the short hash there.
func CommitFromDescription(description string) string {
	action, rest, found := strings.Cut(strings.TrimSpace(description), " ")
	if !found || !strings.EqualFold(action, "deploy") {
		return ""
	}
	commit, _, _ := strings.Cut(strings.TrimSpace(rest), " ")
	return commit
}

const (
	shortCommitLength = 8
	releaseNameLayout = "Jan 2, 2006 15:04 MST"
)

// ReleaseEvent is the tracked state of a single Heroku release
type ReleaseEvent struct {
	AppID             string        `firestore:"app_id" json:"app_id"`
	AppName           string        `firestore:"app_name" json:"app_name"`
	Version           int           `firestore:"version" json:"version"`
	HerokuReleaseID   string        `firestore:"heroku_release_id" json:"heroku_release_id,omitempty"`
	SlugID            string        `firestore:"slug_id" json:"slug_id,omitempty"`
	Commit            string        `firestore:"commit" json:"commit,omitempty"`
	CommitDescription string        `firestore:"commit_description" json:"commit_description,omitempty"`
	Description       string        `firestore:"description" json:"description"`
	Status            ReleaseStatus `firestore:"status" json:"status"`
	ReleaseType       ReleaseType   `firestore:"release_type" json:"release_type"`

	CreatedAt  time.Time `firestore:"created_at" json:"created_at"`
	UpdatedAt  time.Time `firestore:"updated_at" json:"updated_at"`
	ReceivedAt time.Time `firestore:"received_at" json:"received_at"`
	PushedAt   time.Time `firestore:"pushed_at" json:"pushed_at,omitempty"`

	ParentVersion int    `firestore:"parent_version" json:"parent_version,omitempty"`
	ParentCommit  string `firestore:"parent_commit" json:"parent_commit,omitempty"`
	ParentPushed  bool   `firestore:"parent_pushed" json:"parent_pushed,omitempty"`

	GitHubReleaseID  int64  `firestore:"github_release_id" json:"github_release_id,omitempty"`
	GitHubReleaseURL string `firestore:"github_release_url" json:"github_release_url,omitempty"`
}

// Validate checks the fields every release event must carry
func (e *ReleaseEvent) Validate() error {
	if e.AppID == "" {
		return goerr.New("missing app id", goerr.T(types.ErrTagInvalidPayload))
	}
	if e.Version <= 0 {
		return goerr.New("invalid release version",
			goerr.V("version", e.Version),
			goerr.T(types.ErrTagInvalidPayload))
	}
	return e.Status.Validate()
}

// IsDeployment reports whether the release ships new code
func (e *ReleaseEvent) IsDeployment() bool {
	return e.ReleaseType.IsDeployment()
}

// IsPushed reports whether a GitHub release is already recorded
func (e *ReleaseEvent) IsPushed() bool {
	return !e.PushedAt.IsZero()
}

// TagName returns the git tag used for the GitHub release, empty for non-deployments
func (e *ReleaseEvent) TagName() string {
	if !e.IsDeployment() {
		return ""
	}
	return fmt.Sprintf("v%d", e.Version)
}

// ReleaseName returns the GitHub release title
func (e *ReleaseEvent) ReleaseName() string {
	if !e.IsDeployment() {
		return ""
	}
	if e.CreatedAt.IsZero() {
		return "Release " + e.TagName()
	}
	return fmt.Sprintf("Release %s - %s", e.TagName(), e.CreatedAt.UTC().Format(releaseNameLayout))
}

// ShortCommit returns the abbreviated commit hash
func (e *ReleaseEvent) ShortCommit() string {
	if e.Commit == "" {
		return CommitFromDescription(e.Description)
	}
	return shortCommit(e.Commit)
}

// BaseHead returns the "base...head" range between the parent deployment and this one
func (e *ReleaseEvent) BaseHead() string {
	if e.Commit == "" || e.ParentCommit == "" {
		return ""
	}
	return shortCommit(e.ParentCommit) + "..." + e.ShortCommit()
}

// ParentTagName returns the tag of the parent deployment, empty when there is none
func (e *ReleaseEvent) ParentTagName() string {
	if e.ParentVersion <= 0 {
		return ""
	}
	return fmt.Sprintf("v%d", e.ParentVersion)
}

// SetParent links the previous deployment of the same app
func (e *ReleaseEvent) SetParent(parent *ReleaseEvent) {
	if parent == nil {
		e.ParentVersion = 0
		e.ParentCommit = ""
		e.ParentPushed = false
		return
	}
	e.ParentVersion = parent.Version
	e.ParentCommit = parent.Commit
	e.ParentPushed = parent.IsPushed()
}

// Merge applies a later delivery of the same release onto the stored record.
// A terminal status is kept; other fields are only filled when still empty, except
// for the Heroku updated_at timestamp which moves forward and an abbreviated commit
// which is extended by the full hash.
func (e *ReleaseEvent) Merge(in *ReleaseEvent) {
	if !e.Status.IsTerminal() {
		e.Status = in.Status
	}

	fill := func(dst *string, src string) {
		if *dst == "" {
			*dst = src
		}
	}
	fill(&e.AppName, in.AppName)
	fill(&e.HerokuReleaseID, in.HerokuReleaseID)
	fill(&e.SlugID, in.SlugID)
	fill(&e.Commit, in.Commit)
	// a short hash taken from the description gives way to the full slug commit
	if len(in.Commit) > len(e.Commit) && strings.HasPrefix(in.Commit, e.Commit) {
		e.Commit = in.Commit
	}
	fill(&e.CommitDescription, in.CommitDescription)
	fill(&e.Description, in.Description)

	if e.ReleaseType == "" || e.ReleaseType == ReleaseTypeOther {
		e.ReleaseType = ReleaseTypeFromDescription(e.Description)
	}
	if e.CreatedAt.IsZero() {
		e.CreatedAt = in.CreatedAt
	}
	if in.UpdatedAt.After(e.UpdatedAt) {
		e.UpdatedAt = in.UpdatedAt
	}
	if !in.ReceivedAt.IsZero() {
		e.ReceivedAt = in.ReceivedAt
	}
}

func shortCommit(commit string) string {
	if len(commit) <= shortCommitLength {
		return commit
	}
	return commit[:shortCommitLength]
}
