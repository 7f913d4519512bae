package model

// SyncAction is what happened to a release on the GitHub side
type SyncAction string

const (
	// SyncActionCreated means a new GitHub release was created
	SyncActionCreated SyncAction = "created"
	// SyncActionExisting means a release with the same tag already existed on GitHub
	SyncActionExisting SyncAction = "existing"
	// SyncActionSkipped means the release is not eligible for a GitHub release (yet)
	SyncActionSkipped SyncAction = "skipped"
	// SyncActionFailed means calling GitHub failed
	SyncActionFailed SyncAction = "failed"
	// SyncActionUpdated means name and notes of the GitHub release were regenerated
	SyncActionUpdated SyncAction = "updated"
	// SyncActionDeleted means the GitHub release was removed and the record reset
	SyncActionDeleted SyncAction = "deleted"
)

// SyncResult describes the outcome of handling one release event
type SyncResult struct {
	Action  SyncAction `json:"action"`
	Reason  string     `json:"reason,omitempty"`
	TagName string     `json:"tag,omitempty"`
	URL     string     `json:"url,omitempty"`
}

// SyncOptions controls a batch sync from the Heroku Platform API
type SyncOptions struct {
	MaxCount int
	Force    bool
}

// DefaultSyncMaxCount bounds a single batch sync
const DefaultSyncMaxCount = 100

// BatchResult counts the outcomes of a batch sync
type BatchResult struct {
	Succeeded int
	Failed    int
	Ignored   int
}

// Add counts a single result
func (b *BatchResult) Add(r *SyncResult) {
	switch r.Action {
	case SyncActionCreated, SyncActionExisting, SyncActionUpdated, SyncActionDeleted:
		b.Succeeded++
	case SyncActionFailed:
		b.Failed++
	default:
		b.Ignored++
	}
}
