package repository

import (
	"context"
	"sort"
	"sync"

	"github.com/m-mizutani/herald/pkg/domain/interfaces"
	"github.com/m-mizutani/herald/pkg/domain/model"
)

type releaseKey struct {
	appID   string
	version int
}

// Memory is a Repository kept in process memory. Records are lost on restart.
type Memory struct {
	mu       sync.RWMutex
	releases map[releaseKey]model.ReleaseEvent
}

var _ interfaces.Repository = (*Memory)(nil)

// NewMemory creates an empty in-memory repository
func NewMemory() *Memory {
	return &Memory{
		releases: make(map[releaseKey]model.ReleaseEvent),
	}
}

// GetRelease returns a copy of the stored release, or nil when it is unknown
func (m *Memory) GetRelease(ctx context.Context, appID string, version int) (*model.ReleaseEvent, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	release, ok := m.releases[releaseKey{appID: appID, version: version}]
	if !ok {
		return nil, nil
	}
	return &release, nil
}

// PutRelease stores a copy of release
func (m *Memory) PutRelease(ctx context.Context, release *model.ReleaseEvent) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.releases[releaseKey{appID: release.AppID, version: release.Version}] = *release
	return nil
}

// FindParent scans all releases of the app for the latest older deployment
func (m *Memory) FindParent(ctx context.Context, appID string, version int) (*model.ReleaseEvent, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var parent *model.ReleaseEvent
	for key, release := range m.releases {
		if key.appID != appID || key.version >= version || !release.IsDeployment() {
			continue
		}
		if parent == nil || release.Version > parent.Version {
			r := release
			parent = &r
		}
	}
	return parent, nil
}

// ListReleases returns up to limit releases, newest first. A limit of zero returns all.
func (m *Memory) ListReleases(ctx context.Context, appID string, limit int) ([]*model.ReleaseEvent, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var result []*model.ReleaseEvent
	for key, release := range m.releases {
		if key.appID != appID {
			continue
		}
		r := release
		result = append(result, &r)
	}

	sort.Slice(result, func(i, j int) bool {
		return result[i].Version > result[j].Version
	})
	if limit > 0 && len(result) > limit {
		result = result[:limit]
	}
	return result, nil
}
