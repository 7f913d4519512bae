package model

// GitHubRepo is the repository GitHub releases are created in
type GitHubRepo struct {
	Owner string `toml:"owner"`
	Repo  string `toml:"repo"`
}

// IsZero reports whether the repository is unset
func (r GitHubRepo) IsZero() bool {
	return r.Owner == "" || r.Repo == ""
}

func (r GitHubRepo) String() string {
	return r.Owner + "/" + r.Repo
}

// RepoMapping resolves which GitHub repository a Heroku app deploys from
type RepoMapping struct {
	Default GitHubRepo
	Apps    map[string]GitHubRepo // keyed by Heroku app name
}

// Lookup returns the repository for the app, falling back to the default
func (m *RepoMapping) Lookup(appName string) (GitHubRepo, bool) {
	if m == nil {
		return GitHubRepo{}, false
	}
	if repo, ok := m.Apps[appName]; ok && !repo.IsZero() {
		return repo, true
	}
	if !m.Default.IsZero() {
		return m.Default, true
	}
	return GitHubRepo{}, false
}
