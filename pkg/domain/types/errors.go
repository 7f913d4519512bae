package types

import "github.com/m-mizutani/goerr/v2"

var (
	// ErrTagInvalidPayload marks errors caused by a malformed or incomplete inbound payload.
	ErrTagInvalidPayload = goerr.NewTag("invalid_payload")

	// ErrTagAlreadyExists marks a GitHub release creation rejected because the tag is taken.
	ErrTagAlreadyExists = goerr.NewTag("already_exists")

	// ErrTagNotFound marks a lookup against an external API that found nothing.
	ErrTagNotFound = goerr.NewTag("not_found")

	// ErrTagGitHub marks failures of GitHub API calls.
	ErrTagGitHub = goerr.NewTag("github")
)
