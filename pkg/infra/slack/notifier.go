package slack

import (
	"context"
	"fmt"

	"github.com/m-mizutani/goerr/v2"
	"github.com/m-mizutani/herald/pkg/domain/interfaces"
	"github.com/m-mizutani/herald/pkg/domain/model"
	"github.com/slack-go/slack"
)

type notifier struct {
	client  *slack.Client
	channel string
}

// NewNotifier creates a notifier posting to the channel with a bot token.
// slack.Option values are passed through, e.g. slack.OptionAPIURL for tests.
func NewNotifier(token, channel string, opts ...slack.Option) (interfaces.Notifier, error) {
	if token == "" || channel == "" {
		return nil, goerr.New("Slack token and channel are required")
	}

	return &notifier{
		client:  slack.New(token, opts...),
		channel: channel,
	}, nil
}

// NotifyRelease posts a message about a GitHub release created for a Heroku release
func (n *notifier) NotifyRelease(ctx context.Context, release *model.ReleaseEvent) error {
	_, _, err := n.client.PostMessageContext(ctx, n.channel,
		slack.MsgOptionText(formatMessage(release), false),
	)
	if err != nil {
		return goerr.Wrap(err, "failed to post Slack message",
			goerr.V("channel", n.channel),
			goerr.V("app", release.AppName),
			goerr.V("version", release.Version),
		)
	}
	return nil
}

func formatMessage(release *model.ReleaseEvent) string {
	msg := fmt.Sprintf("Released %s of %s", release.TagName(), release.AppName)
	if release.CommitDescription != "" {
		msg += fmt.Sprintf(" (%s: %s)", release.ShortCommit(), release.CommitDescription)
	} else if c := release.ShortCommit(); c != "" {
		msg += fmt.Sprintf(" (%s)", c)
	}
	if release.GitHubReleaseURL != "" {
		msg += fmt.Sprintf(" <%s|view on GitHub>", release.GitHubReleaseURL)
	}
	return msg
}
