package heroku

import (
	"context"

	"github.com/m-mizutani/ctxlog"
	"github.com/m-mizutani/goerr/v2"
	"github.com/m-mizutani/herald/pkg/domain/interfaces"
	"github.com/m-mizutani/herald/pkg/domain/model"
	"github.com/m-mizutani/herald/pkg/domain/types"
)

// EventProcessor processes Heroku webhook events
type EventProcessor struct {
	releaseUC interfaces.ReleaseUseCase
}

// NewEventProcessor creates a new Heroku event processor
func NewEventProcessor(releaseUC interfaces.ReleaseUseCase) *EventProcessor {
	return &EventProcessor{
		releaseUC: releaseUC,
	}
}

// ProcessEvent dispatches a webhook by resource. Unsupported resources are ignored
// and reported as skipped.
func (p *EventProcessor) ProcessEvent(ctx context.Context, hook *model.HerokuWebhook) (*model.SyncResult, error) {
	logger := ctxlog.From(ctx)

	if !hook.IsRelease() {
		logger.Info("Ignoring unsupported webhook resource",
			"resource", hook.Resource,
			"action", hook.Action,
		)
		return &model.SyncResult{
			Action: model.SyncActionSkipped,
			Reason: "unsupported resource: " + string(hook.Resource),
		}, nil
	}

	return p.processReleaseEvent(ctx, hook)
}

func (p *EventProcessor) processReleaseEvent(ctx context.Context, hook *model.HerokuWebhook) (*model.SyncResult, error) {
	logger := ctxlog.From(ctx)

	event, err := p.extractReleaseEvent(hook)
	if err != nil {
		return nil, err
	}

	logger.Info("Processing release event",
		"delivery_id", hook.DeliveryID,
		"action", hook.Action,
		"app", event.AppName,
		"version", event.Version,
		"status", event.Status,
	)

	result, err := p.releaseUC.HandleRelease(ctx, event)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to handle release",
			goerr.V("app", event.AppName),
			goerr.V("version", event.Version),
		)
	}

	return result, nil
}

// extractReleaseEvent converts and validates the release carried by the webhook
func (p *EventProcessor) extractReleaseEvent(hook *model.HerokuWebhook) (*model.ReleaseEvent, error) {
	event := hook.ReleaseEvent()
	if event.AppName == "" {
		return nil, goerr.New("missing app name in release event", goerr.T(types.ErrTagInvalidPayload))
	}
	if err := event.Validate(); err != nil {
		return nil, goerr.Wrap(err, "invalid release event",
			goerr.V("delivery_id", hook.DeliveryID),
			goerr.T(types.ErrTagInvalidPayload),
		)
	}
	return event, nil
}
