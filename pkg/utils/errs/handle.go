package errs

import (
	"context"

	"github.com/getsentry/sentry-go"
	"github.com/m-mizutani/ctxlog"
	"github.com/m-mizutani/goerr/v2"
)

// Handle logs the error and reports it to Sentry when a client is configured.
// It is used for failures that must not abort the caller.
func Handle(ctx context.Context, err error) {
	if err == nil {
		return
	}

	hub := sentry.GetHubFromContext(ctx)
	if hub == nil {
		hub = sentry.CurrentHub()
	}

	var eventID *sentry.EventID
	if hub.Client() != nil {
		hub.WithScope(func(scope *sentry.Scope) {
			if ge := goerr.Unwrap(err); ge != nil {
				if values := ge.Values(); len(values) > 0 {
					scope.SetContext("goerr", sentry.Context(values))
				}
			}
			eventID = hub.CaptureException(err)
		})
	}

	attrs := []any{"error", err}
	if eventID != nil {
		attrs = append(attrs, "sentry_event_id", string(*eventID))
	}
	ctxlog.From(ctx).Error("Error handled", attrs...)
}
