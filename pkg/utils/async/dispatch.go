package async

import (
	"context"
	"runtime/debug"

	"github.com/getsentry/sentry-go"
	"github.com/m-mizutani/ctxlog"
	"github.com/m-mizutani/goerr/v2"
	"github.com/m-mizutani/herald/pkg/utils/errs"
)

// Dispatch runs handler in a new goroutine, detached from the cancellation of ctx.
// Errors and panics are logged and reported through errs.Handle.
func Dispatch(ctx context.Context, handler func(ctx context.Context) error) {
	newCtx := newBackgroundContext(ctx)

	go func() {
		defer func() {
			if r := recover(); r != nil {
				errs.Handle(newCtx, goerr.New("panic in async handler",
					goerr.V("recover", r),
					goerr.V("stack", string(debug.Stack())),
				))
			}
		}()

		if err := handler(newCtx); err != nil {
			errs.Handle(newCtx, goerr.Wrap(err, "error in async handler"))
		}
	}()
}

// newBackgroundContext keeps the logger and Sentry hub of ctx but nothing else
func newBackgroundContext(ctx context.Context) context.Context {
	newCtx := context.Background()
	newCtx = ctxlog.With(newCtx, ctxlog.From(ctx))
	if hub := sentry.GetHubFromContext(ctx); hub != nil {
		newCtx = sentry.SetHubOnContext(newCtx, hub.Clone())
	}
	return newCtx
}
