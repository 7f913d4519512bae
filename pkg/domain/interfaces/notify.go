package interfaces

import (
	"context"

	"github.com/m-mizutani/herald/pkg/domain/model"
)

// Notifier announces releases pushed to GitHub
type Notifier interface {
	NotifyRelease(ctx context.Context, release *model.ReleaseEvent) error
}

// PayloadArchiver stores raw webhook payloads for later inspection
type PayloadArchiver interface {
	Archive(ctx context.Context, key string, data []byte) error
}
