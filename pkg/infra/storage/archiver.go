package storage

import (
	"context"
	"path"

	"cloud.google.com/go/storage"
	"github.com/m-mizutani/goerr/v2"
	"github.com/m-mizutani/herald/pkg/domain/interfaces"
)

type archiver struct {
	client *storage.Client
	bucket string
	prefix string
}

// NewArchiver creates a PayloadArchiver writing objects to a Cloud Storage bucket
func NewArchiver(ctx context.Context, bucket, prefix string) (interfaces.PayloadArchiver, error) {
	if bucket == "" {
		return nil, goerr.New("bucket name is required")
	}

	client, err := storage.NewClient(ctx)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to create Cloud Storage client")
	}

	return &archiver{
		client: client,
		bucket: bucket,
		prefix: prefix,
	}, nil
}

// Archive writes data as a JSON object under the prefix
func (a *archiver) Archive(ctx context.Context, key string, data []byte) error {
	objName := path.Join(a.prefix, key)

	w := a.client.Bucket(a.bucket).Object(objName).NewWriter(ctx)
	w.ContentType = "application/json"

	if _, err := w.Write(data); err != nil {
		_ = w.Close()
		return goerr.Wrap(err, "failed to write payload",
			goerr.V("bucket", a.bucket),
			goerr.V("object", objName),
		)
	}
	if err := w.Close(); err != nil {
		return goerr.Wrap(err, "failed to close object writer",
			goerr.V("bucket", a.bucket),
			goerr.V("object", objName),
		)
	}
	return nil
}
