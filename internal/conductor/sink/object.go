package sink

import (
	"bytes"
	"context"
	"fmt"
	"path"

	"sregrade/internal/common/storage"

	"github.com/klauspost/compress/zstd"
)

const (
	contentTypeCSV  = "text/csv"
	contentTypeZstd = "application/zstd"
)

// Object uploads exported files to a bucket, optionally zstd-compressed.
type Object struct {
	store    storage.ObjectStorage
	bucket   string
	prefix   string
	compress bool
	encoder  *zstd.Encoder
}

// NewObject creates an object storage sink.
func NewObject(store storage.ObjectStorage, bucket, prefix string, compress bool) (*Object, error) {
	if store == nil {
		return nil, fmt.Errorf("object storage is required")
	}
	if bucket == "" {
		return nil, fmt.Errorf("bucket is required")
	}
	o := &Object{store: store, bucket: bucket, prefix: prefix, compress: compress}
	if compress {
		enc, err := zstd.NewWriter(nil)
		if err != nil {
			return nil, fmt.Errorf("create zstd encoder failed: %w", err)
		}
		o.encoder = enc
	}
	return o, nil
}

func (o *Object) Name() string {
	return "object"
}

// ObjectKey returns the key a file named name is stored under.
func (o *Object) ObjectKey(name string) string {
	key := path.Join(o.prefix, name)
	if o.compress {
		key += ".zst"
	}
	return key
}

// Prepare creates the bucket if needed.
func (o *Object) Prepare(ctx context.Context) error {
	return o.store.EnsureBucket(ctx, o.bucket)
}

func (o *Object) PutArtifact(ctx context.Context, name string, data []byte) error {
	contentType := contentTypeCSV
	if o.compress {
		data = o.encoder.EncodeAll(data, make([]byte, 0, len(data)/2))
		contentType = contentTypeZstd
	}
	return o.store.PutObject(ctx, o.bucket, o.ObjectKey(name), bytes.NewReader(data), int64(len(data)), contentType)
}
