package stub

import (
	"context"
	"fmt"
	"net/url"
	"time"

	"github.com/schwarzerdavid/family-helper/platform/types"
)

// ObjectStorage implements the ObjectStorage contract without storing
// anything: writes are acknowledged with generated metadata and reads
// return deterministic content derived from the key.
type ObjectStorage struct {
	logger types.Logger
}

// NewObjectStorage creates the stub object storage. A nil logger falls back
// to a console logger.
func NewObjectStorage(log types.Logger) *ObjectStorage {
	if log == nil {
		log = fallbackLogger()
	}
	return &ObjectStorage{logger: log}
}

// Put acknowledges the write with a timestamped etag. The data itself is
// not retained.
func (s *ObjectStorage) Put(ctx context.Context, key string, data []byte, contentType string) (types.ObjectMeta, error) {
	s.logger.Debug("Storing object in stub storage", types.Fields{
		"key":          key,
		"size":         len(data),
		"content_type": contentType,
	})

	return types.ObjectMeta{
		ETag: fmt.Sprintf("stub-etag-%d", time.Now().UnixMilli()),
	}, nil
}

// Get returns deterministic content derived from the key.
func (s *ObjectStorage) Get(ctx context.Context, key string) ([]byte, error) {
	s.logger.Debug("Retrieving object from stub storage", types.Fields{"key": key})
	return []byte("stub-content-for-" + key), nil
}

// PresignPut returns a deterministic upload URL carrying the escaped key
// and the expiry in seconds.
func (s *ObjectStorage) PresignPut(ctx context.Context, key string, expiresIn time.Duration) (string, error) {
	s.logger.Debug("Generating presigned PUT URL", types.Fields{
		"key":                key,
		"expires_in_seconds": int(expiresIn.Seconds()),
	})
	return presignURL("upload", key, expiresIn), nil
}

// PresignGet returns a deterministic download URL carrying the escaped key
// and the expiry in seconds.
func (s *ObjectStorage) PresignGet(ctx context.Context, key string, expiresIn time.Duration) (string, error) {
	s.logger.Debug("Generating presigned GET URL", types.Fields{
		"key":                key,
		"expires_in_seconds": int(expiresIn.Seconds()),
	})
	return presignURL("download", key, expiresIn), nil
}

// Delete acknowledges the delete. The stub always reports the object as
// having existed.
func (s *ObjectStorage) Delete(ctx context.Context, key string) (bool, error) {
	s.logger.Debug("Deleting object from stub storage", types.Fields{"key": key})
	return true, nil
}

func presignURL(action, key string, expiresIn time.Duration) string {
	return fmt.Sprintf(
		"https://stub-storage.example.com/%s?key=%s&expires=%d",
		action,
		url.QueryEscape(key),
		int(expiresIn.Seconds()),
	)
}
