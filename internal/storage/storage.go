package storage

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Default expiry duration for presigned URLs
const DefaultPresignedURLExpiry = 15 * time.Minute

// ContentContentType is the media type of archived content documents.
const ContentContentType = "application/json"

var ErrObjectNotFound = errors.New("object not found in storage")

// FileStorage defines the interface for object storage operations.
type FileStorage interface {
	// PutObject uploads body under objectKey.
	PutObject(ctx context.Context, objectKey string, contentType string, body []byte) error

	// GeneratePresignedDownloadURL creates a temporary URL that allows GET requests
	// for downloading an object directly from the storage provider.
	GeneratePresignedDownloadURL(ctx context.Context, objectKey string, expires time.Duration) (string, error)

	// DeleteObject removes an object from the storage provider.
	DeleteObject(ctx context.Context, objectKey string) error
}

// ContentArchive keeps superseded plan content documents. The live document
// is always the one on the plan; archived copies are never read back by the
// progress or entitlement paths.
type ContentArchive struct {
	store FileStorage
}

func NewContentArchive(store FileStorage) *ContentArchive {
	return &ContentArchive{store: store}
}

// ContentObjectKey returns a fresh key for version v of a plan's content.
// The random suffix keeps concurrent saves of the same version from
// overwriting each other.
func ContentObjectKey(planID string, version int) string {
	return fmt.Sprintf("plans/%s/content/v%d-%s.json", planID, version, uuid.NewString())
}

// Archive stores raw as version of planID and returns the object key.
func (a *ContentArchive) Archive(ctx context.Context, planID string, version int, raw string) (string, error) {
	if planID == "" || version < 1 {
		return "", fmt.Errorf("invalid archive target %q v%d", planID, version)
	}
	key := ContentObjectKey(planID, version)
	if err := a.store.PutObject(ctx, key, ContentContentType, []byte(raw)); err != nil {
		return "", fmt.Errorf("archive content %s: %w", key, err)
	}
	return key, nil
}

// DownloadURL returns a presigned link to an archived version.
func (a *ContentArchive) DownloadURL(ctx context.Context, key string) (string, error) {
	return a.store.GeneratePresignedDownloadURL(ctx, key, DefaultPresignedURLExpiry)
}

// Discard removes an archived object. A missing object is not an error.
func (a *ContentArchive) Discard(ctx context.Context, key string) error {
	if err := a.store.DeleteObject(ctx, key); err != nil && !errors.Is(err, ErrObjectNotFound) {
		return fmt.Errorf("discard content %s: %w", key, err)
	}
	return nil
}
