// Package storage keeps attachment blobs, addressed by the sha256 of their content.
package storage

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
)

// ErrBlobNotFound is returned when a key has no blob.
var ErrBlobNotFound = errors.New("blob not found")

// BlobStore persists opaque attachment content.
type BlobStore interface {
	Put(ctx context.Context, key string, body []byte, contentType string) error
	Get(ctx context.Context, key string) ([]byte, error)
	Delete(ctx context.Context, key string) error
}

// ContentKey derives the storage key of body.
func ContentKey(body []byte) string {
	sum := sha256.Sum256(body)
	return hex.EncodeToString(sum[:])
}
