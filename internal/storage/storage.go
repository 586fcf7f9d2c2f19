// Package storage persists recipe and avatar images. Uploads arrive as
// base64 data URIs, are decoded by DecodeDataURI and handed to a Store,
// which returns an opaque reference that is kept in the database. URL turns
// a reference back into something a browser can fetch.
package storage

import (
	"context"
	"strings"

	"github.com/rs/xid"
)

// Image is a decoded upload.
type Image struct {
	Data        []byte
	ContentType string
	// Ext includes the leading dot, e.g. ".png".
	Ext string
}

// Store is implemented by the local filesystem and S3 backends.
type Store interface {
	// Save stores img under dir and returns its reference.
	Save(ctx context.Context, dir string, img Image) (string, error)
	// Delete removes a stored object. Deleting a missing object is not an error.
	Delete(ctx context.Context, ref string) error
	// URL returns the public address of ref, or "" for an empty ref.
	URL(ref string) string
}

// objectKey builds "dir/<xid><ext>".
func objectKey(dir string, img Image) string {
	dir = strings.Trim(dir, "/")
	name := xid.New().String() + img.Ext
	if dir == "" {
		return name
	}
	return dir + "/" + name
}

func joinURL(base, ref string) string {
	if ref == "" {
		return ""
	}
	return strings.TrimSuffix(base, "/") + "/" + strings.TrimPrefix(ref, "/")
}
