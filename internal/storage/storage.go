package storage

import (
	"context"
	"fmt"
	"io"
)

// Storage persists uploaded images (avatars, family logos) and returns a
// public URL for each stored object.
type Storage interface {
	Save(ctx context.Context, key string, contentType string, body io.Reader) (string, error)
	Delete(ctx context.Context, key string) error
}

// allowedImageTypes maps accepted upload content types to file extensions
var allowedImageTypes = map[string]string{
	"image/jpeg": ".jpg",
	"image/png":  ".png",
	"image/gif":  ".gif",
	"image/webp": ".webp",
}

// ExtensionFor returns the file extension for an accepted image content
// type, or an error for anything else
func ExtensionFor(contentType string) (string, error) {
	ext, ok := allowedImageTypes[contentType]
	if !ok {
		return "", fmt.Errorf("unsupported image type %q", contentType)
	}
	return ext, nil
}
