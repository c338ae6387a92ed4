package storage

import (
	"context"
	"errors"
	"fmt"

	"github.com/gabriel-vasile/mimetype"
)

var (
	// ErrUnsupportedType is returned for uploads that are not jpeg, png or webp images
	ErrUnsupportedType = errors.New("file must be a JPEG, PNG or WebP image")

	// ErrTooLarge is returned for uploads over the configured size limit
	ErrTooLarge = errors.New("file exceeds the maximum upload size")

	// ErrEmpty is returned for zero-byte uploads
	ErrEmpty = errors.New("file is empty")
)

// DocumentStore persists uploaded verification documents and returns an
// opaque reference to them
type DocumentStore interface {
	// Save stores data under key and returns its public reference
	Save(ctx context.Context, key string, data []byte, contentType string) (string, error)

	// Delete removes the document behind ref. Missing documents are not an error.
	Delete(ctx context.Context, ref string) error
}

var allowedImageTypes = map[string]string{
	"image/jpeg": ".jpg",
	"image/png":  ".png",
	"image/webp": ".webp",
}

// Image is a sniffed, size-checked image upload
type Image struct {
	Data        []byte
	ContentType string
	Extension   string
}

// InspectImage checks the size of data and detects its type from content
func InspectImage(data []byte, maxBytes int64) (*Image, error) {
	if len(data) == 0 {
		return nil, ErrEmpty
	}
	if maxBytes > 0 && int64(len(data)) > maxBytes {
		return nil, fmt.Errorf("%w (%d bytes)", ErrTooLarge, maxBytes)
	}

	mtype := mimetype.Detect(data)
	for allowed, ext := range allowedImageTypes {
		if mtype.Is(allowed) {
			return &Image{Data: data, ContentType: allowed, Extension: ext}, nil
		}
	}
	return nil, ErrUnsupportedType
}
