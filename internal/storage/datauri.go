package storage

import (
	"encoding/base64"
	"errors"
	"strings"

	"github.com/google/uuid"
)

// ErrInvalidImage is returned for payloads that are not base64 image data URIs
var ErrInvalidImage = errors.New("image must be a base64 encoded data URI")

var imageExtensions = map[string]string{
	"png":  "png",
	"jpeg": "jpg",
	"jpg":  "jpg",
	"gif":  "gif",
	"webp": "webp",
}

// Image is a decoded upload ready to be saved
type Image struct {
	Data        []byte
	ContentType string
	Extension   string
}

// Key returns a fresh object key under the recipes/ prefix
func (img Image) Key() string {
	return "recipes/" + uuid.New().String() + "." + img.Extension
}

// DecodeDataURI parses "data:image/<type>;base64,<payload>"
func DecodeDataURI(uri string) (*Image, error) {
	header, payload, ok := strings.Cut(uri, ",")
	if !ok || !strings.HasPrefix(header, "data:image/") || !strings.HasSuffix(header, ";base64") {
		return nil, ErrInvalidImage
	}

	subtype := strings.TrimSuffix(strings.TrimPrefix(header, "data:image/"), ";base64")
	ext, ok := imageExtensions[strings.ToLower(subtype)]
	if !ok {
		return nil, ErrInvalidImage
	}

	data, err := base64.StdEncoding.DecodeString(payload)
	if err != nil || len(data) == 0 {
		return nil, ErrInvalidImage
	}

	return &Image{Data: data, ContentType: "image/" + strings.ToLower(subtype), Extension: ext}, nil
}
