package storage

import (
	"encoding/base64"
	"strings"

	"github.com/gabriel-vasile/mimetype"

	"github.com/sakif/foodgram/internal/apperror"
)

var allowedImages = map[string]string{
	"image/png":  ".png",
	"image/jpeg": ".jpg",
	"image/gif":  ".gif",
	"image/webp": ".webp",
}

// DecodeDataURI decodes "data:image/<type>;base64,<payload>". The declared
// type must agree with the sniffed content, and the decoded payload may not
// exceed maxBytes. Failures are validation errors against field.
func DecodeDataURI(field, uri string, maxBytes int) (Image, error) {
	rest, ok := strings.CutPrefix(uri, "data:")
	if !ok {
		return Image{}, apperror.ValidationFailed(field, "must be a base64 data URI")
	}
	meta, payload, ok := strings.Cut(rest, ",")
	if !ok {
		return Image{}, apperror.ValidationFailed(field, "must be a base64 data URI")
	}
	declared, encoding, ok := strings.Cut(meta, ";")
	if !ok || encoding != "base64" {
		return Image{}, apperror.ValidationFailed(field, "must be base64 encoded")
	}
	if _, ok := allowedImages[strings.ToLower(declared)]; !ok {
		return Image{}, apperror.ValidationFailed(field, "unsupported image type")
	}

	if base64.StdEncoding.DecodedLen(len(payload)) > maxBytes+3 {
		return Image{}, apperror.ValidationFailed(field, "image is too large")
	}
	data, err := base64.StdEncoding.DecodeString(payload)
	if err != nil {
		return Image{}, apperror.ValidationFailed(field, "invalid base64 payload")
	}
	if len(data) == 0 {
		return Image{}, apperror.ValidationFailed(field, "image is empty")
	}
	if len(data) > maxBytes {
		return Image{}, apperror.ValidationFailed(field, "image is too large")
	}

	detected := mimetype.Detect(data).String()
	ext, ok := allowedImages[detected]
	if !ok || detected != strings.ToLower(declared) {
		return Image{}, apperror.ValidationFailed(field, "content does not match declared image type")
	}
	return Image{Data: data, ContentType: detected, Ext: ext}, nil
}
