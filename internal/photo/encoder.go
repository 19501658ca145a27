// Package photo turns captured passport photos into the data URLs stored on
// a record and renders thumbnails for the printable card.
package photo

import (
	"bytes"
	"encoding/base64"
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"net/http"
	"strings"

	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/webp"

	"github.com/hitoshi/passdesk/internal/model"
)

// DefaultMaxBytes is the capture limit of the original form.
const DefaultMaxBytes = 500 * 1024

// MaxDimension bounds the width and height of an accepted photo. A small
// compressed file can still declare a huge canvas, and Thumbnail decodes it
// in full.
const MaxDimension = 4096

// Encoder validates photo bytes and produces data URLs.
type Encoder struct {
	maxBytes int64
}

// NewEncoder returns an Encoder that rejects photos above maxBytes.
// A non-positive maxBytes selects DefaultMaxBytes.
func NewEncoder(maxBytes int64) *Encoder {
	if maxBytes <= 0 {
		maxBytes = DefaultMaxBytes
	}
	return &Encoder{maxBytes: maxBytes}
}

// MaxBytes returns the size limit in bytes.
func (e *Encoder) MaxBytes() int64 {
	return e.maxBytes
}

// Encode checks the size limit first, then that data is a decodable image,
// and returns it as data:<mime>;base64,<payload>.
func (e *Encoder) Encode(data []byte) (string, error) {
	if int64(len(data)) > e.maxBytes {
		return "", model.NewImageTooLargeError(e.maxBytes)
	}
	mime, err := sniffImage(data)
	if err != nil {
		return "", err
	}
	return "data:" + mime + ";base64," + base64.StdEncoding.EncodeToString(data), nil
}

// CheckDataURL validates a data URL submitted with a passport form.
// The empty string means "no photo" and is accepted.
func (e *Encoder) CheckDataURL(dataURL string) error {
	if dataURL == "" {
		return nil
	}
	_, data, err := DecodeDataURL(dataURL)
	if err != nil {
		return model.NewValidationError("passportImage", "must be a base64 image data URL")
	}
	if int64(len(data)) > e.maxBytes {
		return model.NewImageTooLargeError(e.maxBytes)
	}
	_, err = sniffImage(data)
	return err
}

// sniffImage returns the MIME type of data, or INVALID_IMAGE when it is not
// an image any registered decoder can read or its canvas exceeds
// MaxDimension on either side.
func sniffImage(data []byte) (string, error) {
	if !strings.HasPrefix(http.DetectContentType(data), "image/") {
		return "", model.NewInvalidImageError()
	}
	format, err := checkConfig(data)
	if err != nil {
		return "", model.NewInvalidImageError()
	}
	return "image/" + format, nil
}

// checkConfig reads only the image header and enforces MaxDimension.
func checkConfig(data []byte) (string, error) {
	cfg, format, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return "", err
	}
	if cfg.Width > MaxDimension || cfg.Height > MaxDimension {
		return "", fmt.Errorf("image is %dx%d, limit is %d per side", cfg.Width, cfg.Height, MaxDimension)
	}
	return format, nil
}

// DecodeDataURL splits a base64 image data URL into its MIME type and payload.
func DecodeDataURL(dataURL string) (mime string, data []byte, err error) {
	rest, ok := strings.CutPrefix(dataURL, "data:")
	if !ok {
		return "", nil, fmt.Errorf("not a data URL")
	}
	meta, payload, ok := strings.Cut(rest, ",")
	if !ok {
		return "", nil, fmt.Errorf("data URL has no payload")
	}
	mime, ok = strings.CutSuffix(meta, ";base64")
	if !ok {
		return "", nil, fmt.Errorf("data URL is not base64 encoded")
	}
	if !strings.HasPrefix(mime, "image/") {
		return "", nil, fmt.Errorf("data URL media type %q is not an image", mime)
	}
	data, err = base64.StdEncoding.DecodeString(payload)
	if err != nil {
		return "", nil, fmt.Errorf("decode data URL payload: %w", err)
	}
	return mime, data, nil
}
