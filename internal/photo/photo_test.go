package photo

import (
	"bytes"
	"encoding/base64"
	"image"
	"image/color"
	"image/gif"
	"image/jpeg"
	"image/png"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/image/bmp"

	"github.com/hitoshi/passdesk/internal/model"
)

func testImage(w, h int) image.Image {
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.Set(x, y, color.RGBA{R: uint8(x), G: uint8(y), B: 128, A: 255})
		}
	}
	return img
}

func pngBytes(t *testing.T, w, h int) []byte {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, testImage(w, h)))
	return buf.Bytes()
}

func requireAPIErrorCode(t *testing.T, err error, code string) {
	t.Helper()
	require.Error(t, err)
	var apiErr *model.APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, code, apiErr.Code)
}

func TestEncode_SupportedFormats(t *testing.T) {
	img := testImage(8, 6)

	var jpg, gf, bm bytes.Buffer
	require.NoError(t, jpeg.Encode(&jpg, img, nil))
	require.NoError(t, gif.Encode(&gf, img, nil))
	require.NoError(t, bmp.Encode(&bm, img))

	tests := []struct {
		name string
		data []byte
		mime string
	}{
		{"png", pngBytes(t, 8, 6), "image/png"},
		{"jpeg", jpg.Bytes(), "image/jpeg"},
		{"gif", gf.Bytes(), "image/gif"},
		{"bmp", bm.Bytes(), "image/bmp"},
	}

	enc := NewEncoder(DefaultMaxBytes)
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := enc.Encode(tt.data)
			require.NoError(t, err)
			assert.True(t, strings.HasPrefix(got, "data:"+tt.mime+";base64,"), got[:40])

			mime, decoded, err := DecodeDataURL(got)
			require.NoError(t, err)
			assert.Equal(t, tt.mime, mime)
			assert.Equal(t, tt.data, decoded)
		})
	}
}

func TestEncode_RejectsOversizeBeforeDecoding(t *testing.T) {
	enc := NewEncoder(1024)

	// Not an image either: the size check must win.
	_, err := enc.Encode(bytes.Repeat([]byte("x"), 1025))
	requireAPIErrorCode(t, err, model.ErrCodeImageTooLarge)
}

func TestEncode_ExactlyAtLimitIsAccepted(t *testing.T) {
	data := pngBytes(t, 4, 4)
	enc := NewEncoder(int64(len(data)))

	_, err := enc.Encode(data)
	assert.NoError(t, err)
}

func TestEncode_DefaultLimitIs500KB(t *testing.T) {
	assert.Equal(t, int64(512000), NewEncoder(0).MaxBytes())
}

func TestEncode_RejectsNonImages(t *testing.T) {
	enc := NewEncoder(DefaultMaxBytes)

	for _, data := range [][]byte{
		[]byte("hello, world"),
		[]byte("%PDF-1.4 not a photo"),
		{},
	} {
		_, err := enc.Encode(data)
		requireAPIErrorCode(t, err, model.ErrCodeInvalidImage)
	}
}

func TestEncode_RejectsTruncatedImage(t *testing.T) {
	data := pngBytes(t, 16, 16)

	_, err := NewEncoder(DefaultMaxBytes).Encode(data[:20])
	requireAPIErrorCode(t, err, model.ErrCodeInvalidImage)
}

func asDataURL(mime string, data []byte) string {
	return "data:" + mime + ";base64," + base64.StdEncoding.EncodeToString(data)
}

// widePNG is a few hundred bytes on disk but declares a w x h canvas.
func widePNG(t *testing.T, w, h int) []byte {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, image.NewGray(image.Rect(0, 0, w, h))))
	return buf.Bytes()
}

func TestCheckDataURL(t *testing.T) {
	small := pngBytes(t, 4, 4)
	enc := NewEncoder(int64(len(small)))

	assert.NoError(t, enc.CheckDataURL(""))
	assert.NoError(t, enc.CheckDataURL(asDataURL("image/png", small)))

	err := enc.CheckDataURL(asDataURL("image/png", pngBytes(t, 64, 64)))
	requireAPIErrorCode(t, err, model.ErrCodeImageTooLarge)

	for _, bad := range []string{
		"https://example.com/a.png",
		"data:text/plain;base64,aGVsbG8=",
		"data:image/png,rawdata",
		"data:image/png;base64,@@@",
	} {
		requireAPIErrorCode(t, enc.CheckDataURL(bad), model.ErrCodeValidation)
	}
}

func TestCheckDataURL_RejectsNonImagePayload(t *testing.T) {
	enc := NewEncoder(DefaultMaxBytes)
	err := enc.CheckDataURL(asDataURL("image/png", []byte("0123456789")))
	requireAPIErrorCode(t, err, model.ErrCodeInvalidImage)
}

func TestOversizedCanvasIsRejected(t *testing.T) {
	enc := NewEncoder(DefaultMaxBytes)

	tests := []struct {
		name string
		w, h int
		ok   bool
	}{
		{"at limit", MaxDimension, 1, true},
		{"too wide", MaxDimension + 1, 1, false},
		{"too tall", 1, MaxDimension + 1, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			data := widePNG(t, tt.w, tt.h)
			require.Less(t, len(data), DefaultMaxBytes)

			_, encErr := enc.Encode(data)
			checkErr := enc.CheckDataURL(asDataURL("image/png", data))
			_, thumbErr := Thumbnail(asDataURL("image/png", data), 100, 100)
			if tt.ok {
				assert.NoError(t, encErr)
				assert.NoError(t, checkErr)
				assert.NoError(t, thumbErr)
				return
			}
			requireAPIErrorCode(t, encErr, model.ErrCodeInvalidImage)
			requireAPIErrorCode(t, checkErr, model.ErrCodeInvalidImage)
			assert.Error(t, thumbErr)
		})
	}
}

func TestThumbnail_DownscalesKeepingAspectRatio(t *testing.T) {
	enc := NewEncoder(DefaultMaxBytes)
	dataURL, err := enc.Encode(pngBytes(t, 400, 200))
	require.NoError(t, err)

	thumb, err := Thumbnail(dataURL, 100, 100)
	require.NoError(t, err)
	require.True(t, strings.HasPrefix(thumb, "data:image/png;base64,"))

	_, data, err := DecodeDataURL(thumb)
	require.NoError(t, err)
	cfg, err := png.DecodeConfig(bytes.NewReader(data))
	require.NoError(t, err)
	assert.Equal(t, 100, cfg.Width)
	assert.Equal(t, 50, cfg.Height)
}

func TestThumbnail_SmallImageKeepsSize(t *testing.T) {
	dataURL, err := NewEncoder(DefaultMaxBytes).Encode(pngBytes(t, 30, 40))
	require.NoError(t, err)

	thumb, err := Thumbnail(dataURL, 100, 0)
	require.NoError(t, err)

	_, data, err := DecodeDataURL(thumb)
	require.NoError(t, err)
	cfg, err := png.DecodeConfig(bytes.NewReader(data))
	require.NoError(t, err)
	assert.Equal(t, 30, cfg.Width)
	assert.Equal(t, 40, cfg.Height)
}

func TestThumbnail_InvalidInput(t *testing.T) {
	_, err := Thumbnail("not a data url", 10, 10)
	assert.Error(t, err)

	_, err = Thumbnail("data:image/png;base64,"+base64.StdEncoding.EncodeToString([]byte("junk")), 10, 10)
	assert.Error(t, err)
}
