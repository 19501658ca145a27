package photo

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/hitoshi/passdesk/internal/model"
	"github.com/hitoshi/passdesk/internal/security"
)

// Importer downloads a photo from a public URL and encodes it.
type Importer struct {
	guard   security.SSRFGuardService
	client  *http.Client
	encoder *Encoder
}

// NewImporter returns an Importer whose HTTP client comes from guard.
func NewImporter(guard security.SSRFGuardService, timeout time.Duration, encoder *Encoder) *Importer {
	return &Importer{
		guard:   guard,
		client:  guard.NewSafeClient(timeout),
		encoder: encoder,
	}
}

// Import fetches rawURL and returns the photo as a data URL.
// Every failure is an *model.APIError: INVALID_URL, SSRF_BLOCKED,
// FETCH_FAILED, IMAGE_TOO_LARGE or INVALID_IMAGE.
func (i *Importer) Import(ctx context.Context, rawURL string) (string, error) {
	if err := i.guard.ValidateURL(rawURL); err != nil {
		if errors.Is(err, security.ErrBlockedDestination) {
			return "", model.NewSSRFBlockedError()
		}
		return "", model.NewInvalidURLError(err.Error())
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return "", model.NewInvalidURLError(err.Error())
	}
	req.Header.Set("Accept", "image/*")

	resp, err := i.client.Do(req)
	if err != nil {
		return "", model.NewFetchFailedError(err.Error())
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", model.NewFetchFailedError(fmt.Sprintf("unexpected status %d", resp.StatusCode))
	}
	if resp.ContentLength > i.encoder.MaxBytes() {
		return "", model.NewImageTooLargeError(i.encoder.MaxBytes())
	}

	// One extra byte distinguishes "exactly at the limit" from "over it".
	data, err := io.ReadAll(io.LimitReader(resp.Body, i.encoder.MaxBytes()+1))
	if err != nil {
		return "", model.NewFetchFailedError(err.Error())
	}

	return i.encoder.Encode(data)
}
