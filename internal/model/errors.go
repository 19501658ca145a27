// Package model defines the domain models.
package model

import "fmt"

// APIError is the unified error envelope returned to clients.
// It carries a cause category and a hint the UI can show next to the message.
type APIError struct {
	Code     string // machine readable error code
	Message  string // human readable message
	Category string // auth, validation, passport, photo, system
	Action   string // what the user can do about it
}

// Error implements the error interface.
func (e *APIError) Error() string {
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// Error codes.
const (
	ErrCodePassportNotFound = "PASSPORT_NOT_FOUND"
	ErrCodeValidation       = "VALIDATION_FAILED"
	ErrCodeImageTooLarge    = "IMAGE_TOO_LARGE"
	ErrCodeInvalidImage     = "INVALID_IMAGE"
	ErrCodeInvalidURL       = "INVALID_URL"
	ErrCodeSSRFBlocked      = "SSRF_BLOCKED"
	ErrCodeFetchFailed      = "FETCH_FAILED"
	ErrCodeUserNotFound     = "USER_NOT_FOUND"
	ErrCodeLoginDisabled    = "LOGIN_DISABLED"
)

// NewPassportNotFoundError reports that no passport with the id exists in the caller's collection.
func NewPassportNotFoundError(passportID string) *APIError {
	return &APIError{
		Code:     ErrCodePassportNotFound,
		Message:  fmt.Sprintf("passport not found: %s", passportID),
		Category: "passport",
		Action:   "Reload the passport list and try again.",
	}
}

// NewValidationError reports a missing or invalid form field.
func NewValidationError(field, reason string) *APIError {
	return &APIError{
		Code:     ErrCodeValidation,
		Message:  fmt.Sprintf("%s %s", field, reason),
		Category: "validation",
		Action:   "Correct the highlighted field and save again.",
	}
}

// NewImageTooLargeError reports a photo above the capture limit.
func NewImageTooLargeError(limitBytes int64) *APIError {
	return &APIError{
		Code:     ErrCodeImageTooLarge,
		Message:  fmt.Sprintf("Fadlan sawirka wuu weyn yahay. Isticmaal sawir ka yar %dKB.", limitBytes/1024),
		Category: "photo",
		Action:   fmt.Sprintf("Use a photo smaller than %d KB.", limitBytes/1024),
	}
}

// NewInvalidImageError reports data that is not a supported image.
func NewInvalidImageError() *APIError {
	return &APIError{
		Code:     ErrCodeInvalidImage,
		Message:  "The file is not a supported image.",
		Category: "photo",
		Action:   "Upload a JPEG, PNG, GIF, WebP or BMP photo.",
	}
}

// NewInvalidURLError reports an unusable photo URL.
func NewInvalidURLError(reason string) *APIError {
	return &APIError{
		Code:     ErrCodeInvalidURL,
		Message:  fmt.Sprintf("invalid URL: %s", reason),
		Category: "validation",
		Action:   "Enter a URL starting with http:// or https://.",
	}
}

// NewSSRFBlockedError reports a URL that resolves to a non-public address.
func NewSSRFBlockedError() *APIError {
	return &APIError{
		Code:     ErrCodeSSRFBlocked,
		Message:  "Access to the URL was blocked by the security policy.",
		Category: "validation",
		Action:   "Use a publicly reachable image URL. Private network addresses are not allowed.",
	}
}

// NewFetchFailedError reports a failed photo download.
func NewFetchFailedError(reason string) *APIError {
	return &APIError{
		Code:     ErrCodeFetchFailed,
		Message:  fmt.Sprintf("failed to fetch the photo: %s", reason),
		Category: "photo",
		Action:   "Check the URL and try again later.",
	}
}

// NewUserNotFoundError reports that the session user no longer exists.
func NewUserNotFoundError() *APIError {
	return &APIError{
		Code:     ErrCodeUserNotFound,
		Message:  "User not found.",
		Category: "auth",
		Action:   "Sign in again.",
	}
}

// NewLoginDisabledError reports a sign-in method that is not configured.
func NewLoginDisabledError(method string) *APIError {
	return &APIError{
		Code:     ErrCodeLoginDisabled,
		Message:  fmt.Sprintf("%s sign-in is not enabled.", method),
		Category: "auth",
		Action:   "Use another sign-in method or contact the administrator.",
	}
}
