// Package model defines the domain models.
package model

import "time"

// Gender is the holder's gender as printed on the passport.
type Gender string

const (
	GenderMale   Gender = "Male"
	GenderFemale Gender = "Female"
)

// AdminStatus is the administrative state of a passport.
// It is set by the operator and is independent of the expiry date.
type AdminStatus string

const (
	AdminStatusActive   AdminStatus = "Active"
	AdminStatusInactive AdminStatus = "Inactive"
	AdminStatusLost     AdminStatus = "Lost/Stolen"
)

// DefaultNationality is applied when a record is saved without a nationality.
const DefaultNationality = "Somali"

// Passport is one passport record owned by a user.
// Dates are kept as entered (YYYY-MM-DD) so that partial or malformed data
// round-trips unchanged.
type Passport struct {
	ID             string
	UserID         string
	FullName       string
	PassportNumber string
	Nationality    string
	Gender         Gender
	DOB            string
	IssueDate      string
	ExpiryDate     string
	Status         AdminStatus
	PassportImage  string // data URL, empty when no photo was captured
	CreatedAt      time.Time
	UpdatedAt      *time.Time
}

// PassportInput holds the user-editable fields of a passport form submission.
type PassportInput struct {
	FullName       string
	PassportNumber string
	Nationality    string
	Gender         Gender
	DOB            string
	IssueDate      string
	ExpiryDate     string
	Status         AdminStatus
	PassportImage  string
}

// ExpiryStatus is the derived classification of how close a passport is to expiring.
// It is computed on every read and never persisted.
type ExpiryStatus string

const (
	ExpiryValid   ExpiryStatus = "valid"
	ExpiryWarning ExpiryStatus = "warning"
	ExpiryUrgent  ExpiryStatus = "urgent"
	ExpiryExpired ExpiryStatus = "expired"
)

// ClassifiedPassport is a passport together with its expiry classification
// at a given evaluation instant.
type ClassifiedPassport struct {
	Passport
	ExpiryStatus  ExpiryStatus
	DaysRemaining *int // nil when the expiry date is missing or unparseable
}
