// Package i18n holds the Somali and English UI strings and picks the
// language for a request.
package i18n

import (
	"golang.org/x/text/language"

	"github.com/hitoshi/passdesk/internal/model"
)

// Supported language codes.
const (
	Somali  = "so"
	English = "en"
)

// Table maps a UI key to its translation. Tables returned by this package
// are shared and must not be modified.
type Table map[string]string

var tables = map[string]Table{
	Somali: {
		"dashboard":      "Warbixinta Guud",
		"passports":      "Liiska Baasaboorada",
		"search":         "Raadi Baasaboor...",
		"addNew":         "Ku Dar Cusub",
		"export":         "Dhoofi (CSV)",
		"total":          "Wadarta Guud",
		"active":         "Waa Shaqaynaya",
		"expiring":       "Wuu Dhacayaa Dhawaan",
		"expired":        "Wuu Dhacay",
		"fullName":       "Magaca Saddexan",
		"passportNo":     "Lambarka Baasaboorka",
		"nationality":    "Dhalashada",
		"expiryDate":     "Taariikhda Dhicitaanka",
		"status":         "Xaaladda",
		"actions":        "Falalka",
		"edit":           "Wax Ka Beddel",
		"delete":         "Tirtir",
		"printID":        "Daabac ID",
		"loginTitle":     "Ku Soo Dhowow Nidaamka Baasaboorada",
		"loginSubtitle":  "Fadlan geli email-kaaga iyo lambarka sirta ah",
		"loginButton":    "Gal Nidaamka",
		"logout":         "Ka Bax",
		"save":           "Keydi Xogta",
		"cancel":         "Jooji",
		"photo":          "Sawirka",
		"gender":         "Jinsiga",
		"issueDate":      "Taariikhda Bixinta",
		"uploadText":     "Guji halkan si aad sawir u soo qaaddo",
		"confirmDelete":  "Ma hubtaa inaad tirtirto baasaboorkan?",
		"male":           "Lab",
		"female":         "Dheddig",
		"statusActive":   "Shaqaynaya",
		"statusInactive": "Joogsaday",
		"statusLost":     "Lumay/Xaday",
	},
	English: {
		"dashboard":      "Dashboard",
		"passports":      "All Passports",
		"search":         "Search Passports...",
		"addNew":         "Add New",
		"export":         "Export CSV",
		"total":          "Total Passports",
		"active":         "Active",
		"expiring":       "Expiring Soon",
		"expired":        "Expired",
		"fullName":       "Full Name",
		"passportNo":     "Passport No",
		"nationality":    "Nationality",
		"expiryDate":     "Expiry Date",
		"status":         "Status",
		"actions":        "Actions",
		"edit":           "Edit",
		"delete":         "Delete",
		"printID":        "Print ID",
		"loginTitle":     "Welcome to Passport System",
		"loginSubtitle":  "Please enter your credentials to access",
		"loginButton":    "Login to System",
		"logout":         "Logout",
		"save":           "Save Record",
		"cancel":         "Cancel",
		"photo":          "Photo",
		"gender":         "Gender",
		"issueDate":      "Issue Date",
		"uploadText":     "Click to upload photo",
		"confirmDelete":  "Are you sure you want to delete this passport?",
		"male":           "Male",
		"female":         "Female",
		"statusActive":   "Active",
		"statusInactive": "Inactive",
		"statusLost":     "Lost/Stolen",
	},
}

// Lookup returns the table for lang, falling back to Somali for unknown codes.
func Lookup(lang string) Table {
	if t, ok := tables[lang]; ok {
		return t
	}
	return tables[Somali]
}

// T translates key. Unknown keys are returned as is.
func T(lang, key string) string {
	if s, ok := Lookup(lang)[key]; ok {
		return s
	}
	return key
}

// GenderLabel returns the translated label for a gender.
func GenderLabel(lang string, g model.Gender) string {
	if g == model.GenderFemale {
		return T(lang, "female")
	}
	return T(lang, "male")
}

// StatusLabel returns the translated label for an administrative status.
func StatusLabel(lang string, s model.AdminStatus) string {
	switch s {
	case model.AdminStatusInactive:
		return T(lang, "statusInactive")
	case model.AdminStatusLost:
		return T(lang, "statusLost")
	default:
		return T(lang, "statusActive")
	}
}

// Negotiator picks one of the supported languages for a request.
type Negotiator struct {
	matcher   language.Matcher
	supported []string
}

// NewNegotiator returns a Negotiator that falls back to defaultLang.
// An unsupported defaultLang is replaced by Somali.
func NewNegotiator(defaultLang string) *Negotiator {
	if _, ok := tables[defaultLang]; !ok {
		defaultLang = Somali
	}
	supported := []string{defaultLang}
	for _, code := range []string{Somali, English} {
		if code != defaultLang {
			supported = append(supported, code)
		}
	}

	tags := make([]language.Tag, len(supported))
	for i, code := range supported {
		tags[i] = language.MustParse(code)
	}
	return &Negotiator{matcher: language.NewMatcher(tags), supported: supported}
}

// Default returns the fallback language.
func (n *Negotiator) Default() string {
	return n.supported[0]
}

// Negotiate resolves an explicit ?lang= value first, then the Accept-Language
// header, then the default.
func (n *Negotiator) Negotiate(langParam, acceptLanguage string) string {
	if langParam != "" {
		if tag, err := language.Parse(langParam); err == nil {
			if code, ok := n.match(tag); ok {
				return code
			}
		}
	}
	if acceptLanguage != "" {
		if tags, _, err := language.ParseAcceptLanguage(acceptLanguage); err == nil && len(tags) > 0 {
			if code, ok := n.match(tags...); ok {
				return code
			}
		}
	}
	return n.Default()
}

func (n *Negotiator) match(tags ...language.Tag) (string, bool) {
	_, idx, conf := n.matcher.Match(tags...)
	if conf == language.No {
		return "", false
	}
	return n.supported[idx], true
}
