package usecase

import (
	"encoding/json"
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"
	"unicode/utf8"
)

const maxFieldLength = 1000

var (
	emailPattern = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)
	phonePattern = regexp.MustCompile(`^\+[1-9]\d{1,14}$`)

	honeypotFields = []string{"website", "url", "homepage"}
	requiredFields = []string{"firstName", "lastName", "email", "company", "conferenceId", "consentContact"}
)

// NormalizedSubmission is a public-form submission that passed every check.
type NormalizedSubmission struct {
	ConferenceID     string
	FirstName        string
	LastName         string
	Email            string
	Phone            string
	Company          string
	Role             string
	BusinessType     string
	Interests        []string
	TripWindow       string
	GroupSize        int
	Notes            string
	ConsentMarketing bool
	UTMSource        string
	UTMMedium        string
	UTMCampaign      string
}

// ValidateSubmission runs the honeypot, required-field, format and consent
// checks in that order and returns the sanitized submission. Nothing is
// returned when any check fails.
func ValidateSubmission(raw map[string]any) (*NormalizedSubmission, error) {
	if IsSpam(raw) {
		return nil, BadRequest("Spam detected")
	}

	var missing []string
	for _, field := range requiredFields {
		if isMissing(raw[field]) {
			missing = append(missing, field)
		}
	}
	if len(missing) > 0 {
		return nil, BadRequest("Missing required fields: %s", strings.Join(missing, ", "))
	}

	email := SanitizeString(raw["email"])
	if !IsValidEmail(email) {
		return nil, BadRequest("Invalid email format")
	}

	phone := SanitizeString(raw["phone"])
	if phone != "" && !IsValidPhone(phone) {
		return nil, BadRequest("Invalid phone format (use E.164 format, e.g., +15551234567)")
	}

	if !isTrue(raw["consentContact"]) {
		return nil, BadRequest("Contact consent is required")
	}

	return &NormalizedSubmission{
		ConferenceID:     SanitizeString(raw["conferenceId"]),
		FirstName:        SanitizeString(raw["firstName"]),
		LastName:         SanitizeString(raw["lastName"]),
		Email:            strings.ToLower(email),
		Phone:            phone,
		Company:          SanitizeString(raw["company"]),
		Role:             SanitizeString(raw["role"]),
		BusinessType:     SanitizeString(raw["businessType"]),
		Interests:        sanitizeList(raw["interests"]),
		TripWindow:       SanitizeString(raw["tripWindow"]),
		GroupSize:        parseGroupSize(raw["groupSize"]),
		Notes:            SanitizeString(raw["notes"]),
		ConsentMarketing: isTrue(raw["consentMarketing"]),
		UTMSource:        SanitizeString(raw["utm_source"]),
		UTMMedium:        SanitizeString(raw["utm_medium"]),
		UTMCampaign:      SanitizeString(raw["utm_campaign"]),
	}, nil
}

// IsSpam reports whether any decoy field was filled in.
func IsSpam(raw map[string]any) bool {
	for _, field := range honeypotFields {
		if isTruthy(raw[field]) {
			return true
		}
	}
	return false
}

func IsValidEmail(email string) bool {
	return emailPattern.MatchString(email)
}

func IsValidPhone(phone string) bool {
	return phonePattern.MatchString(phone)
}

// SanitizeString trims and truncates to maxFieldLength runes. Scalars of
// other types are rendered as text; nil becomes "".
func SanitizeString(v any) string {
	var s string
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		s = t
	case bool:
		s = strconv.FormatBool(t)
	case float64:
		s = strconv.FormatFloat(t, 'f', -1, 64)
	case json.Number:
		s = t.String()
	default:
		s = fmt.Sprint(t)
	}
	return truncate(strings.TrimSpace(s), maxFieldLength)
}

func SanitizeStrings(values []string) []string {
	out := make([]string, 0, len(values))
	for _, v := range values {
		out = append(out, SanitizeString(v))
	}
	return out
}

func truncate(s string, max int) string {
	if utf8.RuneCountInString(s) <= max {
		return s
	}
	runes := []rune(s)
	return string(runes[:max])
}

func sanitizeList(v any) []string {
	items, ok := v.([]any)
	if !ok {
		if strs, ok := v.([]string); ok {
			return SanitizeStrings(strs)
		}
		return []string{}
	}
	out := make([]string, 0, len(items))
	for _, item := range items {
		if s, ok := item.(string); ok {
			out = append(out, SanitizeString(s))
		}
	}
	return out
}

// parseGroupSize follows parseInt semantics: leading digits count, anything
// unparseable is 0, negatives clamp to 0.
func parseGroupSize(v any) int {
	var n float64
	switch t := v.(type) {
	case float64:
		n = t
	case int:
		n = float64(t)
	case json.Number:
		f, err := t.Float64()
		if err != nil {
			return 0
		}
		n = f
	case string:
		n = float64(leadingInt(strings.TrimSpace(t)))
	default:
		return 0
	}
	if math.IsNaN(n) || n <= 0 {
		return 0
	}
	if n > math.MaxInt32 {
		return math.MaxInt32
	}
	return int(math.Trunc(n))
}

func leadingInt(s string) int {
	end := 0
	if end < len(s) && (s[end] == '-' || s[end] == '+') {
		end++
	}
	start := end
	for end < len(s) && s[end] >= '0' && s[end] <= '9' {
		end++
	}
	if end == start {
		return 0
	}
	n, err := strconv.Atoi(s[:end])
	if err != nil {
		return 0
	}
	return n
}

// isMissing treats absent, null, blank strings and zero numbers as missing.
// A boolean is always present.
func isMissing(v any) bool {
	switch t := v.(type) {
	case nil:
		return true
	case string:
		return strings.TrimSpace(t) == ""
	case bool:
		return false
	case float64:
		return t == 0
	case json.Number:
		return t.String() == "0"
	}
	return false
}

func isTruthy(v any) bool {
	switch t := v.(type) {
	case nil:
		return false
	case string:
		return t != ""
	case bool:
		return t
	case float64:
		return t != 0 && !math.IsNaN(t)
	case json.Number:
		return t.String() != "0"
	}
	return true
}

func isTrue(v any) bool {
	switch t := v.(type) {
	case bool:
		return t
	case string:
		return t == "true"
	}
	return false
}
