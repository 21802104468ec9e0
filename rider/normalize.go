/*
normalize.go - Free-text field canonicalization

PURPOSE:
  Rider documents arrive from forms and spreadsheet imports, so the
  classification fields (delivery_type, audit_status, job_status) carry
  every spelling imaginable: "motor-bike", "Approved!!", "resigned".
  Normalize maps raw text onto the canonical enumeration member.

ALGORITHM:
  1. Empty/absent input -> ""
  2. Clean: trim, dashes/underscores to spaces, strip punctuation,
     collapse internal whitespace
  3. Case-insensitive exact match against the field's enumeration
  4. Fixed substring heuristics per field
  5. No match -> the cleaned string, unchanged (callers treat unknown
     values as invalid downstream; Normalize never fails)

Pure and deterministic. No side effects.

SEE ALSO:
  - types.go: the canonical enumerations
  - workflow/updater.go: normalizes classification edits on write
*/
package rider

import (
	"strings"
	"unicode"
)

// Normalize canonicalizes a raw value for one of the classification
// fields (KeyDeliveryType, KeyAuditStatus, KeyJobStatus). For any other
// field it returns the cleaned string as-is.
func Normalize(field, raw string) string {
	cleaned := cleanValue(raw)
	if cleaned == "" {
		return ""
	}

	canon, ok := canonicalValues[field]
	if !ok {
		return cleaned
	}

	// Exact match (ignoring case) against the enumeration.
	for _, v := range canon {
		if strings.EqualFold(cleaned, v) {
			return v
		}
	}

	// Substring heuristics.
	lower := strings.ToLower(cleaned)
	switch field {
	case KeyDeliveryType:
		if containsAny(lower, "car", "automobile") {
			return string(DeliveryCar)
		}
		if containsAny(lower, "motorcycle", "bike", "motor") {
			return string(DeliveryMotorcycle)
		}
	case KeyAuditStatus:
		if containsAny(lower, "pass", "approved", "accept") {
			return string(AuditPass)
		}
		if containsAny(lower, "reject", "fail", "denied") {
			return string(AuditReject)
		}
	case KeyJobStatus:
		if strings.Contains(lower, "on") && strings.Contains(lower, "job") {
			return string(JobOnJob)
		}
		if containsAny(lower, "resign", "quit", "left") {
			return string(JobResign)
		}
	}

	return cleaned
}

var canonicalValues = map[string][]string{
	KeyDeliveryType: {string(DeliveryCar), string(DeliveryMotorcycle)},
	KeyAuditStatus:  {string(AuditPass), string(AuditReject)},
	KeyJobStatus:    {string(JobOnJob), string(JobResign)},
}

// cleanValue trims, maps dashes/underscores to spaces, drops remaining
// punctuation, and collapses internal whitespace.
func cleanValue(raw string) string {
	var b strings.Builder
	for _, r := range raw {
		switch {
		case r == '-' || r == '_':
			b.WriteRune(' ')
		case unicode.IsPunct(r) || unicode.IsSymbol(r):
			// dropped
		default:
			b.WriteRune(r)
		}
	}
	return trimmed(b.String())
}

// trimmed collapses runs of whitespace to single spaces and trims the ends.
func trimmed(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

func containsAny(s string, subs ...string) bool {
	for _, sub := range subs {
		if strings.Contains(s, sub) {
			return true
		}
	}
	return false
}
