package core

import (
	"encoding/base64"
	"regexp"
	"strings"
)

// DefaultSessionMarker is the literal every session credential starts with,
// either bare or wrapped in parentheses.
const DefaultSessionMarker = "TKT-CYBER~"

// minSessionBytes is the decoded payload length a credential must exceed.
const minSessionBytes = 20

var handlePattern = regexp.MustCompile(`^[a-zA-Z0-9_-]{1,39}$`)

// ValidHandle reports whether handle matches the account handle grammar:
// 1 to 39 letters, digits, hyphens or underscores.
func ValidHandle(handle string) bool {
	return handlePattern.MatchString(handle)
}

// SessionFormat checks the shape of session credentials. It never inspects
// what the payload means.
type SessionFormat struct {
	Marker string
}

// IsValidSession checks token against the default marker.
func IsValidSession(token string) bool {
	return SessionFormat{Marker: DefaultSessionMarker}.Valid(token)
}

// Prefixes returns the two accepted prefixes, parenthesized form first.
func (f SessionFormat) Prefixes() [2]string {
	return [2]string{"(" + f.Marker + ")", f.Marker}
}

// RequiredFormat describes the accepted shape for error messages.
func (f SessionFormat) RequiredFormat() string {
	return "(" + f.Marker + ")base64_encoded_string"
}

// Valid reports whether token carries an accepted prefix followed by base64
// that decodes to more than 20 bytes. Malformed base64 is simply invalid.
func (f SessionFormat) Valid(token string) bool {
	if f.Marker == "" || strings.ContainsAny(token, "\r\n") {
		return false
	}
	for _, prefix := range f.Prefixes() {
		payload, ok := strings.CutPrefix(token, prefix)
		if !ok {
			continue
		}
		n, ok := decodedLen(payload)
		return ok && n > minSessionBytes
	}
	return false
}

// decodedLen decodes padded standard base64, falling back to the unpadded
// form some session generators emit.
func decodedLen(s string) (int, bool) {
	if b, err := base64.StdEncoding.DecodeString(s); err == nil {
		return len(b), true
	}
	if b, err := base64.RawStdEncoding.DecodeString(s); err == nil {
		return len(b), true
	}
	return 0, false
}
