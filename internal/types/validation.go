package types

import (
	"encoding/base64"
	"fmt"
	"regexp"
	"strings"
)

// ------------------------------
// Shared Errors
// ------------------------------

// ErrNotFound is returned when a requested entity does not exist.
var ErrNotFound = fmt.Errorf("not found")

var emailRe = regexp.MustCompile(`^[^@\s]+@[^@\s]+\.[^@\s]+$`)

// ValidateIDPresent rejects empty identifiers before they reach the wire.
func ValidateIDPresent(id, field string) error {
	if strings.TrimSpace(id) == "" {
		return fmt.Errorf("%s must not be empty", field)
	}
	return nil
}

// IsEmail reports whether s looks like an email address.
func IsEmail(s string) bool { return emailRe.MatchString(s) }

// IsHydraID reports whether s is an externally-exposed encoded
// identifier. Hydra ids are URL-safe base64 over a resource URI such as
// "ciscospark://us/PEOPLE/<uuid>".
func IsHydraID(s string) bool {
	_, err := DecodeHydraID(s)
	return err == nil
}

// DecodeHydraID decodes a hydra id and returns the trailing internal
// UUID segment.
func DecodeHydraID(s string) (string, error) {
	if s == "" {
		return "", fmt.Errorf("empty hydra id")
	}
	raw, err := base64.RawStdEncoding.DecodeString(s)
	if err != nil {
		if raw2, err2 := base64.RawURLEncoding.DecodeString(s); err2 == nil {
			raw = raw2
		} else {
			return "", fmt.Errorf("hydra id is not base64: %w", err)
		}
	}
	uri := string(raw)
	if !strings.Contains(uri, "://") {
		return "", fmt.Errorf("hydra id does not encode a resource URI")
	}
	parts := strings.Split(uri, "/")
	id := parts[len(parts)-1]
	if id == "" {
		return "", fmt.Errorf("hydra id has no trailing identifier")
	}
	return id, nil
}

// ValidateParticipantTarget checks a user-supplied participant string:
// it must be an email address or a resolvable hydra id. Rejection is
// synchronous, before any network call.
func ValidateParticipantTarget(s string) error {
	if IsEmail(s) || IsHydraID(s) {
		return nil
	}
	return fmt.Errorf("participant %q is neither an email address nor a hydra id", s)
}
