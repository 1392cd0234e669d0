package cryptox

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"strings"
)

// licenseKeyGroups is the number of 4-hex-character groups in a license key.
// Five groups give 80 bits of entropy, which keeps accidental collisions
// astronomically rare while the key stays human-typable.
const licenseKeyGroups = 5

// GenerateLicenseKey creates a structured license key of the form
// PREFIX-XXXX-XXXX-XXXX-XXXX-XXXX where each X is an uppercase hex digit.
func GenerateLicenseKey(prefix string) (string, error) {
	raw := make([]byte, licenseKeyGroups*2)
	if _, err := rand.Read(raw); err != nil {
		return "", fmt.Errorf("cryptox: failed to generate license key: %w", err)
	}

	encoded := strings.ToUpper(hex.EncodeToString(raw))
	groups := make([]string, 0, licenseKeyGroups+1)
	groups = append(groups, prefix)
	for i := 0; i < len(encoded); i += 4 {
		groups = append(groups, encoded[i:i+4])
	}

	return strings.Join(groups, "-"), nil
}

// CanonicalLicenseKey normalizes a user-supplied license key for lookup:
// surrounding whitespace is stripped and the key is uppercased.
func CanonicalLicenseKey(key string) string {
	return strings.ToUpper(strings.TrimSpace(key))
}
