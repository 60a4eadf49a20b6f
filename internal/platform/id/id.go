// Package id generates opaque identifiers for Mathly records.
package id

import (
	"encoding/base32"
	"fmt"
	"strings"

	"github.com/google/uuid"
)

var idEncoding = base32.StdEncoding.WithPadding(base32.NoPadding)

// NewID generates a URL-safe identifier from a random (v4) UUID encoded as
// base32. The identifier is 26 characters long, lowercase, and has no padding.
func NewID() (string, error) {
	raw, err := uuid.NewRandom()
	if err != nil {
		return "", fmt.Errorf("generate uuid: %w", err)
	}
	return strings.ToLower(idEncoding.EncodeToString(raw[:])), nil
}
