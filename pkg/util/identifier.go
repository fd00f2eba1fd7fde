package util

import (
	"strings"

	"github.com/google/uuid"
)

// NewID generates a record identifier as prefix + "_" + 32 hex characters.
// UUIDs replace the earlier timestamp+random-suffix scheme, whose
// uniqueness was only probabilistic.
func NewID(prefix string) string {
	return prefix + "_" + strings.ReplaceAll(uuid.NewString(), "-", "")
}
