package ecs

import (
	"strings"

	"github.com/google/uuid"
)

// EntityID is the entity's stable unique identifier: a 36-character
// hexadecimal UUID, grouped 8-4-4-4-12, uppercase, version/variant nibbles
// forced to RFC 4122 v4.
type EntityID string

// newEntityID generates a fresh v4 UUID and renders it in uppercase form.
func newEntityID() EntityID {
	return EntityID(strings.ToUpper(uuid.New().String()))
}
