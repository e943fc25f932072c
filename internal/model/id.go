package model

import (
	"strings"

	"github.com/google/uuid"
)

// ParseID validates an identifier received at the boundary.
// A malformed id is always a client error, never a lookup miss.
func ParseID(raw string) (uuid.UUID, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return uuid.Nil, ErrMalformedIdentifier
	}
	id, err := uuid.Parse(raw)
	if err != nil || id == uuid.Nil {
		return uuid.Nil, ErrMalformedIdentifier
	}
	return id, nil
}
