package core

import (
	"github.com/google/uuid"
)

// RunID identifies one Generate call in diagnostics output.
type RunID string

// NewRunID creates a time-ordered identifier using UUID v7
func NewRunID() RunID {
	id, err := uuid.NewV7()
	if err != nil {
		// Fallback to v4 if v7 fails
		id = uuid.New()
	}
	return RunID(id.String())
}

// String returns the string representation
func (id RunID) String() string {
	return string(id)
}

// IsEmpty checks if the ID is empty
func (id RunID) IsEmpty() bool {
	return id == ""
}
