package util

import "github.com/google/uuid"

// NewID returns a random identifier suitable for primary keys and job ids.
func NewID() string {
	return uuid.NewString()
}
