package uid

import (
	"strings"

	"github.com/google/uuid"
)

// New generates a new unique identifier.
func New() string {
	return uuid.New().String()
}

// NewOrderRef generates a short public order reference, safe to show in
// chat messages ("ORD-9f2c1a7b").
func NewOrderRef() string {
	id := uuid.New().String()
	return "ORD-" + strings.SplitN(id, "-", 2)[0]
}

// IsValid checks if a string is a valid UUID.
func IsValid(id string) bool {
	_, err := uuid.Parse(id)
	return err == nil
}
