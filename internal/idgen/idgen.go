package idgen

import (
	"github.com/google/uuid"
)

// New generates a generic UUID (used for request correlation IDs)
func New() string {
	return uuid.New().String()
}
