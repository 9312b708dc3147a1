// Package repo implements the data persistence layer for domain entities,
// backed by GORM. This file centralizes error sentinels and the classifier
// that decides which uniqueness constraint a failed insert collided with:
// codigo collisions become user-facing validation errors, unique_link
// collisions trigger a silent regenerate-and-retry in the service layer.
package repo

import (
	"errors"
	"strings"

	"gorm.io/gorm"
)

// ErrNotFound is returned when a requested record does not exist.
// It aliases gorm.ErrRecordNotFound for convenience and consistency
// across the service layer and handlers.
var ErrNotFound = gorm.ErrRecordNotFound

// ErrDuplicate indicates a uniqueness violation whose column could not be
// pinned down more precisely.
var ErrDuplicate = errors.New("duplicate")

// IsUniqueViolation reports whether err is a uniqueness-constraint failure
// on the given column. The pure-Go SQLite driver reports these as plain-text
// errors ("UNIQUE constraint failed: certifications.codigo"), so this checks
// the message as well as gorm's sentinel.
func IsUniqueViolation(err error, column string) bool {
	if err == nil {
		return false
	}
	low := strings.ToLower(err.Error())
	if !errors.Is(err, gorm.ErrDuplicatedKey) &&
		!strings.Contains(low, "unique constraint failed") &&
		!strings.Contains(low, "constraint failed: unique") &&
		!strings.Contains(low, "duplicate key") {
		return false
	}
	if column == "" {
		return true
	}
	return strings.Contains(low, strings.ToLower(column))
}
