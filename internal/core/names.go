package core

import (
	"regexp"
	"strings"

	"github.com/google/uuid"

	"github.com/aayushdutt/packkeeper/internal/apperror"
)

var unsafeNameChars = regexp.MustCompile(`[^A-Za-z0-9]`)

// SafeName strips everything but ASCII letters and digits, giving a name that is
// usable as a directory on every platform
func SafeName(name string) string {
	return unsafeNameChars.ReplaceAllString(name, "")
}

// named is implemented by entities that own a directory named after them
type named interface {
	key() uuid.UUID
	displayName() string
	safeName() string
}

// validateName checks a proposed name against the live collection. skip excludes
// the entity being renamed. dirExists reports whether a directory is already taken.
func validateName[T named](resource, name string, existing []T, skip uuid.UUID, dirExists func(string) bool) (string, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return "", apperror.ValidationFailed("name", resource+" name is required")
	}

	safe := SafeName(name)
	if safe == "" {
		return "", apperror.ValidationFailed("name", resource+" name must contain at least one letter or digit")
	}

	for _, e := range existing {
		if e.key() == skip {
			continue
		}
		if strings.EqualFold(e.displayName(), name) || strings.EqualFold(e.safeName(), safe) {
			return "", apperror.Conflict(resource, name)
		}
	}

	if dirExists(safe) {
		return "", apperror.Conflict(resource+" directory", safe)
	}
	return safe, nil
}
