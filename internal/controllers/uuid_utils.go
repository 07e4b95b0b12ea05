package controllers

import (
	"strings"

	"github.com/google/uuid"
)

// parseID normalizes a UUID path parameter. ok is false for anything that is
// not a UUID, so lookups can answer 404 without touching the database.
func parseID(raw string) (string, bool) {
	id, err := uuid.Parse(strings.TrimSpace(raw))
	if err != nil {
		return "", false
	}
	return id.String(), true
}
