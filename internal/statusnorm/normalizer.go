// Package statusnorm maps the free-form status strings Warehouse puts on
// the bus onto the fabrication-status enum the rest of the system uses.
package statusnorm

import (
	"strings"

	"github.com/santosdev/order-orchestrator/internal/entity"
)

var completedAliases = map[string]struct{}{
	"completed":  {},
	"complete":   {},
	"done":       {},
	"finished":   {},
	"fabricated": {},
}

var inProgressAliases = map[string]struct{}{
	"in_progress":   {},
	"working":       {},
	"manufacturing": {},
	"fabricating":   {},
	"running":       {},
}

var requestedAliases = map[string]struct{}{
	"requested": {},
	"queued":    {},
	"pending":   {},
	"created":   {},
}

var failedAliases = map[string]struct{}{
	"failed":   {},
	"error":    {},
	"ko":       {},
	"rejected": {},
}

// Normalize canonicalizes a Warehouse-provided status string and maps it
// to a FabricationStatus. Unknown or empty input conservatively maps to
// InProgress rather than Completed (§4.2).
func Normalize(raw string) entity.FabricationStatus {
	key := canonicalize(raw)

	switch {
	case key == "":
		return entity.FabricationInProgress
	case has(completedAliases, key):
		return entity.FabricationCompleted
	case has(inProgressAliases, key):
		return entity.FabricationInProgress
	case has(requestedAliases, key):
		return entity.FabricationRequested
	case has(failedAliases, key):
		return entity.FabricationFailed
	default:
		return entity.FabricationInProgress
	}
}

// canonicalize lower-cases raw and collapses '-' and spaces to '_', so
// "In Progress", "in-progress" and "in_progress" all compare equal.
func canonicalize(raw string) string {
	s := strings.ToLower(strings.TrimSpace(raw))
	s = strings.ReplaceAll(s, "-", "_")
	s = strings.ReplaceAll(s, " ", "_")
	return s
}

func has(set map[string]struct{}, key string) bool {
	_, ok := set[key]
	return ok
}
