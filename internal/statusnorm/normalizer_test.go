package statusnorm

import (
	"testing"

	"github.com/santosdev/order-orchestrator/internal/entity"
	"github.com/stretchr/testify/assert"
)

func TestNormalize_Aliases(t *testing.T) {
	cases := map[string]entity.FabricationStatus{
		"completed":      entity.FabricationCompleted,
		"Complete":       entity.FabricationCompleted,
		"DONE":           entity.FabricationCompleted,
		"finished":       entity.FabricationCompleted,
		"fabricated":     entity.FabricationCompleted,
		"in-progress":    entity.FabricationInProgress,
		"In Progress":    entity.FabricationInProgress,
		"manufacturing":  entity.FabricationInProgress,
		"fabricating":    entity.FabricationInProgress,
		"running":        entity.FabricationInProgress,
		"requested":      entity.FabricationRequested,
		"queued":         entity.FabricationRequested,
		"Pending":        entity.FabricationRequested,
		"created":        entity.FabricationRequested,
		"failed":         entity.FabricationFailed,
		"ERROR":          entity.FabricationFailed,
		"ko":             entity.FabricationFailed,
		"rejected":       entity.FabricationFailed,
		"":               entity.FabricationInProgress,
		"totally-unknown": entity.FabricationInProgress,
	}

	for input, want := range cases {
		assert.Equal(t, want, Normalize(input), "input=%q", input)
	}
}

func TestNormalize_IsIdempotent(t *testing.T) {
	inputs := []string{"completed", "In Progress", "queued", "failed", "", "bogus", "Done"}
	for _, in := range inputs {
		once := Normalize(in)
		twice := Normalize(string(once))
		assert.Equal(t, once, twice, "normalize(normalize(%q)) must equal normalize(%q)", in, in)
	}
}
