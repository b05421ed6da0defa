package workflow

import (
	"testing"

	"github.com/MasterHarun/fantastic-octo-fiesta/internal/models"
	"github.com/stretchr/testify/assert"
)

func TestAdvance_TwoStepDefinition(t *testing.T) {
	// Step one: naming the persona starts a definition.
	first := Advance(models.CommandState{Kind: models.CommandStateNone}, "Pirate")
	assert.Equal(t, ActionCreatePersona, first.Action)
	assert.Equal(t, "Pirate", first.PersonaName)
	assert.Equal(t, models.CommandStateAwaitingPersonalityPrompt, first.Next.Kind)
	assert.Equal(t, "Pirate", first.Next.PersonaName)

	// Step two: the next input becomes the prompt body.
	second := Advance(first.Next, "You are a pirate captain.")
	assert.Equal(t, ActionSetPrompt, second.Action)
	assert.Equal(t, "Pirate", second.PersonaName)
	assert.Equal(t, "You are a pirate captain.", second.Prompt)
	assert.Equal(t, models.CommandStateNone, second.Next.Kind)
	assert.Empty(t, second.Next.PersonaName)
}

func TestAdvance_RestartOverwritesPendingName(t *testing.T) {
	first := Advance(models.CommandState{}, "Pirate")

	// Completing the pending definition with a second name as the prompt is
	// what the machine does: the awaited input is always the prompt body.
	second := Advance(first.Next, "Teacher")
	assert.Equal(t, ActionSetPrompt, second.Action)
	assert.Equal(t, "Pirate", second.PersonaName)
	assert.Equal(t, "Teacher", second.Prompt)

	// With the machine back at rest, the next input names a new persona.
	third := Advance(second.Next, "Teacher")
	assert.Equal(t, ActionCreatePersona, third.Action)
	assert.Equal(t, "Teacher", third.PersonaName)
}

func TestAdvance_UnknownStateStartsFresh(t *testing.T) {
	tr := Advance(models.CommandState{Kind: models.CommandStateKind(99)}, "Sage")
	assert.Equal(t, ActionCreatePersona, tr.Action)
	assert.Equal(t, models.CommandStateAwaitingPersonalityPrompt, tr.Next.Kind)
}
