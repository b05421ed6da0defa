// Package workflow drives the two-step persona definition command.
//
// The state machine is deliberately a pure transition function over the
// per-user command state. Side effects (registry upserts, replies) belong to
// the caller, which serializes invocations per user before advancing.
package workflow

import (
	"github.com/MasterHarun/fantastic-octo-fiesta/internal/models"
)

// ActionKind names the side effect the caller must perform for a transition.
type ActionKind int

const (
	// ActionCreatePersona: upsert a persona with an empty prompt and ask the
	// user for the prompt body.
	ActionCreatePersona ActionKind = iota
	// ActionSetPrompt: upsert the named persona with the supplied prompt body
	// and confirm completion.
	ActionSetPrompt
)

// Transition is the outcome of feeding one define-persona input to the
// machine: the next state plus the action the caller performs.
type Transition struct {
	Next   models.CommandState
	Action ActionKind
	// PersonaName is the persona the action applies to.
	PersonaName string
	// Prompt is set only for ActionSetPrompt.
	Prompt string
}

// Advance feeds one define-persona input to the machine. The transition table
// is exhaustive over CommandStateKind:
//
//	None                      + text -> AwaitingPersonalityPrompt(text), create persona "text"
//	AwaitingPersonalityPrompt + text -> None, set prompt of the pending persona to "text"
func Advance(current models.CommandState, text string) Transition {
	switch current.Kind {
	case models.CommandStateAwaitingPersonalityPrompt:
		return Transition{
			Next:        models.CommandState{Kind: models.CommandStateNone},
			Action:      ActionSetPrompt,
			PersonaName: current.PersonaName,
			Prompt:      text,
		}
	default:
		// CommandStateNone, and any unknown state, starts a fresh definition.
		return Transition{
			Next: models.CommandState{
				Kind:        models.CommandStateAwaitingPersonalityPrompt,
				PersonaName: text,
			},
			Action:      ActionCreatePersona,
			PersonaName: text,
		}
	}
}
