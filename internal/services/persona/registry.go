// Package persona manages the shared list of system-prompt profiles.
//
// The registry has its own lock, independent of the user table. Callers that
// need both always snapshot the registry first and never hold both locks at
// once.
package persona

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"sync"

	"github.com/MasterHarun/fantastic-octo-fiesta/internal/models"
	"github.com/MasterHarun/fantastic-octo-fiesta/pkg/wordcount"
	"github.com/sirupsen/logrus"
)

// ErrPersonaNotFound is returned for lookups and removals of unknown names.
// Name matching is exact and case-sensitive.
var ErrPersonaNotFound = errors.New("persona: not found")

// Registry is the shared, independently-locked persona list. The seed file is
// read once at startup; runtime edits are in-memory only and do not survive a
// restart.
type Registry struct {
	mu       sync.RWMutex
	personas []models.Personality

	defaultPersona models.Personality
	logger         *logrus.Logger
}

// NewRegistry creates a registry whose reserved default persona is always
// resolvable, even while the list is empty during startup seeding.
func NewRegistry(defaultName, defaultPrompt string, logger *logrus.Logger) *Registry {
	return &Registry{
		defaultPersona: models.Personality{
			Name:   defaultName,
			Prompt: defaultPrompt,
			Tokens: wordcount.Count(defaultPrompt),
		},
		logger: logger,
	}
}

// seedRecord is the wire shape of one entry in the seed file.
type seedRecord struct {
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
	Prompt      string `json:"prompt"`
	Tokens      int    `json:"tokens"`
}

// LoadSeed reads the JSON persona seed file once. Seeding never writes back;
// the file is startup-time state only.
func (r *Registry) LoadSeed(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("persona: failed to read seed file: %w", err)
	}

	var records []seedRecord
	if err := json.Unmarshal(data, &records); err != nil {
		return fmt.Errorf("persona: failed to parse seed file: %w", err)
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	for _, rec := range records {
		tokens := rec.Tokens
		if tokens == 0 {
			tokens = wordcount.Count(rec.Prompt)
		}
		r.upsertLocked(models.Personality{
			Name:        rec.Name,
			Description: rec.Description,
			Prompt:      rec.Prompt,
			Tokens:      tokens,
		})
	}

	r.logger.WithFields(logrus.Fields{
		"path":  path,
		"count": len(records),
	}).Info("Persona seed loaded")
	return nil
}

// List returns a snapshot copy of the registry in insertion order.
func (r *Registry) List() []models.Personality {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return append([]models.Personality(nil), r.personas...)
}

// Get returns the persona with the given name. The reserved default name
// resolves even when the list does not contain it.
func (r *Registry) Get(name string) (models.Personality, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, p := range r.personas {
		if p.Name == name {
			return p, nil
		}
	}
	if name == r.defaultPersona.Name {
		return r.defaultPersona, nil
	}
	return models.Personality{}, ErrPersonaNotFound
}

// Default returns the reserved default persona.
func (r *Registry) Default() models.Personality {
	r.mu.RLock()
	defer r.mu.RUnlock()

	// A seeded persona may shadow the built-in default under the same name.
	for _, p := range r.personas {
		if p.Name == r.defaultPersona.Name {
			return p
		}
	}
	return r.defaultPersona
}

// Upsert updates the persona with the given name in place, or appends a new
// one. The prompt's token cost is recomputed on every change.
func (r *Registry) Upsert(name, description, prompt string) models.Personality {
	p := models.Personality{
		Name:        name,
		Description: description,
		Prompt:      prompt,
		Tokens:      wordcount.Count(prompt),
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	r.upsertLocked(p)

	r.logger.WithField("persona", name).Debug("Persona upserted")
	return p
}

func (r *Registry) upsertLocked(p models.Personality) {
	for i := range r.personas {
		if r.personas[i].Name == p.Name {
			r.personas[i] = p
			return
		}
	}
	r.personas = append(r.personas, p)
}

// Remove deletes the persona with the given name.
func (r *Registry) Remove(name string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	for i := range r.personas {
		if r.personas[i].Name == name {
			r.personas = append(r.personas[:i], r.personas[i+1:]...)
			r.logger.WithField("persona", name).Debug("Persona removed")
			return nil
		}
	}
	return ErrPersonaNotFound
}
