package persona

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestRegistry() *Registry {
	logger := logrus.New()
	logger.SetLevel(logrus.PanicLevel)
	return NewRegistry("default", "You are a helpful assistant.", logger)
}

func TestRegistry_DefaultAlwaysResolvable(t *testing.T) {
	r := newTestRegistry()

	assert.Empty(t, r.List())

	p, err := r.Get("default")
	require.NoError(t, err)
	assert.Equal(t, "You are a helpful assistant.", p.Prompt)
	assert.Equal(t, p, r.Default())
}

func TestRegistry_GetExactMatch(t *testing.T) {
	r := newTestRegistry()
	r.Upsert("Pirate", "sea captain", "You are a pirate.")

	p, err := r.Get("Pirate")
	require.NoError(t, err)
	assert.Equal(t, "You are a pirate.", p.Prompt)

	// Matching is case-sensitive, no fuzzy fallback.
	_, err = r.Get("pirate")
	assert.ErrorIs(t, err, ErrPersonaNotFound)
	_, err = r.Get("Pir")
	assert.ErrorIs(t, err, ErrPersonaNotFound)
}

func TestRegistry_UpsertUpdatesInPlace(t *testing.T) {
	r := newTestRegistry()
	r.Upsert("tutor", "", "You teach.")
	r.Upsert("pirate", "", "You are a pirate.")
	r.Upsert("tutor", "patient teacher", "You teach slowly and carefully.")

	list := r.List()
	require.Len(t, list, 2)
	assert.Equal(t, "tutor", list[0].Name)
	assert.Equal(t, "You teach slowly and carefully.", list[0].Prompt)
	assert.Equal(t, "patient teacher", list[0].Description)
}

func TestRegistry_UpsertRecomputesTokens(t *testing.T) {
	r := newTestRegistry()
	p := r.Upsert("concise", "", "Answer briefly")
	assert.Equal(t, 2, p.Tokens)

	p = r.Upsert("concise", "", "Answer as briefly as you possibly can")
	assert.Equal(t, 7, p.Tokens)
}

func TestRegistry_Remove(t *testing.T) {
	r := newTestRegistry()
	r.Upsert("pirate", "", "You are a pirate.")

	require.NoError(t, r.Remove("pirate"))
	_, err := r.Get("pirate")
	assert.ErrorIs(t, err, ErrPersonaNotFound)

	assert.ErrorIs(t, r.Remove("pirate"), ErrPersonaNotFound)
}

func TestRegistry_SeededDefaultShadowsBuiltin(t *testing.T) {
	r := newTestRegistry()
	r.Upsert("default", "custom", "You are a custom default.")

	assert.Equal(t, "You are a custom default.", r.Default().Prompt)

	p, err := r.Get("default")
	require.NoError(t, err)
	assert.Equal(t, "You are a custom default.", p.Prompt)
}

func TestRegistry_ListIsSnapshot(t *testing.T) {
	r := newTestRegistry()
	r.Upsert("a", "", "prompt a")

	list := r.List()
	r.Upsert("b", "", "prompt b")

	assert.Len(t, list, 1)
	assert.Len(t, r.List(), 2)
}

func TestRegistry_LoadSeed(t *testing.T) {
	seed := `[
		{"name": "pirate", "description": "sea captain", "prompt": "You are a pirate captain."},
		{"name": "concise", "prompt": "Answer briefly.", "tokens": 99}
	]`
	path := filepath.Join(t.TempDir(), "personas.json")
	require.NoError(t, os.WriteFile(path, []byte(seed), 0o644))

	r := newTestRegistry()
	require.NoError(t, r.LoadSeed(path))

	list := r.List()
	require.Len(t, list, 2)

	pirate, err := r.Get("pirate")
	require.NoError(t, err)
	assert.Equal(t, "sea captain", pirate.Description)
	// No tokens in the record: fall back to the word count of the prompt.
	assert.Equal(t, 5, pirate.Tokens)

	concise, err := r.Get("concise")
	require.NoError(t, err)
	assert.Equal(t, 99, concise.Tokens)
}

func TestRegistry_LoadSeedMissingFile(t *testing.T) {
	r := newTestRegistry()
	assert.Error(t, r.LoadSeed(filepath.Join(t.TempDir(), "nope.json")))
	assert.Empty(t, r.List())
}
