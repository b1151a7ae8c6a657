package search

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSearchScopedToOwner(t *testing.T) {
	e, err := NewEngine("")
	require.NoError(t, err)
	defer e.Close()

	require.NoError(t, e.IndexDream(1, 10, "je volais au-dessus d'une forêt magique", "forêt enchantée"))
	require.NoError(t, e.IndexDream(2, 10, "un océan scintillant sous la lune", "océan bleu"))
	require.NoError(t, e.IndexDream(3, 99, "une forêt sombre et menaçante", "forêt sombre"))

	ids, err := e.Search(10, "forêt", 10)
	require.NoError(t, err)
	assert.Equal(t, []uint{1}, ids)

	ids, err = e.Search(99, "forêt", 10)
	require.NoError(t, err)
	assert.Equal(t, []uint{3}, ids)
}

func TestSearchNoMatch(t *testing.T) {
	e, err := NewEngine("")
	require.NoError(t, err)
	defer e.Close()

	require.NoError(t, e.IndexDream(1, 10, "un jardin coloré", "jardin"))

	ids, err := e.Search(10, "montagne", 10)
	require.NoError(t, err)
	assert.Empty(t, ids)
}

func TestDeleteRemovesDream(t *testing.T) {
	e, err := NewEngine("")
	require.NoError(t, err)
	defer e.Close()

	require.NoError(t, e.IndexDream(7, 10, "une ville futuriste", "ville"))
	require.NoError(t, e.Delete(7))

	ids, err := e.Search(10, "ville", 10)
	require.NoError(t, err)
	assert.Empty(t, ids)
}
