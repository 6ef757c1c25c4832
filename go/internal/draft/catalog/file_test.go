package catalog

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/mcdev12/corpsdraft/go/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sample = `
captions:
  - id: bd-brass
    corps: Blue Devils
    caption: Brass
  - id: scv-ge
    corps: Santa Clara Vanguard
    caption: General Effect
`

func TestFileAllItems(t *testing.T) {
	path := filepath.Join(t.TempDir(), "captions.yaml")
	require.NoError(t, os.WriteFile(path, []byte(sample), 0o644))

	items, err := NewFile(path).AllItems(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []models.Caption{
		{ID: "bd-brass", Corps: "Blue Devils", Caption: "Brass"},
		{ID: "scv-ge", Corps: "Santa Clara Vanguard", Caption: "General Effect"},
	}, items)

	// re-read on every call
	require.NoError(t, os.WriteFile(path, []byte("captions: []\n"), 0o644))
	items, err = NewFile(path).AllItems(context.Background())
	require.NoError(t, err)
	assert.Empty(t, items)
}

func TestFileErrors(t *testing.T) {
	_, err := NewFile(filepath.Join(t.TempDir(), "missing.yaml")).AllItems(context.Background())
	assert.Error(t, err)

	_, err = Parse([]byte("captions: [{corps: Cadets}]"))
	assert.Error(t, err)

	_, err = Parse([]byte("captions: {"))
	assert.Error(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = NewFile("unused").AllItems(ctx)
	assert.ErrorIs(t, err, context.Canceled)
}
