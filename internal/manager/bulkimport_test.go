package manager

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestImportAppendsParsedLines(t *testing.T) {
	store := NewStore(nil, "1")
	store.Append(v("existing", "EXISTING", "1"))

	f := NewImportFlow(store, "1")
	f.Open()
	assert.False(t, f.CanImport())

	f.LoadContent("A=1\nB=2\nBADLINE\n")
	require.True(t, f.CanImport())

	report, err := f.Import()
	require.NoError(t, err)
	assert.Equal(t, 2, report.Imported)
	assert.Equal(t, 3, report.Total)
	assert.Equal(t, []int{3}, report.Skipped)
	assert.Equal(t, "2 of 3 lines imported", report.String())
	assert.False(t, f.IsOpen())

	got := map[string]string{}
	seen := map[string]bool{}
	for _, x := range store.Variables() {
		got[x.Name] = x.Value
		assert.False(t, seen[x.UID], "duplicate uid %s", x.UID)
		seen[x.UID] = true
		assert.Equal(t, "1", x.ScopeID)
	}
	assert.Equal(t, map[string]string{"EXISTING": "EXISTING-value", "A": "1", "B": "2"}, got)

	last, ok := f.LastReport()
	require.True(t, ok)
	assert.Equal(t, report, last)
}

func TestImportWithoutContent(t *testing.T) {
	store := NewStore(nil, "1")
	f := NewImportFlow(store, "1")
	f.Open()
	f.LoadContent("  \n\n")

	_, err := f.Import()
	assert.ErrorIs(t, err, ErrNoContent)
	assert.True(t, f.IsOpen())
	assert.Zero(t, store.Len())
	_, ok := f.LastReport()
	assert.False(t, ok)
}

func TestImportCloseDropsContent(t *testing.T) {
	f := NewImportFlow(NewStore(nil, "1"), "1")
	f.Open()
	f.LoadContent("A=1")
	f.Close()

	assert.False(t, f.IsOpen())
	assert.Empty(t, f.Content())
}
