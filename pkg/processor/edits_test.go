package processor

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestResolveOverlaps(t *testing.T) {
	t.Run("Non-Overlapping Edits Kept", func(t *testing.T) {
		edits := []edit{
			{start: 0, end: 5, replacement: "a", priority: 10},
			{start: 10, end: 15, replacement: "b", priority: 20},
		}
		kept, dropped := resolveOverlaps(edits)
		assert.Len(t, kept, 2)
		assert.Empty(t, dropped)
	})

	t.Run("Priority Wins", func(t *testing.T) {
		edits := []edit{
			{start: 0, end: 10, replacement: "low", priority: 40, processor: "code"},
			{start: 5, end: 15, replacement: "high", priority: 10, processor: "mermaid"},
		}
		kept, dropped := resolveOverlaps(edits)
		require.Len(t, kept, 1)
		assert.Equal(t, "high", kept[0].replacement)
		require.Len(t, dropped, 1)
		assert.Equal(t, "code", dropped[0].processor)
	})

	t.Run("Longer Span Wins At Same Priority", func(t *testing.T) {
		edits := []edit{
			{start: 0, end: 5, replacement: "short", priority: 20},
			{start: 0, end: 10, replacement: "long", priority: 20},
		}
		kept, _ := resolveOverlaps(edits)
		require.Len(t, kept, 1)
		assert.Equal(t, "long", kept[0].replacement)
	})

	t.Run("Earlier Start Wins As Last Resort", func(t *testing.T) {
		edits := []edit{
			{start: 5, end: 10, replacement: "later", priority: 20},
			{start: 3, end: 8, replacement: "earlier", priority: 20},
		}
		kept, _ := resolveOverlaps(edits)
		require.Len(t, kept, 1)
		assert.Equal(t, "earlier", kept[0].replacement)
	})

	t.Run("Kept Sorted By Start", func(t *testing.T) {
		edits := []edit{
			{start: 20, end: 25, priority: 10},
			{start: 0, end: 5, priority: 40},
			{start: 10, end: 15, priority: 20},
		}
		kept, _ := resolveOverlaps(edits)
		require.Len(t, kept, 3)
		assert.Equal(t, 0, kept[0].start)
		assert.Equal(t, 10, kept[1].start)
		assert.Equal(t, 20, kept[2].start)
	})

	t.Run("Empty Input", func(t *testing.T) {
		kept, dropped := resolveOverlaps(nil)
		assert.Empty(t, kept)
		assert.Empty(t, dropped)
	})
}

func TestApplyEdits(t *testing.T) {
	t.Run("Basic Splice", func(t *testing.T) {
		content := "hello world"
		out, err := applyEdits(content, []edit{{start: 6, end: 11, replacement: "there"}})
		require.NoError(t, err)
		assert.Equal(t, "hello there", out)
	})

	t.Run("Multiple Edits Preserve Untouched Text", func(t *testing.T) {
		content := "aa BB cc DD ee"
		out, err := applyEdits(content, []edit{
			{start: 3, end: 5, replacement: "xx"},
			{start: 9, end: 11, replacement: "yy"},
		})
		require.NoError(t, err)
		assert.Equal(t, "aa xx cc yy ee", out)
	})

	t.Run("No Edits Returns Original", func(t *testing.T) {
		out, err := applyEdits("unchanged", nil)
		require.NoError(t, err)
		assert.Equal(t, "unchanged", out)
	})

	t.Run("Out Of Bounds Edit Rejected", func(t *testing.T) {
		_, err := applyEdits("short", []edit{{start: 2, end: 99, replacement: "x"}})
		assert.Error(t, err)
	})
}
