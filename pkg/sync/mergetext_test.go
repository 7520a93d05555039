package sync

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIsMergeableName(t *testing.T) {
	t.Parallel()
	assert.True(t, IsMergeableName("document.md"))
	assert.True(t, IsMergeableName("NOTES.TXT"))
	assert.True(t, IsMergeableName("a.b.markdown"))
	assert.False(t, IsMergeableName("drawing.draw"))
	assert.False(t, IsMergeableName("noextension"))
}

func TestThreeWayTextMergeDisjointEdits(t *testing.T) {
	t.Parallel()
	// spec.md §8 scenario 4.
	base := []byte("document\n\ncontent\n")
	local := []byte("document 2\n\ncontent\n")
	remote := []byte("document\n\ncontent 2\n")

	merged, ok := threeWayTextMerge(base, local, remote)
	require.True(t, ok)
	assert.Equal(t, "document 2\n\ncontent 2\n", string(merged))
}

func TestThreeWayTextMergeOverlappingEditsFails(t *testing.T) {
	t.Parallel()
	base := []byte("line one\nline two\n")
	local := []byte("line ONE\nline two\n")
	remote := []byte("line one (remote)\nline two\n")

	_, ok := threeWayTextMerge(base, local, remote)
	assert.False(t, ok)
}

func TestThreeWayTextMergeIdenticalEditBothSides(t *testing.T) {
	t.Parallel()
	base := []byte("a\nb\n")
	local := []byte("a\nb\nc\n")
	remote := []byte("a\nb\nc\n")

	merged, ok := threeWayTextMerge(base, local, remote)
	require.True(t, ok)
	assert.Equal(t, "a\nb\nc\n", string(merged))
}

func TestThreeWayTextMergeOnlyLocalChanged(t *testing.T) {
	t.Parallel()
	base := []byte("a\nb\nc\n")
	local := []byte("a\nB\nc\n")
	remote := []byte("a\nb\nc\n")

	merged, ok := threeWayTextMerge(base, local, remote)
	require.True(t, ok)
	assert.Equal(t, "a\nB\nc\n", string(merged))
}
