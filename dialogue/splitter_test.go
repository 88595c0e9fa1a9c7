package dialogue

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestShouldSplit(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected bool
	}{
		{"blank line present", "question\n\nanswer", true},
		{"many single newlines", strings.Repeat("line\n", 12), true},
		{"few single newlines", "a\nb\nc", false},
		{"plain text", "just one message", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, ShouldSplit(tt.input))
		})
	}
}

func TestSplitMonologue(t *testing.T) {
	turns := SplitMonologue("hello\n\nworld\n\nagain")

	require.Len(t, turns, 3)
	assert.Equal(t, Turn{Role: RoleUser, Text: "hello"}, turns[0])
	assert.Equal(t, Turn{Role: RoleModel, Text: "world"}, turns[1])
	assert.Equal(t, Turn{Role: RoleUser, Text: "again"}, turns[2])
}

// TestSplitMonologue_EmptyChunks verifies that blank chunks are dropped
// without advancing the role, keeping attribution aligned.
func TestSplitMonologue_EmptyChunks(t *testing.T) {
	turns := SplitMonologue("first\n\n   \n\nsecond")

	require.Len(t, turns, 2)
	assert.Equal(t, RoleUser, turns[0].Role)
	assert.Equal(t, "first", turns[0].Text)
	assert.Equal(t, RoleModel, turns[1].Role)
	assert.Equal(t, "second", turns[1].Text)
}

// TestSplitMonologue_SingleNewlineFallback covers text with no blank lines:
// the splitter falls back to splitting on individual newlines.
func TestSplitMonologue_SingleNewlineFallback(t *testing.T) {
	turns := SplitMonologue("one\ntwo\nthree")

	require.Len(t, turns, 3)
	assert.Equal(t, RoleUser, turns[0].Role)
	assert.Equal(t, RoleModel, turns[1].Role)
	assert.Equal(t, RoleUser, turns[2].Role)
}

func TestSplitMonologue_ShortChunksKept(t *testing.T) {
	turns := SplitMonologue("Hi\n\nOk")

	require.Len(t, turns, 2)
	assert.Equal(t, "Hi", turns[0].Text)
	assert.Equal(t, "Ok", turns[1].Text)
}

func TestSplitMonologue_SingleChunk(t *testing.T) {
	turns := SplitMonologue("only one message here")

	require.Len(t, turns, 1)
	assert.Equal(t, RoleUser, turns[0].Role)
}
