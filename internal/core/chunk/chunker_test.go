package chunk

import (
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fixedTokenCounter struct {
	n int
}

func (f fixedTokenCounter) CountTokens(string) int { return f.n }

func TestNewChunker_RejectsInvalidParams(t *testing.T) {
	_, err := NewChunker(1000, 1000)
	assert.ErrorIs(t, err, ErrInvalidParameter)
}

func TestChunker_ChunkPages(t *testing.T) {
	c, err := NewChunker(100, 20, WithTokenCounter(fixedTokenCounter{n: 7}))
	require.NoError(t, err)

	docID := uuid.New()
	pages := []Page{
		{Number: 1, Text: strings.Repeat("a", 150)},
		{Number: 2, Text: "   "},
		{Number: 3, Text: "this page is short but long enough"},
	}

	chunks, err := c.ChunkPages(docID, pages)
	require.NoError(t, err)
	require.Len(t, chunks, 3)

	for i, ch := range chunks {
		assert.Equal(t, i, ch.ChunkIndex)
		assert.Equal(t, docID, ch.DocumentID)
		assert.Equal(t, 7, ch.TokenCount)
		assert.NotEqual(t, uuid.Nil, ch.ID)
		assert.Greater(t, ch.CharOffsetEnd, ch.CharOffsetStart)
	}

	assert.Equal(t, 1, chunks[0].PageNumber)
	assert.Equal(t, 1, chunks[1].PageNumber)
	assert.Equal(t, 80, chunks[1].CharOffsetStart)
	assert.Equal(t, 3, chunks[2].PageNumber)
	assert.Equal(t, 0, chunks[2].CharOffsetStart)
}

func TestChunker_DefaultCounterUsesRunes(t *testing.T) {
	c, err := NewChunker(100, 0)
	require.NoError(t, err)

	chunks, err := c.ChunkPages(uuid.New(), []Page{{Number: 1, Text: "二相ステンレス鋼管"}})
	require.NoError(t, err)
	require.Len(t, chunks, 1)
	assert.Equal(t, 9, chunks[0].TokenCount)
}
