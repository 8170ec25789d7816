package chunk

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidateParams(t *testing.T) {
	tests := []struct {
		name      string
		chunkSize int
		overlap   int
		wantErr   bool
	}{
		{name: "正常値", chunkSize: 1000, overlap: 200},
		{name: "最小サイズ", chunkSize: MinChunkSize, overlap: 0},
		{name: "サイズ不足", chunkSize: MinChunkSize - 1, overlap: 0, wantErr: true},
		{name: "負のオーバーラップ", chunkSize: 1000, overlap: -1, wantErr: true},
		{name: "オーバーラップがサイズと同じ", chunkSize: 1000, overlap: 1000, wantErr: true},
		{name: "オーバーラップがサイズより大きい", chunkSize: 1000, overlap: 1500, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateParams(tt.chunkSize, tt.overlap)
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrInvalidParameter)
				return
			}
			assert.NoError(t, err)
		})
	}
}

func TestSplit_InvalidParamsReturnError(t *testing.T) {
	_, err := Split("some text", 1000, 1000)
	assert.ErrorIs(t, err, ErrInvalidParameter)

	_, err = Split("some text", 50, 0)
	assert.ErrorIs(t, err, ErrInvalidParameter)
}

func TestSplit_EmptyText(t *testing.T) {
	segments, err := Split("   \n\t ", 1000, 200)
	require.NoError(t, err)
	assert.Empty(t, segments)
}

func TestSplit_ShortTextYieldsSingleTrimmedChunk(t *testing.T) {
	segments, err := Split("  short text  ", 1000, 200)
	require.NoError(t, err)
	require.Len(t, segments, 1)
	assert.Equal(t, "short text", segments[0].Content)
	assert.Equal(t, 2, segments[0].Start)
	assert.Equal(t, 12, segments[0].End)
}

func TestSplit_ExampleFromDocumentation(t *testing.T) {
	text := strings.Repeat("x", 2500)

	segments, err := Split(text, 1000, 200)
	require.NoError(t, err)
	require.Len(t, segments, 3)

	assert.Equal(t, 0, segments[0].Start)
	assert.Equal(t, 1000, segments[0].End)
	assert.Equal(t, 800, segments[1].Start)
	assert.Equal(t, 1800, segments[1].End)
	assert.Equal(t, 1600, segments[2].Start)
	assert.Equal(t, 2500, segments[2].End)
	assert.Len(t, segments[2].Content, 900)
}

func TestSplit_TerminatesForAllValidParameters(t *testing.T) {
	text := strings.Repeat("abcdefghij ", 500)

	for _, size := range []int{100, 150, 333, 1000, 5000} {
		for _, overlap := range []int{0, 1, size / 2, size - 1} {
			segments, err := Split(text, size, overlap)
			require.NoError(t, err)

			length := len([]rune(text))
			step := size - overlap
			maxIterations := (length+step-1)/step + iterationSlack
			assert.LessOrEqual(t, len(segments), maxIterations, "size=%d overlap=%d", size, overlap)
			assert.NotEmpty(t, segments, "size=%d overlap=%d", size, overlap)
		}
	}
}

func TestSplit_ChunksCoverText(t *testing.T) {
	text := strings.Repeat("0123456789", 347)
	length := len([]rune(text))

	segments, err := Split(text, 500, 100)
	require.NoError(t, err)

	covered := make([]bool, length)
	for _, seg := range segments {
		assert.LessOrEqual(t, len([]rune(seg.Content)), 500)
		assert.Equal(t, string([]rune(text)[seg.Start:seg.End]), seg.Content)
		for i := seg.Start; i < seg.End; i++ {
			covered[i] = true
		}
	}
	for i, ok := range covered {
		require.True(t, ok, "offset %d not covered", i)
	}
}

func TestSplit_DropsTinyTrailingFragment(t *testing.T) {
	// 最終ウィンドウが閾値以下になる長さ
	text := strings.Repeat("y", 1005)

	segments, err := Split(text, 1000, 0)
	require.NoError(t, err)
	require.Len(t, segments, 1)
	assert.Equal(t, 1000, segments[0].End)
}

func TestSplit_MultibyteOffsetsAreRuneBased(t *testing.T) {
	text := strings.Repeat("鋼管の引張強さ", 40)

	segments, err := Split(text, 100, 10)
	require.NoError(t, err)
	require.NotEmpty(t, segments)

	runes := []rune(text)
	for _, seg := range segments {
		assert.Equal(t, string(runes[seg.Start:seg.End]), seg.Content)
	}
}

func TestSplitter_Chunk(t *testing.T) {
	s := NewSplitter()
	contents, err := s.Chunk(strings.Repeat("z", 250), 100, 0)
	require.NoError(t, err)
	assert.Len(t, contents, 3)
}
