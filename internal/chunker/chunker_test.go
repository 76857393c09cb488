package chunker

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"codesearch/internal/coreerrors"
	"codesearch/internal/walker"
)

func makeLines(n int) string {
	lines := make([]string, n)
	for i := range lines {
		lines[i] = "line"
	}
	return strings.Join(lines, "\n")
}

func TestFixedLinesWindowing(t *testing.T) {
	src := makeLines(120)
	chunks := FixedLines(src, 50)
	require.Len(t, chunks, 3)
	assert.Equal(t, 1, chunks[0].StartLine)
	assert.Equal(t, 50, chunks[0].EndLine)
	assert.Equal(t, 51, chunks[1].StartLine)
	assert.Equal(t, 100, chunks[1].EndLine)
	assert.Equal(t, 101, chunks[2].StartLine)
	assert.Equal(t, 120, chunks[2].EndLine)
}

func TestFixedLinesDropsBlankWindows(t *testing.T) {
	src := strings.Repeat("\n", 10)
	chunks := FixedLines(src, 50)
	assert.Empty(t, chunks)
}

func TestSlidingWindowChunkCount(t *testing.T) {
	// spec §8 boundary case: overlap = size-1 on a file of file_lines lines
	// produces file_lines - size + 1 chunks.
	const fileLines = 20
	const size = 5
	const overlap = size - 1
	src := makeLines(fileLines)
	chunks := SlidingWindow(src, size, overlap)
	assert.Len(t, chunks, fileLines-size+1)
}

func TestSlidingWindowInvalidOverlapRejected(t *testing.T) {
	c := New(NewRegistry())
	fi := walker.FileInfo{RelPath: "a.txt", Path: "/root/a.txt", Content: makeLines(10)}
	_, err := c.Chunk("/root", fi, Options{Strategy: StrategySlidingWindow, SlidingWindowSize: 5, SlidingWindowOverlap: 5})
	require.Error(t, err)
	assert.True(t, coreerrors.Is(err, coreerrors.KindConfigInvalid))
}

func TestChunkFallsBackToFixedLinesWithoutGrammar(t *testing.T) {
	c := New(NewRegistry())
	fi := walker.FileInfo{
		RelPath:  "a.unknown",
		Path:     "/root/a.unknown",
		Content:  makeLines(10),
		Language: "unknown",
	}
	chunks, err := c.Chunk("/root", fi, Options{})
	require.NoError(t, err)
	require.Len(t, chunks, 1)
	assert.Equal(t, 1, chunks[0].StartLine)
	assert.Equal(t, 10, chunks[0].EndLine)
}

func TestChunkIDsAreDeterministic(t *testing.T) {
	c := New(NewRegistry())
	fi := walker.FileInfo{RelPath: "a.unknown", Path: "/root/a.unknown", Content: makeLines(10)}

	first, err := c.Chunk("/root", fi, Options{})
	require.NoError(t, err)
	second, err := c.Chunk("/root", fi, Options{})
	require.NoError(t, err)

	require.Len(t, first, 1)
	require.Len(t, second, 1)
	assert.Equal(t, first[0].ID, second[0].ID)
}

func TestChunkEmptyFileProducesNoChunks(t *testing.T) {
	c := New(NewRegistry())
	fi := walker.FileInfo{RelPath: "empty.txt", Path: "/root/empty.txt", Content: "   \n\n  "}
	chunks, err := c.Chunk("/root", fi, Options{})
	require.NoError(t, err)
	assert.Empty(t, chunks)
}
