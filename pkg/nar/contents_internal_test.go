package nar

import (
	"bytes"
	"io"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// chunkReader hands back its data one fixed-size read at a time, the way a
// real os.File does, so copyContents sees the same read pattern it would
// against a file that grew or shrank after being stat'd.
type chunkReader struct {
	data []byte
	pos  int
}

func (r *chunkReader) Read(p []byte) (int, error) {
	if r.pos >= len(r.data) {
		return 0, io.EOF
	}

	n := copy(p, r.data[r.pos:])
	r.pos += n

	return n, nil
}

func TestCopyContentsExactMatch(t *testing.T) {
	var out bytes.Buffer

	require.NoError(t, copyContents(&out, bytes.NewReader([]byte("hello world")), 11, "test"))
	assert.Equal(t, "hello world", out.String())
}

func TestCopyContentsModifiedDuringDumpOnOverLongRead(t *testing.T) {
	var out bytes.Buffer

	r := &chunkReader{data: []byte("hello world, this got longer")}
	err := copyContents(&out, r, 5, "grown-file")

	require.Error(t, err)
	assert.ErrorIs(t, err, ErrModifiedDuringDump)
}

func TestCopyContentsTruncatedFileOnShortRead(t *testing.T) {
	var out bytes.Buffer

	err := copyContents(&out, bytes.NewReader([]byte("hi")), 5, "short-file")

	require.Error(t, err)
	assert.ErrorIs(t, err, ErrTruncatedFile)
}
