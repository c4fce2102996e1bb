package utils

import (
	"bytes"
	"errors"
	"io"
	"testing"
	"testing/iotest"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// chunkReader - 미리 정한 청크 단위로 돌려주는 reader
type chunkReader struct {
	chunks [][]byte
}

func (c *chunkReader) Read(p []byte) (int, error) {
	if len(c.chunks) == 0 {
		return 0, io.EOF
	}
	n := copy(p, c.chunks[0])
	c.chunks[0] = c.chunks[0][n:]
	if len(c.chunks[0]) == 0 {
		c.chunks = c.chunks[1:]
	}
	return n, nil
}

func TestDrainToBlob_PreservesChunkOrder(t *testing.T) {
	r := &chunkReader{chunks: [][]byte{[]byte("ab"), []byte("cd"), []byte("ef")}}

	blob, err := DrainToBlob(r, "image/jpeg")
	require.NoError(t, err)

	assert.Equal(t, []byte("abcdef"), blob.Data)
	assert.Equal(t, "image/jpeg", blob.ContentType)
	assert.Equal(t, 6, blob.Size())
}

func TestDrainToBlob_DefaultsContentType(t *testing.T) {
	blob, err := DrainToBlob(bytes.NewReader([]byte{0x89, 'P', 'N', 'G'}), "")
	require.NoError(t, err)
	assert.Equal(t, DefaultImageType, blob.ContentType)
}

func TestDrainToBlob_LargeAndOneByteReads(t *testing.T) {
	data := bytes.Repeat([]byte("0123456789"), 10000)

	blob, err := DrainToBlob(iotest.OneByteReader(bytes.NewReader(data)), "image/png")
	require.NoError(t, err)
	assert.Equal(t, data, blob.Data)
}

func TestDrainToBlob_DataThenEOF(t *testing.T) {
	blob, err := DrainToBlob(iotest.DataErrReader(bytes.NewReader([]byte("xyz"))), "image/png")
	require.NoError(t, err)
	assert.Equal(t, []byte("xyz"), blob.Data)
}

func TestDrainToBlob_ReadError(t *testing.T) {
	_, err := DrainToBlob(iotest.ErrReader(errors.New("disk gone")), "image/png")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "disk gone")
}

func TestPreview(t *testing.T) {
	assert.Equal(t, "abc", Preview("abc", 5))
	assert.Equal(t, "abcde...", Preview("abcdefgh", 5))
}

func TestPreview_KeepsRunesWhole(t *testing.T) {
	assert.Equal(t, "가...", Preview("가나다", 4))
	assert.Equal(t, "가나...", Preview("가나다", 6))
	assert.Equal(t, "...", Preview("가나다", 2))

	for n := 0; n < 12; n++ {
		assert.True(t, utf8.ValidString(Preview("🌄 산 위의 일몰", n)), "maxLen=%d", n)
	}
}
