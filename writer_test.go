package dcl_test

import (
	"bytes"
	"io"
	"io/ioutil"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/anthropic-exercises/dcl"
)

func TestSimpleCompress(t *testing.T) {
	expected := []byte{0x00, 0x04, 0x82, 0x24, 0x25, 0x8f, 0x80, 0x7f}

	var b bytes.Buffer
	w := dcl.NewWriter(&b, dcl.Binary, dcl.DictSize1024)
	_, err := w.Write([]byte("AIAIAIAIAIAIA"))
	require.NoError(t, err)
	require.NoError(t, w.Close())

	require.Equal(t, expected, b.Bytes())
}

func TestCompressDecompress(t *testing.T) {
	rng := rand.New(rand.NewSource(42))
	data := randomBytes(rng, 1000, 20)

	var b bytes.Buffer
	w := dcl.NewWriter(&b, dcl.Binary, dcl.DictSize1024)
	_, err := w.Write(data)
	require.NoError(t, err)
	require.NoError(t, w.Close())

	r, err := dcl.NewReader(bytes.NewBuffer(b.Bytes()))
	require.NoError(t, err)
	decoded, err := ioutil.ReadAll(r)
	require.NoError(t, err)

	require.Equal(t, data, decoded)
}

func TestWriteAfterCloseFails(t *testing.T) {
	var b bytes.Buffer
	w := dcl.NewWriter(&b, dcl.Binary, dcl.DictSize1024)
	require.NoError(t, w.Close())

	_, err := w.Write([]byte("too late"))
	require.ErrorIs(t, err, io.ErrClosedPipe)
}

func randomBytes(rng *rand.Rand, length, unique int) []uint8 {
	b := make([]uint8, length)
	for i := range b {
		b[i] = uint8(rng.Intn(unique))
	}
	return b
}
