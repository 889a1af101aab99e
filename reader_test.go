package dcl_test

import (
	"bytes"
	"io"
	"io/ioutil"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/anthropic-exercises/dcl"
)

var simpleFixture = []byte{0x00, 0x04, 0x82, 0x24, 0x25, 0x8f, 0x80, 0x7f}

func TestSimpleCase(t *testing.T) {
	r, err := dcl.NewReader(bytes.NewBuffer(simpleFixture))
	require.NoError(t, err)

	decoded, err := ioutil.ReadAll(r)
	require.NoError(t, err)
	require.Equal(t, "AIAIAIAIAIAIA", string(decoded))
}

func TestInvalidHeader(t *testing.T) {
	_, err := dcl.NewReader(bytes.NewBuffer([]byte{0x02, 0x04, 0x82}))
	require.ErrorIs(t, err, dcl.ErrHeader)
}

func TestInvalidDictionary(t *testing.T) {
	_, err := dcl.NewReader(bytes.NewBuffer([]byte{0x00, 0x03, 0x82}))
	require.ErrorIs(t, err, dcl.ErrDictionary)
}

func TestTruncatedStreamReturnsUnexpectedEOF(t *testing.T) {
	truncated := simpleFixture[:len(simpleFixture)-1]
	_, err := dcl.NewReader(bytes.NewBuffer(truncated))
	require.ErrorIs(t, err, dcl.ErrUnexpectedEOF)
}

func TestPoisonedReaderYieldsNoMoreData(t *testing.T) {
	// Decoding is eager, so a decode error (here, a stream that ends right
	// after its header) is returned by NewReader itself and no Reader is
	// handed out to yield bytes. Then confirm that a Reader which decoded
	// fine, once drained, keeps reporting io.EOF and never a data byte.
	_, err := dcl.NewReader(bytes.NewBuffer([]byte{0x00, 0x04}))
	require.Error(t, err)

	r, err := dcl.NewReader(bytes.NewBuffer(simpleFixture))
	require.NoError(t, err)

	buf := make([]byte, 4)
	for {
		n, err := r.Read(buf)
		if n == 0 && err == io.EOF {
			break
		}
		if err != nil {
			require.ErrorIs(t, err, io.EOF)
		}
	}
	n, err := r.Read(buf)
	require.Equal(t, 0, n)
	require.ErrorIs(t, err, io.EOF)
}

func TestPeekHeaderRejectsInvalidValues(t *testing.T) {
	_, _, err := dcl.PeekHeader(bytes.NewBuffer([]byte{0x02, 0x05}))
	require.ErrorIs(t, err, dcl.ErrHeader)

	_, _, err = dcl.PeekHeader(bytes.NewBuffer([]byte{0x01, 0x03}))
	require.ErrorIs(t, err, dcl.ErrDictionary)
}

func TestPeekHeaderReportsModeAndDictSize(t *testing.T) {
	mode, dictSize, err := dcl.PeekHeader(bytes.NewBuffer([]byte{0x01, 0x05, 0x00}))
	require.NoError(t, err)
	require.Equal(t, dcl.ASCII, mode)
	require.Equal(t, dcl.DictSize2048, dictSize)
}
