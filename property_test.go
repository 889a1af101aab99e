package dcl_test

import (
	"bytes"
	"errors"
	"io/ioutil"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/anthropic-exercises/dcl"
)

var allDictSizes = []dcl.DictSize{dcl.DictSize1024, dcl.DictSize2048, dcl.DictSize4096}
var allModes = []dcl.Mode{dcl.Binary, dcl.ASCII}

func TestRoundTripAcrossModesAndDictSizes(t *testing.T) {
	rng := rand.New(rand.NewSource(1))
	payloads := [][]byte{
		[]byte(""),
		[]byte("A"),
		[]byte("Hello, World!"),
		bytes.Repeat([]byte{0}, 1<<16),
		randomPayload(rng, 5000, 250),
	}

	for _, mode := range allModes {
		for _, dictSize := range allDictSizes {
			for i, payload := range payloads {
				compressed, err := dcl.ImplodeBytes(payload, mode, dictSize)
				require.NoError(t, err, "mode=%v dict=%v case=%d", mode, dictSize, i)

				require.Equal(t, byte(mode), compressed[0], "header byte 0 mismatch")
				exp, _ := map[dcl.DictSize]byte{
					dcl.DictSize1024: 4, dcl.DictSize2048: 5, dcl.DictSize4096: 6,
				}[dictSize], true
				require.Equal(t, exp, compressed[1], "header byte 1 mismatch")

				decoded, err := dcl.ExplodeBytes(compressed)
				require.NoError(t, err, "mode=%v dict=%v case=%d", mode, dictSize, i)
				require.True(t, bytes.Equal(decoded, payload), "round trip mismatch mode=%v dict=%v case=%d", mode, dictSize, i)
			}
		}
	}
}

func TestEmptyInputRoundTrip(t *testing.T) {
	compressed, err := dcl.ImplodeBytes(nil, dcl.Binary, dcl.DictSize1024)
	require.NoError(t, err)
	require.GreaterOrEqual(t, len(compressed), 2)

	decoded, err := dcl.ExplodeBytes(compressed)
	require.NoError(t, err)
	require.Empty(t, decoded)
}

func TestLargeHighlyCompressibleInput(t *testing.T) {
	payload := bytes.Repeat([]byte{0}, 1<<20)
	compressed, err := dcl.ImplodeBytes(payload, dcl.Binary, dcl.DictSize4096)
	require.NoError(t, err)
	require.Less(t, len(compressed), len(payload)/100, "expected >100x compression on an all-zero payload")

	decoded, err := dcl.ExplodeBytes(compressed)
	require.NoError(t, err)
	require.True(t, bytes.Equal(decoded, payload))
}

func TestAsciiModeOnEnglishText(t *testing.T) {
	payload := []byte("Hello, World!")
	compressed, err := dcl.ImplodeBytes(payload, dcl.ASCII, dcl.DictSize2048)
	require.NoError(t, err)
	require.Equal(t, byte(1), compressed[0])
	require.Equal(t, byte(5), compressed[1])

	decoded, err := dcl.ExplodeBytes(compressed)
	require.NoError(t, err)
	require.Equal(t, payload, decoded)
}

func TestReaderWriterMatchConvenienceFunctions(t *testing.T) {
	payload := randomPayload(rand.New(rand.NewSource(42)), 4096, 60)

	var buf bytes.Buffer
	w := dcl.NewWriter(&buf, dcl.ASCII, dcl.DictSize4096)
	_, err := w.Write(payload)
	require.NoError(t, err)
	require.NoError(t, w.Close())

	viaBytes, err := dcl.ImplodeBytes(payload, dcl.ASCII, dcl.DictSize4096)
	require.NoError(t, err)
	require.True(t, bytes.Equal(buf.Bytes(), viaBytes), "Writer and ImplodeBytes must agree bit-for-bit")

	r, err := dcl.NewReader(bytes.NewReader(viaBytes))
	require.NoError(t, err)
	decoded, err := ioutil.ReadAll(r)
	require.NoError(t, err)
	require.True(t, bytes.Equal(decoded, payload))
}

func TestInvalidHeaderValues(t *testing.T) {
	_, err := dcl.ExplodeBytes([]byte{0x02, 0x05})
	require.True(t, errors.Is(err, dcl.ErrHeader))

	_, err = dcl.ExplodeBytes([]byte{0x01, 0x03})
	require.True(t, errors.Is(err, dcl.ErrDictionary))
}

func TestUnsupportedDictSizeRejected(t *testing.T) {
	_, err := dcl.ImplodeBytes([]byte("x"), dcl.Binary, dcl.DictSize(3000))
	require.True(t, errors.Is(err, dcl.ErrInvalidDictSize))
}

func TestUnsupportedModeRejected(t *testing.T) {
	_, err := dcl.ImplodeBytes([]byte("x"), dcl.Mode(9), dcl.DictSize1024)
	require.True(t, errors.Is(err, dcl.ErrInvalidMode))
}

func randomPayload(rng *rand.Rand, length, unique int) []byte {
	b := make([]byte, length)
	for i := range b {
		b[i] = byte(rng.Intn(unique))
	}
	return b
}
