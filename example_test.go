package dcl_test

import (
	"bytes"
	"fmt"
	"io"
	"os"

	"github.com/anthropic-exercises/dcl"
)

func ExampleNewWriter() {
	var b bytes.Buffer
	w := dcl.NewWriter(&b, dcl.Binary, dcl.DictSize1024)
	if _, err := w.Write([]byte("AIAIAIAIAIAIA")); err != nil {
		panic(err)
	}
	if err := w.Close(); err != nil {
		panic(err)
	}
	fmt.Println(b.Bytes())
	// Output: [0 4 130 36 37 143 128 127]
}

func ExampleNewReader() {
	compressed := []byte{0, 4, 130, 36, 37, 143, 128, 127}
	r, err := dcl.NewReader(bytes.NewReader(compressed))
	if err != nil {
		panic(err)
	}
	defer r.Close()

	if _, err := io.Copy(os.Stdout, r); err != nil {
		panic(err)
	}
	// Output: AIAIAIAIAIAIA
}

func ExampleImplodeBytes() {
	compressed, err := dcl.ImplodeBytes([]byte("AIAIAIAIAIAIA"), dcl.Binary, dcl.DictSize1024)
	if err != nil {
		panic(err)
	}
	fmt.Println(compressed)
	// Output: [0 4 130 36 37 143 128 127]
}

func ExampleExplodeBytes() {
	decoded, err := dcl.ExplodeBytes([]byte{0, 4, 130, 36, 37, 143, 128, 127})
	if err != nil {
		panic(err)
	}
	fmt.Println(string(decoded))
	// Output: AIAIAIAIAIAIA
}
