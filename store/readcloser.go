package store

import "bytes"

// byteReadCloser adapts a bytes.Reader into a featureflow.ReadableStream,
// preserving Seek for backends that fetch the whole value into memory
// before handing it back (no underlying resource to close).
type byteReadCloser struct {
	*bytes.Reader
}

func (byteReadCloser) Close() error { return nil }
