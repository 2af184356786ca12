// Package source collects root Node constructors implementing the
// source-adapter contract of the external interfaces section: emit the
// configured input as a sequence of byte chunks, failing ErrEmptyStream on
// zero-length input, corresponding to the original's TextStream/chunked()
// chunking helper (test_integration.py, util.chunked).
package source

import "github.com/colinsongf/featureflow"

// DefaultChunkSize is used by every source in this package when the caller
// passes chunkSize <= 0.
const DefaultChunkSize = 4096

func errChunks(err error) featureflow.Chunks {
	return func() (interface{}, bool, error) { return nil, false, err }
}

// NewByteSource builds a root Node that re-chunks an already in-memory byte
// slice. The kwarg bound to this node's key at Graph.Process time is
// ignored; data is fixed at construction.
func NewByteSource(data []byte, chunkSize int) (*featureflow.Node, error) {
	if chunkSize <= 0 {
		chunkSize = DefaultChunkSize
	}

	return featureflow.NewNode(featureflow.NodeConfig{
		Name: "byte_source",
		Process: func(interface{}) featureflow.Chunks {
			if len(data) == 0 {
				return errChunks(featureflow.ErrEmptyStream)
			}
			i := 0
			return func() (interface{}, bool, error) {
				if i >= len(data) {
					return nil, false, nil
				}
				end := i + chunkSize
				if end > len(data) {
					end = len(data)
				}
				chunk := data[i:end]
				i = end
				return chunk, true, nil
			}
		},
	})
}
