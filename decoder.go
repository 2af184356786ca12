package featureflow

import "io"

// Decoder converts a readable stored byte stream back into a typed value.
// Concrete decoders (JSON, text, gob, compressed) live in the codec
// subpackage; RawDecoder and GreedyDecoder, being dependency-free, live here
// since they are needed directly by the core (DecoderNode, raw pass-through
// features).
type Decoder func(r ReadableStream) (interface{}, error)

// RawDecoder returns the stream itself, unread, corresponding to the
// original's "raw stream passthrough" decoder variant.
func RawDecoder(r ReadableStream) (interface{}, error) { return r, nil }

// GreedyDecoder reads the full stream into memory and returns it as a
// []byte, corresponding to the original's GreedyDecoder (decoder.py).
func GreedyDecoder(r ReadableStream) (interface{}, error) {
	defer r.Close()
	return io.ReadAll(r)
}

// newDecoderNode builds the DecoderNode of §4.F's partial-graph table: a
// root-like node (it has no Needs; its single input is supplied directly at
// Graph.Process time as the kwarg bound to its key) that decodes already
// stored bytes and re-emits the decoded value as if it had just been
// computed, so that downstream consumers of the cached feature see the same
// shape of chunk a fresh computation would have produced.
func newDecoderNode(decode Decoder) (*Node, error) {
	return NewNode(NodeConfig{
		Name: "decoder_node",
		Process: func(data interface{}) Chunks {
			r, ok := data.(ReadableStream)
			if !ok {
				return func() (interface{}, bool, error) {
					return nil, false, io.ErrUnexpectedEOF
				}
			}
			v, err := decode(r)
			if err != nil {
				return func() (interface{}, bool, error) { return nil, false, err }
			}
			return SliceChunks(v)
		},
	})
}
