package codec

import (
	"bytes"
	"encoding/gob"
	"fmt"

	"github.com/colinsongf/featureflow"
)

// gobEnvelope boxes an arbitrary value so gob can decode it back into an
// interface{} without the caller having to know the concrete type up front;
// callers still need gob.Register for any non-builtin concrete type they
// store, exactly as the original's PickleEncoder/PickleDecoder relied on the
// value's module path being importable at unpickling time.
type gobEnvelope struct {
	V interface{}
}

// Gob is the Encoder/Decoder pair for an arbitrary Go value, the idiomatic
// substitute for the original's Pickle-based encoder/decoder pair (pickle
// has no Go equivalent; encoding/gob serves the same "serialize whatever
// value the extractor produced" role).
var Gob = struct {
	Encoder featureflow.Encoder
	Decode  featureflow.Decoder
}{
	Encoder: featureflow.Encoder{
		ContentType: "application/x-gob",
		NewNode: func(needs *featureflow.Node) (*featureflow.Node, error) {
			return featureflow.NewNode(featureflow.NodeConfig{
				Name:  "gob_encoder",
				Needs: []*featureflow.Node{needs},
				Process: func(data interface{}) featureflow.Chunks {
					var buf bytes.Buffer
					if err := gob.NewEncoder(&buf).Encode(gobEnvelope{V: data}); err != nil {
						return func() (interface{}, bool, error) {
							return nil, false, fmt.Errorf("codec: encoding gob: %w", err)
						}
					}
					return featureflow.SliceChunks(buf.Bytes())
				},
			})
		},
	},
	Decode: func(r featureflow.ReadableStream) (interface{}, error) {
		defer r.Close()
		var env gobEnvelope
		if err := gob.NewDecoder(r).Decode(&env); err != nil {
			return nil, fmt.Errorf("codec: decoding gob: %w", err)
		}
		return env.V, nil
	},
}
