// Package codec collects Encoder/Decoder pairs beyond the dependency-free
// Identity/Raw/Greedy ones kept in the core package, corresponding to the
// original's JSONEncoder/JSONDecoder, TextEncoder, PickleEncoder/Decoder and
// BZ2Encoder/Decoder (encoder.py, decoder.py).
package codec

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"

	"github.com/colinsongf/featureflow"
)

// JSON is the Encoder/Decoder pair for a feature whose computed value is any
// JSON-marshalable Go value, corresponding to the original's JSONFeature.
var JSON = struct {
	Encoder featureflow.Encoder
	Decode  featureflow.Decoder
}{
	Encoder: featureflow.Encoder{
		ContentType: "application/json",
		NewNode: func(needs *featureflow.Node) (*featureflow.Node, error) {
			return featureflow.NewNode(featureflow.NodeConfig{
				Name:  "json_encoder",
				Needs: []*featureflow.Node{needs},
				Process: func(data interface{}) featureflow.Chunks {
					b, err := json.Marshal(data)
					if err != nil {
						return func() (interface{}, bool, error) {
							return nil, false, fmt.Errorf("codec: encoding json: %w", err)
						}
					}
					return featureflow.SliceChunks(b)
				},
			})
		},
	},
	Decode: func(r featureflow.ReadableStream) (interface{}, error) {
		defer r.Close()
		var buf bytes.Buffer
		if _, err := io.Copy(&buf, r); err != nil {
			return nil, fmt.Errorf("codec: reading json: %w", err)
		}
		var v interface{}
		if err := json.Unmarshal(buf.Bytes(), &v); err != nil {
			return nil, fmt.Errorf("codec: decoding json: %w", err)
		}
		return v, nil
	},
}
