package codec

import (
	"fmt"
	"io"

	"github.com/colinsongf/featureflow"
)

// Text is the Encoder/Decoder pair for a feature whose computed chunks are
// already strings or []byte, persisted as plain text and decoded back to a
// single string, corresponding to the original's TextEncoder paired with
// GreedyDecoder.
var Text = struct {
	Encoder featureflow.Encoder
	Decode  featureflow.Decoder
}{
	Encoder: featureflow.Encoder{
		ContentType: "text/plain; charset=utf-8",
		NewNode: func(needs *featureflow.Node) (*featureflow.Node, error) {
			return featureflow.NewNode(featureflow.NodeConfig{
				Name:  "text_encoder",
				Needs: []*featureflow.Node{needs},
				Process: func(data interface{}) featureflow.Chunks {
					switch v := data.(type) {
					case string:
						return featureflow.SliceChunks([]byte(v))
					case []byte:
						return featureflow.SliceChunks(v)
					default:
						return func() (interface{}, bool, error) {
							return nil, false, fmt.Errorf("codec: text encoder received non-text chunk %T", data)
						}
					}
				},
			})
		},
	},
	Decode: func(r featureflow.ReadableStream) (interface{}, error) {
		defer r.Close()
		b, err := io.ReadAll(r)
		if err != nil {
			return nil, fmt.Errorf("codec: reading text: %w", err)
		}
		return string(b), nil
	},
}
