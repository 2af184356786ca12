package featureflow

import "fmt"

// Encoder describes how a Feature's computed chunks become the byte stream
// persisted to a Database: a content-type label plus a constructor for the
// Node that performs the streaming byte transform, mirroring component C.
// Concrete encoders beyond Identity (JSON, text, compressed) live in the
// codec subpackage, as they are the "out of scope" external collaborators
// of §1 — the core only needs the contract and the trivial identity case.
type Encoder struct {
	ContentType string
	NewNode     func(needs *Node) (*Node, error)
}

// asBytes coerces a chunk produced upstream into a byte slice, accepting the
// two shapes root/source nodes are expected to emit.
func asBytes(chunk interface{}) ([]byte, error) {
	switch v := chunk.(type) {
	case []byte:
		return v, nil
	case string:
		return []byte(v), nil
	default:
		return nil, fmt.Errorf("featureflow: encoder received non-byte chunk %T", chunk)
	}
}

// IdentityEncoder passes bytes through unchanged. It is the default encoder
// for a Feature that does not declare one, corresponding to the original's
// IdentityEncoder (encoder.py) with content type "application/octet-stream".
var IdentityEncoder = Encoder{
	ContentType: "application/octet-stream",
	NewNode: func(needs *Node) (*Node, error) {
		return NewNode(NodeConfig{
			Name:  "identity_encoder",
			Needs: []*Node{needs},
			Process: func(data interface{}) Chunks {
				b, err := asBytes(data)
				if err != nil {
					return func() (interface{}, bool, error) { return nil, false, err }
				}
				return SliceChunks(b)
			},
		})
	},
}
