package codec

import (
	"bytes"
	"compress/flate"
	"encoding/binary"
	"fmt"
	"hash/adler32"
	"io"

	"github.com/colinsongf/featureflow"
)

// CompressionLevel matches the RecordWriter compressor's own constant.
const CompressionLevel = flate.DefaultCompression

var le = binary.LittleEndian

// frameHeader precedes the deflate stream: the uncompressed size and its
// Adler32 checksum, letting Decode verify integrity after inflating —
// adapted from frameDescriptor (deflate.go/writer.go), trimmed to a single
// frame since a feature's encoded value is one value, not a tree of
// concatenable record fragments.
type frameHeader struct {
	size     uint32
	checksum uint32
}

func (h frameHeader) marshal() []byte {
	b := make([]byte, 8)
	le.PutUint32(b[0:4], h.size)
	le.PutUint32(b[4:8], h.checksum)
	return b
}

func unmarshalFrameHeader(b []byte) (frameHeader, error) {
	if len(b) < 8 {
		return frameHeader{}, fmt.Errorf("codec: truncated compressed frame header")
	}
	return frameHeader{size: le.Uint32(b[0:4]), checksum: le.Uint32(b[4:8])}, nil
}

// Compressed is the Encoder/Decoder pair for byte/string chunks, streaming
// them through a flate.Writer the way RecordWriter.Write does, in place of
// the original's BZ2Encoder/BZ2Decoder: Go's compress/bzip2 is decode-only,
// so this reuses the existing complete deflate pipeline instead of
// vendoring a third-party bzip2 writer.
var Compressed = struct {
	Encoder featureflow.Encoder
	Decode  featureflow.Decoder
}{
	Encoder: featureflow.Encoder{
		ContentType: "application/x-flate",
		NewNode: func(needs *featureflow.Node) (*featureflow.Node, error) {
			var (
				buf    bytes.Buffer
				hasher = adler32.New()
				size   uint32
			)
			compressor, err := flate.NewWriter(&buf, CompressionLevel)
			if err != nil {
				return nil, fmt.Errorf("codec: building flate writer: %w", err)
			}

			return featureflow.NewNode(featureflow.NodeConfig{
				Name:  "compressed_encoder",
				Needs: []*featureflow.Node{needs},
				Process: func(data interface{}) featureflow.Chunks {
					var b []byte
					switch v := data.(type) {
					case []byte:
						b = v
					case string:
						b = []byte(v)
					default:
						return func() (interface{}, bool, error) {
							return nil, false, fmt.Errorf("codec: compressed encoder received non-byte chunk %T", data)
						}
					}
					if _, err := compressor.Write(b); err != nil {
						return func() (interface{}, bool, error) {
							return nil, false, fmt.Errorf("codec: compressing: %w", err)
						}
					}
					size += uint32(len(b))
					hasher.Write(b)
					return featureflow.NoChunks
				},
				LastChunk: func() featureflow.Chunks {
					if err := compressor.Close(); err != nil {
						return func() (interface{}, bool, error) {
							return nil, false, fmt.Errorf("codec: closing flate writer: %w", err)
						}
					}
					header := frameHeader{size: size, checksum: hasher.Sum32()}
					return featureflow.SliceChunks(append(header.marshal(), buf.Bytes()...))
				},
			})
		},
	},
	Decode: func(r featureflow.ReadableStream) (interface{}, error) {
		defer r.Close()
		all, err := io.ReadAll(r)
		if err != nil {
			return nil, fmt.Errorf("codec: reading compressed stream: %w", err)
		}
		header, err := unmarshalFrameHeader(all)
		if err != nil {
			return nil, err
		}
		fr := flate.NewReader(bytes.NewReader(all[8:]))
		defer fr.Close()
		out, err := io.ReadAll(fr)
		if err != nil {
			return nil, fmt.Errorf("codec: inflating: %w", err)
		}
		if uint32(len(out)) != header.size || adler32.Checksum(out) != header.checksum {
			return nil, fmt.Errorf("codec: compressed frame failed integrity check")
		}
		return out, nil
	},
}
