package source

import (
	"io"
	"os"

	"github.com/colinsongf/featureflow"
)

// NewFileSource builds a root Node that streams path's contents in
// chunkSize pieces, opening the file fresh on every run (so the same
// ModelSpec can be Process'd more than once against an updated file).
func NewFileSource(path string, chunkSize int) (*featureflow.Node, error) {
	if chunkSize <= 0 {
		chunkSize = DefaultChunkSize
	}

	return featureflow.NewNode(featureflow.NodeConfig{
		Name: "file_source:" + path,
		Process: func(interface{}) featureflow.Chunks {
			f, err := os.Open(path)
			if err != nil {
				return errChunks(err)
			}
			buf := make([]byte, chunkSize)
			emitted := 0
			return func() (interface{}, bool, error) {
				n, err := f.Read(buf)
				if n > 0 {
					emitted += n
					out := make([]byte, n)
					copy(out, buf[:n])
					return out, true, nil
				}
				f.Close()
				if err != nil && err != io.EOF {
					return nil, false, err
				}
				if emitted == 0 {
					return nil, false, featureflow.ErrEmptyStream
				}
				return nil, false, nil
			}
		},
	})
}
