package featureflow

import "fmt"

// newDataWriter builds the terminal node of component H: on each incoming
// encoded byte chunk it lazily opens a write stream against db under the
// composed key and writes the chunk, closing the stream once finalized.
func newDataWriter(needs *Node, db Database, key string, contentType string) (*Node, error) {
	var w WritableStream

	return NewNode(NodeConfig{
		Name:  "data_writer:" + key,
		Needs: []*Node{needs},
		Process: func(data interface{}) Chunks {
			b, err := asBytes(data)
			if err != nil {
				return func() (interface{}, bool, error) { return nil, false, err }
			}
			if w == nil {
				var openErr error
				w, openErr = db.WriteStream(key, contentType)
				if openErr != nil {
					return func() (interface{}, bool, error) { return nil, false, openErr }
				}
			}
			if _, err := w.Write(b); err != nil {
				return func() (interface{}, bool, error) { return nil, false, err }
			}
			return NoChunks
		},
		LastChunk: func() Chunks {
			if w == nil {
				return NoChunks
			}
			err := w.Close()
			w = nil
			if err != nil {
				return func() (interface{}, bool, error) { return nil, false, err }
			}
			return NoChunks
		},
		Close: func() error {
			if w == nil {
				return nil
			}
			return w.Close()
		},
	})
}

// captureWriter is the in-memory sink used as the partial graph's root
// capture when the feature being fetched is unstored: an explicit in-memory
// writer whose data Fetch reads back after the run (Close only marks it
// closed), not the original's monkey-patched StringIO.close (design note: "no monkey-patching"; see also MapDatabase's
// mapWriteStream, which is the same technique applied to persistent
// storage).
type captureWriter struct {
	data   []byte
	closed bool
}

func (c *captureWriter) Write(p []byte) (int, error) {
	c.data = append(c.data, p...)
	return len(p), nil
}

func (c *captureWriter) Close() error {
	c.closed = true
	return nil
}

// newCaptureNode builds a leaf node that accumulates encoded bytes into an
// in-memory captureWriter instead of persisting them, used as the root of a
// partial graph for an unstored feature (§4.F partial table, "no / no, is
// root of the partial graph").
func newCaptureNode(needs *Node) (*Node, *captureWriter, error) {
	capture := &captureWriter{}

	n, err := NewNode(NodeConfig{
		Name:  "capture",
		Needs: []*Node{needs},
		Process: func(data interface{}) Chunks {
			b, err := asBytes(data)
			if err != nil {
				return func() (interface{}, bool, error) { return nil, false, err }
			}
			if _, err := capture.Write(b); err != nil {
				return func() (interface{}, bool, error) { return nil, false, err }
			}
			return NoChunks
		},
		Close: func() error {
			return capture.Close()
		},
	})
	if err != nil {
		return nil, nil, fmt.Errorf("featureflow: building capture node: %w", err)
	}
	return n, capture, nil
}
