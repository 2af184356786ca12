package source

import (
	"fmt"
	"io"
	"net/http"

	"github.com/colinsongf/featureflow"
)

// NewHTTPSource builds a root Node that fetches url with a GET request and
// streams the response body, grounded on the net/http usage pattern the
// teacher itself relies on for serving records (frontend.go's WriteHTTP).
// The request is issued fresh on every Process run.
func NewHTTPSource(client *http.Client, url string, chunkSize int) (*featureflow.Node, error) {
	if chunkSize <= 0 {
		chunkSize = DefaultChunkSize
	}
	if client == nil {
		client = http.DefaultClient
	}

	return featureflow.NewNode(featureflow.NodeConfig{
		Name: "http_source:" + url,
		Process: func(interface{}) featureflow.Chunks {
			resp, err := client.Get(url)
			if err != nil {
				return errChunks(fmt.Errorf("source: fetching %q: %w", url, err))
			}
			if resp.StatusCode != http.StatusOK {
				resp.Body.Close()
				return errChunks(fmt.Errorf("source: fetching %q: unexpected status %s", url, resp.Status))
			}

			buf := make([]byte, chunkSize)
			emitted := 0
			return func() (interface{}, bool, error) {
				n, err := resp.Body.Read(buf)
				if n > 0 {
					emitted += n
					out := make([]byte, n)
					copy(out, buf[:n])
					return out, true, nil
				}
				resp.Body.Close()
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
