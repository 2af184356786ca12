package featureflow

import (
	"strconv"
	"strings"
	"testing"

	"github.com/colinsongf/featureflow/codec"
)

// TestWordCount exercises the canonical content -> word_count pipeline
// through ModelSpec.Process and Document.Fetch end to end, grounded on
// test_integration.py:293-330,601-606's WordCount Aggregator wrapped in a
// JSONFeature, over the same sentence the original uses.
func TestWordCount(t *testing.T) {
	content := contentRootSpec()
	wordCount := wordCountSpec(content)
	spec, err := NewModelSpec(testPersistence(), content, wordCount)
	if err != nil {
		t.Fatal(err)
	}

	docId, err := spec.Process(map[string]interface{}{
		"content": []byte("mary had a little lamb little lamb little lamb"),
	})
	if err != nil {
		t.Fatal(err)
	}

	doc := NewDocument(spec, docId)
	v, err := doc.Fetch("word_count")
	if err != nil {
		t.Fatal(err)
	}
	if got := jsonNumber(t, v, "lamb"); got != 3 {
		t.Fatalf("expected count[\"lamb\"] == 3, got %d", got)
	}
	if got := jsonNumber(t, v, "a"); got != 1 {
		t.Fatalf("expected count[\"a\"] == 1, got %d", got)
	}
}

// TestIncrementalBuild verifies a dependent feature can be added and lazily
// computed from an already-stored dependency without re-running the whole
// model, mirroring the original's incremental-recomputation scenario.
func TestIncrementalBuild(t *testing.T) {
	content := contentRootSpec()
	p := testPersistence()
	baseSpec, err := NewModelSpec(p, content)
	if err != nil {
		t.Fatal(err)
	}
	docId, err := baseSpec.Process(map[string]interface{}{"content": []byte("four score and seven")})
	if err != nil {
		t.Fatal(err)
	}

	wordCount := wordCountSpec(content)
	fullSpec, err := NewModelSpec(p, content, wordCount)
	if err != nil {
		t.Fatal(err)
	}
	doc := NewDocument(fullSpec, docId)
	v, err := doc.Fetch("word_count")
	if err != nil {
		t.Fatal(err)
	}
	if jsonNumber(t, v, "seven") != 1 {
		t.Fatalf("expected count[\"seven\"] == 1, got %v", v)
	}
}

// eagerConcatenate joins its single upstream's chunks immediately rather
// than waiting for finalization, grounding on test_integration.py's
// EagerConcatenate test node.
func eagerConcatenateSpec(needs *FeatureSpec) *FeatureSpec {
	return &FeatureSpec{
		Key: "concatenated",
		NewExtractor: func(n []*Node) (*Node, error) {
			return NewNode(NodeConfig{
				Name:  "eager_concatenate",
				Needs: n,
				Process: func(data interface{}) Chunks {
					return SliceChunks(data.([]byte))
				},
			})
		},
		ExtractorType: "eager_concatenate",
		Needs:         []*FeatureSpec{needs},
		Store:         true,
		Encoder:       IdentityEncoder,
		Decoder:       GreedyDecoder,
	}
}

// TestMultiRootAggregation feeds two independent root features into a
// single downstream feature that concatenates both, verifying the graph
// correctly waits on and interleaves multiple roots (§2/§5 root-stepper
// semantics), grounded on test_integration.py's multi-root fixtures.
func TestMultiRootAggregation(t *testing.T) {
	left := &FeatureSpec{
		Key: "left",
		NewExtractor: func([]*Node) (*Node, error) {
			return rootPassthrough("left")
		},
		ExtractorType: "left_source",
		Store:         true,
		Encoder:       IdentityEncoder,
		Decoder:       GreedyDecoder,
	}
	right := &FeatureSpec{
		Key: "right",
		NewExtractor: func([]*Node) (*Node, error) {
			return rootPassthrough("right")
		},
		ExtractorType: "right_source",
		Store:         true,
		Encoder:       IdentityEncoder,
		Decoder:       GreedyDecoder,
	}

	joined := &FeatureSpec{
		Key: "joined",
		NewExtractor: func(needs []*Node) (*Node, error) {
			sums := map[int][]byte{}
			return NewNode(NodeConfig{
				Name:  "join",
				Needs: needs,
				Enqueue: func(data interface{}, from int) {
					sums[from] = append(sums[from], data.([]byte)...)
				},
				Dequeue: func() (interface{}, bool) {
					if len(sums) < 2 {
						return nil, false
					}
					return append(append([]byte{}, sums[0]...), sums[1]...), true
				},
				Process: func(data interface{}) Chunks {
					return SliceChunks(data.([]byte))
				},
			})
		},
		ExtractorType: "join",
		Needs:         []*FeatureSpec{left, right},
		Store:         true,
		Encoder:       IdentityEncoder,
		Decoder:       GreedyDecoder,
	}

	spec, err := NewModelSpec(testPersistence(), left, right, joined)
	if err != nil {
		t.Fatal(err)
	}
	docId, err := spec.Process(map[string]interface{}{
		"left":  []byte("foo"),
		"right": []byte("bar"),
	})
	if err != nil {
		t.Fatal(err)
	}

	doc := NewDocument(spec, docId)
	v, err := doc.Fetch("joined")
	if err != nil {
		t.Fatal(err)
	}
	AssertEquals(t, v, []byte("foobar"))
}

// TestSumUpParallelEdges reproduces test_integration.py:954-963's
// NumberStream/Add/SumUp scenario exactly: a digit stream 0..9 chunked in
// threes, split into two parallel Add(rhs=1) edges over the same source,
// joined by a SumUp node that zips and element-wise-sums the two edges.
func TestSumUpParallelEdges(t *testing.T) {
	numbers := &FeatureSpec{
		Key: "numbers",
		NewExtractor: func([]*Node) (*Node, error) {
			return NewNode(NodeConfig{
				Name: "number_stream",
				Process: func(interface{}) Chunks {
					digits := []int{0, 1, 2, 3, 4, 5, 6, 7, 8, 9}
					i := 0
					return func() (interface{}, bool, error) {
						if i >= len(digits) {
							return nil, false, nil
						}
						end := i + 3
						if end > len(digits) {
							end = len(digits)
						}
						chunk := append([]int{}, digits[i:end]...)
						i = end
						return chunk, true, nil
					}
				},
			})
		},
		ExtractorType: "number_stream",
	}

	addOne := func(chunk []int) []int {
		out := make([]int, len(chunk))
		for i, v := range chunk {
			out[i] = v + 1
		}
		return out
	}
	newAddFeature := func(key string) *FeatureSpec {
		return &FeatureSpec{
			Key: key,
			NewExtractor: func(needs []*Node) (*Node, error) {
				return NewNode(NodeConfig{
					Name:  key,
					Needs: needs,
					Process: func(data interface{}) Chunks {
						return SliceChunks(addOne(data.([]int)))
					},
				})
			},
			ExtractorType: "add",
			ExtractorArgs: "rhs=1",
			Needs:         []*FeatureSpec{numbers},
		}
	}
	add1 := newAddFeature("add1")
	add2 := newAddFeature("add2")

	sumUp := &FeatureSpec{
		Key: "sumup",
		NewExtractor: func(needs []*Node) (*Node, error) {
			pending := map[int][]int{}
			return NewNode(NodeConfig{
				Name:  "sum_up",
				Needs: needs,
				Enqueue: func(data interface{}, from int) {
					pending[from] = data.([]int)
				},
				Dequeue: func() (interface{}, bool) {
					if len(pending) < 2 {
						return nil, false
					}
					v := pending
					pending = map[int][]int{}
					return v, true
				},
				Process: func(data interface{}) Chunks {
					m := data.(map[int][]int)
					a, b := m[0], m[1]
					var sb strings.Builder
					for i := range a {
						sb.WriteString(strconv.Itoa(a[i] + b[i]))
					}
					return SliceChunks([]byte(sb.String()))
				},
			})
		},
		ExtractorType: "sum_up",
		Needs:         []*FeatureSpec{add1, add2},
		Store:         true,
		Encoder:       IdentityEncoder,
		Decoder:       GreedyDecoder,
	}

	spec, err := NewModelSpec(testPersistence(), numbers, add1, add2, sumUp)
	if err != nil {
		t.Fatal(err)
	}
	docId, err := spec.Process(map[string]interface{}{"numbers": nil})
	if err != nil {
		t.Fatal(err)
	}
	doc := NewDocument(spec, docId)
	v, err := doc.Fetch("sumup")
	if err != nil {
		t.Fatal(err)
	}
	AssertEquals(t, v, []byte("2468101214161820"))
}

// TestCompressionRoundTrip wires the codec package's flate-backed Encoder
// and Decoder into a live Feature, grounded on test_integration.py's
// CompressedFeature scenario.
func TestCompressionRoundTrip(t *testing.T) {
	content := contentRootSpec()
	compressed := &FeatureSpec{
		Key: "compressed",
		NewExtractor: func(n []*Node) (*Node, error) {
			return NewNode(NodeConfig{
				Name:  "passthrough",
				Needs: n,
				Process: func(data interface{}) Chunks {
					return SliceChunks(data.([]byte))
				},
			})
		},
		ExtractorType: "compressed_passthrough",
		Needs:         []*FeatureSpec{content},
		Store:         true,
		Encoder:       codec.Compressed.Encoder,
		Decoder:       codec.Compressed.Decode,
	}

	spec, err := NewModelSpec(testPersistence(), content, compressed)
	if err != nil {
		t.Fatal(err)
	}
	payload := []byte(strings.Repeat("compress me please ", 50))
	docId, err := spec.Process(map[string]interface{}{"content": payload})
	if err != nil {
		t.Fatal(err)
	}
	doc := NewDocument(spec, docId)
	v, err := doc.Fetch("compressed")
	if err != nil {
		t.Fatal(err)
	}
	AssertEquals(t, v, payload)
}

// TestVersionChangeInvalidatesCache verifies that bumping ExtractorArgs
// (and thus Version()) makes a new FeatureSpec see no cached entry even
// though an old-version entry occupies a different key in the same
// Database, grounded on test_integration.py's TimestampEmitter(version=...)
// cases.
func TestVersionChangeInvalidatesCache(t *testing.T) {
	p := testPersistence()
	content := contentRootSpec()

	v1 := &FeatureSpec{
		Key:           "stamp",
		ExtractorType: "stamp",
		ExtractorArgs: "v1",
		NewExtractor: func(n []*Node) (*Node, error) {
			return NewNode(NodeConfig{
				Name:  "stamp_v1",
				Needs: n,
				Process: func(data interface{}) Chunks {
					return SliceChunks([]byte("v1:" + string(data.([]byte))))
				},
			})
		},
		Needs:   []*FeatureSpec{content},
		Store:   true,
		Encoder: IdentityEncoder,
		Decoder: GreedyDecoder,
	}
	specV1, err := NewModelSpec(p, content, v1)
	if err != nil {
		t.Fatal(err)
	}
	docId, err := specV1.Process(map[string]interface{}{"content": []byte("x")})
	if err != nil {
		t.Fatal(err)
	}
	doc1 := NewDocument(specV1, docId)
	got1, err := doc1.Fetch("stamp")
	if err != nil {
		t.Fatal(err)
	}
	AssertEquals(t, got1, []byte("v1:x"))

	v2 := &FeatureSpec{
		Key:           "stamp",
		ExtractorType: "stamp",
		ExtractorArgs: "v2",
		NewExtractor: func(n []*Node) (*Node, error) {
			return NewNode(NodeConfig{
				Name:  "stamp_v2",
				Needs: n,
				Process: func(data interface{}) Chunks {
					return SliceChunks([]byte("v2:" + string(data.([]byte))))
				},
			})
		},
		Needs:   []*FeatureSpec{content},
		Store:   true,
		Encoder: IdentityEncoder,
		Decoder: GreedyDecoder,
	}
	if v2.Version() == v1.Version() {
		t.Fatal("expected version bump to change Version()")
	}

	got2, err := v2.Fetch(docId, p)
	if err != nil {
		t.Fatal(err)
	}
	AssertEquals(t, got2, []byte("v2:x"))
}
