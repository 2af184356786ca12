package featureflow

import "fmt"

// Chunks is a lazy, pull-based sequence of output data chunks produced by a
// Node's Process method, standing in for the original's generator-based
// `_process`. Each call advances the sequence by exactly one element: it
// returns the next chunk and ok=true, or ok=false once exhausted. An error
// aborts the run (see design note: "Generator-based process -> advance()").
type Chunks func() (chunk interface{}, ok bool, err error)

// NoChunks is an empty Chunks sequence, useful as the default LastChunk.
func NoChunks() (interface{}, bool, error) { return nil, false, nil }

// SliceChunks adapts an eagerly-available slice of chunks into a lazy
// Chunks sequence, for the common case of a Process/LastChunk implementation
// that already has all its output in hand.
func SliceChunks(items ...interface{}) Chunks {
	i := 0
	return func() (interface{}, bool, error) {
		if i >= len(items) {
			return nil, false, nil
		}
		v := items[i]
		i++
		return v, true, nil
	}
}

// NodeConfig declares the behavior of a single streaming computation node.
// It is the implementer-filled half of component D ("Node"): Process is
// required, everything else defaults to the base behavior described in the
// design (single-slot cache, identity first/last chunk, no-op finalize).
type NodeConfig struct {
	// Needs lists the node's upstream dependencies, in an order significant
	// for multi-input operators: each upstream is assigned a stable integer
	// handle equal to its index here, used in place of object identity in
	// Enqueue/Finalize (design note: stable handle, not identity-keyed cache).
	Needs []*Node

	// Process transforms one dequeued input datum into zero or more output
	// chunks. It is required: NewNode fails with ErrInvalidProcessMethod when
	// it is nil. It must return a non-nil Chunks value — a nil return aborts
	// the run with ErrInvalidProcessMethod, since a nil sequence cannot be a
	// lazy producer.
	Process func(data interface{}) Chunks

	// FirstChunk is applied to the first dequeued datum only (format
	// sniffing). Defaults to the identity function.
	FirstChunk func(data interface{}) interface{}

	// LastChunk produces a finite trailing sequence once the node is
	// finalized. Defaults to an empty sequence.
	LastChunk func() Chunks

	// Enqueue merges an upstream chunk into internal state. Defaults to
	// single-slot overwrite, discarding any previous unconsumed value.
	Enqueue func(data interface{}, from int)

	// Dequeue extracts the next ready datum, returning ok=false when none is
	// available yet (the NotEnoughData control signal). Defaults to taking
	// the single slot.
	Dequeue func() (data interface{}, ok bool)

	// Finalize is called once per upstream when that upstream signals
	// end-of-stream.
	Finalize func(from int)

	// Aggregator, when true, gates Dequeue (default or custom) behind the
	// node being fully finalized, forcing it to consume the entire upstream
	// before ever producing output. This is the Aggregator variant of 4.D.
	Aggregator bool

	// Open and Close give the node an explicit scoped lifetime, called once
	// per run by the Graph around the whole execution (design note: scoped
	// node lifetime replaces Python's context-manager `__enter__`/`__exit__`).
	Open  func() error
	Close func() error

	// Name labels the node for diagnostics (panics/errors/ tests). Optional.
	Name string
}

// Node is the runtime object wrapping a NodeConfig: it tracks upstream
// needs, downstream listeners, the single-slot pending-input cache, and the
// per-upstream enqueued/finalized bookkeeping described in §3 of the design.
type Node struct {
	cfg       NodeConfig
	needs     []*Node
	listeners []*Node
	needIndex map[*Node]int

	cache    interface{}
	cacheSet bool

	enqueuedDeps  map[int]bool
	finalizedDeps map[int]bool

	firstChunkDone bool
	opened         bool
}

// NewNode constructs a Node from cfg, registering it as a listener on each
// of its needs. It fails fast with ErrInvalidProcessMethod if cfg.Process is
// nil — the Go equivalent of the original's `inspect.isgeneratorfunction`
// check, since a nil Process plainly cannot be a lazy chunk producer.
func NewNode(cfg NodeConfig) (*Node, error) {
	if cfg.Process == nil {
		return nil, ErrInvalidProcessMethod
	}

	n := &Node{
		cfg:           cfg,
		needs:         cfg.Needs,
		needIndex:     make(map[*Node]int, len(cfg.Needs)),
		enqueuedDeps:  make(map[int]bool),
		finalizedDeps: make(map[int]bool),
	}
	for i, need := range cfg.Needs {
		need.listeners = append(need.listeners, n)
		n.needIndex[need] = i
	}
	return n, nil
}

func (n *Node) String() string {
	if n.cfg.Name != "" {
		return n.cfg.Name
	}
	return fmt.Sprintf("Node(%p)", n)
}

// IsRoot reports whether the node has no upstream dependencies.
func (n *Node) IsRoot() bool { return len(n.needs) == 0 }

// IsLeaf reports whether the node has no downstream listeners.
func (n *Node) IsLeaf() bool { return len(n.listeners) == 0 }

// Needs returns the node's upstream dependencies.
func (n *Node) Needs() []*Node { return n.needs }

// Listeners returns the node's downstream subscribers.
func (n *Node) Listeners() []*Node { return n.listeners }

// handleFor returns the stable integer handle n uses to refer to upstream
// `other` in Enqueue/Finalize calls.
func (n *Node) handleFor(other *Node) int {
	idx, ok := n.needIndex[other]
	if !ok {
		panic(fmt.Sprintf("featureflow: %s is not an upstream of %s", other, n))
	}
	return idx
}

// disconnect removes n from each of its upstreams' listener lists, used by
// dead-node pruning.
func (n *Node) disconnect() {
	for _, need := range n.needs {
		need.listeners = removeNode(need.listeners, n)
	}
}

func removeNode(list []*Node, target *Node) []*Node {
	out := list[:0]
	for _, n := range list {
		if n != target {
			out = append(out, n)
		}
	}
	return out
}

// open calls the node's Open hook exactly once, idempotently.
func (n *Node) open() error {
	if n.opened || n.cfg.Open == nil {
		n.opened = true
		return nil
	}
	n.opened = true
	return n.cfg.Open()
}

// close calls the node's Close hook, tolerating nodes never opened.
func (n *Node) close() error {
	if n.cfg.Close == nil {
		return nil
	}
	return n.cfg.Close()
}

func (n *Node) doEnqueue(data interface{}, from int) {
	if n.cfg.Enqueue != nil {
		n.cfg.Enqueue(data, from)
		return
	}
	n.cache = data
	n.cacheSet = true
}

func (n *Node) doDequeue() (interface{}, bool) {
	if n.cfg.Aggregator && !n.finalized() {
		return nil, false
	}
	if n.cfg.Dequeue != nil {
		return n.cfg.Dequeue()
	}
	if !n.cacheSet {
		return nil, false
	}
	v := n.cache
	n.cache = nil
	n.cacheSet = false
	return v, true
}

func (n *Node) doFirstChunk(data interface{}) interface{} {
	if n.cfg.FirstChunk == nil {
		return data
	}
	return n.cfg.FirstChunk(data)
}

func (n *Node) doLastChunk() Chunks {
	if n.cfg.LastChunk == nil {
		return NoChunks
	}
	return n.cfg.LastChunk()
}

func (n *Node) doFinalize(from int) {
	if n.cfg.Finalize != nil {
		n.cfg.Finalize(from)
	}
}

// finalized reports whether every upstream has both delivered at least one
// chunk and signalled end-of-stream, per the invariant in §3. A root with no
// upstreams is trivially finalized.
func (n *Node) finalized() bool {
	return len(n.finalizedDeps) >= len(n.needs) && len(n.enqueuedDeps) >= len(n.needs)
}

// deliverChunk is invoked when upstream `from` (a stable handle, or -1 for a
// root's own synthetic input) hands n a new chunk. It merges the chunk into
// n's state and attempts to drain a result, recursively cascading to n's own
// listeners depth-first — this recursion is exactly the "pop newest
// envelope" LIFO order the design calls for, using the Go call stack in
// place of an explicit envelope queue.
func (n *Node) deliverChunk(from int, data interface{}) error {
	if from >= 0 {
		n.enqueuedDeps[from] = true
	}
	n.doEnqueue(data, from)
	return n.drain()
}

// drain attempts one dequeue+process cycle, pushing every resulting chunk to
// n's listeners. It is a no-op (NotEnoughData) when nothing is ready yet.
func (n *Node) drain() error {
	data, ok := n.doDequeue()
	if !ok {
		return nil
	}
	if !n.firstChunkDone {
		data = n.doFirstChunk(data)
		n.firstChunkDone = true
	}
	chunks := n.cfg.Process(data)
	if chunks == nil {
		return ErrInvalidProcessMethod
	}
	return n.pushAll(chunks)
}

func (n *Node) pushAll(chunks Chunks) error {
	for {
		chunk, ok, err := chunks()
		if err != nil {
			return err
		}
		if !ok {
			return nil
		}
		if err := n.pushToListeners(chunk); err != nil {
			return err
		}
	}
}

func (n *Node) pushToListeners(chunk interface{}) error {
	for _, l := range n.listeners {
		if err := l.deliverChunk(l.handleFor(n), chunk); err != nil {
			return err
		}
	}
	return nil
}

// finish is invoked when upstream `from` signals end-of-stream (from=-1 when
// n is itself a root finishing). It marks the bookkeeping and, once n is
// fully finalized, gives an Aggregator one last chance to drain, then runs
// LastChunk and cascades a finish to n's own listeners — collapsing the
// original's separate `_finish`/`process(data=None)` dispatch into the single
// envelope kind the design's open question resolves on.
func (n *Node) finish(from int) error {
	if from >= 0 {
		n.finalizedDeps[from] = true
	}
	n.doFinalize(from)

	if !n.finalized() {
		return nil
	}

	if n.cfg.Aggregator {
		if err := n.drain(); err != nil {
			return err
		}
	}
	if err := n.pushAll(n.doLastChunk()); err != nil {
		return err
	}
	for _, l := range n.listeners {
		if err := l.finish(l.handleFor(n)); err != nil {
			return err
		}
	}
	return nil
}

// rootProducer drives a root node one output chunk at a time, letting the
// Graph interleave multiple roots round-robin (§4.E step 5) instead of
// draining one root fully before starting the next.
type rootProducer struct {
	node      *Node
	chunks    Chunks
	exhausted bool
}

func newRootProducer(n *Node, value interface{}) (*rootProducer, error) {
	n.doEnqueue(value, -1)
	data, ok := n.doDequeue()
	if !ok {
		return &rootProducer{node: n, exhausted: true}, nil
	}
	if !n.firstChunkDone {
		data = n.doFirstChunk(data)
		n.firstChunkDone = true
	}
	chunks := n.cfg.Process(data)
	if chunks == nil {
		return nil, ErrInvalidProcessMethod
	}
	return &rootProducer{node: n, chunks: chunks}, nil
}

// step advances the root by exactly one chunk. more=false once the root's
// own output and finish cascade are both complete.
func (rp *rootProducer) step() (more bool, err error) {
	if rp.exhausted {
		return false, nil
	}
	chunk, ok, err := rp.chunks()
	if err != nil {
		return false, err
	}
	if !ok {
		rp.exhausted = true
		return false, rp.node.finish(-1)
	}
	if err := rp.node.pushToListeners(chunk); err != nil {
		return false, err
	}
	return true, nil
}

// Aggregate builds a NodeConfig for an Aggregator node, 4.D's "Aggregator
// variant": it forces cfg.Aggregator true and leaves every other field as
// given. It does not supply an accumulating Enqueue; an Aggregator without
// its own Enqueue keeps only the most recent chunk (the default single-slot
// overwrite).
func Aggregate(cfg NodeConfig) NodeConfig {
	cfg.Aggregator = true
	return cfg
}
