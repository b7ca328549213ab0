package graph

import (
	"sort"

	"github.com/google/uuid"

	vperrors "github.com/vidpipe/vidpipe/errors"
	"github.com/vidpipe/vidpipe/lang"
	"github.com/vidpipe/vidpipe/registry"
)

// Edge capacity defaults (spec.md §4.C): "->" buffers 10 frames, "~>"
// buffers 20, either overridable by a `buffer` parameter on either
// endpoint.
const (
	defaultEdgeCapacity = 10
	asyncEdgeCapacity   = 20
)

// Compile lowers a parsed Program into an execution Graph, resolving named
// pipelines by inlining (with cycle detection) and registered functions by
// name via reg. Node, edge, and segment ids are minted with
// github.com/google/uuid.
func Compile(prog *lang.Program, reg *registry.Registry) (*Graph, error) {
	return CompileWithIDGen(prog, reg, uuid.NewString)
}

// CompileWithIDGen is Compile with an injectable id source, so tests can
// assert against deterministic ids.
func CompileWithIDGen(prog *lang.Program, reg *registry.Registry, idGen func() string) (*Graph, error) {
	c := &compiler{
		reg:       reg,
		defs:      make(map[string]lang.Node),
		expanding: make(map[string]bool),
		idGen:     idGen,
		g: &Graph{
			Nodes:    make(map[ENodeID]*ENode),
			Edges:    make(map[EEdgeID]*EEdge),
			Segments: make(map[SegmentID]*Segment),
		},
	}

	for _, def := range prog.Definitions {
		// Later definitions shadow earlier ones (spec.md §4.P); a plain
		// map assignment gives us that for free.
		c.defs[def.Name] = def.Body
	}

	if prog.Expression == nil {
		return nil, vperrors.NewCompileError(vperrors.CompileNoSource, "",
			"program has no terminal expression to run (it ends with a pipeline definition)")
	}

	if _, _, _, err := c.lower(prog.Expression, false); err != nil {
		return nil, err
	}

	if err := c.validate(); err != nil {
		return nil, err
	}

	return c.g, nil
}

type compiler struct {
	reg       *registry.Registry
	defs      map[string]lang.Node // pipeline name -> body
	expanding map[string]bool      // recursion-path stack, for cycle detection
	idGen     func() string
	g         *Graph
}

// lower recursively lowers an AST node, returning the node ids that should
// receive an incoming edge if this subexpression is used as the right side
// of a Seq ("entries"), the node ids that should send an outgoing edge if
// used as the left side of a Seq ("terminals"), and the full set of node
// ids produced anywhere within this subtree ("allIDs", used for segment
// assignment). hasConsumer is true exactly when this node is (possibly
// through transparent Group/Timed wrapping) the left side of a Seq — the
// only position in which a Par is meaningful (spec.md §4.C step 4, §9).
func (c *compiler) lower(node lang.Node, hasConsumer bool) (entries, terminals, allIDs []ENodeID, err error) {
	switch n := node.(type) {
	case *lang.Call:
		return c.lowerCall(n, hasConsumer)

	case *lang.Group:
		return c.lower(n.Inner, hasConsumer)

	case *lang.Timed:
		entries, terminals, allIDs, err = c.lower(n.Inner, hasConsumer)
		if err != nil {
			return nil, nil, nil, err
		}
		seg := &Segment{ID: SegmentID(c.idGen()), DeadlineSeconds: n.Seconds, Members: make(map[ENodeID]bool)}
		for _, id := range allIDs {
			node := c.g.Nodes[id]
			if node.Segment == "" {
				node.Segment = seg.ID
				seg.Members[id] = true
			}
		}
		c.g.Segments[seg.ID] = seg
		return entries, terminals, allIDs, nil

	case *lang.Par:
		if !hasConsumer {
			return nil, nil, nil, vperrors.NewCompileError(vperrors.CompileDanglingParallel, "",
				"a parallel expression must be followed by a consumer")
		}
		for _, branch := range n.Branches {
			be, bt, ba, err := c.lower(branch, false)
			if err != nil {
				return nil, nil, nil, err
			}
			entries = append(entries, be...)
			terminals = append(terminals, bt...)
			allIDs = append(allIDs, ba...)
		}
		return entries, terminals, allIDs, nil

	case *lang.Seq:
		le, lt, la, err := c.lower(n.Left, true)
		if err != nil {
			return nil, nil, nil, err
		}
		re, rt, ra, err := c.lower(n.Right, hasConsumer)
		if err != nil {
			return nil, nil, nil, err
		}
		for _, t := range lt {
			for _, e := range re {
				c.addEdge(t, e, n.Async)
			}
		}
		c.linkSequentialSegments(la, ra)
		allIDs = append(la, ra...)
		return le, rt, allIDs, nil

	default:
		return nil, nil, nil, vperrors.NewCompileError(vperrors.CompileKindMismatch, "",
			"unrecognized syntax-tree node")
	}
}

// lowerCall resolves a Call to either an inlined pipeline definition or a
// single registered-function node.
func (c *compiler) lowerCall(call *lang.Call, hasConsumer bool) (entries, terminals, allIDs []ENodeID, err error) {
	if body, isPipeline := c.defs[call.Name]; isPipeline {
		if c.expanding[call.Name] {
			return nil, nil, nil, vperrors.NewCompileError(vperrors.CompileCycle, call.Name,
				"cyclic pipeline reference")
		}
		c.expanding[call.Name] = true
		entries, terminals, allIDs, err = c.lower(body, hasConsumer)
		delete(c.expanding, call.Name)
		return entries, terminals, allIDs, err
	}

	entry, ok := c.reg.Get(call.Name)
	if !ok {
		return nil, nil, nil, vperrors.NewCompileError(vperrors.CompileUnknownName, call.Name,
			"no registered function or pipeline named \""+call.Name+"\"")
	}

	bound := registry.Merge(entry.Defaults, convertParams(call.Params))
	if err := registry.BindParams(entry.ParamSchema, bound); err != nil {
		return nil, nil, nil, vperrors.NewCompileError(vperrors.CompileInvalidParams, call.Name, err.Error())
	}

	id := ENodeID(c.idGen())
	node := &ENode{
		ID:     id,
		Name:   call.Name,
		Kind:   entry.Kind,
		Params: bound,
	}
	c.g.Nodes[id] = node

	// A Source never receives an edge (it has zero inputs); a Sink never
	// produces one (it has zero outputs). Reporting the node as its own
	// entry/terminal regardless of kind would let a Seq wire an edge into
	// invariant-violating territory — most visibly when both sides of a
	// Seq are already complete source-to-sink pipelines (`A @1s -> B @1s`
	// per spec.md's own S4 scenario): there entries and terminals on both
	// sides collapse to empty sets, the cross-product connects nothing,
	// and the two pipelines run as purely sequential Segments rather than
	// a data edge between a Sink and a Source.
	switch entry.Kind {
	case registry.SourceKind:
		return nil, []ENodeID{id}, []ENodeID{id}, nil
	case registry.SinkKind:
		return []ENodeID{id}, nil, []ENodeID{id}, nil
	default:
		return []ENodeID{id}, []ENodeID{id}, []ENodeID{id}, nil
	}
}

// linkSequentialSegments records, for every distinct segment spanning the
// left and right sides of a Seq, that the right-hand segment must wait for
// the left-hand segment to fully drain before its own sources may start.
// This is the mechanism behind spec.md §4.R's "the supervisor starts the
// next segment's sources only after the previous has fully drained" for the
// case where the two sides share no data edge at all — two complete
// sub-pipelines chained purely by `@` timing, e.g. `A @1s -> B @1s`. When
// left and right belong to the same segment (an untimed Seq inside one
// Timed group), or neither side has a segment, there is nothing to link.
func (c *compiler) linkSequentialSegments(left, right []ENodeID) {
	leftSegs := map[SegmentID]bool{}
	for _, id := range left {
		if s := c.g.Nodes[id].Segment; s != "" {
			leftSegs[s] = true
		}
	}
	rightSegs := map[SegmentID]bool{}
	for _, id := range right {
		if s := c.g.Nodes[id].Segment; s != "" {
			rightSegs[s] = true
		}
	}
	for rs := range rightSegs {
		if leftSegs[rs] {
			continue
		}
		seg := c.g.Segments[rs]
		for ls := range leftSegs {
			if seg.Follows == nil {
				seg.Follows = make(map[SegmentID]bool)
			}
			seg.Follows[ls] = true
		}
	}
}

func (c *compiler) addEdge(producer, consumer ENodeID, async bool) {
	capacity := defaultEdgeCapacity
	if async {
		capacity = asyncEdgeCapacity
	}
	if buf, ok := bufferOverride(c.g.Nodes[producer]); ok {
		capacity = buf
	}
	if buf, ok := bufferOverride(c.g.Nodes[consumer]); ok {
		capacity = buf
	}

	id := EEdgeID(c.idGen())
	edge := &EEdge{ID: id, Producer: producer, Consumer: consumer, Capacity: capacity}
	c.g.Edges[id] = edge
	c.g.Nodes[producer].Outputs = append(c.g.Nodes[producer].Outputs, id)
	c.g.Nodes[consumer].Inputs = append(c.g.Nodes[consumer].Inputs, id)
}

func bufferOverride(n *ENode) (int, bool) {
	if n == nil {
		return 0, false
	}
	raw, ok := n.Params["buffer"]
	if !ok {
		return 0, false
	}
	switch v := raw.(type) {
	case int64:
		if v > 0 {
			return int(v), true
		}
	case float64:
		if v >= 1 {
			return int(v), true
		}
	}
	return 0, false
}

func convertParams(params map[string]lang.Literal) registry.Params {
	if len(params) == 0 {
		return nil
	}
	out := make(registry.Params, len(params))
	for k, v := range params {
		out[k] = literalToAny(v)
	}
	return out
}

func literalToAny(lit lang.Literal) any {
	switch lit.Kind {
	case lang.LiteralInt:
		return lit.Int
	case lang.LiteralFloat:
		return lit.Float
	case lang.LiteralString:
		return lit.Str
	case lang.LiteralBool:
		return lit.Bool
	case lang.LiteralTriple:
		return lit.Triple
	case lang.LiteralSymbol:
		return lit.Symbol
	default:
		return nil
	}
}

// validate checks invariants 1-3 from spec.md §3 (4-8 are guaranteed by
// construction: capacity >= 1 by addEdge taking only positive defaults and
// bufferOverride accepting only values >= 1, cycles by the expanding-stack
// check above, merge by the Par-lowering rule, segment-innermost by Timed's
// unset-only assignment, unique ids by the id source), plus the
// no-source/no-sink rejection and a second-line cycle check over the
// finished edge set.
func (c *compiler) validate() error {
	var sources, sinks int

	for _, n := range c.g.Nodes {
		switch n.Kind {
		case registry.SourceKind:
			sources++
			if len(n.Inputs) != 0 {
				return vperrors.NewCompileError(vperrors.CompileKindMismatch, n.Name,
					"source \""+n.Name+"\" has inputs")
			}
			if len(n.Outputs) == 0 {
				return vperrors.NewCompileError(vperrors.CompileKindMismatch, n.Name,
					"source \""+n.Name+"\" has no outputs")
			}
		case registry.SinkKind:
			sinks++
			if len(n.Outputs) != 0 {
				return vperrors.NewCompileError(vperrors.CompileKindMismatch, n.Name,
					"sink \""+n.Name+"\" has outputs")
			}
			if len(n.Inputs) == 0 {
				return vperrors.NewCompileError(vperrors.CompileKindMismatch, n.Name,
					"sink \""+n.Name+"\" has no inputs")
			}
		case registry.ProcessorKind:
			if len(n.Inputs) == 0 || len(n.Outputs) == 0 {
				return vperrors.NewCompileError(vperrors.CompileKindMismatch, n.Name,
					"processor \""+n.Name+"\" must have at least one input and one output")
			}
		}
	}

	if sources == 0 {
		return vperrors.NewCompileError(vperrors.CompileNoSource, "", "graph has no source node")
	}
	if sinks == 0 {
		return vperrors.NewCompileError(vperrors.CompileNoSink, "", "graph has no sink node")
	}

	if err := c.checkAcyclic(); err != nil {
		return err
	}

	c.populateEntryAndTerminalSets()
	return nil
}

// checkAcyclic is a second-line defense beyond the inlining-time cycle
// check: it runs Kahn's algorithm over the finished edge set and rejects
// any graph that does not admit a full topological ordering. Grounded on
// dag.BuildLevels.
func (c *compiler) checkAcyclic() error {
	inDegree := make(map[ENodeID]int, len(c.g.Nodes))
	dependents := make(map[ENodeID][]ENodeID)
	for id := range c.g.Nodes {
		inDegree[id] = 0
	}
	for _, e := range c.g.Edges {
		inDegree[e.Consumer]++
		dependents[e.Producer] = append(dependents[e.Producer], e.Consumer)
	}

	var queue []ENodeID
	for id, deg := range inDegree {
		if deg == 0 {
			queue = append(queue, id)
		}
	}

	visited := 0
	for len(queue) > 0 {
		visited += len(queue)
		var next []ENodeID
		for _, id := range queue {
			for _, dep := range dependents[id] {
				inDegree[dep]--
				if inDegree[dep] == 0 {
					next = append(next, dep)
				}
			}
		}
		queue = next
	}

	if visited != len(c.g.Nodes) {
		return vperrors.NewCompileError(vperrors.CompileCycle, "", "graph contains a cycle")
	}
	return nil
}

func (c *compiler) populateEntryAndTerminalSets() {
	for id, n := range c.g.Nodes {
		if n.Kind == registry.SourceKind {
			c.g.EntrySources = append(c.g.EntrySources, id)
		}
		if n.Kind == registry.SinkKind {
			c.g.TerminalSinks = append(c.g.TerminalSinks, id)
		}
	}
	sort.Slice(c.g.EntrySources, func(i, j int) bool { return c.g.EntrySources[i] < c.g.EntrySources[j] })
	sort.Slice(c.g.TerminalSinks, func(i, j int) bool { return c.g.TerminalSinks[i] < c.g.TerminalSinks[j] })
}
