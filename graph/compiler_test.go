package graph

import (
	"context"
	"fmt"
	"testing"

	"github.com/vidpipe/vidpipe/frame"
	"github.com/vidpipe/vidpipe/lang"
	"github.com/vidpipe/vidpipe/registry"
)

func counterIDGen() func() string {
	n := 0
	return func() string {
		n++
		return fmt.Sprintf("id-%d", n)
	}
}

func testRegistry(t *testing.T) *registry.Registry {
	t.Helper()
	r := registry.New()
	must := func(err error) {
		t.Helper()
		if err != nil {
			t.Fatalf("registering fixture: %v", err)
		}
	}
	must(r.Register(registry.Entry{
		Name: "src", Kind: registry.SourceKind,
		Transform: registry.SourceFunc{FuncName: "src", Fn: func(context.Context, registry.Params) (registry.FrameIterator, error) {
			return nil, nil
		}},
	}))
	must(r.Register(registry.Entry{
		Name: "op", Kind: registry.ProcessorKind,
		Transform: registry.ProcessorFunc{FuncName: "op", Fn: func(_ context.Context, in frame.Frame, _ registry.Params) (frame.Frame, error) {
			return in, nil
		}},
	}))
	must(r.Register(registry.Entry{
		Name: "a", Kind: registry.ProcessorKind,
		Transform: registry.ProcessorFunc{FuncName: "a", Fn: func(_ context.Context, in frame.Frame, _ registry.Params) (frame.Frame, error) {
			return in, nil
		}},
	}))
	must(r.Register(registry.Entry{
		Name: "b", Kind: registry.ProcessorKind,
		Transform: registry.ProcessorFunc{FuncName: "b", Fn: func(_ context.Context, in frame.Frame, _ registry.Params) (frame.Frame, error) {
			return in, nil
		}},
	}))
	must(r.Register(registry.Entry{
		Name: "sink", Kind: registry.SinkKind,
		Transform: registry.SinkFunc{FuncName: "sink", Fn: func(context.Context, frame.Frame, registry.Params) error { return nil }},
	}))
	return r
}

func mustCompile(t *testing.T, src string, reg *registry.Registry) *Graph {
	t.Helper()
	tokens, err := lang.Lex(src)
	if err != nil {
		t.Fatalf("lex error: %v", err)
	}
	prog, err := lang.Parse(tokens)
	if err != nil {
		t.Fatalf("parse error: %v", err)
	}
	g, err := CompileWithIDGen(prog, reg, counterIDGen())
	if err != nil {
		t.Fatalf("compile error: %v", err)
	}
	return g
}

func TestCompile_LinearPipeline(t *testing.T) {
	g := mustCompile(t, "src -> op -> sink", testRegistry(t))

	if len(g.Nodes) != 3 {
		t.Fatalf("expected 3 nodes, got %d", len(g.Nodes))
	}
	if len(g.Edges) != 2 {
		t.Fatalf("expected 2 edges, got %d", len(g.Edges))
	}
	if len(g.EntrySources) != 1 || len(g.TerminalSinks) != 1 {
		t.Fatalf("expected 1 source and 1 sink, got %d/%d", len(g.EntrySources), len(g.TerminalSinks))
	}
	for _, e := range g.Edges {
		if e.Capacity != defaultEdgeCapacity {
			t.Errorf("expected default capacity %d, got %d", defaultEdgeCapacity, e.Capacity)
		}
	}
}

func TestCompile_AsyncEdgeCapacity(t *testing.T) {
	g := mustCompile(t, "src ~> sink", testRegistry(t))
	for _, e := range g.Edges {
		if e.Capacity != asyncEdgeCapacity {
			t.Errorf("expected async capacity %d, got %d", asyncEdgeCapacity, e.Capacity)
		}
	}
}

func TestCompile_BufferOverride(t *testing.T) {
	g := mustCompile(t, "src -> op with (buffer: 99) -> sink", testRegistry(t))
	found := false
	for _, e := range g.Edges {
		if e.Capacity == 99 {
			found = true
		}
	}
	if !found {
		t.Error("expected an edge with overridden capacity 99")
	}
}

func TestCompile_FanOutMerge(t *testing.T) {
	g := mustCompile(t, "src -> (a | b) -> sink", testRegistry(t))

	var sinkID ENodeID
	for id, n := range g.Nodes {
		if n.Kind == registry.SinkKind {
			sinkID = id
		}
	}
	if len(g.Nodes[sinkID].Inputs) != 2 {
		t.Fatalf("expected sink to merge 2 inputs, got %d", len(g.Nodes[sinkID].Inputs))
	}

	var srcID ENodeID
	for id, n := range g.Nodes {
		if n.Kind == registry.SourceKind {
			srcID = id
		}
	}
	if len(g.Nodes[srcID].Outputs) != 2 {
		t.Fatalf("expected source to fan out to 2 branches, got %d", len(g.Nodes[srcID].Outputs))
	}
}

func TestCompile_DanglingParallel(t *testing.T) {
	_, err := func() (*Graph, error) {
		tokens, err := lang.Lex("a | b")
		if err != nil {
			return nil, err
		}
		prog, err := lang.Parse(tokens)
		if err != nil {
			return nil, err
		}
		return CompileWithIDGen(prog, testRegistry(t), counterIDGen())
	}()
	if err == nil {
		t.Fatal("expected CompileError for dangling parallel")
	}
}

func TestCompile_UnknownName(t *testing.T) {
	tokens, _ := lang.Lex("nope -> sink")
	prog, _ := lang.Parse(tokens)
	_, err := CompileWithIDGen(prog, testRegistry(t), counterIDGen())
	if err == nil {
		t.Fatal("expected CompileError for unknown name")
	}
}

func TestCompile_CycleViaDefinitions(t *testing.T) {
	tokens, err := lang.Lex("pipeline P = Q\npipeline Q = P\nP -> sink")
	if err != nil {
		t.Fatalf("lex error: %v", err)
	}
	prog, err := lang.Parse(tokens)
	if err != nil {
		t.Fatalf("parse error: %v", err)
	}
	_, err = CompileWithIDGen(prog, testRegistry(t), counterIDGen())
	if err == nil {
		t.Fatal("expected CompileError for cyclic pipeline reference")
	}
}

func TestCompile_NoSource(t *testing.T) {
	tokens, _ := lang.Lex("op -> sink")
	prog, _ := lang.Parse(tokens)
	_, err := CompileWithIDGen(prog, testRegistry(t), counterIDGen())
	if err == nil {
		t.Fatal("expected CompileError for no source")
	}
}

func TestCompile_NoSink(t *testing.T) {
	tokens, _ := lang.Lex("src -> op")
	prog, _ := lang.Parse(tokens)
	_, err := CompileWithIDGen(prog, testRegistry(t), counterIDGen())
	if err == nil {
		t.Fatal("expected CompileError for no sink")
	}
}

func TestCompile_TimedSegment(t *testing.T) {
	g := mustCompile(t, "src @3s -> sink", testRegistry(t))
	if len(g.Segments) != 1 {
		t.Fatalf("expected 1 segment, got %d", len(g.Segments))
	}
	for _, seg := range g.Segments {
		if seg.DeadlineSeconds != 3 {
			t.Errorf("expected deadline 3, got %g", seg.DeadlineSeconds)
		}
		if len(seg.Members) != 1 {
			t.Errorf("expected 1 member (src only), got %d", len(seg.Members))
		}
	}
}

func TestCompile_NestedTimedInnermostWins(t *testing.T) {
	g := mustCompile(t, "pipeline P = src -> op\n(P @1s) @5s -> sink", testRegistry(t))
	if len(g.Segments) != 2 {
		t.Fatalf("expected 2 nested segments, got %d", len(g.Segments))
	}

	var innerCount, outerCount int
	for _, seg := range g.Segments {
		switch seg.DeadlineSeconds {
		case 1:
			innerCount = len(seg.Members)
		case 5:
			outerCount = len(seg.Members)
		}
	}
	if innerCount != 2 {
		t.Errorf("expected the 1s segment to own both src and op, got %d members", innerCount)
	}
	if outerCount != 0 {
		t.Errorf("expected the 5s segment to own no nodes (all already claimed by the inner segment), got %d", outerCount)
	}
}

func TestCompile_TimedSequenceOfClosedPipelines(t *testing.T) {
	g := mustCompile(t, "pipeline A = src -> sink\npipeline B = src -> sink\nA @1s -> B @1s", testRegistry(t))

	if len(g.Nodes) != 4 {
		t.Fatalf("expected 4 nodes (2 sources, 2 sinks), got %d", len(g.Nodes))
	}
	if len(g.Edges) != 2 {
		t.Fatalf("expected only the src->sink edge inside each of A and B (none connecting A to B), got %d edges", len(g.Edges))
	}
	if len(g.EntrySources) != 2 || len(g.TerminalSinks) != 2 {
		t.Fatalf("expected 2 sources and 2 sinks, got %d/%d", len(g.EntrySources), len(g.TerminalSinks))
	}
	if len(g.Segments) != 2 {
		t.Fatalf("expected 2 segments, got %d", len(g.Segments))
	}
	for _, n := range g.Nodes {
		if n.Kind == registry.SourceKind && len(n.Inputs) != 0 {
			t.Errorf("source %s has inputs, expected none", n.ID)
		}
		if n.Kind == registry.SinkKind && len(n.Outputs) != 0 {
			t.Errorf("sink %s has outputs, expected none", n.ID)
		}
	}

	var followers, followed int
	for id, seg := range g.Segments {
		if len(seg.Follows) > 0 {
			followers++
			if len(seg.Follows) != 1 {
				t.Errorf("expected segment %s to follow exactly 1 segment, got %d", id, len(seg.Follows))
			}
		}
	}
	for _, seg := range g.Segments {
		for dep := range seg.Follows {
			if _, ok := g.Segments[dep]; !ok {
				t.Errorf("segment follows unknown segment %s", dep)
			}
			followed++
		}
	}
	if followers != 1 {
		t.Fatalf("expected exactly 1 segment (B) to record a Follows dependency, got %d", followers)
	}
	if followed != 1 {
		t.Fatalf("expected exactly 1 follows-edge recorded, got %d", followed)
	}
}

func TestCompile_PipelineInlining(t *testing.T) {
	g := mustCompile(t, "pipeline P = src -> op\nP -> sink", testRegistry(t))
	if len(g.Nodes) != 3 {
		t.Fatalf("expected inlining to produce 3 nodes, got %d", len(g.Nodes))
	}
}

func TestCompile_DefinitionShadowing(t *testing.T) {
	g := mustCompile(t, "pipeline P = src -> op\npipeline P = src -> op -> sink\nP", testRegistry(t))
	if len(g.Nodes) != 3 {
		t.Fatalf("expected the later definition of P to win, got %d nodes", len(g.Nodes))
	}
}
