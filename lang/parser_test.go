package lang

import "testing"

func mustLex(t *testing.T, src string) []Token {
	t.Helper()
	tokens, err := Lex(src)
	if err != nil {
		t.Fatalf("lex error: %v", err)
	}
	return tokens
}

func TestParse_LinearSequence(t *testing.T) {
	prog, err := Parse(mustLex(t, "src -> op -> sink"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	seq, ok := prog.Expression.(*Seq)
	if !ok {
		t.Fatalf("expected top-level *Seq, got %T", prog.Expression)
	}
	inner, ok := seq.Left.(*Seq)
	if !ok {
		t.Fatalf("expected left-associative *Seq, got %T", seq.Left)
	}
	if inner.Left.(*Call).Name != "src" || inner.Right.(*Call).Name != "op" {
		t.Errorf("unexpected left sequence: %+v", inner)
	}
	if seq.Right.(*Call).Name != "sink" {
		t.Errorf("unexpected right: %+v", seq.Right)
	}
}

func TestParse_ParallelBindsLooserThanSequence(t *testing.T) {
	prog, err := Parse(mustLex(t, "a -> b | c -> d"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	par, ok := prog.Expression.(*Par)
	if !ok {
		t.Fatalf("expected top-level *Par, got %T", prog.Expression)
	}
	if len(par.Branches) != 2 {
		t.Fatalf("expected 2 branches, got %d", len(par.Branches))
	}
	left, ok := par.Branches[0].(*Seq)
	if !ok {
		t.Fatalf("expected branch 0 to be *Seq (a -> b), got %T", par.Branches[0])
	}
	if left.Left.(*Call).Name != "a" || left.Right.(*Call).Name != "b" {
		t.Errorf("unexpected branch 0: %+v", left)
	}
	right, ok := par.Branches[1].(*Seq)
	if !ok {
		t.Fatalf("expected branch 1 to be *Seq (c -> d), got %T", par.Branches[1])
	}
	if right.Left.(*Call).Name != "c" || right.Right.(*Call).Name != "d" {
		t.Errorf("unexpected branch 1: %+v", right)
	}
}

func TestParse_TimedBindsTightest(t *testing.T) {
	prog, err := Parse(mustLex(t, "a @3s -> b"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	seq, ok := prog.Expression.(*Seq)
	if !ok {
		t.Fatalf("expected *Seq, got %T", prog.Expression)
	}
	timed, ok := seq.Left.(*Timed)
	if !ok {
		t.Fatalf("expected left to be *Timed, got %T", seq.Left)
	}
	if timed.Seconds != 3 {
		t.Errorf("expected 3 seconds, got %g", timed.Seconds)
	}
	if timed.Inner.(*Call).Name != "a" {
		t.Errorf("expected inner call 'a', got %+v", timed.Inner)
	}
}

func TestParse_Grouping(t *testing.T) {
	prog, err := Parse(mustLex(t, "(a | b) -> c"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	seq := prog.Expression.(*Seq)
	group, ok := seq.Left.(*Group)
	if !ok {
		t.Fatalf("expected *Group, got %T", seq.Left)
	}
	if _, ok := group.Inner.(*Par); !ok {
		t.Errorf("expected group to wrap a *Par, got %T", group.Inner)
	}
}

func TestParse_DefinitionThenExpression(t *testing.T) {
	prog, err := Parse(mustLex(t, "pipeline P = a -> b\nP -> c"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(prog.Definitions) != 1 || prog.Definitions[0].Name != "P" {
		t.Fatalf("expected one definition named P, got %+v", prog.Definitions)
	}
	if prog.Expression == nil {
		t.Fatal("expected a terminal expression")
	}
}

func TestParse_ProgramEndingInDefinitionHasNoExpression(t *testing.T) {
	prog, err := Parse(mustLex(t, "pipeline P = a -> b"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if prog.Expression != nil {
		t.Error("expected nil Expression when program ends with a definition")
	}
}

func TestParse_CallWithParams(t *testing.T) {
	prog, err := Parse(mustLex(t, `blur with (radius: 5, label: "x", enabled: true, tint: [1,2,3], mode: fast)`))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	call := prog.Expression.(*Call)
	if call.Name != "blur" {
		t.Fatalf("expected call 'blur', got %q", call.Name)
	}
	if call.Params["radius"].Kind != LiteralInt || call.Params["radius"].Int != 5 {
		t.Errorf("unexpected radius param: %+v", call.Params["radius"])
	}
	if call.Params["label"].Kind != LiteralString || call.Params["label"].Str != "x" {
		t.Errorf("unexpected label param: %+v", call.Params["label"])
	}
	if call.Params["enabled"].Kind != LiteralBool || !call.Params["enabled"].Bool {
		t.Errorf("unexpected enabled param: %+v", call.Params["enabled"])
	}
	if call.Params["tint"].Kind != LiteralTriple || len(call.Params["tint"].Triple) != 3 {
		t.Errorf("unexpected tint param: %+v", call.Params["tint"])
	}
	if call.Params["mode"].Kind != LiteralSymbol || call.Params["mode"].Symbol != "fast" {
		t.Errorf("unexpected mode param: %+v", call.Params["mode"])
	}
}

func TestParse_MissingClosingParen(t *testing.T) {
	_, err := Parse(mustLex(t, "(a -> b"))
	if err == nil {
		t.Fatal("expected ParseError for missing ')'")
	}
}

func TestParse_MissingEqualsAfterPipelineName(t *testing.T) {
	_, err := Parse(mustLex(t, "pipeline P a -> b"))
	if err == nil {
		t.Fatal("expected ParseError for missing '='")
	}
}

func TestParse_TimedMissingSecondsSuffix(t *testing.T) {
	_, err := Parse(mustLex(t, "a @3"))
	if err == nil {
		t.Fatal("expected ParseError for missing 's' suffix")
	}
}

func TestParse_TimedNonPositiveDuration(t *testing.T) {
	_, err := Parse(mustLex(t, "a @0s"))
	if err == nil {
		t.Fatal("expected ParseError for non-positive duration")
	}
}
