// Package builtins registers a small set of Source/Processor/Sink
// functions that need no external I/O, so a compiled program can be run
// end to end without a host supplying its own domain functions first —
// useful for smoke-testing the cmd/vidpipe entry point and for the
// runtime's own examples.
package builtins

import (
	"context"
	"fmt"

	"github.com/vidpipe/vidpipe/frame"
	"github.com/vidpipe/vidpipe/logger"
	"github.com/vidpipe/vidpipe/registry"
)

// Register adds every builtin function to reg. It is safe to call before
// a host registers its own domain-specific functions; name collisions are
// resolved in registration order (the later Register call wins, per
// registry.Registry.Register's "adds or replaces" semantics).
func Register(reg *registry.Registry) error {
	entries := []registry.Entry{
		{Name: "ticker", Kind: registry.SourceKind, Transform: registry.SourceFunc{FuncName: "ticker", Fn: openTicker}},
		{Name: "identity", Kind: registry.ProcessorKind, Transform: registry.ProcessorFunc{FuncName: "identity", Fn: processIdentity}},
		{Name: "log", Kind: registry.SinkKind, Transform: registry.SinkFunc{FuncName: "log", Fn: consumeLog},
			ParamSchema: []registry.ParameterSchema{{Name: "level", Type: "string", Required: false}}},
	}
	for _, e := range entries {
		if err := reg.Register(e); err != nil {
			return fmt.Errorf("builtins: registering %q: %w", e.Name, err)
		}
	}
	return nil
}

// tickerIterator produces an unbounded sequence of empty frames, relying
// entirely on the worker's own source-interval pacing (runtime.Config's
// DefaultSourceIntervalSeconds) and on the caller's context for
// termination — it never reports end-of-stream on its own.
type tickerIterator struct {
	next uint64
}

func openTicker(context.Context, registry.Params) (registry.FrameIterator, error) {
	return &tickerIterator{}, nil
}

func (t *tickerIterator) Next(ctx context.Context) (frame.Frame, bool, error) {
	if err := ctx.Err(); err != nil {
		return frame.Frame{}, false, nil
	}
	t.next++
	return frame.New(t.next, nil), true, nil
}

func (t *tickerIterator) Close() error { return nil }

func processIdentity(_ context.Context, in frame.Frame, _ registry.Params) (frame.Frame, error) {
	return in, nil
}

func consumeLog(_ context.Context, in frame.Frame, params registry.Params) error {
	fields := map[string]interface{}{"seq": in.Seq}
	if level, ok := params["level"]; ok {
		fields["level"] = level
	}
	logger.Info("frame", fields)
	return nil
}
