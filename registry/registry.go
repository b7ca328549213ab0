package registry

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/vidpipe/vidpipe/frame"
)

// Kind is a transform's arity class, fixed at registration and never
// re-derived at compile time.
type Kind int

const (
	SourceKind Kind = iota
	ProcessorKind
	SinkKind
)

func (k Kind) String() string {
	switch k {
	case SourceKind:
		return "source"
	case ProcessorKind:
		return "processor"
	case SinkKind:
		return "sink"
	default:
		return "unknown"
	}
}

// Params carries a Call's keyword parameters after literal resolution:
// plain Go values (int64, float64, string, bool, []float64, or a bare
// symbol string) forwarded to transforms opaquely, per spec.md §4.F.
type Params map[string]any

// FrameIterator is pull-based sequential access to a source's frame
// stream. It is structurally identical to kbukum-gokit's
// provider.Iterator[frame.Frame], so any existing provider.Stream adapter
// can back a Source transform without translation code.
type FrameIterator interface {
	// Next returns the next frame. Returns (zero, false, nil) when the
	// source has nothing further to emit on its own (most sources never
	// do this; they run until cancelled).
	Next(ctx context.Context) (frame.Frame, bool, error)
	Close() error
}

// Transform is the base interface every registry entry's behavior value
// satisfies; the concrete interaction shape (Source/Processor/Sink) is
// recovered by type assertion, mirroring provider.Provider's
// base-interface-plus-interaction-pattern composition in kbukum-gokit's
// provider package.
type Transform interface {
	Name() string
}

// Source produces frames; it has zero inputs (spec.md invariant 1).
type Source interface {
	Transform
	Open(ctx context.Context, params Params) (FrameIterator, error)
}

// Processor maps one input frame to one output frame (spec.md invariant 3).
type Processor interface {
	Transform
	Process(ctx context.Context, in frame.Frame, params Params) (frame.Frame, error)
}

// Sink consumes frames for their side effects and produces no output
// (spec.md invariant 2).
type Sink interface {
	Transform
	Consume(ctx context.Context, in frame.Frame, params Params) error
}

// SourceFunc adapts a plain function to the Source interface.
type SourceFunc struct {
	FuncName string
	Fn       func(ctx context.Context, params Params) (FrameIterator, error)
}

func (f SourceFunc) Name() string { return f.FuncName }
func (f SourceFunc) Open(ctx context.Context, params Params) (FrameIterator, error) {
	return f.Fn(ctx, params)
}

// ProcessorFunc adapts a plain function to the Processor interface.
type ProcessorFunc struct {
	FuncName string
	Fn       func(ctx context.Context, in frame.Frame, params Params) (frame.Frame, error)
}

func (f ProcessorFunc) Name() string { return f.FuncName }
func (f ProcessorFunc) Process(ctx context.Context, in frame.Frame, params Params) (frame.Frame, error) {
	return f.Fn(ctx, in, params)
}

// SinkFunc adapts a plain function to the Sink interface.
type SinkFunc struct {
	FuncName string
	Fn       func(ctx context.Context, in frame.Frame, params Params) error
}

func (f SinkFunc) Name() string { return f.FuncName }
func (f SinkFunc) Consume(ctx context.Context, in frame.Frame, params Params) error {
	return f.Fn(ctx, in, params)
}

// Entry is one registered function's full metadata: its kind, its
// behavior, and the default parameters merged under whatever a Call
// supplies.
type Entry struct {
	Name      string
	Kind      Kind
	Transform Transform
	Defaults  Params

	// ParamSchema optionally declares the named parameters a Call to this
	// entry may bind, so the compiler can reject a malformed binding at
	// compile time (see BindParams) instead of handing it to a worker.
	// Nil means "no declared shape" — any Params are accepted, as before.
	ParamSchema []ParameterSchema
}

// Registry is the process-wide Function Registry of spec.md §4.F:
// populated once at process start, read-only thereafter, so the runtime
// takes no lock on the read path once startup completes. The RWMutex
// exists for symmetry with concurrent registration during setup and is
// grounded on dag.Registry's same shape.
type Registry struct {
	mu      sync.RWMutex
	entries map[string]Entry
}

// New creates an empty Registry.
func New() *Registry {
	return &Registry{entries: make(map[string]Entry)}
}

// Register adds or replaces an entry. It fails if the entry's Kind does
// not match the interaction shape its Transform actually implements —
// catching registration mistakes before any program is compiled against
// the registry.
func (r *Registry) Register(entry Entry) error {
	switch entry.Kind {
	case SourceKind:
		if _, ok := entry.Transform.(Source); !ok {
			return fmt.Errorf("registry: %q declared as source but does not implement Source", entry.Name)
		}
	case ProcessorKind:
		if _, ok := entry.Transform.(Processor); !ok {
			return fmt.Errorf("registry: %q declared as processor but does not implement Processor", entry.Name)
		}
	case SinkKind:
		if _, ok := entry.Transform.(Sink); !ok {
			return fmt.Errorf("registry: %q declared as sink but does not implement Sink", entry.Name)
		}
	default:
		return fmt.Errorf("registry: %q has unknown kind %v", entry.Name, entry.Kind)
	}

	for _, s := range entry.ParamSchema {
		if err := ValidateSchema(s); err != nil {
			return fmt.Errorf("registry: %q has an invalid parameter schema: %w", entry.Name, err)
		}
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	r.entries[entry.Name] = entry
	return nil
}

// Get retrieves an entry by name.
func (r *Registry) Get(name string) (Entry, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	e, ok := r.entries[name]
	return e, ok
}

// List returns the sorted names of all registered entries.
func (r *Registry) List() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.entries))
	for name := range r.entries {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Merge returns a new Params combining an entry's declared defaults with
// a call's explicit parameters, the call's values taking precedence. Non
// fatal unknown parameter names are accepted as-is, per spec.md §4.C step 3.
func Merge(defaults Params, explicit Params) Params {
	merged := make(Params, len(defaults)+len(explicit))
	for k, v := range defaults {
		merged[k] = v
	}
	for k, v := range explicit {
		merged[k] = v
	}
	return merged
}
