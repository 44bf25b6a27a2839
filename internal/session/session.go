// Package session holds the ambient, cross-pass state a compilation run
// needs but no single analysis or transform owns outright: diagnostics
// collection and the driver-level options that select target environment,
// entrypoint, link search paths, import digests, and emission kinds.
package session

import (
	"fmt"
	"sync"

	"github.com/midenc-go/midenc/internal/hir/ir"
)

// Severity orders a Diagnostic's urgency for rendering and for the
// error/warning split in HasErrors.
type Severity uint8

const (
	SeverityWarning Severity = iota
	SeverityError
)

func (s Severity) String() string {
	switch s {
	case SeverityError:
		return "error"
	case SeverityWarning:
		return "warning"
	default:
		return "unknown"
	}
}

// Diagnostic is one user-visible compiler message: a primary span, a short
// message, and two optional elaborations (a secondary labeled span and a
// help note). Parse/validation/translation/structural/link/codegen/IO
// errors are all reported as Diagnostics rather than as bare Go errors once
// they cross into driver-visible territory; internal invariant violations
// panic instead, since those indicate a compiler bug rather than a
// user-facing condition.
type Diagnostic struct {
	Severity Severity
	Primary  ir.SourceSpan
	Message  string

	SecondarySpan  ir.SourceSpan
	SecondaryLabel string

	Help string
}

func (d Diagnostic) String() string {
	loc := "<unknown>"
	if d.Primary.IsValid() {
		loc = fmt.Sprintf("%s:%d", d.Primary.File, d.Primary.Offset)
	}
	s := fmt.Sprintf("%s: %s: %s", loc, d.Severity, d.Message)
	if d.SecondaryLabel != "" {
		s += fmt.Sprintf(" (%s)", d.SecondaryLabel)
	}
	if d.Help != "" {
		s += "\nhelp: " + d.Help
	}
	return s
}

// Emitter collects Diagnostics as passes run. Rendering is delegated to
// whatever collaborator owns the user-facing terminal/log surface; the
// compiler core only ever appends to an Emitter and later asks it whether
// compilation should be considered to have failed.
type Emitter interface {
	Emit(Diagnostic)
	HasErrors() bool
	Diagnostics() []Diagnostic
}

// bufferEmitter is the default Emitter: an in-memory, order-preserving,
// concurrency-safe buffer. Frontend translation can run one function at a
// time only (the spec commits to single-threaded SSA construction), but
// later pipeline stages may fan out, so the buffer guards its slice with a
// mutex rather than assuming single-threaded access.
type bufferEmitter struct {
	mu       sync.Mutex
	diags    []Diagnostic
	errCount int
}

// NewBufferEmitter creates the default in-memory Emitter.
func NewBufferEmitter() Emitter {
	return &bufferEmitter{}
}

func (e *bufferEmitter) Emit(d Diagnostic) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.diags = append(e.diags, d)
	if d.Severity == SeverityError {
		e.errCount++
	}
}

func (e *bufferEmitter) HasErrors() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.errCount > 0
}

func (e *bufferEmitter) Diagnostics() []Diagnostic {
	e.mu.Lock()
	defer e.mu.Unlock()
	out := make([]Diagnostic, len(e.diags))
	copy(out, e.diags)
	return out
}

// Target selects the Miden execution environment a compilation targets,
// which governs which intrinsic modules and ABI trampolines are linked in.
type Target uint8

const (
	TargetBase Target = iota
	TargetRollup
	TargetEmulator
)

func (t Target) String() string {
	switch t {
	case TargetRollup:
		return "rollup"
	case TargetEmulator:
		return "emu"
	default:
		return "base"
	}
}

// ParseTarget maps a CLI-facing target name to a Target. An empty name
// maps to TargetBase; an unknown name returns TargetBase with an error.
func ParseTarget(s string) (Target, error) {
	switch s {
	case "", "base":
		return TargetBase, nil
	case "rollup":
		return TargetRollup, nil
	case "emu", "emulator":
		return TargetEmulator, nil
	default:
		return TargetBase, fmt.Errorf("session: unknown target %q", s)
	}
}

// EmitKind selects one of the driver's output artifact kinds.
type EmitKind uint8

const (
	EmitHIR EmitKind = iota
	EmitMASM
	EmitPackage
)

func ParseEmitKind(s string) (EmitKind, error) {
	switch s {
	case "hir":
		return EmitHIR, nil
	case "masm", "masl":
		return EmitMASM, nil
	case "masp", "package":
		return EmitPackage, nil
	default:
		return 0, fmt.Errorf("session: unknown emission kind %q", s)
	}
}

// Options configures a Session. Values are built up with With* methods that
// each return a new, independent Options (the receiver is never mutated),
// mirroring the immutable-builder shape used throughout this codebase's
// ambient configuration surface; the zero value is not itself usable,
// construct one with NewOptions.
type Options struct {
	target        Target
	entrypoint    string
	searchPaths   []string
	importDigests map[string][32]byte
	emit          []EmitKind
	emitter       Emitter
}

// NewOptions returns the default Options: TargetBase, no entrypoint
// override, no search paths, no import digests, HIR emission, and a fresh
// buffer-backed Emitter.
func NewOptions() *Options {
	return &Options{
		target:        TargetBase,
		emit:          []EmitKind{EmitHIR},
		importDigests: map[string][32]byte{},
		emitter:       NewBufferEmitter(),
	}
}

func (o *Options) clone() *Options {
	searchPaths := make([]string, len(o.searchPaths))
	copy(searchPaths, o.searchPaths)
	digests := make(map[string][32]byte, len(o.importDigests))
	for k, v := range o.importDigests {
		digests[k] = v
	}
	emit := make([]EmitKind, len(o.emit))
	copy(emit, o.emit)
	return &Options{
		target:        o.target,
		entrypoint:    o.entrypoint,
		searchPaths:   searchPaths,
		importDigests: digests,
		emit:          emit,
		emitter:       o.emitter,
	}
}

func (o *Options) WithTarget(t Target) *Options {
	ret := o.clone()
	ret.target = t
	return ret
}

func (o *Options) WithEntrypoint(name string) *Options {
	ret := o.clone()
	ret.entrypoint = name
	return ret
}

func (o *Options) WithSearchPath(path string) *Options {
	ret := o.clone()
	ret.searchPaths = append(ret.searchPaths, path)
	return ret
}

// WithImportDigest records the precomputed MAST root digest a given
// interface identifier (e.g. "miden:add/add@1.0.0::add") resolves to, so
// the component-model frontend can emit a call through that digest without
// having the imported module's body available at compile time.
func (o *Options) WithImportDigest(interfaceID string, digest [32]byte) *Options {
	ret := o.clone()
	ret.importDigests[interfaceID] = digest
	return ret
}

// WithEmit replaces the set of requested emission kinds.
func (o *Options) WithEmit(kinds ...EmitKind) *Options {
	ret := o.clone()
	ret.emit = append([]EmitKind(nil), kinds...)
	return ret
}

func (o *Options) WithEmitter(e Emitter) *Options {
	ret := o.clone()
	ret.emitter = e
	return ret
}

func (o *Options) Target() Target             { return o.target }
func (o *Options) Entrypoint() string          { return o.entrypoint }
func (o *Options) SearchPaths() []string       { return append([]string(nil), o.searchPaths...) }
func (o *Options) Emit() []EmitKind            { return append([]EmitKind(nil), o.emit...) }
func (o *Options) ImportDigest(id string) ([32]byte, bool) {
	d, ok := o.importDigests[id]
	return d, ok
}

// Session is the validated, immutable configuration and diagnostics sink
// threaded through one compilation run.
type Session struct {
	opts        *Options
	Diagnostics Emitter
}

// New validates opts and returns a Session. opts may be nil, in which case
// NewOptions' defaults are used.
func New(opts *Options) (*Session, error) {
	if opts == nil {
		opts = NewOptions()
	}
	if len(opts.emit) == 0 {
		return nil, fmt.Errorf("session: at least one emission kind must be selected")
	}
	emitter := opts.emitter
	if emitter == nil {
		emitter = NewBufferEmitter()
	}
	return &Session{opts: opts, Diagnostics: emitter}, nil
}

func (s *Session) Options() *Options { return s.opts }

// Emit records a Diagnostic on the session's Emitter.
func (s *Session) Emit(d Diagnostic) { s.Diagnostics.Emit(d) }

// Failed reports whether any error-severity Diagnostic has been emitted.
func (s *Session) Failed() bool { return s.Diagnostics.HasErrors() }
