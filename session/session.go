// Package session implements the process-scoped binding environment shared
// by every Closure frame: the variable table, the stream triad, the
// default-lock reentry guard, lifecycle hooks, and the error-location
// enrichment pass (spec.md §3, §4.3, §7).
package session

import (
	"io"
	"os"
	"sort"
	"sync"

	"github.com/google/uuid"

	"github.com/ardnew/shellcore/value"
)

// Hook is called around every top-level Execute. Session.Execute is not
// defined in this package (the Closure evaluator owns execution); callers
// that drive an evaluator loop invoke these explicitly.
type Hook func(sess *Session, source string)

// AfterHook is called after an execute completes, with either the result
// value or the error that terminated it.
type AfterHook func(sess *Session, source string, result *value.Value, err error)

// Expr is the expression-evaluator collaborator contracted by spec.md §6:
// session.expr(text) -> Value, treated as a black box by this package.
type Expr func(text string) (*value.Value, error)

// Host resolves reflective method invocation against opaque values
// (spec.md §4.3, §6). It is optional; a Session with a nil Host fails
// method invocations with ErrNoHost.
type Host = value.Host

// core holds the state shared by every Session value forked from the same
// process-scoped environment: variables, the command registry, and the
// other session-wide bookkeeping that must stay consistent no matter which
// Session handle touches it. The stream triad is deliberately NOT part of
// core — see Session.
type core struct {
	mu        sync.RWMutex
	variables map[string]*value.Value
	registry  map[string]*value.Value

	closed bool

	defaultLock bool

	lastLocation string
	locationSet  bool

	exprFn Expr
	host   Host

	beforeHooks []Hook
	afterHooks  []AfterHook

	id string
}

// Session is the process-scoped binding environment.
//
// The stream triad (in/out/err) is held directly on Session, not in the
// shared core, and is never touched under core.mu: a pipeline stage that
// needs its own triad forks a Session with WithStreams, which shares the
// same *core (variables, registry, locks, hooks all stay consistent) but
// owns an independent triad nobody else can race on (spec.md §3 invariant
// 5, §5).
type Session struct {
	*core

	in  io.Reader
	out io.Writer
	err io.Writer
}

// New creates a Session with the given default stream triad. A nil stream
// falls back to the corresponding os.Std{in,out,err}.
func New(in io.Reader, out, errw io.Writer) *Session {
	if in == nil {
		in = os.Stdin
	}

	if out == nil {
		out = os.Stdout
	}

	if errw == nil {
		errw = os.Stderr
	}

	return &Session{
		core: &core{
			variables: make(map[string]*value.Value),
			registry:  make(map[string]*value.Value),
			id:        uuid.NewString(),
		},
		in:  in,
		out: out,
		err: errw,
	}
}

// WithStreams forks a Session that shares this Session's variables,
// registry, locks, and hooks (the same underlying *core) but owns its own
// stream triad, independent of this Session's and of every other fork's.
// Any field left nil in t is inherited from this Session. This is the
// mechanism by which a pipeline stage gets genuine, race-free ownership of
// its triad: each concurrent stage runs against its own forked Session
// instead of mutating a shared one (spec.md §3 invariant 5, §5).
func (s *Session) WithStreams(t Streams) *Session {
	fork := &Session{core: s.core, in: s.in, out: s.out, err: s.err}

	if t.In != nil {
		fork.in = t.In
	}

	if t.Out != nil {
		fork.out = t.Out
	}

	if t.Err != nil {
		fork.err = t.Err
	}

	return fork
}

// SetExpr installs the expression-evaluator collaborator.
func (s *Session) SetExpr(fn Expr) { s.exprFn = fn }

// Expr evaluates text using the installed expression evaluator. If none was
// installed, it returns ErrNoExprEvaluator.
func (s *Session) Expr(text string) (*value.Value, error) {
	if s.exprFn == nil {
		return nil, ErrNoExprEvaluator.With("text", text)
	}

	return s.exprFn(text)
}

// SetHost installs the reflective method-dispatch collaborator.
func (s *Session) SetHost(h Host) { s.host = h }

// Host returns the installed reflective method-dispatch collaborator, or
// nil if none was set.
func (s *Session) Host() Host { return s.host }

// BeforeExecute registers a hook run before each top-level execute.
func (s *Session) BeforeExecute(h Hook) { s.beforeHooks = append(s.beforeHooks, h) }

// AfterExecute registers a hook run after each top-level execute.
func (s *Session) AfterExecute(h AfterHook) { s.afterHooks = append(s.afterHooks, h) }

// RunBeforeHooks invokes every registered before-hook. Called by the
// Closure evaluator at the start of a top-level Execute.
func (s *Session) RunBeforeHooks(source string) {
	for _, h := range s.beforeHooks {
		h(s, source)
	}
}

// RunAfterHooks invokes every registered after-hook. Called by the Closure
// evaluator once a top-level Execute has produced a result or an error.
func (s *Session) RunAfterHooks(source string, result *value.Value, err error) {
	for _, h := range s.afterHooks {
		h(s, source, result, err)
	}
}

// ID returns this session's unique identity, exposed as the reserved
// variable ".session-id".
func (s *Session) ID() string { return s.id }

// Closed reports whether the session has been closed.
func (s *Session) Closed() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.closed
}

// Close marks the session closed. Idempotent.
func (s *Session) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.closed = true
}

// CheckClosed returns SessionClosed if the session has been closed, else
// nil. Every Execute entry point calls this before evaluating a token
// (spec.md invariant 4).
func (s *Session) CheckClosed() error {
	if s.Closed() {
		return ErrSessionClosed
	}

	return nil
}

// Get reads a session variable. The reserved read-only names ".variables"
// and ".commands" are synthesized rather than stored (spec.md §6).
func (s *Session) Get(name string) (*value.Value, bool) {
	switch name {
	case ".variables":
		return s.variableNames(), true
	case ".commands":
		return s.commandNames(), true
	case ".session-id":
		return value.NewText(s.id), true
	case ".location":
		s.mu.RLock()
		loc := s.lastLocation
		set := s.locationSet
		s.mu.RUnlock()

		if !set {
			return value.NewNull(), true
		}

		return value.NewText(loc), true
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	v, ok := s.variables[name]

	return v, ok
}

// Set assigns a session variable, serialised against concurrent access
// (spec.md §5 "Shared state").
func (s *Session) Set(name string, v *value.Value) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.variables[name] = v
}

// Remove deletes a session variable and returns its prior value, if any.
func (s *Session) Remove(name string) (*value.Value, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	v, ok := s.variables[name]
	delete(s.variables, name)

	return v, ok
}

func (s *Session) variableNames() *value.Value {
	s.mu.RLock()
	defer s.mu.RUnlock()

	names := make([]string, 0, len(s.variables))
	for k := range s.variables {
		names = append(names, k)
	}

	sort.Strings(names)

	items := make([]*value.Value, len(names))
	for i, n := range names {
		items[i] = value.NewText(n)
	}

	return value.NewList(items)
}

func (s *Session) commandNames() *value.Value {
	s.mu.RLock()
	defer s.mu.RUnlock()

	names := make([]string, 0, len(s.registry))
	for k := range s.registry {
		names = append(names, k)
	}

	sort.Strings(names)

	items := make([]*value.Value, len(names))
	for i, n := range names {
		items[i] = value.NewText(n)
	}

	return value.NewList(items)
}

// Register installs a callable into the command registry under name
// (spec.md §4.3 Dispatch consults this before falling back to default).
func (s *Session) Register(name string, callable *value.Value) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.registry[name] = callable
}

// Lookup resolves a name against the command registry only (used by
// Dispatch for the "*:name" and "default" ladder steps, distinct from Get's
// variable lookup).
func (s *Session) Lookup(name string) (*value.Value, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	v, ok := s.registry[name]

	return v, ok
}

// TryDefaultLock attempts to acquire the default-handler reentry guard. It
// returns a release function that must always be called, and false if the
// guard was already held (spec.md §4.3 step 3, §5 "Default-lock reentry").
func (s *Session) TryDefaultLock() (release func(), acquired bool) {
	s.mu.Lock()

	if s.defaultLock {
		s.mu.Unlock()

		return func() {}, false
	}

	s.defaultLock = true
	s.mu.Unlock()

	return func() {
		s.mu.Lock()
		s.defaultLock = false
		s.mu.Unlock()
	}, true
}

// Streams is a triad of byte streams.
type Streams struct {
	In  io.Reader
	Out io.Writer
	Err io.Writer
}

// Snapshot captures this Session's stream triad (spec.md §4.4 "I/O
// ownership"). Unlike the shared core state, the triad belongs to this
// Session value alone, so no lock is needed to read it.
func (s *Session) Snapshot() Streams {
	return Streams{In: s.in, Out: s.out, Err: s.err}
}

// Restore replaces this Session's stream triad, typically with a prior
// Snapshot.
func (s *Session) Restore(t Streams) {
	s.in, s.out, s.err = t.In, t.Out, t.Err
}

// SetStreams replaces this Session's stream triad with explicit values,
// leaving any nil field unchanged. It mutates only this Session value, not
// any other fork sharing the same core — callers that need an isolated
// triad for concurrent use should fork with WithStreams instead.
func (s *Session) SetStreams(t Streams) {
	if t.In != nil {
		s.in = t.In
	}

	if t.Out != nil {
		s.out = t.Out
	}

	if t.Err != nil {
		s.err = t.Err
	}
}

// In returns the current input stream.
func (s *Session) In() io.Reader { return s.in }

// Out returns the current output stream.
func (s *Session) Out() io.Writer { return s.out }

// Err returns the current error stream.
func (s *Session) Err() io.Writer { return s.err }

// AnnotateOnce records loc as the session's first-surfaced error location,
// if one has not already been recorded (spec.md §3 invariant 6, §7
// "Location enrichment"). Subsequent calls after the first are no-ops.
func (s *Session) AnnotateOnce(loc string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.locationSet {
		return
	}

	s.lastLocation = loc
	s.locationSet = true
}

// ResetLocation clears the recorded error location. Used between distinct
// top-level executes so a later error's first touch starts fresh.
func (s *Session) ResetLocation() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.lastLocation = ""
	s.locationSet = false
}

// Echo reports the session's "echo" variable state: disabled, enabled, or
// verbose (spec.md §4.1 xtrace control).
type Echo int

const (
	EchoOff Echo = iota
	EchoOn
	EchoVerbose
)

// EchoMode reads the "echo" session variable and classifies it.
func (s *Session) EchoMode() Echo {
	v, ok := s.Get("echo")
	if !ok || v.IsNull() {
		return EchoOff
	}

	if text, isText := v.Text(); isText && text == "verbose" {
		return EchoVerbose
	}

	if v.Truthy() {
		return EchoOn
	}

	return EchoOff
}
