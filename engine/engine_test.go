package engine

import (
	"context"
	"errors"
	"fmt"
	"testing"

	rterr "github.com/wippyai/lang-runtime/errors"
)

func typeName(v any) string {
	return fmt.Sprintf("%T", v)
}

// testLang is a minimal guest language for exercising the core.
type testLang struct {
	name   string
	policy ContextPolicy
}

func (d *testLang) Name() string          { return d.name }
func (d *testLang) Policy() ContextPolicy { return d.policy }

func (d *testLang) NewImpl(_ context.Context, _ *Engine) (LanguageImpl, error) {
	return &testImpl{def: d}, nil
}

type testImpl struct {
	def      *testLang
	closed   bool
	contexts int
}

func (i *testImpl) NewContext(_ context.Context, _ *Context) (any, error) {
	i.contexts++
	return &testCtxImpl{impl: i, n: i.contexts}, nil
}

func (i *testImpl) Close(_ context.Context) error {
	i.closed = true
	return nil
}

type testCtxImpl struct {
	impl *testImpl
	n    int
}

func newTestEngine(t *testing.T, opts ...Option) *Engine {
	t.Helper()
	e := New(opts...)
	t.Cleanup(func() { _ = e.Close(context.Background()) })
	return e
}

func register(t *testing.T, e *Engine, name string, policy ContextPolicy) *Language {
	t.Helper()
	l, err := e.Register(&testLang{name: name, policy: policy})
	if err != nil {
		t.Fatalf("Register(%s) failed: %v", name, err)
	}
	return l
}

func newContext(t *testing.T, e *Engine) *Context {
	t.Helper()
	c, err := e.NewContext(context.Background())
	if err != nil {
		t.Fatalf("NewContext failed: %v", err)
	}
	return c
}

func enter(t *testing.T, c *Context) {
	t.Helper()
	if err := c.Enter(); err != nil {
		t.Fatalf("Enter failed: %v", err)
	}
}

// recoverFault runs fn and returns the recovered panic value, failing
// the test if fn does not panic.
func recoverFault(t *testing.T, fn func()) (fault any) {
	t.Helper()
	defer func() {
		fault = recover()
		if fault == nil {
			t.Fatal("expected a fatal fault, got none")
		}
	}()
	fn()
	return nil
}

func wantFaultKind(t *testing.T, fault any, kind rterr.Kind) *rterr.Error {
	t.Helper()
	err, ok := fault.(*rterr.Error)
	if !ok {
		t.Fatalf("fault = %v (%T); want *errors.Error", fault, fault)
	}
	if err.Kind != kind {
		t.Fatalf("fault kind = %s; want %s", err.Kind, kind)
	}
	return err
}

func TestEngine_RegisterRules(t *testing.T) {
	e := newTestEngine(t)
	register(t, e, "js", PolicyShared)

	if _, err := e.Register(&testLang{name: "js", policy: PolicyShared}); !errors.Is(err, &rterr.Error{Phase: rterr.PhaseRegister, Kind: rterr.KindDuplicate}) {
		t.Fatalf("duplicate registration = %v; want duplicate fault", err)
	}
	if _, err := e.Register(&testLang{policy: PolicyShared}); !errors.Is(err, &rterr.Error{Phase: rterr.PhaseRegister, Kind: rterr.KindInvalidInput}) {
		t.Fatalf("empty name = %v; want invalid input", err)
	}

	newContext(t, e)
	if _, err := e.Register(&testLang{name: "late", policy: PolicyShared}); !errors.Is(err, &rterr.Error{Phase: rterr.PhaseRegister, Kind: rterr.KindInvalidInput}) {
		t.Fatalf("late registration = %v; want invalid input", err)
	}

	if _, ok := e.Language("js"); !ok {
		t.Fatal("Language lookup failed")
	}
	if langs := e.Languages(); len(langs) != 1 || langs[0].Name() != "js" {
		t.Fatalf("Languages() = %v", langs)
	}
}

func TestEngine_BoundModeSingleContext(t *testing.T) {
	e := newTestEngine(t, WithSharingMode(ModeBound))
	register(t, e, "js", PolicyExclusive)

	newContext(t, e)
	if _, err := e.NewContext(context.Background()); !errors.Is(err, &rterr.Error{Phase: rterr.PhaseContext, Kind: rterr.KindContextLimit}) {
		t.Fatalf("second context = %v; want context limit", err)
	}
}

func TestEngine_SingleContextAssumption(t *testing.T) {
	e := newTestEngine(t)
	register(t, e, "js", PolicyShared)

	if !e.SingleContext().IsValid() {
		t.Fatal("single-context assumption should start valid")
	}
	newContext(t, e)
	if !e.SingleContext().IsValid() {
		t.Fatal("first context must not invalidate the assumption")
	}
	newContext(t, e)
	if e.SingleContext().IsValid() {
		t.Fatal("second context must invalidate the assumption")
	}
}

func TestEngine_InstanceOwnership(t *testing.T) {
	e := newTestEngine(t)
	shared := register(t, e, "shared", PolicyShared)
	excl := register(t, e, "excl", PolicyExclusive)

	c1 := newContext(t, e)
	c2 := newContext(t, e)

	s1, _ := c1.Instance(shared)
	s2, _ := c2.Instance(shared)
	if s1 != s2 {
		t.Fatal("PolicyShared must reuse one instance across contexts")
	}
	if !shared.SingleInstance().IsValid() {
		t.Fatal("shared language kept one instance; assumption must hold")
	}

	x1, _ := c1.Instance(excl)
	x2, _ := c2.Instance(excl)
	if x1 == x2 {
		t.Fatal("PolicyExclusive must create one instance per context")
	}
	if excl.SingleInstance().IsValid() {
		t.Fatal("second exclusive instance must invalidate the assumption")
	}
	if x1.Policy() != PolicyExclusive || s1.Policy() != PolicyShared {
		t.Fatal("instance policies must reflect their language")
	}
}

// gateLang blocks in NewImpl until released, holding a context
// creation open mid-bind.
type gateLang struct {
	name    string
	policy  ContextPolicy
	started chan struct{}
	release chan struct{}
}

func (d *gateLang) Name() string          { return d.name }
func (d *gateLang) Policy() ContextPolicy { return d.policy }

func (d *gateLang) NewImpl(_ context.Context, _ *Engine) (LanguageImpl, error) {
	d.started <- struct{}{}
	<-d.release
	return &testImpl{}, nil
}

func newGateLang(name string, policy ContextPolicy) *gateLang {
	return &gateLang{
		name:    name,
		policy:  policy,
		started: make(chan struct{}, 4),
		release: make(chan struct{}),
	}
}

// recordingLang notes the single-context assumption's validity at the
// moment each context binds it.
type recordingLang struct {
	name   string
	eng    *Engine
	atBind []bool
}

func (d *recordingLang) Name() string          { return d.name }
func (d *recordingLang) Policy() ContextPolicy { return PolicyShared }

func (d *recordingLang) NewImpl(_ context.Context, eng *Engine) (LanguageImpl, error) {
	d.eng = eng
	return &recordingImpl{def: d}, nil
}

type recordingImpl struct {
	def *recordingLang
}

func (i *recordingImpl) NewContext(_ context.Context, _ *Context) (any, error) {
	i.def.atBind = append(i.def.atBind, i.def.eng.SingleContext().IsValid())
	return &testCtxImpl{}, nil
}

func (i *recordingImpl) Close(_ context.Context) error { return nil }

// flakyLang fails its first n loads.
type flakyLang struct {
	name     string
	failures int
}

func (d *flakyLang) Name() string          { return d.name }
func (d *flakyLang) Policy() ContextPolicy { return PolicyExclusive }

func (d *flakyLang) NewImpl(_ context.Context, _ *Engine) (LanguageImpl, error) {
	if d.failures > 0 {
		d.failures--
		return nil, fmt.Errorf("load failed")
	}
	return &testImpl{}, nil
}

func TestEngine_BoundModeConcurrentCreation(t *testing.T) {
	e := newTestEngine(t, WithSharingMode(ModeBound))
	gate := newGateLang("js", PolicyShared)
	if _, err := e.Register(gate); err != nil {
		t.Fatalf("Register failed: %v", err)
	}

	results := make(chan error, 2)
	for i := 0; i < 2; i++ {
		go func() {
			_, err := e.NewContext(context.Background())
			results <- err
		}()
	}
	<-gate.started
	close(gate.release)

	created, limited := 0, 0
	for i := 0; i < 2; i++ {
		switch err := <-results; {
		case err == nil:
			created++
		case errors.Is(err, &rterr.Error{Phase: rterr.PhaseContext, Kind: rterr.KindContextLimit}):
			limited++
		default:
			t.Fatalf("unexpected error: %v", err)
		}
	}
	if created != 1 || limited != 1 {
		t.Fatalf("created = %d, limit faults = %d; a bound engine permits exactly one context", created, limited)
	}
}

func TestEngine_AssumptionDeadBeforeSecondContextBinds(t *testing.T) {
	e := newTestEngine(t)
	d := &recordingLang{name: "js"}
	if _, err := e.Register(d); err != nil {
		t.Fatalf("Register failed: %v", err)
	}

	newContext(t, e)
	newContext(t, e)

	if len(d.atBind) != 2 || !d.atBind[0] || d.atBind[1] {
		t.Fatalf("assumption validity at bind time = %v; want [true false]", d.atBind)
	}
}

func TestEngine_RegisterFrozenDuringContextCreation(t *testing.T) {
	e := newTestEngine(t)
	gate := newGateLang("js", PolicyShared)
	if _, err := e.Register(gate); err != nil {
		t.Fatalf("Register failed: %v", err)
	}

	done := make(chan error, 1)
	go func() {
		_, err := e.NewContext(context.Background())
		done <- err
	}()
	<-gate.started

	if _, err := e.Register(&testLang{name: "late", policy: PolicyShared}); !errors.Is(err, &rterr.Error{Phase: rterr.PhaseRegister, Kind: rterr.KindInvalidInput}) {
		t.Errorf("Register mid-creation = %v; want invalid input", err)
	}

	close(gate.release)
	if err := <-done; err != nil {
		t.Fatalf("NewContext failed: %v", err)
	}
}

func TestEngine_FailedCreationReleasesReservation(t *testing.T) {
	e := newTestEngine(t, WithSharingMode(ModeBound))
	if _, err := e.Register(&flakyLang{name: "js", failures: 1}); err != nil {
		t.Fatalf("Register failed: %v", err)
	}

	if _, err := e.NewContext(context.Background()); err == nil {
		t.Fatal("first creation must surface the load failure")
	}
	newContext(t, e)
	if _, err := e.NewContext(context.Background()); !errors.Is(err, &rterr.Error{Phase: rterr.PhaseContext, Kind: rterr.KindContextLimit}) {
		t.Fatalf("third creation = %v; want context limit", err)
	}
}

func TestEngine_CloseReleasesEverything(t *testing.T) {
	e := New()
	l := register(t, e, "js", PolicyShared)
	c := newContext(t, e)
	li, _ := c.Instance(l)
	impl := li.Impl().(*testImpl)

	if err := e.Close(context.Background()); err != nil {
		t.Fatalf("Close failed: %v", err)
	}
	if !impl.closed {
		t.Fatal("shared instance must be closed with the engine")
	}
	if _, err := e.NewContext(context.Background()); !errors.Is(err, &rterr.Error{Phase: rterr.PhaseContext, Kind: rterr.KindClosed}) {
		t.Fatalf("NewContext after Close = %v; want closed fault", err)
	}
	// Close is idempotent.
	if err := e.Close(context.Background()); err != nil {
		t.Fatalf("second Close failed: %v", err)
	}
}
