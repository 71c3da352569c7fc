package engine

import (
	"context"
	"testing"

	rterr "github.com/wippyai/lang-runtime/errors"
)

func wantSharingFault(t *testing.T, fault any) *rterr.InvalidSharingError {
	t.Helper()
	err, ok := fault.(*rterr.InvalidSharingError)
	if !ok {
		t.Fatalf("fault = %v (%T); want *errors.InvalidSharingError", fault, fault)
	}
	return err
}

func TestVerify_CleanAccessPasses(t *testing.T) {
	e := newTestEngine(t, WithSharingMode(ModeBound), WithVerification())
	l := register(t, e, "js", PolicyExclusive)
	c := newContext(t, e)
	enter(t, c)
	defer c.Leave()

	cref := l.ContextRef()
	lref := l.LanguageRef()
	for i := 0; i < 10; i++ {
		if cref.Resolve() == nil || lref.Resolve() == nil {
			t.Fatal("verified resolve must still answer")
		}
	}
}

func TestVerify_DivergenceRaisesReport(t *testing.T) {
	e := newTestEngine(t, WithVerification())
	host := register(t, e, "host", PolicyShared)
	plugin := register(t, e, "plugin", PolicyExclusive)

	c1 := newContext(t, e)
	c2 := newContext(t, e)

	// An unrelated guard keeps the fast branch alive although a
	// second context exists: the single-instance speculation is now
	// false, which is exactly what the verifier must catch.
	ref := NewAssumeSingleContextRef(host, NewAssumption("stale"), nil, NewMultiContextRef(host))

	enter(t, c1)
	ref.Resolve()
	c1.Leave()

	enter(t, c2)
	defer c2.Leave()

	hostInst, _ := c2.Instance(host)
	pluginInst, _ := c2.Instance(plugin)
	PushFrame(hostInst, "main", Location{File: "app.src", Line: 1})
	PushFrame(pluginInst, "helper", Location{File: "lib.src", Line: 14})
	defer func() {
		PopFrame()
		PopFrame()
	}()

	fault := recoverFault(t, func() { ref.Resolve() })
	report := wantSharingFault(t, fault)

	if len(report.Frames) != 2 {
		t.Fatalf("report frames = %d; want one line per guest frame", len(report.Frames))
	}
	// Top to bottom: innermost frame first.
	if report.Frames[0].Unit != "helper" || report.Frames[0].Policy != "EXCLUSIVE" {
		t.Fatalf("frame 0 = %+v", report.Frames[0])
	}
	if report.Frames[1].Unit != "main" || report.Frames[1].Policy != "SHARED" {
		t.Fatalf("frame 1 = %+v", report.Frames[1])
	}
	if report.Frames[0].Boundary {
		t.Fatal("no boundary before the first frame")
	}
	if !report.Frames[1].Boundary {
		t.Fatal("EXCLUSIVE/SHARED transition must be flagged as a sharing boundary")
	}
	if report.Frames[0].File != "lib.src" || report.Frames[0].Line != 14 {
		t.Fatalf("frame 0 location = %s:%d", report.Frames[0].File, report.Frames[0].Line)
	}
}

func TestVerify_InstructionLocationPreferred(t *testing.T) {
	e := newTestEngine(t, WithVerification())
	l := register(t, e, "js", PolicyShared)
	c1 := newContext(t, e)
	c2 := newContext(t, e)

	ref := NewAssumeSingleContextRef(l, NewAssumption("stale"), nil, NewMultiContextRef(l))
	enter(t, c1)
	ref.Resolve()
	c1.Leave()

	enter(t, c2)
	defer c2.Leave()
	li, _ := c2.Instance(l)
	PushFrame(li, "loop", Location{File: "a.src", Line: 1})
	SetLocation(Location{File: "a.src", Line: 42})
	defer PopFrame()

	report := wantSharingFault(t, recoverFault(t, func() { ref.Resolve() }))
	if report.Frames[0].Line != 42 {
		t.Fatalf("line = %d; want the instruction location 42", report.Frames[0].Line)
	}
}

func TestVerify_ReportStopsAtEngineBoundary(t *testing.T) {
	e := newTestEngine(t, WithVerification())
	l := register(t, e, "js", PolicyShared)
	c1 := newContext(t, e)
	c2 := newContext(t, e)

	other := newTestEngine(t)
	otherLang := register(t, other, "js", PolicyShared)
	otherCtx := newContext(t, other)
	otherInst, _ := otherCtx.Instance(otherLang)

	ref := NewAssumeSingleContextRef(l, NewAssumption("stale"), nil, NewMultiContextRef(l))
	enter(t, c1)
	ref.Resolve()
	c1.Leave()

	enter(t, c2)
	defer c2.Leave()
	li, _ := c2.Instance(l)
	PushFrame(otherInst, "foreign", Location{File: "f.src", Line: 1})
	PushFrame(li, "mine", Location{File: "m.src", Line: 2})
	defer func() {
		PopFrame()
		PopFrame()
	}()

	report := wantSharingFault(t, recoverFault(t, func() { ref.Resolve() }))
	if len(report.Frames) != 1 || report.Frames[0].Unit != "mine" {
		t.Fatalf("report = %+v; must stop at the first foreign-engine frame", report.Frames)
	}
}

func TestVerify_ReleasedVerificationSlot(t *testing.T) {
	e := newTestEngine(t, WithVerification())
	l := register(t, e, "js", PolicyShared)
	c1 := newContext(t, e)

	ref := NewSingleLanguageRef(l, nil)
	enter(t, c1)
	ref.Resolve()
	c1.Leave()

	// The shared instance outlives c1, so the primary cache stays
	// live, but the recorded binding died with the context.
	if err := c1.Close(context.Background()); err != nil {
		t.Fatalf("Close failed: %v", err)
	}
	c2 := newContext(t, e)
	enter(t, c2)
	defer c2.Leave()

	wantSharingFault(t, recoverFault(t, func() { ref.Resolve() }))
}

func TestVerify_UnverifiedSlotIsVacuouslyValid(t *testing.T) {
	e := newTestEngine(t, WithVerification())
	l := register(t, e, "js", PolicyShared)
	c := newContext(t, e)
	li, _ := c.Instance(l)

	// Pre-seeding records nothing in the verification slot; the
	// pinned-check must pass vacuously rather than fault.
	ref := NewSingleLanguageRef(l, li)
	enter(t, c)
	defer c.Leave()
	if got := ref.Resolve(); got != li {
		t.Fatalf("resolve = %v; want %v", got, li)
	}
}

func TestVerify_CrossEngineOnFastPath(t *testing.T) {
	ea := newTestEngine(t, WithSharingMode(ModeBound), WithVerification())
	la := register(t, ea, "js", PolicyShared)
	ca := newContext(t, ea)

	ref := la.ContextRef()
	enter(t, ca)
	ref.Resolve()
	ca.Leave()

	eb := newTestEngine(t)
	register(t, eb, "js", PolicyShared)
	cb := newContext(t, eb)
	enter(t, cb)
	defer cb.Leave()

	fault := recoverFault(t, func() { ref.Resolve() })
	err := wantFaultKind(t, fault, rterr.KindCrossEngine)
	if err.Phase != rterr.PhaseVerify {
		t.Fatalf("phase = %s; want verify", err.Phase)
	}
}
