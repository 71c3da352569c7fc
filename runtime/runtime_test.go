package runtime

import (
	"context"
	"testing"

	"github.com/wippyai/lang-runtime/engine"
	"github.com/wippyai/lang-runtime/languages/memlang"
)

func TestRuntime_EndToEnd(t *testing.T) {
	ctx := context.Background()
	rt := New()
	defer rt.Close(ctx)

	lang, err := rt.Register(memlang.New())
	if err != nil {
		t.Fatalf("Register failed: %v", err)
	}

	session, err := rt.NewContext(ctx)
	if err != nil {
		t.Fatalf("NewContext failed: %v", err)
	}
	defer session.Close(ctx)

	ref := lang.ContextRef()
	err = session.Run(func() error {
		store := ref.Resolve().(*memlang.Store)
		store.Set("greeting", "hello")
		if got, _ := store.Get("greeting"); got != "hello" {
			t.Fatalf("Get = %q", got)
		}
		return nil
	})
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
}

func TestRuntime_NewFromConfig(t *testing.T) {
	rt, err := NewFromConfig(&Config{Sharing: "bound", Verify: true})
	if err != nil {
		t.Fatalf("NewFromConfig failed: %v", err)
	}
	defer rt.Close(context.Background())

	if rt.Engine().Mode() != engine.ModeBound {
		t.Fatalf("mode = %s; want bound", rt.Engine().Mode())
	}
	if !rt.Engine().Verified() {
		t.Fatal("verification must be enabled")
	}
}
