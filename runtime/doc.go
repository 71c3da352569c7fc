// Package runtime provides the high-level API for embedding the
// polyglot runtime.
//
//	rt := runtime.New()
//	defer rt.Close(ctx)
//
//	lang, err := rt.Register(myLanguage)
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	session, err := rt.NewContext(ctx)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer session.Close(ctx)
//
//	ref := lang.ContextRef() // once, at specialization time
//	_ = session.Run(func() error {
//	    impl := ref.Resolve() // branch-cheap on every access
//	    ...
//	    return nil
//	})
//
// See the engine package for the reference-resolution model.
package runtime
