package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"strconv"
	"strings"

	"golang.org/x/term"

	"github.com/wippyai/lang-runtime/engine"
	"github.com/wippyai/lang-runtime/languages/wasmlang"
	"github.com/wippyai/lang-runtime/runtime"
)

func main() {
	var (
		wasmFile    = flag.String("wasm", "", "Path to wasm module file")
		langName    = flag.String("lang", "guest", "Language name to register the module under")
		funcName    = flag.String("func", "", "Function to call (optional)")
		argsStr     = flag.String("args", "", "Integer arguments (comma-separated)")
		configFile  = flag.String("config", "", "Path to yaml runtime config")
		sharing     = flag.String("sharing", "", "Sharing mode override: bound, guarded, shared")
		verify      = flag.Bool("verify", false, "Enable the diagnostic verifier")
		numContexts = flag.Int("contexts", 1, "Number of contexts to create")
		interactive = flag.Bool("i", false, "Interactive mode with TUI")
	)
	flag.Parse()

	if *wasmFile == "" {
		fmt.Fprintln(os.Stderr, "Usage: run -wasm <file.wasm> [-func name] [-args 1,2] [-contexts n]")
		fmt.Fprintln(os.Stderr, "       run -wasm <file.wasm> -i  (interactive mode)")
		os.Exit(1)
	}

	if *interactive {
		if !term.IsTerminal(int(os.Stdin.Fd())) {
			fmt.Fprintln(os.Stderr, "Error: interactive mode requires a terminal")
			os.Exit(1)
		}
		if err := runInteractive(*configFile, *wasmFile, *langName); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
		return
	}

	if err := run(*configFile, *wasmFile, *langName, *funcName, *argsStr, *sharing, *verify, *numContexts); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func loadConfig(path string) (*runtime.Config, error) {
	if path == "" {
		return runtime.DefaultConfig(), nil
	}
	return runtime.LoadConfig(path)
}

func parseArgs(argsStr string) ([]uint64, error) {
	if argsStr == "" {
		return nil, nil
	}
	parts := strings.Split(argsStr, ",")
	args := make([]uint64, len(parts))
	for i, p := range parts {
		v, err := strconv.ParseUint(strings.TrimSpace(p), 10, 64)
		if err != nil {
			return nil, fmt.Errorf("argument %d: %w", i, err)
		}
		args[i] = v
	}
	return args, nil
}

// refName strips the package qualifier from a reference's concrete
// type for display.
func refName(ref any) string {
	name := fmt.Sprintf("%T", ref)
	if i := strings.LastIndex(name, "."); i >= 0 {
		name = name[i+1:]
	}
	return name
}

func assumptionStr(a *engine.Assumption) string {
	if a.IsValid() {
		return "valid"
	}
	return "invalidated"
}

func run(configFile, wasmFile, langName, funcName, argsStr, sharing string, verify bool, numContexts int) error {
	ctx := context.Background()

	cfg, err := loadConfig(configFile)
	if err != nil {
		return err
	}
	if sharing != "" {
		cfg.Sharing = sharing
	}
	if verify {
		cfg.Verify = true
	}

	data, err := os.ReadFile(wasmFile)
	if err != nil {
		return fmt.Errorf("read file: %w", err)
	}
	args, err := parseArgs(argsStr)
	if err != nil {
		return err
	}

	rt, err := runtime.NewFromConfig(cfg)
	if err != nil {
		return err
	}
	defer rt.Close(ctx)

	l, err := rt.Register(wasmlang.New(langName, data))
	if err != nil {
		return fmt.Errorf("register language: %w", err)
	}

	// References are fixed here, before any context exists, the way
	// specialized call sites would fix them.
	ctxRef := l.ContextRef()
	langRef := l.LanguageRef()

	fmt.Printf("Engine: %s\n", rt.Engine().ID())
	fmt.Printf("Mode: %s  verify: %v\n", rt.Engine().Mode(), rt.Engine().Verified())
	fmt.Printf("Language: %s (%s)\n", l.Name(), l.Policy())
	fmt.Printf("Context reference: %s\n", refName(ctxRef))
	fmt.Printf("Language reference: %s\n", refName(langRef))

	contexts := make([]*engine.Context, 0, numContexts)
	for i := 0; i < numContexts; i++ {
		c, err := rt.NewContext(ctx)
		if err != nil {
			return fmt.Errorf("create context: %w", err)
		}
		contexts = append(contexts, c)
	}
	fmt.Printf("\nContexts: %d\n", len(contexts))
	fmt.Printf("Assumption %q: %s\n",
		rt.Engine().SingleContext().Name(), assumptionStr(rt.Engine().SingleContext()))
	fmt.Printf("Assumption %q: %s\n",
		l.SingleInstance().Name(), assumptionStr(l.SingleInstance()))

	if funcName == "" {
		return nil
	}

	for i, c := range contexts {
		err := c.Run(func() error {
			session := ctxRef.Resolve().(*wasmlang.Session)
			results, err := session.Call(ctx, funcName, args...)
			if err != nil {
				return err
			}
			fmt.Printf("\ncontext %d: %s(%v) = %v\n", i, funcName, args, results)
			return nil
		})
		if err != nil {
			return fmt.Errorf("call %s in context %d: %w", funcName, i, err)
		}
	}
	return nil
}
