// Command xesh is a JavaScript shell for trying extensions. It preloads the
// echo extension, can load WebAssembly extensions, and either reads
// statements from stdin or opens an interactive explorer.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"strings"

	"golang.org/x/term"

	"github.com/crosswalk-project/crosswalk-sub003/examples/echo"
	"github.com/crosswalk-project/crosswalk-sub003/jscontext"
	"github.com/crosswalk-project/crosswalk-sub003/runtime"
	"github.com/crosswalk-project/crosswalk-sub003/wasmext"
)

// wasmSpec is one -wasm flag: name=path[,api.js].
type wasmSpec struct {
	name string
	path string
	api  string
}

func parseWasmSpec(v string) (wasmSpec, error) {
	name, rest, ok := strings.Cut(v, "=")
	if !ok || name == "" || rest == "" {
		return wasmSpec{}, fmt.Errorf("want name=path[,api.js], got %q", v)
	}
	path, api, _ := strings.Cut(rest, ",")
	if path == "" {
		return wasmSpec{}, fmt.Errorf("missing wasm path in %q", v)
	}
	return wasmSpec{name: name, path: path, api: api}, nil
}

type wasmFlags []wasmSpec

func (w *wasmFlags) String() string {
	parts := make([]string, len(*w))
	for i, s := range *w {
		parts[i] = s.name + "=" + s.path
	}
	return strings.Join(parts, " ")
}

func (w *wasmFlags) Set(v string) error {
	s, err := parseWasmSpec(v)
	if err != nil {
		return err
	}
	*w = append(*w, s)
	return nil
}

type options struct {
	inputFile   string
	interactive bool
	wasm        []wasmSpec
	memPages    uint32
	wasi        bool
}

func main() {
	var wasm wasmFlags
	var (
		inputFile   = flag.String("input-file", "", "Script to run before reading stdin")
		interactive = flag.Bool("i", false, "Interactive extension explorer")
		logMode     = flag.String("log", "", "Internal logging: dev, prod, or empty for none")
		memPages    = flag.Uint("wasm-memory-pages", 0, "Memory limit for wasm extensions in 64 KiB pages")
		wasi        = flag.Bool("wasi", false, "Provide WASI preview1 to wasm extensions")
	)
	flag.Var(&wasm, "wasm", "WebAssembly extension as name=path[,api.js]; repeatable")
	flag.Parse()

	logger, err := newLogger(*logMode)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	defer func() { _ = logger.Sync() }()
	installLogger(logger)

	err = run(options{
		inputFile:   *inputFile,
		interactive: *interactive,
		wasm:        wasm,
		memPages:    uint32(*memPages),
		wasi:        *wasi,
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run(opts options) error {
	ctx := context.Background()

	rt, closeExts, err := newRuntime(ctx, opts)
	if err != nil {
		return err
	}
	defer closeExts()
	defer rt.Close(ctx)

	sc, err := jscontext.New(ctx, rt, jscontext.Config{Console: consoleLogger(os.Stdout)})
	if err != nil {
		return fmt.Errorf("create script context: %w", err)
	}
	defer sc.Close()
	if err := sc.Load(); err != nil {
		fmt.Fprintf(os.Stderr, "warning: %v\n", err)
	}

	if opts.interactive {
		return runInteractive(rt, sc)
	}

	sh := newShell(sc, rt, os.Stdout, os.Stderr)
	sh.banner()
	if opts.inputFile != "" {
		data, err := os.ReadFile(opts.inputFile)
		if err != nil {
			return fmt.Errorf("read input file: %w", err)
		}
		sh.exec(string(data))
	}
	sh.prompt = term.IsTerminal(int(os.Stdin.Fd()))
	return sh.loop(os.Stdin)
}

// newRuntime registers the echo extension and every -wasm extension. The
// returned func closes the wasm guests.
func newRuntime(ctx context.Context, opts options) (*runtime.Runtime, func(), error) {
	rt := runtime.New()
	var guests []*wasmext.Extension
	closeAll := func() {
		for _, g := range guests {
			_ = g.Close(ctx)
		}
	}

	ext, err := echo.New()
	if err != nil {
		return nil, nil, fmt.Errorf("echo extension: %w", err)
	}
	if err := rt.Register(ext); err != nil {
		return nil, nil, err
	}

	for _, spec := range opts.wasm {
		g, err := loadWasm(ctx, spec, opts)
		if err != nil {
			closeAll()
			return nil, nil, err
		}
		guests = append(guests, g)
		if err := rt.Register(g); err != nil {
			closeAll()
			return nil, nil, err
		}
	}
	return rt, closeAll, nil
}

func loadWasm(ctx context.Context, spec wasmSpec, opts options) (*wasmext.Extension, error) {
	data, err := os.ReadFile(spec.path)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", spec.path, err)
	}
	var api []byte
	if spec.api != "" {
		if api, err = os.ReadFile(spec.api); err != nil {
			return nil, fmt.Errorf("read %s: %w", spec.api, err)
		}
	}
	cfg := wasmext.Config{
		Name:             spec.name,
		JSAPI:            string(api),
		MemoryLimitPages: opts.memPages,
	}
	if opts.wasi {
		cfg.WASI = true
		cfg.Stdout = os.Stdout
		cfg.Stderr = os.Stderr
	}
	g, err := wasmext.Load(ctx, data, cfg)
	if err != nil {
		return nil, fmt.Errorf("load %s: %w", spec.name, err)
	}
	return g, nil
}
