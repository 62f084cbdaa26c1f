package main

import (
	"context"
	"flag"
	"fmt"
	"os"

	"go.uber.org/zap"
	"golang.org/x/term"

	"github.com/wippyai/shapes/guest"
	"github.com/wippyai/shapes/wip"
)

func main() {
	var (
		wasmFile    = flag.String("wasm", "", "Path to core wasm module")
		witFile     = flag.String("wit", "", "Path to WIT JSON (wasm-tools component wit --json)")
		typeName    = flag.String("type", "", "WIT type of the value")
		addr        = flag.String("addr", "", "Guest address of the value (decimal or 0x hex)")
		call        = flag.String("call", "", "Nullary export returning the value's address")
		fields      = flag.Bool("fields", false, "Print serialized fields instead of the value")
		interactive = flag.Bool("i", false, "Interactive mode with TUI")
		verbose     = flag.Bool("v", false, "Verbose logging")
	)
	flag.Parse()

	if *wasmFile == "" || *witFile == "" || *typeName == "" {
		fmt.Fprintln(os.Stderr, "Usage: shapeview -wasm <module.wasm> -wit <types.json> -type <name> [-addr N | -call export]")
		fmt.Fprintln(os.Stderr, "       shapeview -wasm <module.wasm> -wit <types.json> -type <name> -i  (interactive mode)")
		os.Exit(1)
	}

	log := zap.NewNop()
	if *verbose {
		var err error
		log, err = zap.NewDevelopment()
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
		defer func() { _ = log.Sync() }()
	}
	guest.SetLogger(log)
	wip.SetLogger(log)

	cfg := sessionConfig{
		wasmFile: *wasmFile,
		witFile:  *witFile,
		typeName: *typeName,
		log:      log,
	}

	if *interactive {
		if err := runInteractive(cfg); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
		return
	}

	styled := term.IsTerminal(int(os.Stdout.Fd()))
	if err := run(cfg, *addr, *call, *fields, styled); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run(cfg sessionConfig, addrStr, call string, fields, styled bool) error {
	ctx := context.Background()

	s, err := openSession(ctx, cfg)
	if err != nil {
		return err
	}
	defer s.Close(ctx)

	var addr uint32
	switch {
	case call != "":
		addr, err = s.callAddr(ctx, call)
	case addrStr != "":
		addr, err = parseAddr(addrStr)
	default:
		err = fmt.Errorf("one of -addr or -call is required")
	}
	if err != nil {
		return err
	}

	p, err := s.inspect(addr)
	if err != nil {
		return err
	}

	var r renderer
	if styled {
		r = styledRenderer
	} else {
		r = plainRenderer
	}
	if fields {
		out, err := r.fields(p)
		if err != nil {
			return fmt.Errorf("serialize %s: %w", cfg.typeName, err)
		}
		fmt.Print(out)
		return nil
	}
	fmt.Println(r.value(cfg.typeName, addr, p))
	return nil
}
