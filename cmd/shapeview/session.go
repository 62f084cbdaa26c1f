package main

import (
	"context"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/tetratelabs/wazero"
	"github.com/tetratelabs/wazero/api"
	"github.com/tetratelabs/wazero/imports/wasi_snapshot_preview1"
	"go.uber.org/zap"

	"github.com/wippyai/shapes/guest"
	"github.com/wippyai/shapes/peek"
	"github.com/wippyai/shapes/shape"
)

type sessionConfig struct {
	log      *zap.Logger
	wasmFile string
	witFile  string
	typeName string
}

// session is an instantiated module plus the compiled shape being inspected.
type session struct {
	rt  wazero.Runtime
	mod api.Module
	mem *guest.Memory
	sh  *shape.Shape
}

func openSession(ctx context.Context, cfg sessionConfig) (*session, error) {
	data, err := os.ReadFile(cfg.wasmFile)
	if err != nil {
		return nil, fmt.Errorf("read file: %w", err)
	}
	res, err := guest.LoadTypes(cfg.witFile)
	if err != nil {
		return nil, err
	}
	td, err := guest.FindType(res, cfg.typeName)
	if err != nil {
		return nil, err
	}

	rt := wazero.NewRuntime(ctx)
	if _, err := wasi_snapshot_preview1.Instantiate(ctx, rt); err != nil {
		rt.Close(ctx)
		return nil, fmt.Errorf("instantiate WASI: %w", err)
	}

	// only reactor initialization runs; a command's _start would exit
	mod, err := rt.InstantiateWithConfig(ctx, data, wazero.NewModuleConfig().WithStartFunctions("_initialize"))
	if err != nil {
		rt.Close(ctx)
		return nil, fmt.Errorf("instantiate: %w", err)
	}
	if mod.Memory() == nil {
		rt.Close(ctx)
		return nil, fmt.Errorf("module %s has no memory", cfg.wasmFile)
	}

	mem := guest.NewMemory(mod.Memory())
	sh, err := guest.NewCompiler(mem, guest.WithLogger(cfg.log)).Compile(td)
	if err != nil {
		rt.Close(ctx)
		return nil, fmt.Errorf("compile %s: %w", cfg.typeName, err)
	}
	cfg.log.Info("session opened",
		zap.String("module", cfg.wasmFile),
		zap.String("type", sh.TypeName),
		zap.Uint32("memory", mem.Size()))

	return &session{rt: rt, mod: mod, mem: mem, sh: sh}, nil
}

func (s *session) Close(ctx context.Context) {
	_ = s.rt.Close(ctx)
}

// callAddr calls a nullary export and uses its first i32 result as address.
func (s *session) callAddr(ctx context.Context, name string) (uint32, error) {
	fn := s.mod.ExportedFunction(name)
	if fn == nil {
		return 0, fmt.Errorf("export %q not found", name)
	}
	if n := len(fn.Definition().ParamTypes()); n != 0 {
		return 0, fmt.Errorf("export %q takes %d parameters", name, n)
	}
	results, err := fn.Call(ctx)
	if err != nil {
		return 0, fmt.Errorf("call %s: %w", name, err)
	}
	if len(results) == 0 {
		return 0, fmt.Errorf("export %q returns nothing", name)
	}
	return api.DecodeU32(results[0]), nil
}

func (s *session) inspect(addr uint32) (peek.Peek, error) {
	return guest.Peek(s.mem, addr, s.sh)
}

func parseAddr(s string) (uint32, error) {
	s = strings.TrimSpace(s)
	base := 10
	if rest, ok := strings.CutPrefix(strings.ToLower(s), "0x"); ok {
		s, base = rest, 16
	}
	v, err := strconv.ParseUint(s, base, 32)
	if err != nil {
		return 0, fmt.Errorf("invalid address %q: %w", s, err)
	}
	return uint32(v), nil
}
