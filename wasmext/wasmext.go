package wasmext

import (
	"bytes"
	"context"
	"io"
	"slices"
	"sync"

	"github.com/tetratelabs/wazero"
	"github.com/tetratelabs/wazero/api"
	"github.com/tetratelabs/wazero/imports/wasi_snapshot_preview1"
	"go.uber.org/zap"

	crosswalk "github.com/crosswalk-project/crosswalk-sub003"
	"github.com/crosswalk-project/crosswalk-sub003/errors"
)

// Host module and guest export names.
const (
	HostModule = "xwalk"

	ExportMemory            = "memory"
	ExportAlloc             = "xw_alloc"
	ExportHandleMessage     = "xw_handle_message"
	ExportHandleSyncMessage = "xw_handle_sync_message"
	ExportHandleBinary      = "xw_handle_binary_message"
	ExportInstanceCreated   = "xw_instance_created"
	ExportInstanceDestroyed = "xw_instance_destroyed"
	ExportLifecycle         = "xw_lifecycle"

	// ExportInitialize is run once after instantiation, as for WASI reactors.
	ExportInitialize = "_initialize"
)

// Config holds configuration for a WebAssembly extension.
type Config struct {
	// Name is the extension name scripts address.
	Name string
	// JSAPI is the JavaScript source installed for the extension.
	JSAPI       string
	EntryPoints []string
	// MemoryLimitPages caps guest memory (64 KiB pages). Zero keeps the
	// wazero default.
	MemoryLimitPages uint32
	// WASI provides wasi_snapshot_preview1 to the guest, with Stdout and
	// Stderr as its output streams.
	WASI   bool
	Stdout io.Writer
	Stderr io.Writer
}

// Extension runs a WebAssembly guest as a crosswalk.Extension. Calls into the
// guest are serialized.
type Extension struct {
	cfg     Config
	runtime wazero.Runtime
	mod     api.Module

	alloc       api.Function
	onMessage   api.Function
	onSync      api.Function
	onBinary    api.Function
	onCreated   api.Function
	onDestroyed api.Function
	onLifecycle api.Function

	poster    crosswalk.Poster
	posterMu  sync.RWMutex
	syncReply []byte
	mu        sync.Mutex
}

var _ crosswalk.Extension = (*Extension)(nil)

// Load compiles and instantiates a guest module. The guest must export
// memory, xw_alloc and xw_handle_message; the other entry points are
// optional.
func Load(ctx context.Context, wasm []byte, cfg Config) (*Extension, error) {
	if cfg.Name == "" {
		return nil, errors.InvalidInput(errors.PhaseLoad, "extension name cannot be empty")
	}

	runtimeCfg := wazero.NewRuntimeConfig()
	if cfg.MemoryLimitPages > 0 {
		runtimeCfg = runtimeCfg.WithMemoryLimitPages(cfg.MemoryLimitPages)
	}
	e := &Extension{cfg: cfg, runtime: wazero.NewRuntimeWithConfig(ctx, runtimeCfg)}

	if err := e.instantiateHost(ctx); err != nil {
		_ = e.runtime.Close(ctx)
		return nil, errors.Load("instantiate host module", err)
	}
	if cfg.WASI {
		if _, err := wasi_snapshot_preview1.Instantiate(ctx, e.runtime); err != nil {
			_ = e.runtime.Close(ctx)
			return nil, errors.Load("instantiate WASI", err)
		}
	}
	compiled, err := e.runtime.CompileModule(ctx, wasm)
	if err != nil {
		_ = e.runtime.Close(ctx)
		return nil, errors.Load("compile guest", err)
	}
	// anonymous, so the guest never collides with a host module name
	modCfg := wazero.NewModuleConfig().
		WithName("").
		WithStartFunctions(ExportInitialize)
	if cfg.Stdout != nil {
		modCfg = modCfg.WithStdout(cfg.Stdout)
	}
	if cfg.Stderr != nil {
		modCfg = modCfg.WithStderr(cfg.Stderr)
	}
	mod, err := e.runtime.InstantiateModule(ctx, compiled, modCfg)
	if err != nil {
		_ = e.runtime.Close(ctx)
		return nil, errors.Instantiation(err)
	}
	e.mod = mod

	if mod.Memory() == nil {
		_ = e.runtime.Close(ctx)
		return nil, errors.Load("guest exports no memory", nil)
	}
	e.alloc = mod.ExportedFunction(ExportAlloc)
	e.onMessage = mod.ExportedFunction(ExportHandleMessage)
	if e.alloc == nil || e.onMessage == nil {
		_ = e.runtime.Close(ctx)
		return nil, errors.Load("guest must export "+ExportAlloc+" and "+ExportHandleMessage, nil)
	}
	e.onSync = mod.ExportedFunction(ExportHandleSyncMessage)
	e.onBinary = mod.ExportedFunction(ExportHandleBinary)
	e.onCreated = mod.ExportedFunction(ExportInstanceCreated)
	e.onDestroyed = mod.ExportedFunction(ExportInstanceDestroyed)
	e.onLifecycle = mod.ExportedFunction(ExportLifecycle)

	Logger().Debug("guest extension loaded",
		zap.String("name", cfg.Name),
		zap.Bool("wasi", cfg.WASI),
		zap.Bool("sync", e.onSync != nil),
		zap.Bool("binary", e.onBinary != nil))
	return e, nil
}

func (e *Extension) instantiateHost(ctx context.Context) error {
	i32 := api.ValueTypeI32
	_, err := e.runtime.NewHostModuleBuilder(HostModule).
		NewFunctionBuilder().
		WithGoModuleFunction(api.GoModuleFunc(e.hostPostMessage), []api.ValueType{i32, i32, i32}, nil).
		Export("post_message").
		NewFunctionBuilder().
		WithGoModuleFunction(api.GoModuleFunc(e.hostPostBinary), []api.ValueType{i32, i32, i32}, nil).
		Export("post_binary_message").
		NewFunctionBuilder().
		WithGoModuleFunction(api.GoModuleFunc(e.hostBroadcast), []api.ValueType{i32, i32}, nil).
		Export("broadcast_message").
		NewFunctionBuilder().
		WithGoModuleFunction(api.GoModuleFunc(e.hostSetSyncReply), []api.ValueType{i32, i32}, nil).
		Export("set_sync_reply").
		Instantiate(ctx)
	return err
}

func (e *Extension) Name() string          { return e.cfg.Name }
func (e *Extension) JavaScriptAPI() string { return e.cfg.JSAPI }
func (e *Extension) EntryPoints() []string { return slices.Clone(e.cfg.EntryPoints) }

// Attach implements crosswalk.Extension.
func (e *Extension) Attach(p crosswalk.Poster) {
	e.posterMu.Lock()
	defer e.posterMu.Unlock()
	e.poster = p
}

// OnInstanceCreated implements crosswalk.Extension.
func (e *Extension) OnInstanceCreated(ctx context.Context, id int32) {
	if e.onCreated == nil {
		return
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	e.call(ctx, e.onCreated, api.EncodeI32(id))
}

// OnInstanceDestroyed implements crosswalk.Extension.
func (e *Extension) OnInstanceDestroyed(ctx context.Context, id int32) {
	if e.onDestroyed == nil {
		return
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	e.call(ctx, e.onDestroyed, api.EncodeI32(id))
}

// OnMessage implements crosswalk.Extension.
func (e *Extension) OnMessage(ctx context.Context, id int32, msg string) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.deliver(ctx, e.onMessage, id, []byte(msg))
}

// OnBinaryMessage implements crosswalk.Extension. Guests without a binary
// handler drop binary messages.
func (e *Extension) OnBinaryMessage(ctx context.Context, id int32, msg []byte) {
	if e.onBinary == nil {
		Logger().Warn("guest has no binary handler", zap.String("extension", e.cfg.Name))
		return
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	e.deliver(ctx, e.onBinary, id, msg)
}

// OnSyncMessage implements crosswalk.Extension. The reply is whatever the
// guest passed to set_sync_reply during the call, or "".
func (e *Extension) OnSyncMessage(ctx context.Context, id int32, msg string) string {
	if e.onSync == nil {
		Logger().Warn("guest has no sync handler", zap.String("extension", e.cfg.Name))
		return ""
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	e.syncReply = nil
	e.deliver(ctx, e.onSync, id, []byte(msg))
	reply := string(e.syncReply)
	e.syncReply = nil
	return reply
}

// Lifecycle forwards ev to the guest's xw_lifecycle export, if any.
func (e *Extension) Lifecycle(ev crosswalk.LifecycleEvent) {
	if e.onLifecycle == nil {
		return
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	e.call(context.Background(), e.onLifecycle, api.EncodeI32(int32(ev)))
}

// Close releases the guest and its runtime.
func (e *Extension) Close(ctx context.Context) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.runtime.Close(ctx)
}

// deliver copies msg into guest memory and calls fn(instance, ptr, len).
func (e *Extension) deliver(ctx context.Context, fn api.Function, id int32, msg []byte) {
	res, err := e.alloc.Call(ctx, api.EncodeU32(uint32(len(msg))))
	if err != nil {
		Logger().Error("guest alloc failed", zap.String("extension", e.cfg.Name), zap.Error(err))
		return
	}
	ptr := api.DecodeU32(res[0])
	if !e.mod.Memory().Write(ptr, msg) {
		Logger().Error("guest alloc out of bounds",
			zap.String("extension", e.cfg.Name),
			zap.Uint32("ptr", ptr),
			zap.Int("len", len(msg)))
		return
	}
	e.call(ctx, fn, api.EncodeI32(id), api.EncodeU32(ptr), api.EncodeU32(uint32(len(msg))))
}

func (e *Extension) call(ctx context.Context, fn api.Function, params ...uint64) {
	if _, err := fn.Call(ctx, params...); err != nil {
		Logger().Error("guest call failed",
			zap.String("extension", e.cfg.Name),
			zap.String("func", fn.Definition().Name()),
			zap.Error(err))
	}
}

func (e *Extension) currentPoster() crosswalk.Poster {
	e.posterMu.RLock()
	defer e.posterMu.RUnlock()
	if e.poster == nil {
		Logger().Warn("dropping guest message, extension not attached", zap.String("extension", e.cfg.Name))
	}
	return e.poster
}

// read copies a guest buffer; memory views do not survive the next guest
// call.
func read(mod api.Module, ptr, length uint64) ([]byte, bool) {
	b, ok := mod.Memory().Read(api.DecodeU32(ptr), api.DecodeU32(length))
	if !ok {
		return nil, false
	}
	return bytes.Clone(b), true
}

func (e *Extension) hostPostMessage(_ context.Context, mod api.Module, stack []uint64) {
	msg, ok := read(mod, stack[1], stack[2])
	if !ok {
		Logger().Warn("post_message out of bounds", zap.String("extension", e.cfg.Name))
		return
	}
	if p := e.currentPoster(); p != nil {
		p.PostMessage(api.DecodeI32(stack[0]), string(msg))
	}
}

func (e *Extension) hostPostBinary(_ context.Context, mod api.Module, stack []uint64) {
	msg, ok := read(mod, stack[1], stack[2])
	if !ok {
		Logger().Warn("post_binary_message out of bounds", zap.String("extension", e.cfg.Name))
		return
	}
	if p := e.currentPoster(); p != nil {
		p.PostBinaryMessage(api.DecodeI32(stack[0]), msg)
	}
}

func (e *Extension) hostBroadcast(_ context.Context, mod api.Module, stack []uint64) {
	msg, ok := read(mod, stack[0], stack[1])
	if !ok {
		Logger().Warn("broadcast_message out of bounds", zap.String("extension", e.cfg.Name))
		return
	}
	if p := e.currentPoster(); p != nil {
		p.BroadcastMessage(string(msg))
	}
}

// hostSetSyncReply runs inside OnSyncMessage, which holds e.mu.
func (e *Extension) hostSetSyncReply(_ context.Context, mod api.Module, stack []uint64) {
	msg, ok := read(mod, stack[0], stack[1])
	if !ok {
		Logger().Warn("set_sync_reply out of bounds", zap.String("extension", e.cfg.Name))
		return
	}
	e.syncReply = msg
}
