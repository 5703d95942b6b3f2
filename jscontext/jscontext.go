package jscontext

import (
	"context"
	_ "embed"
	stderrors "errors"
	"strings"
	"sync"

	"github.com/dop251/goja"
	"go.uber.org/zap"

	crosswalk "github.com/crosswalk-project/crosswalk-sub003"
	"github.com/crosswalk-project/crosswalk-sub003/errors"
	"github.com/crosswalk-project/crosswalk-sub003/runtime"
)

//go:embed jsstub.js
var stubSource string

var stubProgram = sync.OnceValues(func() (*goja.Program, error) {
	return goja.Compile("jsstub.js", "(function(exports) {\n"+stubSource+"\n})", false)
})

// Config holds configuration for a script context.
type Config struct {
	// Console receives console.* output. Nil uses the package logger.
	Console *zap.Logger
}

// inbound is one message queued for delivery to a listener.
type inbound struct {
	extension string
	text      string
	binary    []byte
}

// Context is a goja VM attached to a runtime as one script context.
//
// A Context is not safe for concurrent use; every method except the Sink
// methods must be called from the goroutine that owns the VM. Messages
// extensions send are queued and reach the script only on Pump.
type Context struct {
	ctx       context.Context
	vm        *goja.Runtime
	rt        *runtime.Runtime
	sc        *runtime.Context
	console   *zap.Logger
	tools     *goja.Object
	listeners map[string]goja.Callable
	installed []string

	queue []inbound
	mu    sync.Mutex
}

var _ runtime.Sink = (*Context)(nil)

// New creates a script context on rt. ctx is passed to every extension call
// the script makes.
func New(ctx context.Context, rt *runtime.Runtime, cfg Config) (*Context, error) {
	c := &Context{
		ctx:       ctx,
		vm:        goja.New(),
		rt:        rt,
		console:   cfg.Console,
		listeners: make(map[string]goja.Callable),
	}
	if c.console == nil {
		c.console = Logger()
	}
	sc, err := rt.NewContext(c)
	if err != nil {
		return nil, err
	}
	c.sc = sc

	if err := c.vm.Set("console", c.newConsole()); err != nil {
		return nil, errors.Wrap(errors.PhaseScript, errors.KindInstantiation, err, "install console")
	}
	c.tools = c.vm.NewObject()
	_ = c.tools.Set("lifecycleTracker", func(goja.FunctionCall) goja.Value {
		return c.vm.NewObject()
	})
	return c, nil
}

// VM exposes the underlying goja runtime.
func (c *Context) VM() *goja.Runtime { return c.vm }

// Installed lists the extensions installed so far, in install order.
func (c *Context) Installed() []string { return append([]string(nil), c.installed...) }

// Load installs every extension registered on the runtime. Extensions that
// fail to install are skipped; their errors are joined.
func (c *Context) Load() error {
	var errs []error
	for _, ext := range c.rt.Extensions() {
		if err := c.Install(ext); err != nil {
			Logger().Warn("extension not installed", zap.String("extension", ext.Name()), zap.Error(err))
			errs = append(errs, err)
		}
	}
	return stderrors.Join(errs...)
}

// Install evaluates ext's JavaScript API and publishes its exports under the
// extension's dotted name and each of its entry points.
func (c *Context) Install(ext crosswalk.Extension) error {
	name := ext.Name()
	api := ext.JavaScriptAPI()
	if api == "" {
		Logger().Debug("extension has no JavaScript API", zap.String("extension", name))
		return nil
	}

	src := "(function(extension, requireNative) {\nvar exports = {};\n" + api + "\nreturn exports;\n})"
	fnVal, err := c.vm.RunScript(name+".js", src)
	if err != nil {
		return errors.New(errors.PhaseScript, errors.KindMalformed).
			JSName(name).Detail("compile extension API").Cause(err).Build()
	}
	fn, ok := goja.AssertFunction(fnVal)
	if !ok {
		return errors.Malformed(errors.PhaseScript, "extension wrapper is not a function", nil)
	}

	channel := c.newChannel(name)
	exports, err := fn(goja.Undefined(), channel, c.vm.ToValue(c.requireNative(channel)))
	if err != nil {
		return errors.New(errors.PhaseScript, errors.KindInvocation).
			JSName(name).Detail("evaluate extension API").Cause(err).Build()
	}

	if err := c.publish(name, exports); err != nil {
		return err
	}
	for _, ep := range ext.EntryPoints() {
		if err := c.publish(ep, exports); err != nil {
			return err
		}
	}
	c.installed = append(c.installed, name)
	Logger().Debug("extension installed", zap.String("extension", name))
	return nil
}

// Run evaluates src, then pumps queued messages.
func (c *Context) Run(src string) (goja.Value, error) {
	return c.RunScript("", src)
}

// RunScript is Run with a script name for stack traces.
func (c *Context) RunScript(name, src string) (goja.Value, error) {
	v, err := c.vm.RunScript(name, src)
	c.Pump()
	if err != nil {
		return nil, errors.Wrap(errors.PhaseScript, errors.KindInvocation, err, "run script")
	}
	return v, nil
}

// Pump delivers queued messages to the listeners the extensions' scripts
// registered, until the queue stays empty. It returns how many messages were
// delivered.
func (c *Context) Pump() int {
	n := 0
	for {
		c.mu.Lock()
		batch := c.queue
		c.queue = nil
		c.mu.Unlock()
		if len(batch) == 0 {
			return n
		}

		for _, m := range batch {
			listener, ok := c.listeners[m.extension]
			if !ok {
				Logger().Debug("no message listener, dropping", zap.String("extension", m.extension))
				continue
			}
			var arg goja.Value
			if m.binary != nil {
				arg = c.vm.ToValue(c.vm.NewArrayBuffer(m.binary))
			} else {
				arg = c.vm.ToValue(m.text)
			}
			if _, err := listener(goja.Undefined(), arg); err != nil {
				Logger().Warn("message listener failed", zap.String("extension", m.extension), zap.Error(err))
			}
			n++
		}
	}
}

// Pending reports how many messages wait for Pump.
func (c *Context) Pending() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.queue)
}

// Message implements runtime.Sink. It may be called from any goroutine.
func (c *Context) Message(extension, msg string) {
	c.mu.Lock()
	c.queue = append(c.queue, inbound{extension: extension, text: msg})
	c.mu.Unlock()
}

// BinaryMessage implements runtime.Sink.
func (c *Context) BinaryMessage(extension string, msg []byte) {
	if msg == nil {
		msg = []byte{}
	}
	c.mu.Lock()
	c.queue = append(c.queue, inbound{extension: extension, binary: msg})
	c.mu.Unlock()
}

// PostMessage sends msg to extension name from outside any script, then
// pumps.
func (c *Context) PostMessage(name, msg string) error {
	err := c.sc.PostMessage(c.ctx, name, msg)
	c.Pump()
	return err
}

// SendSyncMessage is the synchronous form of PostMessage.
func (c *Context) SendSyncMessage(name, msg string) (string, error) {
	reply, err := c.sc.SendSyncMessage(c.ctx, name, msg)
	c.Pump()
	return reply, err
}

// Close destroys the context's extension instances.
func (c *Context) Close() error {
	return c.sc.Close(c.ctx)
}

// newChannel builds the extension object one API script talks through.
func (c *Context) newChannel(name string) *goja.Object {
	ch := c.vm.NewObject()
	_ = ch.Set("postMessage", func(call goja.FunctionCall) goja.Value {
		var err error
		switch msg := call.Argument(0).Export().(type) {
		case string:
			err = c.sc.PostMessage(c.ctx, name, msg)
		case goja.ArrayBuffer:
			err = c.sc.PostBinaryMessage(c.ctx, name, msg.Bytes())
		default:
			panic(c.vm.NewTypeError("postMessage: expected string or ArrayBuffer"))
		}
		if err != nil {
			panic(c.vm.NewGoError(err))
		}
		return goja.Undefined()
	})
	_ = ch.Set("setMessageListener", func(call goja.FunctionCall) goja.Value {
		arg := call.Argument(0)
		if goja.IsUndefined(arg) || goja.IsNull(arg) {
			delete(c.listeners, name)
			return goja.Undefined()
		}
		fn, ok := goja.AssertFunction(arg)
		if !ok {
			panic(c.vm.NewTypeError("setMessageListener: listener is not a function"))
		}
		c.listeners[name] = fn
		return goja.Undefined()
	})

	internal := c.vm.NewObject()
	_ = internal.Set("sendSyncMessage", func(call goja.FunctionCall) goja.Value {
		reply, err := c.sc.SendSyncMessage(c.ctx, name, call.Argument(0).String())
		if err != nil {
			panic(c.vm.NewGoError(err))
		}
		return c.vm.ToValue(reply)
	})
	_ = ch.Set("internal", internal)
	return ch
}

// requireNative resolves the native modules an API script may ask for. Each
// extension gets its own jsStub instance bound to its channel.
func (c *Context) requireNative(channel *goja.Object) func(goja.FunctionCall) goja.Value {
	var stub *goja.Object
	return func(call goja.FunctionCall) goja.Value {
		switch mod := call.Argument(0).String(); mod {
		case "jsStub":
			if stub == nil {
				s, err := c.loadStub()
				if err != nil {
					panic(c.vm.NewGoError(err))
				}
				stub = s
			}
			return stub
		case "v8tools":
			return c.tools
		default:
			panic(c.vm.NewTypeError("unknown native module %q", mod))
		}
	}
}

func (c *Context) loadStub() (*goja.Object, error) {
	prog, err := stubProgram()
	if err != nil {
		return nil, errors.Malformed(errors.PhaseScript, "compile jsStub", err)
	}
	fnVal, err := c.vm.RunProgram(prog)
	if err != nil {
		return nil, errors.Wrap(errors.PhaseScript, errors.KindInvocation, err, "load jsStub")
	}
	fn, _ := goja.AssertFunction(fnVal)
	exports := c.vm.NewObject()
	if _, err := fn(goja.Undefined(), exports); err != nil {
		return nil, errors.Wrap(errors.PhaseScript, errors.KindInvocation, err, "init jsStub")
	}
	return exports, nil
}

// publish sets v at a dotted global path, creating intermediate objects.
func (c *Context) publish(path string, v goja.Value) error {
	parts := strings.Split(path, ".")
	obj := c.vm.GlobalObject()
	for _, p := range parts[:len(parts)-1] {
		next := obj.Get(p)
		if next == nil || goja.IsUndefined(next) || goja.IsNull(next) {
			created := c.vm.NewObject()
			if err := obj.Set(p, created); err != nil {
				return errors.Wrap(errors.PhaseScript, errors.KindInvalidInput, err, "publish "+path)
			}
			obj = created
			continue
		}
		o, ok := next.(*goja.Object)
		if !ok {
			return errors.InvalidInput(errors.PhaseScript, "publish "+path+": "+p+" is not an object")
		}
		obj = o
	}
	if err := obj.Set(parts[len(parts)-1], v); err != nil {
		return errors.Wrap(errors.PhaseScript, errors.KindInvalidInput, err, "publish "+path)
	}
	return nil
}

func (c *Context) newConsole() *goja.Object {
	console := c.vm.NewObject()
	level := func(log func(string, ...zap.Field)) func(goja.FunctionCall) goja.Value {
		return func(call goja.FunctionCall) goja.Value {
			parts := make([]string, len(call.Arguments))
			for i, a := range call.Arguments {
				parts[i] = a.String()
			}
			log(strings.Join(parts, " "))
			return goja.Undefined()
		}
	}
	_ = console.Set("log", level(c.console.Info))
	_ = console.Set("info", level(c.console.Info))
	_ = console.Set("debug", level(c.console.Debug))
	_ = console.Set("warn", level(c.console.Warn))
	_ = console.Set("error", level(c.console.Error))
	return console
}
