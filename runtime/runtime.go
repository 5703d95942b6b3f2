package runtime

import (
	"context"
	"sync"

	"go.uber.org/zap"

	crosswalk "github.com/crosswalk-project/crosswalk-sub003"
	"github.com/crosswalk-project/crosswalk-sub003/errors"
)

// Sink receives the messages extensions send to one script context.
// Implementations must not call back into the runtime synchronously for the
// same context.
type Sink interface {
	Message(extension, msg string)
	BinaryMessage(extension string, msg []byte)
}

// LifecycleAware is implemented by extensions that fan host activity
// transitions out to their objects.
type LifecycleAware interface {
	Lifecycle(ev crosswalk.LifecycleEvent)
}

// route records which context and extension an instance id belongs to.
type route struct {
	ctx       *Context
	extension string
}

// Runtime owns the registered extensions and routes messages between them
// and the script contexts created from it.
type Runtime struct {
	exts     map[string]crosswalk.Extension
	order    []string
	routes   map[int32]route
	contexts map[*Context]struct{}
	nextID   int32
	closed   bool
	mu       sync.RWMutex
}

func New() *Runtime {
	return &Runtime{
		exts:     make(map[string]crosswalk.Extension),
		routes:   make(map[int32]route),
		contexts: make(map[*Context]struct{}),
	}
}

// Register adds ext and attaches the runtime as its poster. Names must be
// unique.
func (r *Runtime) Register(ext crosswalk.Extension) error {
	name := ext.Name()
	if name == "" {
		return errors.InvalidInput(errors.PhaseRuntime, "extension name cannot be empty")
	}

	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		return errors.Closed(errors.PhaseRuntime, "runtime")
	}
	if _, exists := r.exts[name]; exists {
		r.mu.Unlock()
		return errors.Registration(errors.PhaseRuntime, name,
			errors.New(errors.PhaseRuntime, errors.KindNameCollision).Detail("extension already registered").Build())
	}
	r.exts[name] = ext
	r.order = append(r.order, name)
	r.mu.Unlock()

	ext.Attach(&poster{rt: r, extension: name})
	Logger().Debug("extension registered", zap.String("name", name))
	return nil
}

// Extension returns the extension registered under name.
func (r *Runtime) Extension(name string) (crosswalk.Extension, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	ext, ok := r.exts[name]
	return ext, ok
}

// Extensions returns every registered extension in registration order.
func (r *Runtime) Extensions() []crosswalk.Extension {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]crosswalk.Extension, 0, len(r.order))
	for _, name := range r.order {
		out = append(out, r.exts[name])
	}
	return out
}

// NewContext opens a script context delivering to sink. Extension instances
// are created the first time the context addresses them.
func (r *Runtime) NewContext(sink Sink) (*Context, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return nil, errors.Closed(errors.PhaseRuntime, "runtime")
	}
	c := &Context{rt: r, sink: sink, instances: make(map[string]int32)}
	r.contexts[c] = struct{}{}
	return c, nil
}

// Lifecycle delivers ev to every extension that follows host activity.
func (r *Runtime) Lifecycle(ev crosswalk.LifecycleEvent) {
	for _, ext := range r.Extensions() {
		if l, ok := ext.(LifecycleAware); ok {
			l.Lifecycle(ev)
		}
	}
}

// Close closes every open context, destroying their instances. The runtime
// accepts no registrations or contexts afterwards.
func (r *Runtime) Close(ctx context.Context) error {
	r.mu.Lock()
	r.closed = true
	contexts := make([]*Context, 0, len(r.contexts))
	for c := range r.contexts {
		contexts = append(contexts, c)
	}
	r.mu.Unlock()

	for _, c := range contexts {
		if err := c.Close(ctx); err != nil {
			Logger().Warn("close context", zap.Error(err))
		}
	}
	return nil
}

// bind mints an instance id routed to c for extension name.
func (r *Runtime) bind(c *Context, name string) (crosswalk.Extension, int32, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return nil, 0, errors.Closed(errors.PhaseRuntime, "runtime")
	}
	ext, ok := r.exts[name]
	if !ok {
		return nil, 0, errors.NotFound(errors.PhaseRuntime, "extension", name)
	}
	r.nextID++
	r.routes[r.nextID] = route{ctx: c, extension: name}
	return ext, r.nextID, nil
}

func (r *Runtime) unbind(id int32) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.routes, id)
}

func (r *Runtime) forget(c *Context) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.contexts, c)
}

func (r *Runtime) lookup(id int32) (route, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	rt, ok := r.routes[id]
	return rt, ok
}

// poster is the crosswalk.Poster handed to one extension.
type poster struct {
	rt        *Runtime
	extension string
}

func (p *poster) PostMessage(id int32, msg string) {
	rt, ok := p.target(id)
	if !ok {
		return
	}
	rt.ctx.sink.Message(p.extension, msg)
}

func (p *poster) PostBinaryMessage(id int32, msg []byte) {
	rt, ok := p.target(id)
	if !ok {
		return
	}
	rt.ctx.sink.BinaryMessage(p.extension, msg)
}

func (p *poster) BroadcastMessage(msg string) {
	p.rt.mu.RLock()
	var sinks []Sink
	for _, rt := range p.rt.routes {
		if rt.extension == p.extension {
			sinks = append(sinks, rt.ctx.sink)
		}
	}
	p.rt.mu.RUnlock()
	for _, s := range sinks {
		s.Message(p.extension, msg)
	}
}

func (p *poster) target(id int32) (route, bool) {
	rt, ok := p.rt.lookup(id)
	if !ok || rt.extension != p.extension {
		Logger().Warn("dropping message for unknown instance",
			zap.String("extension", p.extension),
			zap.Int32("instance", id))
		return route{}, false
	}
	return rt, true
}
