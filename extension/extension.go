package extension

import (
	"context"
	"maps"
	"slices"
	"sync"

	"go.uber.org/zap"

	crosswalk "github.com/crosswalk-project/crosswalk-sub003"
	"github.com/crosswalk-project/crosswalk-sub003/codec"
	"github.com/crosswalk-project/crosswalk-sub003/descriptor"
	"github.com/crosswalk-project/crosswalk-sub003/errors"
	"github.com/crosswalk-project/crosswalk-sub003/notify"
	"github.com/crosswalk-project/crosswalk-sub003/reflector"
	"github.com/crosswalk-project/crosswalk-sub003/stubgen"
)

// Config describes how a native object is exposed.
type Config struct {
	// Name is the dotted namespace the API is installed under, e.g. "xwalk.echo".
	Name string
	// JSAPI replaces the generated stub when set.
	JSAPI string
	// EntryPoints lists extra global names the API answers to.
	EntryPoints []string
	// Builder resolves class metadata. Nil uses an empty builder, so the
	// object must declare itself through JSAPI() or struct tags.
	Builder *reflector.Builder
}

// HandlerFunc handles one routed request for an instance. A non-nil result
// becomes the reply when the request expects one.
type HandlerFunc func(inst *Instance, req *codec.Request) (any, error)

// Extension exposes a native object to script contexts. Its descriptor and
// stub are built once; every script context gets its own Instance.
type Extension struct {
	name        string
	api         string
	entryPoints []string
	object      any
	desc        *descriptor.Descriptor

	poster   crosswalk.Poster
	handlers map[string]HandlerFunc

	instances map[int32]*Instance
	mu        sync.RWMutex
}

var _ crosswalk.Extension = (*Extension)(nil)

// New builds the descriptor of object and, unless cfg.JSAPI is set, the
// JavaScript stub mirroring it.
func New(object any, cfg Config) (*Extension, error) {
	if cfg.Name == "" {
		return nil, errors.InvalidInput(errors.PhaseRuntime, "extension name cannot be empty")
	}
	b := cfg.Builder
	if b == nil {
		b = reflector.NewBuilder()
	}
	desc, err := b.Build(object)
	if err != nil {
		return nil, err
	}

	api := cfg.JSAPI
	if api == "" {
		api = stubgen.Generate(desc)
	}

	e := &Extension{
		name:        cfg.Name,
		api:         api,
		entryPoints: slices.Clone(cfg.EntryPoints),
		object:      object,
		desc:        desc,
		handlers:    make(map[string]HandlerFunc),
		instances:   make(map[int32]*Instance),
	}
	for _, m := range desc.Members() {
		e.handlers[m.Name] = handleMember
	}
	e.handlers[codec.CmdJSObjectCollected] = handleCollected
	e.handlers[codec.MsgToClass] = handleToClass
	e.handlers[codec.MsgToObject] = handleToObject

	Logger().Debug("extension built",
		zap.String("name", e.name),
		zap.String("class", desc.Name),
		zap.Int("members", desc.Len()))
	return e, nil
}

func (e *Extension) Name() string                       { return e.name }
func (e *Extension) JavaScriptAPI() string              { return e.api }
func (e *Extension) EntryPoints() []string              { return slices.Clone(e.entryPoints) }
func (e *Extension) Object() any                        { return e.object }
func (e *Extension) Descriptor() *descriptor.Descriptor { return e.desc }

// Attach implements crosswalk.Extension.
func (e *Extension) Attach(p crosswalk.Poster) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.poster = p
}

// Handle registers h for requests named name, replacing any existing
// handler. Instances created earlier keep the table they were created with.
func (e *Extension) Handle(name string, h HandlerFunc) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if h == nil {
		delete(e.handlers, name)
		return
	}
	e.handlers[name] = h
}

// Instance returns the live instance for id.
func (e *Extension) Instance(id int32) (*Instance, bool) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	inst, ok := e.instances[id]
	return inst, ok
}

// OnInstanceCreated implements crosswalk.Extension.
func (e *Extension) OnInstanceCreated(_ context.Context, id int32) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if _, exists := e.instances[id]; exists {
		Logger().Warn("instance already exists", zap.String("extension", e.name), zap.Int32("instance", id))
		return
	}
	e.instances[id] = newInstance(e, id, &attached{ext: e}, maps.Clone(e.handlers))
}

// OnInstanceDestroyed implements crosswalk.Extension.
func (e *Extension) OnInstanceDestroyed(_ context.Context, id int32) {
	e.mu.Lock()
	inst, ok := e.instances[id]
	delete(e.instances, id)
	e.mu.Unlock()
	if ok {
		inst.close()
	}
}

// OnMessage implements crosswalk.Extension. Array-form requests are
// answered with [callbackId, result] when the member returns a value.
func (e *Extension) OnMessage(_ context.Context, id int32, msg string) {
	inst, req, ok := e.decode(id, msg)
	if !ok {
		return
	}
	result, ok := inst.handle(req)
	if !ok || result == nil || req.Shape != codec.ShapeArray {
		return
	}
	reply, err := codec.EncodeReply(req.CallbackID, result)
	if err != nil {
		Logger().Warn("encode reply", zap.String("extension", e.name), zap.Error(err))
		return
	}
	inst.poster.PostMessage(id, reply)
}

// OnBinaryMessage implements crosswalk.Extension. Byte results are posted
// back prefixed with the request's callback id; other results as JSON text.
func (e *Extension) OnBinaryMessage(_ context.Context, id int32, msg []byte) {
	inst, ok := e.Instance(id)
	if !ok {
		Logger().Warn("message for unknown instance", zap.String("extension", e.name), zap.Int32("instance", id))
		return
	}
	req, err := codec.ParseBinary(msg)
	if err != nil {
		Logger().Error("parse binary message", zap.String("extension", e.name), zap.Error(err))
		return
	}
	result, ok := inst.handle(req)
	if !ok || result == nil {
		return
	}
	payload, ok := result.([]byte)
	if !ok {
		text, err := codec.EncodeValue(result)
		if err != nil {
			Logger().Warn("encode reply", zap.String("extension", e.name), zap.Error(err))
			return
		}
		payload = []byte(text)
	}
	cid, _ := codec.ParseCallbackID(req.CallbackID)
	notify.ForExtension(id, e.desc, inst.poster).PostBinary(cid, payload)
}

// OnSyncMessage implements crosswalk.Extension. The reply is the result as
// JSON text, or "" when there is none.
func (e *Extension) OnSyncMessage(_ context.Context, id int32, msg string) string {
	inst, req, ok := e.decode(id, msg)
	if !ok {
		return ""
	}
	result, ok := inst.handle(req)
	if !ok || result == nil {
		return ""
	}
	text, err := codec.EncodeValue(result)
	if err != nil {
		Logger().Warn("encode sync reply", zap.String("extension", e.name), zap.Error(err))
		return ""
	}
	return text
}

// Lifecycle delivers ev to the extension object, when it follows host
// activity, and to every binding object of every instance.
func (e *Extension) Lifecycle(ev crosswalk.LifecycleEvent) {
	if l, ok := e.object.(crosswalk.Lifecycle); ok {
		ev.Deliver(l)
	}
	e.mu.RLock()
	insts := make([]*Instance, 0, len(e.instances))
	for _, inst := range e.instances {
		insts = append(insts, inst)
	}
	e.mu.RUnlock()
	for _, inst := range insts {
		inst.store.Broadcast(ev)
	}
}

// SendEvent broadcasts {cmd:"onEvent", type, event} to every instance.
func (e *Extension) SendEvent(typ string, event any) error {
	return notify.ForExtension(0, e.desc, &attached{ext: e}).SendEvent(typ, event)
}

// Close destroys every instance.
func (e *Extension) Close() error {
	e.mu.Lock()
	insts := e.instances
	e.instances = make(map[int32]*Instance)
	e.mu.Unlock()
	for _, inst := range insts {
		inst.close()
	}
	return nil
}

func (e *Extension) decode(id int32, msg string) (*Instance, *codec.Request, bool) {
	inst, ok := e.Instance(id)
	if !ok {
		Logger().Warn("message for unknown instance", zap.String("extension", e.name), zap.Int32("instance", id))
		return nil, nil, false
	}
	req, err := codec.Parse(msg)
	if err != nil {
		Logger().Error("parse message", zap.String("extension", e.name), zap.Int32("instance", id), zap.Error(err))
		return nil, nil, false
	}
	return inst, req, true
}

func (e *Extension) currentPoster() crosswalk.Poster {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.poster
}
