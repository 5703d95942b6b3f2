package extension

import (
	"fmt"
	"reflect"

	"go.uber.org/zap"

	crosswalk "github.com/crosswalk-project/crosswalk-sub003"
	"github.com/crosswalk-project/crosswalk-sub003/binding"
	"github.com/crosswalk-project/crosswalk-sub003/codec"
	"github.com/crosswalk-project/crosswalk-sub003/dispatch"
	"github.com/crosswalk-project/crosswalk-sub003/errors"
	"github.com/crosswalk-project/crosswalk-sub003/notify"
)

// Instance is the per-script-context state of an extension: its binding
// objects, its dispatcher and the handler table copied at creation.
type Instance struct {
	id       int32
	ext      *Extension
	poster   crosswalk.Poster
	store    *binding.Store
	dispatch *dispatch.Dispatcher
	handlers map[string]HandlerFunc
}

func newInstance(ext *Extension, id int32, p crosswalk.Poster, handlers map[string]HandlerFunc) *Instance {
	inst := &Instance{id: id, ext: ext, poster: p, handlers: handlers}
	inst.store = binding.NewStore(inst.objectContext)
	inst.dispatch = dispatch.New(dispatch.Config{
		Root:       ext.desc,
		Object:     ext.object,
		Store:      inst.store,
		InstanceID: id,
		Poster:     p,
	})
	return inst
}

func (i *Instance) ID() int32                        { return i.id }
func (i *Instance) Extension() *Extension            { return i.ext }
func (i *Instance) Store() *binding.Store            { return i.store }
func (i *Instance) Dispatcher() *dispatch.Dispatcher { return i.dispatch }

// Context returns a notification context addressing the extension object
// in this instance.
func (i *Instance) Context() *notify.Context {
	return notify.ForExtension(i.id, i.ext.desc, i.poster)
}

// handle routes req through the handler table. Failures are logged and
// reported as !ok.
func (i *Instance) handle(req *codec.Request) (any, bool) {
	h, ok := i.handlers[req.Name]
	if !ok {
		Logger().Warn("no handler",
			zap.String("extension", i.ext.name),
			zap.Int32("instance", i.id),
			zap.String("name", req.Name))
		return nil, false
	}
	result, err := h(i, req)
	if err != nil {
		Logger().Warn("request failed",
			zap.String("extension", i.ext.name),
			zap.Int32("instance", i.id),
			zap.String("cmd", req.Command),
			zap.String("name", req.Name),
			zap.Error(err))
		return nil, false
	}
	return result, true
}

func (i *Instance) objectContext(id string, obj binding.Object) *notify.Context {
	desc, ok := i.ext.desc.ForBindingClass(reflect.TypeOf(obj))
	if !ok {
		desc = i.ext.desc
	}
	return notify.ForObject(i.id, id, desc, i.poster)
}

func (i *Instance) close() {
	if err := i.store.Close(); err != nil {
		Logger().Warn("close store", zap.Int32("instance", i.id), zap.Error(err))
	}
}

func handleMember(inst *Instance, req *codec.Request) (any, error) {
	return inst.dispatch.Handle(req, inst.ext.desc, inst.ext.object)
}

func handleToClass(inst *Instance, req *codec.Request) (any, error) {
	return inst.dispatch.ToClass(req)
}

func handleToObject(inst *Instance, req *codec.Request) (any, error) {
	return inst.dispatch.ToObject(req)
}

// handleCollected releases the binding of a script object the garbage
// collector reclaimed. The id travels as args[0], falling back to the
// request's object id.
func handleCollected(inst *Instance, req *codec.Request) (any, error) {
	id := req.ObjectID
	if len(req.Args) > 0 && req.Args[0] != nil {
		id = fmt.Sprint(req.Args[0])
	}
	if id == "" || id == "0" {
		return nil, errors.InvalidInput(errors.PhaseStore, "JSObjectCollected without object id")
	}
	inst.store.Unregister(id)
	return nil, nil
}

// attached forwards to whatever poster the extension currently holds, so
// instances created before Attach still reach the host once it is set.
type attached struct {
	ext *Extension
}

func (a *attached) PostMessage(id int32, msg string) {
	if p := a.ext.currentPoster(); p != nil {
		p.PostMessage(id, msg)
		return
	}
	Logger().Warn("dropping message, extension not attached", zap.String("extension", a.ext.name))
}

func (a *attached) PostBinaryMessage(id int32, msg []byte) {
	if p := a.ext.currentPoster(); p != nil {
		p.PostBinaryMessage(id, msg)
		return
	}
	Logger().Warn("dropping binary message, extension not attached", zap.String("extension", a.ext.name))
}

func (a *attached) BroadcastMessage(msg string) {
	if p := a.ext.currentPoster(); p != nil {
		p.BroadcastMessage(msg)
		return
	}
	Logger().Warn("dropping broadcast, extension not attached", zap.String("extension", a.ext.name))
}
