package dispatch

import (
	"fmt"
	"reflect"

	"go.uber.org/zap"

	crosswalk "github.com/crosswalk-project/crosswalk-sub003"
	"github.com/crosswalk-project/crosswalk-sub003/binding"
	"github.com/crosswalk-project/crosswalk-sub003/codec"
	"github.com/crosswalk-project/crosswalk-sub003/descriptor"
	"github.com/crosswalk-project/crosswalk-sub003/errors"
	"github.com/crosswalk-project/crosswalk-sub003/notify"
)

// Config wires a Dispatcher to one extension instance.
type Config struct {
	// Root describes the extension class and Object is its native instance.
	Root   *descriptor.Descriptor
	Object any
	// Store receives objects built by newInstance and resolves object routing.
	Store *binding.Store
	// InstanceID and Poster address notification contexts injected into
	// static members.
	InstanceID int32
	Poster     crosswalk.Poster
}

// ExtensionObjectID addresses the extension object rather than a binding
// object.
const ExtensionObjectID = "0"

// Dispatcher performs requests against native objects. It keeps no state
// between calls beyond its configuration.
type Dispatcher struct {
	cfg Config
}

// New creates a dispatcher.
func New(cfg Config) *Dispatcher {
	return &Dispatcher{cfg: cfg}
}

// Root returns the extension descriptor.
func (d *Dispatcher) Root() *descriptor.Descriptor {
	return d.cfg.Root
}

// Handle performs req against target using desc. Static members ignore
// target and act on desc's class object. The result is normalized for the
// wire.
//
// Unknown commands are logged and yield nothing.
func (d *Dispatcher) Handle(req *codec.Request, desc *descriptor.Descriptor, target any) (any, error) {
	args := req.DispatchArgs()
	switch req.Command {
	case codec.CmdInvokeNative:
		v, err := d.Invoke(desc, target, req.Name, args)
		if err != nil {
			return nil, err
		}
		return codec.Normalize(v)
	case codec.CmdNewInstance:
		ok, err := d.NewInstance(desc, target, req.Name, req.ObjectID, args)
		if err != nil {
			return nil, err
		}
		return ok, nil
	case codec.CmdGetProperty:
		v, err := d.GetProperty(desc, target, req.Name)
		if err != nil {
			return nil, err
		}
		return codec.Normalize(v)
	case codec.CmdSetProperty:
		if len(args) == 0 {
			return nil, errors.New(errors.PhaseDispatch, errors.KindInvalidInput).
				Path(desc.Name, req.Name).
				Detail("setProperty needs a value").
				Build()
		}
		return nil, d.SetProperty(desc, target, req.Name, args[0])
	}
	Logger().Warn("unsupported command",
		zap.String("class", desc.Name),
		zap.String("name", req.Name),
		zap.Error(errors.Unsupported(errors.PhaseDispatch, "command "+req.Command)))
	return nil, nil
}

// Invoke calls the method or constructor name with positional script args.
// Missing args take the parameter's zero value; extra args are ignored.
func (d *Dispatcher) Invoke(desc *descriptor.Descriptor, target any, name string, args []any) (any, error) {
	m, ok := desc.Member(name)
	if !ok || (m.Kind != descriptor.KindMethod && m.Kind != descriptor.KindConstructor) {
		return nil, errors.NoSuchMember(desc.Name, name)
	}
	recv, err := receiver(desc, m, target)
	if err != nil {
		return nil, err
	}
	return d.call(desc, m, recv, args)
}

// NewInstance invokes constructor name and registers the resulting object
// under objectID. It reports whether the store accepted the object.
func (d *Dispatcher) NewInstance(desc *descriptor.Descriptor, target any, name, objectID string, args []any) (bool, error) {
	m, ok := desc.Member(name)
	if !ok || m.Kind != descriptor.KindConstructor {
		return false, errors.NoSuchMember(desc.Name, name)
	}
	recv, err := receiver(desc, m, target)
	if err != nil {
		return false, err
	}
	v, err := d.call(desc, m, recv, args)
	if err != nil {
		return false, err
	}
	obj, ok := v.(binding.Object)
	if !ok || binding.IsNil(obj) {
		return false, errors.New(errors.PhaseDispatch, errors.KindTypeMismatch).
			Path(desc.Name, name).
			Detail("constructor returned %T, not a binding object", v).
			Build()
	}
	if d.cfg.Store == nil {
		return false, errors.NotInitialized(errors.PhaseDispatch, "object store")
	}
	return d.cfg.Store.Register(objectID, obj), nil
}

// GetProperty reads property name.
func (d *Dispatcher) GetProperty(desc *descriptor.Descriptor, target any, name string) (any, error) {
	field, err := d.field(desc, target, name)
	if err != nil {
		return nil, err
	}
	return field.Interface(), nil
}

// SetProperty assigns value to property name. Writability only shapes the
// generated stub; the native side accepts every assignment.
func (d *Dispatcher) SetProperty(desc *descriptor.Descriptor, target any, name string, value any) error {
	field, err := d.field(desc, target, name)
	if err != nil {
		return err
	}
	v, err := convert(value, field.Type(), []string{desc.Name, name})
	if err != nil {
		return err
	}
	field.Set(v)
	return nil
}

// ToClass handles a postMessageToClass request, whose args are
// [memberName, [constructorName, memberArgs]]. The class is the nested
// descriptor of that constructor, or the extension class when there is
// none.
func (d *Dispatcher) ToClass(req *codec.Request) (any, error) {
	name, routed, err := codec.SplitRouted(req.Args)
	if err != nil {
		return nil, err
	}
	ctorName, args, err := codec.SplitRouted(routed)
	if err != nil {
		return nil, err
	}
	sub := req.Clone()
	sub.Name = name
	sub.Args = args
	return d.Handle(sub, d.cfg.Root.Target(ctorName), nil)
}

// ToObject handles a postMessageToObject request against the binding object
// registered under the request's object id, using the descriptor of its
// exact class.
func (d *Dispatcher) ToObject(req *codec.Request) (any, error) {
	if d.cfg.Store == nil {
		return nil, errors.NotInitialized(errors.PhaseDispatch, "object store")
	}
	sub := req.Clone()
	if req.Binary != nil {
		name, payload, err := codec.SplitMember(req.Binary)
		if err != nil {
			return nil, err
		}
		sub.Name, sub.Binary = name, payload
	} else {
		name, args, err := codec.SplitRouted(req.Args)
		if err != nil {
			return nil, err
		}
		sub.Name, sub.Args = name, args
	}

	obj, ok := d.cfg.Store.Get(req.ObjectID)
	if !ok && req.ObjectID == ExtensionObjectID {
		obj, ok = d.entryObject()
	}
	if !ok {
		return nil, errors.NotFound(errors.PhaseDispatch, "binding object", req.ObjectID)
	}
	desc, ok := d.cfg.Root.ForBindingClass(reflect.TypeOf(obj))
	if !ok {
		return nil, errors.InvalidTarget(d.cfg.Root.Name, sub.Name, obj)
	}
	return d.Handle(sub, desc, obj)
}

// entryObject is the live value of a binding-object entry point property.
// The module value of such an extension addresses it as object "0".
func (d *Dispatcher) entryObject() (binding.Object, bool) {
	entry := d.cfg.Root.EntryPoint()
	if entry == nil || entry.Kind != descriptor.KindProperty || d.cfg.Object == nil {
		return nil, false
	}
	field, err := d.field(d.cfg.Root, d.cfg.Object, entry.Name)
	if err != nil {
		Logger().Warn("entry point property unreadable", zap.String("name", entry.Name), zap.Error(err))
		return nil, false
	}
	obj, ok := field.Interface().(binding.Object)
	if !ok || binding.IsNil(obj) {
		return nil, false
	}
	return obj, true
}

func (d *Dispatcher) field(desc *descriptor.Descriptor, target any, name string) (reflect.Value, error) {
	m, ok := desc.Member(name)
	if !ok || m.Kind != descriptor.KindProperty {
		return reflect.Value{}, errors.NoSuchProperty(desc.Name, name)
	}
	recv, err := receiver(desc, m, target)
	if err != nil {
		return reflect.Value{}, err
	}
	field, err := recv.Elem().FieldByIndexErr(m.Field)
	if err != nil {
		return reflect.Value{}, errors.New(errors.PhaseDispatch, errors.KindInvalidTarget).
			Path(desc.Name, name).
			Cause(err).
			Build()
	}
	return field, nil
}

func (d *Dispatcher) call(desc *descriptor.Descriptor, m *descriptor.MemberInfo, recv reflect.Value, args []any) (result any, err error) {
	in := make([]reflect.Value, 0, len(m.Params)+1)
	in = append(in, recv)
	next := 0
	for i, p := range m.Params {
		if m.ContextParams[i] {
			in = append(in, reflect.ValueOf(d.context(desc)))
			continue
		}
		var a any
		if next < len(args) {
			a = args[next]
		}
		v, err := convert(a, p, []string{desc.Name, m.Name, fmt.Sprintf("arg%d", next)})
		if err != nil {
			return nil, err
		}
		in = append(in, v)
		next++
	}

	defer func() {
		if r := recover(); r != nil {
			Logger().Error("native member panicked",
				zap.String("class", desc.Name),
				zap.String("member", m.Name),
				zap.Any("panic", r))
			err = errors.Invocation(desc.Name, m.Name, fmt.Errorf("panic: %v", r))
		}
	}()
	out := m.Method.Func.Call(in)

	if m.ReturnsError {
		if e := out[len(out)-1]; !e.IsNil() {
			return nil, errors.Invocation(desc.Name, m.Name, e.Interface().(error))
		}
	}
	if m.Returns {
		return out[0].Interface(), nil
	}
	return nil, nil
}

// context addresses the class a static member belongs to: the extension
// object for the root class, the constructor otherwise.
func (d *Dispatcher) context(desc *descriptor.Descriptor) *notify.Context {
	if desc == d.cfg.Root {
		return notify.ForExtension(d.cfg.InstanceID, desc, d.cfg.Poster)
	}
	return notify.ForClass(d.cfg.InstanceID, desc, d.cfg.Poster)
}

// receiver returns the value m acts on. Static members use the class
// object; instance members require target to be of the described class.
func receiver(desc *descriptor.Descriptor, m *descriptor.MemberInfo, target any) (reflect.Value, error) {
	if m.Static {
		return desc.Proto, nil
	}
	rv := reflect.ValueOf(target)
	if !desc.IsInstance(rv) || rv.IsNil() {
		return reflect.Value{}, errors.InvalidTarget(desc.Name, m.Name, target)
	}
	return rv, nil
}
