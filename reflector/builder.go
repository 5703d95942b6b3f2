package reflector

import (
	"fmt"
	"reflect"
	"slices"
	"sync"

	"go.uber.org/zap"

	"github.com/crosswalk-project/crosswalk-sub003/binding"
	"github.com/crosswalk-project/crosswalk-sub003/descriptor"
	"github.com/crosswalk-project/crosswalk-sub003/errors"
	"github.com/crosswalk-project/crosswalk-sub003/notify"
)

var (
	contextType = reflect.TypeOf((*notify.Context)(nil))
	errorType   = reflect.TypeOf((*error)(nil)).Elem()
	objectType  = reflect.TypeOf((*binding.Object)(nil)).Elem()
	stringsType = reflect.TypeOf([]string(nil))
)

type registration struct {
	proto reflect.Value
	spec  *ClassSpec
}

// Builder turns native types plus their declarations into descriptors.
//
// Declarations are looked up in order: Register, the type's own JSAPI method,
// a loaded schema entry, and finally jsapi struct tags alone. Tags on fields
// not otherwise declared are always added.
type Builder struct {
	mu     sync.RWMutex
	byType map[reflect.Type]registration
	named  map[string]*ClassSpec
}

// NewBuilder creates an empty builder.
func NewBuilder() *Builder {
	return &Builder{
		byType: make(map[reflect.Type]registration),
		named:  make(map[string]*ClassSpec),
	}
}

// Register declares the surface of proto's class. proto also becomes the
// class object whenever the class is reached as a constructor target.
func (b *Builder) Register(proto any, spec *ClassSpec) {
	rv := reflect.ValueOf(proto)
	b.mu.Lock()
	defer b.mu.Unlock()
	b.byType[rv.Type()] = registration{proto: rv, spec: spec}
}

// Build describes proto, which must be a non-nil pointer to a struct. The
// pointed-to value is the class object static members act on.
//
// Problems with individual members are logged and the member is skipped;
// only an unusable proto is an error.
func (b *Builder) Build(proto any) (*descriptor.Descriptor, error) {
	rv := reflect.ValueOf(proto)
	if !rv.IsValid() || !isStructPtr(rv.Type()) || rv.IsNil() {
		return nil, errors.New(errors.PhaseDescribe, errors.KindInvalidInput).
			GoType(fmt.Sprintf("%T", proto)).
			Detail("proto must be a non-nil pointer to a struct").
			Build()
	}
	return b.build(rv, make(map[reflect.Type]bool)), nil
}

func (b *Builder) build(proto reflect.Value, visiting map[reflect.Type]bool) *descriptor.Descriptor {
	t := proto.Type()
	spec := b.specFor(proto)
	name := spec.Name
	if name == "" {
		name = t.Elem().Name()
	}
	d := descriptor.New(name, proto)

	visiting[t] = true
	defer delete(visiting, t)

	members := append(slices.Clone(spec.Members), tagMembers(t.Elem(), spec)...)
	for _, ms := range members {
		var (
			m      *descriptor.MemberInfo
			nested *descriptor.Descriptor
			err    error
		)
		switch ms.Kind {
		case Method:
			m, err = b.method(d, ms)
		case Constructor:
			m, nested, err = b.constructor(d, ms, visiting)
		case Property:
			m, err = b.property(d, ms)
		case Events:
			err = b.events(d, ms)
		default:
			err = errors.New(errors.PhaseDescribe, errors.KindInvalidInput).
				Path(d.Name, ms.Go).
				Detail("unknown member kind %q", ms.Kind).
				Build()
		}
		if err == nil && m != nil {
			err = d.Add(m)
		}
		if err != nil {
			Logger().Warn("skipping member",
				zap.String("class", d.Name),
				zap.String("member", ms.Go),
				zap.Error(err))
			continue
		}
		if nested != nil {
			d.AddNested(m.Name, nested)
		}
	}
	return d
}

func (b *Builder) specFor(proto reflect.Value) *ClassSpec {
	t := proto.Type()
	b.mu.RLock()
	reg, ok := b.byType[t]
	b.mu.RUnlock()
	if ok && reg.spec != nil {
		return reg.spec
	}
	if dec, ok := proto.Interface().(Declarer); ok {
		if spec := dec.JSAPI(); spec != nil {
			return spec
		}
	}
	b.mu.RLock()
	defer b.mu.RUnlock()
	if spec, ok := b.named[t.Elem().String()]; ok {
		return spec
	}
	if spec, ok := b.named[t.Elem().Name()]; ok {
		return spec
	}
	return &ClassSpec{}
}

func (b *Builder) protoFor(t reflect.Type) reflect.Value {
	b.mu.RLock()
	reg, ok := b.byType[t]
	b.mu.RUnlock()
	if ok {
		return reg.proto
	}
	return reflect.New(t.Elem())
}

func (b *Builder) method(d *descriptor.Descriptor, ms MemberSpec) (*descriptor.MemberInfo, error) {
	fn, err := lookupMethod(d, ms)
	if err != nil {
		return nil, err
	}
	m := &descriptor.MemberInfo{
		Name:        ms.Name,
		GoName:      ms.Go,
		Kind:        descriptor.KindMethod,
		Static:      ms.Static,
		EntryPoint:  ms.EntryPoint,
		Promise:     ms.Promise,
		WrapArgs:    ms.WrapArgs,
		WrapReturns: ms.WrapReturns,
		Method:      fn,
	}
	if m.Name == "" {
		m.Name = lowerCamel(ms.Go)
	}
	if err := signature(d, m); err != nil {
		return nil, err
	}
	if m.Promise && len(m.ScriptParams()) == 0 {
		return nil, errors.New(errors.PhaseDescribe, errors.KindInvalidInput).
			Path(d.Name, m.Name).
			Detail("promise method needs a trailing callback id parameter").
			Build()
	}
	return m, nil
}

func (b *Builder) constructor(d *descriptor.Descriptor, ms MemberSpec, visiting map[reflect.Type]bool) (*descriptor.MemberInfo, *descriptor.Descriptor, error) {
	fn, err := lookupMethod(d, ms)
	if err != nil {
		return nil, nil, err
	}
	m := &descriptor.MemberInfo{
		GoName:     ms.Go,
		Kind:       descriptor.KindConstructor,
		Static:     ms.Static,
		EntryPoint: ms.EntryPoint,
		Method:     fn,
	}
	if err := signature(d, m); err != nil {
		return nil, nil, err
	}
	ft := fn.Type
	if ft.NumOut() == 0 {
		return nil, nil, errors.UnresolvedTarget(d.Name, ms.Go, "")
	}
	target := ft.Out(0)
	if !isStructPtr(target) || !target.Implements(objectType) {
		return nil, nil, errors.UnresolvedTarget(d.Name, ms.Go, target.String())
	}
	if visiting[target] {
		return nil, nil, errors.New(errors.PhaseDescribe, errors.KindUnresolvedTarget).
			Path(d.Name, ms.Go).
			GoType(target.String()).
			Detail("constructor target encloses its own constructor").
			Build()
	}
	nested := b.build(b.protoFor(target), visiting)
	m.Name = nested.Name
	m.Target = target
	return m, nested, nil
}

func (b *Builder) property(d *descriptor.Descriptor, ms MemberSpec) (*descriptor.MemberInfo, error) {
	f, ok := d.Type.Elem().FieldByName(ms.Go)
	if !ok || !f.IsExported() {
		return nil, errors.New(errors.PhaseDescribe, errors.KindNotFound).
			Path(d.Name, ms.Go).
			GoType(d.Type.String()).
			Detail("no exported field").
			Build()
	}
	if ms.EntryPoint && !f.Type.Implements(objectType) {
		return nil, errors.New(errors.PhaseDescribe, errors.KindInvalidInput).
			Path(d.Name, ms.Go).
			GoType(f.Type.String()).
			Detail("entry point property must hold a binding object").
			Build()
	}
	name := ms.Name
	if name == "" {
		name = lowerCamel(ms.Go)
	}
	return &descriptor.MemberInfo{
		Name:       name,
		GoName:     ms.Go,
		Kind:       descriptor.KindProperty,
		Static:     ms.Static,
		Writable:   ms.Writable,
		EntryPoint: ms.EntryPoint,
		Field:      f.Index,
		Type:       f.Type,
	}, nil
}

func (b *Builder) events(d *descriptor.Descriptor, ms MemberSpec) error {
	if ms.Go == "" {
		return d.SetEventList(ms.List)
	}
	f, ok := d.Type.Elem().FieldByName(ms.Go)
	if !ok || !f.IsExported() || f.Type != stringsType {
		return errors.New(errors.PhaseDescribe, errors.KindInvalidEventList).
			Path(d.Name, ms.Go).
			Detail("event list must be an exported []string field").
			Build()
	}
	list := d.Proto.Elem().FieldByIndex(f.Index).Interface().([]string)
	return d.SetEventList(list)
}

func lookupMethod(d *descriptor.Descriptor, ms MemberSpec) (reflect.Method, error) {
	if !isExported(ms.Go) {
		return reflect.Method{}, errors.New(errors.PhaseDescribe, errors.KindNotFound).
			Path(d.Name, ms.Go).
			Detail("method is not exported").
			Build()
	}
	fn, ok := d.Type.MethodByName(ms.Go)
	if !ok {
		return reflect.Method{}, errors.New(errors.PhaseDescribe, errors.KindNotFound).
			Path(d.Name, ms.Go).
			GoType(d.Type.String()).
			Detail("no such method").
			Build()
	}
	return fn, nil
}

// signature fills the parameter and result shape of m from its Go method.
// Results may be (), (error), (T) or (T, error).
func signature(d *descriptor.Descriptor, m *descriptor.MemberInfo) error {
	ft := m.Method.Type
	if ft.IsVariadic() {
		return errors.New(errors.PhaseDescribe, errors.KindUnsupported).
			Path(d.Name, m.GoName).
			Detail("variadic methods cannot be exposed").
			Build()
	}
	for i := 1; i < ft.NumIn(); i++ {
		p := ft.In(i)
		isCtx := p == contextType
		if isCtx && !m.Static {
			return errors.New(errors.PhaseDescribe, errors.KindInvalidInput).
				Path(d.Name, m.GoName).
				Detail("only static members can take a *notify.Context").
				Build()
		}
		m.Params = append(m.Params, p)
		m.ContextParams = append(m.ContextParams, isCtx)
	}

	switch ft.NumOut() {
	case 0:
	case 1:
		if ft.Out(0) == errorType {
			m.ReturnsError = true
		} else {
			m.Returns = true
		}
	case 2:
		if ft.Out(1) != errorType {
			return badResults(d, m)
		}
		m.Returns = true
		m.ReturnsError = true
	default:
		return badResults(d, m)
	}
	return nil
}

func badResults(d *descriptor.Descriptor, m *descriptor.MemberInfo) error {
	return errors.New(errors.PhaseDescribe, errors.KindUnsupported).
		Path(d.Name, m.GoName).
		Detail("results must be (), (error), (T) or (T, error)").
		Build()
}

func isStructPtr(t reflect.Type) bool {
	return t != nil && t.Kind() == reflect.Pointer && t.Elem().Kind() == reflect.Struct
}
