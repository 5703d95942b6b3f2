package descriptor

import (
	"reflect"
	"slices"

	"github.com/crosswalk-project/crosswalk-sub003/errors"
)

// Kind is the category of an exposed member. It never changes after the
// member is built.
type Kind uint8

const (
	KindMethod Kind = iota
	KindProperty
	KindConstructor
)

func (k Kind) String() string {
	switch k {
	case KindMethod:
		return "method"
	case KindProperty:
		return "property"
	case KindConstructor:
		return "constructor"
	}
	return "unknown"
}

// MemberInfo describes one exposed member of a native class.
type MemberInfo struct {
	// Name is the script-visible name. For constructors it is the target
	// class name.
	Name string
	// GoName is the Go method or field the member is bound to.
	GoName string

	Kind        Kind
	Static      bool
	Writable    bool
	EntryPoint  bool
	Promise     bool
	WrapArgs    string
	WrapReturns string

	// Method is set for methods and constructors. It belongs to the
	// descriptor's pointer type, so Func takes the receiver first.
	Method reflect.Method
	// Params are the declared parameter types, receiver excluded.
	Params []reflect.Type
	// ContextParams marks parameters filled by the dispatcher instead of
	// script arguments.
	ContextParams []bool
	// Returns reports whether the method yields a value other than an error.
	Returns bool
	// ReturnsError reports whether the last result is an error.
	ReturnsError bool

	// Field is the index path of a property within the struct.
	Field []int
	// Type is the property's Go type.
	Type reflect.Type

	// Target is the class a constructor builds.
	Target reflect.Type
}

// ScriptParams returns the parameters a script supplies, in order.
func (m *MemberInfo) ScriptParams() []reflect.Type {
	out := make([]reflect.Type, 0, len(m.Params))
	for i, p := range m.Params {
		if i < len(m.ContextParams) && m.ContextParams[i] {
			continue
		}
		out = append(out, p)
	}
	return out
}

// Sync reports whether script callers wait for a result.
func (m *MemberInfo) Sync() bool {
	return m.Returns
}

// Descriptor is the exposed surface of one native class. It is immutable once
// the builder hands it out and may be shared by any number of instances.
type Descriptor struct {
	// Name is the script-visible class name.
	Name string
	// Type is the pointer type of the native class.
	Type reflect.Type
	// Proto is the class object static members act on.
	Proto reflect.Value

	members        map[string]*MemberInfo
	order          []string
	events         []string
	hasEvents      bool
	entry          *MemberInfo
	bindingClasses map[reflect.Type]string
	nested         map[string]*Descriptor
}

// New creates an empty descriptor for the class of proto.
func New(name string, proto reflect.Value) *Descriptor {
	return &Descriptor{
		Name:           name,
		Type:           proto.Type(),
		Proto:          proto,
		members:        make(map[string]*MemberInfo),
		bindingClasses: make(map[reflect.Type]string),
		nested:         make(map[string]*Descriptor),
	}
}

// Add registers m. A name already present is rejected and the existing
// member kept. An entry point after the first is rejected.
func (d *Descriptor) Add(m *MemberInfo) error {
	if m.EntryPoint && d.entry != nil {
		return errors.DuplicateEntryPoint(d.Name, m.Name, d.entry.Name)
	}
	if _, ok := d.members[m.Name]; ok {
		return errors.NameCollision(d.Name, m.Name)
	}
	d.members[m.Name] = m
	d.order = append(d.order, m.Name)
	if m.EntryPoint {
		d.entry = m
	}
	return nil
}

// SetEventList records the supported events. A class has at most one list.
func (d *Descriptor) SetEventList(events []string) error {
	if d.hasEvents {
		return errors.New(errors.PhaseDescribe, errors.KindInvalidEventList).
			Path(d.Name).
			Detail("event list already declared").
			Build()
	}
	d.events = slices.Clone(events)
	d.hasEvents = true
	return nil
}

// AddNested records the descriptor a constructor builds.
func (d *Descriptor) AddNested(name string, nested *Descriptor) {
	d.nested[name] = nested
	d.bindingClasses[nested.Type] = name
}

// Member returns the member named name.
func (d *Descriptor) Member(name string) (*MemberInfo, bool) {
	m, ok := d.members[name]
	return m, ok
}

// Members returns all members in declaration order.
func (d *Descriptor) Members() []*MemberInfo {
	out := make([]*MemberInfo, 0, len(d.order))
	for _, name := range d.order {
		out = append(out, d.members[name])
	}
	return out
}

// Len returns the number of members.
func (d *Descriptor) Len() int {
	return len(d.order)
}

// HasMethod reports whether name is a method or constructor.
func (d *Descriptor) HasMethod(name string) bool {
	m, ok := d.members[name]
	return ok && (m.Kind == KindMethod || m.Kind == KindConstructor)
}

// HasProperty reports whether name is a property.
func (d *Descriptor) HasProperty(name string) bool {
	m, ok := d.members[name]
	return ok && m.Kind == KindProperty
}

// EventList returns the declared events and whether a list was declared.
func (d *Descriptor) EventList() ([]string, bool) {
	return d.events, d.hasEvents
}

// SupportsEvent reports whether name is in the event list.
func (d *Descriptor) SupportsEvent(name string) bool {
	return slices.Contains(d.events, name)
}

// EntryPoint returns the default export, if any.
func (d *Descriptor) EntryPoint() *MemberInfo {
	return d.entry
}

// Nested returns the descriptor of the class the named constructor builds.
func (d *Descriptor) Nested(name string) (*Descriptor, bool) {
	n, ok := d.nested[name]
	return n, ok
}

// ForBindingClass returns the nested descriptor of the class t, matched by
// exact type.
func (d *Descriptor) ForBindingClass(t reflect.Type) (*Descriptor, bool) {
	name, ok := d.bindingClasses[t]
	if !ok {
		return nil, false
	}
	return d.Nested(name)
}

// Target resolves the descriptor for a class-targeted message, falling back
// to d itself when name is not a nested constructor.
func (d *Descriptor) Target(name string) *Descriptor {
	if n, ok := d.nested[name]; ok {
		return n
	}
	return d
}

// IsInstance reports whether v is an instance of the described class.
func (d *Descriptor) IsInstance(v reflect.Value) bool {
	return v.IsValid() && v.Type() == d.Type
}
