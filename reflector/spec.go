package reflector

// MemberKind selects how a declared member is exposed.
type MemberKind string

const (
	Method      MemberKind = "method"
	Property    MemberKind = "property"
	Constructor MemberKind = "constructor"
	// Events marks a []string field whose value is the class's event list.
	Events MemberKind = "events"
)

// MemberSpec declares one exposed member of a native class.
type MemberSpec struct {
	Kind MemberKind `yaml:"kind"`
	// Go is the Go method or field name.
	Go string `yaml:"go"`
	// Name is the script-visible name. It defaults to Go in lowerCamel case.
	// Constructors always take the name of the class they build.
	Name        string `yaml:"name,omitempty"`
	Static      bool   `yaml:"static,omitempty"`
	Writable    bool   `yaml:"writable,omitempty"`
	EntryPoint  bool   `yaml:"entryPoint,omitempty"`
	Promise     bool   `yaml:"promise,omitempty"`
	WrapArgs    string `yaml:"wrapArgs,omitempty"`
	WrapReturns string `yaml:"wrapReturns,omitempty"`
	// List gives the event names inline for an Events member with no field.
	List []string `yaml:"list,omitempty"`
}

// ClassSpec declares the exposed surface of a native class.
type ClassSpec struct {
	// Name is the script-visible class name. It defaults to the Go type name.
	Name string `yaml:"name,omitempty"`
	// Type names the Go type a schema entry applies to, either bare
	// ("Echo") or package qualified ("echo.Echo").
	Type    string       `yaml:"type,omitempty"`
	Members []MemberSpec `yaml:"members"`
}

// Declarer is implemented by native types that declare their own surface.
type Declarer interface {
	JSAPI() *ClassSpec
}

// Option adjusts a member declaration.
type Option func(*MemberSpec)

// Named overrides the exposed name.
func Named(name string) Option {
	return func(m *MemberSpec) { m.Name = name }
}

// Static binds the member to the class object rather than an instance.
func Static() Option {
	return func(m *MemberSpec) { m.Static = true }
}

// Writable lets scripts assign the property.
func Writable() Option {
	return func(m *MemberSpec) { m.Writable = true }
}

// EntryPoint makes the member the module's default export.
func EntryPoint() Option {
	return func(m *MemberSpec) { m.EntryPoint = true }
}

// Promise exposes the method as promise-returning. The Go method takes the
// callback id as its last parameter.
func Promise() Option {
	return func(m *MemberSpec) { m.Promise = true }
}

// WrapArgs names a script function that packs promise arguments.
func WrapArgs(fn string) Option {
	return func(m *MemberSpec) { m.WrapArgs = fn }
}

// WrapReturns names a script function that unpacks promise results.
func WrapReturns(fn string) Option {
	return func(m *MemberSpec) { m.WrapReturns = fn }
}

// Class starts a declaration for the exposed class name.
func Class(name string) *ClassSpec {
	return &ClassSpec{Name: name}
}

// Method declares an exposed method.
func (c *ClassSpec) Method(goName string, opts ...Option) *ClassSpec {
	return c.add(Method, goName, opts)
}

// Property declares an exposed field.
func (c *ClassSpec) Property(goName string, opts ...Option) *ClassSpec {
	return c.add(Property, goName, opts)
}

// Constructor declares a method that builds binding objects.
func (c *ClassSpec) Constructor(goName string, opts ...Option) *ClassSpec {
	return c.add(Constructor, goName, opts)
}

// Events declares the []string field holding the event list.
func (c *ClassSpec) Events(goField string) *ClassSpec {
	return c.add(Events, goField, nil)
}

// EventNames declares the event list inline.
func (c *ClassSpec) EventNames(names ...string) *ClassSpec {
	c.Members = append(c.Members, MemberSpec{Kind: Events, List: names})
	return c
}

func (c *ClassSpec) add(kind MemberKind, goName string, opts []Option) *ClassSpec {
	m := MemberSpec{Kind: kind, Go: goName}
	for _, opt := range opts {
		opt(&m)
	}
	c.Members = append(c.Members, m)
	return c
}

func (c *ClassSpec) declares(goName string) bool {
	for _, m := range c.Members {
		if m.Go != "" && m.Go == goName {
			return true
		}
	}
	return false
}
