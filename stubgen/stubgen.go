package stubgen

import (
	"fmt"
	"reflect"
	"strings"
	"unicode"

	"github.com/crosswalk-project/crosswalk-sub003/codec"
	"github.com/crosswalk-project/crosswalk-sub003/descriptor"
)

// Header binds the helper runtime every generated stub relies on.
const Header = "var v8tools = requireNative(\"v8tools\");\n" +
	"var jsStubModule = requireNative(\"jsStub\");\n" +
	"jsStubModule.init(extension, v8tools);\n" +
	"var jsStub = jsStubModule.jsStub;\n" +
	"var helper = jsStub.createRootStub(exports);\n"

// Generate returns the JavaScript module source mirroring d and its nested
// constructor targets. The source runs with exports, extension and
// requireNative in scope and leaves the module value in exports.
func Generate(d *descriptor.Descriptor) string {
	g := &generator{root: d}
	return g.generate()
}

type generator struct {
	root *descriptor.Descriptor
}

func (g *generator) generate() string {
	var out string
	if entry := g.root.EntryPoint(); entry != nil {
		out = g.entryPoint(entry)
	}
	if out == "" {
		out = Header
	}
	out += eventTarget(g.root)

	for _, m := range g.root.Members() {
		if m.EntryPoint {
			continue
		}
		switch m.Kind {
		case descriptor.KindProperty:
			out += property(codec.MsgToExtension, m)
		case descriptor.KindMethod:
			out += method(codec.MsgToExtension, m, true)
		case descriptor.KindConstructor:
			out += g.constructor(m, true)
		}
	}
	return out + "\n"
}

// entryPoint makes the module value itself the entry member.
func (g *generator) entryPoint(entry *descriptor.MemberInfo) string {
	switch entry.Kind {
	case descriptor.KindProperty:
		return Header + fmt.Sprintf("%s(exports, helper);\n", prototypeName(g.bindingName(entry.Type)))
	case descriptor.KindMethod:
		return fmt.Sprintf("exports = %s;\n %s\n %s",
			internalName(entry.Name), Header, method(codec.MsgToExtension, entry, false))
	case descriptor.KindConstructor:
		return fmt.Sprintf("exports = %s;\n %s\n %s",
			entry.Name, Header, g.constructor(entry, false))
	}
	return ""
}

// bindingName is the constructor name exposing t, or t's Go name when no
// constructor builds it.
func (g *generator) bindingName(t reflect.Type) string {
	if nested, ok := g.root.ForBindingClass(t); ok {
		return nested.Name
	}
	return typeName(t)
}

func (g *generator) constructor(m *descriptor.MemberInfo, isMember bool) string {
	name := m.Name
	protoFunc := prototypeName(name)
	args := argString(m)
	target := g.root.Target(name)
	inst, static := classMembers(target)

	proto := fmt.Sprintf("function %s(exports, helper){\n%s\n%s\n}\n",
		protoFunc, inst, destroyBindingObject(target))

	self := fmt.Sprintf("function %s(%s) {\n"+
		"var newObject = this;\n"+
		"var objectId =\n"+
		"Number(helper.invokeNative(\"%s\", \"+%s\", [%s], true));\n"+
		"if (!objectId) throw \"Error to create instance for constructor:%s.\";\n"+
		"var objectHelper = jsStub.getHelper(newObject, helper);\n"+
		"objectHelper.objectId = objectId;\n"+
		"objectHelper.constructorJsName = \"%s\";\n"+
		"objectHelper.registerLifecycleTracker();"+
		"%s(newObject, objectHelper);\n"+
		"helper.addBindingObject(objectId, newObject);}\n"+
		"helper.constructors[\"%s\"] = %s;\n",
		name, args, codec.MsgToExtension, name, args, name, name,
		protoFunc, name, name)

	staticStr := fmt.Sprintf("(function(exports, helper){\n"+
		"  helper.constructorJsName = \"%s\";\n"+
		"%s\n"+
		"})(%s, jsStub.getHelper(%s, helper));\n",
		name, static, name, name)

	out := proto + self + staticStr
	if isMember {
		out += fmt.Sprintf("exports[\"%s\"] = %s;\n", name, name)
	}
	return out
}

// classMembers lays out a constructor target's instance members and its
// static members. Constructors declared on a target class are not exposed.
func classMembers(d *descriptor.Descriptor) (inst, static string) {
	events := eventTarget(d)
	inst, static = events, events
	for _, m := range d.Members() {
		msgType := codec.MsgToObject
		if m.Static {
			msgType = codec.MsgToClass
		}
		var s string
		switch m.Kind {
		case descriptor.KindProperty:
			s = property(msgType, m)
		case descriptor.KindMethod:
			s = method(msgType, m, true)
		}
		if m.Static {
			static += s
		} else {
			inst += s
		}
	}
	return inst, static
}

func destroyBindingObject(d *descriptor.Descriptor) string {
	var b strings.Builder
	b.WriteString("exports.destroy = function() {\n")
	for _, m := range d.Members() {
		fmt.Fprintf(&b, "delete exports[\"%s\"];\n", m.Name)
	}
	b.WriteString("helper.destroy();\n")
	b.WriteString("delete exports[\"__stubHelper\"];\n")
	b.WriteString("delete exports[\"destroy\"];\n")
	b.WriteString("};")
	return b.String()
}

func eventTarget(d *descriptor.Descriptor) string {
	events, _ := d.EventList()
	if len(events) == 0 {
		return ""
	}
	var b strings.Builder
	b.WriteString("jsStub.makeEventTarget(exports);\n")
	for _, e := range events {
		fmt.Fprintf(&b, "helper.addEvent(\"%s\");\n", e)
	}
	return b.String()
}

func property(msgType string, m *descriptor.MemberInfo) string {
	return fmt.Sprintf("jsStub.defineProperty(\"%s\", exports, \"%s\", %t);\n",
		msgType, m.Name, m.Writable)
}

func wrappers(m *descriptor.MemberInfo) (wrapArgs, wrapReturns string) {
	wrapArgs, wrapReturns = m.WrapArgs, m.WrapReturns
	if wrapArgs == "" {
		wrapArgs = "null"
	}
	if wrapReturns == "" {
		wrapReturns = "null"
	}
	return wrapArgs, wrapReturns
}

// promiseMethod attaches a promise-returning member. As the module value it
// becomes a named function forwarding to the promise implementation.
func promiseMethod(msgType string, m *descriptor.MemberInfo, isMember bool) string {
	wrapArgs, wrapReturns := wrappers(m)
	if isMember {
		return fmt.Sprintf("jsStub.addMethodWithPromise(\"%s\", exports, \"%s\", %s, %s);\n",
			msgType, m.Name, wrapArgs, wrapReturns)
	}
	iName := internalName(m.Name)
	return fmt.Sprintf("function %s() {\n  return %s_promise.apply(this, arguments);\n};\n"+
		"var %s_promise = jsStub.makeMethodWithPromise(\"%s\", exports, \"%s\", %s, %s);\n",
		iName, iName, iName, msgType, m.Name, wrapArgs, wrapReturns)
}

// method emits a named wrapper. It returns the native result only when the
// Go method has one; otherwise the call is posted without waiting.
func method(msgType string, m *descriptor.MemberInfo, isMember bool) string {
	if m.Promise {
		return promiseMethod(msgType, m, isMember)
	}
	name := m.Name
	iName := internalName(name)
	args := argString(m)
	sync := m.Sync()

	ret := "  "
	if sync {
		ret = "  return "
	}
	out := fmt.Sprintf("function %s(%s) {\n%shelper.invokeNative(\"%s\", \"%s\", [%s], %t);\n};\n",
		iName, args, ret, msgType, name, args, sync)
	if isMember {
		out += fmt.Sprintf("exports[\"%s\"] = %s;\n", name, iName)
	}
	return out
}

// argString names the script parameters arg<i>_<Type>.
func argString(m *descriptor.MemberInfo) string {
	params := m.ScriptParams()
	names := make([]string, len(params))
	for i, p := range params {
		names[i] = fmt.Sprintf("arg%d_%s", i, typeName(p))
	}
	return strings.Join(names, ", ")
}

func internalName(name string) string {
	return "__" + name
}

func prototypeName(name string) string {
	return "__" + name + "_prototype"
}

// typeName returns an identifier-safe simple name for t.
func typeName(t reflect.Type) string {
	switch t.Kind() {
	case reflect.Pointer:
		return typeName(t.Elem())
	case reflect.Slice, reflect.Array:
		if t.Name() == "" {
			return typeName(t.Elem()) + "Array"
		}
	case reflect.Map:
		if t.Name() == "" {
			return "Map"
		}
	case reflect.Interface:
		if t.Name() == "" {
			return "Object"
		}
	}
	name := strings.Map(func(r rune) rune {
		if r == '_' || unicode.IsLetter(r) || unicode.IsDigit(r) {
			return r
		}
		return -1
	}, t.Name())
	if name == "" {
		return t.Kind().String()
	}
	return name
}
