// Package reflector builds descriptors from native Go types.
//
// Nothing is exposed implicitly. A class declares its members in one of
// four ways, checked in this order:
//
//	b.Register(&Echo{}, reflector.Class("Echo").
//	    Method("Echo").
//	    Property("Prefix", reflector.Writable()).
//	    Constructor("NewEchoObject").
//	    Events("Events"))
//
//	func (*Echo) JSAPI() *reflector.ClassSpec { ... }  // Declarer
//
//	b.LoadSchema(f)  // YAML, see Schema
//
//	type Echo struct {
//	    Prefix string   `jsapi:"prefix,writable"`
//	    Events []string `jsapi:",events"`
//	}
//
// Script names default to the Go name in lowerCamel case. Constructors are
// named after the class they build, and that class is described
// recursively into a nested descriptor.
//
// Methods may return nothing, an error, a value, or a value and an error.
// Static methods may take a *notify.Context anywhere in their parameter
// list; it is filled by the dispatcher and takes no script argument.
//
// Structural problems (unknown names, bad signatures, duplicate names or
// entry points) drop the member with a warning on Logger(); the rest of
// the class is still described.
package reflector
