// Package dispatch performs decoded requests against native objects.
//
// A Dispatcher serves one extension instance. Handle takes a request, the
// descriptor of the class it addresses, and the target object:
//
//	invokeNative   call a method or constructor, normalize the result
//	newInstance    call a constructor, register the object under the
//	               request's object id, report whether the store took it
//	getProperty    read a field, normalize it
//	setProperty    assign args[0] to a field
//
// ToClass and ToObject unwrap the two routed forms, resolving the nested
// descriptor by constructor name or the live object and its exact class
// before delegating to Handle.
//
// Script arguments are matched to parameters by position. Numbers are
// converted to the parameter's numeric type with range checks; structs,
// slices and maps are filled through encoding/json. A static member may
// take a *notify.Context, which is supplied here and consumes no script
// argument.
//
// Errors come back as *errors.Error in the dispatch phase: no_such_member,
// no_such_property, invalid_target, type_mismatch, and invocation when the
// native member returns an error or panics.
package dispatch
