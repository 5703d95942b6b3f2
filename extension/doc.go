// Package extension turns a native Go object into a crosswalk.Extension.
//
// New builds the object's descriptor with a reflector.Builder and, unless a
// hand-written API is supplied, generates the JavaScript stub from it:
//
//	ext, err := extension.New(&Echo{}, extension.Config{
//		Name:    "xwalk.echo",
//		Builder: builder,
//	})
//
// Each script context the host opens becomes an Instance with its own
// binding object store and dispatcher. Requests are routed by name through
// a handler table copied when the instance is created: one entry per member
// of the extension class plus JSObjectCollected, postMessageToClass and
// postMessageToObject. Handle adds or replaces entries for instances created
// afterwards.
//
// Replies follow the request shape. Array-form calls are answered with
// [callbackId, result], sync calls return the result as JSON text ("" for
// none), binary calls get the callback id followed by the result bytes, and
// object-form async calls get nothing; members answer those through script
// callbacks.
//
// Requests that fail to parse or dispatch are logged and dropped.
package extension
