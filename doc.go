// Package crosswalk bridges native Go objects to JavaScript through
// message-passing extensions.
//
// An extension exposes one native object to every script context. Its
// methods, properties and constructors are described once, a JavaScript stub
// mirroring that surface is generated from the description, and the stub
// turns script calls into JSON (or binary) messages that the native side
// decodes and dispatches back onto the object.
//
// # Architecture Overview
//
//	crosswalk/           Root package with the Extension and Poster interfaces
//	├── descriptor/      Capability descriptor: the exposed members of a class
//	├── reflector/       Builds descriptors from Go types, specs, tags and YAML
//	├── stubgen/         Generates the JavaScript stub for a descriptor
//	├── codec/           Request parsing, binary frames and outbound messages
//	├── dispatch/        Invokes members on the extension, classes and objects
//	├── binding/         Object store for script-created binding objects
//	├── notify/          Native-initiated messages: callbacks, events, updates
//	├── extension/       Extension built from a native object
//	├── runtime/         Extension registry and per-script-context routing
//	├── wasmext/         Extensions implemented as WebAssembly guests
//	├── jscontext/       goja script context running the generated stubs
//	├── errors/          Structured error types
//	└── cmd/xesh/        Interactive extensions shell
//
// # Quick Start
//
// Describe a native type and expose it:
//
//	b := reflector.NewBuilder()
//	b.Register(&Echo{}, reflector.Class("Echo").
//	    Method("Echo").
//	    Property("Prefix", reflector.Writable()))
//
//	ext, err := extension.New(&Echo{}, extension.Config{Name: "xwalk.echo", Builder: b})
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	rt := runtime.New()
//	defer rt.Close(ctx)
//	if err := rt.Register(ext); err != nil {
//	    log.Fatal(err)
//	}
//
//	sc, err := jscontext.New(ctx, rt, jscontext.Config{})
//	if err != nil {
//	    log.Fatal(err)
//	}
//	_ = sc.Load()
//	v, _ := sc.Run(`xwalk.echo.echo("hi")`)
//
// # Message Forms
//
// Scripts reach native code in three shapes: a JSON object
// {cmd, type, objectId, name, args}, a JSON array [name, callbackId,
// objectId, args...], and a binary frame. Replies to array requests are
// [callbackId, result]; synchronous requests get the result as JSON text.
//
// # Thread Safety
//
// Runtime, Extension and the object store are safe for concurrent use. A
// jscontext.Context belongs to the goroutine that owns its VM; extensions
// may post to it from anywhere, and messages wait for its Pump.
package crosswalk
