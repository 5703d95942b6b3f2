// Package stubgen emits the JavaScript module that mirrors a descriptor.
//
// Every generated member funnels through helper.invokeNative, provided by
// the jsStub runtime the module loads with requireNative("jsStub"). For an
// extension with a method echo(string) string and a writable prefix the
// output contains:
//
//	function __echo(arg0_string) {
//	  return helper.invokeNative("postMessageToExtension", "echo", [arg0_string], true);
//	};
//	exports["echo"] = __echo;
//	jsStub.defineProperty("postMessageToExtension", exports, "prefix", true);
//
// Methods with a result are called synchronously; methods without one are
// posted. Promise methods are attached with jsStub.addMethodWithPromise.
// Constructors produce a prototype function laying out instance members,
// the constructor function itself, and a block wiring static members onto
// the constructor. An entry point replaces exports with that member.
//
// Output is deterministic: members appear in declaration order.
package stubgen
