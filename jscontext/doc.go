// Package jscontext runs extension JavaScript APIs in a goja VM.
//
// A Context is one script context of a runtime.Runtime. Install evaluates an
// extension's API inside
//
//	(function(extension, requireNative) { var exports = {}; ...; return exports; })
//
// and publishes the resulting exports under the extension's dotted name, so
// "xwalk.echo" becomes the global xwalk.echo. The extension object offers
// postMessage (string or ArrayBuffer), internal.sendSyncMessage and
// setMessageListener; requireNative serves "jsStub", the helper runtime
// generated stubs are written against, and "v8tools".
//
// Extensions post asynchronously from any goroutine. Their messages are
// queued and handed to listeners by Pump, on the goroutine that owns the VM;
// Run pumps after every script.
package jscontext
