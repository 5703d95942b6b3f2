// Package wasmext hosts extensions written as WebAssembly guests.
//
// A guest is a core module run by wazero. It exchanges raw message bytes
// with the host through linear memory:
//
//	exports
//	  memory
//	  xw_alloc(len i32) -> ptr i32
//	  xw_handle_message(instance, ptr, len i32)
//	  xw_handle_sync_message(instance, ptr, len i32)     optional
//	  xw_handle_binary_message(instance, ptr, len i32)   optional
//	  xw_instance_created(instance i32)                  optional
//	  xw_instance_destroyed(instance i32)                optional
//	  xw_lifecycle(event i32)                            optional
//
//	imports from "xwalk"
//	  post_message(instance, ptr, len i32)
//	  post_binary_message(instance, ptr, len i32)
//	  broadcast_message(ptr, len i32)
//	  set_sync_reply(ptr, len i32)
//
// Every inbound message is copied into a buffer obtained from xw_alloc
// before the handler runs; the guest owns that buffer afterwards. A sync
// handler answers by calling set_sync_reply before it returns.
//
// A guest exporting _initialize has it run once after instantiation. With
// Config.WASI set, wasi_snapshot_preview1 is provided as well, so reactors
// built by ordinary toolchains load unchanged.
//
// Lifecycle events are numbered start=0, resume=1, pause=2, stop=3,
// destroy=4.
package wasmext
