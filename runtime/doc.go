// Package runtime routes messages between script contexts and extensions.
//
// A Runtime is a registry of crosswalk.Extension values keyed by name. Each
// script context opened with NewContext gets a Context, which creates an
// extension instance the first time it addresses that extension:
//
//	rt := runtime.New()
//	defer rt.Close(ctx)
//
//	if err := rt.Register(echoExt); err != nil {
//	    return err
//	}
//	sc, err := rt.NewContext(sink)
//	if err != nil {
//	    return err
//	}
//	reply, err := sc.SendSyncMessage(ctx, "xwalk.echo", `["echo","1","0","hi"]`)
//
// Instance ids are unique across the runtime. Messages an extension posts
// for an instance are delivered to the Sink of the context that owns it;
// broadcasts reach every context holding an instance of that extension.
// Closing a context destroys its instances; closing the runtime closes
// every context.
package runtime
