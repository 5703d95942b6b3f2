// Package binding manages the native objects that back script-side objects.
//
// A script constructor call mints an object id and asks the native side to
// build the object; the result is registered in the calling instance's
// Store under that id:
//
//	store := binding.NewStore(contextFor)
//	store.Register("1", obj)      // OnBound fires
//	obj, ok := store.Get("1")
//	store.Unregister("1")         // OnUnbound fires first
//
// Registration is rejected when the id is taken, and an object that has been
// unregistered can never be registered again; a later constructor call
// produces a fresh object.
//
// Native types embed Base to become binding objects. Base records the
// object id and the notification context once bound, and offers the
// notification helpers (DispatchEvent, UpdateProperty, InvokeCallback,
// SendEvent, Log) addressed to the object's script-side twin:
//
//	type Counter struct {
//	    binding.Base
//	    Value int
//	}
//
//	func (c *Counter) Inc() {
//	    c.Value++
//	    c.UpdateProperty("value")
//	}
//
// # Lifecycle
//
// Store.Broadcast forwards host activity transitions (start, resume, pause,
// stop, destroy) to every bound object implementing crosswalk.Lifecycle.
//
// # Observers
//
// Observers registered with Subscribe receive EventBound and EventUnbound
// for every registration change.
package binding
