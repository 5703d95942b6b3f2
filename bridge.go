package crosswalk

import "context"

// Poster delivers native-originated messages to the script contexts of one
// extension. Implementations must not block on script execution.
type Poster interface {
	PostMessage(instanceID int32, msg string)
	PostBinaryMessage(instanceID int32, msg []byte)
	BroadcastMessage(msg string)
}

// Extension is a named unit that exposes a JavaScript API to script contexts
// and handles the raw messages those contexts send.
type Extension interface {
	Name() string
	JavaScriptAPI() string
	EntryPoints() []string

	// Attach hands the extension the poster it uses for all outbound messages.
	// It is called once, before any instance is created.
	Attach(p Poster)

	OnInstanceCreated(ctx context.Context, instanceID int32)
	OnInstanceDestroyed(ctx context.Context, instanceID int32)
	OnMessage(ctx context.Context, instanceID int32, msg string)
	OnBinaryMessage(ctx context.Context, instanceID int32, msg []byte)
	OnSyncMessage(ctx context.Context, instanceID int32, msg string) string
}

// Lifecycle is optionally implemented by extensions and binding objects that
// follow host activity transitions.
type Lifecycle interface {
	OnStart()
	OnResume()
	OnPause()
	OnStop()
	OnDestroy()
}

// LifecycleEvent names one host activity transition.
type LifecycleEvent uint8

const (
	Start LifecycleEvent = iota
	Resume
	Pause
	Stop
	Destroy
)

func (e LifecycleEvent) String() string {
	switch e {
	case Start:
		return "start"
	case Resume:
		return "resume"
	case Pause:
		return "pause"
	case Stop:
		return "stop"
	case Destroy:
		return "destroy"
	}
	return "unknown"
}

// Deliver invokes the Lifecycle method matching e.
func (e LifecycleEvent) Deliver(l Lifecycle) {
	switch e {
	case Start:
		l.OnStart()
	case Resume:
		l.OnResume()
	case Pause:
		l.OnPause()
	case Stop:
		l.OnStop()
	case Destroy:
		l.OnDestroy()
	}
}
