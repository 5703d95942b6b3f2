package binding

import (
	"github.com/crosswalk-project/crosswalk-sub003/errors"
	"github.com/crosswalk-project/crosswalk-sub003/notify"
)

// Object is a native value that can be bound to a script object. Embed Base
// to implement it.
type Object interface {
	Binding() *Base
}

// Hooks is optionally implemented by objects that track their binding.
type Hooks interface {
	// OnBound runs right after the object is registered.
	OnBound()
	// OnUnbound runs before the object is removed.
	OnUnbound()
}

// Event types for binding lifecycle notifications.
type EventType uint8

const (
	EventBound EventType = iota
	EventUnbound
)

// Event represents a binding lifecycle event.
type Event struct {
	Value Object
	ID    string
	Type  EventType
}

// Observer receives notifications about binding lifecycle events.
type Observer interface {
	OnBindingEvent(Event)
}

// ContextFunc builds the notification context for a newly bound object.
type ContextFunc func(id string, obj Object) *notify.Context

type state uint8

const (
	stateNew state = iota
	stateBound
	stateReleased
)

// Base carries the binding of one native object: its object id and the
// notification context addressing its script-side twin.
type Base struct {
	id    string
	ctx   *notify.Context
	state state
}

// Binding implements Object.
func (b *Base) Binding() *Base {
	return b
}

// ObjectID returns the id the object is bound under, or "" before binding.
func (b *Base) ObjectID() string {
	return b.id
}

// Bound reports whether the object is currently registered.
func (b *Base) Bound() bool {
	return b.state == stateBound
}

// Context returns the notification context, or nil before binding.
func (b *Base) Context() *notify.Context {
	return b.ctx
}

// DispatchEvent fires a declared event on the script-side object.
func (b *Base) DispatchEvent(typ string, event any) error {
	if b.ctx == nil {
		return errors.NotInitialized(errors.PhaseNotify, "binding")
	}
	return b.ctx.DispatchEvent(typ, event)
}

// UpdateProperty asks the script side to re-read a declared property.
func (b *Base) UpdateProperty(name string) error {
	if b.ctx == nil {
		return errors.NotInitialized(errors.PhaseNotify, "binding")
	}
	return b.ctx.UpdateProperty(name)
}

// InvokeCallback calls a script callback passed in as callbackID.
func (b *Base) InvokeCallback(callbackID string, args ...any) error {
	if b.ctx == nil {
		return errors.NotInitialized(errors.PhaseNotify, "binding")
	}
	return b.ctx.InvokeCallback(callbackID, args...)
}

// SendEvent broadcasts to every instance of the extension.
func (b *Base) SendEvent(typ string, event any) error {
	if b.ctx == nil {
		return errors.NotInitialized(errors.PhaseNotify, "binding")
	}
	return b.ctx.SendEvent(typ, event)
}

// Log prints on the script console.
func (b *Base) Log(level, msg string) error {
	if b.ctx == nil {
		return errors.NotInitialized(errors.PhaseNotify, "binding")
	}
	return b.ctx.Log(level, msg)
}
