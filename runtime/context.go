package runtime

import (
	"context"
	"sort"
	"sync"

	"go.uber.org/zap"

	crosswalk "github.com/crosswalk-project/crosswalk-sub003"
	"github.com/crosswalk-project/crosswalk-sub003/errors"
)

// Context is one script context's view of the runtime. It holds at most one
// instance per extension, created on first use.
type Context struct {
	rt        *Runtime
	sink      Sink
	instances map[string]int32
	closed    bool
	mu        sync.Mutex
}

// Instance returns the instance id of extension name in c, creating the
// instance if needed.
func (c *Context) Instance(ctx context.Context, name string) (int32, error) {
	_, id, err := c.instance(ctx, name)
	return id, err
}

// PostMessage delivers an asynchronous message to extension name.
func (c *Context) PostMessage(ctx context.Context, name, msg string) error {
	ext, id, err := c.instance(ctx, name)
	if err != nil {
		return err
	}
	ext.OnMessage(ctx, id, msg)
	return nil
}

// PostBinaryMessage delivers a binary message to extension name.
func (c *Context) PostBinaryMessage(ctx context.Context, name string, msg []byte) error {
	ext, id, err := c.instance(ctx, name)
	if err != nil {
		return err
	}
	ext.OnBinaryMessage(ctx, id, msg)
	return nil
}

// SendSyncMessage delivers msg to extension name and returns its reply.
func (c *Context) SendSyncMessage(ctx context.Context, name, msg string) (string, error) {
	ext, id, err := c.instance(ctx, name)
	if err != nil {
		return "", err
	}
	return ext.OnSyncMessage(ctx, id, msg), nil
}

// Extensions lists the names of the extensions c has instances of.
func (c *Context) Extensions() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	names := make([]string, 0, len(c.instances))
	for name := range c.instances {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Close destroys every instance of c. It is safe to call more than once.
func (c *Context) Close(ctx context.Context) error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return nil
	}
	c.closed = true
	instances := c.instances
	c.instances = nil
	c.mu.Unlock()

	for name, id := range instances {
		if ext, ok := c.rt.Extension(name); ok {
			ext.OnInstanceDestroyed(ctx, id)
		}
		c.rt.unbind(id)
	}
	c.rt.forget(c)
	return nil
}

func (c *Context) instance(ctx context.Context, name string) (crosswalk.Extension, int32, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return nil, 0, errors.Closed(errors.PhaseRuntime, "script context")
	}
	if id, ok := c.instances[name]; ok {
		ext, _ := c.rt.Extension(name)
		return ext, id, nil
	}
	ext, id, err := c.rt.bind(c, name)
	if err != nil {
		return nil, 0, err
	}
	c.instances[name] = id
	ext.OnInstanceCreated(ctx, id)
	Logger().Debug("instance created", zap.String("extension", name), zap.Int32("instance", id))
	return ext, id, nil
}
