package realtime

import (
	"fmt"
)

// Handler processes one inbound message kind. Implementations live in the
// handlers subpackage and are registered at boot.
type Handler interface {
	Event() string
	Handle(ctx *Context, sess *Session, data map[string]any) error
}

// Context is what a handler gets to talk back to the gateway.
type Context struct {
	S *Server
}

type Dispatcher struct {
	handlers map[string]Handler
}

func NewDispatcher() *Dispatcher {
	return &Dispatcher{handlers: make(map[string]Handler)}
}

func (d *Dispatcher) Register(h Handler) { d.handlers[h.Event()] = h }

func (d *Dispatcher) Get(event string) Handler { return d.handlers[event] }

func (d *Dispatcher) Dispatch(ctx *Context, sess *Session, event string, data map[string]any) error {
	h, ok := d.handlers[event]
	if !ok {
		return fmt.Errorf("no handler for event=%s", event)
	}
	return h.Handle(ctx, sess, data)
}
