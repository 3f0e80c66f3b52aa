// Package channel defines the bridge between messaging platforms and the
// reply pipeline. A channel turns platform events into inbound contexts,
// schedules them on the per-conversation queue, and delivers replies back.
package channel

import (
	"context"

	"github.com/flemzord/qqrelay/internal/core"
	"github.com/flemzord/qqrelay/internal/reply"
	"github.com/flemzord/qqrelay/internal/router"
	"github.com/flemzord/qqrelay/internal/session"
	"github.com/flemzord/qqrelay/pkg/message"
)

// DispatcherService is the service name of the shared *Dispatcher.
const DispatcherService = "channel.dispatcher"

// Queue schedules work serialized per conversation key.
// *router.KeyedQueue implements it.
type Queue interface {
	Enqueue(key string, task router.Task) <-chan struct{}
}

// Bindings are the collaborators a channel needs to process inbound events.
// They are built once by the application wiring and handed to every channel
// before Start.
type Bindings struct {
	Queue    Queue
	Sessions session.Store
	Replies  reply.Dispatcher

	// StorePath is the session store path template ({agentId}).
	StorePath string
}

// Validate reports a missing collaborator.
func (b Bindings) Validate() error {
	switch {
	case b.Queue == nil:
		return ErrNotBound
	case b.Sessions == nil:
		return ErrNotBound
	case b.Replies == nil:
		return ErrNotBound
	}
	return nil
}

// Channel is the bridge between a messaging platform and the reply pipeline.
// Every concrete channel module must implement this interface.
type Channel interface {
	core.Module

	// Send delivers an operator-initiated outbound message to the platform.
	Send(ctx context.Context, msg message.OutboundMessage) error

	// Bind hands the channel its collaborators. The wiring calls it once,
	// after Provision and before Start.
	Bind(b Bindings) error
}
