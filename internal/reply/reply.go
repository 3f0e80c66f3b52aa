// Package reply defines the contract between channels and the reply
// pipeline: how inbound contexts are finalized and framed, and how reply
// payloads flow back to the channel for delivery.
package reply

import (
	"context"
	"errors"

	"github.com/flemzord/qqrelay/pkg/message"
)

// ServiceName is the service under which the active Dispatcher is registered.
const ServiceName = "reply.dispatcher"

// ErrNoDeliver is returned when a Request has no Deliver callback.
var ErrNoDeliver = errors.New("reply: request has no deliver callback")

// Kind classifies a delivered payload.
type Kind string

// Payload kinds, in the order a reply run may produce them.
const (
	KindTool  Kind = "tool"
	KindBlock Kind = "block"
	KindFinal Kind = "final"
)

// DispatchInfo describes the payload whose delivery failed.
type DispatchInfo struct {
	Kind Kind
}

// Request asks the reply pipeline to answer one inbound message.
type Request struct {
	Context message.InboundContext

	// Deliver sends one reply payload back through the originating channel.
	Deliver func(ctx context.Context, payload message.ReplyPayload) error

	// OnError is called when Deliver fails. Optional.
	OnError func(err error, info DispatchInfo)
}

// Dispatcher produces replies for inbound messages. Implementations call
// req.Deliver once per payload, in order.
type Dispatcher interface {
	Dispatch(ctx context.Context, req Request) error
}

// DispatcherFunc adapts a function to the Dispatcher interface.
type DispatcherFunc func(ctx context.Context, req Request) error

// Dispatch implements Dispatcher.
func (f DispatcherFunc) Dispatch(ctx context.Context, req Request) error {
	return f(ctx, req)
}

// DeliverBuffered delivers payloads in order through req.Deliver. Every
// payload but the last is a block; the last is final. Delivery failures go
// to req.OnError and do not stop later payloads. Returns the number of
// payloads delivered successfully.
func DeliverBuffered(ctx context.Context, req Request, payloads []message.ReplyPayload) (int, error) {
	if req.Deliver == nil {
		return 0, ErrNoDeliver
	}

	delivered := 0
	for i, p := range payloads {
		if err := ctx.Err(); err != nil {
			return delivered, err
		}
		kind := KindBlock
		if i == len(payloads)-1 {
			kind = KindFinal
		}
		if err := req.Deliver(ctx, p); err != nil {
			if req.OnError != nil {
				req.OnError(err, DispatchInfo{Kind: kind})
			}
			continue
		}
		delivered++
	}
	return delivered, nil
}
