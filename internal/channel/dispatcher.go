package channel

import (
	"context"
	"fmt"
	"slices"
	"strings"
	"sync"

	"github.com/flemzord/qqrelay/pkg/message"
)

// QualifiedName returns the module ID for a channel named either by ID
// ("channel.qq") or by short name ("qq").
func QualifiedName(name string) string {
	if strings.Contains(name, ".") {
		return name
	}
	return "channel." + name
}

// Dispatcher routes outbound messages to the correct registered channel.
type Dispatcher struct {
	mu       sync.RWMutex
	channels map[string]Channel
}

// NewDispatcher creates an empty Dispatcher.
func NewDispatcher() *Dispatcher {
	return &Dispatcher{
		channels: make(map[string]Channel),
	}
}

// Register adds a channel under the given name.
// Returns ErrDuplicateChannel if the name is already taken.
func (d *Dispatcher) Register(name string, ch Channel) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if _, exists := d.channels[name]; exists {
		return fmt.Errorf("%w: %s", ErrDuplicateChannel, name)
	}
	d.channels[name] = ch
	return nil
}

// Get returns the channel registered under name, or false if none.
func (d *Dispatcher) Get(name string) (Channel, bool) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	ch, ok := d.channels[name]
	return ch, ok
}

// Send delivers an operator message through the channel named by
// msg.Channel, which may be a short name. Messages without a recipient or
// text are rejected before reaching the channel.
func (d *Dispatcher) Send(ctx context.Context, msg message.OutboundMessage) error {
	if strings.TrimSpace(msg.To) == "" {
		return fmt.Errorf("%w: empty recipient", ErrInvalidTarget)
	}
	name := QualifiedName(msg.Channel)
	ch, ok := d.Get(name)
	if !ok {
		return fmt.Errorf("%w: %s", ErrNoChannel, name)
	}
	msg.Channel = name
	return ch.Send(ctx, msg)
}

// BindAll binds every registered channel, stopping at the first failure.
func (d *Dispatcher) BindAll(b Bindings) error {
	if err := b.Validate(); err != nil {
		return err
	}
	for _, name := range d.Channels() {
		ch, _ := d.Get(name)
		if err := ch.Bind(b); err != nil {
			return fmt.Errorf("channel: binding %s: %w", name, err)
		}
	}
	return nil
}

// Channels returns the sorted names of all registered channels.
func (d *Dispatcher) Channels() []string {
	d.mu.RLock()
	defer d.mu.RUnlock()

	names := make([]string, 0, len(d.channels))
	for name := range d.channels {
		names = append(names, name)
	}
	slices.Sort(names)
	return names
}
