package app

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/flemzord/qqrelay/internal/channel"
	"github.com/flemzord/qqrelay/internal/core"
	"github.com/flemzord/qqrelay/internal/gateway"
	"github.com/flemzord/qqrelay/internal/reply"
	"github.com/flemzord/qqrelay/internal/router"
	"github.com/flemzord/qqrelay/internal/session"
	"github.com/prometheus/client_golang/prometheus"
)

// queueModule wraps the dispatch queue so that it participates in the App
// lifecycle: it is stopped first and drains outstanding tasks.
type queueModule struct {
	queue *router.KeyedQueue
}

func (m *queueModule) ModuleInfo() core.ModuleInfo {
	return core.ModuleInfo{ID: "router.queue"}
}

func (m *queueModule) Stop(ctx context.Context) error {
	return m.queue.Close(ctx)
}

// wireChannels creates the dispatch queue and the channel dispatcher,
// resolves the session store and the reply dispatcher, binds every loaded
// channel, and appends the queue to the app lifecycle.
// Must be called after LoadModules and before Start.
func wireChannels(
	app *core.App,
	appCtx *core.AppContext,
	ids []string,
	logger *slog.Logger,
	registry prometheus.Registerer,
) error {
	queue := router.NewKeyedQueue(router.QueueConfig{
		Logger: logger,
		OnError: func(key string, err error) {
			logger.Error("dispatch task failed", "conversation", key, "error", err)
		},
	})
	gateway.RegisterCollector(registry, prometheus.NewGaugeFunc(prometheus.GaugeOpts{
		Namespace: "router",
		Name:      "pending_conversations",
		Help:      "Conversations with queued or running dispatch tasks.",
	}, func() float64 { return float64(queue.Len()) }))

	// Register under the full module ID (e.g. "channel.qq"): that is what
	// outbound messages name in msg.Channel.
	dispatcher := channel.NewDispatcher()
	for _, id := range ids {
		mod, ok := app.Module(id)
		if !ok {
			continue
		}
		if ch, ok := mod.(channel.Channel); ok {
			if err := dispatcher.Register(id, ch); err != nil {
				return fmt.Errorf("registering channel %s: %w", id, err)
			}
			logger.Info("wire: registered channel", "channel", id)
		}
	}

	sessions, ok := core.Service[session.Store](appCtx, session.StoreService)
	if !ok {
		sessions = session.NewMemoryStore()
		logger.Info("wire: no session store configured, using in-memory store")
	}
	storePath, _ := core.Service[string](appCtx, session.StorePathService)

	appCtx.RegisterService(router.QueueService, queue)
	appCtx.RegisterService(channel.DispatcherService, dispatcher)
	appCtx.RegisterService(session.StoreService, sessions)
	app.AppendModule("router.queue", &queueModule{queue: queue})

	names := dispatcher.Channels()
	if len(names) == 0 {
		logger.Info("wire: no channels found, skipping channel binding")
		return nil
	}

	replies, ok := core.Service[reply.Dispatcher](appCtx, reply.ServiceName)
	if !ok {
		return fmt.Errorf("wire: channels %v require a reply dispatcher (service %q)", names, reply.ServiceName)
	}

	if err := dispatcher.BindAll(channel.Bindings{
		Queue:     queue,
		Sessions:  sessions,
		Replies:   replies,
		StorePath: storePath,
	}); err != nil {
		return fmt.Errorf("wire: %w", err)
	}

	logger.Info("wire: channels bound", "channels", len(names))
	return nil
}
