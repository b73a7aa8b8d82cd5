package realtime

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"

	"WProject/logger"
	"WProject/tools/safe"
)

// Bus is the cross-process fan-out surface the gateway depends on. The
// production implementation is the redis Bridge below; tests substitute an
// in-memory bus.
type Bus interface {
	// Publish sends the event to the shared channel for its workspace.
	// Fire-and-forget: an error is reported, never retried.
	Publish(ctx context.Context, ev Event) error
	// Subscribe registers a handler for every workspace channel (wildcard).
	Subscribe(h BusHandler)
	// Register/Deregister manage per-workspace handlers for consumers that
	// only care about one room. Scoped handlers are keyed by workspace, not
	// by handler: Deregister drops every handler for the workspace, so a
	// process runs at most one scoped consumer per room.
	Register(workspaceID string, h BusHandler)
	Deregister(workspaceID string)
	Close() error
}

// BusHandler receives a decoded bus message. The envelope keeps the origin
// gateway ID; ev is the typed variant the envelope discriminated into.
type BusHandler func(env *Envelope, ev Event)

const (
	channelPrefix  = "workspace:"
	channelPattern = "workspace:*"
)

// ChannelFor derives the bus channel name for a workspace.
func ChannelFor(workspaceID string) string { return channelPrefix + workspaceID }

// WorkspaceFromChannel inverts ChannelFor; empty when the channel is foreign.
func WorkspaceFromChannel(channel string) string {
	if !strings.HasPrefix(channel, channelPrefix) {
		return ""
	}
	return channel[len(channelPrefix):]
}

type BridgeConfig struct {
	Addr     string
	Password string
	DB       int
	// Origin is this gateway's fleet-unique ID, stamped on every publish.
	Origin string
}

// Bridge connects this process to the shared redis pub/sub bus. It holds two
// clients: a subscribed connection cannot issue PUBLISH, so sending and
// receiving never share one.
type Bridge struct {
	origin string
	pub    *redis.Client
	sub    *redis.Client
	pubsub *redis.PubSub

	mu       sync.RWMutex
	wildcard []BusHandler
	handlers map[string][]BusHandler // channel -> handlers
}

func NewBridge(cfg BridgeConfig) (*Bridge, error) {
	opts := func() *redis.Options {
		return &redis.Options{Addr: cfg.Addr, Password: cfg.Password, DB: cfg.DB}
	}
	b := &Bridge{
		origin:   cfg.Origin,
		pub:      redis.NewClient(opts()),
		sub:      redis.NewClient(opts()),
		handlers: make(map[string][]BusHandler),
	}

	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	if err := b.pub.Ping(ctx).Err(); err != nil {
		_ = b.pub.Close()
		_ = b.sub.Close()
		return nil, err
	}
	return b, nil
}

// Start opens the long-lived wildcard subscription and dispatches incoming
// messages until ctx is cancelled or the bridge is closed. One pattern
// subscription covers every workspace, so join/leave never touch the
// subscriber connection.
func (b *Bridge) Start(ctx context.Context) error {
	b.pubsub = b.sub.PSubscribe(ctx, channelPattern)
	// Force the subscription to be established before returning.
	if _, err := b.pubsub.Receive(ctx); err != nil {
		return err
	}

	ch := b.pubsub.Channel()
	safe.Go(func() {
		for {
			select {
			case <-ctx.Done():
				return
			case msg, ok := <-ch:
				if !ok {
					return
				}
				b.dispatch(msg.Channel, []byte(msg.Payload))
			}
		}
	})
	return nil
}

func (b *Bridge) dispatch(channel string, payload []byte) {
	env, err := ParseEnvelope(payload)
	if err != nil {
		logger.Warnf("[bridge] bad envelope on %s: %v", channel, err)
		return
	}
	ev, err := env.DecodeEvent()
	if err != nil {
		logger.Warnf("[bridge] undecodable event on %s: %v", channel, err)
		return
	}

	b.mu.RLock()
	wildcard := append([]BusHandler(nil), b.wildcard...)
	scoped := append([]BusHandler(nil), b.handlers[channel]...)
	b.mu.RUnlock()

	for _, h := range wildcard {
		h(env, ev)
	}
	for _, h := range scoped {
		h(env, ev)
	}
}

func (b *Bridge) Publish(ctx context.Context, ev Event) error {
	env, err := NewEnvelope(b.origin, ev)
	if err != nil {
		return err
	}
	payload, err := env.Marshal()
	if err != nil {
		return err
	}
	return b.pub.Publish(ctx, ChannelFor(ev.Workspace()), payload).Err()
}

func (b *Bridge) Subscribe(h BusHandler) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.wildcard = append(b.wildcard, h)
}

func (b *Bridge) Register(workspaceID string, h BusHandler) {
	ch := ChannelFor(workspaceID)
	b.mu.Lock()
	defer b.mu.Unlock()
	b.handlers[ch] = append(b.handlers[ch], h)
}

// Deregister removes all handlers registered for the workspace channel.
func (b *Bridge) Deregister(workspaceID string) {
	ch := ChannelFor(workspaceID)
	b.mu.Lock()
	defer b.mu.Unlock()
	delete(b.handlers, ch)
}

// Close tears down both connections. In-flight messages are not delivered.
func (b *Bridge) Close() error {
	if b.pubsub != nil {
		_ = b.pubsub.Close()
	}
	err := b.sub.Close()
	if perr := b.pub.Close(); perr != nil && err == nil {
		err = perr
	}
	return err
}
