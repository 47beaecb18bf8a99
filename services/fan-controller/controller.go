package main

import (
	"context"
	"log/slog"
	"strings"
	"sync"

	"pi-enclosure/internal/broker"
)

// Transport is the MQTT session the controller owns.
type Transport interface {
	Connect(ctx context.Context) error
	Disconnect()
	Publish(topic, payload string) error
	Subscribe(topic string, fn broker.MessageFunc) error
}

// Handler receives transport callbacks.
type Handler interface {
	OnConnect()
	OnMessage(topic string, payload []byte)
}

type eventKind int

const (
	eventConnected eventKind = iota
	eventMessage
)

type event struct {
	kind    eventKind
	topic   string
	payload []byte
}

// inboxSize leaves room for a burst of commands while a reconnect is being
// handled.
const inboxSize = 64

// Controller keeps the relay and the status topic in agreement.
//
// Transport callbacks only queue events; Run handles them one at a time, so
// the pin write and status publish for one message never interleave with
// another message or a reconnect.
type Controller struct {
	cfg       Config
	relay     Relay
	transport Transport
	logger    *slog.Logger

	inbox     chan event
	done      chan struct{}
	closeOnce sync.Once
}

var _ Handler = (*Controller)(nil)

func NewController(cfg Config, relay Relay, logger *slog.Logger) *Controller {
	return &Controller{
		cfg:    cfg,
		relay:  relay,
		logger: logger,
		inbox:  make(chan event, inboxSize),
		done:   make(chan struct{}),
	}
}

// Attach sets the transport. The transport is built with c.OnConnect as its
// connect callback, hence the two-step construction.
func (c *Controller) Attach(t Transport) {
	c.transport = t
}

// OnConnect runs on every (re)connect. The client calls it on its own
// goroutine, so it may wait for room in the inbox.
func (c *Controller) OnConnect() {
	select {
	case c.inbox <- event{kind: eventConnected}:
	case <-c.done:
	}
}

// OnMessage runs on the client's message router, which must not block.
// A command that finds the inbox full is dropped and logged.
func (c *Controller) OnMessage(topic string, payload []byte) {
	select {
	case c.inbox <- event{kind: eventMessage, topic: topic, payload: payload}:
	case <-c.done:
	default:
		c.logger.Error("Inbox full, dropping message", "topic", topic, "payload", string(payload))
	}
}

// Serve connects with bounded retry, then runs the event loop until ctx is
// done. The transport and relay are released exactly once on every path.
func (c *Controller) Serve(ctx context.Context) error {
	defer c.Close()

	if err := broker.ConnectWithRetry(ctx, c.cfg.ConnectAttempts, c.cfg.ConnectRetryDelay, c.transport.Connect, c.logger); err != nil {
		return err
	}
	return c.Run(ctx)
}

// Run handles queued events serially until ctx is cancelled.
func (c *Controller) Run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			c.logger.Info("Stopping controller")
			return nil
		case ev := <-c.inbox:
			switch ev.kind {
			case eventConnected:
				c.handleConnect()
			case eventMessage:
				c.handleMessage(ev.topic, ev.payload)
			}
		}
	}
}

// handleConnect re-publishes the physical relay level before subscribing, so
// observers that missed a change (or a manual toggle) resynchronise.
func (c *Controller) handleConnect() {
	state, err := c.relay.State()
	if err != nil {
		c.logger.Error("Failed to read relay state", "error", err)
	} else {
		c.logger.Info("Relay state on connect", "state", state.String())
		c.publishStatus(state)
	}

	if err := c.transport.Subscribe(c.cfg.FanTopic, c.OnMessage); err != nil {
		c.logger.Error("Subscribe failed", "topic", c.cfg.FanTopic, "error", err)
		return
	}
	c.logger.Info("Listening for commands", "topic", c.cfg.FanTopic)
}

func (c *Controller) handleMessage(topic string, payload []byte) {
	c.logger.Info("Message received", "topic", topic, "payload", string(payload))

	if !c.isCommandTopic(topic) {
		return
	}

	switch cmd := ParseCommand(payload); cmd {
	case CommandOff:
		c.switchRelay(RelayOff)
	case CommandOn:
		c.switchRelay(RelayOn)
	default:
		c.logger.Debug("Ignoring payload without command", "topic", topic)
	}
}

// isCommandTopic accepts the exact command topic. A wildcard subscription has
// already been matched by the client's router.
func (c *Controller) isCommandTopic(topic string) bool {
	if strings.ContainsAny(c.cfg.FanTopic, "+#") {
		return true
	}
	return topic == c.cfg.FanTopic
}

// switchRelay always writes the pin, even when it already has that level.
func (c *Controller) switchRelay(state RelayState) {
	if err := c.relay.Set(state); err != nil {
		c.logger.Error("Failed to switch relay", "state", state.String(), "error", err)
		return
	}
	c.logger.Info("Relay switched", "state", state.String())
	c.publishStatus(state)
}

func (c *Controller) publishStatus(state RelayState) {
	if err := c.transport.Publish(c.cfg.StatusTopic, state.Payload()); err != nil {
		c.logger.Error("Status publish failed", "topic", c.cfg.StatusTopic, "status", state.Payload(), "error", err)
		return
	}
	c.logger.Info("Status published", "topic", c.cfg.StatusTopic, "status", state.Payload())
}

// Close disconnects from the broker and releases the relay line. Only the
// first call does anything.
func (c *Controller) Close() {
	c.closeOnce.Do(func() {
		c.logger.Info("Cleaning up")
		close(c.done)
		if c.transport != nil {
			c.transport.Disconnect()
		}
		if err := c.relay.Close(); err != nil {
			c.logger.Error("Failed to release relay", "error", err)
		}
	})
}
