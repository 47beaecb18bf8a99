// Package broker wraps the paho MQTT client with the few operations the
// services need: connect, publish a scalar, subscribe and disconnect.
package broker

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"strconv"
	"sync/atomic"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
)

// DefaultPort is the plaintext MQTT port every deployment uses.
const DefaultPort = 1883

// ErrPublishTimeout is returned when the client does not confirm a publish
// within Config.PublishTimeout.
var ErrPublishTimeout = errors.New("mqtt publish timed out")

// ErrNotConnected is returned by Publish and Subscribe while the session is
// down. paho would otherwise accept a QoS 0 publish and drop it.
var ErrNotConnected = errors.New("mqtt not connected")

// Config holds broker address, credentials and timeouts.
type Config struct {
	Host     string
	Port     int
	Username string
	Password string
	ClientID string

	ConnectTimeout time.Duration
	PublishTimeout time.Duration

	// ConnectRetry makes paho keep retrying the first connection in the
	// background instead of failing the Connect token.
	ConnectRetry bool
}

// URL returns the broker address in paho form, e.g. "tcp://mqtt:1883".
func (c Config) URL() string {
	port := c.Port
	if port == 0 {
		port = DefaultPort
	}
	return "tcp://" + net.JoinHostPort(c.Host, strconv.Itoa(port))
}

// MessageFunc receives one inbound message.
type MessageFunc func(topic string, payload []byte)

// Client is a connected-or-connecting MQTT session.
type Client struct {
	client mqtt.Client
	cfg    Config
	logger atomic.Pointer[slog.Logger]
}

// New configures a client. onConnect, if not nil, runs after every successful
// connect, including the automatic reconnects after a dropped connection.
//
// Messages are delivered in order from a single router goroutine, so a
// MessageFunc must return quickly: while it blocks, no other message or
// subscription acknowledgement is processed.
func New(cfg Config, logger *slog.Logger, onConnect func()) *Client {
	if cfg.ConnectTimeout == 0 {
		cfg.ConnectTimeout = 10 * time.Second
	}
	if cfg.PublishTimeout == 0 {
		cfg.PublishTimeout = 5 * time.Second
	}

	opts := mqtt.NewClientOptions()
	opts.AddBroker(cfg.URL())
	opts.SetClientID(cfg.ClientID)
	opts.SetUsername(cfg.Username)
	opts.SetPassword(cfg.Password)
	opts.SetConnectTimeout(cfg.ConnectTimeout)
	opts.SetAutoReconnect(true)
	opts.SetConnectRetry(cfg.ConnectRetry)

	c := &Client{cfg: cfg}
	c.logger.Store(logger)

	opts.SetOnConnectHandler(func(mqtt.Client) {
		c.log().Info("Connected to MQTT", "broker", cfg.URL(), "client_id", cfg.ClientID)
		if onConnect != nil {
			onConnect()
		}
	})
	opts.SetConnectionLostHandler(func(_ mqtt.Client, err error) {
		c.log().Error("MQTT connection lost", "error", err)
	})
	opts.SetReconnectingHandler(func(mqtt.Client, *mqtt.ClientOptions) {
		c.log().Warn("Reconnecting to MQTT", "broker", cfg.URL())
	})

	c.client = mqtt.NewClient(opts)
	return c
}

// SetLogger replaces the logger used by the connection handlers, e.g. once
// a writer that publishes through this client has been built.
func (c *Client) SetLogger(logger *slog.Logger) {
	c.logger.Store(logger)
}

func (c *Client) log() *slog.Logger {
	return c.logger.Load()
}

// Connect blocks until the connect attempt finishes or ctx is done.
func (c *Client) Connect(ctx context.Context) error {
	token := c.client.Connect()
	select {
	case <-token.Done():
		if err := token.Error(); err != nil {
			return fmt.Errorf("connect to %s: %w", c.cfg.URL(), err)
		}
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Publish sends payload with QoS 0 and no retain flag and waits for the
// client to hand it off.
func (c *Client) Publish(topic, payload string) error {
	if !c.client.IsConnectionOpen() {
		return fmt.Errorf("publish to %s: %w", topic, ErrNotConnected)
	}
	token := c.client.Publish(topic, 0, false, payload)
	if !token.WaitTimeout(c.cfg.PublishTimeout) {
		return fmt.Errorf("%s: %w", topic, ErrPublishTimeout)
	}
	if err := token.Error(); err != nil {
		return fmt.Errorf("publish to %s: %w", topic, err)
	}
	return nil
}

// PublishAsync sends payload without waiting for the token.
func (c *Client) PublishAsync(topic string, payload []byte) {
	c.client.Publish(topic, 0, false, payload)
}

// Subscribe registers fn for topic with QoS 0.
func (c *Client) Subscribe(topic string, fn MessageFunc) error {
	if !c.client.IsConnectionOpen() {
		return fmt.Errorf("subscribe to %s: %w", topic, ErrNotConnected)
	}
	token := c.client.Subscribe(topic, 0, func(_ mqtt.Client, msg mqtt.Message) {
		fn(msg.Topic(), msg.Payload())
	})
	if !token.WaitTimeout(c.cfg.PublishTimeout) {
		return fmt.Errorf("subscribe to %s: timed out", topic)
	}
	if err := token.Error(); err != nil {
		return fmt.Errorf("subscribe to %s: %w", topic, err)
	}
	return nil
}

// Disconnect closes the session, giving in-flight work 250ms to finish.
// It is safe to call on a client that never connected.
func (c *Client) Disconnect() {
	c.client.Disconnect(250)
}

// IsConnected reports whether the network connection is currently up.
func (c *Client) IsConnected() bool {
	return c.client.IsConnectionOpen()
}

// Ping is IsConnected as an error, for health probes.
func (c *Client) Ping() error {
	if !c.IsConnected() {
		return fmt.Errorf("not connected to %s", c.cfg.URL())
	}
	return nil
}
