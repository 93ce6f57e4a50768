package mqtt

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/Ramdhani171024/uts-iot/internal/config"

	mqtt "github.com/eclipse/paho.mqtt.golang"
)

var ErrNotConnected = errors.New("mqtt client not connected")

// MessageHandler receives the topic and raw body of every data message.
type MessageHandler func(topic string, payload []byte)

// StatusHandler is told when the broker connection comes up or goes down.
type StatusHandler func(connected bool)

type Client struct {
	client   mqtt.Client
	cfg      config.Config
	logger   *slog.Logger
	mu       sync.RWMutex
	handler  MessageHandler
	onStatus StatusHandler

	stopCh   chan struct{}
	stopOnce sync.Once
}

func NewClient(cfg config.Config, logger *slog.Logger) (*Client, error) {
	if cfg.MQTTBroker == "" {
		return nil, fmt.Errorf("mqtt broker is not configured")
	}

	c := &Client{
		cfg:    cfg,
		logger: logger,
		stopCh: make(chan struct{}),
	}

	opts := mqtt.NewClientOptions()
	opts.AddBroker(fmt.Sprintf("tcp://%s:%d", cfg.MQTTBroker, cfg.MQTTPort))
	opts.SetClientID(cfg.MQTTClientID)

	// Session settings
	opts.SetCleanSession(true)

	opts.SetAutoReconnect(true)
	opts.SetConnectRetry(true)
	opts.SetConnectRetryInterval(5 * time.Second)
	opts.SetMaxReconnectInterval(60 * time.Second)

	// Keepalive / timeouts
	opts.SetKeepAlive(30 * time.Second)
	opts.SetPingTimeout(10 * time.Second)

	// The session is clean, so the subscription is renewed on every connect
	// including automatic reconnects.
	opts.SetOnConnectHandler(func(pc mqtt.Client) {
		c.notifyStatus(true)
		logger.Info("mqtt connected", "broker", cfg.MQTTBroker, "port", cfg.MQTTPort)
		if err := c.subscribe(pc); err != nil {
			logger.Error("mqtt subscribe failed", "topic", DataTopicFilter(cfg.MQTTTopicPrefix), "error", err)
		}
	})

	opts.SetConnectionLostHandler(func(_ mqtt.Client, err error) {
		c.notifyStatus(false)
		logger.Warn("mqtt connection lost", "error", err)
	})

	opts.SetReconnectingHandler(func(_ mqtt.Client, _ *mqtt.ClientOptions) {
		logger.Debug("mqtt reconnecting", "broker", cfg.MQTTBroker)
	})

	c.client = mqtt.NewClient(opts)
	return c, nil
}

// SetMessageHandler must be called before Connect.
func (c *Client) SetMessageHandler(h MessageHandler) {
	c.mu.Lock()
	c.handler = h
	c.mu.Unlock()
}

// SetStatusHandler must be called before Connect. It runs on paho's
// goroutines, so it must not block.
func (c *Client) SetStatusHandler(h StatusHandler) {
	c.mu.Lock()
	c.onStatus = h
	c.mu.Unlock()
}

// Connect waits for the first connection to the broker, respecting ctx and
// Disconnect. If ctx ends first the client keeps retrying in the background
// and subscribes once it gets through.
func (c *Client) Connect(ctx context.Context) error {
	// Fail fast if already stopped.
	select {
	case <-c.stopCh:
		return fmt.Errorf("client stopped")
	default:
	}

	// Fast path.
	if c.IsConnected() {
		return nil
	}

	token := c.client.Connect()

	const poll = 200 * time.Millisecond
	for {
		if token.WaitTimeout(poll) {
			if err := token.Error(); err != nil {
				return fmt.Errorf("mqtt connect: %w", err)
			}
			return nil
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-c.stopCh:
			return fmt.Errorf("client stopped")
		default:
		}
	}
}

func (c *Client) subscribe(pc mqtt.Client) error {
	topic := DataTopicFilter(c.cfg.MQTTTopicPrefix)
	qos := byte(1) // At least once delivery

	token := pc.Subscribe(topic, qos, func(_ mqtt.Client, msg mqtt.Message) {
		c.handleMessage(msg.Topic(), msg.Payload())
	})
	if !token.WaitTimeout(5 * time.Second) {
		return fmt.Errorf("subscribe timeout for topic %s", topic)
	}
	if token.Error() != nil {
		return fmt.Errorf("subscribe to %s: %w", topic, token.Error())
	}

	c.logger.Info("subscribed to mqtt topic", "topic", topic, "qos", qos)
	return nil
}

func (c *Client) handleMessage(topic string, payload []byte) {
	c.logger.Debug("received mqtt message", "topic", topic, "size", len(payload))

	c.mu.RLock()
	h := c.handler
	c.mu.RUnlock()
	if h == nil {
		return
	}

	// A handler panic would otherwise take down paho's router goroutine.
	defer func() {
		if p := recover(); p != nil {
			c.logger.Error("mqtt message handler panicked", "topic", topic, "panic", p)
		}
	}()
	h(topic, payload)
}

// Publish sends payload once at QoS 0 without retaining it.
func (c *Client) Publish(topic string, payload []byte) error {
	if !c.IsConnected() {
		return ErrNotConnected
	}

	token := c.client.Publish(topic, 0, false, payload)
	if !token.WaitTimeout(5 * time.Second) {
		return fmt.Errorf("publish timeout for topic %s", topic)
	}
	if err := token.Error(); err != nil {
		return fmt.Errorf("publish to %s: %w", topic, err)
	}

	c.logger.Debug("published mqtt message", "topic", topic, "size", len(payload))
	return nil
}

// IsConnected reports whether the connection to the broker is open right now.
// It is true as soon as Connect returns nil.
func (c *Client) IsConnected() bool {
	return c.client.IsConnectionOpen()
}

// Disconnect stops the client and closes the MQTT connection.
// Idempotent; after Disconnect, Connect returns "client stopped".
func (c *Client) Disconnect() {
	c.stopOnce.Do(func() { close(c.stopCh) })

	if c.client.IsConnected() {
		token := c.client.Unsubscribe(DataTopicFilter(c.cfg.MQTTTopicPrefix))
		token.WaitTimeout(2 * time.Second)
	}

	// Safe even when never connected; also stops background connect retries.
	c.client.Disconnect(250)

	c.notifyStatus(false)
	c.logger.Info("mqtt disconnected")
}

func (c *Client) notifyStatus(connected bool) {
	c.mu.RLock()
	h := c.onStatus
	c.mu.RUnlock()
	if h != nil {
		h(connected)
	}
}
