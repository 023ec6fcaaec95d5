// Package mqttbridge republishes bus events to an MQTT broker.
package mqttbridge

import (
	"context"
	"crypto/tls"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/url"
	"strings"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"

	"github.com/jmylchreest/hapd/internal/config"
	"github.com/jmylchreest/hapd/internal/events"
)

// publishTimeout bounds how long a listener waits for the broker.
const publishTimeout = 5 * time.Second

// Publisher is the part of an MQTT client the bridge needs.
type Publisher interface {
	Publish(topic string, payload []byte, retain bool) error
	Close()
}

// Client is a Publisher backed by paho.
type Client struct {
	cli mqtt.Client
}

// brokerURL turns mqtt://, tls:// and ws:// URLs into paho server strings.
func brokerURL(raw string) (string, *url.URL, error) {
	u, err := url.Parse(raw)
	if err != nil {
		return "", nil, fmt.Errorf("invalid broker url %q: %w", raw, err)
	}
	switch u.Scheme {
	case "mqtt", "tcp":
		return "tcp://" + u.Host, u, nil
	case "ssl", "tls", "mqtts":
		return "ssl://" + u.Host, u, nil
	case "ws", "wss":
		return u.Scheme + "://" + u.Host + u.Path, u, nil
	default:
		return "", nil, fmt.Errorf("unsupported broker scheme %q", u.Scheme)
	}
}

// Dial connects to the broker in cfg.
func Dial(cfg config.MQTTConfig, logger *slog.Logger) (*Client, error) {
	server, u, err := brokerURL(cfg.Broker)
	if err != nil {
		return nil, err
	}

	opts := mqtt.NewClientOptions()
	opts.AddBroker(server)
	opts.SetClientID(cfg.ClientID)
	opts.SetAutoReconnect(true)
	opts.OnConnect = func(mqtt.Client) { logger.Info("MQTT connected", "broker", server) }
	opts.OnConnectionLost = func(_ mqtt.Client, err error) { logger.Error("MQTT connection lost", "error", err) }

	switch {
	case cfg.Username != "":
		opts.SetUsername(cfg.Username)
		opts.SetPassword(cfg.Password)
	case u.User != nil:
		pw, _ := u.User.Password()
		opts.SetUsername(u.User.Username())
		opts.SetPassword(pw)
	}
	if strings.HasPrefix(server, "ssl://") || u.Scheme == "wss" {
		opts.SetTLSConfig(&tls.Config{MinVersion: tls.VersionTLS12})
	}

	cli := mqtt.NewClient(opts)
	t := cli.Connect()
	if !t.WaitTimeout(publishTimeout) {
		return nil, fmt.Errorf("timed out connecting to %s", server)
	}
	if err := t.Error(); err != nil {
		return nil, fmt.Errorf("connecting to %s: %w", server, err)
	}
	return &Client{cli: cli}, nil
}

// Publish sends payload at QoS 0.
func (c *Client) Publish(topic string, payload []byte, retain bool) error {
	t := c.cli.Publish(topic, 0, retain, payload)
	if !t.WaitTimeout(publishTimeout) {
		return fmt.Errorf("publish to %s timed out", topic)
	}
	return t.Error()
}

// Close disconnects, allowing a short time for in-flight messages.
func (c *Client) Close() {
	c.cli.Disconnect(250)
}

// Bridge forwards events to a Publisher.
type Bridge struct {
	pub    Publisher
	prefix string
	logger *slog.Logger
}

// New creates a bridge publishing under prefix.
func New(pub Publisher, prefix string, logger *slog.Logger) *Bridge {
	return &Bridge{pub: pub, prefix: strings.TrimSuffix(prefix, "/"), logger: logger}
}

// EventTopic is where envelopes of kind are published.
func (b *Bridge) EventTopic(kind events.Kind) string {
	return fmt.Sprintf("%s/events/%s", b.prefix, kind)
}

// ValueTopic holds the retained value of a characteristic.
func (b *Bridge) ValueTopic(aid, iid uint64) string {
	return fmt.Sprintf("%s/accessories/%d/%d", b.prefix, aid, iid)
}

// Listen registers the bridge on em.
func (b *Bridge) Listen(em *events.Emitter) *events.Subscription {
	return em.AddListener(b.forward)
}

func (b *Bridge) forward(_ context.Context, e events.Event) {
	env, err := json.Marshal(events.NewEnvelope(e))
	if err != nil {
		b.logger.Error("Failed to encode event for MQTT", "kind", e.Kind(), "error", err)
		return
	}
	if err := b.pub.Publish(b.EventTopic(e.Kind()), env, false); err != nil {
		b.logger.Warn("Failed to publish event", "kind", e.Kind(), "error", err)
	}

	if ev, ok := e.(events.CharacteristicValueChanged); ok {
		value, err := json.Marshal(ev.Value)
		if err != nil {
			b.logger.Error("Failed to encode characteristic value", "aid", ev.AID, "iid", ev.IID, "error", err)
			return
		}
		if err := b.pub.Publish(b.ValueTopic(ev.AID, ev.IID), value, true); err != nil {
			b.logger.Warn("Failed to publish characteristic value", "aid", ev.AID, "iid", ev.IID, "error", err)
		}
	}
}

// Close disconnects the publisher.
func (b *Bridge) Close() {
	b.pub.Close()
}
