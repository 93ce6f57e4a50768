// Package mqtttest runs an in-process MQTT broker for tests.
package mqtttest

import (
	"fmt"
	"io"
	"log/slog"
	"net"
	"testing"

	mochi "github.com/mochi-mqtt/server/v2"
	"github.com/mochi-mqtt/server/v2/hooks/auth"
	"github.com/mochi-mqtt/server/v2/listeners"
	"github.com/mochi-mqtt/server/v2/packets"
	"github.com/stretchr/testify/require"
)

type Message struct {
	Topic   string
	Payload []byte
	QoS     byte
	Retain  bool
}

type Broker struct {
	Server *mochi.Server
	Host   string
	Port   int
}

// Start serves an allow-all broker on a free local port until the test ends.
func Start(t testing.TB) *Broker {
	t.Helper()

	port := freePort(t)
	server := mochi.New(&mochi.Options{
		InlineClient: true,
		Logger:       slog.New(slog.NewTextHandler(io.Discard, nil)),
	})

	err := server.AddHook(new(auth.AllowHook), nil)
	require.NoError(t, err)

	err = server.AddListener(listeners.NewTCP(listeners.Config{
		Type:    "tcp",
		ID:      "test",
		Address: fmt.Sprintf("127.0.0.1:%d", port),
	}))
	require.NoError(t, err)

	err = server.Serve()
	require.NoError(t, err)
	t.Cleanup(func() { _ = server.Close() })

	return &Broker{Server: server, Host: "127.0.0.1", Port: port}
}

// Publish injects a message as if a device had sent it.
func (b *Broker) Publish(t testing.TB, topic string, payload []byte) {
	t.Helper()
	require.NoError(t, b.Server.Publish(topic, payload, false, 1))
}

// Capture returns every message delivered on filter from now on.
func (b *Broker) Capture(t testing.TB, filter string) <-chan Message {
	t.Helper()

	ch := make(chan Message, 64)
	err := b.Server.Subscribe(filter, 1, func(_ *mochi.Client, _ packets.Subscription, pk packets.Packet) {
		select {
		case ch <- Message{
			Topic:   pk.TopicName,
			Payload: append([]byte(nil), pk.Payload...),
			QoS:     pk.FixedHeader.Qos,
			Retain:  pk.FixedHeader.Retain,
		}:
		default:
		}
	})
	require.NoError(t, err)
	return ch
}

func freePort(t testing.TB) int {
	t.Helper()
	l, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	port := l.Addr().(*net.TCPAddr).Port
	require.NoError(t, l.Close())
	return port
}
