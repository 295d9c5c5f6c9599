//go:build !no_mqtt

package mqtt

import (
	"log/slog"
	"time"

	pahomqtt "github.com/eclipse/paho.mqtt.golang"
)

// transport is the part of the MQTT client the bridge uses.
type transport interface {
	Publish(topic string, payload []byte, retained bool)
	Subscribe(topic string, handler func(payload []byte))
	Unsubscribe(topic string)
	Disconnect()
}

// pahoTransport sends through a paho client. Tokens are awaited in the
// background so callers never block on the broker.
type pahoTransport struct {
	client pahomqtt.Client
	logger *slog.Logger
}

func (t *pahoTransport) Publish(topic string, payload []byte, retained bool) {
	t.await(t.client.Publish(topic, 1, retained, payload), "publish", topic)
}

func (t *pahoTransport) Subscribe(topic string, handler func(payload []byte)) {
	t.await(t.client.Subscribe(topic, 1, func(_ pahomqtt.Client, msg pahomqtt.Message) {
		handler(msg.Payload())
	}), "subscribe", topic)
}

func (t *pahoTransport) Unsubscribe(topic string) {
	t.await(t.client.Unsubscribe(topic), "unsubscribe", topic)
}

func (t *pahoTransport) Disconnect() {
	t.client.Disconnect(1000)
}

func (t *pahoTransport) await(token pahomqtt.Token, op, topic string) {
	go func() {
		if !token.WaitTimeout(5 * time.Second) {
			t.logger.Warn("MQTT "+op+" timeout", "topic", topic)
		} else if err := token.Error(); err != nil {
			t.logger.Warn("MQTT "+op+" error", "topic", topic, "err", err)
		}
	}()
}
