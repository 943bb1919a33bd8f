package mqtt

import (
	"encoding/json"
	"fmt"
	"time"

	pahomqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/rs/zerolog/log"

	"github.com/oebus/govee-bridge/internal/config"
)

const connectTimeout = 10 * time.Second

// Publisher mirrors device state and events to an MQTT broker so other
// home-automation consumers can follow along. It is optional; with no
// broker configured every publish is a no-op.
type Publisher struct {
	client pahomqtt.Client
	prefix string
}

// Connect dials the configured broker. An empty broker address returns a
// disabled publisher and no error.
func Connect(cfg *config.Config) (*Publisher, error) {
	if cfg.MQTTBroker == "" {
		log.Debug().Msg("MQTT mirror disabled")
		return &Publisher{}, nil
	}

	opts := pahomqtt.NewClientOptions().
		AddBroker(cfg.MQTTBroker).
		SetClientID(cfg.MQTTClientID).
		SetAutoReconnect(true).
		SetConnectTimeout(connectTimeout)

	client := pahomqtt.NewClient(opts)
	token := client.Connect()
	if !token.WaitTimeout(connectTimeout) {
		return nil, fmt.Errorf("mqtt connect to %s timed out", cfg.MQTTBroker)
	}
	if err := token.Error(); err != nil {
		return nil, fmt.Errorf("mqtt connect to %s: %w", cfg.MQTTBroker, err)
	}

	log.Info().
		Str("broker", cfg.MQTTBroker).
		Str("client_id", cfg.MQTTClientID).
		Str("prefix", cfg.MQTTTopicPrefix).
		Msg("MQTT mirror connected")
	return &Publisher{client: client, prefix: cfg.MQTTTopicPrefix}, nil
}

// PublishState mirrors a device's refreshed state, retained so late
// joiners see the last snapshot.
func (p *Publisher) PublishState(device string, state any) {
	p.publish(fmt.Sprintf("%s/%s/state", p.prefix, device), state, true)
}

// PublishEvent mirrors one push event's fields, unretained.
func (p *Publisher) PublishEvent(device string, fields map[string]any) {
	p.publish(fmt.Sprintf("%s/%s/event", p.prefix, device), fields, false)
}

func (p *Publisher) publish(topic string, payload any, retain bool) {
	if p.client == nil {
		return
	}

	body, err := json.Marshal(payload)
	if err != nil {
		log.Warn().Err(err).Str("topic", topic).Msg("Failed to marshal MQTT payload")
		return
	}

	token := p.client.Publish(topic, 0, retain, body)
	go func() {
		token.Wait()
		if err := token.Error(); err != nil {
			log.Warn().Err(err).Str("topic", topic).Msg("MQTT publish failed")
		}
	}()
}

// Close disconnects from the broker, flushing in-flight publishes.
func (p *Publisher) Close() {
	if p.client != nil {
		p.client.Disconnect(250)
	}
}
