package mqtt

import (
	"encoding/json"
	"fmt"
	"time"

	paho "github.com/eclipse/paho.mqtt.golang"

	"smart_heating/internal/config"
	"smart_heating/internal/models"
)

const (
	connectTimeout = 10 * time.Second
	publishTimeout = 5 * time.Second
	defaultTopic   = "smart_heating/snapshot"
)

// Publisher mirrors each decision snapshot to an MQTT topic so dashboards
// and automations can consume the engine's state without polling the API.
type Publisher struct {
	client paho.Client
	topic  string
}

// NewPublisher connects to the broker and returns a snapshot publisher.
func NewPublisher(cfg config.MQTTConfig) (*Publisher, error) {
	clientID := cfg.ClientID
	if clientID == "" {
		clientID = "smart-heating"
	}
	topic := cfg.Topic
	if topic == "" {
		topic = defaultTopic
	}

	opts := paho.NewClientOptions().
		AddBroker(cfg.Broker).
		SetClientID(clientID).
		SetAutoReconnect(true).
		SetConnectRetry(true).
		SetConnectRetryInterval(5 * time.Second)
	if cfg.Username != "" {
		opts.SetUsername(cfg.Username)
		opts.SetPassword(cfg.Password)
	}

	client := paho.NewClient(opts)
	token := client.Connect()
	if !token.WaitTimeout(connectTimeout) {
		return nil, fmt.Errorf("connection timeout")
	}
	if err := token.Error(); err != nil {
		return nil, fmt.Errorf("connect to broker: %w", err)
	}

	return &Publisher{client: client, topic: topic}, nil
}

// PublishSnapshot sends the snapshot as JSON, retained so late subscribers
// immediately see the current state.
func (p *Publisher) PublishSnapshot(snap models.HouseSnapshot) error {
	payload, err := json.Marshal(snap)
	if err != nil {
		return fmt.Errorf("marshal snapshot: %w", err)
	}

	token := p.client.Publish(p.topic, 0, true, payload)
	if !token.WaitTimeout(publishTimeout) {
		return fmt.Errorf("publish timeout")
	}
	if err := token.Error(); err != nil {
		return fmt.Errorf("publish: %w", err)
	}
	return nil
}

// Close disconnects from the broker.
func (p *Publisher) Close() error {
	p.client.Disconnect(1000) // milliseconds
	return nil
}
