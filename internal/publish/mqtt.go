package publish

import (
	"context"
	"errors"
	"fmt"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"

	"github.com/tejusbharadwaj/energyflow/internal/models"
)

// ErrMQTTTimeout is returned when the broker does not acknowledge in time.
var ErrMQTTTimeout = errors.New("publish: mqtt operation timed out")

// MQTTConfig configures the MQTT sink.
type MQTTConfig struct {
	Broker   string
	ClientID string
	Topic    string
	QoS      byte
	Username string
	Password string
	Timeout  time.Duration
}

// MQTTSink publishes FlowRecords to an MQTT topic.
type MQTTSink struct {
	client  mqtt.Client
	topic   string
	qos     byte
	timeout time.Duration
}

// NewMQTTSink connects to the broker and returns a sink for cfg.Topic.
func NewMQTTSink(cfg MQTTConfig) (*MQTTSink, error) {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 10 * time.Second
	}

	opts := mqtt.NewClientOptions().
		AddBroker(cfg.Broker).
		SetClientID(cfg.ClientID).
		SetAutoReconnect(true).
		SetConnectTimeout(cfg.Timeout)
	if cfg.Username != "" {
		opts.SetUsername(cfg.Username)
		opts.SetPassword(cfg.Password)
	}

	client := mqtt.NewClient(opts)
	token := client.Connect()
	if !token.WaitTimeout(cfg.Timeout) {
		return nil, fmt.Errorf("%w: connecting to %s", ErrMQTTTimeout, cfg.Broker)
	}
	if err := token.Error(); err != nil {
		return nil, fmt.Errorf("failed to connect to mqtt broker: %w", err)
	}

	return NewMQTTSinkWithClient(client, cfg.Topic, cfg.QoS, cfg.Timeout), nil
}

// NewMQTTSinkWithClient wraps an already connected client.
func NewMQTTSinkWithClient(client mqtt.Client, topic string, qos byte, timeout time.Duration) *MQTTSink {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &MQTTSink{client: client, topic: topic, qos: qos, timeout: timeout}
}

func (s *MQTTSink) Name() string { return "mqtt" }

// Publish sends rec as a retained message and waits for the broker.
func (s *MQTTSink) Publish(ctx context.Context, rec models.FlowRecord) error {
	payload, err := Encode(rec)
	if err != nil {
		return err
	}

	token := s.client.Publish(s.topic, s.qos, true, payload)

	timer := time.NewTimer(s.timeout)
	defer timer.Stop()

	select {
	case <-token.Done():
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return fmt.Errorf("%w: publishing to %s", ErrMQTTTimeout, s.topic)
	}
	if err := token.Error(); err != nil {
		return fmt.Errorf("failed to publish to %s: %w", s.topic, err)
	}
	return nil
}

// Close disconnects from the broker.
func (s *MQTTSink) Close() error {
	s.client.Disconnect(250)
	return nil
}
