// Package telemetry exports simulated snapshots to an MQTT broker.
package telemetry

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"TurbineMonitor/sim"

	"github.com/charmbracelet/log"
	mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/google/uuid"
)

// DefaultTopic is expanded with the turbine id.
const DefaultTopic = "turbines/{id}/snapshot"

// Options configures an MQTTSink.
type Options struct {
	Broker   string
	ClientID string
	Username string
	Password string
	// Topic may contain {id}, replaced by TurbineID.
	Topic     string
	TurbineID string
	QoS       byte
	Timeout   time.Duration
}

// Message is the payload published for every snapshot.
type Message struct {
	Turbine string             `json:"turbine"`
	Taken   time.Time          `json:"taken"`
	Status  string             `json:"status"`
	Values  map[string]float64 `json:"values"`
}

// MQTTSink publishes snapshots to one topic.
type MQTTSink struct {
	client  mqtt.Client
	topic   string
	turbine string
	qos     byte
	timeout time.Duration
	logger  *log.Logger
}

// ExpandTopic replaces {id} in topic.
func ExpandTopic(topic, id string) string {
	return strings.ReplaceAll(topic, "{id}", id)
}

// NewMQTTSink builds a sink; Connect must be called before publishing.
func NewMQTTSink(opts Options, logger *log.Logger) (*MQTTSink, error) {
	if opts.Broker == "" {
		return nil, errors.New("telemetry: broker address is required")
	}
	if opts.QoS > 2 {
		return nil, fmt.Errorf("telemetry: invalid qos %d", opts.QoS)
	}
	if opts.Topic == "" {
		opts.Topic = DefaultTopic
	}
	if opts.ClientID == "" {
		opts.ClientID = "turbine-monitor-" + uuid.NewString()
	}
	if opts.Timeout <= 0 {
		opts.Timeout = 5 * time.Second
	}
	if logger == nil {
		logger = log.Default()
	}

	co := mqtt.NewClientOptions()
	co.AddBroker(opts.Broker)
	co.SetClientID(opts.ClientID)
	co.SetUsername(opts.Username)
	co.SetPassword(opts.Password)
	co.SetConnectTimeout(opts.Timeout)
	co.SetAutoReconnect(true)
	co.SetConnectionLostHandler(func(_ mqtt.Client, err error) {
		logger.Warn("connection to broker lost", "broker", opts.Broker, "err", err)
	})

	return &MQTTSink{
		client:  mqtt.NewClient(co),
		topic:   ExpandTopic(opts.Topic, opts.TurbineID),
		turbine: opts.TurbineID,
		qos:     opts.QoS,
		timeout: opts.Timeout,
		logger:  logger,
	}, nil
}

// Topic returns the expanded topic published to.
func (m *MQTTSink) Topic() string {
	return m.topic
}

// Connect dials the broker.
func (m *MQTTSink) Connect(ctx context.Context) error {
	return m.wait(ctx, m.client.Connect(), "connect")
}

// Publish sends one snapshot. It implements dashboard.Sink.
func (m *MQTTSink) Publish(ctx context.Context, s sim.Snapshot) error {
	payload, err := json.Marshal(Message{
		Turbine: m.turbine,
		Taken:   s.Taken,
		Status:  string(s.Vibration.Status),
		Values:  s.Values(),
	})
	if err != nil {
		return fmt.Errorf("telemetry: encode: %w", err)
	}
	if err := m.wait(ctx, m.client.Publish(m.topic, m.qos, false, payload), "publish"); err != nil {
		return err
	}
	m.logger.Debug("snapshot published", "topic", m.topic)
	return nil
}

// Close disconnects from the broker.
func (m *MQTTSink) Close() {
	m.client.Disconnect(250)
}

func (m *MQTTSink) wait(ctx context.Context, token mqtt.Token, op string) error {
	timer := time.NewTimer(m.timeout)
	defer timer.Stop()

	select {
	case <-token.Done():
		if err := token.Error(); err != nil {
			return fmt.Errorf("telemetry: %s: %w", op, err)
		}
		return nil
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return fmt.Errorf("telemetry: %s timed out after %s", op, m.timeout)
	}
}
