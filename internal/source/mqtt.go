// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package source

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"sync"

	mqtt "github.com/eclipse/paho.mqtt.golang"
)

// MQTTConfig selects a broker topic carrying raw NMEA lines, one or more per
// message.
type MQTTConfig struct {
	Broker   string `yaml:"broker"`
	ClientID string `yaml:"client_id"`
	Topic    string `yaml:"topic"`
}

const mqttQueueSize = 256

// MQTT is a LineSource fed by broker messages. When the consumer falls
// behind, the oldest queued line is dropped.
type MQTT struct {
	client mqtt.Client
	topic  string

	mu     sync.Mutex
	queue  chan string
	closed chan struct{}
	once   sync.Once
}

func newMQTTQueue(size int) *MQTT {
	return &MQTT{
		queue:  make(chan string, size),
		closed: make(chan struct{}),
	}
}

// DialMQTT connects to the broker and subscribes to cfg.Topic.
func DialMQTT(cfg MQTTConfig) (*MQTT, error) {
	if cfg.Broker == "" || cfg.Topic == "" {
		return nil, fmt.Errorf("source: mqtt broker and topic are required")
	}
	clientID := cfg.ClientID
	if clientID == "" {
		clientID = "nmeatop"
	}
	opts := mqtt.NewClientOptions().
		AddBroker(cfg.Broker).
		SetClientID(clientID).
		SetAutoReconnect(true)

	client := mqtt.NewClient(opts)
	if token := client.Connect(); token.Wait() && token.Error() != nil {
		return nil, fmt.Errorf("source: mqtt connect %s: %w", cfg.Broker, token.Error())
	}
	return NewMQTT(client, cfg.Topic)
}

// NewMQTT subscribes an already connected client to topic.
func NewMQTT(client mqtt.Client, topic string) (*MQTT, error) {
	m := newMQTTQueue(mqttQueueSize)
	m.client = client
	m.topic = topic

	token := client.Subscribe(topic, 0, func(_ mqtt.Client, msg mqtt.Message) {
		m.handle(msg.Payload())
	})
	token.Wait()
	if token.Error() != nil {
		return nil, fmt.Errorf("source: mqtt subscribe %s: %w", topic, token.Error())
	}
	return m, nil
}

func (m *MQTT) handle(payload []byte) {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, raw := range bytes.Split(payload, []byte{'\n'}) {
		line := string(bytes.TrimRight(raw, "\r"))
		if line == "" {
			continue
		}
		select {
		case <-m.closed:
			return
		default:
		}
		m.push(line)
	}
}

// push enqueues line, dropping the oldest entry while the queue is full so the
// newest fix always gets through. Callers hold m.mu.
func (m *MQTT) push(line string) {
	for {
		select {
		case m.queue <- line:
			return
		default:
		}
		select {
		case <-m.queue:
		default:
		}
	}
}

// NextLine returns the next queued line.
func (m *MQTT) NextLine(ctx context.Context) (string, error) {
	select {
	case <-ctx.Done():
		return "", ctx.Err()
	case line := <-m.queue:
		return line, nil
	case <-m.closed:
		return "", io.EOF
	}
}

// Close unsubscribes and disconnects the client.
func (m *MQTT) Close() error {
	m.once.Do(func() {
		close(m.closed)
		if m.client != nil {
			m.client.Unsubscribe(m.topic).Wait()
			m.client.Disconnect(250)
		}
	})
	return nil
}
