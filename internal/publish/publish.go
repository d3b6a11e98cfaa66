// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

// Package publish mirrors status snapshots to an MQTT topic as retained JSON.
package publish

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/go-kit/log"
	"github.com/go-kit/log/level"

	"github.com/relabs-tech/nmeatop/internal/status"
)

const (
	DefaultInterval = time.Second
	publishTimeout  = 2 * time.Second
)

// Config enables the publisher when Broker and Topic are set.
type Config struct {
	Broker   string        `yaml:"broker"`
	ClientID string        `yaml:"client_id"`
	Topic    string        `yaml:"topic"`
	Interval time.Duration `yaml:"interval"`
}

// Enabled reports whether enough is configured to publish.
func (c Config) Enabled() bool {
	return c.Broker != "" && c.Topic != ""
}

type client interface {
	Publish(topic string, qos byte, retained bool, payload interface{}) mqtt.Token
}

// Publisher sends the current snapshot every interval. Failed publishes are
// logged and retried on the next tick.
type Publisher struct {
	client   client
	topic    string
	interval time.Duration
	store    *status.Store
	logger   log.Logger

	disconnect func()
}

// Dial connects to cfg.Broker.
func Dial(store *status.Store, cfg Config, logger log.Logger) (*Publisher, error) {
	clientID := cfg.ClientID
	if clientID == "" {
		clientID = "nmeatop-publisher"
	}
	opts := mqtt.NewClientOptions().
		AddBroker(cfg.Broker).
		SetClientID(clientID).
		SetAutoReconnect(true)

	c := mqtt.NewClient(opts)
	if token := c.Connect(); token.Wait() && token.Error() != nil {
		return nil, fmt.Errorf("publish: mqtt connect %s: %w", cfg.Broker, token.Error())
	}
	p := newPublisher(c, store, cfg, logger)
	p.disconnect = func() { c.Disconnect(250) }
	return p, nil
}

func newPublisher(c client, store *status.Store, cfg Config, logger log.Logger) *Publisher {
	if cfg.Interval <= 0 {
		cfg.Interval = DefaultInterval
	}
	if logger == nil {
		logger = log.NewNopLogger()
	}
	return &Publisher{
		client:   c,
		topic:    cfg.Topic,
		interval: cfg.Interval,
		store:    store,
		logger:   log.With(logger, "component", "publish", "topic", cfg.Topic),
	}
}

// Publish sends one snapshot.
func (p *Publisher) Publish() error {
	payload, err := json.Marshal(p.store.Snapshot())
	if err != nil {
		return fmt.Errorf("publish: marshal snapshot: %w", err)
	}
	token := p.client.Publish(p.topic, 0, true, payload)
	if !token.WaitTimeout(publishTimeout) {
		return fmt.Errorf("publish: %s: timed out", p.topic)
	}
	if err := token.Error(); err != nil {
		return fmt.Errorf("publish: %s: %w", p.topic, err)
	}
	return nil
}

// Run publishes until ctx is cancelled, then disconnects.
func (p *Publisher) Run(ctx context.Context) error {
	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()
	if p.disconnect != nil {
		defer p.disconnect()
	}

	level.Info(p.logger).Log("msg", "publisher started", "interval", p.interval)
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			if err := p.Publish(); err != nil {
				level.Warn(p.logger).Log("msg", "publish failed", "err", err)
			}
		}
	}
}
