// Copyright 2026 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package telemetry

import (
	"encoding/json"
	"fmt"

	mqtt "github.com/eclipse/paho.mqtt.golang"
)

// client is the part of mqtt.Client used by Publisher.
type client interface {
	Publish(topic string, qos byte, retained bool, payload interface{}) mqtt.Token
	Disconnect(quiesce uint)
}

// Publisher sends payloads to an MQTT topic.
type Publisher struct {
	c     client
	topic string
}

// Dial connects to broker and returns a Publisher for topic.
func Dial(broker, clientID, topic string) (*Publisher, error) {
	opts := mqtt.NewClientOptions().AddBroker(broker).SetClientID(clientID)
	c := mqtt.NewClient(opts)
	if token := c.Connect(); token.Wait() && token.Error() != nil {
		return nil, fmt.Errorf("telemetry: mqtt connect %s: %w", broker, token.Error())
	}
	return &Publisher{c: c, topic: topic}, nil
}

// Publish sends v with QoS 0, not retained, and waits for completion.
func (p *Publisher) Publish(v Payload) error {
	b, err := json.Marshal(v)
	if err != nil {
		return err
	}
	t := p.c.Publish(p.topic, 0, false, b)
	t.Wait()
	if err := t.Error(); err != nil {
		return fmt.Errorf("telemetry: publish %s: %w", p.topic, err)
	}
	return nil
}

// Topic returns the destination topic.
func (p *Publisher) Topic() string {
	return p.topic
}

// Close disconnects from the broker.
func (p *Publisher) Close() error {
	p.c.Disconnect(250)
	return nil
}
