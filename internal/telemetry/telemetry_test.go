// Copyright 2026 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package telemetry

import (
	"encoding/json"
	"errors"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/GermanBionicSystems/melexis/mlx90392"
	mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/google/go-cmp/cmp"
	"github.com/gorilla/websocket"
)

var sample = mlx90392.Measurement{
	Raw:   mlx90392.RawField{X: 20, Y: 0, Z: -20},
	Field: mlx90392.Field{X: 3, Y: 0, Z: -4},
	Time:  time.Date(2026, 3, 1, 12, 0, 0, 500, time.UTC),
}

func TestPayloadJSON(t *testing.T) {
	b, err := json.Marshal(NewPayload(sample))
	if err != nil {
		t.Fatal(err)
	}
	const want = `{"x":3,"y":0,"z":-4,"norm":5,"raw":{"x":20,"y":0,"z":-20},"time":"2026-03-01T12:00:00.0000005Z"}`
	if string(b) != want {
		t.Errorf("got  %s\nwant %s", b, want)
	}
}

type token struct{ err error }

func (t *token) Wait() bool                     { return true }
func (t *token) WaitTimeout(time.Duration) bool { return true }
func (t *token) Error() error                   { return t.err }

func (t *token) Done() <-chan struct{} {
	c := make(chan struct{})
	close(c)
	return c
}

type message struct {
	Topic   string
	QoS     byte
	Retain  bool
	Payload string
}

type fakeClient struct {
	sent         []message
	err          error
	disconnected bool
}

func (f *fakeClient) Publish(topic string, qos byte, retained bool, payload interface{}) mqtt.Token {
	f.sent = append(f.sent, message{topic, qos, retained, string(payload.([]byte))})
	return &token{err: f.err}
}

func (f *fakeClient) Disconnect(uint) { f.disconnected = true }

func TestPublisher(t *testing.T) {
	c := &fakeClient{}
	p := &Publisher{c: c, topic: "sensors/mag"}
	if err := p.Publish(NewPayload(sample)); err != nil {
		t.Fatal(err)
	}
	b, _ := json.Marshal(NewPayload(sample))
	want := []message{{Topic: "sensors/mag", Payload: string(b)}}
	if diff := cmp.Diff(want, c.sent); diff != "" {
		t.Errorf("published mismatch (-want +got):\n%s", diff)
	}
	c.err = errors.New("not connected")
	if err := p.Publish(Payload{}); !errors.Is(err, c.err) {
		t.Errorf("expected publish error, got %v", err)
	}
	if err := p.Close(); err != nil || !c.disconnected {
		t.Errorf("Close()=%v disconnected=%t", err, c.disconnected)
	}
}

func TestHub(t *testing.T) {
	h := NewHub()
	srv := httptest.NewServer(h)
	defer srv.Close()
	conn, _, err := websocket.DefaultDialer.Dial("ws"+strings.TrimPrefix(srv.URL, "http"), nil)
	if err != nil {
		t.Fatal(err)
	}
	defer conn.Close()
	deadline := time.Now().Add(2 * time.Second)
	for h.Len() != 1 {
		if time.Now().After(deadline) {
			t.Fatal("client never registered")
		}
		time.Sleep(time.Millisecond)
	}
	h.Broadcast([]byte(`{"x":1}`))
	_ = conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	typ, msg, err := conn.ReadMessage()
	if err != nil {
		t.Fatal(err)
	}
	if typ != websocket.TextMessage || string(msg) != `{"x":1}` {
		t.Errorf("got %d %q", typ, msg)
	}
	if err := h.Close(); err != nil {
		t.Fatal(err)
	}
	if h.Len() != 0 {
		t.Errorf("Len()=%d after Close", h.Len())
	}
}
