// Copyright 2026 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package app

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"time"

	"github.com/GermanBionicSystems/melexis/internal/metrics"
	"github.com/GermanBionicSystems/melexis/internal/telemetry"
	"github.com/GermanBionicSystems/melexis/mlx90392"
)

var now = time.Now

type publisher interface {
	Publish(telemetry.Payload) error
}

// fanout sends each sample to every output of serve.
type fanout struct {
	pub     publisher
	hub     *telemetry.Hub
	metrics *metrics.Metrics
}

func (f *fanout) handle(m mlx90392.Measurement) {
	f.metrics.Observe(m)
	if m.Err != nil {
		log.Printf("mlx90392: read: %v", m.Err)
		return
	}
	p := telemetry.NewPayload(m)
	if b, err := json.Marshal(p); err == nil {
		f.hub.Broadcast(b)
	}
	f.metrics.Clients(f.hub.Len())
	if f.pub == nil {
		return
	}
	if err := f.pub.Publish(p); err != nil {
		f.metrics.Error("publish")
		log.Printf("mlx90392: %v", err)
	}
}

func (a *App) serve(ctx context.Context, args []string) error {
	fs := a.newFlags("serve")
	mode := fs.String("mode", "", "continuous mode, defaults to MODE")
	if err := parseArgs(fs, args); err != nil {
		return err
	}
	m, err := a.continuousMode(*mode)
	if err != nil {
		return err
	}

	f := &fanout{hub: telemetry.NewHub(), metrics: metrics.New()}
	defer f.hub.Close()
	if a.Config.MQTTBroker != "" {
		pub, err := telemetry.Dial(a.Config.MQTTBroker, a.Config.MQTTClientID, a.Config.MQTTTopic)
		if err != nil {
			return err
		}
		defer pub.Close()
		f.pub = pub
		log.Printf("publishing to %s on %s", pub.Topic(), a.Config.MQTTBroker)
	}

	mux := http.NewServeMux()
	mux.Handle("/metrics", f.metrics.Handler())
	mux.Handle("/ws", f.hub)
	srv := &http.Server{Addr: a.Config.HTTPListen, Handler: mux}
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Printf("http: %v", err)
		}
	}()
	log.Printf("serving /metrics and /ws on %s", a.Config.HTTPListen)

	ch, err := a.Dev.SenseContinuous(m)
	if err != nil {
		srv.Close()
		return err
	}
	err = a.consume(ctx, ch, 0, func(s mlx90392.Measurement) error {
		f.handle(s)
		return nil
	})
	if herr := a.Dev.Halt(); err == nil {
		err = herr
	}
	shutdown, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	if serr := srv.Shutdown(shutdown); err == nil {
		err = serr
	}
	return err
}
