// Copyright (c) 2026 Hush Communications Ltd.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// hushrelayd is the message relay daemon for Hush. It queues encrypted
// envelopes per thread until recipients fetch them.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"time"

	"github.com/rs/zerolog"

	"github.com/hushcomm/hush/config"
	"github.com/hushcomm/hush/def/version"
	"github.com/hushcomm/hush/relay"
	"github.com/hushcomm/hush/util"
	"github.com/hushcomm/hush/util/interrupt"
)

func hushrelaydMain() error {
	configPath := flag.String("config", "", "path to YAML configuration file")
	listen := flag.String("listen", "", "listen address (overrides config)")
	showVersion := flag.Bool("version", false, "print version and exit")
	flag.Parse()

	if *showVersion {
		fmt.Println("hushrelayd version " + version.Number)
		return nil
	}

	cfg := config.Default()
	if *configPath != "" {
		var err error
		cfg, err = config.Load(*configPath)
		if err != nil {
			return err
		}
	}
	if *listen != "" {
		cfg.Listen = *listen
	}

	level, err := zerolog.ParseLevel(cfg.LogLevel)
	if err != nil {
		return fmt.Errorf("hushrelayd: unknown log level %q", cfg.LogLevel)
	}
	log := zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339}).
		Level(level).With().Timestamp().Logger()

	srv := relay.NewServer(cfg.Listen,
		relay.WithServerLogger(log),
		relay.WithQueueCapacity(cfg.Relay.QueueCapacity))

	// add interrupt handler
	interrupt.AddInterruptHandler(func() {
		log.Info().Msg("gracefully shutting down...")
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(ctx); err != nil {
			log.Error().Err(err).Msg("shutdown failed")
		}
	})

	// start relay server
	go func() {
		if err := srv.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
			interrupt.ShutdownChannel <- err
		}
	}()

	return <-interrupt.ShutdownChannel
}

func main() {
	if err := hushrelaydMain(); err != nil {
		util.Fatal(err)
	}
}
