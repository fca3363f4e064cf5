// ModPilot Core
// Copyright (c) 2026 The ModPilot Project Contributors.
// SPDX-License-Identifier: GPL-3.0-or-later
//
// This file is part of ModPilot Core.
//
// ModPilot Core is free software: you can redistribute it and/or modify
// it under the terms of the GNU General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// ModPilot Core is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
// GNU General Public License for more details.
//
// You should have received a copy of the GNU General Public License
// along with ModPilot Core.  If not, see <http://www.gnu.org/licenses/>.

package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/ModPilotProject/modpilot-core/pkg/api"
	"github.com/ModPilotProject/modpilot-core/pkg/api/broker"
	"github.com/ModPilotProject/modpilot-core/pkg/api/notifications"
	"github.com/ModPilotProject/modpilot-core/pkg/config"
	"github.com/ModPilotProject/modpilot-core/pkg/database/sessiondb"
	"github.com/ModPilotProject/modpilot-core/pkg/database/statestore"
	"github.com/ModPilotProject/modpilot-core/pkg/helpers"
	"github.com/ModPilotProject/modpilot-core/pkg/monitor"
	"github.com/rs/zerolog/log"
)

const sessionRecorderBuffer = 64

func main() {
	if err := run(); err != nil {
		_, _ = fmt.Fprintf(os.Stderr, "Error: %s\n", err)
		os.Exit(1)
	}
}

func run() error {
	showVersion := flag.Bool("version", false, "print version and exit")
	configDir := flag.String("config-dir", "", "override config directory")
	debug := flag.Bool("debug", false, "force debug logging")
	flag.Parse()

	if *showVersion {
		fmt.Printf("%s v%s\n", config.AppName, config.AppVersion)
		return nil
	}

	dir := *configDir
	if dir == "" {
		dir = helpers.ConfigDir()
	}

	cfg, err := config.NewConfig(dir, config.BaseDefaults)
	if err != nil {
		return fmt.Errorf("error loading config: %w", err)
	}

	err = helpers.InitLogging(
		helpers.LogDir(),
		*debug || cfg.DebugLogging(),
		[]io.Writer{os.Stderr},
	)
	if err != nil {
		return fmt.Errorf("error initializing logging: %w", err)
	}

	defer func() {
		if r := recover(); r != nil {
			_, _ = fmt.Fprintf(os.Stderr, "Panic: %v\n", r)
			log.Fatal().Msgf("panic: %v", r)
		}
	}()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	store, notificationCh := statestore.NewStore()

	err = cfg.WatchReload(ctx, func() {
		notifications.SettingsReloaded(store.Notifications)
	})
	if err != nil {
		// config edits just won't apply live, not fatal
		log.Warn().Err(err).Msg("config hot-reload unavailable")
	}

	if err := os.MkdirAll(helpers.DataDir(), 0o750); err != nil {
		return fmt.Errorf("error creating data directory: %w", err)
	}
	sessions, err := sessiondb.Open(helpers.DataDir())
	if err != nil {
		return fmt.Errorf("error opening session database: %w", err)
	}
	defer func() {
		if err := sessions.Close(); err != nil {
			log.Error().Err(err).Msg("closing session database")
		}
	}()

	nb := broker.NewBroker(ctx, notificationCh)
	nb.Start()

	recorderCh, recorderID := nb.Subscribe(sessionRecorderBuffer)
	defer nb.Unsubscribe(recorderID)
	go sessions.Record(ctx, recorderCh)

	mon := monitor.New(cfg, store)
	mon.Start()
	defer mon.Stop()

	apiErr := make(chan error, 1)
	go func() {
		apiErr <- api.Start(ctx, api.Env{
			Config:   cfg,
			Store:    store,
			Sessions: sessions,
		}, nb)
	}()

	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-sigs:
		log.Info().Str("signal", sig.String()).Msg("shutting down")
		return nil
	case err := <-apiErr:
		if err != nil {
			return fmt.Errorf("api server failed: %w", err)
		}
		return nil
	}
}
