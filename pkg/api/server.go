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

// Package api serves the host-facing websocket endpoint: JSON-RPC 2.0
// notifications for every running-state transition, plus a small set of
// read-only request methods.
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"runtime"
	"strconv"
	"time"

	"github.com/ModPilotProject/modpilot-core/pkg/api/broker"
	"github.com/ModPilotProject/modpilot-core/pkg/api/models"
	"github.com/ModPilotProject/modpilot-core/pkg/config"
	"github.com/ModPilotProject/modpilot-core/pkg/database/sessiondb"
	"github.com/ModPilotProject/modpilot-core/pkg/database/statestore"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/google/uuid"
	"github.com/olahol/melody"
	"github.com/rs/zerolog/log"
)

const (
	requestTimeout    = 30 * time.Second
	recentSessionsMax = 50

	// broadcastBuffer is the broker-side backlog for the websocket pump.
	broadcastBuffer = 64
)

var (
	JSONRPCErrorParseError     = models.ErrorObject{Code: -32700, Message: "parse error"}
	JSONRPCErrorInvalidRequest = models.ErrorObject{Code: -32600, Message: "invalid request"}
	JSONRPCErrorMethodNotFound = models.ErrorObject{Code: -32601, Message: "method not found"}
	JSONRPCErrorServerError    = models.ErrorObject{Code: -32000, Message: "server error"}
)

// Env carries the service handles a request method may read from.
type Env struct {
	Config   *config.Instance
	Store    *statestore.Store
	Sessions *sessiondb.SessionDB
}

type methodFunc func(env Env, params json.RawMessage) (any, error)

var methodMap = map[string]methodFunc{
	models.MethodVersion:      handleVersion,
	models.MethodToolsRunning: handleToolsRunning,
	models.MethodSessions:     handleSessions,
}

func handleVersion(_ Env, _ json.RawMessage) (any, error) {
	return models.VersionResponse{
		Version:  config.AppVersion,
		Platform: runtime.GOOS,
	}, nil
}

func handleToolsRunning(env Env, _ json.RawMessage) (any, error) {
	return env.Store.RunningTools(), nil
}

func handleSessions(env Env, _ json.RawMessage) (any, error) {
	rows, err := env.Sessions.Recent(recentSessionsMax)
	if err != nil {
		return nil, fmt.Errorf("error reading sessions: %w", err)
	}

	resp := make([]models.SessionResponse, 0, len(rows))
	for _, row := range rows {
		resp = append(resp, models.SessionResponse{
			Path:      row.Path,
			PID:       row.PID,
			StartedAt: row.StartedAt,
			StoppedAt: row.StoppedAt,
		})
	}
	return resp, nil
}

func maybeUUID(req models.RequestObject) uuid.UUID {
	if req.ID == nil {
		return uuid.Nil
	}
	return *req.ID
}

func sendResponse(session *melody.Session, id uuid.UUID, result any) error {
	resp := models.ResponseObject{
		JSONRPC: "2.0",
		ID:      id,
		Result:  result,
	}

	data, err := json.Marshal(resp)
	if err != nil {
		return fmt.Errorf("error marshalling response: %w", err)
	}

	return session.Write(data) //nolint:wrapcheck // passthrough
}

func sendError(session *melody.Session, id uuid.UUID, errObj models.ErrorObject) error {
	resp := models.ResponseErrorObject{
		JSONRPC: "2.0",
		ID:      id,
		Error:   &errObj,
	}

	data, err := json.Marshal(resp)
	if err != nil {
		return fmt.Errorf("error marshalling error response: %w", err)
	}

	return session.Write(data) //nolint:wrapcheck // passthrough
}

// broadcastNotifications pumps broker notifications to every connected
// websocket client as JSON-RPC notification objects.
func broadcastNotifications(
	ctx context.Context,
	session *melody.Melody,
	notifications <-chan models.Notification,
) {
	for {
		select {
		case <-ctx.Done():
			log.Debug().Msg("api: stopping notification broadcast")
			return
		case notif, ok := <-notifications:
			if !ok {
				return
			}

			params, err := json.Marshal(notif.Params)
			if err != nil {
				log.Error().Err(err).Msg("marshalling notification params")
				continue
			}

			req := models.RequestObject{
				JSONRPC: "2.0",
				Method:  notif.Method,
				Params:  params,
			}

			data, err := json.Marshal(req)
			if err != nil {
				log.Error().Err(err).Msg("marshalling notification request")
				continue
			}

			if err := session.Broadcast(data); err != nil {
				log.Error().Err(err).Msg("broadcasting notification")
			}
		}
	}
}

func handleWSMessage(env Env) func(session *melody.Session, msg []byte) {
	return func(session *melody.Session, msg []byte) {
		// heartbeat short-circuit
		if bytes.Equal(msg, []byte("ping")) {
			if err := session.Write([]byte("pong")); err != nil {
				log.Error().Err(err).Msg("sending pong")
			}
			return
		}

		if !json.Valid(msg) {
			if err := sendError(session, uuid.Nil, JSONRPCErrorParseError); err != nil {
				log.Error().Err(err).Msg("error sending error response")
			}
			return
		}

		var req models.RequestObject
		if err := json.Unmarshal(msg, &req); err != nil || req.Method == "" {
			if err := sendError(session, maybeUUID(req), JSONRPCErrorInvalidRequest); err != nil {
				log.Error().Err(err).Msg("error sending error response")
			}
			return
		}

		if req.JSONRPC != "2.0" {
			log.Error().Str("jsonrpc", req.JSONRPC).Msg("unsupported payload version")
			if err := sendError(session, maybeUUID(req), JSONRPCErrorInvalidRequest); err != nil {
				log.Error().Err(err).Msg("error sending error response")
			}
			return
		}

		if req.ID == nil {
			// client-sent notifications carry nothing we act on
			log.Info().Str("method", req.Method).Msg("received notification, ignoring")
			return
		}

		fn, ok := methodMap[req.Method]
		if !ok {
			if err := sendError(session, *req.ID, JSONRPCErrorMethodNotFound); err != nil {
				log.Error().Err(err).Msg("error sending error response")
			}
			return
		}

		result, err := fn(env, req.Params)
		if err != nil {
			log.Error().Err(err).Str("method", req.Method).Msg("method handler failed")
			if err := sendError(session, *req.ID, JSONRPCErrorServerError); err != nil {
				log.Error().Err(err).Msg("error sending error response")
			}
			return
		}

		if err := sendResponse(session, *req.ID, result); err != nil {
			log.Error().Err(err).Msg("error sending response")
		}
	}
}

// Start blocks serving the API until the listener fails or ctx ends. Run it
// in its own goroutine.
func Start(ctx context.Context, env Env, nb *broker.Broker) error {
	r := chi.NewRouter()

	r.Use(middleware.Recoverer)
	r.Use(middleware.NoCache)
	r.Use(middleware.Timeout(requestTimeout))
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"https://*", "http://*"},
		AllowedMethods: []string{"GET"},
		AllowedHeaders: []string{"Accept"},
	}))

	session := melody.New()
	session.Upgrader.CheckOrigin = func(_ *http.Request) bool { return true }

	notifications, subID := nb.Subscribe(broadcastBuffer)
	defer nb.Unsubscribe(subID)
	go broadcastNotifications(ctx, session, notifications)

	r.Get("/api", func(w http.ResponseWriter, r *http.Request) {
		if err := session.HandleRequest(w, r); err != nil {
			log.Error().Err(err).Msg("handling websocket request")
		}
	})

	session.HandleMessage(handleWSMessage(env))

	srv := &http.Server{
		Addr:              ":" + strconv.Itoa(env.Config.APIPort()),
		Handler:           r,
		ReadHeaderTimeout: requestTimeout,
	}
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	log.Info().Int("port", env.Config.APIPort()).Msg("api server listening")
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("error starting http server: %w", err)
	}
	return nil
}
