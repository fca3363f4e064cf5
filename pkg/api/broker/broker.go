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

// Package broker fans notifications out from the state store to every
// consumer that wants them: the websocket server, the session recorder, and
// whatever subscribes next.
package broker

import (
	"context"

	"github.com/ModPilotProject/modpilot-core/pkg/api/models"
	"github.com/ModPilotProject/modpilot-core/pkg/helpers/syncutil"
	"github.com/rs/zerolog/log"
)

// Broker reads from a single source channel and broadcasts each notification
// to all subscribers. Sends to subscribers never block: a subscriber that
// falls behind loses notifications rather than stalling the monitor.
type Broker struct {
	ctx         context.Context
	source      <-chan models.Notification
	subscribers map[int]chan models.Notification
	mu          syncutil.RWMutex
	nextID      int
}

func NewBroker(ctx context.Context, source <-chan models.Notification) *Broker {
	return &Broker{
		ctx:         ctx,
		source:      source,
		subscribers: make(map[int]chan models.Notification),
	}
}

// Start runs the broadcast loop in a goroutine. The loop exits, closing all
// subscriber channels, when the source closes or the context is cancelled.
func (b *Broker) Start() {
	go func() {
		for {
			select {
			case notif, ok := <-b.source:
				if !ok {
					b.closeAll()
					return
				}
				b.broadcast(notif)
			case <-b.ctx.Done():
				b.closeAll()
				return
			}
		}
	}()
}

func (b *Broker) broadcast(notif models.Notification) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	for id, ch := range b.subscribers {
		select {
		case ch <- notif:
		default:
			log.Warn().
				Int("subscriber_id", id).
				Str("method", notif.Method).
				Msg("subscriber backlog full, notification dropped")
		}
	}
}

// Subscribe registers a consumer and returns its channel plus an id for
// Unsubscribe. bufferSize is how far the consumer may lag before broadcasts
// to it start dropping.
func (b *Broker) Subscribe(bufferSize int) (<-chan models.Notification, int) {
	b.mu.Lock()
	defer b.mu.Unlock()

	id := b.nextID
	b.nextID++

	ch := make(chan models.Notification, bufferSize)
	b.subscribers[id] = ch
	return ch, id
}

// Unsubscribe removes a consumer and closes its channel. Unknown ids are
// ignored, so calling it twice is fine.
func (b *Broker) Unsubscribe(id int) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if ch, ok := b.subscribers[id]; ok {
		delete(b.subscribers, id)
		close(ch)
	}
}

func (b *Broker) closeAll() {
	b.mu.Lock()
	defer b.mu.Unlock()

	for _, ch := range b.subscribers {
		close(ch)
	}
	b.subscribers = make(map[int]chan models.Notification)
}
