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

// Package sessiondb keeps a persistent history of play sessions: one row per
// observed run of the game or a tool, from start transition to stop
// transition.
package sessiondb

import (
	"context"
	"encoding/binary"
	"encoding/json"
	"fmt"
	"path/filepath"
	"time"

	"github.com/ModPilotProject/modpilot-core/pkg/api/models"
	"github.com/rs/zerolog/log"
	bolt "go.etcd.io/bbolt"
)

const (
	BucketSessions = "sessions"
	BucketOpen     = "open"

	DBFile = "sessions.db"
)

// Session is one stored row. StoppedAt is nil while the executable is still
// running.
type Session struct {
	StartedAt time.Time  `json:"startedAt"`
	StoppedAt *time.Time `json:"stoppedAt,omitempty"`
	Path      string     `json:"path"`
	PID       int        `json:"pid"`
}

// SessionDB wraps the bolt file. All methods are safe for concurrent use;
// bolt serializes writes itself.
type SessionDB struct {
	bdb *bolt.DB
	now func() time.Time
}

// Open opens (or creates) the session database in dir. Sessions left open by
// a previous run that never saw its stop transition are closed immediately,
// stamped with the open time since the real stop time is unknowable.
func Open(dir string) (*SessionDB, error) {
	bdb, err := bolt.Open(filepath.Join(dir, DBFile), 0o600, &bolt.Options{
		Timeout: time.Second,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open session database: %w", err)
	}

	db := &SessionDB{bdb: bdb, now: time.Now}

	err = bdb.Update(func(txn *bolt.Tx) error {
		if _, err := txn.CreateBucketIfNotExists([]byte(BucketSessions)); err != nil {
			return fmt.Errorf("failed to create sessions bucket: %w", err)
		}
		if _, err := txn.CreateBucketIfNotExists([]byte(BucketOpen)); err != nil {
			return fmt.Errorf("failed to create open bucket: %w", err)
		}
		return nil
	})
	if err != nil {
		_ = bdb.Close()
		return nil, err
	}

	if err := db.closeStale(); err != nil {
		_ = bdb.Close()
		return nil, err
	}

	return db, nil
}

func (d *SessionDB) Close() error {
	if err := d.bdb.Close(); err != nil {
		return fmt.Errorf("failed to close session database: %w", err)
	}
	return nil
}

// StartSession opens a new row for path. A still-open row for the same path
// means the previous stop was lost; it is closed first.
func (d *SessionDB) StartSession(path string, pid int) error {
	err := d.bdb.Update(func(txn *bolt.Tx) error {
		sessions := txn.Bucket([]byte(BucketSessions))
		open := txn.Bucket([]byte(BucketOpen))

		if prev := open.Get([]byte(path)); prev != nil {
			if err := closeSessionRow(sessions, prev, d.now()); err != nil {
				return err
			}
			log.Warn().Str("path", path).Msg("closed orphaned session on new start")
		}

		seq, err := sessions.NextSequence()
		if err != nil {
			return fmt.Errorf("failed to allocate session id: %w", err)
		}

		row, err := json.Marshal(Session{
			Path:      path,
			PID:       pid,
			StartedAt: d.now(),
		})
		if err != nil {
			return fmt.Errorf("failed to marshal session: %w", err)
		}

		key := itob(seq)
		if err := sessions.Put(key, row); err != nil {
			return fmt.Errorf("failed to store session: %w", err)
		}
		if err := open.Put([]byte(path), key); err != nil {
			return fmt.Errorf("failed to index open session: %w", err)
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to update session database: %w", err)
	}
	return nil
}

// StopSession closes the open row for path. A stop with no matching open row
// is logged and ignored.
func (d *SessionDB) StopSession(path string) error {
	err := d.bdb.Update(func(txn *bolt.Tx) error {
		sessions := txn.Bucket([]byte(BucketSessions))
		open := txn.Bucket([]byte(BucketOpen))

		key := open.Get([]byte(path))
		if key == nil {
			log.Warn().Str("path", path).Msg("stop for session that was never started")
			return nil
		}

		if err := closeSessionRow(sessions, key, d.now()); err != nil {
			return err
		}
		if err := open.Delete([]byte(path)); err != nil {
			return fmt.Errorf("failed to drop open index: %w", err)
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to update session database: %w", err)
	}
	return nil
}

// Recent returns up to limit sessions, newest first.
func (d *SessionDB) Recent(limit int) ([]Session, error) {
	rows := make([]Session, 0, limit)

	err := d.bdb.View(func(txn *bolt.Tx) error {
		c := txn.Bucket([]byte(BucketSessions)).Cursor()
		for k, v := c.Last(); k != nil && len(rows) < limit; k, v = c.Prev() {
			var s Session
			if err := json.Unmarshal(v, &s); err != nil {
				return fmt.Errorf("failed to unmarshal session: %w", err)
			}
			rows = append(rows, s)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to view session database: %w", err)
	}

	return rows, nil
}

// Record consumes transition notifications until the channel closes or the
// context is cancelled. Run it in its own goroutine.
func (d *SessionDB) Record(ctx context.Context, ns <-chan models.Notification) {
	for {
		select {
		case notif, ok := <-ns:
			if !ok {
				return
			}
			d.record(notif)
		case <-ctx.Done():
			return
		}
	}
}

func (d *SessionDB) record(notif models.Notification) {
	switch notif.Method {
	case models.NotificationToolStarted:
		params, ok := notif.Params.(models.ToolStartedParams)
		if !ok {
			return
		}
		if err := d.StartSession(params.Path, params.PID); err != nil {
			log.Error().Err(err).Str("path", params.Path).Msg("failed to record session start")
		}
	case models.NotificationToolStopped:
		params, ok := notif.Params.(models.ToolStoppedParams)
		if !ok {
			return
		}
		if err := d.StopSession(params.Path); err != nil {
			log.Error().Err(err).Str("path", params.Path).Msg("failed to record session stop")
		}
	}
}

// closeStale closes every row still indexed as open. Called once on Open,
// before any new sessions are written.
func (d *SessionDB) closeStale() error {
	err := d.bdb.Update(func(txn *bolt.Tx) error {
		sessions := txn.Bucket([]byte(BucketSessions))
		open := txn.Bucket([]byte(BucketOpen))

		c := open.Cursor()
		for path, key := c.First(); path != nil; path, key = c.Next() {
			if err := closeSessionRow(sessions, key, d.now()); err != nil {
				return err
			}
			log.Warn().Str("path", string(path)).Msg("closed stale session from previous run")
		}
		return txn.DeleteBucket([]byte(BucketOpen)) //nolint:wrapcheck // recreated below
	})
	if err != nil {
		return fmt.Errorf("failed to close stale sessions: %w", err)
	}

	err = d.bdb.Update(func(txn *bolt.Tx) error {
		_, err := txn.CreateBucketIfNotExists([]byte(BucketOpen))
		return err //nolint:wrapcheck // single call
	})
	if err != nil {
		return fmt.Errorf("failed to recreate open bucket: %w", err)
	}
	return nil
}

func closeSessionRow(sessions *bolt.Bucket, key []byte, at time.Time) error {
	row := sessions.Get(key)
	if row == nil {
		return fmt.Errorf("open index points at missing session %x", key)
	}

	var s Session
	if err := json.Unmarshal(row, &s); err != nil {
		return fmt.Errorf("failed to unmarshal session: %w", err)
	}
	s.StoppedAt = &at

	updated, err := json.Marshal(s)
	if err != nil {
		return fmt.Errorf("failed to marshal session: %w", err)
	}
	if err := sessions.Put(key, updated); err != nil {
		return fmt.Errorf("failed to store closed session: %w", err)
	}
	return nil
}

func itob(v uint64) []byte {
	b := make([]byte, 8)
	binary.BigEndian.PutUint64(b, v)
	return b
}
