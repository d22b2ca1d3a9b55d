// Copyright 2025 Poiesic Systems
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.


package session

import (
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/poiesic/intentdb/core"
)

// Store persists conversation sessions and their turns.
type Store struct {
	backend    *Backend
	sessionSeq *badger.Sequence
	turnSeq    *badger.Sequence
}

// NewStore creates a Store on the given backend.
func NewStore(backend *Backend) (*Store, error) {
	sessionSeq, err := backend.GetSequence(sessionIDSeq)
	if err != nil {
		return nil, err
	}

	turnSeq, err := backend.GetSequence(turnIDSeq)
	if err != nil {
		sessionSeq.Release()
		return nil, err
	}

	return &Store{
		backend:    backend,
		sessionSeq: sessionSeq,
		turnSeq:    turnSeq,
	}, nil
}

// Close releases the ID sequences.
func (s *Store) Close() error {
	err := s.sessionSeq.Release()
	if turnErr := s.turnSeq.Release(); err == nil {
		err = turnErr
	}
	return err
}

// CreateSession registers a new session and returns its ID.
func (s *Store) CreateSession(ctx context.Context) (core.ID, error) {
	id, err := s.nextID(s.sessionSeq)
	if err != nil {
		return 0, err
	}

	created := make([]byte, 8)
	binary.BigEndian.PutUint64(created, uint64(time.Now().UTC().UnixMicro()))

	err = s.backend.WithTx(func(tx *badger.Txn) error {
		if err := tx.Set(makeSessionKey(id), created); err != nil {
			return err
		}
		return tx.Commit()
	}, true)
	if err != nil {
		return 0, err
	}
	return id, nil
}

// SessionExists reports whether the session has been created.
func (s *Store) SessionExists(ctx context.Context, sessionID core.ID) (bool, error) {
	exists := false
	err := s.backend.WithTx(func(tx *badger.Txn) error {
		_, err := tx.Get(makeSessionKey(sessionID))
		if errors.Is(err, badger.ErrKeyNotFound) {
			return nil
		}
		if err != nil {
			return err
		}
		exists = true
		return nil
	}, false)
	return exists, err
}

// AppendTurn adds a turn to an existing session. The turn's ID and
// timestamp are assigned here; the content and speaker are validated
// before anything is written.
func (s *Store) AppendTurn(ctx context.Context, sessionID core.ID, speaker core.Speaker, content string) (*core.Turn, error) {
	turn := core.Turn{
		SessionId: sessionID,
		Speaker:   speaker,
		Content:   content,
		Timestamp: time.Now().UTC(),
	}
	if err := core.ValidateTurn(&turn); err != nil {
		return nil, err
	}

	id, err := s.nextID(s.turnSeq)
	if err != nil {
		return nil, err
	}
	turn.Id = id

	value := make([]byte, core.TurnMUS.Size(turn))
	core.TurnMUS.Marshal(turn, value)

	err = s.backend.WithTx(func(tx *badger.Txn) error {
		if _, err := tx.Get(makeSessionKey(sessionID)); err != nil {
			if errors.Is(err, badger.ErrKeyNotFound) {
				return fmt.Errorf("%w: session %d", ErrSessionNotFound, sessionID)
			}
			return err
		}
		if err := tx.Set(makeTurnKey(sessionID, turn.Id), value); err != nil {
			return err
		}
		return tx.Commit()
	}, true)
	if err != nil {
		return nil, err
	}
	return &turn, nil
}

// Turns returns all turns of the session in chronological order.
func (s *Store) Turns(ctx context.Context, sessionID core.ID) ([]core.Turn, error) {
	var turns []core.Turn

	err := s.backend.WithTx(func(tx *badger.Txn) error {
		if _, err := tx.Get(makeSessionKey(sessionID)); err != nil {
			if errors.Is(err, badger.ErrKeyNotFound) {
				return fmt.Errorf("%w: session %d", ErrSessionNotFound, sessionID)
			}
			return err
		}

		opts := badger.DefaultIteratorOptions
		opts.Prefix = makePartialTurnKey(sessionID)
		iter := tx.NewIterator(opts)
		defer iter.Close()

		for iter.Rewind(); iter.Valid(); iter.Next() {
			err := iter.Item().Value(func(val []byte) error {
				turn, _, err := core.TurnMUS.Unmarshal(val)
				if err != nil {
					return fmt.Errorf("%w: %v", ErrSerializationFailed, err)
				}
				turns = append(turns, turn)
				return nil
			})
			if err != nil {
				return err
			}
		}
		return nil
	}, false)
	if err != nil {
		return nil, err
	}
	return turns, nil
}

// RecentTurns returns the last n turns of the session in chronological
// order. With n <= 0 it returns nothing.
func (s *Store) RecentTurns(ctx context.Context, sessionID core.ID, n int) ([]core.Turn, error) {
	if n <= 0 {
		return nil, nil
	}

	turns, err := s.Turns(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if len(turns) > n {
		turns = turns[len(turns)-n:]
	}
	return turns, nil
}

// DeleteSession removes a session and all its turns.
func (s *Store) DeleteSession(ctx context.Context, sessionID core.ID) error {
	return s.backend.WithTx(func(tx *badger.Txn) error {
		if _, err := tx.Get(makeSessionKey(sessionID)); err != nil {
			if errors.Is(err, badger.ErrKeyNotFound) {
				return fmt.Errorf("%w: session %d", ErrSessionNotFound, sessionID)
			}
			return err
		}

		opts := badger.DefaultIteratorOptions
		opts.Prefix = makePartialTurnKey(sessionID)
		opts.PrefetchValues = false
		iter := tx.NewIterator(opts)

		var keys [][]byte
		for iter.Rewind(); iter.Valid(); iter.Next() {
			keys = append(keys, iter.Item().KeyCopy(nil))
		}
		iter.Close()

		for _, key := range keys {
			if err := tx.Delete(key); err != nil {
				return err
			}
		}
		if err := tx.Delete(makeSessionKey(sessionID)); err != nil {
			return err
		}
		return tx.Commit()
	}, true)
}

// nextID draws from a sequence, skipping the zero BadgerDB can return on
// first use.
func (s *Store) nextID(seq *badger.Sequence) (core.ID, error) {
	next, err := seq.Next()
	if err != nil {
		return 0, err
	}
	if next == 0 {
		next, err = seq.Next()
		if err != nil {
			return 0, err
		}
	}
	return core.ID(next), nil
}
