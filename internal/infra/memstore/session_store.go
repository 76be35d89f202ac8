// Package memstore holds the in-process SessionStore used by the default
// single-process deployment. Session loss on restart is an accepted tradeoff
// of this design, not a defect; the redis implementation is a drop-in
// replacement when restart survival is required.
package memstore

import (
	"context"
	"sync"

	"telegram-fieldops-dispatch/internal/domain/ports/repository"
)

var _ repository.SessionStore = (*SessionStore)(nil)

type SessionStore struct {
	mu       sync.RWMutex
	sessions map[int64]*repository.ConversationSession
}

func NewSessionStore() *SessionStore {
	return &SessionStore{sessions: make(map[int64]*repository.ConversationSession)}
}

func (s *SessionStore) Set(ctx context.Context, chatID int64, sess *repository.ConversationSession) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *sess
	if cp.Data == nil {
		cp.Data = map[string]string{}
	}
	s.sessions[chatID] = &cp
	return nil
}

func (s *SessionStore) Get(ctx context.Context, chatID int64) (*repository.ConversationSession, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	sess, ok := s.sessions[chatID]
	if !ok {
		return nil, nil
	}
	cp := *sess
	return &cp, nil
}

func (s *SessionStore) Clear(ctx context.Context, chatID int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.sessions, chatID)
	return nil
}
