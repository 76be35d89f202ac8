package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"telegram-fieldops-dispatch/internal/domain/ports/repository"
)

var _ repository.SessionStore = (*SessionStore)(nil)

// SessionStore keeps conversational state in Redis so multi-step flows
// survive a process restart. Drop-in replacement for the in-memory store.
type SessionStore struct {
	client RedisClient
	ttl    time.Duration
}

func NewSessionStore(client RedisClient) *SessionStore {
	return &SessionStore{
		client: client,
		ttl:    15 * time.Minute, // give users 15 minutes to finish any flow
	}
}

func (s *SessionStore) key(chatID int64) string {
	return fmt.Sprintf("conv_session:%d", chatID)
}

func (s *SessionStore) Set(ctx context.Context, chatID int64, sess *repository.ConversationSession) error {
	data, err := json.Marshal(sess)
	if err != nil {
		return err
	}
	return s.client.Set(ctx, s.key(chatID), data, s.ttl)
}

func (s *SessionStore) Get(ctx context.Context, chatID int64) (*repository.ConversationSession, error) {
	data, err := s.client.Get(ctx, s.key(chatID))
	if err != nil {
		if IsNil(err) {
			return nil, nil
		}
		return nil, err
	}
	var sess repository.ConversationSession
	if err := json.Unmarshal([]byte(data), &sess); err != nil {
		return nil, err
	}
	return &sess, nil
}

func (s *SessionStore) Clear(ctx context.Context, chatID int64) error {
	return s.client.Del(ctx, s.key(chatID))
}
