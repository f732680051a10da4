package state

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

var (
	ErrStateNotFound  = errors.New("conversation state not found")
	ErrInvalidConvID  = errors.New("conversation id is empty")
	ErrNilRedisClient = errors.New("redis client is nil")
)

const (
	defaultStoreKeyPrefix = "jtcg:conv:"
	defaultStoreTTL       = 24 * time.Hour
)

// Store is the persistence contract used by the orchestrator. The core never
// assumes durability: a host may plug in Redis, or the in-memory store for
// tests and the CLI.
type Store interface {
	Load(ctx context.Context, conversationID string) (*ConversationContext, error)
	Save(ctx context.Context, conv *ConversationContext) error
	Delete(ctx context.Context, conversationID string) error
}

// StoreOption customizes RedisStore.
type StoreOption func(*RedisStore)

func WithKeyPrefix(prefix string) StoreOption {
	return func(s *RedisStore) {
		if trimmed := strings.TrimSpace(prefix); trimmed != "" {
			s.keyPrefix = trimmed
		}
	}
}

func WithTTL(ttl time.Duration) StoreOption {
	return func(s *RedisStore) {
		s.ttl = ttl
	}
}

// RedisStore persists ConversationContext as a JSON blob per conversation.
type RedisStore struct {
	client    *redis.Client
	keyPrefix string
	ttl       time.Duration
}

func NewRedisStore(client *redis.Client, opts ...StoreOption) (*RedisStore, error) {
	if client == nil {
		return nil, ErrNilRedisClient
	}
	store := &RedisStore{
		client:    client,
		keyPrefix: defaultStoreKeyPrefix,
		ttl:       defaultStoreTTL,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(store)
		}
	}
	if store.ttl < 0 {
		return nil, errors.New("ttl must be >= 0")
	}
	return store, nil
}

func (s *RedisStore) Load(ctx context.Context, conversationID string) (*ConversationContext, error) {
	key, err := s.redisKey(conversationID)
	if err != nil {
		return nil, err
	}

	raw, err := s.client.Get(ctx, key).Result()
	if errors.Is(err, redis.Nil) {
		return nil, ErrStateNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("load conversation: %w", err)
	}

	var conv ConversationContext
	if err := json.Unmarshal([]byte(raw), &conv); err != nil {
		return nil, fmt.Errorf("unmarshal conversation state: %w", err)
	}
	if err := conv.Validate(); err != nil {
		return nil, fmt.Errorf("invalid conversation state loaded from store: %w", err)
	}
	return &conv, nil
}

func (s *RedisStore) Save(ctx context.Context, conv *ConversationContext) error {
	if conv == nil {
		return ErrNilConversation
	}
	key, err := s.redisKey(conv.ConversationID)
	if err != nil {
		return err
	}
	if conv.UpdatedAt.IsZero() {
		conv.UpdatedAt = time.Now().UTC()
	}

	payload, err := json.Marshal(conv)
	if err != nil {
		return fmt.Errorf("marshal conversation state: %w", err)
	}

	if err := s.client.Set(ctx, key, payload, s.ttl).Err(); err != nil {
		return fmt.Errorf("save conversation: %w", err)
	}
	return nil
}

func (s *RedisStore) Delete(ctx context.Context, conversationID string) error {
	key, err := s.redisKey(conversationID)
	if err != nil {
		return err
	}
	if err := s.client.Del(ctx, key).Err(); err != nil {
		return fmt.Errorf("delete conversation: %w", err)
	}
	return nil
}

func (s *RedisStore) redisKey(conversationID string) (string, error) {
	if strings.TrimSpace(conversationID) == "" {
		return "", ErrInvalidConvID
	}
	return s.keyPrefix + conversationID, nil
}

// MemoryStore keeps conversations in-process. Load and Save deep-copy via
// JSON so callers never share a context instance with the store.
type MemoryStore struct {
	mu    sync.RWMutex
	convs map[string][]byte
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{convs: make(map[string][]byte)}
}

func (s *MemoryStore) Load(ctx context.Context, conversationID string) (*ConversationContext, error) {
	if strings.TrimSpace(conversationID) == "" {
		return nil, ErrInvalidConvID
	}
	s.mu.RLock()
	raw, ok := s.convs[conversationID]
	s.mu.RUnlock()
	if !ok {
		return nil, ErrStateNotFound
	}
	var conv ConversationContext
	if err := json.Unmarshal(raw, &conv); err != nil {
		return nil, fmt.Errorf("unmarshal conversation state: %w", err)
	}
	return &conv, nil
}

func (s *MemoryStore) Save(ctx context.Context, conv *ConversationContext) error {
	if conv == nil {
		return ErrNilConversation
	}
	if strings.TrimSpace(conv.ConversationID) == "" {
		return ErrInvalidConvID
	}
	raw, err := json.Marshal(conv)
	if err != nil {
		return fmt.Errorf("marshal conversation state: %w", err)
	}
	s.mu.Lock()
	s.convs[conv.ConversationID] = raw
	s.mu.Unlock()
	return nil
}

func (s *MemoryStore) Delete(ctx context.Context, conversationID string) error {
	s.mu.Lock()
	delete(s.convs, conversationID)
	s.mu.Unlock()
	return nil
}
