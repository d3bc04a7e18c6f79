package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-redis/redis/v8"
	contractx "github.com/tanpawarit/Reserva-Conversational-Booking-Agent/agent/contract"
)

const defaultRedisKeyPrefix = "reserva:session:"

type RedisConfig struct {
	Addr     string        `envconfig:"ADDR" split_words:"true" default:"localhost:6379"`
	Password string        `envconfig:"PASSWORD" split_words:"true"`
	DB       int           `envconfig:"DB" split_words:"true" default:"0"`
	TTL      time.Duration `envconfig:"TTL" split_words:"true" default:"24h"`
}

// RedisStore persists sessions as JSON values in Redis, one key per session,
// for multi-instance deployments.
type RedisStore struct {
	client    *redis.Client
	keyPrefix string
	ttl       time.Duration
	now       func() time.Time
}

type RedisOption func(*RedisStore)

func WithRedisKeyPrefix(prefix string) RedisOption {
	return func(s *RedisStore) {
		trimmed := strings.TrimSpace(prefix)
		if trimmed != "" {
			s.keyPrefix = trimmed
		}
	}
}

func NewRedisStore(cfg RedisConfig, opts ...RedisOption) (*RedisStore, error) {
	if strings.TrimSpace(cfg.Addr) == "" {
		return nil, errors.New("redis addr is required")
	}

	ttl := cfg.TTL
	if ttl <= 0 {
		ttl = defaultSessionTTL
	}

	store := &RedisStore{
		client: redis.NewClient(&redis.Options{
			Addr:     strings.TrimSpace(cfg.Addr),
			Password: cfg.Password,
			DB:       cfg.DB,
		}),
		keyPrefix: defaultRedisKeyPrefix,
		ttl:       ttl,
		now:       time.Now,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(store)
		}
	}
	return store, nil
}

func (s *RedisStore) key(sessionID string) (string, error) {
	if strings.TrimSpace(sessionID) == "" {
		return "", ErrInvalidSession
	}
	return s.keyPrefix + sessionID, nil
}

func (s *RedisStore) load(ctx context.Context, sessionID string) (*Session, error) {
	key, err := s.key(sessionID)
	if err != nil {
		return nil, err
	}

	raw, err := s.client.Get(ctx, key).Result()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("load session: %w", err)
	}

	var sess Session
	if err := json.Unmarshal([]byte(raw), &sess); err != nil {
		return nil, fmt.Errorf("unmarshal session: %w", err)
	}
	return &sess, nil
}

func (s *RedisStore) save(ctx context.Context, sess *Session) error {
	key, err := s.key(sess.SessionID)
	if err != nil {
		return err
	}

	payload, err := json.Marshal(sess)
	if err != nil {
		return fmt.Errorf("marshal session: %w", err)
	}
	if err := s.client.Set(ctx, key, payload, s.ttl).Err(); err != nil {
		return fmt.Errorf("save session: %w", err)
	}
	return nil
}

func (s *RedisStore) Get(ctx context.Context, sessionID string) (*Session, error) {
	sess, err := s.load(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if sess != nil {
		return sess, nil
	}

	sess = NewSession(sessionID, s.now())
	if err := s.save(ctx, sess); err != nil {
		return nil, err
	}
	return sess, nil
}

func (s *RedisStore) SetCustomer(ctx context.Context, sessionID string, customer *contractx.Customer) error {
	if customer == nil {
		return ErrNilCustomer
	}

	sess, err := s.load(ctx, sessionID)
	if err != nil {
		return err
	}
	if sess == nil {
		sess = NewSession(sessionID, s.now())
	}
	sess.Customer = cloneCustomer(customer)
	sess.Touch(s.now())
	return s.save(ctx, sess)
}

func (s *RedisStore) GetCustomer(ctx context.Context, sessionID string) (*contractx.Customer, error) {
	sess, err := s.load(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if sess == nil {
		return nil, nil
	}
	return sess.Customer, nil
}

func (s *RedisStore) Clear(ctx context.Context, sessionID string) error {
	key, err := s.key(sessionID)
	if err != nil {
		return err
	}
	return s.client.Del(ctx, key).Err()
}

func (s *RedisStore) Expire(ctx context.Context, sessionID string, ttl time.Duration) error {
	key, err := s.key(sessionID)
	if err != nil {
		return err
	}
	if ttl <= 0 {
		return s.client.Del(ctx, key).Err()
	}
	return s.client.Expire(ctx, key, ttl).Err()
}
