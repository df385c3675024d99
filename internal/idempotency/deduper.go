// Package idempotency хранит уже использованные ключи бронирования,
// чтобы повторная отправка формы не создала второе занятие.
package idempotency

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

const keyPrefix = "studiosync:booking"

// RedisDeduper разделяет ключи между всеми экземплярами сервиса.
type RedisDeduper struct {
	client *redis.Client
	ttl    time.Duration
}

func NewRedisDeduper(client *redis.Client, ttl time.Duration) *RedisDeduper {
	return &RedisDeduper{client: client, ttl: ttl}
}

// NewRedisDeduperFromURL разбирает redis://-адрес и проверяет соединение.
func NewRedisDeduperFromURL(ctx context.Context, rawURL string, ttl time.Duration) (*RedisDeduper, error) {
	opts, err := redis.ParseURL(rawURL)
	if err != nil {
		return nil, fmt.Errorf("разбор redis url: %w", err)
	}
	client := redis.NewClient(opts)
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("ping redis: %w", err)
	}
	return NewRedisDeduper(client, ttl), nil
}

func (r *RedisDeduper) key(scope, key string) string {
	return fmt.Sprintf("%s:%s:%s", keyPrefix, scope, key)
}

// Claim записывает ключ, если его ещё нет. true - ключ занят впервые.
func (r *RedisDeduper) Claim(ctx context.Context, scope, key string) (bool, error) {
	return r.client.SetNX(ctx, r.key(scope, key), 1, r.ttl).Result()
}

// Release удаляет ключ, когда отправка не удалась и её можно повторить.
func (r *RedisDeduper) Release(ctx context.Context, scope, key string) error {
	return r.client.Del(ctx, r.key(scope, key)).Err()
}

func (r *RedisDeduper) HealthCheck(ctx context.Context) error {
	return r.client.Ping(ctx).Err()
}

func (r *RedisDeduper) Close() error {
	return r.client.Close()
}

// MemoryDeduper - вариант для одного процесса и тестов.
type MemoryDeduper struct {
	mtx  sync.Mutex
	ttl  time.Duration
	keys map[string]time.Time
	now  func() time.Time
}

func NewMemoryDeduper(ttl time.Duration) *MemoryDeduper {
	return &MemoryDeduper{
		ttl:  ttl,
		keys: make(map[string]time.Time),
		now:  time.Now,
	}
}

func (m *MemoryDeduper) Claim(_ context.Context, scope, key string) (bool, error) {
	m.mtx.Lock()
	defer m.mtx.Unlock()

	k := scope + ":" + key
	now := m.now()
	if exp, ok := m.keys[k]; ok && (m.ttl <= 0 || now.Before(exp)) {
		return false, nil
	}
	m.keys[k] = now.Add(m.ttl)
	m.evict(now)
	return true, nil
}

func (m *MemoryDeduper) Release(_ context.Context, scope, key string) error {
	m.mtx.Lock()
	defer m.mtx.Unlock()

	delete(m.keys, scope+":"+key)
	return nil
}

func (m *MemoryDeduper) HealthCheck(context.Context) error {
	return nil
}

func (m *MemoryDeduper) Close() error {
	return nil
}

// evict вызывается под блокировкой.
func (m *MemoryDeduper) evict(now time.Time) {
	if m.ttl <= 0 {
		return
	}
	for k, exp := range m.keys {
		if !now.Before(exp) {
			delete(m.keys, k)
		}
	}
}
