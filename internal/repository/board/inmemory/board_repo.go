package inmemory

import (
	"context"
	"sync"
	"time"

	"studiosync/internal/logger"
	repo "studiosync/internal/repository"
)

type snapshot struct {
	data      []byte
	version   int
	updatedAt time.Time
}

// BoardStorage хранит сериализованные доски по ключу, как localStorage в браузере.
type BoardStorage struct {
	storage map[string]*snapshot
	mtx     *sync.RWMutex
}

func NewBoardStorage() *BoardStorage {
	return &BoardStorage{
		storage: make(map[string]*snapshot),
		mtx:     &sync.RWMutex{},
	}
}

func (s *BoardStorage) HealthCheck(ctx context.Context) error {
	logger.Info("Repository: Соединение стабильно")
	return nil
}

func (s *BoardStorage) Load(ctx context.Context, key string) ([]byte, error) {
	s.mtx.RLock()
	defer s.mtx.RUnlock()

	snap, ok := s.storage[key]
	if !ok {
		return nil, repo.ErrNotFound
	}
	return append([]byte(nil), snap.data...), nil
}

func (s *BoardStorage) Save(ctx context.Context, key string, data []byte) error {
	s.mtx.Lock()
	defer s.mtx.Unlock()

	snap, ok := s.storage[key]
	if !ok {
		snap = &snapshot{}
		s.storage[key] = snap
	}
	snap.data = append([]byte(nil), data...)
	snap.version++
	snap.updatedAt = time.Now()
	return nil
}

// Delete удаляет снимок; отсутствующий ключ не считается ошибкой.
func (s *BoardStorage) Delete(ctx context.Context, key string) error {
	s.mtx.Lock()
	defer s.mtx.Unlock()

	delete(s.storage, key)
	return nil
}

// Version возвращает число сохранений по ключу (0, если ключа нет).
func (s *BoardStorage) Version(ctx context.Context, key string) (int, error) {
	s.mtx.RLock()
	defer s.mtx.RUnlock()

	if snap, ok := s.storage[key]; ok {
		return snap.version, nil
	}
	return 0, nil
}
