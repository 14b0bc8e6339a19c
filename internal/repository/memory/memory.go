package memory

import (
	"context"
	"sync"

	"github.com/shestoi/warungpos/internal/repository"
)

// MemoryStore реализует StateStore используя in-memory map
// Используется для разработки и тестирования
type MemoryStore struct {
	mu   sync.RWMutex
	data map[string][]byte
}

// NewMemoryStore создаёт новый in-memory StateStore
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		data: make(map[string][]byte),
	}
}

// Load читает снапшот по ключу из памяти
// Возвращает копию, чтобы вызывающий код не мог изменить хранимые байты
func (s *MemoryStore) Load(ctx context.Context, key string) ([]byte, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	data, exists := s.data[key]
	if !exists {
		return nil, repository.ErrNotFound
	}

	out := make([]byte, len(data))
	copy(out, data)
	return out, nil
}

// Save записывает снапшот по ключу в память
func (s *MemoryStore) Save(ctx context.Context, key string, data []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	stored := make([]byte, len(data))
	copy(stored, data)
	s.data[key] = stored
	return nil
}
