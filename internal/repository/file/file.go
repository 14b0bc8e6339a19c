package file

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/shestoi/warungpos/internal/repository"
)

// FileStore реализует StateStore используя файлы на диске: один файл на ключ
// Это прямой аналог исходного localStorage — локальное хранилище без сервера
type FileStore struct {
	mu  sync.Mutex
	dir string
}

// NewFileStore создаёт новый файловый StateStore в указанной директории
// Директория создаётся, если её ещё нет
func NewFileStore(dir string) (*FileStore, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create data dir: %w", err)
	}
	return &FileStore{dir: dir}, nil
}

// Load читает снапшот по ключу из файла <dir>/<key>.json
// Возвращает ErrNotFound, если файл ещё не записан
func (s *FileStore) Load(ctx context.Context, key string) ([]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := os.ReadFile(s.path(key))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, repository.ErrNotFound
		}
		return nil, err
	}
	return data, nil
}

// Save записывает снапшот по ключу атомарно: сначала во временный файл,
// затем rename. Незавершённая запись не может испортить предыдущий снапшот.
func (s *FileStore) Save(ctx context.Context, key string, data []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	target := s.path(key)
	tmp, err := os.CreateTemp(s.dir, key+".*.tmp")
	if err != nil {
		return err
	}

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return err
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return err
	}

	return os.Rename(tmp.Name(), target)
}

func (s *FileStore) path(key string) string {
	return filepath.Join(s.dir, key+".json")
}
