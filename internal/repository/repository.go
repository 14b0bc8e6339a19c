package repository

import (
	"context"
	"errors"
)

// Ключи хранилища. Каждый ключ хранит полный JSON-снапшот своей коллекции
// и перезаписывается целиком при каждой мутации.
const (
	KeyProducts     = "products"
	KeyTransactions = "transactions"
	KeyStockHistory = "stockHistory"
	KeyCounters     = "counters"
)

// StateStore определяет интерфейс key-value хранилища снапшотов состояния
// Service слой зависит от этого интерфейса, а не от конкретной реализации
type StateStore interface {
	// Load читает снапшот по ключу
	// Возвращает ErrNotFound, если ключ ещё не записан
	Load(ctx context.Context, key string) ([]byte, error)

	// Save записывает снапшот по ключу, перезаписывая предыдущее значение
	Save(ctx context.Context, key string, data []byte) error
}

// ErrNotFound возвращается, когда ключ отсутствует в хранилище
var ErrNotFound = errors.New("state key not found")
