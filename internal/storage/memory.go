package storage

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"go.uber.org/zap"
)

// MemoryStorage реализует Storage с использованием памяти
type MemoryStorage struct {
	mu sync.RWMutex
	// map[collection]map[id]document
	records map[string]map[string]json.RawMessage
	logger  *zap.Logger
}

// NewMemoryStorage создает новый экземпляр MemoryStorage
func NewMemoryStorage(logger *zap.Logger) *MemoryStorage {
	return &MemoryStorage{
		records: make(map[string]map[string]json.RawMessage),
		logger:  logger,
	}
}

// Get получает запись по идентификатору
func (ms *MemoryStorage) Get(ctx context.Context, collection, id string, dst any) error {
	if err := validateKey(collection, id); err != nil {
		return err
	}

	ms.mu.RLock()
	doc, exists := ms.records[collection][id]
	ms.mu.RUnlock()

	if !exists {
		return ErrRecordNotFound
	}
	if err := json.Unmarshal(doc, dst); err != nil {
		return fmt.Errorf("error decoding record: %w", err)
	}
	return nil
}

// Put сохраняет запись
func (ms *MemoryStorage) Put(ctx context.Context, collection, id string, v any) error {
	if err := validateKey(collection, id); err != nil {
		return err
	}

	doc, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("error encoding record: %w", err)
	}

	ms.mu.Lock()
	defer ms.mu.Unlock()

	if ms.records[collection] == nil {
		ms.records[collection] = make(map[string]json.RawMessage)
	}
	ms.records[collection][id] = doc
	return nil
}

// Update применяет частичное изменение к записи
func (ms *MemoryStorage) Update(ctx context.Context, collection, id string, patch map[string]any) error {
	if err := validateKey(collection, id); err != nil {
		return err
	}

	ms.mu.Lock()
	defer ms.mu.Unlock()

	doc, exists := ms.records[collection][id]
	if !exists {
		return ErrRecordNotFound
	}

	merged, err := mergePatch(doc, patch)
	if err != nil {
		return err
	}
	ms.records[collection][id] = merged
	return nil
}

// Delete удаляет запись
func (ms *MemoryStorage) Delete(ctx context.Context, collection, id string) error {
	if err := validateKey(collection, id); err != nil {
		return err
	}

	ms.mu.Lock()
	defer ms.mu.Unlock()

	if _, exists := ms.records[collection][id]; !exists {
		return ErrRecordNotFound
	}
	delete(ms.records[collection], id)
	return nil
}

// ListBy возвращает записи коллекции, у которых поле field равно value
func (ms *MemoryStorage) ListBy(ctx context.Context, collection, field, value string) ([]json.RawMessage, error) {
	ms.mu.RLock()
	defer ms.mu.RUnlock()

	return collect(ms.records[collection], field, value), nil
}

// CheckConnection проверяет доступность хранилища
func (ms *MemoryStorage) CheckConnection(ctx context.Context) error {
	ms.mu.RLock()
	defer ms.mu.RUnlock()

	if ms.records == nil {
		return fmt.Errorf("storage is not initialized")
	}
	return nil
}

// Close ничего не делает для хранилища в памяти
func (ms *MemoryStorage) Close() error {
	return nil
}
