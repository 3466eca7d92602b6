// Package storage реализует плоское хранилище JSON-записей, сгруппированных по коллекциям.
// Хранилище не обеспечивает уникальность кроме совпадения идентификаторов и не
// проверяет ссылочную целостность.
package storage

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"

	"go.uber.org/zap"

	"github.com/InQaaaaGit/edurise.git/internal/config"
)

// Коллекции, используемые сервисом
const (
	CollectionAffiliates = "affiliates"
	CollectionLinks      = "links"
)

// RecordStorage определяет операции над записями
type RecordStorage interface {
	// Get читает запись в dst. Возвращает ErrRecordNotFound, если записи нет.
	Get(ctx context.Context, collection, id string, dst any) error
	// Put вставляет или заменяет запись целиком
	Put(ctx context.Context, collection, id string, v any) error
	// Update поверхностно сливает patch с существующей записью
	Update(ctx context.Context, collection, id string, patch map[string]any) error
	// Delete удаляет запись
	Delete(ctx context.Context, collection, id string) error
	// ListBy возвращает записи, у которых строковое поле верхнего уровня равно value.
	// Пустой результат - пустой слайс, не nil.
	ListBy(ctx context.Context, collection, field, value string) ([]json.RawMessage, error)
}

// DatabaseChecker определяет интерфейс для проверки соединения с хранилищем
type DatabaseChecker interface {
	CheckConnection(ctx context.Context) error
}

// Storage объединяет операции хранилища
type Storage interface {
	RecordStorage
	DatabaseChecker
	Close() error
}

// NewStorage выбирает реализацию по конфигурации:
// DATABASE_DSN -> PostgreSQL, FILE_STORAGE_PATH -> файл, иначе память.
func NewStorage(cfg *config.Config, logger *zap.Logger) (Storage, error) {
	switch {
	case cfg.DatabaseDSN != "":
		logger.Info("Using PostgreSQL storage")
		return NewPostgresStorage(cfg.DatabaseDSN, logger)
	case cfg.FileStoragePath != "":
		logger.Info("Using file storage", zap.String("path", cfg.FileStoragePath))
		return NewFileStorage(cfg.FileStoragePath, logger)
	default:
		logger.Info("Using in-memory storage")
		return NewMemoryStorage(logger), nil
	}
}

func validateKey(collection, id string) error {
	if collection == "" || id == "" {
		return ErrInvalidKey
	}
	return nil
}

// mergePatch поверхностно применяет patch к JSON-объекту
func mergePatch(doc json.RawMessage, patch map[string]any) (json.RawMessage, error) {
	fields := map[string]any{}
	if err := json.Unmarshal(doc, &fields); err != nil {
		return nil, fmt.Errorf("error decoding record for update: %w", err)
	}
	for k, v := range patch {
		fields[k] = v
	}
	merged, err := json.Marshal(fields)
	if err != nil {
		return nil, fmt.Errorf("error encoding updated record: %w", err)
	}
	return merged, nil
}

// fieldEquals проверяет, что строковое поле верхнего уровня равно value
func fieldEquals(doc json.RawMessage, field, value string) bool {
	var fields map[string]any
	if err := json.Unmarshal(doc, &fields); err != nil {
		return false
	}
	s, ok := fields[field].(string)
	return ok && s == value
}

// collect отбирает документы коллекции по полю в порядке идентификаторов
func collect(docs map[string]json.RawMessage, field, value string) []json.RawMessage {
	ids := make([]string, 0, len(docs))
	for id, doc := range docs {
		if fieldEquals(doc, field, value) {
			ids = append(ids, id)
		}
	}
	sort.Strings(ids)

	result := make([]json.RawMessage, 0, len(ids))
	for _, id := range ids {
		result = append(result, docs[id])
	}
	return result
}
