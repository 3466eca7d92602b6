package storage

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"sync"

	"go.uber.org/zap"
)

// FileRecord представляет строку журнала файлового хранилища.
// Удаление записывается как запись с Deleted=true; при чтении побеждает последняя строка.
type FileRecord struct {
	Collection string          `json:"collection"`
	ID         string          `json:"id"`
	Data       json.RawMessage `json:"data,omitempty"`
	Deleted    bool            `json:"deleted,omitempty"`
}

// FileStorage реализует Storage поверх файла в формате JSON Lines
type FileStorage struct {
	filePath string
	records  map[string]map[string]json.RawMessage
	mutex    sync.RWMutex
	file     *os.File
	logger   *zap.Logger
}

// NewFileStorage создает новый экземпляр FileStorage
func NewFileStorage(filePath string, logger *zap.Logger) (*FileStorage, error) {
	file, err := os.OpenFile(filePath, os.O_RDWR|os.O_CREATE|os.O_APPEND, 0644)
	if err != nil {
		return nil, fmt.Errorf("error opening file: %w", err)
	}

	fs := &FileStorage{
		filePath: filePath,
		file:     file,
		records:  make(map[string]map[string]json.RawMessage),
		logger:   logger,
	}

	stale, err := fs.loadFromFile()
	if err != nil {
		_ = file.Close()
		return nil, err
	}

	// Сжимаем журнал, если в нем накопились перезаписанные или поврежденные строки
	if stale > 0 {
		fs.mutex.Lock()
		err = fs.rewriteFile()
		fs.mutex.Unlock()
		if err != nil {
			logger.Error("Error compacting storage file", zap.Error(err))
		}
	}

	return fs, nil
}

// loadFromFile воспроизводит журнал. Возвращает число строк, которые
// следует убрать сжатием: перезаписанные, удаления и нечитаемые.
// Нечитаемые строки (например, оборванная последняя запись) пропускаются.
func (fs *FileStorage) loadFromFile() (int, error) {
	fs.mutex.Lock()
	defer fs.mutex.Unlock()

	if _, err := fs.file.Seek(0, io.SeekStart); err != nil {
		return 0, fmt.Errorf("error seeking to file start: %w", err)
	}

	stale, corrupt := 0, 0
	unterminated := false
	reader := bufio.NewReader(fs.file)
	for {
		line, readErr := reader.ReadBytes('\n')
		if len(line) > 0 {
			unterminated = line[len(line)-1] != '\n'
		}
		if trimmed := bytes.TrimSpace(line); len(trimmed) > 0 {
			var record FileRecord
			if err := json.Unmarshal(trimmed, &record); err != nil || record.Collection == "" || record.ID == "" {
				corrupt++
			} else {
				if _, exists := fs.records[record.Collection][record.ID]; exists {
					stale++
				}
				fs.apply(record)
				if record.Deleted {
					stale++
				}
			}
		}
		if errors.Is(readErr, io.EOF) {
			break
		}
		if readErr != nil {
			return 0, fmt.Errorf("error reading file: %w", readErr)
		}
	}

	if corrupt > 0 {
		fs.logger.Warn("Skipped unreadable records in storage file",
			zap.String("path", fs.filePath),
			zap.Int("count", corrupt))
	}

	// Следующая запись должна начаться с новой строки, даже если сжатие не удастся
	if unterminated {
		if _, err := fs.file.Write([]byte{'\n'}); err != nil {
			return 0, fmt.Errorf("error terminating last record: %w", err)
		}
	}

	return stale + corrupt, nil
}

// apply применяет строку журнала к состоянию в памяти
func (fs *FileStorage) apply(record FileRecord) {
	if record.Deleted {
		delete(fs.records[record.Collection], record.ID)
		return
	}
	if fs.records[record.Collection] == nil {
		fs.records[record.Collection] = make(map[string]json.RawMessage)
	}
	fs.records[record.Collection][record.ID] = record.Data
}

// appendRecord дописывает строку в журнал и применяет ее. Вызывается под блокировкой.
func (fs *FileStorage) appendRecord(record FileRecord) error {
	if fs.file == nil {
		return fmt.Errorf("file is not open")
	}

	data, err := json.Marshal(record)
	if err != nil {
		return fmt.Errorf("error marshaling file record: %w", err)
	}
	if _, err := fs.file.Write(append(data, '\n')); err != nil {
		return fmt.Errorf("error writing to file: %w", err)
	}

	fs.apply(record)
	return nil
}

// Get получает запись по идентификатору
func (fs *FileStorage) Get(ctx context.Context, collection, id string, dst any) error {
	if err := validateKey(collection, id); err != nil {
		return err
	}

	fs.mutex.RLock()
	doc, exists := fs.records[collection][id]
	fs.mutex.RUnlock()

	if !exists {
		return ErrRecordNotFound
	}
	if err := json.Unmarshal(doc, dst); err != nil {
		return fmt.Errorf("error decoding record: %w", err)
	}
	return nil
}

// Put сохраняет запись в файл
func (fs *FileStorage) Put(ctx context.Context, collection, id string, v any) error {
	if err := validateKey(collection, id); err != nil {
		return err
	}

	doc, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("error encoding record: %w", err)
	}

	fs.mutex.Lock()
	defer fs.mutex.Unlock()

	return fs.appendRecord(FileRecord{Collection: collection, ID: id, Data: doc})
}

// Update применяет частичное изменение к записи
func (fs *FileStorage) Update(ctx context.Context, collection, id string, patch map[string]any) error {
	if err := validateKey(collection, id); err != nil {
		return err
	}

	fs.mutex.Lock()
	defer fs.mutex.Unlock()

	doc, exists := fs.records[collection][id]
	if !exists {
		return ErrRecordNotFound
	}

	merged, err := mergePatch(doc, patch)
	if err != nil {
		return err
	}
	return fs.appendRecord(FileRecord{Collection: collection, ID: id, Data: merged})
}

// Delete удаляет запись
func (fs *FileStorage) Delete(ctx context.Context, collection, id string) error {
	if err := validateKey(collection, id); err != nil {
		return err
	}

	fs.mutex.Lock()
	defer fs.mutex.Unlock()

	if _, exists := fs.records[collection][id]; !exists {
		return ErrRecordNotFound
	}
	return fs.appendRecord(FileRecord{Collection: collection, ID: id, Deleted: true})
}

// ListBy возвращает записи коллекции, у которых поле field равно value
func (fs *FileStorage) ListBy(ctx context.Context, collection, field, value string) ([]json.RawMessage, error) {
	fs.mutex.RLock()
	defer fs.mutex.RUnlock()

	return collect(fs.records[collection], field, value), nil
}

// CheckConnection проверяет доступность файла
func (fs *FileStorage) CheckConnection(ctx context.Context) error {
	fs.mutex.RLock()
	defer fs.mutex.RUnlock()

	if fs.file == nil {
		return fmt.Errorf("file is not open")
	}
	return nil
}

// rewriteFile заменяет журнал снимком состояния из памяти. Снимок пишется
// во временный файл и переименовывается поверх журнала; при ошибке текущий
// дескриптор остается рабочим. Вызывается под блокировкой.
func (fs *FileStorage) rewriteFile() error {
	tmpPath := fs.filePath + ".tmp"
	tmp, err := os.OpenFile(tmpPath, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0644)
	if err != nil {
		return fmt.Errorf("error creating snapshot file: %w", err)
	}

	if err := writeSnapshot(tmp, fs.records); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmpPath)
		return err
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmpPath)
		return fmt.Errorf("error closing snapshot file: %w", err)
	}

	if err := os.Rename(tmpPath, fs.filePath); err != nil {
		_ = os.Remove(tmpPath)
		return fmt.Errorf("error replacing storage file: %w", err)
	}

	file, err := os.OpenFile(fs.filePath, os.O_RDWR|os.O_CREATE|os.O_APPEND, 0644)
	if err != nil {
		// Старый дескриптор указывает на удаленный файл, писать в него нельзя
		_ = fs.file.Close()
		fs.file = nil
		return fmt.Errorf("error reopening file: %w", err)
	}

	if err := fs.file.Close(); err != nil {
		fs.logger.Warn("Error closing replaced storage file", zap.Error(err))
	}
	fs.file = file
	return nil
}

// writeSnapshot пишет по одной строке на запись и синхронизирует файл с диском
func writeSnapshot(file *os.File, records map[string]map[string]json.RawMessage) error {
	writer := bufio.NewWriter(file)
	for collection, docs := range records {
		for id, doc := range docs {
			data, err := json.Marshal(FileRecord{Collection: collection, ID: id, Data: doc})
			if err != nil {
				return fmt.Errorf("error marshaling record: %w", err)
			}
			if _, err := writer.Write(append(data, '\n')); err != nil {
				return fmt.Errorf("error writing record: %w", err)
			}
		}
	}
	if err := writer.Flush(); err != nil {
		return fmt.Errorf("error writing snapshot: %w", err)
	}
	if err := file.Sync(); err != nil {
		return fmt.Errorf("error syncing snapshot: %w", err)
	}
	return nil
}

// Close синхронизирует данные с диском и закрывает файл
func (fs *FileStorage) Close() error {
	fs.mutex.Lock()
	defer fs.mutex.Unlock()

	if fs.file != nil {
		if err := fs.file.Sync(); err != nil {
			fs.logger.Error("Error syncing file before close", zap.Error(err))
		}
		if err := fs.file.Close(); err != nil {
			return fmt.Errorf("error closing file: %w", err)
		}
		fs.file = nil
	}
	return nil
}
