package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/lib/pq"
	"go.uber.org/zap"
)

const createRecordsTableSQL = `CREATE TABLE IF NOT EXISTS records (` +
	`collection VARCHAR(64) NOT NULL,` +
	`id VARCHAR(255) NOT NULL,` +
	`data JSONB NOT NULL,` +
	`updated_at TIMESTAMPTZ NOT NULL DEFAULT now(),` +
	`PRIMARY KEY (collection, id)` +
	`)`

// PostgresStorage реализует Storage с использованием PostgreSQL.
// Записи хранятся в одной таблице records как JSONB-документы.
type PostgresStorage struct {
	db     *sql.DB
	logger *zap.Logger
}

// NewPostgresStorage создает новый экземпляр PostgresStorage
func NewPostgresStorage(dsn string, logger *zap.Logger) (*PostgresStorage, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("database connection error: %w", err)
	}

	ctx := context.Background()
	if err := db.PingContext(ctx); err != nil {
		if closeErr := db.Close(); closeErr != nil {
			logger.Error("Failed to close DB connection after ping error", zap.Error(closeErr))
		}
		return nil, fmt.Errorf("database connection check error: %w", err)
	}

	if _, err := db.ExecContext(ctx, createRecordsTableSQL); err != nil {
		if closeErr := db.Close(); closeErr != nil {
			logger.Error("Failed to close DB connection after table creation error", zap.Error(closeErr))
		}
		return nil, fmt.Errorf("table creation error: %w", wrapPQ(err))
	}

	return &PostgresStorage{db: db, logger: logger}, nil
}

// wrapPQ добавляет к ошибке PostgreSQL имя кода ошибки
func wrapPQ(err error) error {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return fmt.Errorf("postgres %s: %w", pqErr.Code.Name(), err)
	}
	return err
}

// Get получает запись по идентификатору
func (ps *PostgresStorage) Get(ctx context.Context, collection, id string, dst any) error {
	if err := validateKey(collection, id); err != nil {
		return err
	}

	var doc []byte
	err := ps.db.QueryRowContext(ctx,
		"SELECT data FROM records WHERE collection = $1 AND id = $2", collection, id).Scan(&doc)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return ErrRecordNotFound
		}
		return fmt.Errorf("get record error: %w", wrapPQ(err))
	}

	if err := json.Unmarshal(doc, dst); err != nil {
		return fmt.Errorf("error decoding record: %w", err)
	}
	return nil
}

// Put вставляет или заменяет запись
func (ps *PostgresStorage) Put(ctx context.Context, collection, id string, v any) error {
	if err := validateKey(collection, id); err != nil {
		return err
	}

	doc, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("error encoding record: %w", err)
	}

	_, err = ps.db.ExecContext(ctx,
		`INSERT INTO records (collection, id, data) VALUES ($1, $2, $3::jsonb) `+
			`ON CONFLICT (collection, id) DO UPDATE SET data = EXCLUDED.data, updated_at = now()`,
		collection, id, string(doc))
	if err != nil {
		return fmt.Errorf("save record error: %w", wrapPQ(err))
	}
	return nil
}

// Update поверхностно сливает patch с записью средствами JSONB
func (ps *PostgresStorage) Update(ctx context.Context, collection, id string, patch map[string]any) error {
	if err := validateKey(collection, id); err != nil {
		return err
	}

	doc, err := json.Marshal(patch)
	if err != nil {
		return fmt.Errorf("error encoding patch: %w", err)
	}

	res, err := ps.db.ExecContext(ctx,
		"UPDATE records SET data = data || $3::jsonb, updated_at = now() WHERE collection = $1 AND id = $2",
		collection, id, string(doc))
	if err != nil {
		return fmt.Errorf("update record error: %w", wrapPQ(err))
	}
	return expectAffected(res)
}

// Delete удаляет запись
func (ps *PostgresStorage) Delete(ctx context.Context, collection, id string) error {
	if err := validateKey(collection, id); err != nil {
		return err
	}

	res, err := ps.db.ExecContext(ctx,
		"DELETE FROM records WHERE collection = $1 AND id = $2", collection, id)
	if err != nil {
		return fmt.Errorf("delete record error: %w", wrapPQ(err))
	}
	return expectAffected(res)
}

// ListBy возвращает записи коллекции, у которых поле field равно value
func (ps *PostgresStorage) ListBy(ctx context.Context, collection, field, value string) ([]json.RawMessage, error) {
	rows, err := ps.db.QueryContext(ctx,
		"SELECT data FROM records WHERE collection = $1 AND data->>($2::text) = $3 ORDER BY id",
		collection, field, value)
	if err != nil {
		return nil, fmt.Errorf("list records error: %w", wrapPQ(err))
	}
	defer rows.Close()

	result := make([]json.RawMessage, 0)
	for rows.Next() {
		var doc []byte
		if err := rows.Scan(&doc); err != nil {
			return nil, fmt.Errorf("scan record error: %w", err)
		}
		result = append(result, json.RawMessage(doc))
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate records error: %w", err)
	}
	return result, nil
}

// expectAffected возвращает ErrRecordNotFound, если запрос не затронул ни одной строки
func expectAffected(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected error: %w", err)
	}
	if n == 0 {
		return ErrRecordNotFound
	}
	return nil
}

// Close закрывает соединение с базой данных
func (ps *PostgresStorage) Close() error {
	return ps.db.Close()
}

// CheckConnection проверяет соединение с базой данных
func (ps *PostgresStorage) CheckConnection(ctx context.Context) error {
	return ps.db.PingContext(ctx)
}
