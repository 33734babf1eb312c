// Package specstore persists OpenAPI documents for services in PostgreSQL.
// In database mode the gateway loads its documents from here instead of
// the filesystem.
package specstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	_ "github.com/lib/pq" // PostgreSQL driver
	"go.uber.org/zap"
)

// ErrNotFound is returned when no document exists for a service.
var ErrNotFound = errors.New("service document not found")

// ServiceDocument is one stored OpenAPI document.
type ServiceDocument struct {
	ID        int
	Service   string
	Title     string
	Version   string
	Content   []byte
	Format    string
	Active    bool
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Store wraps a PostgreSQL connection pool.
type Store struct {
	db     *sql.DB
	logger *zap.Logger
}

// Open connects to PostgreSQL, verifies the connection and runs the
// schema migration.
func Open(ctx context.Context, databaseURL string, logger *zap.Logger) (*Store, error) {
	if !strings.HasPrefix(databaseURL, "postgres://") && !strings.HasPrefix(databaseURL, "postgresql://") {
		return nil, fmt.Errorf("database URL must be a PostgreSQL connection string")
	}

	db, err := sql.Open("postgres", databaseURL)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}
	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(25)

	s := &Store{db: db, logger: logger}
	if err := s.migrate(ctx); err != nil {
		db.Close()
		return nil, err
	}
	logger.Info("spec store connected")
	return s, nil
}

func (s *Store) migrate(ctx context.Context) error {
	query := `
	CREATE TABLE IF NOT EXISTS service_documents (
		id SERIAL PRIMARY KEY,
		service VARCHAR(255) UNIQUE NOT NULL,
		title VARCHAR(500),
		version VARCHAR(100),
		content TEXT NOT NULL,
		format VARCHAR(10) DEFAULT 'yaml',
		is_active BOOLEAN DEFAULT true,
		created_at TIMESTAMP(6) DEFAULT NOW(),
		updated_at TIMESTAMP(6) DEFAULT NOW()
	);

	CREATE INDEX IF NOT EXISTS idx_service_documents_service ON service_documents(service);
	CREATE INDEX IF NOT EXISTS idx_service_documents_is_active ON service_documents(is_active);
	`
	if _, err := s.db.ExecContext(ctx, query); err != nil {
		return fmt.Errorf("create service_documents table: %w", err)
	}
	return nil
}

// Close releases the connection pool.
func (s *Store) Close() error { return s.db.Close() }

const documentColumns = "id, service, title, version, content, format, is_active, created_at, updated_at"

func scanDocument(row interface{ Scan(...any) error }) (*ServiceDocument, error) {
	doc := &ServiceDocument{}
	err := row.Scan(
		&doc.ID,
		&doc.Service,
		&doc.Title,
		&doc.Version,
		&doc.Content,
		&doc.Format,
		&doc.Active,
		&doc.CreatedAt,
		&doc.UpdatedAt,
	)
	return doc, err
}

// Get returns the document stored for a service.
func (s *Store) Get(ctx context.Context, service string) (*ServiceDocument, error) {
	query := `SELECT ` + documentColumns + ` FROM service_documents WHERE service = $1`
	doc, err := scanDocument(s.db.QueryRowContext(ctx, query, service))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("%w: %s", ErrNotFound, service)
		}
		return nil, fmt.Errorf("get service document %s: %w", service, err)
	}
	return doc, nil
}

// ListActive returns all active documents, newest first.
func (s *Store) ListActive(ctx context.Context) ([]*ServiceDocument, error) {
	query := `SELECT ` + documentColumns + ` FROM service_documents WHERE is_active = true ORDER BY created_at DESC`
	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("list service documents: %w", err)
	}
	defer rows.Close()

	var docs []*ServiceDocument
	for rows.Next() {
		doc, err := scanDocument(rows)
		if err != nil {
			return nil, fmt.Errorf("scan service document: %w", err)
		}
		docs = append(docs, doc)
	}
	return docs, rows.Err()
}

// Put inserts a document or replaces the one already stored for the
// service.
func (s *Store) Put(ctx context.Context, doc *ServiceDocument) error {
	query := `
		INSERT INTO service_documents (service, title, version, content, format, is_active)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (service) DO UPDATE
		SET title = EXCLUDED.title, version = EXCLUDED.version, content = EXCLUDED.content,
		    format = EXCLUDED.format, is_active = EXCLUDED.is_active, updated_at = NOW()
		RETURNING id, created_at, updated_at
	`
	err := s.db.QueryRowContext(ctx, query,
		doc.Service, doc.Title, doc.Version, doc.Content, doc.Format, doc.Active,
	).Scan(&doc.ID, &doc.CreatedAt, &doc.UpdatedAt)
	if err != nil {
		return fmt.Errorf("store service document %s: %w", doc.Service, err)
	}
	s.logger.Info("service document stored",
		zap.String("service", doc.Service),
		zap.Int("bytes", len(doc.Content)))
	return nil
}

// SetActive flips the is_active flag for a service.
func (s *Store) SetActive(ctx context.Context, service string, active bool) error {
	result, err := s.db.ExecContext(ctx,
		`UPDATE service_documents SET is_active = $2, updated_at = NOW() WHERE service = $1`,
		service, active)
	if err != nil {
		return fmt.Errorf("set active for %s: %w", service, err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("%w: %s", ErrNotFound, service)
	}
	return nil
}

// Delete removes the document stored for a service.
func (s *Store) Delete(ctx context.Context, service string) error {
	result, err := s.db.ExecContext(ctx, `DELETE FROM service_documents WHERE service = $1`, service)
	if err != nil {
		return fmt.Errorf("delete service document %s: %w", service, err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("%w: %s", ErrNotFound, service)
	}
	return nil
}
