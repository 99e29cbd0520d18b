package storage

//go:generate go run go.uber.org/mock/mockgen@latest -destination=mocks/mock_document_store.go -package=mocks research-rag/internal/storage DocumentStore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/mattn/go-sqlite3"
)

var (
	// ErrNotFound is returned when a record is not found.
	ErrNotFound = errors.New("record not found")
	// ErrConflict is returned when an insert violates a uniqueness constraint.
	ErrConflict = errors.New("unique constraint violation")
)

// DocumentStore defines the interface for the document registry table.
type DocumentStore interface {
	// Insert adds a new document. Returns ErrConflict if the tracing number,
	// fingerprint or stored path is already taken.
	Insert(ctx context.Context, doc *DocumentRecord) error
	// GetByFingerprint returns ErrNotFound if no document has the fingerprint.
	GetByFingerprint(ctx context.Context, fingerprint string) (*DocumentRecord, error)
	// GetByTracingNumber returns ErrNotFound if the number is unassigned.
	GetByTracingNumber(ctx context.Context, tracingNumber int) (*DocumentRecord, error)
	// MaxTracingNumber returns 0 when the registry is empty.
	MaxTracingNumber(ctx context.Context) (int, error)
	// UpdateClassification stores the classifier result for a document.
	UpdateClassification(ctx context.Context, tracingNumber int, docType, title, source string) error
	// SetIndexStatus records the outcome of the latest indexing attempt.
	SetIndexStatus(ctx context.Context, tracingNumber int, status string) error
	// List returns all documents ordered by tracing number.
	List(ctx context.Context) ([]DocumentRecord, error)
}

// DocumentRepo implements DocumentStore on SQLite.
type DocumentRepo struct {
	db *sql.DB
}

// NewDocumentRepo creates a new DocumentRepo.
func NewDocumentRepo(db *sql.DB) *DocumentRepo {
	return &DocumentRepo{db: db}
}

const documentColumns = `tracing_number, fingerprint, original_filename, title, declared_type,
	doc_type, classified_title, classification_source, stored_path, index_status, created_at`

// Insert adds a new document row.
func (r *DocumentRepo) Insert(ctx context.Context, doc *DocumentRecord) error {
	if doc.DocType == "" {
		doc.DocType = "unknown"
	}
	if doc.IndexStatus == "" {
		doc.IndexStatus = IndexPending
	}
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO documents (tracing_number, fingerprint, original_filename, title, declared_type,
			doc_type, classified_title, classification_source, stored_path, index_status)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		doc.TracingNumber, doc.Fingerprint, doc.OriginalFilename, doc.Title, doc.DeclaredType,
		doc.DocType, doc.ClassifiedTitle, doc.ClassificationSource, doc.StoredPath, doc.IndexStatus,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("failed to insert document %d: %w", doc.TracingNumber, ErrConflict)
		}
		return fmt.Errorf("failed to insert document: %w", err)
	}
	return nil
}

// GetByFingerprint looks up a document by content fingerprint.
func (r *DocumentRepo) GetByFingerprint(ctx context.Context, fingerprint string) (*DocumentRecord, error) {
	row := r.db.QueryRowContext(ctx,
		"SELECT "+documentColumns+" FROM documents WHERE fingerprint = ?", fingerprint)
	return scanDocument(row)
}

// GetByTracingNumber looks up a document by tracing number.
func (r *DocumentRepo) GetByTracingNumber(ctx context.Context, tracingNumber int) (*DocumentRecord, error) {
	row := r.db.QueryRowContext(ctx,
		"SELECT "+documentColumns+" FROM documents WHERE tracing_number = ?", tracingNumber)
	return scanDocument(row)
}

// MaxTracingNumber returns the highest assigned tracing number.
func (r *DocumentRepo) MaxTracingNumber(ctx context.Context) (int, error) {
	var maxNum sql.NullInt64
	if err := r.db.QueryRowContext(ctx, "SELECT MAX(tracing_number) FROM documents").Scan(&maxNum); err != nil {
		return 0, fmt.Errorf("failed to query max tracing number: %w", err)
	}
	if !maxNum.Valid {
		return 0, nil
	}
	return int(maxNum.Int64), nil
}

// UpdateClassification stores the classifier output.
func (r *DocumentRepo) UpdateClassification(ctx context.Context, tracingNumber int, docType, title, source string) error {
	res, err := r.db.ExecContext(ctx,
		"UPDATE documents SET doc_type = ?, classified_title = ?, classification_source = ? WHERE tracing_number = ?",
		docType, title, source, tracingNumber,
	)
	if err != nil {
		return fmt.Errorf("failed to update classification: %w", err)
	}
	return requireAffected(res)
}

// SetIndexStatus records the latest indexing outcome.
func (r *DocumentRepo) SetIndexStatus(ctx context.Context, tracingNumber int, status string) error {
	res, err := r.db.ExecContext(ctx,
		"UPDATE documents SET index_status = ? WHERE tracing_number = ?", status, tracingNumber)
	if err != nil {
		return fmt.Errorf("failed to update index status: %w", err)
	}
	return requireAffected(res)
}

// List returns every document ordered by tracing number.
func (r *DocumentRepo) List(ctx context.Context) ([]DocumentRecord, error) {
	rows, err := r.db.QueryContext(ctx, "SELECT "+documentColumns+" FROM documents ORDER BY tracing_number")
	if err != nil {
		return nil, fmt.Errorf("failed to query documents: %w", err)
	}
	defer func() {
		_ = rows.Close()
	}()

	var docs []DocumentRecord
	for rows.Next() {
		doc, err := scanDocument(rows)
		if err != nil {
			return nil, err
		}
		docs = append(docs, *doc)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("row iteration error: %w", err)
	}
	return docs, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanDocument(row rowScanner) (*DocumentRecord, error) {
	var doc DocumentRecord
	err := row.Scan(&doc.TracingNumber, &doc.Fingerprint, &doc.OriginalFilename, &doc.Title,
		&doc.DeclaredType, &doc.DocType, &doc.ClassifiedTitle, &doc.ClassificationSource,
		&doc.StoredPath, &doc.IndexStatus, &doc.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan document: %w", err)
	}
	return &doc, nil
}

func requireAffected(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to read affected rows: %w", err)
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

func isUniqueViolation(err error) bool {
	var sqliteErr sqlite3.Error
	if !errors.As(err, &sqliteErr) {
		return false
	}
	return sqliteErr.ExtendedCode == sqlite3.ErrConstraintUnique ||
		sqliteErr.ExtendedCode == sqlite3.ErrConstraintPrimaryKey
}
