package storage

import (
	"context"
	"database/sql"
	"fmt"
)

// ExperimentStore persists rendered experiment records.
type ExperimentStore interface {
	// InsertIfAbsent stores rec unless its ID exists. Reports whether a row was written.
	InsertIfAbsent(ctx context.Context, rec *ExperimentRecord) (bool, error)
	// List returns all records ordered by ID.
	List(ctx context.Context) ([]ExperimentRecord, error)
}

// ExperimentRepo implements ExperimentStore on SQLite.
type ExperimentRepo struct {
	db *sql.DB
}

// NewExperimentRepo creates a new ExperimentRepo.
func NewExperimentRepo(db *sql.DB) *ExperimentRepo {
	return &ExperimentRepo{db: db}
}

// InsertIfAbsent never overwrites an existing record.
func (r *ExperimentRepo) InsertIfAbsent(ctx context.Context, rec *ExperimentRecord) (bool, error) {
	res, err := r.db.ExecContext(ctx,
		"INSERT OR IGNORE INTO experiments (id, source_file, text) VALUES (?, ?, ?)",
		rec.ID, rec.SourceFile, rec.Text,
	)
	if err != nil {
		return false, fmt.Errorf("failed to insert experiment %s: %w", rec.ID, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to read affected rows: %w", err)
	}
	return n > 0, nil
}

// List returns all experiment records ordered by ID.
func (r *ExperimentRepo) List(ctx context.Context) ([]ExperimentRecord, error) {
	rows, err := r.db.QueryContext(ctx, "SELECT id, source_file, text, created_at FROM experiments ORDER BY id")
	if err != nil {
		return nil, fmt.Errorf("failed to query experiments: %w", err)
	}
	defer func() {
		_ = rows.Close()
	}()

	var recs []ExperimentRecord
	for rows.Next() {
		var rec ExperimentRecord
		if err := rows.Scan(&rec.ID, &rec.SourceFile, &rec.Text, &rec.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan experiment: %w", err)
		}
		recs = append(recs, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("row iteration error: %w", err)
	}
	return recs, nil
}
