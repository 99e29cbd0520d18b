package storage

import (
	"context"
	"errors"
	"testing"
)

func TestDocumentRepo_InsertConflicts(t *testing.T) {
	db := newTestDB(t)
	repo := NewDocumentRepo(db)
	ctx := context.Background()

	base := DocumentRecord{
		TracingNumber:    1,
		Fingerprint:      "aaa",
		OriginalFilename: "draft.pdf",
		Title:            "Draft",
		DeclaredType:     "PAPER",
		StoredPath:       "/store/001_Draft_PAPER.pdf",
	}
	first := base
	if err := repo.Insert(ctx, &first); err != nil {
		t.Fatalf("Insert() error = %v", err)
	}

	tests := []struct {
		name   string
		mutate func(*DocumentRecord)
	}{
		{
			name: "same tracing number",
			mutate: func(d *DocumentRecord) {
				d.Fingerprint = "bbb"
				d.StoredPath = "/store/other"
			},
		},
		{
			name: "same fingerprint",
			mutate: func(d *DocumentRecord) {
				d.TracingNumber = 2
				d.StoredPath = "/store/other"
			},
		},
		{
			name: "same stored path",
			mutate: func(d *DocumentRecord) {
				d.TracingNumber = 2
				d.Fingerprint = "bbb"
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			doc := base
			tt.mutate(&doc)
			err := repo.Insert(ctx, &doc)
			if !errors.Is(err, ErrConflict) {
				t.Errorf("Insert() error = %v, want ErrConflict", err)
			}
		})
	}
}

func TestDocumentRepo_Lookups(t *testing.T) {
	db := newTestDB(t)
	repo := NewDocumentRepo(db)
	ctx := context.Background()

	maxNum, err := repo.MaxTracingNumber(ctx)
	if err != nil {
		t.Fatalf("MaxTracingNumber() error = %v", err)
	}
	if maxNum != 0 {
		t.Errorf("MaxTracingNumber() on empty registry = %d, want 0", maxNum)
	}

	for _, n := range []int{3, 1, 12} {
		insertTestDocument(t, db, n)
	}

	maxNum, err = repo.MaxTracingNumber(ctx)
	if err != nil {
		t.Fatalf("MaxTracingNumber() error = %v", err)
	}
	if maxNum != 12 {
		t.Errorf("MaxTracingNumber() = %d, want 12", maxNum)
	}

	doc, err := repo.GetByFingerprint(ctx, "fp-3")
	if err != nil {
		t.Fatalf("GetByFingerprint() error = %v", err)
	}
	if doc.TracingNumber != 3 || doc.DocType != "unknown" || doc.IndexStatus != IndexPending {
		t.Errorf("GetByFingerprint() = %+v", doc)
	}

	if _, err := repo.GetByFingerprint(ctx, "nope"); !errors.Is(err, ErrNotFound) {
		t.Errorf("GetByFingerprint(nope) error = %v, want ErrNotFound", err)
	}
	if _, err := repo.GetByTracingNumber(ctx, 4); !errors.Is(err, ErrNotFound) {
		t.Errorf("GetByTracingNumber(4) error = %v, want ErrNotFound", err)
	}

	docs, err := repo.List(ctx)
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	var got []int
	for _, d := range docs {
		got = append(got, d.TracingNumber)
	}
	if len(got) != 3 || got[0] != 1 || got[1] != 3 || got[2] != 12 {
		t.Errorf("List() order = %v, want [1 3 12]", got)
	}
}

func TestDocumentRepo_Updates(t *testing.T) {
	db := newTestDB(t)
	repo := NewDocumentRepo(db)
	ctx := context.Background()
	insertTestDocument(t, db, 5)

	if err := repo.UpdateClassification(ctx, 5, "supporting_info", "Extra data", "model_fallback"); err != nil {
		t.Fatalf("UpdateClassification() error = %v", err)
	}
	if err := repo.SetIndexStatus(ctx, 5, IndexIndexed); err != nil {
		t.Fatalf("SetIndexStatus() error = %v", err)
	}

	doc, err := repo.GetByTracingNumber(ctx, 5)
	if err != nil {
		t.Fatalf("GetByTracingNumber() error = %v", err)
	}
	if doc.DocType != "supporting_info" || doc.ClassifiedTitle != "Extra data" ||
		doc.ClassificationSource != "model_fallback" || doc.IndexStatus != IndexIndexed {
		t.Errorf("GetByTracingNumber() = %+v", doc)
	}
	// identity fields never change
	if doc.Title != "Paper" || doc.DeclaredType != "PAPER" {
		t.Errorf("identity fields changed: %+v", doc)
	}

	if err := repo.SetIndexStatus(ctx, 6, IndexFailed); !errors.Is(err, ErrNotFound) {
		t.Errorf("SetIndexStatus(6) error = %v, want ErrNotFound", err)
	}
	if err := repo.UpdateClassification(ctx, 6, "paper", "", "rule_match"); !errors.Is(err, ErrNotFound) {
		t.Errorf("UpdateClassification(6) error = %v, want ErrNotFound", err)
	}
}

func TestExperimentRepo_InsertIfAbsentKeepsOriginal(t *testing.T) {
	db := newTestDB(t)
	repo := NewExperimentRepo(db)
	ctx := context.Background()

	rec := &ExperimentRecord{ID: "EXP_01", SourceFile: "runs.xlsx", Text: "Sample: MOF-5"}
	inserted, err := repo.InsertIfAbsent(ctx, rec)
	if err != nil {
		t.Fatalf("InsertIfAbsent() error = %v", err)
	}
	if !inserted {
		t.Error("InsertIfAbsent() first call should insert")
	}

	changed := &ExperimentRecord{ID: "EXP_01", SourceFile: "runs.xlsx", Text: "Sample: edited"}
	inserted, err = repo.InsertIfAbsent(ctx, changed)
	if err != nil {
		t.Fatalf("InsertIfAbsent() second call error = %v", err)
	}
	if inserted {
		t.Error("InsertIfAbsent() second call should skip")
	}

	recs, err := repo.List(ctx)
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	if len(recs) != 1 || recs[0].Text != "Sample: MOF-5" {
		t.Errorf("List() = %+v, want original record only", recs)
	}
}
