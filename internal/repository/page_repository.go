package repository

import (
	"context"

	"github.com/stemsi/formbank-backend/internal/database"
	"github.com/stemsi/formbank-backend/internal/model"
)

// PageRepository handles question_bank_pages rows.
type PageRepository struct {
	dialect database.Dialect
}

// NewPageRepository creates a new PageRepository.
func NewPageRepository(dialect database.Dialect) *PageRepository {
	return &PageRepository{dialect: dialect}
}

// Insert stores a page and returns its generated ID.
// The page language must already be resolved by the caller.
func (r *PageRepository) Insert(ctx context.Context, db database.DBTX, bankID string, p *model.Page) (int64, error) {
	var id int64
	err := db.QueryRowContext(ctx, r.dialect.Rebind(
		`INSERT INTO question_bank_pages (questionbank_id, page_index, exam_language, exam_type, component, category)
		 VALUES (?, ?, ?, ?, ?, ?)
		 RETURNING id`),
		bankID, p.PageIndex, p.ExamCategories.ExamLanguage, p.ExamCategories.ExamType, p.ExamCategories.Component, p.ExamCategories.Category,
	).Scan(&id)
	return id, err
}

// ListByBank retrieves the pages of a bank ordered by page_index.
func (r *PageRepository) ListByBank(ctx context.Context, db database.DBTX, bankID string) ([]model.Page, error) {
	rows, err := db.QueryContext(ctx, r.dialect.Rebind(
		`SELECT id, page_index, exam_language, exam_type, component, category
		 FROM question_bank_pages WHERE questionbank_id = ?
		 ORDER BY page_index, id`), bankID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	pages := []model.Page{}
	for rows.Next() {
		var p model.Page
		if err := rows.Scan(&p.ID, &p.PageIndex, &p.ExamCategories.ExamLanguage, &p.ExamCategories.ExamType,
			&p.ExamCategories.Component, &p.ExamCategories.Category); err != nil {
			return nil, err
		}
		p.ExamLanguage = p.ExamCategories.ExamLanguage
		pages = append(pages, p)
	}
	return pages, rows.Err()
}

// DeleteByBank removes every page of a bank.
func (r *PageRepository) DeleteByBank(ctx context.Context, db database.DBTX, bankID string) error {
	_, err := db.ExecContext(ctx, r.dialect.Rebind(
		`DELETE FROM question_bank_pages WHERE questionbank_id = ?`), bankID,
	)
	return err
}
