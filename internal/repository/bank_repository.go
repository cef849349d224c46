package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/stemsi/formbank-backend/internal/database"
	"github.com/stemsi/formbank-backend/internal/model"
)

// ErrNotFound is returned when a lookup matches no row.
var ErrNotFound = errors.New("record not found")

// BankRepository handles question bank rows.
type BankRepository struct {
	dialect database.Dialect
}

// NewBankRepository creates a new BankRepository.
func NewBankRepository(dialect database.Dialect) *BankRepository {
	return &BankRepository{dialect: dialect}
}

// Insert stores a bank row. CreatedAt and UpdatedAt must be set by the caller.
func (r *BankRepository) Insert(ctx context.Context, db database.DBTX, b *model.QuestionBank) error {
	_, err := db.ExecContext(ctx, r.dialect.Rebind(
		`INSERT INTO question_banks (questionbank_id, title, description, export_date, status, version, author_id, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`),
		b.ID, b.Title, b.Description, b.ExportDate, b.Status, b.Version, b.AuthorID, b.CreatedAt, b.UpdatedAt,
	)
	return err
}

// GetByID retrieves a bank row without its pages.
func (r *BankRepository) GetByID(ctx context.Context, db database.DBTX, id string) (*model.QuestionBank, error) {
	var (
		b                    model.QuestionBank
		authorID             sql.NullString
		createdAt, updatedAt time.Time
	)
	err := db.QueryRowContext(ctx, r.dialect.Rebind(
		`SELECT questionbank_id, title, description, export_date, status, version, author_id, created_at, updated_at
		 FROM question_banks WHERE questionbank_id = ?`), id,
	).Scan(&b.ID, &b.Title, &b.Description, &b.ExportDate, &b.Status, &b.Version, &authorID, &createdAt, &updatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}

	if authorID.Valid {
		b.AuthorID = &authorID.String
	}
	b.CreatedAt = &createdAt
	b.UpdatedAt = &updatedAt
	return &b, nil
}

// CreatedAt returns the creation time of a bank, or ErrNotFound.
func (r *BankRepository) CreatedAt(ctx context.Context, db database.DBTX, id string) (time.Time, error) {
	var createdAt time.Time
	err := db.QueryRowContext(ctx, r.dialect.Rebind(
		`SELECT created_at FROM question_banks WHERE questionbank_id = ?`), id,
	).Scan(&createdAt)
	if errors.Is(err, sql.ErrNoRows) {
		return time.Time{}, ErrNotFound
	}
	return createdAt, err
}

// Delete removes a bank row and reports whether it existed.
func (r *BankRepository) Delete(ctx context.Context, db database.DBTX, id string) (bool, error) {
	res, err := db.ExecContext(ctx, r.dialect.Rebind(
		`DELETE FROM question_banks WHERE questionbank_id = ?`), id,
	)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

// List returns bank summaries, most recently updated first. An empty status
// lists every bank.
func (r *BankRepository) List(ctx context.Context, db database.DBTX, status model.BankStatus) ([]model.BankSummary, error) {
	rows, err := db.QueryContext(ctx, r.dialect.Rebind(
		`SELECT b.questionbank_id, b.title, b.description, b.export_date, b.status, b.version,
		        COALESCE(p.exam_language, ''), COALESCE(p.exam_type, ''), COALESCE(p.component, ''), COALESCE(p.category, ''),
		        (SELECT COUNT(*) FROM cards c
		           JOIN question_bank_pages qp ON qp.id = c.page_id
		          WHERE qp.questionbank_id = b.questionbank_id AND c.card_type = 'question'),
		        b.created_at, b.updated_at
		 FROM question_banks b
		 LEFT JOIN question_bank_pages p ON p.id = (
		        SELECT fp.id FROM question_bank_pages fp
		         WHERE fp.questionbank_id = b.questionbank_id
		         ORDER BY fp.page_index, fp.id LIMIT 1)
		 WHERE (? = '' OR b.status = ?)
		 ORDER BY b.updated_at DESC, b.questionbank_id`),
		string(status), string(status),
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	summaries := []model.BankSummary{}
	for rows.Next() {
		var s model.BankSummary
		if err := rows.Scan(&s.ID, &s.Title, &s.Description, &s.ExportDate, &s.Status, &s.Version,
			&s.ExamLanguage, &s.ExamType, &s.Component, &s.Category, &s.QuestionCount,
			&s.CreatedAt, &s.UpdatedAt); err != nil {
			return nil, err
		}
		summaries = append(summaries, s)
	}
	return summaries, rows.Err()
}

// ListIDsByStatus returns the IDs of banks in the given status.
func (r *BankRepository) ListIDsByStatus(ctx context.Context, db database.DBTX, status model.BankStatus) ([]string, error) {
	rows, err := db.QueryContext(ctx, r.dialect.Rebind(
		`SELECT questionbank_id FROM question_banks WHERE status = ? ORDER BY updated_at DESC`), string(status),
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}
