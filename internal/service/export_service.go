package service

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/rs/zerolog"
	"github.com/stemsi/formbank-backend/internal/model"
	"github.com/stemsi/formbank-backend/internal/repository"
)

// ExportService accepts exported bank payloads from the editor and serves
// them back as documents.
type ExportService struct {
	banks *BankService
	log   zerolog.Logger
}

// NewExportService creates a new ExportService.
func NewExportService(banks *BankService, log zerolog.Logger) *ExportService {
	return &ExportService{
		banks: banks,
		log:   log.With().Str("component", "export_service").Logger(),
	}
}

// Export stores a payload. A payload carrying questionbank_id replaces that
// bank (or creates it under the given ID); otherwise a new bank is created.
func (s *ExportService) Export(ctx context.Context, bank *model.QuestionBank) (*model.ExportResult, error) {
	if bank.ID == "" {
		id, err := s.banks.Create(ctx, bank)
		if err != nil {
			return nil, err
		}
		return &model.ExportResult{ID: id}, nil
	}
	return s.Replace(ctx, bank.ID, bank)
}

// Replace swaps the whole tree of bank id for the payload in one transaction.
// The original created_at survives; a missing bank is created.
func (s *ExportService) Replace(ctx context.Context, id string, bank *model.QuestionBank) (*model.ExportResult, error) {
	b := s.banks
	now := b.now()
	bank.ID = id
	bank.UpdatedAt = &now
	if err := b.prepare(bank, now); err != nil {
		return nil, err
	}

	replaced := false
	err := b.withTx(ctx, func(tx *sql.Tx) error {
		createdAt, err := b.bankRepo.CreatedAt(ctx, tx, id)
		switch {
		case errors.Is(err, repository.ErrNotFound):
			createdAt = now
		case err != nil:
			return fmt.Errorf("lookup bank: %w", err)
		default:
			replaced = true
			if _, err := b.deleteTree(ctx, tx, id); err != nil {
				return err
			}
		}
		bank.CreatedAt = &createdAt
		return b.writeTree(ctx, tx, bank)
	})
	if err != nil {
		return nil, err
	}

	s.log.Info().
		Str("questionbank_id", id).
		Bool("replaced", replaced).
		Int("pages", len(bank.Pages)).
		Msg("Question bank exported")
	b.afterWrite(ctx, bank)
	return &model.ExportResult{ID: id, Replaced: replaced}, nil
}

// Document returns a bank tree as indented JSON for download.
func (s *ExportService) Document(ctx context.Context, id string) ([]byte, error) {
	bank, err := s.banks.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if bank == nil {
		return nil, ErrBankNotFound
	}

	doc, err := json.MarshalIndent(bank, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("marshal bank: %w", err)
	}
	return doc, nil
}

// DocumentName is the attachment file name for a downloaded bank.
func DocumentName(id string) string {
	return fmt.Sprintf("form-export-%s.json", id)
}
