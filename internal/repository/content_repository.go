package repository

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/rs/zerolog"
	"github.com/stemsi/formbank-backend/internal/codec"
	"github.com/stemsi/formbank-backend/internal/database"
	"github.com/stemsi/formbank-backend/internal/model"
)

// ErrDuplicateContentID is returned when a content ID is used twice in one bank.
var ErrDuplicateContentID = errors.New("duplicate content id")

// ContentRepository stores content items in their per-variant tables.
type ContentRepository struct {
	dialect database.Dialect
	log     zerolog.Logger
}

// NewContentRepository creates a new ContentRepository.
func NewContentRepository(dialect database.Dialect, log zerolog.Logger) *ContentRepository {
	return &ContentRepository{
		dialect: dialect,
		log:     log.With().Str("component", "content_repository").Logger(),
	}
}

// Insert claims the content ID within the bank, then writes the encoded row.
func (r *ContentRepository) Insert(ctx context.Context, db database.DBTX, bankID string, cardID int64, row codec.Row) error {
	_, err := db.ExecContext(ctx, r.dialect.Rebind(
		`INSERT INTO bank_content_ids (questionbank_id, content_id, card_id, content_type)
		 VALUES (?, ?, ?, ?)`),
		bankID, row.ContentID, cardID, string(row.Type),
	)
	if err != nil {
		if database.IsUniqueViolation(err) {
			return fmt.Errorf("%w: %s", ErrDuplicateContentID, row.ContentID)
		}
		return fmt.Errorf("index content %s: %w", row.ContentID, err)
	}

	query := fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s)",
		row.Table, strings.Join(row.Columns, ", "), r.dialect.Placeholders(len(row.Columns)))
	if _, err := db.ExecContext(ctx, r.dialect.Rebind(query), row.Values...); err != nil {
		return fmt.Errorf("insert into %s: %w", row.Table, err)
	}
	return nil
}

// ListByCard reads every content item of a card from the tables its type
// allows, merged and sorted by order_id. Items sharing an order_id keep
// table order, then insertion order.
func (r *ContentRepository) ListByCard(ctx context.Context, db database.DBTX, cardID int64, cardType model.CardType) ([]model.ContentItem, error) {
	tables, err := codec.TablesFor(cardType)
	if err != nil {
		return nil, err
	}

	items := []model.ContentItem{}
	for _, t := range tables {
		query := fmt.Sprintf("SELECT %s FROM %s WHERE card_id = ? ORDER BY order_id, id",
			strings.Join(t.SelectColumns(), ", "), t.Name)
		rows, err := db.QueryContext(ctx, r.dialect.Rebind(query), cardID)
		if err != nil {
			return nil, fmt.Errorf("query %s: %w", t.Name, err)
		}

		for rows.Next() {
			content, err := t.Decode(rows.Scan, r.log)
			if err != nil {
				rows.Close()
				return nil, err
			}
			items = append(items, model.ContentItem{Content: content})
		}
		err = rows.Err()
		rows.Close()
		if err != nil {
			return nil, fmt.Errorf("read %s: %w", t.Name, err)
		}
	}

	sort.SliceStable(items, func(i, j int) bool {
		return items[i].Base().OrderID < items[j].Base().OrderID
	})
	return items, nil
}

// DeleteByBank removes every content row and content ID claim of a bank.
// All variant tables are cleared regardless of card type.
func (r *ContentRepository) DeleteByBank(ctx context.Context, db database.DBTX, bankID string) error {
	const cardsOfBank = `SELECT c.id FROM cards c
		JOIN question_bank_pages p ON p.id = c.page_id
		WHERE p.questionbank_id = ?`

	for _, t := range codec.Tables() {
		query := fmt.Sprintf("DELETE FROM %s WHERE card_id IN (%s)", t.Name, cardsOfBank)
		if _, err := db.ExecContext(ctx, r.dialect.Rebind(query), bankID); err != nil {
			return fmt.Errorf("delete from %s: %w", t.Name, err)
		}
	}

	_, err := db.ExecContext(ctx, r.dialect.Rebind(
		`DELETE FROM bank_content_ids WHERE questionbank_id = ?`), bankID,
	)
	return err
}
