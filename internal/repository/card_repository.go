package repository

import (
	"context"

	"github.com/stemsi/formbank-backend/internal/database"
	"github.com/stemsi/formbank-backend/internal/model"
)

// CardRepository handles cards rows.
type CardRepository struct {
	dialect database.Dialect
}

// NewCardRepository creates a new CardRepository.
func NewCardRepository(dialect database.Dialect) *CardRepository {
	return &CardRepository{dialect: dialect}
}

// Insert stores a card and returns its generated ID.
func (r *CardRepository) Insert(ctx context.Context, db database.DBTX, pageID int64, cardType model.CardType, position int) (int64, error) {
	var id int64
	err := db.QueryRowContext(ctx, r.dialect.Rebind(
		`INSERT INTO cards (page_id, card_type, position)
		 VALUES (?, ?, ?)
		 RETURNING id`),
		pageID, string(cardType), position,
	).Scan(&id)
	return id, err
}

// ListByPage retrieves the cards of a page ordered by position.
// Contents are not loaded.
func (r *CardRepository) ListByPage(ctx context.Context, db database.DBTX, pageID int64) ([]model.Card, error) {
	rows, err := db.QueryContext(ctx, r.dialect.Rebind(
		`SELECT id, card_type, position
		 FROM cards WHERE page_id = ?
		 ORDER BY position, id`), pageID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	cards := []model.Card{}
	for rows.Next() {
		var c model.Card
		if err := rows.Scan(&c.ID, &c.CardType, &c.Position); err != nil {
			return nil, err
		}
		cards = append(cards, c)
	}
	return cards, rows.Err()
}

// DeleteByBank removes every card under the pages of a bank.
func (r *CardRepository) DeleteByBank(ctx context.Context, db database.DBTX, bankID string) error {
	_, err := db.ExecContext(ctx, r.dialect.Rebind(
		`DELETE FROM cards WHERE page_id IN (
		     SELECT id FROM question_bank_pages WHERE questionbank_id = ?)`), bankID,
	)
	return err
}
