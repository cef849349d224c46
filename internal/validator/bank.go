package validator

import (
	"fmt"
	"strings"

	"github.com/stemsi/formbank-backend/internal/model"
	"github.com/stemsi/formbank-backend/internal/response"
	"github.com/stemsi/formbank-backend/internal/service"
)

// ValidateBank checks the rules struct tags cannot express: a non-blank
// title, at least one page, a known content type matching its card, and
// content IDs unique across the bank. It returns nil when the bank is valid.
func ValidateBank(bank *model.QuestionBank) []response.FieldError {
	var fields []response.FieldError

	if strings.TrimSpace(bank.Title) == "" {
		fields = append(fields, response.FieldError{Field: "title", Message: "Form title is required"})
	}
	if len(bank.Pages) == 0 {
		fields = append(fields, response.FieldError{Field: "pages", Message: "Form must have at least one page"})
	}

	for pi, page := range bank.Pages {
		for ci, card := range page.Cards {
			cardPath := fmt.Sprintf("pages[%d].cards[%d]", pi, ci)
			if !card.CardType.Valid() {
				fields = append(fields, response.FieldError{
					Field:   cardPath + ".card_type",
					Message: fmt.Sprintf("Unknown card type %q", card.CardType),
				})
				continue
			}
			for ii, item := range card.Contents {
				if msg := contentProblem(card.CardType, item); msg != "" {
					fields = append(fields, response.FieldError{
						Field:   fmt.Sprintf("%s.contents[%d].type", cardPath, ii),
						Message: msg,
					})
				}
			}
		}
	}

	if dups := service.DuplicateContentIDs(bank); len(dups) > 0 {
		fields = append(fields, response.FieldError{
			Field:   "general",
			Message: "Duplicate content IDs found: " + strings.Join(dups, ", "),
		})
	}

	if len(fields) == 0 {
		return nil
	}
	return fields
}

func contentProblem(cardType model.CardType, item model.ContentItem) string {
	if item.Content == nil {
		return "Content item is required"
	}
	base := item.Base()
	if base.Type == "" {
		return "Content type is required"
	}
	family, ok := base.Type.Family()
	if !ok {
		return fmt.Sprintf("Unknown content type %q", base.Type)
	}
	if family != cardType {
		return fmt.Sprintf("Content type %q cannot be placed in a %s card", base.Type, cardType)
	}
	return ""
}
