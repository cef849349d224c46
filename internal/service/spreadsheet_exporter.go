package service

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"unicode/utf16"

	"github.com/rs/zerolog"
	"github.com/xuri/excelize/v2"
)

// dataColumn is the 1-based column of the content JSON on the Contents sheet.
// JSON longer than one cell holds continues in the columns after it.
const dataColumn = 8

// Sheet names of an exported workbook.
const (
	SheetBank     = "Bank"
	SheetContents = "Contents"
)

// SpreadsheetExporter renders a bank tree as an XLSX workbook: bank metadata
// on one sheet, one row per content item on another.
type SpreadsheetExporter struct {
	banks *BankService
	log   zerolog.Logger
}

// NewSpreadsheetExporter creates a new SpreadsheetExporter.
func NewSpreadsheetExporter(banks *BankService, log zerolog.Logger) *SpreadsheetExporter {
	return &SpreadsheetExporter{
		banks: banks,
		log:   log.With().Str("component", "spreadsheet_exporter").Logger(),
	}
}

// FileName is the attachment file name for an exported workbook.
func (e *SpreadsheetExporter) FileName(id string) string {
	return fmt.Sprintf("form-export-%s.xlsx", id)
}

// Export builds the workbook for bank id.
func (e *SpreadsheetExporter) Export(ctx context.Context, id string) ([]byte, error) {
	bank, err := e.banks.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if bank == nil {
		return nil, ErrBankNotFound
	}

	f := excelize.NewFile()
	defer func() {
		if err := f.Close(); err != nil {
			e.log.Warn().Err(err).Msg("Failed to close workbook")
		}
	}()

	header, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return nil, fmt.Errorf("create header style: %w", err)
	}

	// ─── Bank sheet ────────────────────────────────────────────────────
	if err := f.SetSheetName("Sheet1", SheetBank); err != nil {
		return nil, fmt.Errorf("rename sheet: %w", err)
	}
	meta := [][]any{
		{"Field", "Value"},
		{"questionbank_id", bank.ID},
		{"title", bank.Title},
		{"description", bank.Description},
		{"exportDate", bank.ExportDate},
		{"status", string(bank.Status)},
		{"version", bank.Version},
		{"pages", len(bank.Pages)},
	}
	for i, row := range meta {
		if err := setRow(f, SheetBank, i+1, row); err != nil {
			return nil, err
		}
	}
	if err := f.SetRowStyle(SheetBank, 1, 1, header); err != nil {
		return nil, fmt.Errorf("style bank header: %w", err)
	}
	if err := f.SetColWidth(SheetBank, "A", "B", 24); err != nil {
		return nil, fmt.Errorf("size bank columns: %w", err)
	}

	// ─── Contents sheet ────────────────────────────────────────────────
	if _, err := f.NewSheet(SheetContents); err != nil {
		return nil, fmt.Errorf("create contents sheet: %w", err)
	}
	rowNum := 1
	if err := setRow(f, SheetContents, rowNum, []any{
		"page_index", "exam_language", "card_position", "card_type", "content_id", "type", "order_id", "data",
	}); err != nil {
		return nil, err
	}
	if err := f.SetRowStyle(SheetContents, 1, 1, header); err != nil {
		return nil, fmt.Errorf("style contents header: %w", err)
	}

	maxParts := 1
	for _, page := range bank.Pages {
		for _, card := range page.Cards {
			for _, item := range card.Contents {
				data, err := json.Marshal(item)
				if err != nil {
					return nil, fmt.Errorf("marshal content: %w", err)
				}
				base := item.Base()
				parts := splitCellText(string(data), excelize.TotalCellChars)
				if len(parts) > 1 {
					e.log.Warn().
						Str("questionbank_id", id).
						Str("content_id", base.ID).
						Int("cells", len(parts)).
						Msg("Content JSON exceeds one cell, continued in following columns")
				}
				maxParts = max(maxParts, len(parts))

				row := []any{
					page.PageIndex, page.ExamLanguage, card.Position, string(card.CardType),
					base.ID, string(base.Type), base.OrderID,
				}
				for _, part := range parts {
					row = append(row, part)
				}
				rowNum++
				if err := setRow(f, SheetContents, rowNum, row); err != nil {
					return nil, err
				}
			}
		}
	}

	for i := 2; i <= maxParts; i++ {
		cell, err := excelize.CoordinatesToCellName(dataColumn+i-1, 1)
		if err != nil {
			return nil, fmt.Errorf("continuation header: %w", err)
		}
		if err := f.SetCellValue(SheetContents, cell, "data_"+strconv.Itoa(i)); err != nil {
			return nil, fmt.Errorf("write continuation header: %w", err)
		}
	}

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("write workbook: %w", err)
	}

	e.log.Debug().
		Str("questionbank_id", id).
		Int("rows", rowNum-1).
		Msg("Workbook exported")
	return buf.Bytes(), nil
}

func setRow(f *excelize.File, sheet string, row int, values []any) error {
	if err := f.SetSheetRow(sheet, "A"+strconv.Itoa(row), &values); err != nil {
		return fmt.Errorf("write %s row %d: %w", sheet, row, err)
	}
	return nil
}

// splitCellText cuts s into pieces of at most limit UTF-16 code units, the
// unit excelize counts cell length in. Runes are never split.
func splitCellText(s string, limit int) []string {
	var parts []string
	start, units := 0, 0
	for i, r := range s {
		n := utf16.RuneLen(r)
		if n < 0 {
			n = 1
		}
		if units+n > limit {
			parts = append(parts, s[start:i])
			start, units = i, 0
		}
		units += n
	}
	return append(parts, s[start:])
}
