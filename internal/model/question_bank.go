package model

import (
	"time"
)

// BankStatus is the publication state of a question bank.
type BankStatus string

const (
	BankStatusDraft     BankStatus = "draft"
	BankStatusPublished BankStatus = "published"
)

// Defaults applied to a bank payload before it is stored.
const (
	DefaultBankTitle    = "Untitled Question Bank"
	DefaultExamLanguage = "en"
	DefaultBankVersion  = 1
)

// QuestionBank is one exported form: the root of the page → card → content tree.
type QuestionBank struct {
	ID          string     `json:"questionbank_id" binding:"omitempty,max=64"`
	Title       string     `json:"title" binding:"max=255"`
	Description string     `json:"description"`
	ExportDate  string     `json:"exportDate"`
	Status      BankStatus `json:"status" binding:"omitempty,oneof=draft published"`
	Version     int        `json:"version" binding:"min=0"`
	AuthorID    *string    `json:"author_id,omitempty"`
	CreatedAt   *time.Time `json:"created_at,omitempty"`
	UpdatedAt   *time.Time `json:"updated_at,omitempty"`
	EditorMode  bool       `json:"editorMode,omitempty"`
	Pages       []Page     `json:"pages" binding:"dive"`
}

// Page is one unit of exam content within a bank.
type Page struct {
	ID             int64          `json:"-"`
	PageIndex      int            `json:"page_index" binding:"min=0"`
	ExamCategories ExamCategories `json:"exam_categories"`
	ExamLanguage   string         `json:"exam_language,omitempty"`
	Cards          []Card         `json:"cards" binding:"dive"`
}

// ExamCategories groups the free-text classification of a page.
type ExamCategories struct {
	ExamLanguage string `json:"exam_language"`
	ExamType     string `json:"exam_type"`
	Component    string `json:"component"`
	Category     string `json:"category"`
}

// CardType decides which content tables hold a card's items.
type CardType string

const (
	CardTypeQuestion CardType = "question"
	CardTypeMaterial CardType = "material"
)

// Valid reports whether t is a known card type.
func (t CardType) Valid() bool {
	return t == CardTypeQuestion || t == CardTypeMaterial
}

// Card is a labeled grouping of ordered content items within a page.
type Card struct {
	ID       int64         `json:"-"`
	CardType CardType      `json:"card_type" binding:"required,oneof=question material"`
	Position int           `json:"position"`
	Contents []ContentItem `json:"contents"`
}

// BankSummary is the list-view projection of a bank and its first page.
type BankSummary struct {
	ID            string     `json:"questionbank_id"`
	Title         string     `json:"title"`
	Description   string     `json:"description"`
	ExportDate    string     `json:"exportDate"`
	Status        BankStatus `json:"status"`
	Version       int        `json:"version"`
	ExamLanguage  string     `json:"exam_language"`
	ExamType      string     `json:"exam_type"`
	Component     string     `json:"component"`
	Category      string     `json:"category"`
	QuestionCount int        `json:"question_count"`
	CreatedAt     time.Time  `json:"created_at"`
	UpdatedAt     time.Time  `json:"updated_at"`
}

// ExportResult reports the outcome of a create-or-replace export.
type ExportResult struct {
	ID       string `json:"questionbankId"`
	Replaced bool   `json:"replaced"`
}
