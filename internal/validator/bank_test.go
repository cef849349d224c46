package validator

import (
	"encoding/json"
	"strings"
	"testing"

	"github.com/stemsi/formbank-backend/internal/model"
	"github.com/stemsi/formbank-backend/internal/response"
	"github.com/stemsi/formbank-backend/internal/testutil"
)

func findField(fields []response.FieldError, name string) *response.FieldError {
	for i := range fields {
		if fields[i].Field == name {
			return &fields[i]
		}
	}
	return nil
}

func TestValidateBankAcceptsSample(t *testing.T) {
	if fields := ValidateBank(testutil.SampleBank(t)); fields != nil {
		t.Errorf("unexpected errors: %+v", fields)
	}
}

func TestValidateBankTitleAndPages(t *testing.T) {
	fields := ValidateBank(&model.QuestionBank{Title: "   "})

	if f := findField(fields, "title"); f == nil || f.Message != "Form title is required" {
		t.Errorf("title error = %+v", f)
	}
	if f := findField(fields, "pages"); f == nil || f.Message != "Form must have at least one page" {
		t.Errorf("pages error = %+v", f)
	}
}

func TestValidateBankContentTypes(t *testing.T) {
	raw := `{
		"title": "Types",
		"pages": [{
			"page_index": 1,
			"cards": [
				{"card_type": "question", "contents": [
					{"id": "a", "type": "essay"},
					{"id": "b"},
					{"id": "c", "type": "text-material"}
				]},
				{"card_type": "poll", "contents": []}
			]
		}]
	}`
	var bank model.QuestionBank
	if err := json.Unmarshal([]byte(raw), &bank); err != nil {
		t.Fatalf("decode failed: %v", err)
	}

	fields := ValidateBank(&bank)

	tests := []struct {
		field string
		want  string
	}{
		{"pages[0].cards[0].contents[0].type", `Unknown content type "essay"`},
		{"pages[0].cards[0].contents[1].type", "Content type is required"},
		{"pages[0].cards[0].contents[2].type", `Content type "text-material" cannot be placed in a question card`},
		{"pages[0].cards[1].card_type", `Unknown card type "poll"`},
	}
	for _, tc := range tests {
		f := findField(fields, tc.field)
		if f == nil {
			t.Errorf("missing error for %s in %+v", tc.field, fields)
			continue
		}
		if f.Message != tc.want {
			t.Errorf("%s = %q, want %q", tc.field, f.Message, tc.want)
		}
	}
}

func TestValidateBankDuplicateIDs(t *testing.T) {
	bank := testutil.SampleBank(t)
	bank.Pages[1].Cards[0].Contents[1].Base().ID = "sc-1"
	bank.Pages[1].Cards[1].Contents[0].Base().ID = "mc-1"

	fields := ValidateBank(bank)
	f := findField(fields, "general")
	if f == nil {
		t.Fatalf("missing duplicate error in %+v", fields)
	}
	if !strings.HasPrefix(f.Message, "Duplicate content IDs found: ") ||
		!strings.Contains(f.Message, "mc-1, sc-1") {
		t.Errorf("message = %q", f.Message)
	}
}

func TestFieldPath(t *testing.T) {
	tests := []struct{ in, want string }{
		{"QuestionBank.pages[0].cards[1].card_type", "pages[0].cards[1].card_type"},
		{"title", "title"},
	}
	for _, tc := range tests {
		if got := fieldPath(tc.in); got != tc.want {
			t.Errorf("fieldPath(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}
}
