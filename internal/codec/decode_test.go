package codec

import (
	"bytes"
	"database/sql"
	"fmt"
	"strings"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stemsi/formbank-backend/internal/model"
)

// fakeScan assigns vals to dest the way database/sql would for these column types.
func fakeScan(vals ...any) ScanFunc {
	return func(dest ...any) error {
		if len(dest) != len(vals) {
			return fmt.Errorf("scan: %d destinations for %d values", len(dest), len(vals))
		}
		for i, d := range dest {
			switch p := d.(type) {
			case *string:
				*p = vals[i].(string)
			case *int:
				*p = vals[i].(int)
			case *sql.NullString:
				if vals[i] == nil {
					*p = sql.NullString{}
				} else {
					*p = sql.NullString{String: vals[i].(string), Valid: true}
				}
			case *sql.NullInt64:
				if vals[i] == nil {
					*p = sql.NullInt64{}
				} else {
					*p = sql.NullInt64{Int64: vals[i].(int64), Valid: true}
				}
			default:
				return fmt.Errorf("scan: unsupported destination %T", d)
			}
		}
		return nil
	}
}

func TestDecodeMatchingFillsBothFields(t *testing.T) {
	tbl, _ := TableFor(model.TypeMatching)
	scan := fakeScan("m1", 4, "Match", "", "medium", `[{"label":"x","correctAnswers":["y"]}]`, `{}`)

	content, err := tbl.Decode(scan, zerolog.Nop())
	if err != nil {
		t.Fatalf("Decode failed: %v", err)
	}

	q, ok := content.(*model.MatchingQuestion)
	if !ok {
		t.Fatalf("got %T", content)
	}
	if q.Type != model.TypeMatching || q.ID != "m1" || q.OrderID != 4 {
		t.Errorf("base = %+v", q.ContentBase)
	}
	if string(q.Blanks) != `[{"label":"x","correctAnswers":["y"]}]` {
		t.Errorf("blanks = %s", q.Blanks)
	}
	if string(q.Options) != string(q.Blanks) {
		t.Errorf("options = %s, want %s", q.Options, q.Blanks)
	}
}

func TestDecodeCorruptBlobFallsBack(t *testing.T) {
	var logs bytes.Buffer
	log := zerolog.New(&logs)

	tbl, _ := TableFor(model.TypeSingleChoice)
	scan := fakeScan("sc", 1, "Pick", nil, "A", "", "easy", 3, `["A",`, `{"question_image":{"url":"a.png"}}`)

	content, err := tbl.Decode(scan, log)
	if err != nil {
		t.Fatalf("Decode failed: %v", err)
	}
	q := content.(*model.SingleChoiceQuestion)

	if string(q.Options) != "[]" {
		t.Errorf("options = %s, want []", q.Options)
	}
	if q.Question != "Pick" || q.CorrectAnswer != "A" || q.Marks != 3 || q.Difficulty != "easy" {
		t.Errorf("scalar fields lost: %+v", q)
	}
	if q.AnswerID != nil {
		t.Errorf("answer_id = %v, want nil", *q.AnswerID)
	}
	if string(q.QuestionImage) != `{"url":"a.png"}` {
		t.Errorf("question_image = %s", q.QuestionImage)
	}

	out := logs.String()
	for _, want := range []string{`"level":"warn"`, `"table":"single_choice_questions"`, `"column":"options_data"`, `"content_id":"sc"`} {
		if !strings.Contains(out, want) {
			t.Errorf("log missing %s: %s", want, out)
		}
	}
}

func TestDecodeNullBlobs(t *testing.T) {
	tbl, _ := TableFor(model.TypeMultimediaMaterial)
	scan := fakeScan("mm", 0, "Video", 1, "h2", "video", nil, "null")

	content, err := tbl.Decode(scan, zerolog.Nop())
	if err != nil {
		t.Fatalf("Decode failed: %v", err)
	}
	m := content.(*model.MultimediaMaterial)
	if string(m.Media) != "{}" || string(m.Settings) != "{}" {
		t.Errorf("media = %s, settings = %s", m.Media, m.Settings)
	}
	if !m.ShowTitle {
		t.Error("show_title lost")
	}
}

func TestDecodeCorruptMediaIsIgnored(t *testing.T) {
	tbl, _ := TableFor(model.TypeLongText)
	scan := fakeScan("lt", 0, "Describe", "", "medium", "", 4, "", 1, `{not json`)

	content, err := tbl.Decode(scan, zerolog.Nop())
	if err != nil {
		t.Fatalf("Decode failed: %v", err)
	}
	q := content.(*model.LongTextQuestion)
	if q.QuestionImage != nil || q.QuestionAudio != nil || q.QuestionVideo != nil {
		t.Errorf("media should be empty: %+v", q.QuestionBase)
	}
	if q.Rows != 4 {
		t.Errorf("rows = %d", q.Rows)
	}
}

func TestTablesFor(t *testing.T) {
	q, err := TablesFor(model.CardTypeQuestion)
	if err != nil {
		t.Fatalf("TablesFor question failed: %v", err)
	}
	if len(q) != len(model.QuestionTypes) {
		t.Errorf("question tables = %d", len(q))
	}
	m, err := TablesFor(model.CardTypeMaterial)
	if err != nil {
		t.Fatalf("TablesFor material failed: %v", err)
	}
	if len(m) != len(model.MaterialTypes) {
		t.Errorf("material tables = %d", len(m))
	}
	if _, err := TablesFor("quiz"); err == nil {
		t.Error("expected error for unknown card type")
	}
	if len(Tables()) != len(q)+len(m) {
		t.Errorf("Tables() = %d", len(Tables()))
	}
}
