package codec

import (
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/rs/zerolog"
	"github.com/stemsi/formbank-backend/internal/model"
)

// ScanFunc matches (*sql.Rows).Scan.
type ScanFunc func(dest ...any) error

// Table describes how one variant is stored and read back.
// Columns is the select list after content_id and order_id, in scan order.
type Table struct {
	Name    string
	Type    model.ContentType
	Columns []string
	decode  func(scan ScanFunc, p *blobParser) (model.Content, error)
}

// SelectColumns is the full select list for Decode.
func (t Table) SelectColumns() []string {
	return append([]string{"content_id", "order_id"}, t.Columns...)
}

// Decode scans one row selected with SelectColumns and rebuilds the variant.
// Malformed JSON blobs never fail the read: they are replaced by an empty
// object or array and a warning is logged.
func (t Table) Decode(scan ScanFunc, log zerolog.Logger) (model.Content, error) {
	p := &blobParser{log: log, table: t.Name}
	content, err := t.decode(scan, p)
	if err != nil {
		return nil, fmt.Errorf("decode %s: %w", t.Name, err)
	}
	content.Base().Type = t.Type
	return content, nil
}

var tables = []Table{
	{
		Name: "single_choice_questions", Type: model.TypeSingleChoice,
		Columns: []string{"question", "answer_id", "correct_answer", "instruction", "difficulty", "marks", "options_data", "media_data"},
		decode: func(scan ScanFunc, p *blobParser) (model.Content, error) {
			var (
				q              model.SingleChoiceQuestion
				answerID       sql.NullInt64
				options, media sql.NullString
			)
			if err := scan(&q.ID, &q.OrderID, &q.Question, &answerID, &q.CorrectAnswer, &q.Instruction, &q.Difficulty, &q.Marks, &options, &media); err != nil {
				return nil, err
			}
			q.AnswerID = nullInt64(answerID)
			p.contentID = q.ID
			q.Options = p.array("options_data", options)
			p.media(&q.QuestionBase, media)
			return &q, nil
		},
	},
	{
		Name: "multiple_choice_questions", Type: model.TypeMultipleChoice,
		Columns: []string{"question", "answer_id", "instruction", "difficulty", "marks", "options_data", "correct_answers", "media_data"},
		decode: func(scan ScanFunc, p *blobParser) (model.Content, error) {
			var (
				q                       model.MultipleChoiceQuestion
				answerID                sql.NullInt64
				options, correct, media sql.NullString
			)
			if err := scan(&q.ID, &q.OrderID, &q.Question, &answerID, &q.Instruction, &q.Difficulty, &q.Marks, &options, &correct, &media); err != nil {
				return nil, err
			}
			q.AnswerID = nullInt64(answerID)
			p.contentID = q.ID
			q.Options = p.array("options_data", options)
			q.CorrectAnswers = p.array("correct_answers", correct)
			p.media(&q.QuestionBase, media)
			return &q, nil
		},
	},
	{
		Name: "fill_in_blank_questions", Type: model.TypeFillInBlank,
		Columns: []string{"question", "instruction", "difficulty", "blanks_data", "media_data"},
		decode: func(scan ScanFunc, p *blobParser) (model.Content, error) {
			var (
				q             model.FillInBlankQuestion
				blanks, media sql.NullString
			)
			if err := scan(&q.ID, &q.OrderID, &q.Question, &q.Instruction, &q.Difficulty, &blanks, &media); err != nil {
				return nil, err
			}
			p.contentID = q.ID
			q.Blanks = p.array("blanks_data", blanks)
			p.media(&q.QuestionBase, media)
			return &q, nil
		},
	},
	{
		Name: "matching_questions", Type: model.TypeMatching,
		Columns: []string{"question", "instruction", "difficulty", "options_data", "media_data"},
		decode: func(scan ScanFunc, p *blobParser) (model.Content, error) {
			var (
				q              model.MatchingQuestion
				options, media sql.NullString
			)
			if err := scan(&q.ID, &q.OrderID, &q.Question, &q.Instruction, &q.Difficulty, &options, &media); err != nil {
				return nil, err
			}
			p.contentID = q.ID
			pairs := p.array("options_data", options)
			q.Blanks = pairs
			q.Options = pairs
			p.media(&q.QuestionBase, media)
			return &q, nil
		},
	},
	{
		Name: "long_text_questions", Type: model.TypeLongText,
		Columns: []string{"question", "instruction", "difficulty", "placeholder", "answer_rows", "suggested_answer", "marks", "media_data"},
		decode: func(scan ScanFunc, p *blobParser) (model.Content, error) {
			var (
				q     model.LongTextQuestion
				media sql.NullString
			)
			if err := scan(&q.ID, &q.OrderID, &q.Question, &q.Instruction, &q.Difficulty, &q.Placeholder, &q.Rows, &q.SuggestedAnswer, &q.Marks, &media); err != nil {
				return nil, err
			}
			p.contentID = q.ID
			p.media(&q.QuestionBase, media)
			return &q, nil
		},
	},
	{
		Name: "audio_response_questions", Type: model.TypeAudioResponse,
		Columns: []string{"question", "instruction", "difficulty", "max_seconds", "marks", "allow_rerecording", "allow_pause", "show_timer", "media_data"},
		decode: func(scan ScanFunc, p *blobParser) (model.Content, error) {
			var (
				q                      model.AudioResponseQuestion
				rerecord, pause, timer int
				media                  sql.NullString
			)
			if err := scan(&q.ID, &q.OrderID, &q.Question, &q.Instruction, &q.Difficulty, &q.MaxSeconds, &q.Marks, &rerecord, &pause, &timer, &media); err != nil {
				return nil, err
			}
			q.AllowRerecording, q.AllowPause, q.ShowTimer = rerecord != 0, pause != 0, timer != 0
			p.contentID = q.ID
			p.media(&q.QuestionBase, media)
			return &q, nil
		},
	},
	{
		Name: "llm_audio_response_questions", Type: model.TypeLLMAudioResponse,
		Columns: []string{"question", "instruction", "difficulty", "max_seconds", "marks", "allow_rerecording", "allow_pause", "show_timer",
			"number_of_questions", "llm_session_type", "linked_llm_session_id", "question_specific_settings", "media_data"},
		decode: func(scan ScanFunc, p *blobParser) (model.Content, error) {
			var (
				q                      model.LLMAudioResponseQuestion
				rerecord, pause, timer int
				settings, media        sql.NullString
			)
			if err := scan(&q.ID, &q.OrderID, &q.Question, &q.Instruction, &q.Difficulty, &q.MaxSeconds, &q.Marks, &rerecord, &pause, &timer,
				&q.NumberOfQuestions, &q.LLMSessionType, &q.LinkedLLMSessionID, &settings, &media); err != nil {
				return nil, err
			}
			q.AllowRerecording, q.AllowPause, q.ShowTimer = rerecord != 0, pause != 0, timer != 0
			p.contentID = q.ID
			q.QuestionSpecificSettings = p.object("question_specific_settings", settings)
			p.media(&q.QuestionBase, media)
			return &q, nil
		},
	},
	{
		Name: "text_materials", Type: model.TypeTextMaterial,
		Columns: []string{"title", "content", "show_title", "title_style", "is_rich_text"},
		decode: func(scan ScanFunc, p *blobParser) (model.Content, error) {
			var (
				m               model.TextMaterial
				showTitle, rich int
			)
			if err := scan(&m.ID, &m.OrderID, &m.Title, &m.Content, &showTitle, &m.TitleStyle, &rich); err != nil {
				return nil, err
			}
			m.ShowTitle, m.IsRichText = showTitle != 0, rich != 0
			return &m, nil
		},
	},
	{
		Name: "multimedia_materials", Type: model.TypeMultimediaMaterial,
		Columns: []string{"title", "show_title", "title_style", "media_type", "media_data", "settings_data"},
		decode: func(scan ScanFunc, p *blobParser) (model.Content, error) {
			var (
				m               model.MultimediaMaterial
				showTitle       int
				media, settings sql.NullString
			)
			if err := scan(&m.ID, &m.OrderID, &m.Title, &showTitle, &m.TitleStyle, &m.MediaType, &media, &settings); err != nil {
				return nil, err
			}
			m.ShowTitle = showTitle != 0
			p.contentID = m.ID
			m.Media = p.object("media_data", media)
			m.Settings = p.object("settings_data", settings)
			return &m, nil
		},
	},
	{
		Name: "llm_session_materials", Type: model.TypeLLMSessionMaterial,
		Columns: []string{"title", "show_title", "title_style", "session_settings"},
		decode: func(scan ScanFunc, p *blobParser) (model.Content, error) {
			var (
				m         model.LLMSessionMaterial
				showTitle int
				settings  sql.NullString
			)
			if err := scan(&m.ID, &m.OrderID, &m.Title, &showTitle, &m.TitleStyle, &settings); err != nil {
				return nil, err
			}
			m.ShowTitle = showTitle != 0
			p.contentID = m.ID
			m.SessionSettings = p.object("session_settings", settings)
			return &m, nil
		},
	},
}

// Tables returns every variant table, question tables first.
func Tables() []Table {
	out := make([]Table, len(tables))
	copy(out, tables)
	return out
}

// TableFor returns the table holding variant t.
func TableFor(t model.ContentType) (Table, bool) {
	for _, tbl := range tables {
		if tbl.Type == t {
			return tbl, true
		}
	}
	return Table{}, false
}

// TablesFor returns the tables a card of the given type reads from, in read order.
func TablesFor(cardType model.CardType) ([]Table, error) {
	var types []model.ContentType
	switch cardType {
	case model.CardTypeQuestion:
		types = model.QuestionTypes
	case model.CardTypeMaterial:
		types = model.MaterialTypes
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownCardType, cardType)
	}

	out := make([]Table, 0, len(types))
	for _, t := range types {
		tbl, _ := TableFor(t)
		out = append(out, tbl)
	}
	return out, nil
}

// ────────────────────────────────────────────────────────────────────────────
// Blob parsing
// ────────────────────────────────────────────────────────────────────────────

type blobParser struct {
	log       zerolog.Logger
	table     string
	contentID string
}

func (p *blobParser) array(column string, raw sql.NullString) json.RawMessage {
	return p.parse(column, raw, "[]")
}

func (p *blobParser) object(column string, raw sql.NullString) json.RawMessage {
	return p.parse(column, raw, "{}")
}

// parse returns the stored JSON when it is valid, otherwise fallback.
func (p *blobParser) parse(column string, raw sql.NullString, fallback string) json.RawMessage {
	if !raw.Valid || raw.String == "" || raw.String == "null" {
		return json.RawMessage(fallback)
	}
	if !json.Valid([]byte(raw.String)) {
		p.warn(column, ErrInvalidBlob)
		return json.RawMessage(fallback)
	}
	return json.RawMessage(raw.String)
}

func (p *blobParser) media(q *model.QuestionBase, raw sql.NullString) {
	if !raw.Valid || raw.String == "" {
		return
	}
	var m questionMedia
	if err := json.Unmarshal([]byte(raw.String), &m); err != nil {
		p.warn("media_data", err)
		return
	}
	q.QuestionImage = m.QuestionImage
	q.QuestionAudio = m.QuestionAudio
	q.QuestionVideo = m.QuestionVideo
}

func (p *blobParser) warn(column string, err error) {
	p.log.Warn().
		Err(err).
		Str("table", p.table).
		Str("column", column).
		Str("content_id", p.contentID).
		Msg("Malformed JSON column, using empty value")
}

func nullInt64(n sql.NullInt64) *int64 {
	if !n.Valid {
		return nil
	}
	v := n.Int64
	return &v
}
