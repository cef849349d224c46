// Package codec maps content items to and from their per-variant table rows.
package codec

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/stemsi/formbank-backend/internal/model"
)

var (
	ErrMissingContentType = errors.New("content type is required")
	ErrUnknownContentType = errors.New("unknown content type")
	ErrCardTypeMismatch   = errors.New("content type does not belong to card type")
	ErrUnknownCardType    = errors.New("unknown card type")
	ErrInvalidBlob        = errors.New("invalid JSON blob")
)

// Defaults applied when an optional field is absent.
const (
	DefaultDifficulty        = "medium"
	DefaultMarks             = 1
	DefaultRows              = 4
	DefaultMaxSeconds        = 60
	DefaultNumberOfQuestions = 1
	DefaultTitleStyle        = "h2"
	DefaultMediaType         = "image"
)

// Row is one encoded content record ready for insertion.
type Row struct {
	Table     string
	ContentID string
	Type      model.ContentType
	Columns   []string
	Values    []any
}

// Encode maps a content item onto a row of its variant table, linked to cardID.
// An item without an ID is given a generated one, written back to the item.
func Encode(cardID int64, cardType model.CardType, content model.Content) (Row, error) {
	if !cardType.Valid() {
		return Row{}, fmt.Errorf("%w: %q", ErrUnknownCardType, cardType)
	}
	if content == nil {
		return Row{}, ErrMissingContentType
	}

	base := content.Base()
	if base.Type == "" {
		return Row{}, fmt.Errorf("content %q: %w", base.ID, ErrMissingContentType)
	}
	family, ok := base.Type.Family()
	if !ok {
		return Row{}, fmt.Errorf("content %q: %w: %q", base.ID, ErrUnknownContentType, base.Type)
	}
	if family != cardType {
		return Row{}, fmt.Errorf("content %q: %w: %s in %s card", base.ID, ErrCardTypeMismatch, base.Type, cardType)
	}
	if base.ID == "" {
		base.ID = fmt.Sprintf("%s-%s", base.Type, uuid.NewString())
	}

	var (
		cols []string
		vals []any
		err  error
	)
	switch c := content.(type) {
	case *model.SingleChoiceQuestion:
		cols, vals, err = encodeSingleChoice(c)
	case *model.MultipleChoiceQuestion:
		cols, vals, err = encodeMultipleChoice(c)
	case *model.FillInBlankQuestion:
		cols, vals, err = encodeFillInBlank(c)
	case *model.MatchingQuestion:
		cols, vals, err = encodeMatching(c)
	case *model.LongTextQuestion:
		cols, vals, err = encodeLongText(c)
	case *model.AudioResponseQuestion:
		cols, vals, err = encodeAudioResponse(c)
	case *model.LLMAudioResponseQuestion:
		cols, vals, err = encodeLLMAudioResponse(c)
	case *model.TextMaterial:
		cols, vals, err = encodeTextMaterial(c)
	case *model.MultimediaMaterial:
		cols, vals, err = encodeMultimediaMaterial(c)
	case *model.LLMSessionMaterial:
		cols, vals, err = encodeLLMSessionMaterial(c)
	default:
		return Row{}, fmt.Errorf("content %q: %w: %q", base.ID, ErrUnknownContentType, base.Type)
	}
	if err != nil {
		return Row{}, fmt.Errorf("content %q: %w", base.ID, err)
	}

	table, _ := TableFor(base.Type)
	return Row{
		Table:     table.Name,
		ContentID: base.ID,
		Type:      base.Type,
		Columns:   append([]string{"content_id", "card_id", "order_id"}, cols...),
		Values:    append([]any{base.ID, cardID, base.OrderID}, vals...),
	}, nil
}

func encodeSingleChoice(c *model.SingleChoiceQuestion) ([]string, []any, error) {
	options, err := blob(c.Options, "[]")
	if err != nil {
		return nil, nil, err
	}
	media, err := mediaBlob(&c.QuestionBase)
	if err != nil {
		return nil, nil, err
	}
	return []string{"question", "answer_id", "correct_answer", "instruction", "difficulty", "marks", "options_data", "media_data"},
		[]any{c.Question, c.AnswerID, c.CorrectAnswer, c.Instruction, difficulty(c.Difficulty), marks(c.Marks), options, media},
		nil
}

func encodeMultipleChoice(c *model.MultipleChoiceQuestion) ([]string, []any, error) {
	options, err := blob(c.Options, "[]")
	if err != nil {
		return nil, nil, err
	}
	correct, err := blob(c.CorrectAnswers, "[]")
	if err != nil {
		return nil, nil, err
	}
	media, err := mediaBlob(&c.QuestionBase)
	if err != nil {
		return nil, nil, err
	}
	return []string{"question", "answer_id", "instruction", "difficulty", "marks", "options_data", "correct_answers", "media_data"},
		[]any{c.Question, c.AnswerID, c.Instruction, difficulty(c.Difficulty), marks(c.Marks), options, correct, media},
		nil
}

func encodeFillInBlank(c *model.FillInBlankQuestion) ([]string, []any, error) {
	blanks, err := blob(c.Blanks, "[]")
	if err != nil {
		return nil, nil, err
	}
	media, err := mediaBlob(&c.QuestionBase)
	if err != nil {
		return nil, nil, err
	}
	return []string{"question", "instruction", "difficulty", "blanks_data", "media_data"},
		[]any{c.Question, c.Instruction, difficulty(c.Difficulty), blanks, media},
		nil
}

func encodeMatching(c *model.MatchingQuestion) ([]string, []any, error) {
	pairs := c.Blanks
	if isEmptyJSON(pairs) {
		pairs = c.Options
	}
	options, err := blob(pairs, "[]")
	if err != nil {
		return nil, nil, err
	}
	media, err := mediaBlob(&c.QuestionBase)
	if err != nil {
		return nil, nil, err
	}
	return []string{"question", "instruction", "difficulty", "options_data", "media_data"},
		[]any{c.Question, c.Instruction, difficulty(c.Difficulty), options, media},
		nil
}

func encodeLongText(c *model.LongTextQuestion) ([]string, []any, error) {
	media, err := mediaBlob(&c.QuestionBase)
	if err != nil {
		return nil, nil, err
	}
	return []string{"question", "instruction", "difficulty", "placeholder", "answer_rows", "suggested_answer", "marks", "media_data"},
		[]any{c.Question, c.Instruction, difficulty(c.Difficulty), c.Placeholder, orDefault(c.Rows, DefaultRows), c.SuggestedAnswer, marks(c.Marks), media},
		nil
}

func encodeAudioResponse(c *model.AudioResponseQuestion) ([]string, []any, error) {
	media, err := mediaBlob(&c.QuestionBase)
	if err != nil {
		return nil, nil, err
	}
	return []string{"question", "instruction", "difficulty", "max_seconds", "marks", "allow_rerecording", "allow_pause", "show_timer", "media_data"},
		[]any{c.Question, c.Instruction, difficulty(c.Difficulty), orDefault(c.MaxSeconds, DefaultMaxSeconds), marks(c.Marks),
			boolInt(c.AllowRerecording), boolInt(c.AllowPause), boolInt(c.ShowTimer), media},
		nil
}

func encodeLLMAudioResponse(c *model.LLMAudioResponseQuestion) ([]string, []any, error) {
	cols, vals, err := encodeAudioResponse(&c.AudioResponseQuestion)
	if err != nil {
		return nil, nil, err
	}
	settings, err := blob(c.QuestionSpecificSettings, "{}")
	if err != nil {
		return nil, nil, err
	}
	// media_data stays last so the column list mirrors the read order.
	n := len(cols) - 1
	cols = append(cols[:n:n], "number_of_questions", "llm_session_type", "linked_llm_session_id", "question_specific_settings", cols[n])
	vals = append(vals[:n:n], orDefault(c.NumberOfQuestions, DefaultNumberOfQuestions), c.LLMSessionType, c.LinkedLLMSessionID, settings, vals[n])
	return cols, vals, nil
}

func encodeTextMaterial(c *model.TextMaterial) ([]string, []any, error) {
	return []string{"title", "content", "show_title", "title_style", "is_rich_text"},
		[]any{c.Title, c.Content, boolInt(c.ShowTitle), titleStyle(c.TitleStyle), boolInt(c.IsRichText)},
		nil
}

func encodeMultimediaMaterial(c *model.MultimediaMaterial) ([]string, []any, error) {
	media, err := blob(c.Media, "{}")
	if err != nil {
		return nil, nil, err
	}
	settings, err := blob(c.Settings, "{}")
	if err != nil {
		return nil, nil, err
	}
	mediaType := c.MediaType
	if mediaType == "" {
		mediaType = DefaultMediaType
	}
	return []string{"title", "show_title", "title_style", "media_type", "media_data", "settings_data"},
		[]any{c.Title, boolInt(c.ShowTitle), titleStyle(c.TitleStyle), mediaType, media, settings},
		nil
}

func encodeLLMSessionMaterial(c *model.LLMSessionMaterial) ([]string, []any, error) {
	settings, err := blob(c.SessionSettings, "{}")
	if err != nil {
		return nil, nil, err
	}
	return []string{"title", "show_title", "title_style", "session_settings"},
		[]any{c.Title, boolInt(c.ShowTitle), titleStyle(c.TitleStyle), settings},
		nil
}

// ────────────────────────────────────────────────────────────────────────────
// Field helpers
// ────────────────────────────────────────────────────────────────────────────

// questionMedia is the layout of the media_data column on question tables.
type questionMedia struct {
	QuestionImage json.RawMessage `json:"question_image,omitempty"`
	QuestionAudio json.RawMessage `json:"question_audio,omitempty"`
	QuestionVideo json.RawMessage `json:"question_video,omitempty"`
}

func mediaBlob(q *model.QuestionBase) (string, error) {
	b, err := json.Marshal(questionMedia{
		QuestionImage: q.QuestionImage,
		QuestionAudio: q.QuestionAudio,
		QuestionVideo: q.QuestionVideo,
	})
	if err != nil {
		return "", fmt.Errorf("%w: media_data: %v", ErrInvalidBlob, err)
	}
	return string(b), nil
}

// blob serializes a nested value for a JSON text column; empty or null becomes fallback.
func blob(raw json.RawMessage, fallback string) (string, error) {
	if isEmptyJSON(raw) {
		return fallback, nil
	}
	var buf bytes.Buffer
	if err := json.Compact(&buf, raw); err != nil {
		return "", fmt.Errorf("%w: %v", ErrInvalidBlob, err)
	}
	return buf.String(), nil
}

func isEmptyJSON(raw json.RawMessage) bool {
	trimmed := bytes.TrimSpace(raw)
	return len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null"))
}

func difficulty(d string) string {
	if d == "" {
		return DefaultDifficulty
	}
	return d
}

func marks(m int) int {
	return orDefault(m, DefaultMarks)
}

func titleStyle(s string) string {
	if s == "" {
		return DefaultTitleStyle
	}
	return s
}

func orDefault(v, fallback int) int {
	if v <= 0 {
		return fallback
	}
	return v
}

func boolInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
