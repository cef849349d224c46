package model

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// ContentType tags a content item variant.
type ContentType string

const (
	TypeSingleChoice     ContentType = "single-choice"
	TypeMultipleChoice   ContentType = "multiple-choice"
	TypeFillInBlank      ContentType = "fill-in-the-blank"
	TypeMatching         ContentType = "matching"
	TypeLongText         ContentType = "long-text"
	TypeAudioResponse    ContentType = "audio"
	TypeLLMAudioResponse ContentType = "llm-audio-response"

	TypeTextMaterial       ContentType = "text-material"
	TypeMultimediaMaterial ContentType = "multimedia-material"
	TypeLLMSessionMaterial ContentType = "llm-session-material"
)

// QuestionTypes and MaterialTypes list the closed set of variants per card family,
// in the order their tables are read.
var (
	QuestionTypes = []ContentType{
		TypeSingleChoice,
		TypeMultipleChoice,
		TypeFillInBlank,
		TypeMatching,
		TypeLongText,
		TypeAudioResponse,
		TypeLLMAudioResponse,
	}
	MaterialTypes = []ContentType{
		TypeTextMaterial,
		TypeMultimediaMaterial,
		TypeLLMSessionMaterial,
	}
)

// Family returns the card type whose cards may hold this variant.
// The second result is false for unknown types.
func (t ContentType) Family() (CardType, bool) {
	switch t {
	case TypeSingleChoice, TypeMultipleChoice, TypeFillInBlank, TypeMatching,
		TypeLongText, TypeAudioResponse, TypeLLMAudioResponse:
		return CardTypeQuestion, true
	case TypeTextMaterial, TypeMultimediaMaterial, TypeLLMSessionMaterial:
		return CardTypeMaterial, true
	default:
		return "", false
	}
}

// Content is implemented by every content variant.
type Content interface {
	Base() *ContentBase
}

// ContentBase holds the fields shared by all variants.
type ContentBase struct {
	ID      string      `json:"id"`
	Type    ContentType `json:"type"`
	OrderID int         `json:"order_id"`
}

// Base returns the shared fields of a content item.
func (b *ContentBase) Base() *ContentBase { return b }

// QuestionBase holds the fields shared by question variants.
// Media references are kept as raw JSON so any shape survives a round trip.
type QuestionBase struct {
	ContentBase
	Question      string          `json:"question"`
	Instruction   string          `json:"instruction"`
	Difficulty    string          `json:"difficulty"`
	QuestionImage json.RawMessage `json:"question_image,omitempty"`
	QuestionAudio json.RawMessage `json:"question_audio,omitempty"`
	QuestionVideo json.RawMessage `json:"question_video,omitempty"`
}

// MaterialBase holds the fields shared by material variants.
type MaterialBase struct {
	ContentBase
	Title      string `json:"title"`
	ShowTitle  bool   `json:"showTitle"`
	TitleStyle string `json:"titleStyle"`
}

type SingleChoiceQuestion struct {
	QuestionBase
	AnswerID      *int64          `json:"answer_id,omitempty"`
	CorrectAnswer string          `json:"correctAnswer"`
	Marks         int             `json:"marks"`
	Options       json.RawMessage `json:"options"`
}

type MultipleChoiceQuestion struct {
	QuestionBase
	AnswerID       *int64          `json:"answer_id,omitempty"`
	Marks          int             `json:"marks"`
	Options        json.RawMessage `json:"options"`
	CorrectAnswers json.RawMessage `json:"correctAnswers"`
}

type FillInBlankQuestion struct {
	QuestionBase
	Blanks json.RawMessage `json:"blanks"`
}

// MatchingQuestion accepts its pairs under either "blanks" or "options";
// reads always populate both with the same array.
type MatchingQuestion struct {
	QuestionBase
	Blanks  json.RawMessage `json:"blanks"`
	Options json.RawMessage `json:"options"`
}

type LongTextQuestion struct {
	QuestionBase
	Placeholder     string `json:"placeholder"`
	Rows            int    `json:"rows"`
	SuggestedAnswer string `json:"suggestedAnswer"`
	Marks           int    `json:"marks"`
}

type AudioResponseQuestion struct {
	QuestionBase
	MaxSeconds       int  `json:"maxSeconds"`
	Marks            int  `json:"marks"`
	AllowRerecording bool `json:"allowRerecording"`
	AllowPause       bool `json:"allowPause"`
	ShowTimer        bool `json:"showTimer"`
}

type LLMAudioResponseQuestion struct {
	AudioResponseQuestion
	NumberOfQuestions        int             `json:"numberOfQuestions"`
	LLMSessionType           string          `json:"llmSessionType"`
	LinkedLLMSessionID       string          `json:"linkedLlmSessionId"`
	QuestionSpecificSettings json.RawMessage `json:"questionSpecificSettings"`
}

type TextMaterial struct {
	MaterialBase
	Content    string `json:"content"`
	IsRichText bool   `json:"isRichText"`
}

type MultimediaMaterial struct {
	MaterialBase
	MediaType string          `json:"mediaType"`
	Media     json.RawMessage `json:"media"`
	Settings  json.RawMessage `json:"settings"`
}

type LLMSessionMaterial struct {
	MaterialBase
	SessionSettings json.RawMessage `json:"sessionSettings"`
}

// UnknownContent carries an item whose type tag is missing or not recognized.
// It is kept verbatim so the write path can reject it with a precise error.
type UnknownContent struct {
	ContentBase
	Raw json.RawMessage `json:"-"`
}

// MarshalJSON re-emits the original document.
func (u *UnknownContent) MarshalJSON() ([]byte, error) {
	if len(u.Raw) == 0 {
		return json.Marshal(u.ContentBase)
	}
	return u.Raw, nil
}

// NewContent returns an empty value of the variant tagged t, or nil for unknown tags.
func NewContent(t ContentType) Content {
	switch t {
	case TypeSingleChoice:
		return &SingleChoiceQuestion{}
	case TypeMultipleChoice:
		return &MultipleChoiceQuestion{}
	case TypeFillInBlank:
		return &FillInBlankQuestion{}
	case TypeMatching:
		return &MatchingQuestion{}
	case TypeLongText:
		return &LongTextQuestion{}
	case TypeAudioResponse:
		return &AudioResponseQuestion{}
	case TypeLLMAudioResponse:
		return &LLMAudioResponseQuestion{}
	case TypeTextMaterial:
		return &TextMaterial{}
	case TypeMultimediaMaterial:
		return &MultimediaMaterial{}
	case TypeLLMSessionMaterial:
		return &LLMSessionMaterial{}
	default:
		return nil
	}
}

// ContentItem wraps a Content so a heterogeneous list can be decoded
// from JSON by its "type" tag.
type ContentItem struct {
	Content
}

// MarshalJSON encodes the wrapped variant.
func (c ContentItem) MarshalJSON() ([]byte, error) {
	if c.Content == nil {
		return []byte("null"), nil
	}
	return json.Marshal(c.Content)
}

// UnmarshalJSON decodes the variant selected by the "type" field.
func (c *ContentItem) UnmarshalJSON(data []byte) error {
	if bytes.Equal(bytes.TrimSpace(data), []byte("null")) {
		c.Content = nil
		return nil
	}

	var base ContentBase
	if err := json.Unmarshal(data, &base); err != nil {
		return fmt.Errorf("content item: %w", err)
	}

	content := NewContent(base.Type)
	if content == nil {
		raw := make(json.RawMessage, len(data))
		copy(raw, data)
		c.Content = &UnknownContent{ContentBase: base, Raw: raw}
		return nil
	}

	if err := json.Unmarshal(data, content); err != nil {
		return fmt.Errorf("content item %q (%s): %w", base.ID, base.Type, err)
	}
	c.Content = content
	return nil
}
