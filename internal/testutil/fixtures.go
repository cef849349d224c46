package testutil

import (
	"encoding/json"
	"testing"

	"github.com/stemsi/formbank-backend/internal/model"
)

// SampleBankJSON is an editor export covering every content variant.
// Contents of the first question card are listed out of order_id order.
const SampleBankJSON = `{
  "title": "Listening Practice",
  "description": "Unit 3",
  "exportDate": "2026-03-01T10:00:00Z",
  "status": "published",
  "pages": [
    {
      "page_index": 1,
      "exam_categories": {"exam_language": "fr", "exam_type": "practice", "component": "listening", "category": "A1"},
      "cards": [
        {
          "card_type": "material",
          "position": 0,
          "contents": [
            {"id": "txt-1", "type": "text-material", "order_id": 0, "title": "Read this", "showTitle": true, "titleStyle": "h3", "content": "<p>Bonjour</p>", "isRichText": true},
            {"id": "mm-1", "type": "multimedia-material", "order_id": 1, "title": "Listen", "mediaType": "audio", "media": {"url": "https://cdn.example.com/a.mp3"}, "settings": {"autoplay": false}}
          ]
        },
        {
          "card_type": "question",
          "position": 1,
          "contents": [
            {"id": "sc-1", "type": "single-choice", "order_id": 2, "question": "Pick one", "options": ["A", "B"], "correctAnswer": "A", "marks": 2, "answer_id": 7},
            {"id": "mc-1", "type": "multiple-choice", "order_id": 0, "question": "Pick many", "options": ["x", "y", "z"], "correctAnswers": ["x", "z"], "difficulty": "hard"},
            {"id": "fb-1", "type": "fill-in-the-blank", "order_id": 1, "question": "Fill ___", "blanks": [{"answer": "in"}]}
          ]
        }
      ]
    },
    {
      "page_index": 2,
      "exam_language": "de",
      "exam_categories": {"exam_type": "practice", "component": "speaking", "category": "A2"},
      "cards": [
        {
          "card_type": "question",
          "position": 0,
          "contents": [
            {"id": "mt-1", "type": "matching", "order_id": 0, "question": "Match", "blanks": [{"label": "x", "correctAnswers": ["y"]}]},
            {"id": "lt-1", "type": "long-text", "order_id": 1, "question": "Describe", "placeholder": "Write here"},
            {"id": "au-1", "type": "audio", "order_id": 2, "question": "Speak", "maxSeconds": 30, "allowPause": true, "question_audio": {"url": "https://cdn.example.com/p.mp3"}},
            {"id": "llm-1", "type": "llm-audio-response", "order_id": 3, "question": "Talk", "numberOfQuestions": 3, "llmSessionType": "interview", "linkedLlmSessionId": "sess-1", "questionSpecificSettings": {"tone": "formal"}, "question_image": {"url": "https://cdn.example.com/q.png"}}
          ]
        },
        {
          "card_type": "material",
          "position": 1,
          "contents": [
            {"id": "sess-1", "type": "llm-session-material", "order_id": 0, "title": "Interview", "sessionSettings": {"persona": "examiner"}}
          ]
        }
      ]
    }
  ]
}`

// SampleBank decodes a fresh copy of SampleBankJSON.
func SampleBank(tb testing.TB) *model.QuestionBank {
	tb.Helper()

	var bank model.QuestionBank
	if err := json.Unmarshal([]byte(SampleBankJSON), &bank); err != nil {
		tb.Fatalf("decode sample bank: %v", err)
	}
	return &bank
}

// SingleChoiceBank is a one-page bank holding one single-choice question.
func SingleChoiceBank(title string) *model.QuestionBank {
	return &model.QuestionBank{
		Title: title,
		Pages: []model.Page{{
			PageIndex: 1,
			Cards: []model.Card{{
				CardType: model.CardTypeQuestion,
				Contents: []model.ContentItem{{Content: &model.SingleChoiceQuestion{
					QuestionBase: model.QuestionBase{
						ContentBase: model.ContentBase{ID: "q1", Type: model.TypeSingleChoice},
						Question:    "Which letter comes first?",
					},
					Options:       json.RawMessage(`["A","B"]`),
					CorrectAnswer: "A",
				}}},
			}},
		}},
	}
}
