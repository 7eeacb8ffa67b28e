package model

import (
	"github.com/google/uuid"
)

// QuestionType enumerates the gradeable question kinds.
type QuestionType string

const (
	QuestionTypeMCQ       QuestionType = "MCQ"
	QuestionTypeTrueFalse QuestionType = "TRUE_FALSE"
	QuestionTypeWritten   QuestionType = "WRITTEN"
)

// Option is a selectable answer for MCQ/True-False questions.
type Option struct {
	ID    string `json:"id"`
	Text  string `json:"text"`
	Image string `json:"image,omitempty"`
}

// Question is a single gradeable question.
//
// CorrectAnswer carries a legacy duality for choice questions: it may hold
// either the original option index ("2") or the option text itself. Grading
// accepts a submission matching on either representation.
type Question struct {
	ID           uuid.UUID    `json:"id"`
	QuestionType QuestionType `json:"question_type"`
	QuestionText string       `json:"question_text"`
	ImageURL     string       `json:"image_url,omitempty"`
	Options      []Option     `json:"options,omitempty"`
	CorrectAnswer string      `json:"correct_answer,omitempty"`
	// CorrectAnswers holds the accepted strings for written questions. Each
	// entry may itself be a comma-separated set of interchangeable variants.
	CorrectAnswers []string `json:"correct_answers,omitempty"`
}

// SecureOption is an option as delivered to students: never the answer key.
type SecureOption struct {
	ID    string `json:"id"`
	Text  string `json:"text"`
	Image string `json:"image,omitempty"`
}

// SecureQuestion is the client-facing question payload after the shuffle
// permutation has been applied and all correct-answer fields stripped.
type SecureQuestion struct {
	ID            uuid.UUID      `json:"id"`
	Text          string         `json:"text"`
	Image         string         `json:"image,omitempty"`
	Points        float64        `json:"points"`
	DisplayIndex  int            `json:"display_index"`
	OriginalIndex int            `json:"original_index"`
	Options       []SecureOption `json:"options"`
}
