package grading

import (
	"testing"

	"github.com/google/uuid"
	"github.com/lumenlms/progression-backend/internal/model"
)

func mcq(correct string, options ...string) model.Question {
	q := model.Question{
		ID:            uuid.New(),
		QuestionType:  model.QuestionTypeMCQ,
		CorrectAnswer: correct,
	}
	for i, text := range options {
		q.Options = append(q.Options, model.Option{ID: string(rune('a' + i)), Text: text})
	}
	return q
}

func written(accepted ...string) model.Question {
	return model.Question{
		ID:             uuid.New(),
		QuestionType:   model.QuestionTypeWritten,
		CorrectAnswers: accepted,
	}
}

func TestGradeChoice(t *testing.T) {
	e := NewEngine()

	tests := []struct {
		name      string
		q         model.Question
		submitted string
		want      bool
	}{
		{"text match", mcq("Paris", "London", "Paris", "Rome"), "Paris", true},
		{"text match case-insensitive", mcq("Paris", "London", "Paris", "Rome"), "  paris ", true},
		{"index key, text submission", mcq("1", "London", "Paris", "Rome"), "Paris", true},
		{"index key, index submission", mcq("1", "London", "Paris", "Rome"), "1", true},
		{"text key, legacy index submission", mcq("Paris", "London", "Paris", "Rome"), "1", true},
		{"wrong text", mcq("Paris", "London", "Paris", "Rome"), "Rome", false},
		{"wrong index", mcq("1", "London", "Paris", "Rome"), "2", false},
		{"empty submission", mcq("Paris", "London", "Paris", "Rome"), "", false},
		{"index key out of range", mcq("7", "London", "Paris"), "7", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := e.GradeChoice(tt.q, tt.submitted); got != tt.want {
				t.Errorf("GradeChoice(%q) = %v, want %v", tt.submitted, got, tt.want)
			}
		})
	}
}

func TestGradeTrueFalseWithoutOptions(t *testing.T) {
	e := NewEngine()
	q := model.Question{
		ID:            uuid.New(),
		QuestionType:  model.QuestionTypeTrueFalse,
		CorrectAnswer: "True",
	}
	if !e.GradeChoice(q, "true") {
		t.Error("bare true/false key should match by text")
	}
	if e.GradeChoice(q, "false") {
		t.Error("wrong true/false answer accepted")
	}
}

func TestGradeWritten(t *testing.T) {
	e := NewEngine()

	tests := []struct {
		name      string
		q         model.Question
		submitted string
		want      bool
	}{
		{"comma variant", written("x+2, x+1"), "x+1", true},
		{"comma variant case-insensitive", written("X+2, X+1"), "x+1", true},
		{"exact", written("photosynthesis"), " Photosynthesis ", true},
		{"submission contains accepted", written("mitochondria"), "the mitochondria is the powerhouse", true},
		{"accepted contains submission", written("the krebs cycle"), "krebs", true},
		{"no match", written("x+2, x+1"), "x+3", false},
		{"empty submission", written("x+2"), "   ", false},
		{"second accepted entry", written("alpha", "beta, gamma"), "gamma", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := e.GradeWritten(tt.q, tt.submitted); got != tt.want {
				t.Errorf("GradeWritten(%q) = %v, want %v", tt.submitted, got, tt.want)
			}
		})
	}
}

func TestGradeScoring(t *testing.T) {
	e := NewEngine()

	q1 := mcq("Paris", "London", "Paris")
	q2 := mcq("0", "Red", "Blue")
	q3 := written("x+1")
	questions := []model.Question{q1, q2, q3}
	points := map[uuid.UUID]float64{q1.ID: 2, q2.ID: 3, q3.ID: 5}

	// Two of three correct: round(2/3*100) = 67.
	res, err := e.Grade(questions, points, []model.SubmittedAnswer{
		{QuestionID: q1.ID, Answer: "Paris"},
		{QuestionID: q2.ID, Answer: "Blue"},
		{QuestionID: q3.ID, Answer: "x+1"},
	})
	if err != nil {
		t.Fatalf("Grade: %v", err)
	}
	if res.Score != 67 {
		t.Errorf("Score = %v, want 67", res.Score)
	}
	if res.CorrectCount != 2 {
		t.Errorf("CorrectCount = %d, want 2", res.CorrectCount)
	}
	if res.TotalQuestions != 3 {
		t.Errorf("TotalQuestions = %d, want 3", res.TotalQuestions)
	}
	// Points only for correct answers: 2 + 5.
	if res.TotalPoints != 7 {
		t.Errorf("TotalPoints = %v, want 7", res.TotalPoints)
	}
	if len(res.Answers) != 3 {
		t.Fatalf("Answers length = %d", len(res.Answers))
	}
	if res.Answers[1].IsCorrect {
		t.Error("wrong answer marked correct")
	}
	if res.Answers[1].Points != 0 {
		t.Error("incorrect answer awarded points")
	}
}

func TestGradeUnansweredQuestion(t *testing.T) {
	e := NewEngine()
	q := mcq("Paris", "London", "Paris")
	res, err := e.Grade([]model.Question{q}, nil, nil)
	if err != nil {
		t.Fatalf("Grade: %v", err)
	}
	if res.Score != 0 || res.CorrectCount != 0 {
		t.Errorf("unanswered question graded as correct: %+v", res)
	}
}

func TestGradeNoQuestions(t *testing.T) {
	e := NewEngine()
	if _, err := e.Grade(nil, nil, nil); err != ErrNoQuestions {
		t.Fatalf("expected ErrNoQuestions, got %v", err)
	}
}

func TestGradeUnsupportedType(t *testing.T) {
	e := NewEngine()
	q := model.Question{ID: uuid.New(), QuestionType: "ESSAY"}
	if _, err := e.Grade([]model.Question{q}, nil, nil); err == nil {
		t.Fatal("expected error for unsupported question type")
	}
}
