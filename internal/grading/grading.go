// Package grading scores submitted answers for MCQ, True-False and Written
// questions. Choice questions carry a legacy answer-key duality (original
// option index or option text), so comparison runs through an ordered list
// of strategies and accepts on the first match.
package grading

import (
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/google/uuid"
	"github.com/lumenlms/progression-backend/internal/model"
)

// ErrNoQuestions is returned when a submission references a content item
// with an empty question set.
var ErrNoQuestions = errors.New("no questions to grade")

// ComparisonStrategy decides whether a submitted answer matches a choice
// question's answer key under one interpretation.
type ComparisonStrategy interface {
	Name() string
	Matches(q model.Question, submitted string) bool
}

// ByText matches on the correct option's text. Shuffle-safe: option text
// is stable no matter where the option was displayed.
type ByText struct{}

func (ByText) Name() string { return "by_text" }

func (ByText) Matches(q model.Question, submitted string) bool {
	text := correctText(q)
	if text == "" {
		return false
	}
	return strings.EqualFold(strings.TrimSpace(submitted), strings.TrimSpace(text))
}

// ByIndex matches on the original (pre-shuffle) option index. Kept for
// clients that still submit positional answers.
type ByIndex struct{}

func (ByIndex) Name() string { return "by_index" }

func (ByIndex) Matches(q model.Question, submitted string) bool {
	idx := correctIndex(q)
	if idx < 0 {
		return false
	}
	n, err := strconv.Atoi(strings.TrimSpace(submitted))
	if err != nil {
		return false
	}
	return n == idx
}

// correctIndex resolves the original index of the correct option, or -1.
func correctIndex(q model.Question) int {
	if n, err := strconv.Atoi(strings.TrimSpace(q.CorrectAnswer)); err == nil {
		if n >= 0 && n < len(q.Options) {
			return n
		}
		return -1
	}
	for i, opt := range q.Options {
		if strings.EqualFold(strings.TrimSpace(opt.Text), strings.TrimSpace(q.CorrectAnswer)) {
			return i
		}
	}
	return -1
}

// correctText resolves the correct option's text. An index-form answer key
// is dereferenced through the option list; anything else is taken verbatim.
func correctText(q model.Question) string {
	if n, err := strconv.Atoi(strings.TrimSpace(q.CorrectAnswer)); err == nil {
		if n >= 0 && n < len(q.Options) {
			return q.Options[n].Text
		}
		return ""
	}
	return q.CorrectAnswer
}

// Result is the outcome of grading one attempt submission.
type Result struct {
	// Score is round(correct / total * 100).
	Score          float64
	CorrectCount   int
	TotalQuestions int
	// TotalPoints sums per-question point weights for correct answers only.
	TotalPoints float64
	Answers     []model.AnswerRecord
}

// Engine grades attempt submissions. Strategies are tried in priority
// order; a submission is correct if any strategy accepts it.
type Engine struct {
	strategies []ComparisonStrategy
}

// NewEngine returns an engine with the default strategy order: text first,
// original index as the legacy fallback.
func NewEngine() *Engine {
	return &Engine{strategies: []ComparisonStrategy{ByText{}, ByIndex{}}}
}

// GradeChoice reports whether a submitted answer is correct for an
// MCQ/True-False question under any installed strategy.
func (e *Engine) GradeChoice(q model.Question, submitted string) bool {
	if strings.TrimSpace(submitted) == "" {
		return false
	}
	for _, s := range e.strategies {
		if s.Matches(q, submitted) {
			return true
		}
	}
	return false
}

// GradeWritten reports whether a written submission matches any accepted
// variant. Matching is case-insensitive, whitespace-trimmed, and accepts
// exact equality or containment in either direction. Deliberately lenient.
func (e *Engine) GradeWritten(q model.Question, submitted string) bool {
	sub := strings.ToLower(strings.TrimSpace(submitted))
	if sub == "" {
		return false
	}
	for _, accepted := range q.CorrectAnswers {
		for _, variant := range strings.Split(accepted, ",") {
			v := strings.ToLower(strings.TrimSpace(variant))
			if v == "" {
				continue
			}
			if sub == v || strings.Contains(sub, v) || strings.Contains(v, sub) {
				return true
			}
		}
	}
	return false
}

// Grade scores a full submission against the question set. points carries
// the per-question weights from the content item's question selection; a
// question absent from the map weighs zero. Unanswered questions are
// graded incorrect.
func (e *Engine) Grade(questions []model.Question, points map[uuid.UUID]float64, answers []model.SubmittedAnswer) (*Result, error) {
	if len(questions) == 0 {
		return nil, ErrNoQuestions
	}

	byQuestion := make(map[uuid.UUID]string, len(answers))
	for _, a := range answers {
		byQuestion[a.QuestionID] = a.Answer
	}

	res := &Result{
		TotalQuestions: len(questions),
		Answers:        make([]model.AnswerRecord, 0, len(questions)),
	}

	for _, q := range questions {
		submitted := byQuestion[q.ID]

		var correct bool
		var key string
		switch q.QuestionType {
		case model.QuestionTypeMCQ, model.QuestionTypeTrueFalse:
			correct = e.GradeChoice(q, submitted)
			key = correctText(q)
		case model.QuestionTypeWritten:
			correct = e.GradeWritten(q, submitted)
			key = strings.Join(q.CorrectAnswers, "; ")
		default:
			return nil, fmt.Errorf("unsupported question type %q", q.QuestionType)
		}

		rec := model.AnswerRecord{
			QuestionID:     q.ID,
			SelectedAnswer: submitted,
			CorrectAnswer:  key,
			IsCorrect:      correct,
			QuestionType:   q.QuestionType,
		}
		if correct {
			res.CorrectCount++
			rec.Points = points[q.ID]
			res.TotalPoints += rec.Points
		}
		res.Answers = append(res.Answers, rec)
	}

	res.Score = math.Round(float64(res.CorrectCount) / float64(res.TotalQuestions) * 100)
	return res, nil
}
