package service

import (
	"fmt"

	"github.com/google/uuid"
	"github.com/lumenlms/progression-backend/internal/model"
	"github.com/lumenlms/progression-backend/internal/shuffle"
)

// BuildSecureQuestions assembles the client-facing question payload for an
// attempt. The shuffle plan's question order and per-question option orders
// are applied, and everything that would reveal the answer key is left out.
func BuildSecureQuestions(content *model.ContentItem, questions []model.Question, plan model.ShufflePlan) ([]model.SecureQuestion, error) {
	refs := content.SelectedQuestions
	if len(refs) == 0 {
		return nil, ErrNoQuestions
	}

	byID := make(map[uuid.UUID]model.Question, len(questions))
	for _, q := range questions {
		byID[q.ID] = q
	}

	qOrder := plan.QuestionOrder
	if len(qOrder) == 0 {
		qOrder = shuffle.Identity(len(refs))
	}
	if len(qOrder) != len(refs) {
		return nil, fmt.Errorf("shuffle plan covers %d questions, content has %d", len(qOrder), len(refs))
	}

	secure := make([]model.SecureQuestion, 0, len(refs))
	for displayIdx, originalIdx := range qOrder {
		if originalIdx < 0 || originalIdx >= len(refs) {
			return nil, fmt.Errorf("shuffle plan index %d out of range", originalIdx)
		}
		ref := refs[originalIdx]
		q, ok := byID[ref.QuestionID]
		if !ok {
			return nil, fmt.Errorf("%w: %s", ErrQuestionNotFound, ref.QuestionID)
		}

		optOrder := plan.OptionOrders[q.ID.String()]
		if len(optOrder) != len(q.Options) {
			optOrder = shuffle.Identity(len(q.Options))
		}
		options := make([]model.SecureOption, 0, len(q.Options))
		for _, oi := range optOrder {
			if oi < 0 || oi >= len(q.Options) {
				return nil, fmt.Errorf("option order index %d out of range for question %s", oi, q.ID)
			}
			opt := q.Options[oi]
			options = append(options, model.SecureOption{
				ID:    opt.ID,
				Text:  opt.Text,
				Image: opt.Image,
			})
		}

		secure = append(secure, model.SecureQuestion{
			ID:            q.ID,
			Text:          q.QuestionText,
			Image:         q.ImageURL,
			Points:        ref.Points,
			DisplayIndex:  displayIdx,
			OriginalIndex: originalIdx,
			Options:       options,
		})
	}
	return secure, nil
}
