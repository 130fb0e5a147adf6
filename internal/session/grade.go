package session

import "github.com/ngochuy/onthisu/internal/model"

// grade walks the questions in exam order and scores each against the
// captured answers. A missing answer is simply incorrect; grading never
// fails. Returns the score, the per-question meta detail and the full
// snapshot kept for review.
func grade(questions []model.Question, answers map[int]model.Answer) (int, model.Meta, []model.QuestionSnapshot) {
	score := 0
	meta := model.Meta{Details: make([]model.GradeDetail, 0, len(questions))}
	snapshots := make([]model.QuestionSnapshot, 0, len(questions))

	for i, q := range questions {
		a := answers[i]
		if q.IsTrueFalse() {
			correct := gradeTrueFalse(q, a)
			if correct {
				score++
			}
			captured := a.Statements
			if captured == nil {
				captured = map[string]string{}
			}
			meta.Details = append(meta.Details, model.GradeDetail{
				QuestionID:  i,
				UserAnswers: captured,
				Correct:     correct,
			})
			snapshots = append(snapshots, model.QuestionSnapshot{
				QuestionID:  i,
				Type:        q.Type,
				Question:    q.Question,
				IsCorrect:   correct,
				UserAnswers: captured,
				OptionA:     q.OptionA,
				AnswerA:     q.AnswerA,
				OptionB:     q.OptionB,
				AnswerB:     q.AnswerB,
				OptionC:     q.OptionC,
				AnswerC:     q.AnswerC,
				OptionD:     q.OptionD,
				AnswerD:     q.AnswerD,
				Explain:     q.Explain,
			})
			continue
		}

		correct := gradeChoice(q, a)
		if correct {
			score++
		}
		meta.Details = append(meta.Details, model.GradeDetail{
			QuestionID: i,
			UserAnswer: a.Choice,
			Correct:    correct,
		})
		snapshots = append(snapshots, model.QuestionSnapshot{
			QuestionID:    i,
			Type:          q.Type,
			Question:      q.Question,
			IsCorrect:     correct,
			UserAnswer:    a.Choice,
			OptionA:       q.OptionA,
			OptionB:       q.OptionB,
			OptionC:       q.OptionC,
			OptionD:       q.OptionD,
			CorrectAnswer: q.Answer,
		})
	}
	return score, meta, snapshots
}

// gradeChoice: the captured value must equal the stored answer exactly,
// including case and whitespace. No answer never matches.
func gradeChoice(q model.Question, a model.Answer) bool {
	return a.Choice != "" && a.Choice == q.Answer
}

// gradeTrueFalse: all four statements must be answered and match their
// ground truth. One wrong or missing statement fails the whole question;
// there is no partial credit.
func gradeTrueFalse(q model.Question, a model.Answer) bool {
	if a.Statements == nil {
		return false
	}
	truth := q.TruthValues()
	for _, key := range model.StatementKeys {
		got, ok := a.Statements[key]
		if !ok || got != truth[key] {
			return false
		}
	}
	return true
}
