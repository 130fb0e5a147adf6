package model

import "time"

// Category identifies one of the four question sheets. The values are the
// sheet tab names, in Vietnamese, and double as the question type on the wire.
type Category string

const (
	// CategoryRecall holds recall-level multiple choice questions.
	CategoryRecall Category = "Nhận biết"
	// CategoryComprehension holds comprehension-level multiple choice questions.
	CategoryComprehension Category = "Thông hiểu"
	// CategoryApplication holds application-level multiple choice questions.
	CategoryApplication Category = "Vận dụng"
	// CategoryTrueFalse holds four-statement true/false questions.
	CategoryTrueFalse Category = "Đúng sai"
)

// TruthTrue and TruthFalse are the only valid truth values for a
// true/false statement, both as ground truth and as a captured answer.
const (
	TruthTrue  = "Đúng"
	TruthFalse = "Sai"
)

// Categories returns all categories in their fixed order.
func Categories() []Category {
	return []Category{CategoryRecall, CategoryComprehension, CategoryApplication, CategoryTrueFalse}
}

// Quota returns how many questions a category contributes to one exam.
// Unknown categories contribute nothing.
func Quota(c Category) int {
	switch c {
	case CategoryRecall:
		return 8
	case CategoryComprehension:
		return 6
	case CategoryApplication:
		return 4
	case CategoryTrueFalse:
		return 2
	default:
		return 0
	}
}

// ColumnRange returns the spreadsheet column range holding a category's rows.
// Multiple choice sheets carry question, four options and the answer key in
// B:G; the true/false sheet carries four statement/answer pairs plus an
// explanation in B:K.
func ColumnRange(c Category) string {
	if c == CategoryTrueFalse {
		return "B:K"
	}
	return "B:G"
}

// StatementKeys lists the statement letters of a true/false question in order.
var StatementKeys = []string{"A", "B", "C", "D"}

// Question is one exam question. Type selects the variant: the three
// multiple choice categories use Question/OptionA..D/Answer, the true/false
// category uses Question plus four statement/answer pairs and Explain.
// Field names follow the wire format the browser client consumes.
type Question struct {
	Type     Category `json:"type"`
	Question string   `json:"question"`

	// Multiple choice variant.
	OptionA string `json:"optionA,omitempty"`
	OptionB string `json:"optionB,omitempty"`
	OptionC string `json:"optionC,omitempty"`
	OptionD string `json:"optionD,omitempty"`
	Answer  string `json:"answer,omitempty"`

	// True/false variant: ground-truth values for statements A-D.
	AnswerA string `json:"answerA,omitempty"`
	AnswerB string `json:"answerB,omitempty"`
	AnswerC string `json:"answerC,omitempty"`
	AnswerD string `json:"answerD,omitempty"`
	Explain string `json:"explain,omitempty"`
}

// IsTrueFalse reports whether the question uses the true/false variant.
func (q Question) IsTrueFalse() bool {
	return q.Type == CategoryTrueFalse
}

// Statements returns the statement texts of a true/false question keyed by letter.
// For the true/false variant the option columns hold statements, not choices.
func (q Question) Statements() map[string]string {
	return map[string]string{"A": q.OptionA, "B": q.OptionB, "C": q.OptionC, "D": q.OptionD}
}

// TruthValues returns the ground-truth values of a true/false question keyed by letter.
func (q Question) TruthValues() map[string]string {
	return map[string]string{"A": q.AnswerA, "B": q.AnswerB, "C": q.AnswerC, "D": q.AnswerD}
}

// Answer is a captured answer for one question. Exactly one of the two
// fields is meaningful: Choice for multiple choice questions, Statements
// (letter to truth value) for true/false questions.
type Answer struct {
	Choice     string
	Statements map[string]string
}

// GradeDetail records the grading outcome of a single question for the meta
// payload of a submission. QuestionID is the question's index in exam order.
type GradeDetail struct {
	QuestionID  int               `json:"questionId"`
	UserAnswer  string            `json:"userAnswer,omitempty"`
	UserAnswers map[string]string `json:"userAnswers,omitempty"`
	Correct     bool              `json:"correct"`
}

// Meta aggregates per-question grading detail for a submitted session.
type Meta struct {
	Details []GradeDetail `json:"details"`
}

// QuestionSnapshot is the full per-question record kept with a Result so a
// past attempt can be reviewed without refetching anything.
type QuestionSnapshot struct {
	QuestionID int      `json:"questionId"`
	Type       Category `json:"type"`
	Question   string   `json:"question"`
	IsCorrect  bool     `json:"isCorrect"`

	// Multiple choice.
	UserAnswer    string `json:"userAnswer,omitempty"`
	OptionA       string `json:"optionA,omitempty"`
	OptionB       string `json:"optionB,omitempty"`
	OptionC       string `json:"optionC,omitempty"`
	OptionD       string `json:"optionD,omitempty"`
	CorrectAnswer string `json:"correctAnswer,omitempty"`

	// True/false.
	UserAnswers map[string]string `json:"userAnswers,omitempty"`
	AnswerA     string            `json:"answerA,omitempty"`
	AnswerB     string            `json:"answerB,omitempty"`
	AnswerC     string            `json:"answerC,omitempty"`
	AnswerD     string            `json:"answerD,omitempty"`
	Explain     string            `json:"explain,omitempty"`
}

// Result is the persisted outcome of one submitted exam session.
// Results are written once and never mutated; CreatedAt is assigned by the
// server and drives newest-first history ordering.
type Result struct {
	SessionID  string             `json:"sessionId"`
	UserID     string             `json:"userId"`
	Score      int                `json:"score"`
	Total      int                `json:"total"`
	StartedAt  time.Time          `json:"startedAt"`
	FinishedAt time.Time          `json:"finishedAt"`
	Meta       Meta               `json:"meta"`
	Questions  []QuestionSnapshot `json:"questions,omitempty"`
	CreatedAt  time.Time          `json:"createdAt"`
}
