// Package session implements the client-side exam lifecycle: one attempt
// from start through answer capture and countdown to submission. The server
// never sees a session until its graded result is posted; grading and the
// timer both live here, on the untrusted client.
package session

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/ngochuy/onthisu/internal/model"
)

// State is the lifecycle stage of a session. Transitions only move forward.
type State string

const (
	StateNotStarted State = "not_started"
	StateInProgress State = "in_progress"
	StateSubmitted  State = "submitted"
)

// ExamDuration is the fixed time limit of one attempt.
const ExamDuration = 15 * time.Minute

// warningAt is the remaining-seconds mark at which the one-time warning fires.
const warningAt = 60

// QuestionFetcher supplies a freshly mixed question set. The session never
// mixes locally; it always goes through the HTTP boundary.
type QuestionFetcher interface {
	Questions(ctx context.Context) ([]model.Question, error)
}

// Submitter transmits a graded result to the scoring endpoint.
type Submitter interface {
	Submit(ctx context.Context, r model.Result) (model.Result, error)
}

// TickEvent is the outcome of one timer tick.
type TickEvent int

const (
	// TickNone is an ordinary tick.
	TickNone TickEvent = iota
	// TickWarning fires exactly once, at sixty seconds remaining.
	TickWarning
	// TickExpired fires exactly once, when the countdown reaches zero.
	// The caller must take the auto-submit path.
	TickExpired
	// TickStopped means the session already left InProgress; the timer
	// loop should disarm.
	TickStopped
)

var (
	ErrEmptyUserID    = errors.New("user identifier is required")
	ErrNotStarted     = errors.New("session has not been started")
	ErrAlreadyStarted = errors.New("session was already started")
)

// Session is one exam attempt. All methods are safe for the cooperative
// interleaving of a timer goroutine with answer-capture calls.
type Session struct {
	mu sync.Mutex

	id         string
	userID     string
	startedAt  time.Time
	finishedAt time.Time
	remaining  int
	questions  []model.Question
	answers    map[int]model.Answer

	state    State
	starting bool
	warned   bool
	expired  bool

	// Frozen at the first submit so a transport retry resends the same
	// graded result.
	graded *model.Result
}

// New creates a session for the given user. The user identifier is free
// text but must not be empty.
func New(userID string) (*Session, error) {
	if userID == "" {
		return nil, ErrEmptyUserID
	}
	return &Session{
		id:      "sess_" + uuid.NewString(),
		userID:  userID,
		answers: make(map[int]model.Answer),
		state:   StateNotStarted,
	}, nil
}

func (s *Session) ID() string     { return s.id }
func (s *Session) UserID() string { return s.userID }

func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Remaining returns the seconds left on the countdown.
func (s *Session) Remaining() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.remaining
}

// Questions returns the exam's questions in presentation order.
func (s *Session) Questions() []model.Question {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.questions
}

// Start fetches a freshly mixed question set, records the start time and
// arms the countdown. Only valid from NotStarted.
func (s *Session) Start(ctx context.Context, fetcher QuestionFetcher) error {
	s.mu.Lock()
	if s.state != StateNotStarted || s.starting {
		s.mu.Unlock()
		return ErrAlreadyStarted
	}
	// Reserve the transition before releasing the lock for the fetch, so a
	// concurrent Start cannot pass the guard and overwrite the questions.
	s.starting = true
	s.mu.Unlock()

	questions, err := fetcher.Questions(ctx)

	s.mu.Lock()
	defer s.mu.Unlock()
	s.starting = false
	if err != nil {
		return fmt.Errorf("fetch questions: %w", err)
	}
	s.questions = questions
	s.startedAt = time.Now()
	s.remaining = int(ExamDuration.Seconds())
	s.state = StateInProgress
	return nil
}

// SelectOption records the chosen option value for a multiple choice
// question. A later selection overwrites an earlier one.
func (s *Session) SelectOption(index int, value string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state != StateInProgress || index < 0 || index >= len(s.questions) {
		return
	}
	s.answers[index] = model.Answer{Choice: value}
}

// SetStatement records a truth value for one statement of a true/false
// question, leaving the sibling statements untouched.
func (s *Session) SetStatement(index int, statement, truth string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state != StateInProgress || index < 0 || index >= len(s.questions) {
		return
	}
	a := s.answers[index]
	if a.Statements == nil {
		a.Statements = make(map[string]string)
	}
	a.Statements[statement] = truth
	s.answers[index] = a
}

// CapturedAnswer returns the answer recorded for a question, if any.
func (s *Session) CapturedAnswer(index int) (model.Answer, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	a, ok := s.answers[index]
	return a, ok
}

// Tick advances the countdown by one second. It reports the warning mark
// once, and expiry once; every tick after the session leaves InProgress is
// inert.
func (s *Session) Tick() TickEvent {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state != StateInProgress {
		return TickStopped
	}
	if s.remaining > 0 {
		s.remaining--
	}
	if s.remaining == 0 {
		if s.expired {
			return TickNone
		}
		s.expired = true
		return TickExpired
	}
	if s.remaining == warningAt && !s.warned {
		s.warned = true
		return TickWarning
	}
	return TickNone
}

// RunTimer drives Tick from a one-second ticker until the session is
// submitted or ctx is cancelled. onWarning fires at the one-minute mark;
// onExpire fires once at zero and is expected to run the auto-submit path.
// Either callback may be nil.
func (s *Session) RunTimer(ctx context.Context, onTick func(remaining int), onWarning, onExpire func()) {
	ticker := time.NewTicker(time.Second)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			switch s.Tick() {
			case TickStopped:
				return
			case TickWarning:
				if onWarning != nil {
					onWarning()
				}
			case TickExpired:
				if onExpire != nil {
					onExpire()
				}
				return
			}
			if onTick != nil {
				onTick(s.Remaining())
			}
		}
	}
}

// Submit freezes the session, grades it and transmits the result. The first
// call wins the transition to Submitted and disarms the timer; a transport
// failure keeps the graded result so the same payload can be resent by
// calling Submit again. Used by both the manual and the auto-submit paths.
func (s *Session) Submit(ctx context.Context, submitter Submitter) (model.Result, error) {
	s.mu.Lock()
	switch s.state {
	case StateNotStarted:
		s.mu.Unlock()
		return model.Result{}, ErrNotStarted
	case StateInProgress:
		s.finishedAt = time.Now()
		s.state = StateSubmitted
		score, meta, snapshots := grade(s.questions, s.answers)
		s.graded = &model.Result{
			SessionID:  s.id,
			UserID:     s.userID,
			Score:      score,
			Total:      len(s.questions),
			StartedAt:  s.startedAt,
			FinishedAt: s.finishedAt,
			Meta:       meta,
			Questions:  snapshots,
		}
	}
	payload := *s.graded
	s.mu.Unlock()

	saved, err := submitter.Submit(ctx, payload)
	if err != nil {
		return model.Result{}, fmt.Errorf("submit result: %w", err)
	}
	return saved, nil
}

// Review recomputes the per-question review from in-memory state only:
// each question with the captured answer, the correct answer and, for
// true/false questions, the explanation.
func (s *Session) Review() []model.QuestionSnapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, _, snapshots := grade(s.questions, s.answers)
	return snapshots
}

// Score grades the session as it stands. Pure with respect to the captured
// answers: the same answers always yield the same score.
func (s *Session) Score() (score, total int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	score, _, _ = grade(s.questions, s.answers)
	return score, len(s.questions)
}
