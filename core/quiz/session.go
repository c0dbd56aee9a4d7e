package quiz

import (
	"sync"
	"time"
)

// Session is one active practice or mock run. All methods are safe for
// concurrent use; the mock countdown runs in its own goroutine and must be
// stopped on exit and on completion.
type Session struct {
	mu sync.Mutex

	id     string
	userID string
	mode   Mode

	questions []Question // fixed once the session starts
	current   int
	answers   map[string]int // questionID -> chosen option index
	flagged   map[string]bool

	timeRemaining int // seconds; mock mode only
	finished      bool
	result        *MockResult

	stopCh   chan struct{}
	stopOnce sync.Once
}

func newSession(id, userID string, mode Mode, questions []Question) *Session {
	return &Session{
		id:        id,
		userID:    userID,
		mode:      mode,
		questions: questions,
		answers:   make(map[string]int, len(questions)),
		flagged:   make(map[string]bool),
	}
}

func (s *Session) ID() string     { return s.id }
func (s *Session) UserID() string { return s.userID }
func (s *Session) Mode() Mode     { return s.mode }

func (s *Session) Len() int { return len(s.questions) }

func (s *Session) Finished() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.finished
}

func (s *Session) TimeRemaining() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.timeRemaining
}

// Current returns the current question and its index.
func (s *Session) Current() (Question, int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.questions[s.current], s.current
}

// Answer returns the recorded answer for the given question, if any.
func (s *Session) Answer(questionID string) (int, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	idx, ok := s.answers[questionID]
	return idx, ok
}

// Next advances to the next question; no-op at the last one.
func (s *Session) Next() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.current < len(s.questions)-1 {
		s.current++
	}
	return s.current
}

// Prev moves to the previous question; no-op at the first one.
func (s *Session) Prev() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.current > 0 {
		s.current--
	}
	return s.current
}

// GoTo jumps to the given question index; out-of-bounds indexes are ignored.
func (s *Session) GoTo(idx int) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	if idx >= 0 && idx < len(s.questions) {
		s.current = idx
	}
	return s.current
}

// ToggleFlag flips the review flag on the current question.
func (s *Session) ToggleFlag() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	q := s.questions[s.current]
	s.flagged[q.ID] = !s.flagged[q.ID]
	return s.flagged[q.ID]
}

// startCountdown launches the mock-test timer. onExpire runs exactly once
// when the remaining time hits zero; it is not called when the countdown is
// stopped first.
func (s *Session) startCountdown(seconds int, interval time.Duration, onExpire func()) {
	s.mu.Lock()
	s.timeRemaining = seconds
	s.stopCh = make(chan struct{})
	stopCh := s.stopCh
	s.mu.Unlock()

	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				if s.tick() {
					onExpire()
					return
				}
			case <-stopCh:
				return
			}
		}
	}()
}

// tick decrements the countdown; reports whether the session should expire.
func (s *Session) tick() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.finished {
		return true
	}
	if s.timeRemaining > 0 {
		s.timeRemaining--
	}
	return s.timeRemaining <= 0
}

// stopCountdown cancels the timer goroutine; safe to call more than once and
// on practice sessions.
func (s *Session) stopCountdown() {
	s.mu.Lock()
	stopCh := s.stopCh
	s.mu.Unlock()
	if stopCh == nil {
		return
	}
	s.stopOnce.Do(func() { close(stopCh) })
}

// View is the client-facing snapshot of a session; correctness is only
// revealed through practice feedback.
type View struct {
	ID            string    `json:"id"`
	Mode          Mode      `json:"mode"`
	Total         int       `json:"total"`
	Index         int       `json:"index"`
	Question      Question  `json:"question"`
	Answer        *int      `json:"answer,omitempty"` // recorded answer, if any
	Flagged       bool      `json:"flagged"`
	Answered      int       `json:"answered"`
	TimeRemaining int       `json:"time_remaining,omitempty"`
	Finished      bool      `json:"finished"`
	Feedback      *Feedback `json:"feedback,omitempty"` // practice only
}

type Feedback struct {
	Correct     bool   `json:"correct"`
	Answer      int    `json:"answer"`
	Explanation string `json:"explanation,omitempty"`
}

// Snapshot renders the current session state. In practice mode, feedback for
// the current question is included once it has been answered in this
// session; in mock mode correctness is never included.
func (s *Session) Snapshot() View {
	s.mu.Lock()
	defer s.mu.Unlock()

	q := s.questions[s.current]
	v := View{
		ID:       s.id,
		Mode:     s.mode,
		Total:    len(s.questions),
		Index:    s.current,
		Question: q,
		Flagged:  s.flagged[q.ID],
		Answered: len(s.answers),
		Finished: s.finished,
	}
	if s.mode == ModeMock {
		v.TimeRemaining = s.timeRemaining
	}
	if idx, ok := s.answers[q.ID]; ok {
		idxCopy := idx
		v.Answer = &idxCopy
		if s.mode == ModePractice {
			v.Feedback = &Feedback{
				Correct:     idx == q.Answer,
				Answer:      q.Answer,
				Explanation: q.Explanation,
			}
		}
	}
	return v
}
