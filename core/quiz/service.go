package quiz

import (
	"context"
	"errors"
	"log"
	"math"
	"math/rand"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/roadmasterhq/roadmaster/core"
)

var (
	// errors
	ErrCategoryNotFound = errors.New("category not found")
	ErrSessionNotFound  = errors.New("session not found")
	ErrSessionFinished  = errors.New("session is finished")
	ErrNotMockSession   = errors.New("not a mock-test session")
	ErrInvalidAnswer    = errors.New("invalid answer option")
	ErrProgressNotFound = errors.New("progress not found")

	nowFunc = time.Now // mockable
)

type (
	// ProgressRepository persists per-user category mastery and the
	// append-only mock-test history.
	ProgressRepository interface {
		// GetCategoryProgress returns ErrProgressNotFound when the user has
		// not practiced the category yet.
		GetCategoryProgress(ctx context.Context, userID, categoryID string) (CategoryProgress, error)
		GetProgress(ctx context.Context, userID string) (map[string]CategoryProgress, error)
		UpsertCategoryProgress(ctx context.Context, userID, categoryID string, prog CategoryProgress) error
		AppendMockResult(ctx context.Context, userID string, res MockResult) (MockResult, error)
		QueryMockResults(ctx context.Context, userID string) ([]MockResult, error)
	}

	// QuestionRepository loads the fixed question bank.
	QuestionRepository interface {
		QueryCategories(ctx context.Context) ([]Category, error)
		QueryQuestions(ctx context.Context) ([]Question, error) // bank order
	}

	Service struct {
		bank *Bank
		repo ProgressRepository

		mu       sync.RWMutex
		sessions map[string]*Session

		rndMu        sync.Mutex
		rnd          *rand.Rand
		tickInterval time.Duration

		questionCount int
		duration      time.Duration
		passMark      int
	}
)

func NewService(bank *Bank, repo ProgressRepository) *Service {
	return &Service{
		bank:          bank,
		repo:          repo,
		sessions:      make(map[string]*Session),
		rnd:           rand.New(rand.NewSource(nowFunc().UnixNano())),
		tickInterval:  time.Second,
		questionCount: core.Conf.Quiz.MockTestQuestionCount,
		duration:      core.Conf.Quiz.MockTestDuration,
		passMark:      core.Conf.Quiz.MockTestPassMark,
	}
}

// LoadBank builds the bank from the store.
func LoadBank(ctx context.Context, repo QuestionRepository) (*Bank, error) {
	categories, err := repo.QueryCategories(ctx)
	if err != nil {
		return nil, err
	}
	questions, err := repo.QueryQuestions(ctx)
	if err != nil {
		return nil, err
	}
	return NewBank(categories, questions), nil
}

func (svc *Service) Bank() *Bank { return svc.bank }

// GetSession returns the user's active session by id.
func (svc *Service) GetSession(sessionID, userID string) (*Session, error) {
	svc.mu.RLock()
	defer svc.mu.RUnlock()
	sess, ok := svc.sessions[sessionID]
	if !ok || sess.UserID() != userID {
		return nil, ErrSessionNotFound
	}
	return sess, nil
}

// StartPractice builds a practice session for a category, ordered by mastery
// priority: unanswered questions first, then previously-incorrect, then
// previously-correct, each sub-group in bank order.
func (svc *Service) StartPractice(ctx context.Context, userID, categoryID string) (*Session, error) {
	bankQs := svc.bank.CategoryQuestions(categoryID)
	if len(bankQs) == 0 {
		return nil, ErrCategoryNotFound
	}

	prog, err := svc.repo.GetCategoryProgress(ctx, userID, categoryID)
	if err != nil && err != ErrProgressNotFound {
		return nil, err
	}

	var unanswered, incorrect, correct []Question
	for _, q := range bankQs {
		switch {
		case !prog.answered(q.ID):
			unanswered = append(unanswered, q)
		case !prog.correct(q.ID):
			incorrect = append(incorrect, q)
		default:
			correct = append(correct, q)
		}
	}
	questions := make([]Question, 0, len(bankQs))
	questions = append(questions, unanswered...)
	questions = append(questions, incorrect...)
	questions = append(questions, correct...)

	sess := newSession(uuid.New().String(), userID, ModePractice, questions)
	svc.register(sess)
	return sess, nil
}

// StartMockTest builds a timed fixed-size exam: per-category weighted samples
// first, then a uniform backfill from the unused pool when a category bank is
// smaller than its weight, the final set shuffled. The countdown force-
// finishes the test at zero with unanswered questions scoring as incorrect.
func (svc *Service) StartMockTest(ctx context.Context, userID string) (*Session, error) {
	questions := svc.buildMockSet()
	if len(questions) == 0 {
		return nil, ErrCategoryNotFound
	}

	sess := newSession(uuid.New().String(), userID, ModeMock, questions)
	svc.register(sess)

	sess.startCountdown(int(svc.duration/time.Second), svc.tickInterval, func() {
		// timer owns this call; FinishMockTest is idempotent so a racing
		// manual finish is harmless
		if _, err := svc.FinishMockTest(context.Background(), sess); err != nil {
			log.Printf("quiz: auto-finishing mock test %s: %v", sess.ID(), err)
		}
	})
	return sess, nil
}

func (svc *Service) buildMockSet() []Question {
	svc.rndMu.Lock()
	defer svc.rndMu.Unlock()

	used := make(map[string]bool, svc.questionCount)
	picked := make([]Question, 0, svc.questionCount)

	for _, cat := range svc.bank.Categories() {
		if len(picked) >= svc.questionCount {
			break
		}
		bankQs := svc.bank.CategoryQuestions(cat.ID)
		n := cat.Weight
		if n > len(bankQs) {
			n = len(bankQs)
		}
		if remaining := svc.questionCount - len(picked); n > remaining {
			n = remaining
		}
		for _, idx := range svc.rnd.Perm(len(bankQs))[:n] {
			q := bankQs[idx]
			used[q.ID] = true
			picked = append(picked, q)
		}
	}

	// backfill from the unused pool when weighted selection under-fills
	if len(picked) < svc.questionCount {
		var pool []Question
		for _, cat := range svc.bank.Categories() {
			for _, q := range svc.bank.CategoryQuestions(cat.ID) {
				if !used[q.ID] {
					pool = append(pool, q)
				}
			}
		}
		svc.rnd.Shuffle(len(pool), func(i, j int) { pool[i], pool[j] = pool[j], pool[i] })
		need := svc.questionCount - len(picked)
		if need > len(pool) {
			need = len(pool)
		}
		picked = append(picked, pool[:need]...)
	}

	svc.rnd.Shuffle(len(picked), func(i, j int) { picked[i], picked[j] = picked[j], picked[i] })
	return picked
}

// SelectAnswer records the chosen option for the session's current question.
// Practice mode: a repeat answer to the same question is a no-op, correctness
// is persisted to category progress immediately and feedback becomes visible.
// Mock mode: the answer is recorded (overwrite allowed) with no feedback.
func (svc *Service) SelectAnswer(ctx context.Context, sess *Session, index int) error {
	sess.mu.Lock()
	if sess.finished {
		sess.mu.Unlock()
		return nil
	}
	q := sess.questions[sess.current]
	if index < 0 || index >= len(q.Options) {
		sess.mu.Unlock()
		return ErrInvalidAnswer
	}

	if sess.mode == ModeMock {
		sess.answers[q.ID] = index
		sess.mu.Unlock()
		return nil
	}

	// practice
	if _, answered := sess.answers[q.ID]; answered {
		sess.mu.Unlock()
		return nil
	}
	sess.answers[q.ID] = index
	userID := sess.userID
	sess.mu.Unlock()

	if err := svc.recordPractice(ctx, userID, q, index == q.Answer); err != nil {
		// drop the in-session answer so a retry persists progress instead
		// of hitting the already-answered no-op
		sess.mu.Lock()
		delete(sess.answers, q.ID)
		sess.mu.Unlock()
		return err
	}
	return nil
}

func (svc *Service) recordPractice(ctx context.Context, userID string, q Question, correct bool) error {
	prog, err := svc.repo.GetCategoryProgress(ctx, userID, q.CategoryID)
	if err != nil && err != ErrProgressNotFound {
		return err
	}
	if !prog.answered(q.ID) {
		prog.AnsweredIDs = append(prog.AnsweredIDs, q.ID)
	}
	if correct {
		if !prog.correct(q.ID) {
			prog.CorrectIDs = append(prog.CorrectIDs, q.ID)
		}
	} else {
		prog.CorrectIDs = remove(prog.CorrectIDs, q.ID)
	}
	prog.LastAttempt = nowFunc().UTC()
	return svc.repo.UpsertCategoryProgress(ctx, userID, q.CategoryID, prog)
}

// FinishMockTest scores the session against the recorded answers (unanswered
// scores as incorrect), appends the mock-test history entry and stops the
// countdown. Idempotent: a second call returns the stored result. Category
// progress is never touched by mock results.
func (svc *Service) FinishMockTest(ctx context.Context, sess *Session) (MockResult, error) {
	sess.mu.Lock()
	if sess.mode != ModeMock {
		sess.mu.Unlock()
		return MockResult{}, ErrNotMockSession
	}
	if sess.finished {
		res := *sess.result
		sess.mu.Unlock()
		return res, nil
	}

	res := MockResult{
		Total:     len(sess.questions),
		Breakdown: make(map[string]CategoryScore),
		TakenAt:   nowFunc().UTC(),
	}
	for _, q := range sess.questions {
		score := res.Breakdown[q.CategoryID]
		score.Total++
		if idx, ok := sess.answers[q.ID]; ok && idx == q.Answer {
			score.Correct++
			res.Score++
		}
		res.Breakdown[q.CategoryID] = score
	}
	res.Passed = res.Score >= svc.passMark

	sess.finished = true
	sess.result = &res
	userID := sess.userID
	sess.mu.Unlock()

	sess.stopCountdown()

	saved, err := svc.repo.AppendMockResult(ctx, userID, res)
	if err != nil {
		return MockResult{}, err
	}
	sess.mu.Lock()
	sess.result = &saved
	sess.mu.Unlock()
	return saved, nil
}

// Exit stops the countdown and discards the session.
func (svc *Service) Exit(sess *Session) {
	sess.stopCountdown()
	svc.mu.Lock()
	delete(svc.sessions, sess.ID())
	svc.mu.Unlock()
}

// CategoryProgress derives the per-category progress view:
// percentage = round(correct/total*100); completed iff every bank question is
// currently correct.
func (svc *Service) CategoryProgress(ctx context.Context, userID, categoryID string) (ProgressSummary, error) {
	bankQs := svc.bank.CategoryQuestions(categoryID)
	if len(bankQs) == 0 {
		return ProgressSummary{}, ErrCategoryNotFound
	}
	prog, err := svc.repo.GetCategoryProgress(ctx, userID, categoryID)
	if err != nil && err != ErrProgressNotFound {
		return ProgressSummary{}, err
	}
	return summarize(categoryID, prog, len(bankQs)), nil
}

// Progress derives the progress view for every category in the bank.
func (svc *Service) Progress(ctx context.Context, userID string) ([]ProgressSummary, error) {
	all, err := svc.repo.GetProgress(ctx, userID)
	if err != nil {
		return nil, err
	}
	summaries := make([]ProgressSummary, 0, len(svc.bank.Categories()))
	for _, cat := range svc.bank.Categories() {
		summaries = append(summaries, summarize(cat.ID, all[cat.ID], len(svc.bank.CategoryQuestions(cat.ID))))
	}
	return summaries, nil
}

func summarize(categoryID string, prog CategoryProgress, total int) ProgressSummary {
	sum := ProgressSummary{
		CategoryID: categoryID,
		Answered:   len(prog.AnsweredIDs),
		Correct:    len(prog.CorrectIDs),
		Total:      total,
	}
	if total > 0 {
		sum.Percentage = int(math.Round(float64(sum.Correct) / float64(total) * 100))
	}
	switch {
	case total > 0 && sum.Correct == total:
		sum.Status = ProgressCompleted
	case sum.Answered > 0:
		sum.Status = ProgressInProgress
	default:
		sum.Status = ProgressNotStarted
	}
	return sum
}

func (svc *Service) MockResults(ctx context.Context, userID string) ([]MockResult, error) {
	return svc.repo.QueryMockResults(ctx, userID)
}

// ReadinessScore blends average mock-test accuracy with overall syllabus
// mastery: round(0.6 × avg mock % + 0.4 × mastery %).
func (svc *Service) ReadinessScore(ctx context.Context, userID string) (int, error) {
	results, err := svc.repo.QueryMockResults(ctx, userID)
	if err != nil {
		return 0, err
	}
	var mockAvg float64
	if len(results) > 0 {
		for _, res := range results {
			if res.Total > 0 {
				mockAvg += float64(res.Score) / float64(res.Total) * 100
			}
		}
		mockAvg /= float64(len(results))
	}

	all, err := svc.repo.GetProgress(ctx, userID)
	if err != nil {
		return 0, err
	}
	var correct int
	for _, prog := range all {
		correct += len(prog.CorrectIDs)
	}
	var mastery float64
	if svc.bank.Size() > 0 {
		mastery = float64(correct) / float64(svc.bank.Size()) * 100
	}

	return int(math.Round(0.6*mockAvg + 0.4*mastery)), nil
}

func (svc *Service) register(sess *Session) {
	svc.mu.Lock()
	svc.sessions[sess.ID()] = sess
	svc.mu.Unlock()
}
