package quiz

import "time"

type Mode string

const (
	ModePractice Mode = "practice"
	ModeMock     Mode = "mock"
)

type ProgressStatus string

const (
	ProgressNotStarted ProgressStatus = "not_started"
	ProgressInProgress ProgressStatus = "in_progress"
	ProgressCompleted  ProgressStatus = "completed"
)

// Category is one Highway-Code topic grouping a fixed bank of multiple-choice
// questions. Weight is the number of questions the topic contributes to a
// mock test.
type Category struct {
	ID     string `json:"id"`
	Name   string `json:"name"`
	Weight int    `json:"weight"`
}

type Question struct {
	ID          string   `json:"id"`
	CategoryID  string   `json:"category_id"`
	Text        string   `json:"text"`
	Options     []string `json:"options"`
	Answer      int      `json:"-"` // index into Options; never serialized to clients
	Explanation string   `json:"explanation,omitempty"`
}

// CategoryProgress is the persisted per-user, per-category practice mastery.
// An id joins CorrectIDs on a correct answer and leaves it when a later
// answer to the same question is wrong.
type CategoryProgress struct {
	AnsweredIDs []string  `json:"answered_ids"`
	CorrectIDs  []string  `json:"correct_ids"`
	LastAttempt time.Time `json:"last_attempt"`
}

func (cp CategoryProgress) answered(id string) bool { return contains(cp.AnsweredIDs, id) }
func (cp CategoryProgress) correct(id string) bool  { return contains(cp.CorrectIDs, id) }

// ProgressSummary is the derived per-category progress view.
type ProgressSummary struct {
	CategoryID string         `json:"category_id"`
	Answered   int            `json:"answered"`
	Correct    int            `json:"correct"`
	Total      int            `json:"total"`
	Percentage int            `json:"percentage"`
	Status     ProgressStatus `json:"status"`
}

type CategoryScore struct {
	Correct int `json:"correct"`
	Total   int `json:"total"`
}

// MockResult is one append-only mock-test history entry; mock results are
// tracked separately from practice mastery.
type MockResult struct {
	ID        string                   `json:"id"`
	Score     int                      `json:"score"`
	Total     int                      `json:"total"`
	Passed    bool                     `json:"passed"`
	Breakdown map[string]CategoryScore `json:"breakdown"`
	TakenAt   time.Time                `json:"taken_at"`
}

// Bank is the full fixed question bank, indexed for session building.
type Bank struct {
	categories []Category
	questions  []Question // source order
	byCategory map[string][]Question
	byID       map[string]Question
}

func NewBank(categories []Category, questions []Question) *Bank {
	b := &Bank{
		categories: categories,
		questions:  questions,
		byCategory: make(map[string][]Question, len(categories)),
		byID:       make(map[string]Question, len(questions)),
	}
	for _, q := range questions {
		b.byCategory[q.CategoryID] = append(b.byCategory[q.CategoryID], q)
		b.byID[q.ID] = q
	}
	return b
}

func (b *Bank) Categories() []Category { return b.categories }

func (b *Bank) Category(id string) (Category, bool) {
	for _, cat := range b.categories {
		if cat.ID == id {
			return cat, true
		}
	}
	return Category{}, false
}

// CategoryQuestions returns the category's questions in bank (source) order.
func (b *Bank) CategoryQuestions(categoryID string) []Question {
	return b.byCategory[categoryID]
}

func (b *Bank) Size() int { return len(b.questions) }

func contains(ids []string, id string) bool {
	for _, x := range ids {
		if x == id {
			return true
		}
	}
	return false
}

func remove(ids []string, id string) []string {
	for i, x := range ids {
		if x == id {
			return append(ids[:i], ids[i+1:]...)
		}
	}
	return ids
}
