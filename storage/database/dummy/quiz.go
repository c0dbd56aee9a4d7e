package dummydb

import (
	"context"

	"github.com/google/uuid"

	"github.com/roadmasterhq/roadmaster/core/quiz"
)

type quizRepository struct {
	db *quizTable
}

var (
	_ quiz.ProgressRepository = (*quizRepository)(nil) // interface compliance check
	_ quiz.QuestionRepository = (*quizRepository)(nil)
)

func NewQuizRepository(db *DB) *quizRepository {
	return &quizRepository{db: db.quiz}
}

// SeedQuiz loads a question bank; meant for tests and local runs.
func (db *DB) SeedQuiz(categories []quiz.Category, questions []quiz.Question) {
	db.quiz.Lock()
	defer db.quiz.Unlock()
	db.quiz.categories = categories
	db.quiz.questions = questions
}

func (repo *quizRepository) QueryCategories(ctx context.Context) ([]quiz.Category, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	categories := make([]quiz.Category, len(repo.db.categories))
	copy(categories, repo.db.categories)
	return categories, nil
}

func (repo *quizRepository) QueryQuestions(ctx context.Context) ([]quiz.Question, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	questions := make([]quiz.Question, len(repo.db.questions))
	copy(questions, repo.db.questions)
	return questions, nil
}

func (repo *quizRepository) GetCategoryProgress(ctx context.Context, userID, categoryID string) (quiz.CategoryProgress, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	if prog, ok := repo.db.progress[userID][categoryID]; ok {
		return copyProgress(prog), nil
	}
	return quiz.CategoryProgress{}, quiz.ErrProgressNotFound
}

func (repo *quizRepository) GetProgress(ctx context.Context, userID string) (map[string]quiz.CategoryProgress, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	all := make(map[string]quiz.CategoryProgress, len(repo.db.progress[userID]))
	for categoryID, prog := range repo.db.progress[userID] {
		all[categoryID] = copyProgress(prog)
	}
	return all, nil
}

func (repo *quizRepository) UpsertCategoryProgress(ctx context.Context, userID, categoryID string, prog quiz.CategoryProgress) error {
	repo.db.Lock()
	defer repo.db.Unlock()

	if repo.db.progress[userID] == nil {
		repo.db.progress[userID] = make(map[string]quiz.CategoryProgress)
	}
	repo.db.progress[userID][categoryID] = copyProgress(prog)
	return nil
}

func (repo *quizRepository) AppendMockResult(ctx context.Context, userID string, res quiz.MockResult) (quiz.MockResult, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	res.ID = uuid.New().String()
	repo.db.results[userID] = append(repo.db.results[userID], res)
	return res, nil
}

func (repo *quizRepository) QueryMockResults(ctx context.Context, userID string) ([]quiz.MockResult, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	results := make([]quiz.MockResult, len(repo.db.results[userID]))
	copy(results, repo.db.results[userID])
	return results, nil
}

func copyProgress(prog quiz.CategoryProgress) quiz.CategoryProgress {
	cp := quiz.CategoryProgress{LastAttempt: prog.LastAttempt}
	cp.AnsweredIDs = append(cp.AnsweredIDs, prog.AnsweredIDs...)
	cp.CorrectIDs = append(cp.CorrectIDs, prog.CorrectIDs...)
	return cp
}
