package sqlxrepos

import (
	"context"
	"database/sql"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/pkg/errors"

	"github.com/roadmasterhq/roadmaster/core/quiz"
)

type categoryRow struct {
	ID     string `db:"id"`
	Name   string `db:"name"`
	Weight int    `db:"weight"`
}

type questionRow struct {
	ID          string         `db:"id"`
	CategoryID  string         `db:"category_id"`
	Text        string         `db:"text"`
	Options     pq.StringArray `db:"options"`
	Answer      int            `db:"answer"`
	Explanation string         `db:"explanation"`
}

type progressRow struct {
	AnsweredIDs pq.StringArray `db:"answered_ids"`
	CorrectIDs  pq.StringArray `db:"correct_ids"`
	LastAttempt time.Time      `db:"last_attempt"`
}

type progressWithCategoryRow struct {
	CategoryID string `db:"category_id"`
	progressRow
}

func (row progressRow) progress() quiz.CategoryProgress {
	return quiz.CategoryProgress{
		AnsweredIDs: row.AnsweredIDs,
		CorrectIDs:  row.CorrectIDs,
		LastAttempt: row.LastAttempt,
	}
}

type mockResultRow struct {
	ID        string          `db:"id"`
	Score     int             `db:"score"`
	Total     int             `db:"total"`
	Passed    bool            `db:"passed"`
	Breakdown json.RawMessage `db:"breakdown"`
	TakenAt   time.Time       `db:"taken_at"`
}

func (row mockResultRow) result() (quiz.MockResult, error) {
	res := quiz.MockResult{
		ID:      row.ID,
		Score:   row.Score,
		Total:   row.Total,
		Passed:  row.Passed,
		TakenAt: row.TakenAt,
	}
	if err := json.Unmarshal(row.Breakdown, &res.Breakdown); err != nil {
		return quiz.MockResult{}, errors.Wrap(err, "decoding breakdown")
	}
	return res, nil
}

type quizRepository struct {
	db *sqlx.DB
}

var (
	_ quiz.ProgressRepository = (*quizRepository)(nil) // interface compliance check
	_ quiz.QuestionRepository = (*quizRepository)(nil)
)

func NewQuizRepository(db *sql.DB) *quizRepository {
	return &quizRepository{db: sqlx.NewDb(db, "postgres")}
}

func (repo *quizRepository) QueryCategories(ctx context.Context) ([]quiz.Category, error) {
	var rows []categoryRow
	q := `SELECT id, name, weight FROM quiz_category ORDER BY position`
	if err := repo.db.SelectContext(ctx, &rows, q); err != nil {
		return nil, errors.Wrap(err, "querying quiz categories")
	}
	categories := make([]quiz.Category, len(rows))
	for i, row := range rows {
		categories[i] = quiz.Category(row)
	}
	return categories, nil
}

func (repo *quizRepository) QueryQuestions(ctx context.Context) ([]quiz.Question, error) {
	var rows []questionRow
	q := `SELECT id, category_id, text, options, answer, explanation FROM quiz_question ORDER BY position`
	if err := repo.db.SelectContext(ctx, &rows, q); err != nil {
		return nil, errors.Wrap(err, "querying quiz questions")
	}
	questions := make([]quiz.Question, len(rows))
	for i, row := range rows {
		questions[i] = quiz.Question{
			ID:          row.ID,
			CategoryID:  row.CategoryID,
			Text:        row.Text,
			Options:     row.Options,
			Answer:      row.Answer,
			Explanation: row.Explanation,
		}
	}
	return questions, nil
}

func (repo *quizRepository) GetCategoryProgress(ctx context.Context, userID, categoryID string) (quiz.CategoryProgress, error) {
	var row progressRow
	q := `SELECT answered_ids, correct_ids, last_attempt FROM quiz_progress WHERE user_id = $1 AND category_id = $2`
	if err := repo.db.GetContext(ctx, &row, q, userID, categoryID); err != nil {
		if err == sql.ErrNoRows {
			return quiz.CategoryProgress{}, quiz.ErrProgressNotFound
		}
		return quiz.CategoryProgress{}, errors.Wrap(err, "getting quiz progress")
	}
	return row.progress(), nil
}

func (repo *quizRepository) GetProgress(ctx context.Context, userID string) (map[string]quiz.CategoryProgress, error) {
	var rows []progressWithCategoryRow
	q := `SELECT category_id, answered_ids, correct_ids, last_attempt FROM quiz_progress WHERE user_id = $1`
	if err := repo.db.SelectContext(ctx, &rows, q, userID); err != nil {
		return nil, errors.Wrap(err, "querying quiz progress")
	}
	all := make(map[string]quiz.CategoryProgress, len(rows))
	for _, row := range rows {
		all[row.CategoryID] = row.progress()
	}
	return all, nil
}

func (repo *quizRepository) UpsertCategoryProgress(ctx context.Context, userID, categoryID string, prog quiz.CategoryProgress) error {
	q := `INSERT INTO quiz_progress (user_id, category_id, answered_ids, correct_ids, last_attempt)
VALUES ($1, $2, $3, $4, $5)
ON CONFLICT (user_id, category_id)
DO UPDATE SET answered_ids = EXCLUDED.answered_ids, correct_ids = EXCLUDED.correct_ids, last_attempt = EXCLUDED.last_attempt`
	_, err := repo.db.ExecContext(ctx, q,
		userID, categoryID, pq.Array(prog.AnsweredIDs), pq.Array(prog.CorrectIDs), prog.LastAttempt)
	return errors.Wrap(err, "upserting quiz progress")
}

func (repo *quizRepository) AppendMockResult(ctx context.Context, userID string, res quiz.MockResult) (quiz.MockResult, error) {
	breakdown, err := json.Marshal(res.Breakdown)
	if err != nil {
		return quiz.MockResult{}, errors.Wrap(err, "encoding breakdown")
	}
	res.ID = uuid.New().String()
	q := `INSERT INTO mock_test_result (id, user_id, score, total, passed, breakdown, taken_at)
VALUES ($1, $2, $3, $4, $5, $6, $7)`
	_, err = repo.db.ExecContext(ctx, q, res.ID, userID, res.Score, res.Total, res.Passed, breakdown, res.TakenAt)
	if err != nil {
		return quiz.MockResult{}, errors.Wrap(err, "appending mock test result")
	}
	return res, nil
}

func (repo *quizRepository) QueryMockResults(ctx context.Context, userID string) ([]quiz.MockResult, error) {
	var rows []mockResultRow
	q := `SELECT id, score, total, passed, breakdown, taken_at FROM mock_test_result WHERE user_id = $1 ORDER BY taken_at`
	if err := repo.db.SelectContext(ctx, &rows, q, userID); err != nil {
		return nil, errors.Wrap(err, "querying mock test results")
	}
	results := make([]quiz.MockResult, len(rows))
	for i, row := range rows {
		res, err := row.result()
		if err != nil {
			return nil, err
		}
		results[i] = res
	}
	return results, nil
}
