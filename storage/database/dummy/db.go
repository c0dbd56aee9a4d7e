package dummydb

import (
	"sync"

	"github.com/roadmasterhq/roadmaster/core/ledger"
	"github.com/roadmasterhq/roadmaster/core/quiz"
	"github.com/roadmasterhq/roadmaster/core/student"
	"github.com/roadmasterhq/roadmaster/core/user"
)

type (
	DB struct {
		user    *userTable
		ledger  *ledgerTable
		student *studentTable
		quiz    *quizTable
	}

	userTable struct {
		sync.RWMutex
		table map[string]*user.User
	}

	ledgerTable struct {
		sync.RWMutex
		payments map[string]*ledger.Payment
		events   map[string][]ledger.Event // keyed by payment ID
		expenses map[string]*ledger.Expense
	}

	studentTable struct {
		sync.RWMutex
		students map[string]*student.Student
		lessons  map[string]*student.Lesson
	}

	quizTable struct {
		sync.RWMutex
		categories []quiz.Category
		questions  []quiz.Question
		progress   map[string]map[string]quiz.CategoryProgress // userID -> categoryID
		results    map[string][]quiz.MockResult                // userID
	}
)

func Open() (*DB, error) {
	db := &DB{
		user: &userTable{table: make(map[string]*user.User)},
		ledger: &ledgerTable{
			payments: make(map[string]*ledger.Payment),
			events:   make(map[string][]ledger.Event),
			expenses: make(map[string]*ledger.Expense),
		},
		student: &studentTable{
			students: make(map[string]*student.Student),
			lessons:  make(map[string]*student.Lesson),
		},
		quiz: &quizTable{
			progress: make(map[string]map[string]quiz.CategoryProgress),
			results:  make(map[string][]quiz.MockResult),
		},
	}
	return db, nil
}
