package dummydb

import (
	"context"
	"sort"
	"strings"
	"sync"

	"github.com/schoolrecords/sf10/core/student"
)

type (
	studentTable struct {
		sync.RWMutex
		table map[string]*student.Student // {lrn: student}
	}

	studentRepository struct {
		db *studentTable
	}
)

var _ student.Repository = (*studentRepository)(nil) // interface compliance check

func newStudentTable() *studentTable {
	return &studentTable{table: make(map[string]*student.Student)}
}

func NewStudentRepository(db *DB) student.Repository {
	return &studentRepository{db: db.student}
}

func (repo *studentRepository) QueryStudents(_ context.Context, filter student.Filter) ([]student.Student, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	students := make([]student.Student, 0)
	for _, s := range repo.db.table {
		if filter.GradeLevel != "" && s.GradeLevel != filter.GradeLevel {
			continue
		}
		if filter.Section != "" && !strings.EqualFold(s.Section, filter.Section) {
			continue
		}
		if filter.Search != "" && !matchesSearch(*s, filter.Search) {
			continue
		}
		students = append(students, *s)
	}
	sort.Slice(students, func(i, j int) bool {
		a, b := students[i], students[j]
		if a.LastName != b.LastName {
			return a.LastName < b.LastName
		}
		if a.FirstName != b.FirstName {
			return a.FirstName < b.FirstName
		}
		return a.LRN < b.LRN
	})
	return students, nil
}

func matchesSearch(s student.Student, search string) bool {
	search = strings.ToLower(search)
	for _, val := range []string{s.LRN, s.LastName, s.FirstName, s.MiddleName} {
		if strings.Contains(strings.ToLower(val), search) {
			return true
		}
	}
	return false
}

func (repo *studentRepository) GetStudent(_ context.Context, lrn string) (student.Student, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	if s, ok := repo.db.table[lrn]; ok {
		return *s, nil
	}
	return student.Student{}, student.ErrNotFound
}

func (repo *studentRepository) SaveStudent(_ context.Context, s student.Student) (student.Student, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	repo.db.table[s.LRN] = &s
	return s, nil
}
