package dummydb

import (
	"context"
	"sort"
	"strings"
	"sync"

	"github.com/schoolrecords/sf10/core/grade"
)

type (
	gradeTable struct {
		sync.RWMutex
		table map[string]*grade.Row // {id: row}
		keys  map[grade.Key]string  // unique (lrn, grade_level, lower(section), quarter) -> id
	}

	gradeRepository struct {
		db *gradeTable
	}
)

var _ grade.Repository = (*gradeRepository)(nil) // interface compliance check

func newGradeTable() *gradeTable {
	return &gradeTable{
		table: make(map[string]*grade.Row),
		keys:  make(map[grade.Key]string),
	}
}

// foldKey makes the section part of the unique key case-insensitive.
func foldKey(k grade.Key) grade.Key {
	k.Section = strings.ToLower(k.Section)
	return k
}

func NewGradeRepository(db *DB) grade.Repository {
	return &gradeRepository{db: db.grade}
}

func (repo *gradeRepository) QueryRows(_ context.Context, filter grade.RowFilter) ([]grade.Row, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	rows := make([]grade.Row, 0)
	for _, row := range repo.db.table {
		if filter.LRN != "" && row.LRN != filter.LRN {
			continue
		}
		if filter.GradeLevel != "" && row.GradeLevel != filter.GradeLevel {
			continue
		}
		if filter.Section != "" && !strings.EqualFold(row.Section, filter.Section) {
			continue
		}
		rows = append(rows, *row)
	}
	sort.SliceStable(rows, func(i, j int) bool {
		a, b := rows[i], rows[j]
		if a.GradeLevel != b.GradeLevel {
			return a.GradeLevel < b.GradeLevel
		}
		if a.Quarter != b.Quarter {
			return a.Quarter < b.Quarter
		}
		if !a.CreatedAt.Equal(b.CreatedAt) {
			return a.CreatedAt.Before(b.CreatedAt)
		}
		return a.ID < b.ID
	})
	return rows, nil
}

func (repo *gradeRepository) GetRow(_ context.Context, id string) (grade.Row, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	if row, ok := repo.db.table[id]; ok {
		return *row, nil
	}
	return grade.Row{}, grade.ErrNotFound
}

func (repo *gradeRepository) UpsertRow(_ context.Context, row grade.Row) (grade.Row, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	if id, ok := repo.db.keys[foldKey(row.Key())]; ok {
		existing := repo.db.table[id]
		row.ID = existing.ID
		row.Section = existing.Section
		row.CreatedAt = existing.CreatedAt
	}
	repo.db.table[row.ID] = &row
	repo.db.keys[foldKey(row.Key())] = row.ID
	return row, nil
}

func (repo *gradeRepository) UpdateRow(_ context.Context, row grade.Row) (grade.Row, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	existing, ok := repo.db.table[row.ID]
	if !ok {
		return grade.Row{}, grade.ErrNotFound
	}
	if !existing.Key().Same(row.Key()) {
		return grade.Row{}, grade.ErrNotFound
	}
	row.Section = existing.Section
	repo.db.table[row.ID] = &row
	return row, nil
}

func (repo *gradeRepository) DeleteRow(_ context.Context, key grade.Key) error {
	repo.db.Lock()
	defer repo.db.Unlock()

	key = foldKey(key)
	id, ok := repo.db.keys[key]
	if !ok {
		return grade.ErrNotFound
	}
	delete(repo.db.keys, key)
	delete(repo.db.table, id)
	return nil
}
