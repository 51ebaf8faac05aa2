package dummydb

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/schoolrecords/sf10/core/printreq"
)

type (
	printRequestTable struct {
		sync.RWMutex
		table map[string]*printreq.Request // {id: request}
	}

	printRequestRepository struct {
		db *printRequestTable
	}
)

var _ printreq.Repository = (*printRequestRepository)(nil) // interface compliance check

func newPrintRequestTable() *printRequestTable {
	return &printRequestTable{table: make(map[string]*printreq.Request)}
}

func NewPrintRequestRepository(db *DB) printreq.Repository {
	return &printRequestRepository{db: db.printRequest}
}

func (repo *printRequestRepository) CreateRequest(_ context.Context, r printreq.Request) (printreq.Request, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	for _, req := range repo.db.table {
		if req.LRN == r.LRN && req.IsOpen() {
			return printreq.Request{}, printreq.ErrOpenRequestExists
		}
	}
	repo.db.table[r.ID] = &r
	return r, nil
}

func (repo *printRequestRepository) GetRequest(_ context.Context, id string) (printreq.Request, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	if r, ok := repo.db.table[id]; ok {
		return *r, nil
	}
	return printreq.Request{}, printreq.ErrNotFound
}

func (repo *printRequestRepository) QueryRequests(_ context.Context, filter printreq.Filter) ([]printreq.Request, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	reqs := make([]printreq.Request, 0)
	for _, r := range repo.db.table {
		if filter.Status != "" && r.Status != filter.Status {
			continue
		}
		if filter.LRN != "" && r.LRN != filter.LRN {
			continue
		}
		if filter.RequestedBy != "" && r.RequestedBy != filter.RequestedBy {
			continue
		}
		if filter.Search != "" && !strings.Contains(strings.ToLower(r.StudentName), strings.ToLower(filter.Search)) {
			continue
		}
		reqs = append(reqs, *r)
	}
	sort.Slice(reqs, func(i, j int) bool {
		if !reqs[i].CreatedAt.Equal(reqs[j].CreatedAt) {
			return reqs[i].CreatedAt.After(reqs[j].CreatedAt)
		}
		return reqs[i].ID < reqs[j].ID
	})
	return reqs, nil
}

func (repo *printRequestRepository) UpdateStatus(_ context.Context, id, from, to string, at time.Time) (printreq.Request, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	r, ok := repo.db.table[id]
	if !ok {
		return printreq.Request{}, printreq.ErrNotFound
	}
	if r.Status != from {
		return printreq.Request{}, printreq.ErrInvalidTransition
	}
	r.Status = to
	r.UpdatedAt = at
	return *r, nil
}
