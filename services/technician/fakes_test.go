package technician

import (
	"context"
	"sync"
	"time"

	ledgerRepo "mastermatch/database/repository/ledger"
	technicianRepo "mastermatch/database/repository/technician"
	"mastermatch/models"

	"go.mongodb.org/mongo-driver/bson"
)

// fakeRepo is an in-memory TechnicianRepository plus the slice of the
// ledger contract the technician service reads (assignment lookups for
// per-service ratings). Capacity mutation is exercised in the dispatch
// package tests.
type fakeRepo struct {
	mu          sync.Mutex
	techs       map[string]*models.Technician
	assignments map[string]*models.Assignment
}

func newFakeRepo() *fakeRepo {
	return &fakeRepo{
		techs:       make(map[string]*models.Technician),
		assignments: make(map[string]*models.Assignment),
	}
}

func (f *fakeRepo) add(t models.Technician) {
	f.mu.Lock()
	defer f.mu.Unlock()
	cp := t
	f.techs[t.ID] = &cp
}

func (f *fakeRepo) addAssignment(a models.Assignment) {
	f.mu.Lock()
	defer f.mu.Unlock()
	cp := a
	f.assignments[a.ID] = &cp
}

func (f *fakeRepo) technician(id string) models.Technician {
	f.mu.Lock()
	defer f.mu.Unlock()
	return *f.techs[id]
}

func (f *fakeRepo) GetByID(id string) (*models.Technician, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	t, ok := f.techs[id]
	if !ok || t.DeletedAt != nil {
		return nil, technicianRepo.ErrNotFound
	}
	cp := *t
	return &cp, nil
}

func (f *fakeRepo) Create(t *models.Technician) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	cp := *t
	f.techs[t.ID] = &cp
	return nil
}

func (f *fakeRepo) SoftDelete(id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	t, ok := f.techs[id]
	if !ok {
		return technicianRepo.ErrNotFound
	}
	now := time.Now().UTC()
	t.Status = models.StatusDeleted
	t.DeletedAt = &now
	return nil
}

func (f *fakeRepo) UpdateSet(id string, updateDoc bson.M) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	t, ok := f.techs[id]
	if !ok {
		return technicianRepo.ErrNotFound
	}
	for k, v := range updateDoc {
		switch k {
		case "reliability.score":
			t.Reliability.Score = v.(float64)
		case "reliability.completionRate":
			t.Reliability.CompletionRate = v.(float64)
		case "reliability.cancellationRate":
			t.Reliability.CancellationRate = v.(float64)
		case "status":
			t.Status = v.(string)
		case "onlineStatus":
			t.OnlineStatus = v.(string)
		case "updatedAt":
			t.UpdatedAt = v.(time.Time)
		}
	}
	return nil
}

func (f *fakeRepo) UpdatePush(id string, updateDoc bson.M) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	t, ok := f.techs[id]
	if !ok {
		return technicianRepo.ErrNotFound
	}
	if p, ok := updateDoc["reliability.penalties"].(models.Penalty); ok {
		t.Reliability.Penalties = append(t.Reliability.Penalties, p)
	}
	return nil
}

func (f *fakeRepo) CompareAndSetRating(id string, expectedCount int, rating models.Rating) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	t, ok := f.techs[id]
	if !ok || t.DeletedAt != nil {
		return false, nil
	}
	if t.Rating.Count != expectedCount {
		return false, nil
	}
	t.Rating = rating
	return true, nil
}

func (f *fakeRepo) IncTodayStats(id, day string, orders, onlineMinutes int) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	t, ok := f.techs[id]
	if !ok || t.DeletedAt != nil {
		return technicianRepo.ErrNotFound
	}
	if t.Stats.Today.Date != day {
		t.Stats.Today = models.TodayStats{Date: day}
	}
	t.Stats.Today.Orders += orders
	t.Stats.Today.OnlineMinutes += onlineMinutes
	return nil
}

func (f *fakeRepo) CompareAndSetOnlineStatus(id string, from []string, to string, extra bson.M) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	t, ok := f.techs[id]
	if !ok {
		return false, technicianRepo.ErrNotFound
	}
	matched := false
	for _, s := range from {
		if t.OnlineStatus == s {
			matched = true
			break
		}
	}
	if !matched {
		return false, nil
	}
	t.OnlineStatus = to
	if v, ok := extra["breakUntil"]; ok {
		if until, ok := v.(time.Time); ok {
			t.BreakUntil = &until
		} else {
			t.BreakUntil = nil
		}
	}
	if v, ok := extra["shiftStartedAt"]; ok {
		if at, ok := v.(time.Time); ok {
			t.ShiftStartedAt = &at
		} else {
			t.ShiftStartedAt = nil
		}
	}
	return true, nil
}

func (f *fakeRepo) FindCandidates(criteria technicianRepo.CandidateCriteria) ([]models.Candidate, error) {
	return nil, nil
}

// LedgerRepository

func (f *fakeRepo) TryReserve(ctx context.Context, technicianID string, slot models.BusySlot) error {
	return ledgerRepo.ErrSlotConflict
}

func (f *fakeRepo) Release(ctx context.Context, technicianID, requestID string) error {
	return ledgerRepo.ErrSlotNotFound
}

func (f *fakeRepo) ReserveAssignment(ctx context.Context, a *models.Assignment) error {
	return ledgerRepo.ErrSlotConflict
}

func (f *fakeRepo) GetAssignment(id string) (*models.Assignment, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	a, ok := f.assignments[id]
	if !ok {
		return nil, ledgerRepo.ErrAssignmentNotFound
	}
	cp := *a
	return &cp, nil
}

func (f *fakeRepo) GetAssignmentByRequestID(requestID string) (*models.Assignment, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, a := range f.assignments {
		if a.RequestID == requestID {
			cp := *a
			return &cp, nil
		}
	}
	return nil, ledgerRepo.ErrAssignmentNotFound
}

func (f *fakeRepo) StartAssignment(ctx context.Context, id string, at time.Time) error {
	return ledgerRepo.ErrAssignmentNotFound
}

func (f *fakeRepo) CloseAssignment(ctx context.Context, id, status, detail string, at time.Time) (*models.Assignment, error) {
	return nil, ledgerRepo.ErrAssignmentNotFound
}
