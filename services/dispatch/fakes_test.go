package dispatch

import (
	"context"
	"strings"
	"sync"
	"time"

	ledgerRepo "mastermatch/database/repository/ledger"
	technicianRepo "mastermatch/database/repository/technician"
	"mastermatch/models"

	"go.mongodb.org/mongo-driver/bson"
)

// fakeStore is an in-memory stand-in for both repositories. Reserve and
// release run under one mutex per store, mirroring the per-document
// atomicity of the Mongo conditional updates.
type fakeStore struct {
	mu          sync.Mutex
	techs       map[string]*models.Technician
	assignments map[string]*models.Assignment
	distances   map[string]float64
	singleJob   bool

	reserveCalls int
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		techs:       make(map[string]*models.Technician),
		assignments: make(map[string]*models.Assignment),
		distances:   make(map[string]float64),
	}
}

func (f *fakeStore) addTechnician(t models.Technician, distance float64) {
	f.mu.Lock()
	defer f.mu.Unlock()
	cp := t
	f.techs[t.ID] = &cp
	f.distances[t.ID] = distance
}

func (f *fakeStore) technician(id string) models.Technician {
	f.mu.Lock()
	defer f.mu.Unlock()
	return *f.techs[id]
}

// TechnicianRepository

func (f *fakeStore) GetByID(id string) (*models.Technician, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	t, ok := f.techs[id]
	if !ok || t.DeletedAt != nil {
		return nil, technicianRepo.ErrNotFound
	}
	cp := *t
	return &cp, nil
}

func (f *fakeStore) Create(t *models.Technician) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	cp := *t
	f.techs[t.ID] = &cp
	return nil
}

func (f *fakeStore) SoftDelete(id string) error {
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

// UpdateSet understands only the dotted paths the services actually
// write; everything else is ignored on purpose.
func (f *fakeStore) UpdateSet(id string, updateDoc bson.M) error {
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
		}
	}
	return nil
}

func (f *fakeStore) UpdatePush(id string, updateDoc bson.M) error {
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

func (f *fakeStore) CompareAndSetRating(id string, expectedCount int, rating models.Rating) (bool, error) {
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

func (f *fakeStore) IncTodayStats(id, day string, orders, onlineMinutes int) error {
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

func (f *fakeStore) CompareAndSetOnlineStatus(id string, from []string, to string, extra bson.M) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	t, ok := f.techs[id]
	if !ok {
		return false, technicianRepo.ErrNotFound
	}
	for _, s := range from {
		if t.OnlineStatus == s {
			t.OnlineStatus = to
			return true, nil
		}
	}
	return false, nil
}

func (f *fakeStore) FindCandidates(criteria technicianRepo.CandidateCriteria) ([]models.Candidate, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []models.Candidate
	for id, t := range f.techs {
		if t.Status != models.StatusActive || t.OnlineStatus != models.OnlineStatusOnline || t.DeletedAt != nil {
			continue
		}
		if t.Capacity.ActiveOrders >= t.Capacity.MaxActiveOrders {
			continue
		}
		if criteria.ServiceType != "" && !containsService(t.Services, criteria.ServiceType) {
			continue
		}
		excluded := false
		for _, ex := range criteria.ExcludedIDs {
			if ex == id {
				excluded = true
				break
			}
		}
		if excluded {
			continue
		}
		if criteria.MinRating > 0 && t.Rating.Average < criteria.MinRating {
			continue
		}
		dist := f.distances[id]
		if dist > criteria.RadiusMeters {
			continue
		}
		out = append(out, models.Candidate{Technician: *t, DistanceMeters: dist})
	}
	return out, nil
}

func containsService(list []string, value string) bool {
	for _, v := range list {
		if strings.EqualFold(v, value) {
			return true
		}
	}
	return false
}

// LedgerRepository

func (f *fakeStore) tryReserveLocked(technicianID string, slot models.BusySlot) error {
	t, ok := f.techs[technicianID]
	if !ok || t.DeletedAt != nil || t.Status != models.StatusActive {
		return ledgerRepo.ErrSlotConflict
	}
	if t.OnlineStatus != models.OnlineStatusOnline && t.OnlineStatus != models.OnlineStatusBusy {
		return ledgerRepo.ErrSlotConflict
	}
	if t.Capacity.ActiveOrders >= t.Capacity.MaxActiveOrders {
		return ledgerRepo.ErrSlotConflict
	}
	if f.singleJob && t.Capacity.ActiveOrders > 0 {
		return ledgerRepo.ErrSlotConflict
	}
	for _, s := range t.Capacity.BusySlots {
		if s.Start.Before(slot.End) && s.End.After(slot.Start) {
			return ledgerRepo.ErrSlotConflict
		}
	}
	t.Capacity.ActiveOrders++
	t.Capacity.BusySlots = append(t.Capacity.BusySlots, slot)
	t.OnlineStatus = models.OnlineStatusBusy
	return nil
}

func (f *fakeStore) TryReserve(ctx context.Context, technicianID string, slot models.BusySlot) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.reserveCalls++
	return f.tryReserveLocked(technicianID, slot)
}

func (f *fakeStore) releaseLocked(technicianID, requestID string) error {
	t, ok := f.techs[technicianID]
	if !ok {
		return ledgerRepo.ErrSlotNotFound
	}
	idx := -1
	for i, s := range t.Capacity.BusySlots {
		if s.RequestID == requestID {
			idx = i
			break
		}
	}
	if idx < 0 {
		return ledgerRepo.ErrSlotNotFound
	}
	t.Capacity.BusySlots = append(t.Capacity.BusySlots[:idx], t.Capacity.BusySlots[idx+1:]...)
	t.Capacity.ActiveOrders = len(t.Capacity.BusySlots)
	if t.Capacity.ActiveOrders == 0 && t.OnlineStatus == models.OnlineStatusBusy {
		t.OnlineStatus = models.OnlineStatusOnline
	}
	return nil
}

func (f *fakeStore) Release(ctx context.Context, technicianID, requestID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.releaseLocked(technicianID, requestID)
}

func (f *fakeStore) ReserveAssignment(ctx context.Context, a *models.Assignment) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.reserveCalls++
	slot := models.BusySlot{RequestID: a.RequestID, Start: a.WindowStart, End: a.WindowEnd}
	if err := f.tryReserveLocked(a.TechnicianID, slot); err != nil {
		return err
	}
	cp := *a
	f.assignments[a.ID] = &cp
	return nil
}

func (f *fakeStore) GetAssignment(id string) (*models.Assignment, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	a, ok := f.assignments[id]
	if !ok {
		return nil, ledgerRepo.ErrAssignmentNotFound
	}
	cp := *a
	return &cp, nil
}

func (f *fakeStore) GetAssignmentByRequestID(requestID string) (*models.Assignment, error) {
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

func (f *fakeStore) StartAssignment(ctx context.Context, id string, at time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	a, ok := f.assignments[id]
	if !ok || a.Status != models.AssignmentAssigned {
		return ledgerRepo.ErrAssignmentNotFound
	}
	a.Status = models.AssignmentActive
	a.StartedAt = &at
	return nil
}

func (f *fakeStore) CloseAssignment(ctx context.Context, id, status, detail string, at time.Time) (*models.Assignment, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	a, ok := f.assignments[id]
	if !ok || !a.Open() {
		return nil, ledgerRepo.ErrAssignmentNotFound
	}
	if err := f.releaseLocked(a.TechnicianID, a.RequestID); err != nil {
		return nil, err
	}
	a.Status = status
	a.ClosedAt = &at
	t := f.techs[a.TechnicianID]
	t.Stats.Lifetime.TotalOrders++
	if status == models.AssignmentCompleted {
		a.Outcome = detail
		t.Stats.Lifetime.CompletedOrders++
		if t.Stats.Lifetime.PerService == nil {
			t.Stats.Lifetime.PerService = make(map[string]int)
		}
		t.Stats.Lifetime.PerService[a.ServiceType]++
		today := at.UTC().Format("2006-01-02")
		if t.Stats.Today.Date != today {
			t.Stats.Today = models.TodayStats{Date: today}
		}
		t.Stats.Today.Orders++
	} else {
		a.CancelReason = detail
		t.Stats.Lifetime.CancelledOrders++
	}
	cp := *a
	return &cp, nil
}
