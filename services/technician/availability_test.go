package technician

import (
	"testing"
	"time"

	"mastermatch/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Monday, 10:00 UTC.
var monday10 = time.Date(2026, 3, 2, 10, 0, 0, 0, time.UTC)

func eligibleTech() models.Technician {
	return models.Technician{
		ID:           "t1",
		Status:       models.StatusActive,
		OnlineStatus: models.OnlineStatusOnline,
		Services:     []string{"towing"},
		Capacity:     models.Capacity{MaxActiveOrders: 1},
	}
}

func TestIsMatchingEligible(t *testing.T) {
	deleted := time.Now().UTC()

	tests := []struct {
		name     string
		mutate   func(*models.Technician)
		eligible bool
	}{
		{"active and online", func(*models.Technician) {}, true},
		{"offline", func(t *models.Technician) { t.OnlineStatus = models.OnlineStatusOffline }, false},
		{"busy", func(t *models.Technician) { t.OnlineStatus = models.OnlineStatusBusy }, false},
		{"on break", func(t *models.Technician) { t.OnlineStatus = models.OnlineStatusBreak }, false},
		{"suspended", func(t *models.Technician) { t.Status = models.StatusSuspended }, false},
		{"pending verification", func(t *models.Technician) { t.Status = models.StatusPendingVerification }, false},
		{"soft-deleted", func(t *models.Technician) { t.DeletedAt = &deleted }, false},
		{"on approved vacation", func(t *models.Technician) {
			t.Vacations = []models.VacationWindow{{
				From: monday10.Add(-time.Hour), To: monday10.Add(time.Hour), Approved: true,
			}}
		}, false},
		{"vacation not approved", func(t *models.Technician) {
			t.Vacations = []models.VacationWindow{{
				From: monday10.Add(-time.Hour), To: monday10.Add(time.Hour),
			}}
		}, true},
		{"outside working hours", func(t *models.Technician) {
			t.WorkingHours = map[string][]models.WorkingPeriod{
				"monday": {{StartMinute: 14 * 60, EndMinute: 18 * 60}},
			}
		}, false},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			tech := eligibleTech()
			tc.mutate(&tech)
			assert.Equal(t, tc.eligible, IsMatchingEligible(tech, monday10))
		})
	}
}

func TestWithinWorkingHours(t *testing.T) {
	tests := []struct {
		name   string
		hours  map[string][]models.WorkingPeriod
		within bool
	}{
		{"no schedule means always working", nil, true},
		{"inside today's period", map[string][]models.WorkingPeriod{
			"monday": {{StartMinute: 8 * 60, EndMinute: 18 * 60}},
		}, true},
		{"before today's period", map[string][]models.WorkingPeriod{
			"monday": {{StartMinute: 11 * 60, EndMinute: 18 * 60}},
		}, false},
		{"at exclusive period end", map[string][]models.WorkingPeriod{
			"monday": {{StartMinute: 8 * 60, EndMinute: 10 * 60}},
		}, false},
		{"second period matches", map[string][]models.WorkingPeriod{
			"monday": {
				{StartMinute: 6 * 60, EndMinute: 8 * 60},
				{StartMinute: 9 * 60, EndMinute: 12 * 60},
			},
		}, true},
		{"schedule without today", map[string][]models.WorkingPeriod{
			"tuesday": {{StartMinute: 8 * 60, EndMinute: 18 * 60}},
		}, false},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			tech := eligibleTech()
			tech.WorkingHours = tc.hours
			assert.Equal(t, tc.within, WithinWorkingHours(tech, monday10))
		})
	}
}

func TestGoOnlineGoOffline(t *testing.T) {
	repo := newFakeRepo()
	svc := newTestService(t, repo)

	tech := eligibleTech()
	tech.OnlineStatus = models.OnlineStatusOffline
	repo.add(tech)

	require.NoError(t, svc.GoOnline("t1"))
	stored := repo.technician("t1")
	assert.Equal(t, models.OnlineStatusOnline, stored.OnlineStatus)
	assert.NotNil(t, stored.ShiftStartedAt)

	// Already online: the compare-and-set guard rejects the second call.
	err := svc.GoOnline("t1")
	var stateErr InvalidStateError
	require.ErrorAs(t, err, &stateErr)

	require.NoError(t, svc.GoOffline("t1"))
	assert.Equal(t, models.OnlineStatusOffline, repo.technician("t1").OnlineStatus)
}

func TestGoOfflineAccruesMinutesSameDay(t *testing.T) {
	repo := newFakeRepo()
	svc := newTestService(t, repo)

	started := time.Now().UTC().Add(-90 * time.Minute)
	today := time.Now().UTC().Format("2006-01-02")
	tech := eligibleTech()
	tech.ShiftStartedAt = &started
	tech.Stats.Today = models.TodayStats{Date: today, Orders: 2, OnlineMinutes: 30}
	repo.add(tech)

	require.NoError(t, svc.GoOffline("t1"))

	stored := repo.technician("t1")
	assert.Equal(t, today, stored.Stats.Today.Date)
	// Accruing minutes must not disturb orders earned earlier today.
	assert.Equal(t, 2, stored.Stats.Today.Orders)
	assert.GreaterOrEqual(t, stored.Stats.Today.OnlineMinutes, 30+89)
}

func TestGoOfflineRollsStaleDay(t *testing.T) {
	repo := newFakeRepo()
	svc := newTestService(t, repo)

	started := time.Now().UTC().Add(-90 * time.Minute)
	tech := eligibleTech()
	tech.ShiftStartedAt = &started
	tech.Stats.Today = models.TodayStats{Date: "2020-01-01", Orders: 7, OnlineMinutes: 300}
	repo.add(tech)

	require.NoError(t, svc.GoOffline("t1"))

	stored := repo.technician("t1")
	assert.Equal(t, time.Now().UTC().Format("2006-01-02"), stored.Stats.Today.Date)
	assert.Zero(t, stored.Stats.Today.Orders)
	assert.GreaterOrEqual(t, stored.Stats.Today.OnlineMinutes, 89)
	assert.Less(t, stored.Stats.Today.OnlineMinutes, 300)
}

func TestGoOnlineRequiresActiveStatus(t *testing.T) {
	repo := newFakeRepo()
	svc := newTestService(t, repo)

	tech := eligibleTech()
	tech.Status = models.StatusPendingVerification
	tech.OnlineStatus = models.OnlineStatusOffline
	repo.add(tech)

	var stateErr InvalidStateError
	assert.ErrorAs(t, svc.GoOnline("t1"), &stateErr)
}

func TestGoOfflineWhileBusyRejected(t *testing.T) {
	repo := newFakeRepo()
	svc := newTestService(t, repo)

	tech := eligibleTech()
	tech.OnlineStatus = models.OnlineStatusBusy
	repo.add(tech)

	var stateErr InvalidStateError
	assert.ErrorAs(t, svc.GoOffline("t1"), &stateErr)
	assert.Equal(t, models.OnlineStatusBusy, repo.technician("t1").OnlineStatus)
}

func TestBreakLifecycle(t *testing.T) {
	repo := newFakeRepo()
	svc := newTestService(t, repo)
	repo.add(eligibleTech())

	require.NoError(t, svc.StartBreak("t1", 30*time.Minute))
	stored := repo.technician("t1")
	assert.Equal(t, models.OnlineStatusBreak, stored.OnlineStatus)
	require.NotNil(t, stored.BreakUntil)

	require.NoError(t, svc.EndBreak("t1"))
	stored = repo.technician("t1")
	assert.Equal(t, models.OnlineStatusOnline, stored.OnlineStatus)
	assert.Nil(t, stored.BreakUntil)
}

func TestStartBreakDurationBounds(t *testing.T) {
	repo := newFakeRepo()
	svc := newTestService(t, repo)
	repo.add(eligibleTech())

	maxBreak := time.Duration(svc.Cfg.MaxBreakMinutes) * time.Minute
	assert.Error(t, svc.StartBreak("t1", 0))
	assert.Error(t, svc.StartBreak("t1", maxBreak+time.Minute))
	assert.Equal(t, models.OnlineStatusOnline, repo.technician("t1").OnlineStatus)
}

func TestStartBreakRequiresOnline(t *testing.T) {
	repo := newFakeRepo()
	svc := newTestService(t, repo)

	tech := eligibleTech()
	tech.OnlineStatus = models.OnlineStatusBusy
	repo.add(tech)

	var stateErr InvalidStateError
	assert.ErrorAs(t, svc.StartBreak("t1", 10*time.Minute), &stateErr)
}

func TestExpireBreak(t *testing.T) {
	repo := newFakeRepo()
	svc := newTestService(t, repo)
	repo.add(eligibleTech())

	require.NoError(t, svc.StartBreak("t1", 30*time.Minute))
	deadline := *repo.technician("t1").BreakUntil

	// A task scheduled for an older break must not cut a newer one short.
	require.NoError(t, svc.ExpireBreak("t1", deadline.Add(-time.Minute)))
	assert.Equal(t, models.OnlineStatusBreak, repo.technician("t1").OnlineStatus)

	require.NoError(t, svc.ExpireBreak("t1", deadline))
	assert.Equal(t, models.OnlineStatusOnline, repo.technician("t1").OnlineStatus)

	// Already back online: expiry is a no-op.
	require.NoError(t, svc.ExpireBreak("t1", deadline))
	assert.Equal(t, models.OnlineStatusOnline, repo.technician("t1").OnlineStatus)
}

func TestCloseShift(t *testing.T) {
	repo := newFakeRepo()
	svc := newTestService(t, repo)

	started := time.Now().UTC().Add(-8 * time.Hour)
	tech := eligibleTech()
	tech.ShiftStartedAt = &started
	repo.add(tech)

	deadline := time.Now().UTC().Add(-time.Minute)
	require.NoError(t, svc.CloseShift("t1", deadline))
	assert.Equal(t, models.OnlineStatusOffline, repo.technician("t1").OnlineStatus)

	// Closing an already-closed shift is a no-op.
	require.NoError(t, svc.CloseShift("t1", deadline))
	assert.Equal(t, models.OnlineStatusOffline, repo.technician("t1").OnlineStatus)
}

func TestCloseShiftKeepsNewerShift(t *testing.T) {
	repo := newFakeRepo()
	svc := newTestService(t, repo)

	deadline := time.Now().UTC().Add(-time.Hour)
	restarted := time.Now().UTC().Add(-10 * time.Minute)
	tech := eligibleTech()
	tech.ShiftStartedAt = &restarted
	repo.add(tech)

	// The task belongs to a shift that already ended; the technician
	// came back online since.
	require.NoError(t, svc.CloseShift("t1", deadline))
	assert.Equal(t, models.OnlineStatusOnline, repo.technician("t1").OnlineStatus)
}

func TestEndOfWorkingDay(t *testing.T) {
	tech := eligibleTech()
	tech.WorkingHours = map[string][]models.WorkingPeriod{
		"monday": {
			{StartMinute: 8 * 60, EndMinute: 12 * 60},
			{StartMinute: 13 * 60, EndMinute: 18 * 60},
		},
	}

	deadline, ok := endOfWorkingDay(tech, monday10)
	require.True(t, ok)
	assert.Equal(t, time.Date(2026, 3, 2, 18, 0, 0, 0, time.UTC), deadline)

	tech.WorkingHours = nil
	_, ok = endOfWorkingDay(tech, monday10)
	assert.False(t, ok)
}
