package technician

import (
	"fmt"
	"strings"
	"time"

	"mastermatch/models"
	"mastermatch/services/tasks"
	"mastermatch/utils"

	"go.mongodb.org/mongo-driver/bson"
	"go.uber.org/zap"
)

// IsMatchingEligible reports whether the technician can be considered
// for matching at the given instant: lifecycle active, availability
// online, inside a configured working period for the current weekday,
// and not covered by an approved vacation window. Pure function of the
// snapshot and wall clock; callers re-evaluate it at both candidate
// fetch and reservation time.
func IsMatchingEligible(t models.Technician, now time.Time) bool {
	if t.Status != models.StatusActive || t.DeletedAt != nil {
		return false
	}
	if t.OnlineStatus != models.OnlineStatusOnline {
		return false
	}
	if !WithinWorkingHours(t, now) {
		return false
	}
	if OnApprovedVacation(t, now) {
		return false
	}
	return true
}

// WithinWorkingHours checks the technician's schedule for the weekday
// of `now`. A technician with no configured schedule is treated as
// always working; one with a schedule but no periods for today is not.
func WithinWorkingHours(t models.Technician, now time.Time) bool {
	if len(t.WorkingHours) == 0 {
		return true
	}
	day := strings.ToLower(now.Weekday().String())
	periods, ok := t.WorkingHours[day]
	if !ok || len(periods) == 0 {
		return false
	}
	minute := now.Hour()*60 + now.Minute()
	for _, p := range periods {
		if minute >= p.StartMinute && minute < p.EndMinute {
			return true
		}
	}
	return false
}

// OnApprovedVacation reports whether an approved vacation window covers
// the given instant. Unapproved windows never gate matching.
func OnApprovedVacation(t models.Technician, now time.Time) bool {
	for _, v := range t.Vacations {
		if v.Approved && !now.Before(v.From) && now.Before(v.To) {
			return true
		}
	}
	return false
}

// GoOnline starts a shift: offline -> online with a fresh shift timer.
func (s *DefaultTechnicianService) GoOnline(id string) error {
	tech, err := s.Repo.GetByID(id)
	if err != nil {
		return err
	}
	if tech.Status != models.StatusActive {
		return InvalidStateError{Op: "go online", State: tech.Status}
	}

	now := time.Now().UTC()
	flipped, err := s.Repo.CompareAndSetOnlineStatus(id,
		[]string{models.OnlineStatusOffline},
		models.OnlineStatusOnline,
		bson.M{"shiftStartedAt": now},
	)
	if err != nil {
		return err
	}
	if !flipped {
		return InvalidStateError{Op: "go online", State: tech.OnlineStatus}
	}

	// Schedule the end-of-day close for technicians on a fixed schedule.
	if s.AsynqClient != nil {
		if deadline, ok := endOfWorkingDay(*tech, now); ok && deadline.After(now) {
			task, opts, err := tasks.NewShiftCloseTask(id, deadline)
			if err == nil {
				_, err = s.AsynqClient.Enqueue(task, opts...)
			}
			if err != nil {
				utils.GetLogger().Warn("failed to enqueue shift close task",
					zap.String("technicianId", id), zap.Error(err))
			}
		}
	}

	utils.GetLogger().Info("technician online",
		zap.String("technicianId", id))
	return nil
}

// endOfWorkingDay returns the end of the last working period configured
// for the weekday of `now`. False when the technician has no schedule
// for today.
func endOfWorkingDay(t models.Technician, now time.Time) (time.Time, bool) {
	periods, ok := t.WorkingHours[strings.ToLower(now.Weekday().String())]
	if !ok || len(periods) == 0 {
		return time.Time{}, false
	}
	last := 0
	for _, p := range periods {
		if p.EndMinute > last {
			last = p.EndMinute
		}
	}
	midnight := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
	return midnight.Add(time.Duration(last) * time.Minute), true
}

// GoOffline stops the shift and accrues online time into today's stats.
// Only allowed from online — a busy technician must finish or cancel
// the outstanding assignments first.
func (s *DefaultTechnicianService) GoOffline(id string) error {
	tech, err := s.Repo.GetByID(id)
	if err != nil {
		return err
	}
	if tech.OnlineStatus != models.OnlineStatusOnline {
		return InvalidStateError{Op: "go offline", State: tech.OnlineStatus}
	}

	now := time.Now().UTC()
	minutes := 0
	if tech.ShiftStartedAt != nil {
		minutes = int(now.Sub(*tech.ShiftStartedAt).Minutes())
	}

	flipped, err := s.Repo.CompareAndSetOnlineStatus(id,
		[]string{models.OnlineStatusOnline},
		models.OnlineStatusOffline,
		bson.M{"shiftStartedAt": nil},
	)
	if err != nil {
		return err
	}
	if !flipped {
		return InvalidStateError{Op: "go offline", State: tech.OnlineStatus}
	}

	if minutes > 0 {
		if err := s.accrueOnlineMinutes(id, now, minutes); err != nil {
			return fmt.Errorf("failed to accrue online minutes for technician %s: %w", id, err)
		}
	}

	utils.GetLogger().Info("technician offline",
		zap.String("technicianId", id),
		zap.Int("onlineMinutes", minutes))
	return nil
}

// accrueOnlineMinutes rolls today's counters. The day-key check happens
// inside the store mutation, so counts another writer earned after a
// rollover are never wiped.
func (s *DefaultTechnicianService) accrueOnlineMinutes(id string, now time.Time, minutes int) error {
	return s.Repo.IncTodayStats(id, now.Format("2006-01-02"), 0, minutes)
}

// StartBreak moves online -> break for a bounded duration and schedules
// the expiry task that flips the technician back.
func (s *DefaultTechnicianService) StartBreak(id string, duration time.Duration) error {
	maxBreak := time.Duration(s.Cfg.MaxBreakMinutes) * time.Minute
	if duration <= 0 || duration > maxBreak {
		return fmt.Errorf("break duration must be within (0, %v], got %v", maxBreak, duration)
	}

	until := time.Now().UTC().Add(duration)
	flipped, err := s.Repo.CompareAndSetOnlineStatus(id,
		[]string{models.OnlineStatusOnline},
		models.OnlineStatusBreak,
		bson.M{"breakUntil": until},
	)
	if err != nil {
		return err
	}
	if !flipped {
		tech, gerr := s.Repo.GetByID(id)
		if gerr != nil {
			return gerr
		}
		return InvalidStateError{Op: "start break", State: tech.OnlineStatus}
	}

	if s.AsynqClient != nil {
		task, opts, err := tasks.NewBreakExpiryTask(id, until)
		if err == nil {
			_, err = s.AsynqClient.Enqueue(task, opts...)
		}
		if err != nil {
			// The technician can still end the break manually.
			utils.GetLogger().Warn("failed to enqueue break expiry task",
				zap.String("technicianId", id), zap.Error(err))
		}
	}

	utils.GetLogger().Info("technician on break",
		zap.String("technicianId", id),
		zap.Time("until", until))
	return nil
}

// EndBreak returns early from a break.
func (s *DefaultTechnicianService) EndBreak(id string) error {
	flipped, err := s.Repo.CompareAndSetOnlineStatus(id,
		[]string{models.OnlineStatusBreak},
		models.OnlineStatusOnline,
		bson.M{"breakUntil": nil},
	)
	if err != nil {
		return err
	}
	if !flipped {
		tech, gerr := s.Repo.GetByID(id)
		if gerr != nil {
			return gerr
		}
		return InvalidStateError{Op: "end break", State: tech.OnlineStatus}
	}
	return nil
}

// ExpireBreak is the scheduled-task path of EndBreak: it only flips if
// the technician is still on the same break, so a superseded task is a
// no-op.
func (s *DefaultTechnicianService) ExpireBreak(id string, deadline time.Time) error {
	tech, err := s.Repo.GetByID(id)
	if err != nil {
		return err
	}
	if tech.OnlineStatus != models.OnlineStatusBreak {
		return nil
	}
	if tech.BreakUntil == nil || tech.BreakUntil.After(deadline) {
		// A newer break replaced the one this task was scheduled for.
		return nil
	}
	_, err = s.Repo.CompareAndSetOnlineStatus(id,
		[]string{models.OnlineStatusBreak},
		models.OnlineStatusOnline,
		bson.M{"breakUntil": nil},
	)
	return err
}

// CloseShift is the scheduled-task path of GoOffline at the end of the
// working day. It only acts on the shift it was scheduled for: a
// technician who went offline and came back after the deadline keeps
// the new shift.
func (s *DefaultTechnicianService) CloseShift(id string, deadline time.Time) error {
	tech, err := s.Repo.GetByID(id)
	if err != nil {
		return err
	}
	if tech.OnlineStatus != models.OnlineStatusOnline {
		return nil
	}
	if tech.ShiftStartedAt == nil || tech.ShiftStartedAt.After(deadline) {
		return nil
	}
	return s.GoOffline(id)
}
